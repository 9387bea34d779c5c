// Package conn tracks the lifecycle of the socket connection.
package conn

import "github.com/vovakirdan/harmony-sync/internal/proto"

// Status is the ready state of the underlying socket.
type Status int

const (
	// Connecting means a dial is in progress, including auto-reconnects.
	Connecting Status = iota
	// Open means requests can be sent.
	Open
	// Closed means the link dropped and no dial is in progress yet.
	Closed
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is the socket collaborator. It owns framing; the core only
// exchanges structured requests and events with it.
type Transport interface {
	ReadyState() Status
	Send(req proto.Request) error
}

// Tracker is the single source of truth for "is the link usable now".
// The status itself is read from the transport; the tracker only remembers
// the disconnect edge so repeated close signals notify once.
type Tracker struct {
	transport    Transport
	disconnected bool
}

// NewTracker wraps a transport.
func NewTracker(t Transport) *Tracker {
	return &Tracker{transport: t}
}

// IsOpen reports whether requests can be sent right now.
func (t *Tracker) IsOpen() bool {
	return t.transport.ReadyState() == Open
}

// Status returns the transport's current ready state.
func (t *Tracker) Status() Status {
	return t.transport.ReadyState()
}

// Usable reports whether the link is open or on its way there.
func (t *Tracker) Usable() bool {
	s := t.transport.ReadyState()
	return s == Open || s == Connecting
}

// MarkClosed records a close signal. It returns true only for the first close
// since the last open edge.
func (t *Tracker) MarkClosed() bool {
	if t.disconnected {
		return false
	}
	t.disconnected = true
	return true
}

// MarkOpen records an open signal and reports whether it ends a recorded
// disconnect, i.e. whether this is a reconnect.
func (t *Tracker) MarkOpen() bool {
	reconnected := t.disconnected
	t.disconnected = false
	return reconnected
}
