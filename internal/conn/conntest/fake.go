// Package conntest provides an in-memory transport for tests.
package conntest

import (
	"errors"

	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/proto"
)

// ErrClosed is returned by Send when the fake is not open.
var ErrClosed = errors.New("fake transport not open")

// Transport records every request sent while open.
type Transport struct {
	State conn.Status
	Sent  []proto.Request
}

// New returns a fake in the given state.
func New(state conn.Status) *Transport {
	return &Transport{State: state}
}

// ReadyState implements conn.Transport.
func (t *Transport) ReadyState() conn.Status { return t.State }

// Send implements conn.Transport.
func (t *Transport) Send(req proto.Request) error {
	if t.State != conn.Open {
		return ErrClosed
	}
	t.Sent = append(t.Sent, req)
	return nil
}

// Types returns the request types sent so far, in order.
func (t *Transport) Types() []string {
	out := make([]string, 0, len(t.Sent))
	for _, r := range t.Sent {
		out = append(out, r.Type)
	}
	return out
}

// CountType returns how many requests of the given type were sent.
func (t *Transport) CountType(typ string) int {
	n := 0
	for _, r := range t.Sent {
		if r.Type == typ {
			n++
		}
	}
	return n
}

// Reset forgets recorded requests.
func (t *Transport) Reset() { t.Sent = nil }
