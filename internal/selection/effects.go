// Package selection reacts to changes of the guild/channel cursor by issuing
// the matching fetch, deferring it to the next open edge while the link is not
// open yet. A newer selection always supersedes a deferred fetch for the same
// purpose, so at most one waits per purpose.
package selection

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/bus"
	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/proto"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

// Purpose names what a deferred fetch loads.
type Purpose string

const (
	PurposeChannels Purpose = "channels"
	PurposeMessages Purpose = "messages"
)

// Phase is the state of a deferred fetch.
type Phase int

const (
	// Waiting means the fetch runs on the next open edge.
	Waiting Phase = iota
	// Fired means the fetch ran.
	Fired
	// Superseded means a newer selection replaced it before it ran.
	Superseded
)

type deferred struct {
	purpose  Purpose
	phase    Phase
	listener bus.ListenerID
}

// Effects drives fetches from selection changes.
type Effects struct {
	bus      *bus.Bus
	state    *state.Store
	dispatch *dispatch.Dispatcher
	tracker  *conn.Tracker
	log      *zerolog.Logger
	waiting  map[Purpose]*deferred
}

// New builds the selection effects.
func New(b *bus.Bus, st *state.Store, d *dispatch.Dispatcher, tracker *conn.Tracker, logger *zerolog.Logger) *Effects {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Effects{
		bus:      b,
		state:    st,
		dispatch: d,
		tracker:  tracker,
		log:      logger,
		waiting:  make(map[Purpose]*deferred),
	}
}

// SelectGuild moves the cursor to guild and loads its channels. An empty id
// clears the selection.
func (e *Effects) SelectGuild(guild string) {
	if e.state.SelectGuild(guild) == 0 {
		return
	}
	e.supersede(PurposeMessages)
	if guild == "" {
		e.supersede(PurposeChannels)
		return
	}
	e.log.Debug().Str("guild", guild).Msg("guild selected")
	e.schedule(PurposeChannels, e.fetchChannels)
}

// SelectChannel moves the channel cursor within the selected guild and loads
// its messages. It does nothing while no guild is selected.
func (e *Effects) SelectChannel(channel string) {
	if e.state.SelectChannel(channel) == 0 {
		return
	}
	if channel == "" {
		e.supersede(PurposeMessages)
		return
	}
	e.log.Debug().Str("channel", channel).Msg("channel selected")
	e.schedule(PurposeMessages, e.fetchMessages)
}

// Refresh re-issues the fetches for the current selection.
func (e *Effects) Refresh() {
	sel := e.state.Selection()
	if sel.HasGuild() {
		e.schedule(PurposeChannels, e.fetchChannels)
	}
	if sel.HasChannel() {
		e.schedule(PurposeMessages, e.fetchMessages)
	}
}

// Cancel supersedes every waiting fetch.
func (e *Effects) Cancel() {
	for p := range e.waiting {
		e.supersede(p)
	}
}

// Waiting reports whether a fetch for p is deferred to the next open edge.
func (e *Effects) Waiting(p Purpose) bool {
	d, ok := e.waiting[p]
	return ok && d.phase == Waiting
}

// fetchChannels reads the live cursor, never one captured at selection time.
func (e *Effects) fetchChannels() error {
	sel := e.state.Selection()
	if !sel.HasGuild() {
		return nil
	}
	return e.dispatch.GetChannels(sel.Guild)
}

func (e *Effects) fetchMessages() error {
	sel := e.state.Selection()
	if !sel.HasChannel() {
		return nil
	}
	return e.dispatch.GetMessages(sel.Guild, sel.Channel)
}

func (e *Effects) schedule(p Purpose, fetch func() error) {
	e.supersede(p)

	if e.tracker.IsOpen() {
		e.run(p, fetch)
		return
	}

	d := &deferred{purpose: p, phase: Waiting}
	d.listener = e.bus.On(proto.EventOpen, func(json.RawMessage) {
		e.bus.RemoveCurrent()
		if d.phase != Waiting {
			return
		}
		d.phase = Fired
		if e.waiting[p] == d {
			delete(e.waiting, p)
		}
		e.run(p, fetch)
	})
	e.waiting[p] = d
	e.log.Debug().Str("purpose", string(p)).Msg("fetch deferred until open")
}

func (e *Effects) supersede(p Purpose) {
	d, ok := e.waiting[p]
	if !ok {
		return
	}
	delete(e.waiting, p)
	if d.phase == Waiting {
		d.phase = Superseded
		e.bus.Off(d.listener)
	}
}

func (e *Effects) run(p Purpose, fetch func() error) {
	if err := fetch(); err != nil {
		e.log.Warn().Err(err).Str("purpose", string(p)).Msg("selection fetch failed")
	}
}
