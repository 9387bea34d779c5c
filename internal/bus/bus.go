// Package bus is a named-channel publish/subscribe registry layered over the
// socket connection. A Bus is owned by a single goroutine (the event loop) and
// is not safe for concurrent use.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler receives the raw payload of an inbound event.
type Handler func(payload json.RawMessage)

// ListenerID identifies a single registration.
type ListenerID string

type listener struct {
	id      ListenerID
	channel string
	fn      Handler
	removed bool
}

// Bus dispatches payloads to handlers registered per channel.
type Bus struct {
	log       *zerolog.Logger
	listeners map[string][]*listener
	// current is the listener executing right now; nested emits save and restore it.
	current *listener
}

// New creates an empty bus.
func New(logger *zerolog.Logger) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bus{
		log:       logger,
		listeners: make(map[string][]*listener),
	}
}

// On registers fn for channel. Handlers for the same channel run in registration order.
func (b *Bus) On(channel string, fn Handler) ListenerID {
	l := &listener{
		id:      ListenerID(uuid.NewString()),
		channel: channel,
		fn:      fn,
	}
	b.listeners[channel] = append(b.listeners[channel], l)
	b.log.Debug().Str("channel", channel).Str("listener_id", string(l.id)).Msg("listener added")
	return l.id
}

// Off removes a single registration. Returns true if it was registered.
func (b *Bus) Off(id ListenerID) bool {
	for channel, ls := range b.listeners {
		for i, l := range ls {
			if l.id == id {
				b.remove(channel, i)
				return true
			}
		}
	}
	return false
}

// RemoveAll drops every handler registered for channel.
func (b *Bus) RemoveAll(channel string) {
	for _, l := range b.listeners[channel] {
		l.removed = true
	}
	delete(b.listeners, channel)
}

// RemoveCurrent deregisters the handler that is executing right now.
// Outside of a dispatch it does nothing and returns false.
func (b *Bus) RemoveCurrent() bool {
	if b.current == nil || b.current.removed {
		return false
	}
	return b.Off(b.current.id)
}

// Count returns the number of handlers registered for channel.
func (b *Bus) Count(channel string) int {
	return len(b.listeners[channel])
}

// Emit delivers payload to every handler of channel and returns how many ran
// without panicking. A panicking handler is logged and does not stop delivery
// to its siblings. Handlers added during Emit see only later events.
func (b *Bus) Emit(channel string, payload json.RawMessage) int {
	ls := b.listeners[channel]
	if len(ls) == 0 {
		return 0
	}
	snapshot := make([]*listener, len(ls))
	copy(snapshot, ls)

	prev := b.current
	defer func() { b.current = prev }()

	delivered := 0
	for _, l := range snapshot {
		if l.removed {
			continue
		}
		b.current = l
		if err := invoke(l.fn, payload); err != nil {
			b.log.Error().Err(err).Str("channel", channel).Str("listener_id", string(l.id)).Msg("handler failed")
			continue
		}
		delivered++
	}
	return delivered
}

func (b *Bus) remove(channel string, i int) {
	ls := b.listeners[channel]
	ls[i].removed = true
	next := make([]*listener, 0, len(ls)-1)
	next = append(next, ls[:i]...)
	next = append(next, ls[i+1:]...)
	if len(next) == 0 {
		delete(b.listeners, channel)
		return
	}
	b.listeners[channel] = next
}

func invoke(fn Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	fn(payload)
	return nil
}
