package session

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/bus"
	"github.com/vovakirdan/harmony-sync/internal/reconcile"
)

// Binder attaches the whole handler table to the bus as one set and detaches
// it the same way. Binding twice is a no-op, so re-entrant activation never
// duplicates delivery.
type Binder struct {
	bus      *bus.Bus
	table    []reconcile.Binding
	global   []reconcile.Binding
	onUnbind func()
	log      *zerolog.Logger

	bound       bool
	globalBound bool
}

// NewBinder builds a binder for table. global handlers are bound once for the
// binder's lifetime and survive Unbind. onUnbind runs after every unbind.
func NewBinder(b *bus.Bus, table, global []reconcile.Binding, onUnbind func(), logger *zerolog.Logger) *Binder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Binder{
		bus:      b,
		table:    table,
		global:   global,
		onUnbind: onUnbind,
		log:      logger,
	}
}

// BindGlobal attaches the session-wide handlers once.
func (b *Binder) BindGlobal() {
	if b.globalBound {
		return
	}
	for _, binding := range b.global {
		b.bus.On(binding.Kind, binding.Handler)
	}
	b.globalBound = true
}

// Bind attaches the table. It returns false if it was already bound.
func (b *Binder) Bind() bool {
	if b.bound {
		b.log.Debug().Msg("handlers already bound")
		return false
	}
	for _, binding := range b.table {
		b.bus.On(binding.Kind, binding.Handler)
	}
	b.bound = true
	b.log.Debug().Int("handlers", len(b.table)).Msg("handlers bound")
	return true
}

// Unbind removes every listener on every channel of the table, including
// one-shot listeners other components registered there. It returns false if
// nothing was bound.
func (b *Binder) Unbind() bool {
	if !b.bound {
		return false
	}
	for _, binding := range b.table {
		b.bus.RemoveAll(binding.Kind)
	}
	b.bound = false
	if b.onUnbind != nil {
		b.onUnbind()
	}
	b.log.Debug().Msg("handlers unbound")
	return true
}

// Bound reports whether the table is attached.
func (b *Binder) Bound() bool { return b.bound }
