// Package core runs the single event loop. Inbound socket events and UI
// commands are serialised onto one goroutine, so the bus, the handlers and the
// selection effects never run concurrently with each other.
package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/bus"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/proto"
	"github.com/vovakirdan/harmony-sync/internal/session"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

const queueSize = 64

// Loop owns the bus and the session.
type Loop struct {
	bus      *bus.Bus
	session  *session.Session
	dispatch *dispatch.Dispatcher
	state    *state.Store
	log      *zerolog.Logger

	queue chan item
	done  chan struct{}
}

// item is either an inbound event or a command. Both share one queue so the
// loop sees them in arrival order.
type item struct {
	event   *proto.Event
	command *Command
}

// NewLoop builds an event loop.
func NewLoop(b *bus.Bus, s *session.Session, d *dispatch.Dispatcher, st *state.Store, logger *zerolog.Logger) *Loop {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Loop{
		bus:      b,
		session:  s,
		dispatch: d,
		state:    st,
		log:      logger,
		queue:    make(chan item, queueSize),
		done:     make(chan struct{}),
	}
}

// Deliver queues an inbound event. It blocks while the queue is full; events
// are never dropped.
func (l *Loop) Deliver(ctx context.Context, ev proto.Event) error {
	return l.enqueue(ctx, item{event: &ev})
}

// Post queues a command without waiting for it to run.
func (l *Loop) Post(ctx context.Context, cmd Command) error {
	return l.enqueue(ctx, item{command: &cmd})
}

func (l *Loop) enqueue(ctx context.Context, it item) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.queue <- it:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do queues a command and waits for its outcome.
func (l *Loop) Do(ctx context.Context, cmd Command) error {
	cmd.Done = make(chan error, 1)
	if err := l.Post(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.Done:
		return err
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events and commands until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case it := <-l.queue:
			if it.event != nil {
				l.handleEvent(*it.event)
				continue
			}
			cmd := *it.command
			err := l.handleCommand(cmd)
			if err != nil {
				l.log.Warn().Err(err).Str("command", cmd.Kind.String()).Msg("command failed")
			}
			if cmd.Done != nil {
				cmd.Done <- err
			}
		case <-ctx.Done():
			l.session.Deactivate()
			return
		}
	}
}

func (l *Loop) handleEvent(ev proto.Event) {
	n := l.bus.Emit(ev.Type, ev.Data)
	l.log.Debug().Str("event", ev.Type).Int("handlers", n).Msg("event dispatched")
}

func (l *Loop) handleCommand(cmd Command) error {
	d := l.dispatch
	switch cmd.Kind {
	case CommandActivate:
		return l.session.Activate()
	case CommandDeactivate:
		l.session.Deactivate()
		return nil
	case CommandSelectGuild:
		return l.session.SelectGuild(cmd.Guild)
	case CommandSelectChannel:
		return l.session.SelectChannel(cmd.Channel)
	case CommandRefresh:
		return l.session.Refresh()
	case CommandSendMessage:
		sel := l.state.Selection()
		if !sel.HasChannel() {
			return ErrNoChannel
		}
		return d.SendMessage(sel.Guild, sel.Channel, cmd.Text)
	case CommandGetUser:
		return d.GetUser(cmd.User)
	case CommandJoinGuild:
		return l.withDialog(l.state.SetGuildDialog, func() error { return d.JoinGuild(cmd.Invite) })
	case CommandCreateGuild:
		return l.withDialog(l.state.SetGuildDialog, func() error { return d.CreateGuild(cmd.Name, cmd.Picture) })
	case CommandLeaveGuild:
		return d.LeaveGuild(cmd.Guild)
	case CommandUpdateGuildName:
		return l.withDialog(l.state.SetGuildSettingsDialog, func() error { return d.UpdateGuildName(cmd.Guild, cmd.Name) })
	case CommandUpdateGuildPicture:
		return l.withDialog(l.state.SetGuildSettingsDialog, func() error { return d.UpdateGuildPicture(cmd.Guild, cmd.Picture) })
	case CommandAddChannel:
		return d.AddChannel(cmd.Guild, cmd.Name)
	case CommandDeleteChannel:
		return d.DeleteChannel(cmd.Guild, cmd.Channel)
	case CommandGetInvites:
		return d.GetInvites(cmd.Guild)
	case CommandCreateInvite:
		return d.CreateInvite(cmd.Guild)
	case CommandDeleteInvite:
		return d.DeleteInvite(cmd.Guild, cmd.Invite)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
	}
}

// withDialog opens a dialog for the duration of a request. The dialog stays
// open until the server acks; a request that never left closes it again.
func (l *Loop) withDialog(set func(bool) state.Change, send func() error) error {
	set(true)
	if err := send(); err != nil {
		set(false)
		return err
	}
	return nil
}
