// Package session owns the active-scope lifecycle: binding the reconciliation
// handlers, the activation guard, and the terminal deauth state.
package session

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/bus"
	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/notify"
	"github.com/vovakirdan/harmony-sync/internal/proto"
	"github.com/vovakirdan/harmony-sync/internal/reconcile"
	"github.com/vovakirdan/harmony-sync/internal/selection"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

// ErrNoSession is returned by Activate when there is neither a usable link nor a token.
var ErrNoSession = errors.New("no usable session")

// ErrInactive is returned by selection calls while the handler table is unbound.
var ErrInactive = errors.New("session not active")

// Config wires a session.
type Config struct {
	Bus      *bus.Bus
	State    *state.Store
	Tracker  *conn.Tracker
	Dispatch *dispatch.Dispatcher
	Tokens   dispatch.TokenSource
	Notify   notify.Notifier
	Navigate notify.Navigator
	Logger   *zerolog.Logger
}

// Session ties the handler table, the selection effects and the binder together.
type Session struct {
	cfg      Config
	handlers *reconcile.Handlers
	effects  *selection.Effects
	binder   *Binder
}

// New builds a session and binds the session-wide handlers.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	handlers := reconcile.New(reconcile.Deps{
		State:    cfg.State,
		Dispatch: cfg.Dispatch,
		Tracker:  cfg.Tracker,
		Tokens:   cfg.Tokens,
		Notify:   cfg.Notify,
		Navigate: cfg.Navigate,
		Log:      cfg.Logger,
	})
	effects := selection.New(cfg.Bus, cfg.State, cfg.Dispatch, cfg.Tracker, cfg.Logger)

	s := &Session{
		cfg:      cfg,
		handlers: handlers,
		effects:  effects,
	}
	s.binder = NewBinder(cfg.Bus, handlers.Table(), handlers.Global(), effects.Cancel, cfg.Logger)
	s.binder.BindGlobal()
	return s
}

// Effects exposes the selection effects.
func (s *Session) Effects() *selection.Effects { return s.effects }

// Active reports whether the handler table is bound.
func (s *Session) Active() bool { return s.binder.Bound() }

// Ended reports whether the server invalidated the session.
func (s *Session) Ended() bool { return s.cfg.Dispatch.Ended() }

// Activate binds the handler table for the owning scope. Without a live or
// pending link, or without a stored token, it redirects immediately and
// returns ErrNoSession. Re-activating an active session is a no-op.
func (s *Session) Activate() error {
	if s.Ended() {
		return dispatch.ErrSessionEnded
	}
	if !s.cfg.Tracker.Usable() || s.cfg.Tokens == nil || s.cfg.Tokens.Token() == "" {
		s.cfg.Logger.Info().Str("status", s.cfg.Tracker.Status().String()).Msg("no usable session at activation")
		s.cfg.Navigate.RedirectToLogin()
		return ErrNoSession
	}
	if !s.binder.Bind() {
		return nil
	}
	if s.cfg.Tracker.IsOpen() {
		s.cfg.State.SetConnected(true)
		if err := s.cfg.Dispatch.GetGuilds(); err != nil {
			s.cfg.Logger.Warn().Err(err).Str("request", proto.RequestGetGuilds).Msg("initial fetch failed")
		}
	}
	return nil
}

// Deactivate unbinds the whole handler table and cancels deferred fetches.
func (s *Session) Deactivate() {
	s.binder.Unbind()
}

// SelectGuild forwards to the selection effects. Selections need a bound
// table so a deferred fetch always runs after the open-edge rehydrate.
func (s *Session) SelectGuild(guild string) error {
	if err := s.live(); err != nil {
		return err
	}
	s.effects.SelectGuild(guild)
	return nil
}

// SelectChannel forwards to the selection effects under the same rules as SelectGuild.
func (s *Session) SelectChannel(channel string) error {
	if err := s.live(); err != nil {
		return err
	}
	s.effects.SelectChannel(channel)
	return nil
}

// Refresh re-fetches channels and messages for the current selection.
func (s *Session) Refresh() error {
	if err := s.live(); err != nil {
		return err
	}
	s.effects.Refresh()
	return nil
}

func (s *Session) live() error {
	if s.Ended() {
		return dispatch.ErrSessionEnded
	}
	if !s.Active() {
		return ErrInactive
	}
	return nil
}
