// Package reconcile holds one handler per inbound event kind. Each handler
// treats its payload as untrusted, validates its shape, and applies a patch to
// the state store through the store's entry points. Malformed payloads are
// dropped silently; server-declared errors are surfaced through the notifier.
package reconcile

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/bus"
	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/notify"
	"github.com/vovakirdan/harmony-sync/internal/proto"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

// User-visible notices.
const (
	NoticeLostConnection = "You have lost connection to the server"
	NoticeReconnected    = "You have reconnected to the server"
	NoticeSessionExpired = "Your session expired, please login again"
	NoticeGuildPicture   = "Successfully set guild picture"
	NoticeGuildName      = "Successfully set guild name"
	NoticeSaveGuildError = "Error saving guild"
)

// Deps are the collaborators the handlers patch and call into.
type Deps struct {
	State    *state.Store
	Dispatch *dispatch.Dispatcher
	Tracker  *conn.Tracker
	Tokens   dispatch.TokenSource
	Notify   notify.Notifier
	Navigate notify.Navigator
	Log      *zerolog.Logger
}

// Handlers reconciles inbound events with the state store.
type Handlers struct {
	Deps
}

// Binding pairs an event kind with its handler.
type Binding struct {
	Kind    string
	Handler bus.Handler
}

// New builds the handler set.
func New(deps Deps) *Handlers {
	if deps.Log == nil {
		nop := zerolog.Nop()
		deps.Log = &nop
	}
	return &Handlers{Deps: deps}
}

// Table returns the handlers that live as long as the active UI scope.
func (h *Handlers) Table() []Binding {
	return []Binding{
		{proto.EventGetGuilds, h.guard(proto.EventGetGuilds, h.GetGuilds)},
		{proto.EventGetMessages, h.guard(proto.EventGetMessages, h.GetMessages)},
		{proto.EventGetChannels, h.guard(proto.EventGetChannels, h.GetChannels)},
		{proto.EventMessage, h.guard(proto.EventMessage, h.Message)},
		{proto.EventLeaveGuild, h.guard(proto.EventLeaveGuild, h.LeaveGuild)},
		{proto.EventJoinGuild, h.guard(proto.EventJoinGuild, h.JoinGuild)},
		{proto.EventCreateGuild, h.guard(proto.EventCreateGuild, h.CreateGuild)},
		{proto.EventUpdateGuildPicture, h.guard(proto.EventUpdateGuildPicture, h.UpdateGuildPicture)},
		{proto.EventUpdateGuildName, h.guard(proto.EventUpdateGuildName, h.UpdateGuildName)},
		{proto.EventGetInvites, h.guard(proto.EventGetInvites, h.GetInvites)},
		{proto.EventAddChannel, h.guard(proto.EventAddChannel, h.AddChannel)},
		{proto.EventDeleteChannel, h.guard(proto.EventDeleteChannel, h.DeleteChannel)},
		{proto.EventCreateInvite, h.guard(proto.EventCreateInvite, h.CreateInvite)},
		{proto.EventDeleteInvite, h.guard(proto.EventDeleteInvite, h.DeleteInvite)},
		{proto.EventGetUser, h.guard(proto.EventGetUser, h.GetUser)},
		{proto.EventGetSelf, h.guard(proto.EventGetSelf, h.GetSelf)},
		{proto.EventAvatarUpdate, h.guard(proto.EventAvatarUpdate, h.AvatarUpdate)},
		{proto.EventUsernameUpdate, h.guard(proto.EventUsernameUpdate, h.UsernameUpdate)},
		{proto.EventError, h.guard(proto.EventError, h.Error)},
		{proto.EventClose, h.guard(proto.EventClose, h.Close)},
		{proto.EventOpen, h.guard(proto.EventOpen, h.Open)},
	}
}

// Global returns the handlers bound for the whole session regardless of UI scope.
func (h *Handlers) Global() []Binding {
	return []Binding{
		{proto.EventDeauth, h.Deauth},
	}
}

// guard drops every event once the session has ended and logs rejected payloads.
func (h *Handlers) guard(kind string, fn func(json.RawMessage) bool) bus.Handler {
	return func(raw json.RawMessage) {
		if h.Dispatch.Ended() {
			h.Log.Debug().Str("event", kind).Msg("event after session end ignored")
			return
		}
		if !fn(raw) {
			h.Log.Debug().Str("event", kind).Msg("payload rejected")
		}
	}
}

// request issues a follow-up request; failures are logged, never raised.
func (h *Handlers) request(name string, err error) {
	if err != nil {
		h.Log.Warn().Err(err).Str("request", name).Msg("follow-up request failed")
	}
}

// Deauth ends the session: notice, redirect, and every later dispatch is a no-op.
func (h *Handlers) Deauth(json.RawMessage) {
	h.Dispatch.End()
	h.Notify.Warn(NoticeSessionExpired)
	h.Navigate.RedirectToLogin()
}

// Error surfaces a generic server error notice. An error answers whatever
// request failed, so it consumes the oldest outstanding fetch tag.
func (h *Handlers) Error(raw json.RawMessage) bool {
	if kind, tag, ok := h.Dispatch.ResolveFailedFetch(); ok {
		h.Log.Debug().Str("event", kind).Str("guild", tag.Guild).Str("channel", tag.Channel).Msg("fetch answered by error")
	}
	p, ok := decode(raw)
	if !ok {
		return false
	}
	msg, ok := p.nonEmpty("message")
	if !ok {
		return false
	}
	h.Notify.Error(msg)
	return true
}

// Close records a disconnect. Only the first close since the last open notifies.
func (h *Handlers) Close(json.RawMessage) bool {
	h.Dispatch.ResetPending()
	if !h.Tracker.MarkClosed() {
		return true
	}
	h.State.SetConnected(false)
	h.Notify.Error(NoticeLostConnection)
	return true
}

// Open rehydrates state from the server. Nothing but the selection cursor is
// assumed to have survived a reconnect.
func (h *Handlers) Open(json.RawMessage) bool {
	if h.Tracker.MarkOpen() {
		h.Notify.Success(NoticeReconnected)
	}
	if h.Tokens != nil && h.Tokens.Token() != "" {
		h.request(proto.RequestGetGuilds, h.Dispatch.GetGuilds())
		h.request(proto.RequestGetSelf, h.Dispatch.GetSelf())
	}
	h.State.SetConnected(true)
	return true
}
