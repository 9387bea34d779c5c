package reconcile

import (
	"encoding/json"

	"github.com/vovakirdan/harmony-sync/internal/state"
)

// GetUser caches a user snapshot.
func (h *Handlers) GetUser(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	userID, okID := p.nonEmpty("userid")
	username, okName := p.str("username")
	avatar, okAvatar := p.str("avatar")
	if !okID || !okName || !okAvatar {
		h.surface(p)
		return false
	}
	h.State.PutUser(state.User{UserID: userID, Username: username, Avatar: avatar})
	return true
}

// GetSelf replaces the signed-in user's profile.
func (h *Handlers) GetSelf(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	username, okName := p.str("username")
	avatar, okAvatar := p.str("avatar")
	if !okName || !okAvatar {
		h.surface(p)
		return false
	}
	h.State.SetSelf(state.Self{Username: username, Avatar: avatar})
	return true
}

// AvatarUpdate patches a pushed avatar change.
func (h *Handlers) AvatarUpdate(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	userID, okID := p.nonEmpty("userid")
	avatar, okAvatar := p.str("avatar")
	if !okID || !okAvatar {
		return false
	}
	h.State.SetAvatar(userID, avatar)
	return true
}

// UsernameUpdate patches a pushed username change.
func (h *Handlers) UsernameUpdate(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	userID, okID := p.nonEmpty("userid")
	username, okName := p.str("username")
	if !okID || !okName {
		return false
	}
	h.State.SetUsername(userID, username)
	return true
}
