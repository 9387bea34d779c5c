package reconcile

import "encoding/json"

// GetInvites replaces the invite mapping of the selected guild.
func (h *Handlers) GetInvites(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	obj, ok := p.object("invites")
	if !ok {
		h.surface(p)
		return false
	}
	if guild, ok := p.nonEmpty("guild"); ok && guild != h.State.Selection().Guild {
		return true
	}
	invites, ok := obj.counterMap()
	if !ok {
		return false
	}
	h.State.ReplaceInvites(invites)
	return true
}

// CreateInvite inserts a new invite with zero uses.
func (h *Handlers) CreateInvite(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	code, ok := p.nonEmpty("invite")
	if !ok {
		return false
	}
	h.State.AddInvite(code)
	return true
}

// DeleteInvite removes an invite.
func (h *Handlers) DeleteInvite(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	code, ok := p.nonEmpty("invite")
	if !ok {
		return false
	}
	h.State.RemoveInvite(code)
	return true
}
