package reconcile

import (
	"encoding/json"

	"github.com/vovakirdan/harmony-sync/internal/proto"
)

// GetChannels replaces the channel mapping of the selected guild. Replies for a
// guild that is no longer selected are discarded.
func (h *Handlers) GetChannels(raw json.RawMessage) bool {
	tag, tagged := h.Dispatch.Resolve(proto.EventGetChannels)

	p, ok := decode(raw)
	if !ok {
		return false
	}
	if !p.has("channels") && h.surface(p) {
		return true
	}

	guild := tag.Guild
	if g, ok := p.nonEmpty("guild"); ok {
		guild = g
	}
	current := h.State.Selection()
	if !tagged && guild == "" {
		// Nothing says which guild this answers. Ask again for the live one.
		if current.HasGuild() {
			h.Log.Debug().Str("guild", current.Guild).Msg("uncorrelated channels reply, refetching")
			h.request(proto.RequestGetChannels, h.Dispatch.GetChannels(current.Guild))
		}
		return true
	}
	if !current.HasGuild() || guild != current.Guild {
		h.Log.Debug().Str("guild", guild).Str("selected", current.Guild).Msg("stale channels reply discarded")
		return true
	}

	if !p.has("channels") || p.isNull("channels") {
		h.State.ReplaceChannels(nil)
		return true
	}
	obj, ok := p.object("channels")
	if !ok {
		return false
	}
	channels, ok := obj.stringMap()
	if !ok {
		return false
	}
	h.State.ReplaceChannels(channels)
	return true
}

// AddChannel inserts a pushed channel when it belongs to the selected guild.
func (h *Handlers) AddChannel(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	name, okName := p.str("channelname")
	id, okID := p.nonEmpty("channelid")
	guild, okGuild := p.nonEmpty("guild")
	if !okName || !okID || !okGuild {
		return false
	}
	if guild != h.State.Selection().Guild {
		return true
	}
	h.State.AddChannel(id, name)
	return true
}

// DeleteChannel removes a pushed channel deletion from the selected guild.
func (h *Handlers) DeleteChannel(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	id, okID := p.nonEmpty("channelid")
	guild, okGuild := p.nonEmpty("guild")
	if !okID || !okGuild {
		return false
	}
	if guild != h.State.Selection().Guild {
		return true
	}
	h.State.RemoveChannel(id)
	return true
}
