package reconcile

import (
	"encoding/json"

	"github.com/vovakirdan/harmony-sync/internal/proto"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

// GetGuilds replaces the guild mapping. An empty mapping also clears the
// selection, messages and channels.
func (h *Handlers) GetGuilds(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	list, ok := p.object("guilds")
	if !ok {
		h.surface(p)
		return false
	}

	guilds := make(map[string]state.Guild, len(list))
	for id := range list {
		entry, ok := list.object(id)
		if !ok || id == "" {
			return false
		}
		var g state.Guild
		if v, ok := entry.str("guildname"); ok {
			g.Name = v
		} else if v, ok := entry.str("name"); ok {
			g.Name = v
		}
		g.Picture, _ = entry.str("picture")
		g.Owner, _ = entry.str("owner")
		guilds[id] = g
	}

	h.State.ReplaceGuilds(guilds)
	return true
}

// LeaveGuild acks a leave request by refreshing the guild list.
func (h *Handlers) LeaveGuild(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	if h.surface(p) {
		return true
	}
	h.request(proto.RequestGetGuilds, h.Dispatch.GetGuilds())
	return true
}

// JoinGuild acks a join: refresh the guild list and close the guild dialog.
func (h *Handlers) JoinGuild(raw json.RawMessage) bool {
	return h.guildAdded(raw)
}

// CreateGuild acks a create: refresh the guild list and close the guild dialog.
func (h *Handlers) CreateGuild(raw json.RawMessage) bool {
	return h.guildAdded(raw)
}

func (h *Handlers) guildAdded(raw json.RawMessage) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	if h.surface(p) {
		return true
	}
	h.request(proto.RequestGetGuilds, h.Dispatch.GetGuilds())
	h.State.SetGuildDialog(false)
	return true
}

// UpdateGuildPicture patches a guild's picture after a successful ack.
func (h *Handlers) UpdateGuildPicture(raw json.RawMessage) bool {
	return h.guildUpdated(raw, "picture", NoticeGuildPicture, h.State.SetGuildPicture)
}

// UpdateGuildName renames a guild after a successful ack.
func (h *Handlers) UpdateGuildName(raw json.RawMessage) bool {
	return h.guildUpdated(raw, "name", NoticeGuildName, h.State.SetGuildName)
}

func (h *Handlers) guildUpdated(raw json.RawMessage, field, notice string, apply func(id, value string) state.Change) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}
	success, _ := p.boolean("success")
	guild, okGuild := p.nonEmpty("guild")
	value, okValue := p.nonEmpty(field)
	if !success || !okGuild || !okValue {
		if msg, ok := p.serverError(); ok {
			h.Notify.Error(msg)
		} else {
			h.Notify.Error(NoticeSaveGuildError)
		}
		return true
	}

	apply(guild, value)
	h.Notify.Success(notice)
	h.State.SetGuildSettingsDialog(false)
	return true
}

// surface shows a server-declared error carried by p and reports whether there was one.
func (h *Handlers) surface(p payload) bool {
	msg, ok := p.serverError()
	if !ok {
		return false
	}
	h.Notify.Error(msg)
	return true
}
