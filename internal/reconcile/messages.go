package reconcile

import (
	"encoding/json"
	"slices"

	"github.com/vovakirdan/harmony-sync/internal/proto"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

// GetMessages replaces the message sequence. The server sends newest first;
// the store keeps oldest first. A null list empties the sequence, an absent
// one leaves it untouched. Replies for a stale selection are discarded.
func (h *Handlers) GetMessages(raw json.RawMessage) bool {
	tag, tagged := h.Dispatch.Resolve(proto.EventGetMessages)

	p, ok := decode(raw)
	if !ok {
		return false
	}
	if !p.has("messages") {
		h.surface(p)
		return false
	}

	if g, ok := p.nonEmpty("guild"); ok {
		tag.Guild, tagged = g, true
	}
	if c, ok := p.nonEmpty("channel"); ok {
		tag.Channel = c
	}
	current := h.State.Selection()
	if !tagged {
		// Nothing says which channel this answers. Ask again for the live one.
		if current.HasChannel() {
			h.Log.Debug().Str("guild", current.Guild).Str("channel", current.Channel).Msg("uncorrelated messages reply, refetching")
			h.request(proto.RequestGetMessages, h.Dispatch.GetMessages(current.Guild, current.Channel))
		}
		return true
	}
	if !current.HasChannel() || tag.Guild != current.Guild ||
		(tag.Channel != "" && tag.Channel != current.Channel) {
		h.Log.Debug().Str("guild", tag.Guild).Str("channel", tag.Channel).Msg("stale messages reply discarded")
		return true
	}

	if p.isNull("messages") {
		h.State.ReplaceMessages(nil)
		return true
	}
	items, ok := p.array("messages")
	if !ok {
		return false
	}
	msgs := make([]state.Message, 0, len(items))
	for _, item := range items {
		m, ok := parseMessage(item)
		if !ok {
			h.Log.Debug().Msg("malformed history entry skipped")
			continue
		}
		msgs = append(msgs, m)
	}
	slices.Reverse(msgs)
	h.State.ReplaceMessages(msgs)
	return true
}

// Message appends a live message when it belongs to the selected channel.
func (h *Handlers) Message(raw json.RawMessage) bool {
	m, ok := parseMessage(raw)
	if !ok {
		return false
	}
	current := h.State.Selection()
	if !current.HasChannel() || m.Guild != current.Guild || (m.Channel != "" && m.Channel != current.Channel) {
		return true
	}
	h.State.AppendMessage(m)
	return true
}

func parseMessage(raw json.RawMessage) (state.Message, bool) {
	p, ok := decode(raw)
	if !ok {
		return state.Message{}, false
	}
	userID, okUser := p.str("userid")
	createdAt, okCreated := p.num("createdat")
	guild, okGuild := p.str("guild")
	text, okText := p.str("message")
	if !okUser || !okCreated || !okGuild || !okText {
		return state.Message{}, false
	}
	channel, _ := p.str("channel")
	return state.Message{
		UserID:    userID,
		CreatedAt: int64(createdAt),
		Guild:     guild,
		Channel:   channel,
		Message:   text,
	}, true
}
