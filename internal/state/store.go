// Package state holds the in-memory application state the reconciliation
// handlers keep consistent with the server. Every mutation goes through one
// apply method per entity kind; subscribers learn what changed after the lock
// is released.
package state

import (
	"maps"
	"slices"
	"sync"
)

// Listener is told which parts of the store changed.
type Listener func(Change)

// Store is the shared mutable state. Mutations come from the event loop;
// Snapshot and the read accessors are safe from any goroutine.
type Store struct {
	mu        sync.RWMutex
	connected bool
	guilds    map[string]Guild
	channels  map[string]string
	messages  []Message
	invites   map[string]int
	users     map[string]User
	self      Self
	selection Selection

	guildDialog         bool
	guildSettingsDialog bool

	lmu       sync.Mutex
	listeners []Listener
}

// New returns an empty store.
func New() *Store {
	return &Store{
		guilds:   make(map[string]Guild),
		channels: make(map[string]string),
		invites:  make(map[string]int),
		users:    make(map[string]User),
	}
}

// Subscribe registers l to be called after every patch.
func (s *Store) Subscribe(l Listener) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, l)
	s.lmu.Unlock()
}

// apply runs fn under the write lock and notifies listeners with its result.
func (s *Store) apply(fn func() Change) Change {
	s.mu.Lock()
	ch := fn()
	s.mu.Unlock()

	if ch == 0 {
		return 0
	}
	s.lmu.Lock()
	ls := slices.Clone(s.listeners)
	s.lmu.Unlock()
	for _, l := range ls {
		l(ch)
	}
	return ch
}

// ==== reads ====

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Connected:               s.connected,
		Guilds:                  maps.Clone(s.guilds),
		Channels:                maps.Clone(s.channels),
		Messages:                slices.Clone(s.messages),
		Invites:                 maps.Clone(s.invites),
		Users:                   maps.Clone(s.users),
		Self:                    s.self,
		Selection:               s.selection,
		GuildDialogOpen:         s.guildDialog,
		GuildSettingsDialogOpen: s.guildSettingsDialog,
	}
}

// Selection returns the live selection cursor.
func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Channels returns a copy of the channel mapping of the selected guild.
func (s *Store) Channels() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.channels)
}

// Messages returns a copy of the message sequence, oldest first.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Guild looks up a single guild.
func (s *Store) Guild(id string) (Guild, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guilds[id]
	return g, ok
}

// Connected reports the last connection flag applied.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// GuildDialogOpen reports whether the join/create guild dialog is open.
func (s *Store) GuildDialogOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guildDialog
}

// ==== connection ====

// SetConnected mirrors the connection state.
func (s *Store) SetConnected(v bool) Change {
	return s.apply(func() Change {
		if s.connected == v {
			return 0
		}
		s.connected = v
		return ChangeConnection
	})
}

// ==== guilds ====

// ReplaceGuilds swaps the guild mapping wholesale. An empty mapping, or one that
// no longer holds the selected guild, also clears the selection, the message
// sequence and the channel mapping in the same patch.
func (s *Store) ReplaceGuilds(guilds map[string]Guild) Change {
	return s.apply(func() Change {
		next := make(map[string]Guild, len(guilds))
		for id, g := range guilds {
			g.ID = id
			next[id] = g
		}
		s.guilds = next
		if _, ok := next[s.selection.Guild]; ok || (len(next) > 0 && s.selection.Guild == "") {
			return ChangeGuilds
		}
		s.selection = Selection{}
		s.messages = nil
		s.channels = make(map[string]string)
		return ChangeGuilds | ChangeSelection | ChangeMessages | ChangeChannels
	})
}

// SetGuildName renames a known guild in place.
func (s *Store) SetGuildName(id, name string) Change {
	return s.patchGuild(id, func(g *Guild) { g.Name = name })
}

// SetGuildPicture replaces a known guild's picture in place.
func (s *Store) SetGuildPicture(id, picture string) Change {
	return s.patchGuild(id, func(g *Guild) { g.Picture = picture })
}

func (s *Store) patchGuild(id string, fn func(*Guild)) Change {
	return s.apply(func() Change {
		g, ok := s.guilds[id]
		if !ok {
			return 0
		}
		fn(&g)
		s.guilds[id] = g
		return ChangeGuilds
	})
}

// ==== channels ====

// ReplaceChannels swaps the channel mapping wholesale; nil clears it.
func (s *Store) ReplaceChannels(channels map[string]string) Change {
	return s.apply(func() Change {
		s.channels = maps.Clone(channels)
		if s.channels == nil {
			s.channels = make(map[string]string)
		}
		return ChangeChannels
	})
}

// AddChannel inserts a single channel.
func (s *Store) AddChannel(id, name string) Change {
	return s.apply(func() Change {
		s.channels[id] = name
		return ChangeChannels
	})
}

// RemoveChannel deletes a single channel. Removing the selected channel also
// clears the channel cursor and the message sequence.
func (s *Store) RemoveChannel(id string) Change {
	return s.apply(func() Change {
		if _, ok := s.channels[id]; !ok {
			return 0
		}
		delete(s.channels, id)
		if s.selection.Channel != id {
			return ChangeChannels
		}
		s.selection.Channel = ""
		s.messages = nil
		return ChangeChannels | ChangeSelection | ChangeMessages
	})
}

// ==== messages ====

// ReplaceMessages swaps the message sequence. msgs must already be oldest first.
func (s *Store) ReplaceMessages(msgs []Message) Change {
	return s.apply(func() Change {
		s.messages = slices.Clone(msgs)
		return ChangeMessages
	})
}

// AppendMessage adds a message at the end of the sequence.
func (s *Store) AppendMessage(m Message) Change {
	return s.apply(func() Change {
		s.messages = append(s.messages, m)
		return ChangeMessages
	})
}

// ==== invites ====

// ReplaceInvites swaps the invite mapping wholesale.
func (s *Store) ReplaceInvites(invites map[string]int) Change {
	return s.apply(func() Change {
		s.invites = maps.Clone(invites)
		if s.invites == nil {
			s.invites = make(map[string]int)
		}
		return ChangeInvites
	})
}

// AddInvite inserts a fresh invite with zero uses.
func (s *Store) AddInvite(code string) Change {
	return s.apply(func() Change {
		s.invites[code] = 0
		return ChangeInvites
	})
}

// RemoveInvite deletes an invite code.
func (s *Store) RemoveInvite(code string) Change {
	return s.apply(func() Change {
		if _, ok := s.invites[code]; !ok {
			return 0
		}
		delete(s.invites, code)
		return ChangeInvites
	})
}

// ==== users ====

// PutUser replaces the cached profile of a user.
func (s *Store) PutUser(u User) Change {
	return s.apply(func() Change {
		s.users[u.UserID] = u
		return ChangeUsers
	})
}

// SetAvatar patches the avatar of a cached user, creating the entry if needed.
func (s *Store) SetAvatar(userID, avatar string) Change {
	return s.apply(func() Change {
		u := s.users[userID]
		u.UserID = userID
		u.Avatar = avatar
		s.users[userID] = u
		return ChangeUsers
	})
}

// SetUsername patches the username of a cached user, creating the entry if needed.
func (s *Store) SetUsername(userID, username string) Change {
	return s.apply(func() Change {
		u := s.users[userID]
		u.UserID = userID
		u.Username = username
		s.users[userID] = u
		return ChangeUsers
	})
}

// SetSelf replaces the signed-in user's profile.
func (s *Store) SetSelf(self Self) Change {
	return s.apply(func() Change {
		s.self = self
		return ChangeSelf
	})
}

// ==== selection ====

// SelectGuild moves the cursor to a guild. Switching guilds drops the channel
// cursor, the message sequence and the previous guild's channel mapping.
func (s *Store) SelectGuild(id string) Change {
	return s.apply(func() Change {
		if s.selection.Guild == id {
			return 0
		}
		s.selection = Selection{Guild: id}
		s.messages = nil
		s.channels = make(map[string]string)
		return ChangeSelection | ChangeMessages | ChangeChannels
	})
}

// SelectChannel moves the channel cursor within the selected guild and drops
// the previous channel's messages.
func (s *Store) SelectChannel(id string) Change {
	return s.apply(func() Change {
		if s.selection.Guild == "" || s.selection.Channel == id {
			return 0
		}
		s.selection.Channel = id
		s.messages = nil
		return ChangeSelection | ChangeMessages
	})
}

// ==== dialogs ====

// SetGuildDialog opens or closes the join/create guild dialog.
func (s *Store) SetGuildDialog(open bool) Change {
	return s.apply(func() Change {
		if s.guildDialog == open {
			return 0
		}
		s.guildDialog = open
		return ChangeDialogs
	})
}

// SetGuildSettingsDialog opens or closes the guild settings dialog.
func (s *Store) SetGuildSettingsDialog(open bool) Change {
	return s.apply(func() Change {
		if s.guildSettingsDialog == open {
			return 0
		}
		s.guildSettingsDialog = open
		return ChangeDialogs
	})
}
