package state

// Guild is a chat community the current user is a member of.
type Guild struct {
	ID      string `json:"id"`
	Name    string `json:"guildname"`
	Picture string `json:"picture"`
	Owner   string `json:"owner,omitempty"`
}

// Message is a single chat line. CreatedAt is epoch millis.
type Message struct {
	UserID    string `json:"userid"`
	CreatedAt int64  `json:"createdat"`
	Guild     string `json:"guild"`
	Channel   string `json:"channel,omitempty"`
	Message   string `json:"message"`
}

// User is a cached profile of another member.
type User struct {
	UserID   string `json:"userid"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Self is the profile of the signed-in user.
type Self struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Selection is the cursor into guilds and channels. Empty strings mean unset.
type Selection struct {
	Guild   string `json:"guild,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// HasGuild reports whether a guild is selected.
func (s Selection) HasGuild() bool { return s.Guild != "" }

// HasChannel reports whether both a guild and a channel are selected.
func (s Selection) HasChannel() bool { return s.Guild != "" && s.Channel != "" }

// Snapshot is a deep copy of the store, safe to hand to other goroutines.
type Snapshot struct {
	Connected               bool              `json:"connected"`
	Guilds                  map[string]Guild  `json:"guilds"`
	Channels                map[string]string `json:"channels"`
	Messages                []Message         `json:"messages"`
	Invites                 map[string]int    `json:"invites"`
	Users                   map[string]User   `json:"users"`
	Self                    Self              `json:"self"`
	Selection               Selection         `json:"selection"`
	GuildDialogOpen         bool              `json:"guild_dialog_open"`
	GuildSettingsDialogOpen bool              `json:"guild_settings_dialog_open"`
}

// Change is a bit set describing which parts of the store a patch touched.
type Change uint16

const (
	ChangeConnection Change = 1 << iota
	ChangeGuilds
	ChangeChannels
	ChangeMessages
	ChangeInvites
	ChangeUsers
	ChangeSelf
	ChangeSelection
	ChangeDialogs
)

// Has reports whether c includes every bit of other.
func (c Change) Has(other Change) bool { return c&other == other }
