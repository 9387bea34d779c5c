package proto

import "encoding/json"

// Request is the envelope for messages sent to the server.
type Request struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Event is the envelope for messages coming from the server.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound event kinds. Replies are addressed by kind, not by request id.
const (
	EventGetGuilds          = "getguilds"
	EventGetMessages        = "getmessages"
	EventGetChannels        = "getchannels"
	EventMessage            = "message"
	EventLeaveGuild         = "leaveguild"
	EventJoinGuild          = "joinguild"
	EventCreateGuild        = "createguild"
	EventUpdateGuildPicture = "updateguildpicture"
	EventUpdateGuildName    = "updateguildname"
	EventGetInvites         = "getinvites"
	EventAddChannel         = "addchannel"
	EventDeleteChannel      = "deletechannel"
	EventCreateInvite       = "createinvite"
	EventDeleteInvite       = "deleteinvite"
	EventGetUser            = "getuser"
	EventGetSelf            = "getself"
	EventAvatarUpdate       = "avatarupdate"
	EventUsernameUpdate     = "usernameupdate"
	EventDeauth             = "deauth"
	EventError              = "error"

	// Lifecycle kinds are synthesised by the transport, never sent by the server.
	EventOpen  = "open"
	EventClose = "close"
)

// Outbound request types.
const (
	RequestGetGuilds          = "getguilds"
	RequestGetChannels        = "getchannels"
	RequestGetMessages        = "getmessages"
	RequestGetSelf            = "getself"
	RequestGetUser            = "getuser"
	RequestJoinGuild          = "joinguild"
	RequestCreateGuild        = "createguild"
	RequestLeaveGuild         = "leaveguild"
	RequestUpdateGuildName    = "updateguildname"
	RequestUpdateGuildPicture = "updateguildpicture"
	RequestAddChannel         = "addchannel"
	RequestDeleteChannel      = "deletechannel"
	RequestGetInvites         = "getinvites"
	RequestCreateInvite       = "createinvite"
	RequestDeleteInvite       = "deleteinvite"
	RequestMessage            = "message"
)

// TokenData authenticates requests that carry no other fields.
type TokenData struct {
	Token string `json:"token"`
}

// GuildData addresses a single guild.
type GuildData struct {
	Token string `json:"token"`
	Guild string `json:"guild"`
}

// ChannelData addresses a channel inside a guild.
type ChannelData struct {
	Token   string `json:"token"`
	Guild   string `json:"guild"`
	Channel string `json:"channel"`
}

// UserData asks for a single user's profile.
type UserData struct {
	Token  string `json:"token"`
	UserID string `json:"userid"`
}

// JoinGuildData redeems an invite code.
type JoinGuildData struct {
	Token  string `json:"token"`
	Invite string `json:"invite"`
}

// CreateGuildData creates a new guild owned by the caller.
type CreateGuildData struct {
	Token     string `json:"token"`
	GuildName string `json:"guildname"`
	Picture   string `json:"picture"`
}

// GuildNameData renames a guild.
type GuildNameData struct {
	Token string `json:"token"`
	Guild string `json:"guild"`
	Name  string `json:"name"`
}

// GuildPictureData sets a guild's picture.
type GuildPictureData struct {
	Token   string `json:"token"`
	Guild   string `json:"guild"`
	Picture string `json:"picture"`
}

// DeleteChannelData removes a channel by id.
type DeleteChannelData struct {
	Token     string `json:"token"`
	Guild     string `json:"guild"`
	ChannelID string `json:"channelid"`
}

// InviteData addresses a single invite code.
type InviteData struct {
	Token  string `json:"token"`
	Guild  string `json:"guild"`
	Invite string `json:"invite"`
}

// MessageData posts a chat message.
type MessageData struct {
	Token   string `json:"token"`
	Guild   string `json:"guild"`
	Channel string `json:"channel"`
	Message string `json:"message"`
}
