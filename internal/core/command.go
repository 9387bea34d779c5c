package core

// CommandKind describes what the UI wants to do.
type CommandKind int

const (
	// CommandActivate binds the handler table for the active scope.
	CommandActivate CommandKind = iota
	// CommandDeactivate unbinds the handler table.
	CommandDeactivate
	// CommandSelectGuild moves the guild cursor.
	CommandSelectGuild
	// CommandSelectChannel moves the channel cursor.
	CommandSelectChannel
	// CommandRefresh re-fetches channels and messages for the current selection.
	CommandRefresh
	// CommandSendMessage posts a message to the selected channel.
	CommandSendMessage
	// CommandGetUser asks for a user's profile.
	CommandGetUser
	// CommandJoinGuild redeems an invite; the guild dialog stays open until the ack.
	CommandJoinGuild
	// CommandCreateGuild creates a guild; the guild dialog stays open until the ack.
	CommandCreateGuild
	CommandLeaveGuild
	// CommandUpdateGuildName renames a guild from the settings dialog.
	CommandUpdateGuildName
	// CommandUpdateGuildPicture sets a guild picture from the settings dialog.
	CommandUpdateGuildPicture
	CommandAddChannel
	CommandDeleteChannel
	CommandGetInvites
	CommandCreateInvite
	CommandDeleteInvite
)

var commandNames = map[CommandKind]string{
	CommandActivate:           "activate",
	CommandDeactivate:         "deactivate",
	CommandSelectGuild:        "select_guild",
	CommandSelectChannel:      "select_channel",
	CommandRefresh:            "refresh",
	CommandSendMessage:        "send_message",
	CommandGetUser:            "get_user",
	CommandJoinGuild:          "join_guild",
	CommandCreateGuild:        "create_guild",
	CommandLeaveGuild:         "leave_guild",
	CommandUpdateGuildName:    "update_guild_name",
	CommandUpdateGuildPicture: "update_guild_picture",
	CommandAddChannel:         "add_channel",
	CommandDeleteChannel:      "delete_channel",
	CommandGetInvites:         "get_invites",
	CommandCreateInvite:       "create_invite",
	CommandDeleteInvite:       "delete_invite",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command represents an action requested by the UI. Only the fields its kind
// needs are read. When Done is non-nil the loop reports the outcome on it.
type Command struct {
	Kind    CommandKind
	Guild   string
	Channel string
	User    string
	Text    string
	Name    string
	Picture string
	Invite  string
	Done    chan error
}
