// Package dispatch is the thin outbound API. Every method serialises one
// request and returns without waiting: the server answers with an event of the
// matching kind, which the reconciliation handlers pick up.
package dispatch

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/proto"
)

// TokenSource yields the stored session token, or "" when there is none.
type TokenSource interface {
	Token() string
}

// Dispatcher sends typed requests over the shared connection.
type Dispatcher struct {
	transport conn.Transport
	tracker   *conn.Tracker
	tokens    TokenSource
	pending   *Pending
	log       *zerolog.Logger
	ended     bool
}

// New builds a dispatcher.
func New(transport conn.Transport, tracker *conn.Tracker, tokens TokenSource, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		transport: transport,
		tracker:   tracker,
		tokens:    tokens,
		pending:   NewPending(),
		log:       logger,
	}
}

// End turns every later request into a no-op returning ErrSessionEnded.
func (d *Dispatcher) End() { d.ended = true }

// Ended reports whether the session was invalidated.
func (d *Dispatcher) Ended() bool { return d.ended }

// Resolve pops the oldest tag recorded for replies of kind.
func (d *Dispatcher) Resolve(kind string) (Tag, bool) { return d.pending.Pop(kind) }

// ResolveFailedFetch drops the oldest outstanding channels or messages tag. A
// server error answers a request without its kind, and fetches are the only
// requests whose replies are correlated.
func (d *Dispatcher) ResolveFailedFetch() (string, Tag, bool) {
	return d.pending.PopOldest(proto.EventGetChannels, proto.EventGetMessages)
}

// Outstanding returns the number of unanswered requests whose replies arrive as kind.
func (d *Dispatcher) Outstanding(kind string) int { return d.pending.Len(kind) }

// ResetPending forgets outstanding tags; called on every close edge.
func (d *Dispatcher) ResetPending() { d.pending.Reset() }

func (d *Dispatcher) send(typ string, data any) error {
	if d.ended {
		d.log.Debug().Str("request", typ).Msg("dropping request after session end")
		return ErrSessionEnded
	}
	if !d.tracker.IsOpen() {
		return fmt.Errorf("%s: %w", typ, ErrNotOpen)
	}
	if err := d.transport.Send(proto.Request{Type: typ, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	d.log.Debug().Str("request", typ).Msg("request sent")
	return nil
}

func (d *Dispatcher) token() string {
	if d.tokens == nil {
		return ""
	}
	return d.tokens.Token()
}

func required(typ string, args ...string) error {
	for _, a := range args {
		if a == "" {
			return fmt.Errorf("%s: %w", typ, ErrBadRequest)
		}
	}
	return nil
}

// GetGuilds asks for the guilds the user is a member of.
func (d *Dispatcher) GetGuilds() error {
	return d.send(proto.RequestGetGuilds, proto.TokenData{Token: d.token()})
}

// GetSelf asks for the signed-in user's profile.
func (d *Dispatcher) GetSelf() error {
	return d.send(proto.RequestGetSelf, proto.TokenData{Token: d.token()})
}

// GetUser asks for another user's profile.
func (d *Dispatcher) GetUser(userID string) error {
	if err := required(proto.RequestGetUser, userID); err != nil {
		return err
	}
	return d.send(proto.RequestGetUser, proto.UserData{Token: d.token(), UserID: userID})
}

// GetChannels asks for the channel mapping of guild. The reply is tagged with guild.
func (d *Dispatcher) GetChannels(guild string) error {
	if err := required(proto.RequestGetChannels, guild); err != nil {
		return err
	}
	if err := d.send(proto.RequestGetChannels, proto.GuildData{Token: d.token(), Guild: guild}); err != nil {
		return err
	}
	d.pending.Push(proto.EventGetChannels, Tag{Guild: guild})
	return nil
}

// GetMessages asks for the history of a channel. The reply is tagged with both ids.
func (d *Dispatcher) GetMessages(guild, channel string) error {
	if err := required(proto.RequestGetMessages, guild, channel); err != nil {
		return err
	}
	data := proto.ChannelData{Token: d.token(), Guild: guild, Channel: channel}
	if err := d.send(proto.RequestGetMessages, data); err != nil {
		return err
	}
	d.pending.Push(proto.EventGetMessages, Tag{Guild: guild, Channel: channel})
	return nil
}

// JoinGuild redeems an invite code.
func (d *Dispatcher) JoinGuild(invite string) error {
	if err := required(proto.RequestJoinGuild, invite); err != nil {
		return err
	}
	return d.send(proto.RequestJoinGuild, proto.JoinGuildData{Token: d.token(), Invite: invite})
}

// CreateGuild creates a guild owned by the caller.
func (d *Dispatcher) CreateGuild(name, picture string) error {
	if err := required(proto.RequestCreateGuild, name); err != nil {
		return err
	}
	return d.send(proto.RequestCreateGuild, proto.CreateGuildData{Token: d.token(), GuildName: name, Picture: picture})
}

// LeaveGuild leaves guild.
func (d *Dispatcher) LeaveGuild(guild string) error {
	if err := required(proto.RequestLeaveGuild, guild); err != nil {
		return err
	}
	return d.send(proto.RequestLeaveGuild, proto.GuildData{Token: d.token(), Guild: guild})
}

// UpdateGuildName renames guild.
func (d *Dispatcher) UpdateGuildName(guild, name string) error {
	if err := required(proto.RequestUpdateGuildName, guild, name); err != nil {
		return err
	}
	return d.send(proto.RequestUpdateGuildName, proto.GuildNameData{Token: d.token(), Guild: guild, Name: name})
}

// UpdateGuildPicture sets guild's picture.
func (d *Dispatcher) UpdateGuildPicture(guild, picture string) error {
	if err := required(proto.RequestUpdateGuildPicture, guild, picture); err != nil {
		return err
	}
	return d.send(proto.RequestUpdateGuildPicture, proto.GuildPictureData{Token: d.token(), Guild: guild, Picture: picture})
}

// AddChannel creates a channel named name in guild.
func (d *Dispatcher) AddChannel(guild, name string) error {
	if err := required(proto.RequestAddChannel, guild, name); err != nil {
		return err
	}
	return d.send(proto.RequestAddChannel, proto.ChannelData{Token: d.token(), Guild: guild, Channel: name})
}

// DeleteChannel removes a channel from guild.
func (d *Dispatcher) DeleteChannel(guild, channelID string) error {
	if err := required(proto.RequestDeleteChannel, guild, channelID); err != nil {
		return err
	}
	return d.send(proto.RequestDeleteChannel, proto.DeleteChannelData{Token: d.token(), Guild: guild, ChannelID: channelID})
}

// GetInvites asks for guild's invite codes.
func (d *Dispatcher) GetInvites(guild string) error {
	if err := required(proto.RequestGetInvites, guild); err != nil {
		return err
	}
	return d.send(proto.RequestGetInvites, proto.GuildData{Token: d.token(), Guild: guild})
}

// CreateInvite asks the server to mint an invite code for guild.
func (d *Dispatcher) CreateInvite(guild string) error {
	if err := required(proto.RequestCreateInvite, guild); err != nil {
		return err
	}
	return d.send(proto.RequestCreateInvite, proto.GuildData{Token: d.token(), Guild: guild})
}

// DeleteInvite revokes an invite code.
func (d *Dispatcher) DeleteInvite(guild, invite string) error {
	if err := required(proto.RequestDeleteInvite, guild, invite); err != nil {
		return err
	}
	return d.send(proto.RequestDeleteInvite, proto.InviteData{Token: d.token(), Guild: guild, Invite: invite})
}

// SendMessage posts text to a channel.
func (d *Dispatcher) SendMessage(guild, channel, text string) error {
	if err := required(proto.RequestMessage, guild, channel, text); err != nil {
		return err
	}
	return d.send(proto.RequestMessage, proto.MessageData{Token: d.token(), Guild: guild, Channel: channel, Message: text})
}
