package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/core"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/session"
)

const commandTimeout = 5 * time.Second

// ControlHandlers serves the control endpoints.
type ControlHandlers struct {
	loop  Commander
	state Snapshotter
	log   *zerolog.Logger
}

// NewControlHandlers creates handlers bound to loop and st.
func NewControlHandlers(loop Commander, st Snapshotter, logger *zerolog.Logger) *ControlHandlers {
	return &ControlHandlers{loop: loop, state: st, log: logger}
}

// SelectRequest moves the selection cursor. An empty guild clears it; an
// empty channel leaves the channel cursor alone.
type SelectRequest struct {
	Guild   string `json:"guild"`
	Channel string `json:"channel"`
}

// MessageRequest is a chat line for the selected channel.
type MessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// JoinGuildRequest redeems an invite code.
type JoinGuildRequest struct {
	Invite string `json:"invite" binding:"required"`
}

// CreateGuildRequest creates a guild.
type CreateGuildRequest struct {
	Name    string `json:"name" binding:"required"`
	Picture string `json:"picture"`
}

// NameRequest carries a guild or channel name.
type NameRequest struct {
	Name string `json:"name" binding:"required"`
}

// PictureRequest carries a guild picture URL.
type PictureRequest struct {
	Picture string `json:"picture" binding:"required"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// State returns the current snapshot.
// GET /state
func (h *ControlHandlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.state.Snapshot())
}

// Select moves the guild and then the channel cursor.
// POST /select
func (h *ControlHandlers) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid select request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Guild == "" && req.Channel != "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "channel requires guild"})
		return
	}

	cmds := []core.Command{{Kind: core.CommandSelectGuild, Guild: req.Guild}}
	if req.Channel != "" {
		cmds = append(cmds, core.Command{Kind: core.CommandSelectChannel, Channel: req.Channel})
	}
	for _, cmd := range cmds {
		if !h.run(c, cmd) {
			return
		}
	}
	c.JSON(http.StatusOK, h.state.Snapshot().Selection)
}

// Refresh re-fetches channels and messages for the current selection.
// POST /refresh
func (h *ControlHandlers) Refresh(c *gin.Context) {
	if h.run(c, core.Command{Kind: core.CommandRefresh}) {
		c.Status(http.StatusAccepted)
	}
}

// SendMessage posts a chat line to the selected channel.
// POST /messages
func (h *ControlHandlers) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if h.run(c, core.Command{Kind: core.CommandSendMessage, Text: req.Text}) {
		c.Status(http.StatusAccepted)
	}
}

// run executes cmd and writes an error response on failure.
func (h *ControlHandlers) run(c *gin.Context, cmd core.Command) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	err := h.loop.Do(ctx, cmd)
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, dispatch.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrNoChannel), errors.Is(err, session.ErrInactive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, dispatch.ErrNotOpen):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "not connected"})
	case errors.Is(err, dispatch.ErrSessionEnded):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "session ended"})
	default:
		h.log.Error().Err(err).Str("command", cmd.Kind.String()).Msg("control command failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return false
}

// RefreshUser asks the server for a user's profile.
// POST /users/:user/refresh
func (h *ControlHandlers) RefreshUser(c *gin.Context) {
	h.accept(c, core.Command{Kind: core.CommandGetUser, User: c.Param("user")})
}

// JoinGuild redeems an invite. The guild dialog stays open until the ack.
// POST /guilds/join
func (h *ControlHandlers) JoinGuild(c *gin.Context) {
	var req JoinGuildRequest
	if !h.bind(c, &req) {
		return
	}
	h.accept(c, core.Command{Kind: core.CommandJoinGuild, Invite: req.Invite})
}

// CreateGuild creates a guild. The guild dialog stays open until the ack.
// POST /guilds
func (h *ControlHandlers) CreateGuild(c *gin.Context) {
	var req CreateGuildRequest
	if !h.bind(c, &req) {
		return
	}
	h.accept(c, core.Command{Kind: core.CommandCreateGuild, Name: req.Name, Picture: req.Picture})
}

// LeaveGuild leaves a guild.
// POST /guilds/:guild/leave
func (h *ControlHandlers) LeaveGuild(c *gin.Context) {
	h.accept(c, core.Command{Kind: core.CommandLeaveGuild, Guild: c.Param("guild")})
}

// UpdateGuildName renames a guild. The settings dialog stays open until the ack.
// PUT /guilds/:guild/name
func (h *ControlHandlers) UpdateGuildName(c *gin.Context) {
	var req NameRequest
	if !h.bind(c, &req) {
		return
	}
	h.accept(c, core.Command{Kind: core.CommandUpdateGuildName, Guild: c.Param("guild"), Name: req.Name})
}

// UpdateGuildPicture sets a guild's picture. The settings dialog stays open until the ack.
// PUT /guilds/:guild/picture
func (h *ControlHandlers) UpdateGuildPicture(c *gin.Context) {
	var req PictureRequest
	if !h.bind(c, &req) {
		return
	}
	h.accept(c, core.Command{Kind: core.CommandUpdateGuildPicture, Guild: c.Param("guild"), Picture: req.Picture})
}

// AddChannel creates a channel.
// POST /guilds/:guild/channels
func (h *ControlHandlers) AddChannel(c *gin.Context) {
	var req NameRequest
	if !h.bind(c, &req) {
		return
	}
	h.accept(c, core.Command{Kind: core.CommandAddChannel, Guild: c.Param("guild"), Name: req.Name})
}

// DeleteChannel removes a channel.
// DELETE /guilds/:guild/channels/:channel
func (h *ControlHandlers) DeleteChannel(c *gin.Context) {
	h.accept(c, core.Command{Kind: core.CommandDeleteChannel, Guild: c.Param("guild"), Channel: c.Param("channel")})
}

// RefreshInvites asks for a guild's invite codes.
// POST /guilds/:guild/invites/refresh
func (h *ControlHandlers) RefreshInvites(c *gin.Context) {
	h.accept(c, core.Command{Kind: core.CommandGetInvites, Guild: c.Param("guild")})
}

// CreateInvite mints an invite code.
// POST /guilds/:guild/invites
func (h *ControlHandlers) CreateInvite(c *gin.Context) {
	h.accept(c, core.Command{Kind: core.CommandCreateInvite, Guild: c.Param("guild")})
}

// DeleteInvite revokes an invite code.
// DELETE /guilds/:guild/invites/:invite
func (h *ControlHandlers) DeleteInvite(c *gin.Context) {
	h.accept(c, core.Command{Kind: core.CommandDeleteInvite, Guild: c.Param("guild"), Invite: c.Param("invite")})
}

func (h *ControlHandlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("invalid control request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// accept runs cmd and answers 202: the outcome arrives later as a server event.
func (h *ControlHandlers) accept(c *gin.Context, cmd core.Command) {
	if h.run(c, cmd) {
		c.Status(http.StatusAccepted)
	}
}
