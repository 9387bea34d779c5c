// Package http exposes a small local control surface for a running client:
// health, a state snapshot, and commands that drive the selection.
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/core"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

// Commander runs a command on the event loop and reports its outcome.
type Commander interface {
	Do(ctx context.Context, cmd core.Command) error
}

// Snapshotter exposes a consistent copy of the client state.
type Snapshotter interface {
	Snapshot() state.Snapshot
}

// NewServer builds the control server listening on addr.
func NewServer(addr string, loop Commander, st Snapshotter, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	h := NewControlHandlers(loop, st, logger)
	router.GET("/health", healthHandler)
	router.GET("/state", h.State)
	router.POST("/select", h.Select)
	router.POST("/refresh", h.Refresh)
	router.POST("/messages", h.SendMessage)
	router.POST("/users/:user/refresh", h.RefreshUser)

	guilds := router.Group("/guilds")
	guilds.POST("", h.CreateGuild)
	guilds.POST("/join", h.JoinGuild)
	guilds.POST("/:guild/leave", h.LeaveGuild)
	guilds.PUT("/:guild/name", h.UpdateGuildName)
	guilds.PUT("/:guild/picture", h.UpdateGuildPicture)
	guilds.POST("/:guild/channels", h.AddChannel)
	guilds.DELETE("/:guild/channels/:channel", h.DeleteChannel)
	guilds.POST("/:guild/invites/refresh", h.RefreshInvites)
	guilds.POST("/:guild/invites", h.CreateInvite)
	guilds.DELETE("/:guild/invites/:invite", h.DeleteInvite)

	return &stdhttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
