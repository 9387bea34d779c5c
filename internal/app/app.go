// Package app wires the sync layer to its collaborators: the sqlite credential
// store, the websocket transport, the event loop and the control surface.
package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/bus"
	"github.com/vovakirdan/harmony-sync/internal/config"
	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/core"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/notify"
	"github.com/vovakirdan/harmony-sync/internal/session"
	"github.com/vovakirdan/harmony-sync/internal/state"
	"github.com/vovakirdan/harmony-sync/internal/store"
	"github.com/vovakirdan/harmony-sync/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/harmony-sync/internal/transport/http"
	"github.com/vovakirdan/harmony-sync/internal/transport/ws"
)

// ErrLoginRequired is returned by Run when the session could not be used or
// was invalidated by the server.
var ErrLoginRequired = errors.New("login required")

const shutdownTimeout = 5 * time.Second

// App wires together the sync core and its transports.
type App struct {
	cfg    config.Config
	store  store.Store
	client *ws.Client
	loop   *core.Loop
	state  *state.Store
	server *stdhttp.Server
	quit   chan struct{}
	log    *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DBPath).Msg("credential store opened")

	a := &App{cfg: cfg, store: st, quit: make(chan struct{}), log: logger}
	creds := store.NewCredentials(st)

	a.client = ws.New(cfg.ServerURL, ws.Options{
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MinBackoff:   cfg.ReconnectMin,
		MaxBackoff:   cfg.ReconnectMax,
	}, logger)

	tracker := conn.NewTracker(a.client)
	d := dispatch.New(a.client, tracker, creds, logger)
	b := bus.New(logger)
	a.state = state.New()
	a.state.Subscribe(func(ch state.Change) {
		logger.Debug().Uint16("change", uint16(ch)).Msg("state patched")
	})

	sess := session.New(session.Config{
		Bus:      b,
		State:    a.state,
		Tracker:  tracker,
		Dispatch: d,
		Tokens:   creds,
		Notify:   notify.NewLogger(logger),
		Navigate: notify.NewExit(logger, func() { close(a.quit) }),
		Logger:   logger,
	})
	a.loop = core.NewLoop(b, sess, d, a.state, logger)

	if cfg.ControlAddr != "" {
		a.server = transporthttp.NewServer(cfg.ControlAddr, a.loop, a.state, logger)
	}
	return a, nil
}

// Run connects, activates the session and blocks until ctx is cancelled, the
// session becomes unusable, or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.loop.Run(runCtx)

	// Bind before dialing so the first open edge reaches the handlers.
	if err := a.activate(runCtx); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return ErrLoginRequired
		}
		return err
	}

	clientErr := make(chan error, 1)
	go func() {
		clientErr <- a.client.Run(runCtx, a.loop)
	}()

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.log.Info().Str("addr", a.server.Addr).Msg("control surface listening")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case <-a.quit:
		err = ErrLoginRequired
	case err = <-serverErr:
	case err = <-clientErr:
	}
	cancel()

	if a.server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if serr := a.server.Shutdown(shutdownCtx); serr != nil {
			a.log.Warn().Err(serr).Msg("control surface shutdown")
		}
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// activate binds the session and applies the configured selection.
func (a *App) activate(ctx context.Context) error {
	if err := a.loop.Do(ctx, core.Command{Kind: core.CommandActivate}); err != nil {
		return err
	}
	if a.cfg.Guild == "" {
		return nil
	}
	if err := a.loop.Post(ctx, core.Command{Kind: core.CommandSelectGuild, Guild: a.cfg.Guild}); err != nil {
		return err
	}
	if a.cfg.Channel == "" {
		return nil
	}
	return a.loop.Post(ctx, core.Command{Kind: core.CommandSelectChannel, Channel: a.cfg.Channel})
}

// cleanup closes the credential store.
func (a *App) cleanup() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
