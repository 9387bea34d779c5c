// Package ws is the socket transport. It keeps one websocket connection to the
// server alive, reconnecting with exponential backoff, and turns every frame
// and every link transition into a proto.Event for the event loop.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/proto"
)

// ErrNotConnected is returned by Send while no connection is established.
var ErrNotConnected = errors.New("websocket not connected")

// readLimit caps a single inbound frame; message history replies can be large.
const readLimit = 4 << 20

// Sink receives inbound events. Deliver may block; frames are never dropped.
type Sink interface {
	Deliver(ctx context.Context, ev proto.Event) error
}

// Options tune dialing and reconnection.
type Options struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = 30 * time.Second
	}
	return o
}

// Client is a reconnecting websocket client. It satisfies conn.Transport.
type Client struct {
	url  string
	opts Options
	log  *zerolog.Logger

	state atomic.Int32

	mu   sync.Mutex
	ws   *websocket.Conn
	ctx  context.Context
	next func() time.Duration
}

// New creates a client for url. The link starts out connecting; call Run to
// actually dial.
func New(url string, opts Options, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	c := &Client{url: url, opts: opts.withDefaults(), log: logger, ctx: context.Background()}
	c.state.Store(int32(conn.Connecting))
	return c
}

// ReadyState reports the current link status.
func (c *Client) ReadyState() conn.Status {
	return conn.Status(c.state.Load())
}

// Send writes one request frame.
func (c *Client) Send(req proto.Request) error {
	c.mu.Lock()
	ws, parent := c.ws, c.ctx
	c.mu.Unlock()
	if ws == nil || c.ReadyState() != conn.Open {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(parent, c.opts.WriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, ws, req); err != nil {
		return fmt.Errorf("write %s: %w", req.Type, err)
	}
	return nil
}

// Run dials, reads and reconnects until ctx is cancelled. Every established
// connection is announced with an open event and every loss with a close
// event.
func (c *Client) Run(ctx context.Context, sink Sink) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.MinBackoff
	b.MaxInterval = c.opts.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	for {
		c.state.Store(int32(conn.Connecting))
		ws, err := c.dial(ctx)
		if err == nil {
			b.Reset()
			err = c.serve(ctx, ws, sink)
		}
		if ctx.Err() != nil {
			c.state.Store(int32(conn.Closed))
			return ctx.Err()
		}

		c.state.Store(int32(conn.Closed))
		if derr := sink.Deliver(ctx, proto.Event{Type: proto.EventClose}); derr != nil {
			return derr
		}

		wait := b.NextBackOff()
		c.log.Warn().Err(err).Dur("retry_in", wait).Str("url", c.url).Msg("websocket disconnected")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	ws, _, err := websocket.Dial(dctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	ws.SetReadLimit(readLimit)
	return ws, nil
}

// serve publishes ws, announces the open edge and pumps frames until the
// connection fails.
func (c *Client) serve(ctx context.Context, ws *websocket.Conn, sink Sink) error {
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		ws.CloseNow()
	}()

	c.state.Store(int32(conn.Open))
	c.log.Info().Str("url", c.url).Msg("websocket connected")
	if err := sink.Deliver(ctx, proto.Event{Type: proto.EventOpen}); err != nil {
		return err
	}

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.state.Store(int32(conn.Closed))
			}
			return err
		}
		ev, ok := c.decode(data)
		if !ok {
			continue
		}
		if err := sink.Deliver(ctx, ev); err != nil {
			return err
		}
	}
}

// decode parses one frame. Malformed frames and frames that try to spoof a
// link transition are dropped.
func (c *Client) decode(data []byte) (proto.Event, bool) {
	var ev proto.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		c.log.Warn().Err(err).Int("bytes", len(data)).Msg("malformed frame")
		return proto.Event{}, false
	}
	switch ev.Type {
	case "":
		c.log.Warn().Msg("frame without type")
		return proto.Event{}, false
	case proto.EventOpen, proto.EventClose:
		c.log.Warn().Str("type", ev.Type).Msg("reserved event type from server")
		return proto.Event{}, false
	}
	return ev, true
}
