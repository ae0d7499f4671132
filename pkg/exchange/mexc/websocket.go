package mexc

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mexcfeed/internal/ws"
	"mexcfeed/pkg/core"
)

// pingPayload is MEXC's application-level heartbeat.
var pingPayload = []byte(`{"method":"PING"}`)

// WSConfig describes one websocket connection.
type WSConfig struct {
	URL               string
	Subscriptions     map[core.Channel][]string
	PingInterval      time.Duration
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
}

// WSClient is a single MEXC websocket connection bound to a Feed. It takes a
// fresh connection id on every (re)connect, then re-authenticates and
// re-subscribes before any frame of the new epoch reaches the feed.
type WSClient struct {
	client *ws.WSClient
	feed   *Feed
	subs   map[core.Channel][]string
	logger zerolog.Logger

	mu    sync.RWMutex
	id    string
	epoch uint64
}

func NewWSClient(feed *Feed, config WSConfig) *WSClient {
	if config.URL == "" {
		config.URL = WebsocketURL
	}

	subs := make(map[core.Channel][]string, len(config.Subscriptions))
	for ch, symbols := range config.Subscriptions {
		subs[ch] = slices.Clone(symbols)
	}

	c := &WSClient{
		client: ws.NewWSClient(ws.WSConfig{
			URL:               config.URL,
			ReconnectEnabled:  true,
			ReconnectBaseWait: config.ReconnectBaseWait,
			ReconnectMaxWait:  config.ReconnectMaxWait,
			PingInterval:      config.PingInterval,
			PingPayload:       pingPayload,
		}),
		feed:   feed,
		subs:   subs,
		logger: zerolog.Nop(),
	}
	c.client.OnConnect(c.onConnect)
	c.client.OnFrame(c.onFrame)
	return c
}

func (c *WSClient) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.client.SetLogger(logger)
}

// ID returns the id of the current connection epoch, empty before connect.
func (c *WSClient) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Subscriptions returns a copy of the channels and symbols this connection carries.
func (c *WSClient) Subscriptions() map[core.Channel][]string {
	out := make(map[core.Channel][]string, len(c.subs))
	for ch, symbols := range c.subs {
		out[ch] = slices.Clone(symbols)
	}
	return out
}

// Write sends one text frame. ctx is honoured only up to the write call.
func (c *WSClient) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.client.WriteMessage(data)
}

// Connect dials and blocks until the first epoch is open. Subscription
// problems the feed can detect up front fail here, before dialing.
func (c *WSClient) Connect(ctx context.Context) error {
	if err := c.feed.ValidateSubscriptions(c.subs); err != nil {
		return err
	}
	if err := c.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	old := c.id
	c.mu.Unlock()
	if c.feed.limiter != nil {
		if old != "" {
			c.feed.limiter.Forget(old)
		}
		m := c.feed.limiter.Metrics()
		c.logger.Debug().Int64("sent", m.AllowedRequests).Int64("denied", m.DeniedRequests).
			Msg("closing connection")
	}
	return c.client.Close()
}

func (c *WSClient) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *WSClient) onConnect(ctx context.Context, epoch uint64) error {
	c.mu.Lock()
	old := c.id
	c.id = uuid.NewString()
	c.epoch = epoch
	c.mu.Unlock()

	if old != "" && c.feed.limiter != nil {
		c.feed.limiter.Forget(old)
	}

	c.logger.Info().Str("conn", c.ID()).Uint64("epoch", epoch).
		Strs("channels", channelNames(c.subs)).Msg("connection open")

	if err := c.feed.Authenticate(ctx, c); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if err := c.feed.Subscribe(ctx, c); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (c *WSClient) onFrame(frame ws.Frame) error {
	c.mu.RLock()
	id, epoch := c.id, c.epoch
	c.mu.RUnlock()

	if frame.Epoch != epoch {
		c.logger.Debug().Uint64("frame_epoch", frame.Epoch).Uint64("epoch", epoch).Msg("dropping stale frame")
		return nil
	}
	return c.feed.HandleMessage(id, frame.Data, frame.ReceivedAt)
}

func channelNames(subs map[core.Channel][]string) []string {
	names := make([]string, 0, len(subs))
	for _, ch := range slices.Sorted(maps.Keys(subs)) {
		names = append(names, ch.String())
	}
	return names
}
