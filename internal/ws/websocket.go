package ws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lxzan/gws"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by writes while no socket is open.
var ErrNotConnected = errors.New("websocket not connected")

// WSConfig configures a WSClient. Zero durations take the defaults applied
// in NewWSClient. Reconnect waits double from ReconnectBaseWait up to
// ReconnectMaxWait.
type WSConfig struct {
	URL               string
	ReconnectEnabled  bool
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
	PingInterval      time.Duration
	// PongWait is the silence allowed past PingInterval before the read
	// deadline kills the socket.
	PongWait time.Duration
	// PingPayload replaces the protocol ping with a text frame, for venues
	// whose heartbeat lives in the application protocol.
	PingPayload []byte
}

// Frame is a single inbound message tagged with the connection epoch it arrived on.
type Frame struct {
	Data []byte
	// Epoch increments on every successful (re)connect, starting at 1.
	Epoch      uint64
	ReceivedAt time.Time
}

// FrameHandler consumes frames in arrival order on the read goroutine.
type FrameHandler func(Frame) error

// ConnectHook runs after every successful (re)connect and before any frame of
// that epoch is handed to the FrameHandler.
type ConnectHook func(ctx context.Context, epoch uint64) error

// WSClient owns one socket at a time. Each successful dial starts a new
// epoch; frames carry the epoch they were read on.
type WSClient struct {
	config  WSConfig
	state   *State
	conn    *gws.Conn
	handler *wsEventHandler
	logger  zerolog.Logger
	now     func() time.Time

	epoch atomic.Uint64

	mu                sync.RWMutex
	onFrame           FrameHandler
	onConnect         ConnectHook
	opened            chan struct{}
	connDone          chan struct{}
	stop              chan struct{}
	wg                sync.WaitGroup
	reconnectAttempts int
}

type wsEventHandler struct {
	client *WSClient
}

func NewWSClient(config WSConfig) *WSClient {
	if config.ReconnectBaseWait == 0 {
		config.ReconnectBaseWait = 1 * time.Second
	}
	if config.ReconnectMaxWait == 0 {
		config.ReconnectMaxWait = 30 * time.Second
	}
	if config.PingInterval == 0 {
		config.PingInterval = 10 * time.Second
	}
	if config.PongWait == 0 {
		config.PongWait = 20 * time.Second
	}

	client := &WSClient{
		config: config,
		state:  &State{},
		opened: make(chan struct{}),
		stop:   make(chan struct{}),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	client.state.Store(StateDisconnected)
	client.handler = &wsEventHandler{client: client}
	return client
}

func (c *WSClient) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// OnFrame sets the handler every inbound frame is delivered to.
func (c *WSClient) OnFrame(h FrameHandler) {
	c.mu.Lock()
	c.onFrame = h
	c.mu.Unlock()
}

// OnConnect sets the hook run at the start of every connection epoch.
func (c *WSClient) OnConnect(h ConnectHook) {
	c.mu.Lock()
	c.onConnect = h
	c.mu.Unlock()
}

// Epoch returns the current connection epoch, zero before the first connect.
func (c *WSClient) Epoch() uint64 {
	return c.epoch.Load()
}

func (c *WSClient) refreshDeadline(socket *gws.Conn) {
	_ = socket.SetDeadline(c.now().Add(c.config.PingInterval + c.config.PongWait))
}

// OnOpen runs on the read goroutine before the first frame is read, which is
// what lets the connect hook finish before any frame of the epoch is routed.
func (h *wsEventHandler) OnOpen(socket *gws.Conn) {
	c := h.client
	c.state.Store(StateConnected)
	epoch := c.epoch.Add(1)

	c.mu.Lock()
	c.reconnectAttempts = 0
	done := make(chan struct{})
	c.connDone = done
	select {
	case <-c.opened:
	default:
		close(c.opened)
	}
	hook := c.onConnect
	c.mu.Unlock()

	c.logger.Info().
		Str("url", c.config.URL).
		Uint64("epoch", epoch).
		Msg("websocket connected")

	c.refreshDeadline(socket)
	c.wg.Go(func() {
		c.keepalive(socket, done)
	})

	if hook == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.PongWait)
	defer cancel()
	if err := hook(ctx, epoch); err != nil {
		c.logger.Error().Err(err).Uint64("epoch", epoch).Msg("connect hook failed, closing")
		_ = socket.WriteClose(1000, nil)
	}
}

func (h *wsEventHandler) OnClose(socket *gws.Conn, err error) {
	c := h.client
	c.state.Store(StateDisconnected)

	c.mu.Lock()
	c.opened = make(chan struct{})
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	c.mu.Unlock()

	c.logger.Warn().
		Err(err).
		Str("url", c.config.URL).
		Msg("websocket disconnected")

	if c.config.ReconnectEnabled {
		select {
		case <-c.stop:
			return
		default:
			go c.attemptReconnect()
		}
	}
}

func (h *wsEventHandler) OnPing(socket *gws.Conn, payload []byte) {
	h.client.refreshDeadline(socket)
	_ = socket.WritePong(payload)
}

func (h *wsEventHandler) OnPong(socket *gws.Conn, payload []byte) {
	h.client.refreshDeadline(socket)
}

func (h *wsEventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	h.client.refreshDeadline(socket)
	h.client.deliver(message.Bytes())
}

// deliver copies data out of the read buffer and hands it to the frame handler.
func (c *WSClient) deliver(data []byte) {
	if len(data) == 0 {
		return
	}

	c.mu.RLock()
	handler := c.onFrame
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	frame := Frame{
		Data:       bytes.Clone(data),
		Epoch:      c.epoch.Load(),
		ReceivedAt: c.now(),
	}
	if err := handler(frame); err != nil {
		c.logger.Error().Err(err).Uint64("epoch", frame.Epoch).Msg("frame handler error")
	}
}

func (c *WSClient) keepalive(socket *gws.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var err error
			if len(c.config.PingPayload) > 0 {
				err = socket.WriteMessage(gws.OpcodeText, c.config.PingPayload)
			} else {
				err = socket.WritePing(nil)
			}
			if err != nil {
				c.logger.Warn().Err(err).Msg("keepalive failed")
				return
			}
		case <-done:
			return
		case <-c.stop:
			return
		}
	}
}

// Connect dials and waits for OnOpen. It is a no-op while connected.
func (c *WSClient) Connect(ctx context.Context) error {
	if !c.state.Transition(StateConnecting, StateDisconnected, StateReconnecting) {
		current := c.state.Load()
		if current == StateConnected {
			return nil
		}
		return fmt.Errorf("invalid state for connect: %s", current)
	}

	socket, _, err := gws.NewClient(c.handler, &gws.ClientOption{
		Addr: c.config.URL,
	})
	if err != nil {
		c.state.Store(StateDisconnected)
		return fmt.Errorf("connect websocket: %w", err)
	}

	c.mu.Lock()
	c.conn = socket
	connected := c.opened
	c.mu.Unlock()

	c.wg.Go(func() {
		socket.ReadLoop()
	})

	select {
	case <-connected:
		return nil
	case <-ctx.Done():
		_ = socket.NetConn().Close()
		c.state.Store(StateDisconnected)
		return ctx.Err()
	case <-c.stop:
		_ = socket.NetConn().Close()
		return fmt.Errorf("client stopped")
	}
}

// Close stops reconnecting, drops the socket and waits for the read and
// keepalive goroutines. Later calls do nothing.
func (c *WSClient) Close() error {
	if !c.state.Close() {
		return nil
	}

	close(c.stop)

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.NetConn().Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *WSClient) State() ConnState {
	return c.state.Load()
}

func (c *WSClient) IsConnected() bool {
	return c.state.Load() == StateConnected
}

// WriteMessage sends data as one text frame on the current socket.
func (c *WSClient) WriteMessage(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil || c.state.Load() != StateConnected {
		return ErrNotConnected
	}

	return c.conn.WriteMessage(gws.OpcodeText, data)
}

func (c *WSClient) attemptReconnect() {
	if !c.state.CompareAndSwap(StateDisconnected, StateReconnecting) {
		return
	}

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		c.mu.Lock()
		attempts := c.reconnectAttempts
		c.reconnectAttempts++
		c.mu.Unlock()

		wait := c.calculateBackoff(attempts)
		c.logger.Info().
			Dur("wait", wait).
			Int("attempt", attempts+1).
			Msg("attempting reconnect")

		select {
		case <-time.After(wait):
		case <-c.stop:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.Connect(ctx)
		cancel()
		if err != nil {
			c.logger.Error().Err(err).
				Int("attempt", attempts+1).
				Msg("reconnect failed")
			if !c.state.CompareAndSwap(StateDisconnected, StateReconnecting) {
				return
			}
			continue
		}

		c.logger.Info().Uint64("epoch", c.Epoch()).Msg("reconnected successfully")
		return
	}
}

func (c *WSClient) calculateBackoff(attempts int) time.Duration {
	if attempts > 30 {
		return c.config.ReconnectMaxWait
	}
	return min(c.config.ReconnectBaseWait*time.Duration(1<<uint(attempts)), c.config.ReconnectMaxWait)
}
