package mexc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mexcfeed/internal/keyring"
	"mexcfeed/internal/ratelimit"
	"mexcfeed/pkg/core"
	"mexcfeed/pkg/exchange"
)

// MexcExchange wires the REST client, the feed and one websocket connection
// into the exchange.Feed interface.
type MexcExchange struct {
	config *core.Config
	rest   *RESTClient
	feed   *Feed
	logger zerolog.Logger
	wsURL  string

	wsMu     sync.Mutex
	wsClient *WSClient
}

// Option is a functional option for configuring the MexcExchange.
type Option func(*Options)

// Options holds configuration options for the MexcExchange.
type Options struct {
	KeyRing *keyring.KeyRing
	Logger  zerolog.Logger
	RESTURL string
	WSURL   string
}

// WithExchangeKeyRing returns an option that sets the API key ring used for
// the private-channel handshake.
func WithExchangeKeyRing(kr *keyring.KeyRing) Option {
	return func(o *Options) {
		o.KeyRing = kr
	}
}

// WithExchangeLogger returns an option that sets the logger for the exchange.
func WithExchangeLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithEndpoints overrides the REST and websocket endpoints.
func WithEndpoints(restURL, wsURL string) Option {
	return func(o *Options) {
		o.RESTURL = restURL
		o.WSURL = wsURL
	}
}

// New creates a MexcExchange. Nothing is dialed until LoadSymbols and Connect.
func New(config *core.Config, opts ...Option) (*MexcExchange, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	rest, err := NewRESTClient(config, options.RESTURL)
	if err != nil {
		return nil, err
	}
	rest.SetLogger(options.Logger)

	limits := NewProtocol().RateLimits()
	feedOpts := []FeedOption{
		WithLogger(options.Logger),
		WithRateLimiter(ratelimit.New(limits.MessagesPerSecond, time.Second)),
	}
	if options.KeyRing != nil {
		feedOpts = append(feedOpts, WithKeyRing(options.KeyRing))
	}
	feed, err := NewFeed(config, feedOpts...)
	if err != nil {
		return nil, err
	}

	return &MexcExchange{
		config: config,
		rest:   rest,
		feed:   feed,
		logger: options.Logger,
		wsURL:  options.WSURL,
	}, nil
}

// Name returns the exchange identifier.
func (e *MexcExchange) Name() string {
	return e.feed.Name()
}

// Version returns the MEXC spot API version.
func (e *MexcExchange) Version() string {
	return NewProtocol().Version()
}

// Feed exposes the underlying feed, mainly for tests and custom connections.
func (e *MexcExchange) Feed() *Feed {
	return e.feed
}

// LoadSymbols fetches the instrument listing and installs a fresh symbol table.
func (e *MexcExchange) LoadSymbols(ctx context.Context) error {
	info, err := e.rest.ExchangeInfo(ctx)
	if err != nil {
		return fmt.Errorf("load symbols: %w", err)
	}
	e.feed.applySymbols(info)
	return nil
}

// Connect opens the websocket for the configured subscriptions. It fails
// without dialing if they include an authenticated channel.
func (e *MexcExchange) Connect(ctx context.Context) error {
	e.wsMu.Lock()
	defer e.wsMu.Unlock()

	if e.wsClient != nil {
		return nil
	}

	client := NewWSClient(e.feed, WSConfig{
		URL:               e.wsURL,
		Subscriptions:     e.config.Subscriptions,
		PingInterval:      e.config.PingInterval,
		ReconnectBaseWait: e.config.ReconnectWaitMin,
		ReconnectMaxWait:  e.config.ReconnectWaitMax,
	})
	client.SetLogger(e.logger)

	if err := client.Connect(ctx); err != nil {
		return err
	}
	e.wsClient = client
	return nil
}

// Close tears down the websocket and the HTTP client.
func (e *MexcExchange) Close() error {
	e.wsMu.Lock()
	client := e.wsClient
	e.wsClient = nil
	e.wsMu.Unlock()

	var errs []error
	if client != nil {
		errs = append(errs, client.Close())
	}
	errs = append(errs, e.rest.Close())
	return errors.Join(errs...)
}

// OnBook registers a handler for every book update.
func (e *MexcExchange) OnBook(h func(*core.BookUpdate)) {
	e.feed.OnBook(h)
}

// Book returns the latest cached book for a normalized symbol.
func (e *MexcExchange) Book(symbol string) (*core.OrderBook, bool) {
	return e.feed.Book(symbol)
}

// GetOrderBook fetches a REST depth snapshot for a normalized symbol. It does
// not touch the websocket book cache.
func (e *MexcExchange) GetOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	o := exchange.ApplyOptions(opts...)

	native, ok := e.feed.Symbols().Native(symbol)
	if !ok {
		return nil, core.NewExchangeErrorWithCode(e.Name(), core.ErrorTypeNotFound, 0,
			string(core.ErrCodeUnknownSymbol), fmt.Sprintf("symbol %s is not listed", symbol)).
			Wrap(core.ErrUnknownSymbol)
	}
	return e.rest.FetchOrderBook(ctx, native, symbol, o.Limit)
}

// ServerTime returns the exchange clock in float epoch seconds.
func (e *MexcExchange) ServerTime(ctx context.Context) (float64, error) {
	return e.rest.ServerTime(ctx)
}

// Register creates a MexcExchange and registers it with the container.
func Register(container *exchange.Container, config *core.Config, opts ...Option) error {
	ex, err := New(config, opts...)
	if err != nil {
		return fmt.Errorf("create mexc exchange: %w", err)
	}
	container.Register(ex.Name(), ex)
	return nil
}
