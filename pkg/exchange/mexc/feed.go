package mexc

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"mexcfeed/internal/keyring"
	"mexcfeed/internal/ratelimit"
	"mexcfeed/pkg/core"
)

// Connection is what the feed needs from a live websocket: an identity for
// logs, the channels and normalized symbols it carries, and a way to write.
type Connection interface {
	ID() string
	Subscriptions() map[core.Channel][]string
	Write(ctx context.Context, data []byte) error
}

// BookHandler receives every book update, on the connection's read goroutine.
type BookHandler func(*core.BookUpdate)

// Feed holds the per-instance state of one MEXC adapter: the symbol table,
// the book cache and the registered handlers. Several connections may share
// a Feed; each connection's frames are handled one at a time.
type Feed struct {
	name       string
	config     *core.Config
	normalizer *Normalizer
	signer     *Signer
	keys       *keyring.KeyRing
	limiter    *ratelimit.RateLimiter
	logger     zerolog.Logger

	symMu          sync.RWMutex
	symbols        *SymbolTable
	instrumentInfo map[string]InstrumentInfo

	bookMu sync.Mutex
	books  map[string]*core.OrderBook

	handlerMu sync.RWMutex
	handlers  []BookHandler
}

type FeedOption func(*Feed)

func WithLogger(logger zerolog.Logger) FeedOption {
	return func(f *Feed) {
		f.logger = logger
	}
}

func WithSigner(s *Signer) FeedOption {
	return func(f *Feed) {
		f.signer = s
	}
}

func WithKeyRing(k *keyring.KeyRing) FeedOption {
	return func(f *Feed) {
		f.keys = k
	}
}

// WithRateLimiter paces outbound websocket frames per connection.
func WithRateLimiter(l *ratelimit.RateLimiter) FeedOption {
	return func(f *Feed) {
		f.limiter = l
	}
}

// NewFeed validates config and returns an empty feed. Credentials in config
// seed the key ring unless WithKeyRing is given.
func NewFeed(config *core.Config, opts ...FeedOption) (*Feed, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	f := &Feed{
		name:           config.Exchange,
		config:         config,
		normalizer:     NewNormalizer(config.Exchange),
		signer:         NewSigner(),
		logger:         zerolog.Nop(),
		symbols:        NewSymbolTable(),
		instrumentInfo: make(map[string]InstrumentInfo),
		books:          make(map[string]*core.OrderBook),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.keys == nil {
		var keys []keyring.APIKey
		if c := config.Credentials; c != nil {
			keys = append(keys, keyring.APIKey{ID: "default", Key: c.APIKey, Secret: c.SecretKey})
		}
		f.keys = keyring.NewKeyRing(keys...)
	}
	return f, nil
}

func (f *Feed) Name() string {
	return f.name
}

func (f *Feed) SetLogger(logger zerolog.Logger) {
	f.logger = logger
}

// OnBook registers a handler for book updates.
func (f *Feed) OnBook(h BookHandler) {
	f.handlerMu.Lock()
	f.handlers = append(f.handlers, h)
	f.handlerMu.Unlock()
}

// ApplyExchangeInfo decodes a GET /api/v3/exchangeInfo body and installs the
// resulting symbol table.
func (f *Feed) ApplyExchangeInfo(data []byte) error {
	var info mexcExchangeInfo
	if err := sonic.Unmarshal(data, &info); err != nil {
		return core.NewExchangeErrorWithCode(f.name, core.ErrorTypeDecode, 0,
			string(core.ErrCodeMalformedFrame), fmt.Sprintf("decode exchange info: %v", err)).
			Wrap(core.ErrMalformedFrame)
	}
	f.applySymbols(&info)
	return nil
}

func (f *Feed) applySymbols(info *mexcExchangeInfo) {
	table, infoMap := f.normalizer.NormalizeSymbols(info)

	f.symMu.Lock()
	f.symbols = table
	f.instrumentInfo = infoMap
	f.symMu.Unlock()

	f.logger.Info().Int("symbols", table.Len()).Msg("symbol table refreshed")
}

// Symbols returns the installed table. Callers must not modify it.
func (f *Feed) Symbols() *SymbolTable {
	f.symMu.RLock()
	defer f.symMu.RUnlock()
	return f.symbols
}

// Book returns the cached book for a normalized symbol.
func (f *Feed) Book(symbol string) (*core.OrderBook, bool) {
	f.bookMu.Lock()
	defer f.bookMu.Unlock()
	b, ok := f.books[symbol]
	return b, ok
}

// ValidateSubscriptions rejects subscription sets the feed cannot serve:
// authenticated channels and symbols missing from the symbol table.
func (f *Feed) ValidateSubscriptions(subs map[core.Channel][]string) error {
	table := f.Symbols()
	for _, ch := range sortedChannels(subs) {
		if ch.IsAuthenticated() {
			return core.NewExchangeErrorWithCode(f.name, core.ErrorTypeConfiguration, 0,
				string(core.ErrCodeUnsupportedChannel),
				fmt.Sprintf("channel %s requires an authenticated session, which this feed does not support", ch)).
				Wrap(core.ErrAuthChannelUnsupported)
		}
		for _, sym := range subs[ch] {
			if _, ok := table.Native(sym); !ok {
				return core.NewExchangeErrorWithCode(f.name, core.ErrorTypeConfiguration, 0,
					string(core.ErrCodeUnknownSymbol), fmt.Sprintf("symbol %s is not listed", sym)).
					Wrap(core.ErrUnknownSymbol)
			}
		}
	}
	return nil
}

// Reset drops every cached book the connection carries on the depth channel
// and clears the instrument info map. Books owned by other connections stay.
func (f *Feed) Reset(conn Connection) {
	symbols := conn.Subscriptions()[core.ChannelL2Book]

	f.bookMu.Lock()
	for _, sym := range symbols {
		delete(f.books, sym)
	}
	f.bookMu.Unlock()

	f.symMu.Lock()
	f.instrumentInfo = make(map[string]InstrumentInfo)
	f.symMu.Unlock()

	f.logger.Debug().Str("conn", conn.ID()).Strs("symbols", symbols).Msg("reset connection state")
}

// Subscribe resets the connection's state and sends one SUBSCRIPTION frame per
// channel and symbol. It fails before writing anything if the subscription
// set contains an authenticated channel.
func (f *Feed) Subscribe(ctx context.Context, conn Connection) error {
	subs := conn.Subscriptions()
	if err := f.ValidateSubscriptions(subs); err != nil {
		return err
	}

	f.Reset(conn)

	table := f.Symbols()
	for _, ch := range sortedChannels(subs) {
		for _, sym := range subs[ch] {
			native, _ := table.Native(sym)
			stream, err := streamName(ch, native)
			if err != nil {
				return err
			}
			if err := f.send(ctx, conn, subscriptionRequest{Method: "SUBSCRIPTION", Params: []string{stream}}); err != nil {
				return fmt.Errorf("subscribe %s: %w", stream, err)
			}
			f.logger.Debug().Str("conn", conn.ID()).Str("stream", stream).Msg("subscription sent")
		}
	}
	return nil
}

type subscriptionRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
}

// Authenticate sends the signed handshake if any channel on conn needs it.
func (f *Feed) Authenticate(ctx context.Context, conn Connection) error {
	if !needsAuth(conn.Subscriptions()) {
		return nil
	}

	key, ok := f.keys.Current()
	if !ok {
		return core.NewExchangeErrorWithCode(f.name, core.ErrorTypeAuthentication, 0,
			string(core.ErrCodeNoCredentials), "no usable api key").
			Wrap(core.ErrNoCredentials)
	}

	req, err := f.signer.Sign(key.Key, key.Secret)
	if err != nil {
		return err
	}
	if err := f.send(ctx, conn, req); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	f.keys.MarkUsed(key.ID)
	f.logger.Debug().Str("conn", conn.ID()).Str("key", key.String()).Msg("auth sent")
	return nil
}

func (f *Feed) send(ctx context.Context, conn Connection, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if f.limiter != nil {
		if err := f.limiter.WaitBucket(ctx, conn.ID()); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	return conn.Write(ctx, data)
}

// HandleMessage routes one inbound frame. Unrecognised frames are logged and
// dropped with a nil error so the read loop keeps going.
func (f *Feed) HandleMessage(connID string, data []byte, receipt time.Time) error {
	var frame mexcFrame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		return f.decodeError(fmt.Sprintf("decode frame: %v", err))
	}

	switch kind := classify(&frame); kind {
	case frameDepth:
		return f.handleBook(&frame, data, receipt)
	case frameOrder:
		return f.handleOrder(&frame)
	case frameControl:
		f.logger.Debug().Str("conn", connID).Str("msg", frame.Msg).Msg("control reply")
		return nil
	default:
		f.logger.Warn().Str("conn", connID).Str("channel", frame.Channel).Bytes("raw", data).Msg("unhandled message type")
		return nil
	}
}

// handleBook replaces the cached book for the frame's symbol and emits one
// update. Nothing is cached or emitted if any field fails to decode.
func (f *Feed) handleBook(frame *mexcFrame, raw []byte, receipt time.Time) error {
	native := nativeSymbol(frame)
	symbol, ok := f.Symbols().Normalized(native)
	if !ok {
		return core.NewExchangeErrorWithCode(f.name, core.ErrorTypeDecode, 0,
			string(core.ErrCodeUnknownSymbol), fmt.Sprintf("no mapping for native symbol %q", native)).
			Wrap(core.ErrUnknownSymbol)
	}

	if len(frame.Data) == 0 {
		return f.decodeError(fmt.Sprintf("%s: depth frame without data", symbol))
	}
	var data mexcDepthData
	if err := sonic.Unmarshal(frame.Data, &data); err != nil {
		return f.decodeError(fmt.Sprintf("%s: decode depth: %v", symbol, err))
	}

	book, err := f.normalizer.NormalizeDepth(&data, symbol, f.config.MaxDepth)
	if err != nil {
		return f.decodeError(fmt.Sprintf("%s: %v", symbol, err))
	}
	ts, err := NormalizeTimestamp(frame.Time)
	if err != nil {
		return f.decodeError(fmt.Sprintf("%s: %v", symbol, err))
	}

	f.bookMu.Lock()
	f.books[symbol] = book
	f.bookMu.Unlock()

	f.emit(&core.BookUpdate{
		Exchange:  f.name,
		Symbol:    symbol,
		Book:      book,
		Timestamp: ts,
		Receipt:   float64(receipt.UnixNano()) / 1e9,
		Raw:       raw,
	})
	return nil
}

// handleOrder rejects private order frames; order tracking is not built.
func (f *Feed) handleOrder(frame *mexcFrame) error {
	return core.NewExchangeErrorWithCode(f.name, core.ErrorTypeUnimplemented, 0,
		string(core.ErrCodeUnimplemented), fmt.Sprintf("order updates on %s are not supported", frame.Channel)).
		Wrap(core.ErrUnimplemented)
}

func (f *Feed) emit(update *core.BookUpdate) {
	f.handlerMu.RLock()
	handlers := f.handlers
	f.handlerMu.RUnlock()

	for _, h := range handlers {
		h(update)
	}
}

func (f *Feed) decodeError(msg string) error {
	return core.NewExchangeErrorWithCode(f.name, core.ErrorTypeDecode, 0,
		string(core.ErrCodeMalformedFrame), msg).
		Wrap(core.ErrMalformedFrame)
}

func needsAuth(subs map[core.Channel][]string) bool {
	for ch := range subs {
		if ch.IsAuthenticated() {
			return true
		}
	}
	return false
}

func sortedChannels(subs map[core.Channel][]string) []core.Channel {
	chans := make([]core.Channel, 0, len(subs))
	for ch := range subs {
		chans = append(chans, ch)
	}
	slices.Sort(chans)
	return chans
}
