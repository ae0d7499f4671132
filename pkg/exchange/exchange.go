package exchange

import (
	"context"

	"mexcfeed/pkg/core"
)

// Feed is the venue-agnostic surface of a market data adapter: a symbol
// table loaded over REST, a websocket that keeps per-symbol books current,
// and on-demand REST snapshots.
type Feed interface {
	Name() string
	Version() string

	LoadSymbols(ctx context.Context) error
	Connect(ctx context.Context) error
	Close() error

	OnBook(h func(*core.BookUpdate))
	Book(symbol string) (*core.OrderBook, bool)

	GetOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error)
	ServerTime(ctx context.Context) (float64, error)
}
