package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Symbol identifies an instrument independently of any venue's spelling.
type Symbol struct {
	// Base is the asset being priced (e.g., "BTC").
	Base string `json:"base"`
	// Quote is the asset prices are expressed in (e.g., "USDT").
	Quote string `json:"quote"`
	// Kind is the market the instrument trades on.
	Kind MarketType `json:"kind"`
}

// NewSymbol builds a Symbol with upper-cased asset names.
func NewSymbol(base, quote string, kind MarketType) Symbol {
	return Symbol{
		Base:  strings.ToUpper(base),
		Quote: strings.ToUpper(quote),
		Kind:  kind,
	}
}

// Normalized renders the canonical key, e.g. "BTC-USDT-SPOT".
func (s Symbol) Normalized() string {
	return s.Base + "-" + s.Quote + "-" + s.Kind.Tag()
}

func (s Symbol) String() string {
	return s.Normalized()
}

// ParseSymbol is the inverse of Normalized.
func ParseSymbol(normalized string) (Symbol, error) {
	parts := strings.Split(normalized, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Symbol{}, fmt.Errorf("parse symbol %q: expected BASE-QUOTE-KIND", normalized)
	}
	kind, ok := ParseMarketType(parts[2])
	if !ok {
		return Symbol{}, fmt.Errorf("parse symbol %q: unknown kind %q", normalized, parts[2])
	}
	return NewSymbol(parts[0], parts[1], kind), nil
}

// Side selects one half of an order book.
type Side int

const (
	// SideBid holds resting buy interest, best price is the highest.
	SideBid Side = iota
	// SideAsk holds resting sell interest, best price is the lowest.
	SideAsk
)

func (s Side) String() string {
	return [...]string{"bid", "ask"}[s]
}

// PriceLevel is a single price and the quantity resting at it.
type PriceLevel struct {
	Price apd.Decimal `json:"price"`
	Size  apd.Decimal `json:"size"`
}

// BookSide maps price to size for one side of a book. Prices that compare
// equal as decimals (100.5 and 100.50) occupy the same level.
type BookSide struct {
	side   Side
	levels map[string]PriceLevel
}

// NewBookSide returns an empty side.
func NewBookSide(side Side) *BookSide {
	return &BookSide{
		side:   side,
		levels: make(map[string]PriceLevel),
	}
}

func priceKey(price *apd.Decimal) string {
	var reduced apd.Decimal
	reduced.Reduce(price)
	return reduced.Text('f')
}

// Side reports which half of the book this is.
func (b *BookSide) Side() Side {
	return b.side
}

// Set stores size at price, replacing any previous size at the same price.
func (b *BookSide) Set(price, size apd.Decimal) {
	b.levels[priceKey(&price)] = PriceLevel{Price: price, Size: size}
}

// Delete removes the level at price if present.
func (b *BookSide) Delete(price apd.Decimal) {
	delete(b.levels, priceKey(&price))
}

// Get returns the size at price.
func (b *BookSide) Get(price apd.Decimal) (apd.Decimal, bool) {
	lvl, ok := b.levels[priceKey(&price)]
	return lvl.Size, ok
}

// Len returns the number of distinct price levels.
func (b *BookSide) Len() int {
	return len(b.levels)
}

// Levels returns every level ordered best first: descending for bids,
// ascending for asks.
func (b *BookSide) Levels() []PriceLevel {
	out := make([]PriceLevel, 0, len(b.levels))
	for _, lvl := range b.levels {
		out = append(out, lvl)
	}
	slices.SortFunc(out, func(x, y PriceLevel) int {
		if b.side == SideBid {
			return y.Price.Cmp(&x.Price)
		}
		return x.Price.Cmp(&y.Price)
	})
	return out
}

// Best returns the top of this side.
func (b *BookSide) Best() (PriceLevel, bool) {
	levels := b.Levels()
	if len(levels) == 0 {
		return PriceLevel{}, false
	}
	return levels[0], true
}

// Truncate drops every level beyond the best depth levels.
func (b *BookSide) Truncate(depth int) {
	if depth <= 0 || len(b.levels) <= depth {
		return
	}
	for _, lvl := range b.Levels()[depth:] {
		b.Delete(lvl.Price)
	}
}

// OrderBook is a full snapshot for one instrument. A new one is built for
// every depth frame; books are never merged across frames.
type OrderBook struct {
	Exchange string    `json:"exchange"`
	Symbol   string    `json:"symbol"`
	MaxDepth int       `json:"max_depth"`
	Bids     *BookSide `json:"-"`
	Asks     *BookSide `json:"-"`
}

// NewOrderBook returns an empty book bounded at maxDepth levels per side.
// A maxDepth of zero leaves the book unbounded.
func NewOrderBook(exchange, symbol string, maxDepth int) *OrderBook {
	return &OrderBook{
		Exchange: exchange,
		Symbol:   symbol,
		MaxDepth: maxDepth,
		Bids:     NewBookSide(SideBid),
		Asks:     NewBookSide(SideAsk),
	}
}

// Side returns the requested half of the book.
func (o *OrderBook) Side(s Side) *BookSide {
	if s == SideBid {
		return o.Bids
	}
	return o.Asks
}

// Depth is the level count of the deeper side.
func (o *OrderBook) Depth() int {
	return max(o.Bids.Len(), o.Asks.Len())
}

// TopBids returns up to n bids, best first. n <= 0 returns all of them.
func (o *OrderBook) TopBids(n int) []PriceLevel {
	return top(o.Bids, n)
}

// TopAsks returns up to n asks, best first. n <= 0 returns all of them.
func (o *OrderBook) TopAsks(n int) []PriceLevel {
	return top(o.Asks, n)
}

func top(side *BookSide, n int) []PriceLevel {
	levels := side.Levels()
	if n > 0 && len(levels) > n {
		levels = levels[:n]
	}
	return levels
}

// Truncate enforces MaxDepth on both sides.
func (o *OrderBook) Truncate() {
	o.Bids.Truncate(o.MaxDepth)
	o.Asks.Truncate(o.MaxDepth)
}

// BookUpdate is the event emitted for every depth frame.
type BookUpdate struct {
	Exchange string     `json:"exchange"`
	Symbol   string     `json:"symbol"`
	Book     *OrderBook `json:"book"`
	// Timestamp is the exchange event time in epoch seconds.
	Timestamp float64 `json:"timestamp"`
	// Receipt is the local receive time in epoch seconds.
	Receipt float64 `json:"receipt"`
	// Raw is the frame the update was built from.
	Raw []byte `json:"-"`
}
