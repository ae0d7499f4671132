package mexc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"mexcfeed/pkg/core"
)

// wireText keeps a scalar JSON token as text: strings are unquoted and numbers
// are kept verbatim, so decimals never pass through float64.
type wireText struct {
	text  string
	valid bool
}

func (w *wireText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*w = wireText{}
	case data[0] == '"':
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("unquote %s: %w", data, err)
		}
		*w = wireText{text: s, valid: true}
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("expected scalar, got %s", data)
	default:
		*w = wireText{text: string(data), valid: true}
	}
	return nil
}

func (w wireText) String() string {
	return w.text
}

// wireStatus decodes an instrument status the way a truthiness check would:
// true, a non-zero number or a non-empty string is active; false, 0, "" and
// null are not.
type wireStatus bool

func (s *wireStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*s = false
	case bytes.Equal(data, []byte("true")):
		*s = true
	case data[0] == '"', data[0] == '[', data[0] == '{':
		*s = len(data) > 2
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("parse status %s: %w", data, err)
		}
		*s = f != 0
	}
	return nil
}

// mexcSymbolInfo is one record of GET /api/v3/exchangeInfo.
type mexcSymbolInfo struct {
	Symbol     string     `json:"symbol"`
	Status     wireStatus `json:"status"`
	BaseAsset  string     `json:"baseAsset"`
	QuoteAsset string     `json:"quoteAsset"`
}

type mexcExchangeInfo struct {
	Timezone   string           `json:"timezone"`
	ServerTime int64            `json:"serverTime"`
	Symbols    []mexcSymbolInfo `json:"symbols"`
}

type mexcLevel struct {
	Price wireText `json:"p"`
	Size  wireText `json:"v"`
}

// mexcDepthData is a depth frame's "d" block. Nil sides mean the key was
// absent or null; an empty array is a valid empty side.
type mexcDepthData struct {
	Bids    *[]mexcLevel `json:"bids"`
	Asks    *[]mexcLevel `json:"asks"`
	Event   string      `json:"e"`
	Version string      `json:"r"`
}

// mexcFrame is the envelope shared by every inbound websocket message.
// Control replies carry id/code/msg and no channel.
type mexcFrame struct {
	Channel string          `json:"c"`
	Symbol  string          `json:"s"`
	Time    wireText        `json:"t"`
	Data    json.RawMessage `json:"d"`

	ID   *int64 `json:"id"`
	Code *int   `json:"code"`
	Msg  string `json:"msg"`
}

// mexcDepthSnapshot is the REST depth response; levels are [price, size] pairs.
type mexcDepthSnapshot struct {
	LastUpdateID int64        `json:"lastUpdateId"`
	Bids         [][]wireText `json:"bids"`
	Asks         [][]wireText `json:"asks"`
}

type mexcServerTime struct {
	ServerTime wireText `json:"serverTime"`
}

// InstrumentInfo is reserved for per-symbol metadata attached to a symbol
// table refresh. It is cleared on every connection reset.
type InstrumentInfo struct {
	Native string
	Symbol core.Symbol
}

// Normalizer converts MEXC wire structures to canonical core types.
type Normalizer struct {
	exchange string
}

func NewNormalizer(exchange string) *Normalizer {
	return &Normalizer{exchange: exchange}
}

// NormalizeSymbols builds a fresh symbol table from an exchangeInfo payload.
// Inactive records are skipped. When two records normalize to the same
// symbol, the later one wins. The returned info map is always empty.
func (n *Normalizer) NormalizeSymbols(info *mexcExchangeInfo) (*SymbolTable, map[string]InstrumentInfo) {
	table := NewSymbolTable()
	for _, rec := range info.Symbols {
		if !rec.Status {
			continue
		}
		sym := core.NewSymbol(rec.BaseAsset, rec.QuoteAsset, core.MarketTypeSpot)
		table.Add(sym.Normalized(), rec.Symbol)
	}
	return table, make(map[string]InstrumentInfo)
}

// NormalizeDepth builds a new book from a depth frame's data block, bids first
// then asks. Any malformed level fails the whole book.
func (n *Normalizer) NormalizeDepth(data *mexcDepthData, symbol string, maxDepth int) (*core.OrderBook, error) {
	if data.Bids == nil || data.Asks == nil {
		return nil, fmt.Errorf("depth data needs both bids and asks")
	}
	book := core.NewOrderBook(n.exchange, symbol, maxDepth)

	if err := n.fillSide(book.Bids, *data.Bids); err != nil {
		return nil, fmt.Errorf("normalize bids: %w", err)
	}
	if err := n.fillSide(book.Asks, *data.Asks); err != nil {
		return nil, fmt.Errorf("normalize asks: %w", err)
	}
	book.Truncate()
	return book, nil
}

func (n *Normalizer) fillSide(side *core.BookSide, levels []mexcLevel) error {
	for i, lvl := range levels {
		var price, size apd.Decimal
		if err := parseDecimal(&price, lvl.Price.text); err != nil {
			return fmt.Errorf("level %d price: %w", i, err)
		}
		if err := parseDecimal(&size, lvl.Size.text); err != nil {
			return fmt.Errorf("level %d size: %w", i, err)
		}
		side.Set(price, size)
	}
	return nil
}

// NormalizeDepthSnapshot converts a REST depth response to a book.
func (n *Normalizer) NormalizeDepthSnapshot(data *mexcDepthSnapshot, symbol string, maxDepth int) (*core.OrderBook, error) {
	book := core.NewOrderBook(n.exchange, symbol, maxDepth)
	for _, pair := range []struct {
		side   *core.BookSide
		levels [][]wireText
	}{{book.Bids, data.Bids}, {book.Asks, data.Asks}} {
		for i, lvl := range pair.levels {
			if len(lvl) < 2 {
				return nil, fmt.Errorf("%s level %d: expected [price, size]", pair.side.Side(), i)
			}
			var price, size apd.Decimal
			if err := parseDecimal(&price, lvl[0].text); err != nil {
				return nil, fmt.Errorf("%s level %d price: %w", pair.side.Side(), i, err)
			}
			if err := parseDecimal(&size, lvl[1].text); err != nil {
				return nil, fmt.Errorf("%s level %d size: %w", pair.side.Side(), i, err)
			}
			pair.side.Set(price, size)
		}
	}
	book.Truncate()
	return book, nil
}

// NormalizeTimestamp converts an exchange timestamp to float epoch seconds.
// Integers and numeric strings are epoch milliseconds; time.Time values use
// their own instant.
func NormalizeTimestamp(ts any) (float64, error) {
	switch v := ts.(type) {
	case time.Time:
		return float64(v.UnixNano()) / 1e9, nil
	case int:
		return float64(v) / 1000.0, nil
	case int64:
		return float64(v) / 1000.0, nil
	case uint64:
		return float64(v) / 1000.0, nil
	case json.Number:
		return msStringToSeconds(v.String())
	case string:
		return msStringToSeconds(v)
	case wireText:
		if !v.valid {
			return 0, fmt.Errorf("missing timestamp")
		}
		return msStringToSeconds(v.text)
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", ts)
	}
}

func msStringToSeconds(s string) (float64, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return float64(ms) / 1000.0, nil
}

func parseDecimal(dest *apd.Decimal, s string) error {
	if s == "" {
		return fmt.Errorf("empty decimal")
	}

	_, _, err := apd.BaseContext.SetString(dest, s)
	if err != nil {
		return fmt.Errorf("set decimal from string: %w", err)
	}
	if dest.Form != apd.Finite {
		return fmt.Errorf("non-finite decimal %q", s)
	}
	return nil
}
