package core

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return *d
}

func TestSymbol_Normalized(t *testing.T) {
	s := NewSymbol("btc", "usdt", MarketTypeSpot)
	assert.Equal(t, "BTC-USDT-SPOT", s.Normalized())
	assert.Equal(t, "BTC-USDT-SPOT", s.String())

	parsed, err := ParseSymbol("BTC-USDT-SPOT")
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

func TestParseSymbol_Invalid(t *testing.T) {
	for _, in := range []string{"", "BTCUSDT", "BTC-USDT", "BTC-USDT-SWAPX", "-USDT-SPOT"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseSymbol(in)
			assert.Error(t, err)
		})
	}
}

func TestMarketType(t *testing.T) {
	assert.Equal(t, "spot", MarketTypeSpot.String())
	assert.Equal(t, "SPOT", MarketTypeSpot.Tag())
	mt, ok := ParseMarketType("PERP")
	assert.True(t, ok)
	assert.Equal(t, MarketTypeFutures, mt)
	_, ok = ParseMarketType("spot")
	assert.False(t, ok)
	assert.Equal(t, "unknown", MarketType(7).String())
	assert.Empty(t, MarketType(7).Tag())
}

func TestBookSide_EqualPricesShareLevel(t *testing.T) {
	side := NewBookSide(SideBid)
	side.Set(dec(t, "100.5"), dec(t, "1"))
	side.Set(dec(t, "100.50"), dec(t, "2"))

	assert.Equal(t, 1, side.Len())
	size, ok := side.Get(dec(t, "100.500"))
	require.True(t, ok)
	assert.Equal(t, "2", size.String())
}

func TestBookSide_Ordering(t *testing.T) {
	bids := NewBookSide(SideBid)
	asks := NewBookSide(SideAsk)
	for _, p := range []string{"99", "101.25", "100"} {
		bids.Set(dec(t, p), dec(t, "1"))
		asks.Set(dec(t, p), dec(t, "1"))
	}

	var bidPrices, askPrices []string
	for _, lvl := range bids.Levels() {
		bidPrices = append(bidPrices, lvl.Price.String())
	}
	for _, lvl := range asks.Levels() {
		askPrices = append(askPrices, lvl.Price.String())
	}
	assert.Equal(t, []string{"101.25", "100", "99"}, bidPrices)
	assert.Equal(t, []string{"99", "100", "101.25"}, askPrices)

	best, ok := asks.Best()
	require.True(t, ok)
	assert.Equal(t, "99", best.Price.String())

	_, ok = NewBookSide(SideAsk).Best()
	assert.False(t, ok)
}

func TestOrderBook_Truncate(t *testing.T) {
	book := NewOrderBook("mexc", "BTC-USDT-SPOT", 2)
	for _, p := range []string{"1", "2", "3"} {
		book.Bids.Set(dec(t, p), dec(t, "1"))
		book.Asks.Set(dec(t, p), dec(t, "1"))
	}
	book.Truncate()

	assert.Equal(t, 2, book.Bids.Len())
	assert.Equal(t, 2, book.Asks.Len())
	_, ok := book.Bids.Get(dec(t, "1"))
	assert.False(t, ok, "worst bid should be dropped")
	_, ok = book.Asks.Get(dec(t, "3"))
	assert.False(t, ok, "worst ask should be dropped")
	assert.Same(t, book.Bids, book.Side(SideBid))
}

func TestOrderBook_Top(t *testing.T) {
	book := NewOrderBook("mexc", "BTC-USDT-SPOT", 0)
	for _, p := range []string{"100.1", "100.3", "100.2"} {
		book.Bids.Set(dec(t, p), dec(t, "1"))
	}
	book.Asks.Set(dec(t, "101"), dec(t, "2"))

	assert.Equal(t, 3, book.Depth())

	bids := book.TopBids(2)
	require.Len(t, bids, 2)
	assert.Equal(t, "100.3", bids[0].Price.String())
	assert.Equal(t, "100.2", bids[1].Price.String())

	assert.Len(t, book.TopBids(0), 3)
	assert.Len(t, book.TopAsks(5), 1)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "l2_book", ChannelL2Book.String())
	assert.False(t, ChannelL2Book.IsAuthenticated())
	assert.True(t, ChannelOrderInfo.IsAuthenticated())
	assert.Equal(t, "unknown", Channel(7).String())

	ch, err := ParseChannel(" ORDER_INFO ")
	require.NoError(t, err)
	assert.Equal(t, ChannelOrderInfo, ch)

	_, err = ParseChannel("trades")
	assert.Error(t, err)
}
