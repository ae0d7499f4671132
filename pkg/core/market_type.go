package core

// MarketType is the product family a symbol trades in. The feed only carries
// spot; futures exists so normalized PERP symbols parse.
type MarketType int

const (
	MarketTypeSpot MarketType = iota
	MarketTypeFutures
)

var marketTypes = [...]struct{ name, tag string }{
	MarketTypeSpot:    {"spot", "SPOT"},
	MarketTypeFutures: {"futures", "PERP"},
}

func (m MarketType) valid() bool {
	return m >= 0 && int(m) < len(marketTypes)
}

func (m MarketType) String() string {
	if !m.valid() {
		return "unknown"
	}
	return marketTypes[m].name
}

// Tag is the last segment of a normalized symbol, e.g. SPOT in BTC-USDT-SPOT.
func (m MarketType) Tag() string {
	if !m.valid() {
		return ""
	}
	return marketTypes[m].tag
}

func ParseMarketType(tag string) (MarketType, bool) {
	for i, mt := range marketTypes {
		if mt.tag == tag {
			return MarketType(i), true
		}
	}
	return 0, false
}
