package core

// Operation represents a REST action a feed can perform against an exchange.
type Operation int

const (
	// OpGetExchangeInfo retrieves the instrument list used to build the symbol table.
	OpGetExchangeInfo Operation = iota
	// OpGetOrderBook retrieves an order book depth snapshot.
	OpGetOrderBook
	// OpGetServerTime retrieves the exchange clock, used to check signer drift.
	OpGetServerTime
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	names := [...]string{
		"GET_EXCHANGE_INFO",
		"GET_ORDER_BOOK",
		"GET_SERVER_TIME",
	}
	if o < 0 || int(o) >= len(names) {
		return "UNKNOWN"
	}
	return names[o]
}
