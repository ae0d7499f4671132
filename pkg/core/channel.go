package core

import (
	"fmt"
	"strings"
)

// Channel is a venue-agnostic stream a feed can subscribe to.
type Channel int

const (
	// ChannelL2Book streams price-aggregated order book snapshots.
	ChannelL2Book Channel = iota
	// ChannelOrderInfo streams private order updates and needs a signed session.
	ChannelOrderInfo
)

func (c Channel) String() string {
	names := [...]string{"l2_book", "order_info"}
	if c < 0 || int(c) >= len(names) {
		return "unknown"
	}
	return names[c]
}

// IsAuthenticated reports whether the channel requires an authenticated session.
func (c Channel) IsAuthenticated() bool {
	return c == ChannelOrderInfo
}

// ParseChannel accepts the names produced by String.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l2_book":
		return ChannelL2Book, nil
	case "order_info":
		return ChannelOrderInfo, nil
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}
