package mexc

import (
	"fmt"
	"strings"

	"mexcfeed/pkg/core"
)

const (
	depthChannelPrefix = "spot@public.limit.depth"
	orderChannelPrefix = "spot@private.orders"
)

// channelTemplates maps canonical channels to MEXC stream names. %s is the
// native symbol.
var channelTemplates = map[core.Channel]string{
	core.ChannelL2Book:    "spot@public.limit.depth.v3.api@%s@10",
	core.ChannelOrderInfo: "spot@private.orders.v3.api",
}

// streamName fills a channel template with a native symbol.
func streamName(ch core.Channel, native string) (string, error) {
	tmpl, ok := channelTemplates[ch]
	if !ok {
		return "", fmt.Errorf("no stream for channel %s", ch)
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl, nil
	}
	return fmt.Sprintf(tmpl, native), nil
}

type frameKind int

const (
	frameUnknown frameKind = iota
	frameDepth
	frameOrder
	frameControl
)

var frameKindNames = [...]string{"unknown", "depth", "order", "control"}

func (k frameKind) String() string {
	if k < 0 || int(k) >= len(frameKindNames) {
		return frameKindNames[frameUnknown]
	}
	return frameKindNames[k]
}

// classify decides once what a frame is; HandleMessage switches on the result.
func classify(f *mexcFrame) frameKind {
	switch {
	case strings.HasPrefix(f.Channel, depthChannelPrefix):
		return frameDepth
	case strings.HasPrefix(f.Channel, orderChannelPrefix):
		return frameOrder
	case f.Channel == "" && (f.ID != nil || f.Code != nil) && f.Msg != "":
		return frameControl
	default:
		return frameUnknown
	}
}

// nativeSymbol pulls the instrument out of a frame. The "s" field wins when
// present; otherwise the symbol is the third "@" segment of the channel tag
// (spot@public.limit.depth.v3.api@BTCUSDT@10), falling back to the last
// dotted segment.
func nativeSymbol(f *mexcFrame) string {
	if f.Symbol != "" {
		parts := strings.Split(f.Symbol, ".")
		return parts[len(parts)-1]
	}
	if parts := strings.Split(f.Channel, "@"); len(parts) >= 3 {
		return parts[2]
	}
	parts := strings.Split(f.Channel, ".")
	return parts[len(parts)-1]
}
