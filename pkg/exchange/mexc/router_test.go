package mexc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mexcfeed/pkg/core"
)

func TestStreamName(t *testing.T) {
	name, err := streamName(core.ChannelL2Book, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "spot@public.limit.depth.v3.api@BTCUSDT@10", name)

	name, err = streamName(core.ChannelOrderInfo, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "spot@private.orders.v3.api", name)

	_, err = streamName(core.Channel(99), "BTCUSDT")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	id := int64(0)
	code := 0

	tests := []struct {
		name  string
		frame mexcFrame
		want  frameKind
	}{
		{"depth", mexcFrame{Channel: "spot@public.limit.depth.v3.api@BTCUSDT@10"}, frameDepth},
		{"order", mexcFrame{Channel: "spot@private.orders.v3.api"}, frameOrder},
		{"ack", mexcFrame{ID: &id, Code: &code, Msg: "spot@public.limit.depth.v3.api@BTCUSDT@10"}, frameControl},
		{"pong", mexcFrame{ID: &id, Code: &code, Msg: "PONG"}, frameControl},
		{"deals", mexcFrame{Channel: "spot@public.deals.v3.api@BTCUSDT"}, frameUnknown},
		{"foo", mexcFrame{Channel: "foo.bar"}, frameUnknown},
		{"empty", mexcFrame{}, frameUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(&tt.frame), tt.want.String())
		})
	}
}

func TestNativeSymbol(t *testing.T) {
	tests := []struct {
		name  string
		frame mexcFrame
		want  string
	}{
		{"symbol field", mexcFrame{Channel: "spot@public.limit.depth.v3.api@ETHUSDT@10", Symbol: "BTCUSDT"}, "BTCUSDT"},
		{"dotted symbol field", mexcFrame{Symbol: "spot.BTCUSDT"}, "BTCUSDT"},
		{"channel tag", mexcFrame{Channel: "spot@public.limit.depth.v3.api@ETHUSDT@10"}, "ETHUSDT"},
		{"dotted channel", mexcFrame{Channel: "depth.SOLUSDT"}, "SOLUSDT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nativeSymbol(&tt.frame))
		})
	}
}
