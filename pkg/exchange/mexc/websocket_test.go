package mexc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mexcfeed/internal/ws"
	"mexcfeed/pkg/core"
)

func newTestWSClient(t *testing.T, f *Feed) *WSClient {
	t.Helper()
	c := NewWSClient(f, WSConfig{
		Subscriptions: map[core.Channel][]string{core.ChannelL2Book: {"BTC-USDT-SPOT"}},
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWSClient_Subscriptions(t *testing.T) {
	c := newTestWSClient(t, newTestFeed(t))

	subs := c.Subscriptions()
	assert.Equal(t, []string{"BTC-USDT-SPOT"}, subs[core.ChannelL2Book])

	subs[core.ChannelL2Book][0] = "ETH-USDT-SPOT"
	assert.Equal(t, []string{"BTC-USDT-SPOT"}, c.Subscriptions()[core.ChannelL2Book])
}

func TestWSClient_DropsStaleFrames(t *testing.T) {
	f := newTestFeed(t)
	updates := collect(f)
	c := newTestWSClient(t, f)

	c.mu.Lock()
	c.id, c.epoch = "conn-2", 2
	c.mu.Unlock()

	require.NoError(t, c.onFrame(ws.Frame{Data: []byte(btcDepthFrame), Epoch: 1, ReceivedAt: time.Now()}))
	assert.Empty(t, *updates)

	require.NoError(t, c.onFrame(ws.Frame{Data: []byte(btcDepthFrame), Epoch: 2, ReceivedAt: time.Now()}))
	assert.Len(t, *updates, 1)
}

func TestWSClient_WriteNotConnected(t *testing.T) {
	c := newTestWSClient(t, newTestFeed(t))

	err := c.Write(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ws.ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Write(ctx, []byte(`{}`)), context.Canceled)
}

func TestWSClient_ConnectHookNewIDPerEpoch(t *testing.T) {
	f := newTestFeed(t)
	c := newTestWSClient(t, f)

	// The hook's subscribe write fails while no socket is open; the id still rotates.
	_ = c.onConnect(context.Background(), 1)
	first := c.ID()
	_ = c.onConnect(context.Background(), 2)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, c.ID())
}
