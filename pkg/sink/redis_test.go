package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mexcfeed/pkg/core"
)

type hsetCall struct {
	Key    string
	Fields map[string]string
}

// mockRedis records every HSet call.
type mockRedis struct {
	mu    sync.Mutex
	calls []hsetCall
	err   error
}

func (m *mockRedis) HSet(_ context.Context, key string, values ...any) error {
	fields := make(map[string]string)
	for i := 0; i+1 < len(values); i += 2 {
		k, _ := values[i].(string)
		v, _ := values[i+1].(string)
		fields[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, hsetCall{Key: key, Fields: fields})
	return m.err
}

func (m *mockRedis) getCalls() []hsetCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]hsetCall(nil), m.calls...)
}

func dec(t *testing.T, s string) apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return *d
}

func update(t *testing.T, bid, ask string) *core.BookUpdate {
	book := core.NewOrderBook("mexc", "BTC-USDT-SPOT", 10)
	book.Bids.Set(dec(t, bid), dec(t, "1"))
	book.Bids.Set(dec(t, "1"), dec(t, "1"))
	book.Asks.Set(dec(t, ask), dec(t, "1"))
	book.Asks.Set(dec(t, "999"), dec(t, "1"))
	return &core.BookUpdate{
		Exchange:  "mexc",
		Symbol:    "BTC-USDT-SPOT",
		Book:      book,
		Timestamp: 1700000000.123,
	}
}

func TestRedisWriter_HSetCommand(t *testing.T) {
	mock := &mockRedis{}
	rw := NewRedisWriter(mock, 8)

	require.NoError(t, rw.write(context.Background(), update(t, "100.5", "101.0")))

	calls := mock.getCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "book:mexc:BTC-USDT-SPOT", calls[0].Key)
	assert.Equal(t, map[string]string{"bid": "100.5", "ask": "101.0", "ts": "1700000000123"}, calls[0].Fields)
}

func TestRedisWriter_DuplicateSuppression(t *testing.T) {
	mock := &mockRedis{}
	rw := NewRedisWriter(mock, 8)
	ctx := context.Background()

	require.NoError(t, rw.write(ctx, update(t, "100", "101")))
	require.NoError(t, rw.write(ctx, update(t, "100", "101")))
	require.NoError(t, rw.write(ctx, update(t, "100", "102")))

	assert.Len(t, mock.getCalls(), 2)
}

func TestRedisWriter_FailedWriteIsRetriedNextTime(t *testing.T) {
	mock := &mockRedis{err: errors.New("connection refused")}
	rw := NewRedisWriter(mock, 8)
	ctx := context.Background()

	assert.Error(t, rw.write(ctx, update(t, "100", "101")))

	mock.mu.Lock()
	mock.err = nil
	mock.mu.Unlock()

	require.NoError(t, rw.write(ctx, update(t, "100", "101")))
	assert.Len(t, mock.getCalls(), 2)
}

func TestRedisWriter_EmptySides(t *testing.T) {
	mock := &mockRedis{}
	rw := NewRedisWriter(mock, 8)

	u := &core.BookUpdate{Exchange: "mexc", Symbol: "ETH-USDT-SPOT", Book: core.NewOrderBook("mexc", "ETH-USDT-SPOT", 10)}
	require.NoError(t, rw.write(context.Background(), u))

	calls := mock.getCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "0", calls[0].Fields["bid"])
	assert.Equal(t, "0", calls[0].Fields["ask"])
}

func TestRedisWriter_Run(t *testing.T) {
	mock := &mockRedis{}
	rw := NewRedisWriter(mock, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go rw.Run(ctx)

	rw.Publish(update(t, "100", "101"))

	require.Eventually(t, func() bool {
		return len(mock.getCalls()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRedisWriter_PublishDropsWhenFull(t *testing.T) {
	rw := NewRedisWriter(&mockRedis{}, 1)

	rw.Publish(update(t, "100", "101"))
	rw.Publish(update(t, "100", "102"))

	assert.Equal(t, int64(1), rw.Dropped())
}
