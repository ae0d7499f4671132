// Package sink persists book updates outside the process.
package sink

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mexcfeed/pkg/core"
)

// RedisClient abstracts the Redis operations used by RedisWriter.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) error
}

// goRedis adapts *redis.Client to RedisClient.
type goRedis struct {
	client *redis.Client
}

// NewGoRedis wraps a go-redis client.
func NewGoRedis(client *redis.Client) RedisClient {
	return &goRedis{client: client}
}

func (g *goRedis) HSet(ctx context.Context, key string, values ...any) error {
	return g.client.HSet(ctx, key, values...).Err()
}

// DefaultBufferSize is how many updates may queue before Publish drops.
const DefaultBufferSize = 1024

type topOfBook struct {
	bid string
	ask string
}

// RedisWriter stores the top of every book under
//
//	Key:    book:{exchange}:{symbol}
//	Fields: bid, ask, ts
//
// Publish never blocks the feed; Run flushes the queue. Writes whose best
// bid and ask match the previous write for the key are skipped.
type RedisWriter struct {
	client RedisClient
	buf    chan *core.BookUpdate
	logger zerolog.Logger

	mu   sync.Mutex
	last map[string]topOfBook

	dropped atomic.Int64
}

func NewRedisWriter(client RedisClient, size int) *RedisWriter {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RedisWriter{
		client: client,
		buf:    make(chan *core.BookUpdate, size),
		logger: zerolog.Nop(),
		last:   make(map[string]topOfBook),
	}
}

func (rw *RedisWriter) SetLogger(logger zerolog.Logger) {
	rw.logger = logger
}

// Publish queues an update. It has the shape of a book handler so it can be
// passed straight to OnBook.
func (rw *RedisWriter) Publish(update *core.BookUpdate) {
	select {
	case rw.buf <- update:
	default:
		rw.dropped.Add(1)
	}
}

// Dropped returns how many updates were discarded because the queue was full.
func (rw *RedisWriter) Dropped() int64 {
	return rw.dropped.Load()
}

// Run writes queued updates until ctx is cancelled.
func (rw *RedisWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-rw.buf:
			if err := rw.write(ctx, update); err != nil {
				rw.logger.Warn().Err(err).Str("symbol", update.Symbol).Msg("redis write failed")
			}
		}
	}
}

func (rw *RedisWriter) write(ctx context.Context, update *core.BookUpdate) error {
	bid := bestPrice(update.Book.Bids)
	ask := bestPrice(update.Book.Asks)
	key := fmt.Sprintf("book:%s:%s", update.Exchange, update.Symbol)

	rw.mu.Lock()
	if prev, ok := rw.last[key]; ok && prev.bid == bid && prev.ask == ask {
		rw.mu.Unlock()
		return nil
	}
	rw.last[key] = topOfBook{bid: bid, ask: ask}
	rw.mu.Unlock()

	ts := strconv.FormatInt(int64(math.Round(update.Timestamp*1000)), 10)
	if err := rw.client.HSet(ctx, key, "bid", bid, "ask", ask, "ts", ts); err != nil {
		rw.mu.Lock()
		delete(rw.last, key)
		rw.mu.Unlock()
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// bestPrice returns the top price of a side, or "0" for an empty side.
func bestPrice(side *core.BookSide) string {
	lvl, ok := side.Best()
	if !ok {
		return "0"
	}
	return lvl.Price.Text('f')
}
