package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter meters two budgets. The global one is REST request weight per
// IP. Buckets are per websocket connection and meter outbound frames; each
// starts at the limiter's own rate and is dropped with Forget when its
// connection goes away.
type RateLimiter struct {
	global *rate.Limiter
	limit  rate.Limit
	burst  int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter

	waits  atomic.Int64
	denied atomic.Int64
}

// MetricsSnapshot is a point-in-time view of the limiter.
type MetricsSnapshot struct {
	TotalRequests   int64
	AllowedRequests int64
	DeniedRequests  int64
	BucketCount     int32
}

func every(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}

// New allows requests units per period, all of which may be spent at once.
func New(requests int, period time.Duration) *RateLimiter {
	limit := every(requests, period)
	return &RateLimiter{
		global:  rate.NewLimiter(limit, requests),
		limit:   limit,
		burst:   requests,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (r *RateLimiter) count(err error) error {
	r.waits.Add(1)
	if err != nil {
		r.denied.Add(1)
	}
	return err
}

func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.WaitN(ctx, 1)
}

// WaitN spends weight units of the global budget. A weight above the burst
// fails at once rather than blocking forever.
func (r *RateLimiter) WaitN(ctx context.Context, weight int) error {
	return r.count(r.global.WaitN(ctx, max(weight, 1)))
}

// WaitBucket spends one unit of the named bucket, creating it on first use.
func (r *RateLimiter) WaitBucket(ctx context.Context, bucket string) error {
	return r.count(r.bucket(bucket).Wait(ctx))
}

func (r *RateLimiter) bucket(name string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[name]
	if !ok {
		b = rate.NewLimiter(r.limit, r.burst)
		r.buckets[name] = b
	}
	return b
}

func (r *RateLimiter) Forget(bucket string) {
	r.mu.Lock()
	delete(r.buckets, bucket)
	r.mu.Unlock()
}

func (r *RateLimiter) Metrics() MetricsSnapshot {
	r.mu.Lock()
	n := len(r.buckets)
	r.mu.Unlock()

	total, denied := r.waits.Load(), r.denied.Load()
	return MetricsSnapshot{
		TotalRequests:   total,
		AllowedRequests: total - denied,
		DeniedRequests:  denied,
		BucketCount:     int32(n),
	}
}
