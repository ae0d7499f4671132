package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Exhausted(t *testing.T) {
	limiter := New(5, time.Second)

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background()), "request %d should be allowed", i+1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx), "request 6 should be blocked")

	m := limiter.Metrics()
	assert.Equal(t, int64(6), m.TotalRequests)
	assert.Equal(t, int64(5), m.AllowedRequests)
	assert.Equal(t, int64(1), m.DeniedRequests)
}

func TestRateLimiter_WaitN(t *testing.T) {
	limiter := New(10, 100*time.Millisecond)

	require.NoError(t, limiter.WaitN(context.Background(), 5))
	require.NoError(t, limiter.WaitN(context.Background(), 0))
	require.NoError(t, limiter.Wait(context.Background()))
}

func TestRateLimiter_WaitN_ExceedsBurst(t *testing.T) {
	limiter := New(2, time.Second)

	err := limiter.WaitN(context.Background(), 3)
	assert.Error(t, err)
	assert.Equal(t, int64(1), limiter.Metrics().DeniedRequests)
}

func TestRateLimiter_Wait_ContextCancellation(t *testing.T) {
	limiter := New(1, time.Second)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}

func TestRateLimiter_Buckets(t *testing.T) {
	limiter := New(1, time.Second)

	require.NoError(t, limiter.WaitBucket(context.Background(), "conn-a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.WaitBucket(ctx, "conn-a"), "second message within the window should block")

	require.NoError(t, limiter.WaitBucket(context.Background(), "conn-b"))
	assert.Equal(t, int32(2), limiter.Metrics().BucketCount)

	limiter.Forget("conn-a")
	limiter.Forget("conn-a")
	assert.Equal(t, int32(1), limiter.Metrics().BucketCount)
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter := New(1000, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = limiter.WaitBucket(context.Background(), "shared")
		}()
	}
	wg.Wait()

	m := limiter.Metrics()
	assert.Equal(t, int64(50), m.TotalRequests)
	assert.Equal(t, int32(1), m.BucketCount)
}
