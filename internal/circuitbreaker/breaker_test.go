package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(fail, success int, timeout time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	b := New(Config{FailThreshold: fail, SuccessThreshold: success, Timeout: timeout})
	b.now = clock.Now
	return b, clock
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF_OPEN"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 1, time.Second)

	for i := 0; i < 2; i++ {
		assert.True(t, b.Allow())
		b.Record(false)
		assert.Equal(t, StateClosed, b.State())
	}

	assert.True(t, b.Allow())
	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.Equal(t, int64(1), b.Metrics().RejectedRequests)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(2, 1, time.Second)

	b.Record(false)
	b.Record(true)
	b.Record(false)
	assert.Equal(t, StateClosed, b.State())
	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clock := newTestBreaker(1, 2, time.Second)

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(500 * time.Millisecond)
	assert.False(t, b.Allow())

	clock.Advance(600 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	b.Record(true)
	assert.Equal(t, StateHalfOpen, b.State())
	b.Record(true)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(1, 2, time.Second)

	b.Record(false)
	clock.Advance(2 * time.Second)
	assert.True(t, b.Allow())

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1, 1, time.Minute)

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	assert.Equal(t, "CLOSED", b.Metrics().CurrentState)
}
