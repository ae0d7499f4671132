package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	FailThreshold    int           `json:"fail_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	Timeout          time.Duration `json:"timeout"`
}

// Breaker stops REST calls after FailThreshold consecutive failures and lets
// a trial call through once Timeout has passed.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	failThreshold    int
	successThreshold int
	timeout          time.Duration
	openedAt         time.Time
	now              func() time.Time
	metrics          *Metrics
}

type Metrics struct {
	totalRequests   atomic.Int64
	successRequests atomic.Int64
	failedRequests  atomic.Int64
	rejected        atomic.Int64
	stateChanges    atomic.Int32
}

func New(config Config) *Breaker {
	return &Breaker{
		state:            StateClosed,
		failThreshold:    config.FailThreshold,
		successThreshold: config.SuccessThreshold,
		timeout:          config.Timeout,
		now:              time.Now,
		metrics:          &Metrics{},
	}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.metrics.totalRequests.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.timeout {
			b.metrics.rejected.Add(1)
			return false
		}
		b.transitionTo(StateHalfOpen)
	}
	return true
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(success bool) {
	if success {
		b.metrics.successRequests.Add(1)
	} else {
		b.metrics.failedRequests.Add(1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.failThreshold {
			b.trip()
		}
	case StateHalfOpen:
		if !success {
			b.trip()
			return
		}
		b.successes++
		if b.successes >= b.successThreshold {
			b.transitionTo(StateClosed)
		}
	case StateOpen:
		// late result from a call admitted before the breaker opened
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.transitionTo(StateOpen)
}

func (b *Breaker) transitionTo(newState State) {
	b.state = newState
	b.failures = 0
	b.successes = 0
	b.metrics.stateChanges.Add(1)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

func (b *Breaker) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:    b.metrics.totalRequests.Load(),
		SuccessRequests:  b.metrics.successRequests.Load(),
		FailedRequests:   b.metrics.failedRequests.Load(),
		RejectedRequests: b.metrics.rejected.Load(),
		StateChanges:     b.metrics.stateChanges.Load(),
		CurrentState:     b.State().String(),
	}
}

type MetricsSnapshot struct {
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	RejectedRequests int64
	StateChanges     int32
	CurrentState     string
}
