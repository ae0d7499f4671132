package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Credentials are only needed for the private channel handshake.
type Credentials struct {
	APIKey    string `json:"api_key" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
}

// Config drives one feed: its REST client, its websocket and the books it
// builds. Subscriptions are keyed by channel and hold normalized symbols.
type Config struct {
	Exchange    string       `json:"exchange" validate:"required"`
	MarketType  MarketType   `json:"market_type"`
	Sandbox     bool         `json:"sandbox"`
	Credentials *Credentials `json:"credentials,omitempty" validate:"omitempty"`

	Timeout      time.Duration `json:"timeout" validate:"min=1ms"`
	MaxRetries   int           `json:"max_retries" validate:"min=0"`
	RetryWaitMin time.Duration `json:"retry_wait_min" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" validate:"min=0"`

	// RateLimitRequests is request weight per RateLimitPeriod, shared by all REST calls.
	RateLimitRequests int           `json:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout"`

	MaxDepth      int                  `json:"max_depth" validate:"min=1,max=5000"`
	Subscriptions map[Channel][]string `json:"subscriptions" validate:"dive,dive,required"`

	PingInterval     time.Duration `json:"ping_interval" validate:"min=0"`
	ReconnectWaitMin time.Duration `json:"reconnect_wait_min" validate:"min=0"`
	ReconnectWaitMax time.Duration `json:"reconnect_wait_max" validate:"min=0"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig matches MEXC's published spot limits: 500 weight per 10s,
// a ping well inside the 60s idle cutoff, and ten levels of depth.
func DefaultConfig(exchange string) *Config {
	return &Config{
		Exchange:     exchange,
		MarketType:   MarketTypeSpot,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: time.Second,

		RateLimitRequests: 500,
		RateLimitPeriod:   10 * time.Second,

		CircuitBreakerEnabled:          true,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,

		MaxDepth:      10,
		Subscriptions: map[Channel][]string{},

		PingInterval:     20 * time.Second,
		ReconnectWaitMin: time.Second,
		ReconnectWaitMax: 30 * time.Second,

		LogLevel: "info",
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.validateBreaker(); err != nil {
		return err
	}
	if c.ReconnectWaitMax < c.ReconnectWaitMin {
		return errors.New("ReconnectWaitMax is below ReconnectWaitMin")
	}
	return c.validateSubscriptions()
}

func (c *Config) validateBreaker() error {
	if !c.CircuitBreakerEnabled {
		return nil
	}
	switch {
	case c.CircuitBreakerFailThreshold <= 0:
		return errors.New("circuit breaker enabled with non-positive CircuitBreakerFailThreshold")
	case c.CircuitBreakerSuccessThreshold <= 0:
		return errors.New("circuit breaker enabled with non-positive CircuitBreakerSuccessThreshold")
	case c.CircuitBreakerTimeout <= 0:
		return errors.New("circuit breaker enabled with non-positive CircuitBreakerTimeout")
	}
	return nil
}

func (c *Config) validateSubscriptions() error {
	for ch, symbols := range c.Subscriptions {
		for _, s := range symbols {
			if _, err := ParseSymbol(s); err != nil {
				return fmt.Errorf("subscription %s: %w", ch, err)
			}
		}
	}
	return nil
}

// HasAuthenticatedChannel reports whether a non-empty subscription needs a signed session.
func (c *Config) HasAuthenticatedChannel() bool {
	for ch, symbols := range c.Subscriptions {
		if ch.IsAuthenticated() && len(symbols) > 0 {
			return true
		}
	}
	return false
}

func (c *Config) WithCredentials(creds *Credentials) *Config {
	c.Credentials = creds
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.MaxDepth = depth
	return c
}

// WithSubscription appends symbols to ch.
func (c *Config) WithSubscription(ch Channel, symbols ...string) *Config {
	if c.Subscriptions == nil {
		c.Subscriptions = map[Channel][]string{}
	}
	c.Subscriptions[ch] = append(c.Subscriptions[ch], symbols...)
	return c
}
