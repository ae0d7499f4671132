package core

import (
	"context"

	"resty.dev/v3"
)

// RateLimitConfig is what a venue publishes about its own limits.
// MessagesPerSecond applies to each websocket connection separately.
type RateLimitConfig struct {
	RequestsPerSecond int `json:"requests_per_second"`
	MessagesPerSecond int `json:"messages_per_second"`
	Burst             int `json:"burst"`
}

// Protocol translates operations into venue REST calls and venue responses
// back into canonical values. It holds no connection state.
type Protocol interface {
	Name() string
	Version() string
	BaseURL(sandbox bool) string
	SupportedOperations() []Operation
	RateLimits() RateLimitConfig

	BuildRequest(ctx context.Context, op Operation, params Params) (*Request, error)
	// ParseResponse reports venue error bodies as *ExchangeError.
	ParseResponse(op Operation, resp *resty.Response) (any, error)
}
