package mexc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"mexcfeed/internal/circuitbreaker"
	httpClient "mexcfeed/internal/http"
	"mexcfeed/internal/ratelimit"
	"mexcfeed/pkg/core"
)

// RESTClient fetches instrument metadata, depth snapshots and server time.
// Every call is weighted against the rate limiter and gated by the breaker.
type RESTClient struct {
	config         *core.Config
	httpClient     *httpClient.Client
	rateLimiter    *ratelimit.RateLimiter
	circuitBreaker *circuitbreaker.Breaker
	protocol       core.Protocol
	normalizer     *Normalizer
	logger         zerolog.Logger
}

// NewRESTClient builds a client against baseURL. An empty baseURL means the
// production endpoint.
func NewRESTClient(config *core.Config, baseURL string) (*RESTClient, error) {
	protocol := NewProtocol()
	if baseURL == "" {
		baseURL = protocol.BaseURL(config.Sandbox)
	}

	hc, err := httpClient.NewClient(&httpClient.Config{
		BaseURL:      baseURL,
		Timeout:      config.Timeout,
		MaxRetries:   config.MaxRetries,
		RetryWaitMin: config.RetryWaitMin,
		RetryWaitMax: config.RetryWaitMax,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	var rl *ratelimit.RateLimiter
	if config.RateLimitRequests > 0 {
		rl = ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)
	}

	var cb *circuitbreaker.Breaker
	if config.CircuitBreakerEnabled {
		cb = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
		})
	}

	return &RESTClient{
		config:         config,
		httpClient:     hc,
		rateLimiter:    rl,
		circuitBreaker: cb,
		protocol:       protocol,
		normalizer:     NewNormalizer(config.Exchange),
		logger:         zerolog.Nop(),
	}, nil
}

func (r *RESTClient) SetLogger(logger zerolog.Logger) {
	r.logger = logger
	r.httpClient.SetLogger(logger)
}

func (r *RESTClient) Close() error {
	return r.httpClient.Close()
}

// ExchangeInfo returns the raw instrument listing.
func (r *RESTClient) ExchangeInfo(ctx context.Context) (*mexcExchangeInfo, error) {
	result, err := r.call(ctx, core.OpGetExchangeInfo, core.Params{})
	if err != nil {
		return nil, err
	}
	info, ok := result.(*mexcExchangeInfo)
	if !ok {
		return nil, fmt.Errorf("unexpected exchange info result %T", result)
	}
	return info, nil
}

// FetchOrderBook fetches a depth snapshot for a native symbol and labels the
// book with the given normalized symbol.
func (r *RESTClient) FetchOrderBook(ctx context.Context, native, symbol string, limit int) (*core.OrderBook, error) {
	params := core.Params{"symbol": native}
	if limit > 0 {
		params["limit"] = limit
	}

	result, err := r.call(ctx, core.OpGetOrderBook, params)
	if err != nil {
		return nil, err
	}
	snap, ok := result.(*mexcDepthSnapshot)
	if !ok {
		return nil, fmt.Errorf("unexpected order book result %T", result)
	}

	depth := r.config.MaxDepth
	if limit > 0 && limit < depth {
		depth = limit
	}
	book, err := r.normalizer.NormalizeDepthSnapshot(snap, symbol, depth)
	if err != nil {
		return nil, core.NewExchangeErrorWithCode(r.config.Exchange, core.ErrorTypeDecode, 0,
			string(core.ErrCodeMalformedFrame), fmt.Sprintf("%s: %v", symbol, err)).
			Wrap(core.ErrMalformedFrame)
	}
	return book, nil
}

// ServerTime returns the exchange clock in float epoch seconds.
func (r *RESTClient) ServerTime(ctx context.Context) (float64, error) {
	result, err := r.call(ctx, core.OpGetServerTime, core.Params{})
	if err != nil {
		return 0, err
	}
	ts, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected server time result %T", result)
	}
	return ts, nil
}

func (r *RESTClient) call(ctx context.Context, op core.Operation, params core.Params) (any, error) {
	req, err := r.protocol.BuildRequest(ctx, op, params)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}

	resp, err := r.doRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := r.protocol.ParseResponse(op, resp)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", op, err)
	}
	return result, nil
}

func (r *RESTClient) doRequest(ctx context.Context, req *core.Request) (*resty.Response, error) {
	if r.rateLimiter != nil {
		if err := r.rateLimiter.WaitN(ctx, req.Weight); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if r.circuitBreaker != nil && !r.circuitBreaker.Allow() {
		return nil, core.NewExchangeErrorWithCode(r.config.Exchange, core.ErrorTypeNetwork, 0,
			string(core.ErrCodeCircuitBreaker), "circuit breaker open").
			Wrap(core.ErrCircuitBreakerOpen)
	}

	resp, err := r.httpClient.Execute(ctx, req.Method, req.Path,
		httpClient.WithHeaders(req.Headers),
		httpClient.WithQueryParams(req.StringQuery()),
	)

	if r.circuitBreaker != nil {
		r.circuitBreaker.Record(err == nil && resp != nil && resp.StatusCode() < 500)
	}
	if err != nil {
		return nil, core.NewExchangeError(r.config.Exchange, core.ErrorTypeNetwork, 0, err.Error()).Wrap(err)
	}
	return resp, nil
}
