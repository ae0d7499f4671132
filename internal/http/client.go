package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"
)

const contentTypeJSON = "application/json"

// ErrClosed is returned by requests issued after Close.
var ErrClosed = errors.New("http client closed")

var validate = validator.New()

// Config configures a Client. Retries are resty's, applied per request.
type Config struct {
	BaseURL      string            `validate:"required,url"`
	Timeout      time.Duration     `validate:"min=1ms"`
	MaxRetries   int               `validate:"min=0"`
	RetryWaitMin time.Duration     `validate:"min=0"`
	RetryWaitMax time.Duration     `validate:"min=0"`
	Headers      map[string]string `validate:"omitempty"`
}

// RequestOption mutates a request before it is sent.
type RequestOption func(*resty.Request)

// Client issues JSON requests against one base URL. Bodies are encoded and
// decoded with sonic.
type Client struct {
	rc     *resty.Client
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewClient(config *Config) (*Client, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{logger: zerolog.Nop()}

	c.rc = resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(config.RetryWaitMin).
		SetRetryMaxWaitTime(config.RetryWaitMax).
		SetHeaders(config.Headers)
	c.rc.AddContentTypeEncoder(contentTypeJSON, encodeJSON)
	c.rc.AddContentTypeDecoder(contentTypeJSON, decodeJSON)
	c.rc.AddRequestMiddleware(c.traceRequest)
	c.rc.AddResponseMiddleware(c.traceResponse)

	return c, nil
}

func encodeJSON(w io.Writer, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func decodeJSON(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, v)
}

func (c *Client) traceRequest(_ *resty.Client, req *resty.Request) error {
	c.logger.Debug().Str("method", req.Method).Str("url", req.URL).Msg("http request")
	return nil
}

func (c *Client) traceResponse(_ *resty.Client, resp *resty.Response) error {
	c.logger.Debug().
		Str("method", resp.Request.Method).
		Str("url", resp.Request.URL).
		Int("status", resp.StatusCode()).
		Int("size", len(resp.Bytes())).
		Msg("http response")
	return nil
}

// SetLogger must be called before the client is shared between goroutines.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rc.Close()
}

// Execute sends method to url, relative to the base URL. Only transport
// failures are errors; an error status comes back as a normal response.
func (c *Client) Execute(ctx context.Context, method, url string, opts ...RequestOption) (*resty.Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	req := c.rc.R().SetContext(ctx)
	for _, opt := range opts {
		opt(req)
	}
	return req.Execute(method, url)
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*resty.Response, error) {
	return c.Execute(ctx, resty.MethodGet, url, opts...)
}

func WithHeaders(headers map[string]string) RequestOption {
	return func(r *resty.Request) {
		if len(headers) > 0 {
			r.SetHeaders(headers)
		}
	}
}

func WithQueryParams(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		if len(params) > 0 {
			r.SetQueryParams(params)
		}
	}
}
