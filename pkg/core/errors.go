package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType groups feed and venue failures by how a caller should react.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeNetwork
	ErrorTypeTimeout
	ErrorTypeRateLimit
	ErrorTypeAuthentication
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeServerError
	// ErrorTypeConfiguration is a subscription the feed can never serve.
	ErrorTypeConfiguration
	// ErrorTypeDecode is an inbound frame or REST body that could not be read.
	ErrorTypeDecode
	// ErrorTypeUnimplemented is a handler that exists but rejects all input.
	ErrorTypeUnimplemented
)

var errorTypeNames = [...]string{
	ErrorTypeUnknown:        "UNKNOWN",
	ErrorTypeNetwork:        "NETWORK",
	ErrorTypeTimeout:        "TIMEOUT",
	ErrorTypeRateLimit:      "RATE_LIMIT",
	ErrorTypeAuthentication: "AUTHENTICATION",
	ErrorTypeBadRequest:     "BAD_REQUEST",
	ErrorTypeNotFound:       "NOT_FOUND",
	ErrorTypeServerError:    "SERVER_ERROR",
	ErrorTypeConfiguration:  "CONFIGURATION",
	ErrorTypeDecode:         "DECODE",
	ErrorTypeUnimplemented:  "UNIMPLEMENTED",
}

func (t ErrorType) String() string {
	if t < 0 || int(t) >= len(errorTypeNames) {
		return errorTypeNames[ErrorTypeUnknown]
	}
	return errorTypeNames[t]
}

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrNoCredentials      = errors.New("no credentials configured")
	// ErrAuthChannelUnsupported rejects private channels on a public-only feed.
	ErrAuthChannelUnsupported = errors.New("authenticated channels are not supported")
	ErrUnimplemented          = errors.New("not implemented")
	// ErrUnknownSymbol means a symbol is absent from the loaded symbol table.
	ErrUnknownSymbol  = errors.New("unknown symbol")
	ErrMalformedFrame = errors.New("malformed frame")
)

// ExchangeError is the structured error every feed and REST path returns.
// StatusCode is zero for errors that never touched HTTP.
type ExchangeError struct {
	Type       ErrorType `json:"type"`
	StatusCode int       `json:"status_code"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Exchange   string    `json:"exchange"`
	Timestamp  time.Time `json:"timestamp"`

	cause error
}

func (e *ExchangeError) Error() string {
	status := fmt.Sprint(e.StatusCode)
	if e.Code != "" {
		status += "/" + e.Code
	}
	return fmt.Sprintf("[%s] %s (%s): %s", e.Exchange, e.Type, status, e.Message)
}

func (e *ExchangeError) Unwrap() error {
	return e.cause
}

func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// Wrap records cause so errors.Is sees the sentinel behind the ExchangeError.
func (e *ExchangeError) Wrap(cause error) *ExchangeError {
	e.cause = cause
	return e
}

func NewExchangeError(exchange string, errorType ErrorType, statusCode int, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

// NewExchangeErrorWithCode is NewExchangeError plus a venue or feed error code.
func NewExchangeErrorWithCode(exchange string, errorType ErrorType, statusCode int, code, message string) *ExchangeError {
	e := NewExchangeError(exchange, errorType, statusCode, message)
	e.Code = code
	return e
}

func errorTypeOf(err error) (ErrorType, bool) {
	var e *ExchangeError
	if !errors.As(err, &e) {
		return ErrorTypeUnknown, false
	}
	return e.Type, true
}

func isType(err error, want ErrorType) bool {
	t, ok := errorTypeOf(err)
	return ok && t == want
}

func IsNetworkError(err error) bool { return isType(err, ErrorTypeNetwork) }

// IsRateLimitError reports a venue throttle. Retry after a delay.
func IsRateLimitError(err error) bool { return isType(err, ErrorTypeRateLimit) }

func IsAuthenticationError(err error) bool { return isType(err, ErrorTypeAuthentication) }

func IsConfigurationError(err error) bool { return isType(err, ErrorTypeConfiguration) }

func IsDecodeError(err error) bool { return isType(err, ErrorTypeDecode) }

// IsTerminalError reports errors that will fail the same way on retry.
func IsTerminalError(err error) bool {
	t, ok := errorTypeOf(err)
	if !ok {
		return false
	}
	switch t {
	case ErrorTypeConfiguration, ErrorTypeUnimplemented, ErrorTypeNotFound:
		return true
	}
	return false
}
