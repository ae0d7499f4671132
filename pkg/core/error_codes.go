package core

import "errors"

// ErrorCode is a stable identifier carried in ExchangeError.Code for errors
// raised by the feed itself. Venue errors carry the venue's numeric code.
type ErrorCode string

const (
	ErrCodeUnknownSymbol      ErrorCode = "UNKNOWN_SYMBOL"
	ErrCodeUnsupportedChannel ErrorCode = "UNSUPPORTED_CHANNEL"
	ErrCodeMalformedFrame     ErrorCode = "MALFORMED_FRAME"
	ErrCodeCircuitBreaker     ErrorCode = "CIRCUIT_BREAKER_OPEN"
	ErrCodeNoCredentials      ErrorCode = "NO_CREDENTIALS"
	ErrCodeUnimplemented      ErrorCode = "UNIMPLEMENTED"
)

func IsErrorCode(err error, code ErrorCode) bool {
	var e *ExchangeError
	return errors.As(err, &e) && ErrorCode(e.Code) == code
}
