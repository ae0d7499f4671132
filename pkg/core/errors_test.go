package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "NETWORK", ErrorTypeNetwork.String())
	assert.Equal(t, "CONFIGURATION", ErrorTypeConfiguration.String())
	assert.Equal(t, "UNIMPLEMENTED", ErrorTypeUnimplemented.String())
	assert.Equal(t, "UNKNOWN", ErrorType(99).String())
	assert.Equal(t, "UNKNOWN", ErrorType(-1).String())
}

func TestExchangeError_Error(t *testing.T) {
	throttled := &ExchangeError{Exchange: "mexc", Type: ErrorTypeRateLimit, StatusCode: 429, Message: "too many requests"}
	assert.Equal(t, "[mexc] RATE_LIMIT (429): too many requests", throttled.Error())

	rejected := &ExchangeError{
		Exchange: "mexc",
		Type:     ErrorTypeConfiguration,
		Code:     "UNSUPPORTED_CHANNEL",
		Message:  "order_info requires an authenticated session",
	}
	assert.Equal(t, "[mexc] CONFIGURATION (0/UNSUPPORTED_CHANNEL): order_info requires an authenticated session", rejected.Error())
}

func TestNewExchangeErrorWithCode(t *testing.T) {
	err := NewExchangeErrorWithCode("mexc", ErrorTypeAuthentication, 401, "700002", "signature for this request is not valid")

	assert.Equal(t, "mexc", err.Exchange)
	assert.Equal(t, "700002", err.Code)
	assert.Equal(t, ErrorTypeAuthentication, err.Type)
	assert.Equal(t, 401, err.StatusCode)
	assert.False(t, err.Timestamp.IsZero())
}

func TestExchangeError_Unwrap(t *testing.T) {
	err := NewExchangeError("mexc", ErrorTypeUnimplemented, 0, "order updates").
		WithCode(ErrCodeUnimplemented).
		Wrap(ErrUnimplemented)
	wrapped := fmt.Errorf("handle frame: %w", err)

	assert.ErrorIs(t, wrapped, ErrUnimplemented)
	assert.NotErrorIs(t, wrapped, ErrUnknownSymbol)
	assert.True(t, IsErrorCode(wrapped, ErrCodeUnimplemented))
	assert.False(t, IsErrorCode(wrapped, ErrCodeUnknownSymbol))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		is       func(error) bool
		terminal bool
	}{
		{ErrorTypeNetwork, IsNetworkError, false},
		{ErrorTypeRateLimit, IsRateLimitError, false},
		{ErrorTypeAuthentication, IsAuthenticationError, false},
		{ErrorTypeConfiguration, IsConfigurationError, true},
		{ErrorTypeDecode, IsDecodeError, false},
		{ErrorTypeUnimplemented, nil, true},
		{ErrorTypeNotFound, nil, true},
		{ErrorTypeTimeout, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			err := fmt.Errorf("op: %w", NewExchangeError("mexc", tt.errType, 0, "boom"))
			assert.Equal(t, tt.terminal, IsTerminalError(err))
			if tt.is != nil {
				assert.True(t, tt.is(err))
				assert.False(t, tt.is(errors.New("plain")))
				assert.False(t, tt.is(nil))
			}
		})
	}

	assert.False(t, IsTerminalError(nil))
	assert.False(t, IsNetworkError(NewExchangeError("mexc", ErrorTypeDecode, 0, "bad price")))
}
