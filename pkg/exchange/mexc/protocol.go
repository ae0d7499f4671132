package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"resty.dev/v3"

	"mexcfeed/pkg/core"
)

const (
	Name          = "mexc"
	ProductionURL = "https://api.mexc.com"
	WebsocketURL  = "wss://wbs.mexc.com/ws"

	defaultDepthLimit = 100
	maxDepthLimit     = 5000
)

// Protocol implements core.Protocol for the MEXC spot REST API.
type Protocol struct{}

var _ core.Protocol = (*Protocol)(nil)

func NewProtocol() *Protocol {
	return &Protocol{}
}

func (p *Protocol) Name() string {
	return Name
}

func (p *Protocol) Version() string {
	return "3"
}

// BaseURL returns the production URL; MEXC has no spot testnet.
func (p *Protocol) BaseURL(sandbox bool) string {
	return ProductionURL
}

func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpGetExchangeInfo,
		core.OpGetOrderBook,
		core.OpGetServerTime,
	}
}

// RateLimits returns MEXC's published limits: 500 weight per 10s per IP and
// 100 client messages per second per websocket.
func (p *Protocol) RateLimits() core.RateLimitConfig {
	return core.RateLimitConfig{
		RequestsPerSecond: 50,
		MessagesPerSecond: 100,
		Burst:             500,
	}
}

func (p *Protocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpGetExchangeInfo:
		return p.buildGetExchangeInfoRequest(params)
	case core.OpGetOrderBook:
		return p.buildGetOrderBookRequest(params)
	case core.OpGetServerTime:
		return core.NewRequest(http.MethodGet, "/api/v3/time"), nil
	default:
		return nil, fmt.Errorf("unsupported operation: %s", op)
	}
}

// ParseResponse returns *mexcExchangeInfo for OpGetExchangeInfo,
// *mexcDepthSnapshot for OpGetOrderBook and float64 epoch seconds for
// OpGetServerTime. Error bodies become *core.ExchangeError.
func (p *Protocol) ParseResponse(op core.Operation, resp *resty.Response) (any, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil response")
	}

	if resp.StatusCode() >= 400 {
		var apiErr mexcAPIError
		if err := sonic.Unmarshal(resp.Bytes(), &apiErr); err == nil && apiErr.Code != 0 {
			return nil, core.NewExchangeErrorWithCode(
				p.Name(),
				mapMexcError(resp.StatusCode(), apiErr.Code),
				resp.StatusCode(),
				strconv.Itoa(apiErr.Code),
				apiErr.Msg,
			)
		}
		return nil, core.NewExchangeError(
			p.Name(),
			mapMexcError(resp.StatusCode(), 0),
			resp.StatusCode(),
			fmt.Sprintf("HTTP error: %s", resp.Status()),
		)
	}

	switch op {
	case core.OpGetExchangeInfo:
		var data mexcExchangeInfo
		if err := sonic.Unmarshal(resp.Bytes(), &data); err != nil {
			return nil, fmt.Errorf("unmarshal exchange info: %w", err)
		}
		return &data, nil

	case core.OpGetOrderBook:
		var data mexcDepthSnapshot
		if err := sonic.Unmarshal(resp.Bytes(), &data); err != nil {
			return nil, fmt.Errorf("unmarshal order book: %w", err)
		}
		return &data, nil

	case core.OpGetServerTime:
		var data mexcServerTime
		if err := sonic.Unmarshal(resp.Bytes(), &data); err != nil {
			return nil, fmt.Errorf("unmarshal server time: %w", err)
		}
		ts, err := NormalizeTimestamp(data.ServerTime)
		if err != nil {
			return nil, fmt.Errorf("server time: %w", err)
		}
		return ts, nil

	default:
		return nil, fmt.Errorf("unsupported operation: %s", op)
	}
}

func (p *Protocol) buildGetExchangeInfoRequest(params core.Params) (*core.Request, error) {
	req := core.NewRequest(http.MethodGet, "/api/v3/exchangeInfo")
	req.SetWeight(10)
	if native := getStringParamWithDefault(params, "symbol", ""); native != "" {
		req.SetQuery("symbol", native)
	}
	return req, nil
}

func (p *Protocol) buildGetOrderBookRequest(params core.Params) (*core.Request, error) {
	native, err := getRequiredStringParam(params, "symbol")
	if err != nil {
		return nil, err
	}

	limit := getIntParamWithDefault(params, "limit", defaultDepthLimit)
	if limit < 1 || limit > maxDepthLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxDepthLimit, limit)
	}

	req := core.NewRequest(http.MethodGet, "/api/v3/depth")
	req.SetQuery("symbol", native)
	req.SetQuery("limit", limit)
	req.SetWeight(1)
	return req, nil
}

func signHMAC(message, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func getRequiredStringParam(params core.Params, key string) (string, error) {
	val, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}

	if str == "" {
		return "", fmt.Errorf("parameter %s cannot be empty", key)
	}

	return str, nil
}

func getStringParamWithDefault(params core.Params, key, def string) string {
	if val, ok := params[key]; ok {
		if str, ok := val.(string); ok && str != "" {
			return str
		}
	}
	return def
}

func getIntParamWithDefault(params core.Params, key string, def int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return def
}

type mexcAPIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// mapMexcError classifies an error body. MEXC mixes Binance-style negative
// codes with its own 3xxxx/7xxxxx ranges, so the HTTP status is the fallback.
func mapMexcError(status, code int) core.ErrorType {
	switch code {
	case -1121, -1100, -1102, 700004, 30002:
		return core.ErrorTypeBadRequest
	case 700001, 700002, 700003, 700005, 700006, 700007, 10072:
		return core.ErrorTypeAuthentication
	case 429, 510:
		return core.ErrorTypeRateLimit
	}

	switch {
	case status == http.StatusTooManyRequests, status == 418:
		return core.ErrorTypeRateLimit
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return core.ErrorTypeAuthentication
	case status == http.StatusNotFound:
		return core.ErrorTypeNotFound
	case status >= 500:
		return core.ErrorTypeServerError
	case status >= 400:
		return core.ErrorTypeBadRequest
	}
	return core.ErrorTypeUnknown
}
