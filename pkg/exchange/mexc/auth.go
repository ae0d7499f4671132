package mexc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// authExpiry is how far ahead of now a signed handshake stays valid.
const authExpiry = 60 * time.Second

// AuthRequest is the private-channel handshake frame.
type AuthRequest struct {
	Op   string `json:"op"`
	Args []any  `json:"args"`
}

// Signer produces the signed handshake. It keeps no state besides its clock,
// so every call yields a fresh payload.
type Signer struct {
	now func() time.Time
}

type SignerOption func(*Signer)

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

func NewSigner(opts ...SignerOption) *Signer {
	s := &Signer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign builds {op: "auth", args: [keyID, expiresMs, signature]}. The expiry is
// whole seconds from now plus one minute, expressed in milliseconds, and the
// signature is hex HMAC-SHA256 of "GET/realtime" + expiry.
func (s *Signer) Sign(keyID, secret string) (*AuthRequest, error) {
	if keyID == "" || secret == "" {
		return nil, fmt.Errorf("sign auth request: key id and secret are required")
	}

	expires := (s.now().Unix() + int64(authExpiry/time.Second)) * 1000
	signature := signHMAC("GET/realtime"+strconv.FormatInt(expires, 10), secret)

	return &AuthRequest{
		Op:   "auth",
		Args: []any{keyID, expires, signature},
	}, nil
}

// Payload returns the encoded handshake frame.
func (s *Signer) Payload(keyID, secret string) ([]byte, error) {
	req, err := s.Sign(keyID, secret)
	if err != nil {
		return nil, err
	}
	data, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal auth request: %w", err)
	}
	return data, nil
}
