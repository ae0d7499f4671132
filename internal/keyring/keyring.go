package keyring

import (
	"fmt"
	"sync"
	"time"
)

// KeyRing holds the API keys a feed may sign its private-channel handshake
// with. The first key not marked Disabled is the one in use.
type KeyRing struct {
	mu   sync.RWMutex
	keys []*APIKey
	now  func() time.Time
}

type APIKey struct {
	ID       string
	Key      string
	Secret   string
	Disabled bool
	LastUsed time.Time
}

// String masks the key so it can be logged.
func (k *APIKey) String() string {
	return fmt.Sprintf("APIKey{ID:%s, Key:%s}", k.ID, maskKey(k.Key))
}

func NewKeyRing(keys ...APIKey) *KeyRing {
	r := &KeyRing{
		keys: make([]*APIKey, 0, len(keys)),
		now:  time.Now,
	}
	for _, k := range keys {
		cp := k
		r.keys = append(r.keys, &cp)
	}
	return r
}

// Current returns a copy of the key in use. ok is false when no key is enabled.
func (k *KeyRing) Current() (APIKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, key := range k.keys {
		if !key.Disabled {
			return *key, true
		}
	}
	return APIKey{}, false
}

// MarkUsed stamps the key after a handshake went out with it.
func (k *KeyRing) MarkUsed(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, key := range k.keys {
		if key.ID == id {
			key.LastUsed = k.now()
			return
		}
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
