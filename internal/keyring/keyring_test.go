package keyring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRing_Empty(t *testing.T) {
	ring := NewKeyRing()

	_, ok := ring.Current()
	assert.False(t, ok)
	ring.MarkUsed("missing")
}

func TestKeyRing_CurrentSkipsDisabled(t *testing.T) {
	ring := NewKeyRing(
		APIKey{ID: "a", Key: "ka", Secret: "sa", Disabled: true},
		APIKey{ID: "b", Key: "kb", Secret: "sb"},
		APIKey{ID: "c", Key: "kc", Secret: "sc"},
	)

	cur, ok := ring.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.ID)

	all := NewKeyRing(APIKey{ID: "a", Disabled: true})
	_, ok = all.Current()
	assert.False(t, ok)
}

func TestKeyRing_MarkUsed(t *testing.T) {
	ring := NewKeyRing(APIKey{ID: "a", Key: "ka", Secret: "sa"})
	fixed := time.Unix(1700000000, 0)
	ring.now = func() time.Time { return fixed }

	ring.MarkUsed("a")
	cur, _ := ring.Current()
	assert.Equal(t, fixed, cur.LastUsed)
}

func TestKeyRing_CopiesInput(t *testing.T) {
	key := APIKey{ID: "a", Key: "ka", Secret: "sa"}
	ring := NewKeyRing(key)
	key.Disabled = true

	_, ok := ring.Current()
	assert.True(t, ok)
}

func TestAPIKey_StringMasksKey(t *testing.T) {
	k := APIKey{ID: "main", Key: "mx0vglABCDEFGH1234"}
	assert.Equal(t, "APIKey{ID:main, Key:mx0v****1234}", k.String())

	short := APIKey{ID: "s", Key: "abc"}
	assert.Equal(t, "APIKey{ID:s, Key:****}", short.String())
}
