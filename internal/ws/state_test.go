package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Transition(t *testing.T) {
	var s State

	assert.True(t, s.Transition(StateConnecting, StateDisconnected, StateReconnecting))
	assert.Equal(t, StateConnecting, s.Load())

	assert.False(t, s.Transition(StateConnecting, StateDisconnected, StateReconnecting))

	s.Store(StateReconnecting)
	assert.True(t, s.Transition(StateConnecting, StateDisconnected, StateReconnecting))
}

func TestState_ClosedIsTerminal(t *testing.T) {
	var s State
	s.Store(StateConnected)

	assert.True(t, s.Close())
	assert.False(t, s.Close())

	s.Store(StateDisconnected)
	assert.Equal(t, StateClosed, s.Load())
	assert.False(t, s.Transition(StateConnecting, StateClosed-1, StateDisconnected))
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}
