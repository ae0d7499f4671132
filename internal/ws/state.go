package ws

import "sync/atomic"

// ConnState is a point in the connection lifecycle. A client moves
// disconnected -> connecting -> connected, drops back to disconnected when the
// socket closes, passes through reconnecting while backing off, and ends in
// closed, which it never leaves.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	names := [...]string{"disconnected", "connecting", "connected", "reconnecting", "closed"}
	if s < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

// State is a ConnState shared between the read loop, the reconnect loop and callers.
type State struct {
	v atomic.Int32
}

func (s *State) Load() ConnState {
	return ConnState(s.v.Load())
}

// Store sets the state unless the client is already closed.
func (s *State) Store(to ConnState) {
	for {
		cur := s.v.Load()
		if ConnState(cur) == StateClosed {
			return
		}
		if s.v.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

func (s *State) CompareAndSwap(from, to ConnState) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}

// Transition moves to `to` if the current state is one of from, and reports
// whether it did.
func (s *State) Transition(to ConnState, from ...ConnState) bool {
	for _, f := range from {
		if s.CompareAndSwap(f, to) {
			return true
		}
	}
	return false
}

// Close moves to StateClosed and reports whether this call did it.
func (s *State) Close() bool {
	for {
		cur := s.v.Load()
		if ConnState(cur) == StateClosed {
			return false
		}
		if s.v.CompareAndSwap(cur, int32(StateClosed)) {
			return true
		}
	}
}
