package core

import (
	"sync/atomic"

	"github.com/dkeye/Relay/internal/domain"
)

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateActive
	StateClosed
)

// Session binds one live connection to its role and identity.
// Exclusively owned by its room once admitted; Closed is terminal and
// the instance is never reused.
type Session struct {
	Role     domain.Role
	ClientID domain.ClientID // empty for the host

	conn  Conn
	state atomic.Int32
}

func NewSession(role domain.Role, id domain.ClientID, conn Conn) *Session {
	s := &Session{Role: role, ClientID: id, conn: conn}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) Conn() Conn { return s.conn }

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// MarkOpen records that the stream handshake completed.
func (s *Session) MarkOpen() {
	s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

func (s *Session) markActive() {
	s.state.CompareAndSwap(int32(StateOpen), int32(StateActive))
}

// Close transitions to the terminal state and closes the stream.
// Safe to call more than once; only the first call reaches the conn.
func (s *Session) Close(code int, reason string) {
	if s.state.Swap(int32(StateClosed)) == int32(StateClosed) {
		return
	}
	s.conn.CloseWith(code, reason)
}
