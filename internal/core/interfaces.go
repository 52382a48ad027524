package core

import "github.com/dkeye/Relay/internal/domain"

// Frame is one raw websocket text payload.
type Frame []byte

// Conn abstracts a session's transport endpoint.
// Owned by the adapter; the adapter must close it when its pumps exit.
type Conn interface {
	TrySend(Frame) error
	CloseWith(code int, reason string)
}

// RoomInfo is a read-only view for the admin API (no transport fields).
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	ClientCount int           `json:"clientCount"`
	HostOnline  bool          `json:"hostOnline"`
}
