package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Relay/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// wsConn wraps a gorilla connection behind core.Conn. All data writes
// happen on the write pump; CloseWith uses a control frame, which
// gorilla allows concurrently with data writes.
type wsConn struct {
	conn         *websocket.Conn
	send         chan core.Frame
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func newWSConn(ws *websocket.Conn, sendBuf int, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:         ws,
		send:         make(chan core.Frame, sendBuf),
		writeTimeout: writeTimeout,
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) CloseWith(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
	_ = c.conn.Close()
}
