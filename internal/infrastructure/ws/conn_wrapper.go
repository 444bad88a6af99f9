// Package ws adapts a gorilla websocket connection to the delivery sink.
package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/watchparty/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Conn is safe for one writer goroutine plus the read pump. Event frames are
// JSON text messages; keep-alives are ping control frames.
type Conn struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func NewConn(c *websocket.Conn) *Conn {
	return &Conn{conn: c}
}

func (c *Conn) WriteEvent(_ domain.EventType, _ uint64, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) WriteKeepAlive() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WatchDisconnect starts the read pump. The returned context is cancelled
// when the peer closes, a read fails, or no frame or pong arrives within
// readTimeout. Inbound messages are discarded.
func (c *Conn) WatchDisconnect(ctx context.Context, readTimeout time.Duration) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer cancel()
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
	}()

	return ctx
}

// Close sends a close frame with code and reason, then drops the connection.
func (c *Conn) Close(code int, reason string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	return errors.Join(err, c.conn.Close())
}
