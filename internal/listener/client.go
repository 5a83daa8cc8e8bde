package listener

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// client wraps one websocket connection with a buffered send queue so a slow
// reader never blocks a broadcast.
type client struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	conn.SetReadLimit(maxMessageSize)
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// queue enqueues an outbound frame. If the client's buffer is full the frame
// is dropped; delivery is best-effort fan-out, not a reliable stream.
func (c *client) queue(data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		slog.Warn("dropping frame for slow websocket client", "addr", c.conn.RemoteAddr())
	}
}

// kick force-closes the connection. Safe to call multiple times and
// concurrently with the pumps.
func (c *client) kick() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readLoop delivers inbound frames to handle until the connection dies.
func (c *client) readLoop(handle func(raw []byte)) {
	defer c.kick()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read failed", "addr", c.conn.RemoteAddr(), "error", err)
			}
			return
		}
		handle(raw)
	}
}

// writeLoop drains the send queue onto the wire and keeps the connection
// alive with pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.kick()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
