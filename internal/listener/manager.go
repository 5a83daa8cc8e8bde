package listener

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dragonslegacy/worldserver/internal/messaging"
	"github.com/dragonslegacy/worldserver/internal/player"
)

// Subscriber provides per-subject message subscriptions. Satisfied by
// messaging.NatsServer.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

// ConnectionManager bridges accepted websocket connections to player
// sessions: it assigns the connection identifier, wires the connection's
// delivery subject into the send queue, and runs the read loop.
type ConnectionManager struct {
	pm  *player.Manager
	sub Subscriber
}

func NewConnectionManager(pm *player.Manager, sub Subscriber) *ConnectionManager {
	return &ConnectionManager{
		pm:  pm,
		sub: sub,
	}
}

// AcceptConnection owns the connection for its whole lifetime and returns
// when it is gone. The disconnect unwind always runs, whatever killed the
// connection.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn *websocket.Conn) {
	connId := uuid.New().String()
	c := newClient(conn)

	unsub, err := m.sub.Subscribe(messaging.ConnSubject(connId), c.queue)
	if err != nil {
		slog.WarnContext(ctx, "subscribing connection subject", "conn", connId, "error", err)
		c.kick()
		return
	}

	m.pm.HandleConnect(connId, c.kick)
	slog.InfoContext(ctx, "connection accepted", "conn", connId, "addr", conn.RemoteAddr())

	// Listener shutdown kicks the connection; the read loop unblocks on the
	// closed socket.
	go func() {
		select {
		case <-ctx.Done():
			c.kick()
		case <-c.done:
		}
	}()

	go c.writeLoop()
	c.readLoop(func(raw []byte) {
		m.pm.Dispatch(ctx, connId, raw)
	})

	unsub()
	m.pm.HandleDisconnect(ctx, connId)
	slog.InfoContext(ctx, "connection closed", "conn", connId)
}
