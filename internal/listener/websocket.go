package listener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-log"
)

// WebsocketListener accepts client connections on a single port and hands
// them to the ConnectionManager. It is a go-service worker.
type WebsocketListener struct {
	port uint16
	cm   *ConnectionManager

	upgrader websocket.Upgrader
}

func NewWebsocketListener(port uint16, cm *ConnectionManager) *WebsocketListener {
	return &WebsocketListener{
		port: port,
		cm:   cm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from anywhere; transport-level
			// origin checks are not an authentication boundary here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	logger := log.GetLogger(ctx)

	// Shared context so all connections are canceled together on shutdown.
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	var wg sync.WaitGroup

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := l.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnf("upgrading connection from %s: %s", r.RemoteAddr, err)
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.cm.AcceptConnection(connCtx, conn)
		}()
	})

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", l.port),
		Handler: mux,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = svr.Shutdown(shutdownCtx)
			cancelConns()
		case <-done:
		}
	}()

	logger.Infof("websocket listener on port %d", l.port)

	err := svr.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
	}

	wg.Wait()
	return nil
}
