package server

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var errTransportClosed = errors.New("transport closed")

// wsTransport wraps one websocket connection as a registry.Transport. The
// connection handler and the broadcast loop both write to it, and gorilla
// permits only one concurrent writer, so writes are serialized by a mutex.
// The first failed write marks the transport dead; later sends fail fast
// without touching the connection.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
	dead bool
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Send(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dead {
		return errTransportClosed
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.dead = true
		return err
	}
	return nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	t.dead = true
	t.mu.Unlock()
	return t.conn.Close()
}
