package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/open-teleop/rover/domain/command"
)

// ErrUnknownConnection is returned when sending to a connection that has gone away
var ErrUnknownConnection = errors.New("unknown connection")

// writeTimeout bounds one reply. Replies are written from the control loop,
// so a stalled client delays the next event, including another connection's
// disconnect stop, by at most this much.
const writeTimeout = 250 * time.Millisecond

// Conn is the write side of a websocket connection
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

type client struct {
	conn Conn
	mu   sync.Mutex
}

// Hub tracks open control connections by id
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

var _ command.Sender = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Add registers a connection and returns its id
func (h *Hub) Add(conn Conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = &client{conn: conn}
	h.mu.Unlock()
	return id
}

// Remove forgets a connection
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Count returns the number of open connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send writes one text frame to a connection. A stalled client fails after
// writeTimeout instead of holding up the caller.
func (h *Hub) Send(id string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
