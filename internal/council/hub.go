package council

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/codyburke970/ai-council/internal/domain"
)

// EventType identifies a per-persona state transition on the stream.
type EventType string

const (
	// EventTyping marks the start of a persona's in-flight call.
	EventTyping EventType = "typing"
	// EventMessage carries a newly appended assistant message.
	EventMessage EventType = "message"
	// EventError carries the user-facing error for a failed send.
	EventError EventType = "error"
)

// Event is one per-persona state transition pushed to stream clients. Each
// event touches exactly one persona's UI region.
type Event struct {
	Type      EventType       `json:"type"`
	PersonaID string          `json:"persona_id"`
	IsTyping  bool            `json:"is_typing,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
}

const hubWriteTimeout = 5 * time.Second

// client is one WebSocket subscriber. Writes are serialized per connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub fans council events out to each user's stream connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{})}
}

// register adds a connection for a user and sends the hello frame built by
// hello(). The client's write lock is held from before the connection becomes
// visible to Publish until the hello frame is written, so no event can reach
// the client ahead of the state it was computed against.
func (h *Hub) register(userID string, conn *websocket.Conn, hello func() ([]byte, error)) (*client, error) {
	c := &client{conn: conn}
	c.mu.Lock()
	defer c.mu.Unlock()

	h.mu.Lock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	data, err := hello()
	if err != nil {
		h.unregister(userID, c)
		return nil, err
	}
	c.writeLocked(data)
	slog.Info("council stream registered", "user_id", userID)
	return c, nil
}

// unregister removes a connection for a user.
func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
		slog.Info("council stream unregistered", "user_id", userID)
	}
}

// Publish sends an event to every stream connection the user has open.
// Slow or dead connections only lose their own delivery.
func (h *Hub) Publish(userID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal council event", "error", err, "type", string(ev.Type))
		return
	}

	h.mu.RLock()
	conns := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.write(data)
	}
}

func (c *client) write(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLocked(data)
}

// writeLocked writes one frame. Caller holds c.mu.
func (c *client) writeLocked(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), hubWriteTimeout)
	defer cancel()

	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("council stream write failed", "error", err)
	}
}
