package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is a real-time notification pushed to map clients. Marker commands
// carry a layer and marker id; catalog notifications carry an entity payload.
type Message struct {
	Type    string `json:"type"`
	Layer   string `json:"layer,omitempty"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Marker command and notification types.
const (
	TypeMarkerAdd    = "marker_add"
	TypeMarkerRemove = "marker_remove"
	TypeLayerVisible = "layer_visible"
	TypeFocus        = "focus"
	TypeAlert        = "alert_posted"
	TypeReview       = "review_posted"
)

// Hub maintains the set of active WebSocket clients. Clients register under
// a key (the session token) so marker commands can target one session while
// catalog notifications go to everyone.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		c.trySend(data)
	}
}

// Send delivers a message only to clients registered under the given key.
func (h *Hub) Send(key string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal send", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.key == key {
			c.trySend(data)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
