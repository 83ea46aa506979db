package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"trafficsignal/backend/services/signal-controller/internal/models"
)

// Hub tracks stream subscribers and fans decisions out to them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Add registers new connection.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID()] = conn
}

// Remove removes connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Broadcast pushes a status to every subscriber.
func (h *Hub) Broadcast(status models.Status) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.connections) == 0 {
		return
	}

	payload, err := json.Marshal(status)
	if err != nil {
		h.logger.Error("failed to encode status for stream", zap.Error(err))
		return
	}
	for _, conn := range h.connections {
		conn.Send(payload)
	}
}
