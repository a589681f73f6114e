// Package realtime pushes conversation changes to browsers over websockets.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Hub tracks the open websocket connections of each device. A device may
// have several tabs open.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[*websocket.Conn]struct{})}
}

// Register adds conn for deviceID.
func (h *Hub) Register(deviceID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[deviceID]; !ok {
		h.active[deviceID] = make(map[*websocket.Conn]struct{})
	}
	h.active[deviceID][conn] = struct{}{}
	slog.Debug("Realtime connection registered", "device_id", deviceID, "connections", len(h.active[deviceID]))
}

// Unregister removes conn for deviceID.
func (h *Hub) Unregister(deviceID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[deviceID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.active, deviceID)
		}
		slog.Debug("Realtime connection unregistered", "device_id", deviceID)
	}
}

// Count returns the number of open connections for deviceID.
func (h *Hub) Count(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[deviceID])
}

// CloseDevice starts closing every connection of deviceID without waiting
// for the close handshakes. It is used when the device's conversation is
// evicted.
func (h *Hub) CloseDevice(deviceID string) {
	h.mu.Lock()
	conns := h.active[deviceID]
	delete(h.active, deviceID)
	h.mu.Unlock()

	for conn := range conns {
		go func(c *websocket.Conn) {
			_ = c.Close(websocket.StatusGoingAway, "conversation expired")
		}(conn)
	}
	if len(conns) > 0 {
		slog.Info("Realtime connections closed", "device_id", deviceID, "count", len(conns))
	}
}
