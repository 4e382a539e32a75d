package server

import (
	"encoding/json"
	"sync"

	"github.com/zeusync/handgrab/internal/core/observability/log"
)

const defaultSendBuffer = 256

// Hub fans outbound messages out to connected clients. A client whose send
// buffer is full misses the message rather than stalling the frame loop.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  log.Log
}

func NewHub(logger log.Log) *Hub {
	if logger == nil {
		logger = log.Provide()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.With(log.String("component", "hub")),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(msg Outbound) {
	raw, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("encode outbound message failed", log.String("type", msg.Type), log.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			h.logger.Debug("client send buffer full", log.String("client", c.id))
		}
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
		h.remove(c)
	}
}

// sendTo queues msg for a single client.
func (h *Hub) sendTo(c *client, msg Outbound) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}
