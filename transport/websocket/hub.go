package websocket

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/session"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

var (
	ErrHubClosed   = errors.New("hub is closed")
	ErrDuplicateID = errors.New("connection id already attached")
)

// RelayStats reports fan-out counters
type RelayStats struct {
	Connections int    `json:"connections"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
}

// Hub maintains the set of live connections and fans frames out to them
type Hub struct {
	// Attached outboxes by connection id
	clients map[string]session.Outbox
	closed  bool
	mu      sync.RWMutex

	delivered atomic.Uint64
	dropped   atomic.Uint64

	log *zap.Logger
}

var _ session.Relay = (*Hub)(nil)

// NewHub creates a new hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]session.Outbox),
		log:     logging.OrNop(log).Named("hub"),
	}
}

// Attach adds out to the live set. first is built and enqueued while the
// write lock is held, so no broadcast can reach out before it and none issued
// afterwards can miss it.
func (h *Hub) Attach(id string, out session.Outbox, first func() ([]byte, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, exists := h.clients[id]; exists {
		return ErrDuplicateID
	}

	if first != nil {
		frame, err := first()
		if err != nil {
			return err
		}
		if !out.Send(frame) {
			h.dropped.Add(1)
			h.log.Warn("first frame dropped", zap.String("id", id))
		} else {
			h.delivered.Add(1)
		}
	}

	h.clients[id] = out
	h.log.Debug("connection attached", zap.String("id", id), zap.Int("total", len(h.clients)))
	return nil
}

// Detach removes id from the live set and closes its outbox
func (h *Hub) Detach(id string) bool {
	h.mu.Lock()
	out, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return false
	}
	out.Close()
	h.log.Debug("connection detached", zap.String("id", id), zap.Int("remaining", remaining))
	return true
}

// Broadcast offers frame to every live connection except exclude. A
// connection whose outbox is full or closed misses this frame only.
func (h *Hub) Broadcast(frame []byte, exclude string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, out := range h.clients {
		if id == exclude {
			continue
		}
		h.deliver(id, out, frame)
	}
}

// Send offers frame to a single connection
func (h *Hub) Send(id string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out, ok := h.clients[id]
	if !ok {
		return false
	}
	return h.deliver(id, out, frame)
}

func (h *Hub) deliver(id string, out session.Outbox, frame []byte) bool {
	if out.Send(frame) {
		h.delivered.Add(1)
		return true
	}
	h.dropped.Add(1)
	h.log.Debug("frame dropped", zap.String("id", id))
	return false
}

// Count returns the number of attached connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the hub's counters
func (h *Hub) Stats() RelayStats {
	return RelayStats{
		Connections: h.Count(),
		Delivered:   h.delivered.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Shutdown closes every outbox and refuses further attaches
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]session.Outbox)
	h.closed = true
	h.mu.Unlock()

	for _, out := range clients {
		out.Close()
	}
	h.log.Info("hub shut down", zap.Int("closed", len(clients)))
}
