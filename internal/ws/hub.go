package ws

import (
	"encoding/json"
	"sync"

	"resume_rewards/internal/domain"
	"resume_rewards/internal/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Open live feed connections",
	})
	WSDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_events_dropped_total",
		Help: "Events dropped because a client send buffer was full",
	})
)

func init() {
	prometheus.MustRegister(WSConnections)
	prometheus.MustRegister(WSDropped)
}

// Hub fans committed ledger events out to every open connection of the
// account. One account may have several tabs open.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.AccountID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.AccountID] = set
	}
	set[c] = struct{}{}
	WSConnections.Inc()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.AccountID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.AccountID)
	}
	close(c.Send)
	WSConnections.Dec()
}

// Count returns the number of open connections of an account.
func (h *Hub) Count(accountID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

// Publish never blocks the ledger: a client whose buffer is full misses
// the event.
func (h *Hub) Publish(accountID uuid.UUID, ev domain.LedgerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[accountID]
	if len(set) == 0 {
		return
	}
	msg, err := json.Marshal(Message{Type: MsgEvent, Event: &ev})
	if err != nil {
		logger.Error("ws: marshal event", "error", err)
		return
	}
	for c := range set {
		select {
		case c.Send <- msg:
		default:
			WSDropped.Inc()
			logger.Warn("ws: send buffer full, event dropped", "account_id", accountID)
		}
	}
}
