package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TypeConnected        = "connected"
	TypeDashboardRefresh = "dashboard_refresh"

	clientBuffer = 16
)

// Event is one server-sent event.
type Event struct {
	Type string `json:"event"`
	Data string `json:"data"`
}

// Client is a connected event stream.
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub fans events out to connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		log:     log.Named("events"),
	}
}

// Connect registers a new client with a fresh id.
func (h *Hub) Connect(userID string) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Events: make(chan Event, clientBuffer),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.Events)
		return c
	}
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client registered", zap.String("id", c.ID), zap.String("user", userID), zap.Int("total", n))
	return c
}

// Disconnect removes the client and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	close(c.Events)
	delete(h.clients, id)
	h.log.Debug("client unregistered", zap.String("id", id), zap.Int("total", len(h.clients)))
}

// Close ends every open stream. Clients that connect afterwards get an
// already closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		close(c.Events)
		delete(h.clients, id)
	}
	h.log.Debug("hub closed")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast never blocks: a client whose buffer is full misses the event.
func (h *Hub) Broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Events <- e:
		default:
			h.log.Warn("client buffer full, skipping event", zap.String("id", c.ID), zap.String("event", e.Type))
		}
	}
}

// Publish broadcasts payload as JSON under eventType.
func (h *Hub) Publish(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("encode event payload", zap.String("event", eventType), zap.Error(err))
		return
	}
	h.Broadcast(Event{Type: eventType, Data: string(data)})
}
