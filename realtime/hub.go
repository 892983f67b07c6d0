package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Frame is the wire envelope for channel events, inbound and outbound.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one connected socket. Send is a buffered outbound queue drained
// by the connection's write loop; a full queue drops the message rather than
// blocking the broadcaster.
type Client struct {
	ID   string
	Send chan []byte

	// Set once the client identifies via set_user; empty while unidentified.
	UserID   string
	TenantID string
}

// NewClient builds a client with the given outbound buffer size.
func NewClient(id string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Client{ID: id, Send: make(chan []byte, sendBuffer)}
}

// Hub tracks every connected socket and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister removes the client and closes its send queue. The close happens
// under the hub lock so it cannot interleave with a send in Broadcast or
// SendTo.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.Send)
	}
}

// Broadcast sends the event to every connected client, identified or not.
func (h *Hub) Broadcast(event string, payload any) {
	message, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Warn("encode broadcast frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Send <- message:
		default:
			h.logger.Warn("dropping frame for slow client", zap.String("socket_id", c.ID), zap.String("event", event))
		}
	}
}

// SendTo delivers the event to a single socket. Returns false when the socket
// is gone or its queue is full.
func (h *Hub) SendTo(socketID, event string, payload any) bool {
	message, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Warn("encode frame", zap.String("event", event), zap.Error(err))
		return false
	}

	// The send stays inside the read-locked region; Unregister closes the
	// channel under the write lock, so a send can never hit a closed channel.
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[socketID]
	if !ok {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		h.logger.Warn("dropping frame for slow client", zap.String("socket_id", socketID), zap.String("event", event))
		return false
	}
}

// Len returns the number of connected sockets.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
