package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// EventSetUser identifies a connected client: {"userId": ..., "companyId": ...}.
	EventSetUser = "set_user"
	// EventStatusUpdate broadcasts presence changes: {"userId": ..., "is_online": ...}.
	EventStatusUpdate = "status_update"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StatusUpdate is the payload of EventStatusUpdate frames.
type StatusUpdate struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"is_online"`
}

// setUserPayload is the inbound EventSetUser body.
type setUserPayload struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
}

// StatusStore persists per-tenant online flags. Implemented by
// persistence.UserStore.
type StatusStore interface {
	SetOnline(ctx context.Context, tenantID, userID string, online bool) error
}

// Channel serves the websocket presence endpoint. Presence writes are best
// effort: a failed database update or broadcast is logged and the channel
// keeps serving events.
type Channel struct {
	hub        *Hub
	registry   *Registry
	status     StatusStore
	logger     *zap.Logger
	sendBuffer int
	upgrader   websocket.Upgrader
}

// ChannelConfig controls Channel construction.
type ChannelConfig struct {
	Hub      *Hub
	Registry *Registry
	Status   StatusStore
	Logger   *zap.Logger
	// SendBuffer sizes each client's outbound queue. Defaults to 32.
	SendBuffer int
	// CheckOrigin overrides the upgrade origin check; the HTTP CORS
	// middleware does not apply to websocket upgrades.
	CheckOrigin func(r *http.Request) bool
}

// NewChannel wires the presence channel.
func NewChannel(cfg ChannelConfig) *Channel {
	if cfg.Hub == nil || cfg.Registry == nil || cfg.Status == nil {
		panic("realtime channel: hub, registry and status store are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Channel{
		hub:        cfg.Hub,
		registry:   cfg.Registry,
		status:     cfg.Status,
		logger:     logger,
		sendBuffer: cfg.SendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// ServeHTTP upgrades the request and runs the client's read loop until the
// socket closes.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(uuid.NewString(), c.sendBuffer)
	c.hub.Register(client)
	c.logger.Info("socket connected", zap.String("socket_id", client.ID))

	go c.writePump(conn, client)
	// The request context dies with the handler; presence writes during
	// teardown need a context that outlives the socket.
	c.readPump(context.Background(), conn, client)
}

func (c *Channel) readPump(ctx context.Context, conn *websocket.Conn, client *Client) {
	defer func() {
		c.HandleDisconnect(ctx, client)
		c.hub.Unregister(client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Warn("malformed frame", zap.String("socket_id", client.ID), zap.Error(err))
			continue
		}

		switch frame.Event {
		case EventSetUser:
			c.HandleSetUser(ctx, client, frame.Data)
		default:
			c.logger.Debug("ignoring unknown event", zap.String("event", frame.Event))
		}
	}
}

func (c *Channel) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleSetUser processes an identification frame. Both userId and companyId
// are required; a partial payload is logged and ignored, leaving the client
// connected but unidentified.
func (c *Channel) HandleSetUser(ctx context.Context, client *Client, data json.RawMessage) {
	var payload setUserPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			c.logger.Warn("malformed set_user payload", zap.String("socket_id", client.ID), zap.Error(err))
			return
		}
	}
	if payload.UserID == "" || payload.CompanyID == "" {
		c.logger.Warn("missing userId or companyId in set_user", zap.String("socket_id", client.ID))
		return
	}

	client.UserID = payload.UserID
	client.TenantID = payload.CompanyID
	c.registry.Put(payload.UserID, payload.CompanyID, client.ID)

	if err := c.status.SetOnline(ctx, payload.CompanyID, payload.UserID, true); err != nil {
		c.logger.Error("set user online", zap.String("user_id", payload.UserID),
			zap.String("tenant_id", payload.CompanyID), zap.Error(err))
		return
	}

	// Broadcast goes to every connected client regardless of tenant. That
	// matches the deployed frontend's expectations; scoping it per tenant is
	// a behavior change, not a refactor.
	c.hub.Broadcast(EventStatusUpdate, StatusUpdate{UserID: payload.UserID, IsOnline: true})
}

// HandleDisconnect reverses identification when the socket closes. No-op for
// clients that never identified.
func (c *Channel) HandleDisconnect(ctx context.Context, client *Client) {
	if client.UserID == "" || client.TenantID == "" {
		return
	}

	c.registry.Remove(client.UserID)

	if err := c.status.SetOnline(ctx, client.TenantID, client.UserID, false); err != nil {
		c.logger.Error("set user offline", zap.String("user_id", client.UserID),
			zap.String("tenant_id", client.TenantID), zap.Error(err))
		return
	}

	c.hub.Broadcast(EventStatusUpdate, StatusUpdate{UserID: client.UserID, IsOnline: false})
	c.logger.Info("user disconnected", zap.String("user_id", client.UserID))
}

// NotifyUser pushes an event to the user's active socket, if any. Used by the
// scheduled notification jobs for realtime delivery.
func (c *Channel) NotifyUser(userID, event string, payload any) bool {
	socketID, ok := c.registry.Get(userID)
	if !ok {
		return false
	}
	return c.hub.SendTo(socketID, event, payload)
}
