// Package notify delivers fired reminders to the user: a WebSocket hub
// for connected clients, a log sink, and a fan-out combining them.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/flemzord/mnemo/internal/reminder"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultWriteTimeout      = 5 * time.Second
	defaultSendBuffer        = 16
	defaultMaxClients        = 32
	maxMissedHeartbeats      = 3
)

// ActionHandler executes an action sent back by a client, typically
// *reminder.Engine.
type ActionHandler interface {
	HandleAction(ctx context.Context, cmd reminder.Command) (bool, error)
}

// HubConfig configures a Hub. Zero values take defaults.
type HubConfig struct {
	Logger            *slog.Logger
	Actions           ActionHandler
	MaxClients        int
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	SendBuffer        int
	// OriginPatterns lists extra hosts allowed to open cross-origin
	// connections (see websocket.AcceptOptions).
	OriginPatterns []string
}

func (c *HubConfig) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MaxClients == 0 {
		c.MaxClients = defaultMaxClients
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
}

// Hub fans notifications out to WebSocket clients and relays their
// actions back to the reminder engine. It implements reminder.Notifier,
// reminder.Speaker and http.Handler.
type Hub struct {
	config HubConfig
	logger *slog.Logger
	store  *ClientStore

	mu      sync.RWMutex
	actions ActionHandler

	cancel context.CancelFunc
}

var (
	_ reminder.Notifier = (*Hub)(nil)
	_ reminder.Speaker  = (*Hub)(nil)
	_ http.Handler      = (*Hub)(nil)
)

// NewHub creates a Hub. Call Start to enable idle-client eviction.
func NewHub(cfg HubConfig) *Hub {
	cfg.defaults()
	return &Hub{
		config:  cfg,
		logger:  cfg.Logger,
		store:   NewClientStore(),
		actions: cfg.Actions,
	}
}

// SetActions installs the handler for client actions.
func (h *Hub) SetActions(a ActionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = a
}

func (h *Hub) actionHandler() ActionHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.actions
}

// Len returns the number of connected clients.
func (h *Hub) Len() int { return h.store.Len() }

// Start launches the heartbeat monitoring goroutine.
func (h *Hub) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.heartbeatLoop(ctx)

	h.logger.Info("notification hub started",
		"heartbeat_interval", h.config.HeartbeatInterval,
		"max_clients", h.config.MaxClients,
	)
	return nil
}

// Stop closes every client connection.
func (h *Hub) Stop(_ context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	var clients []*Client
	h.store.Range(func(_ string, c *Client) bool {
		clients = append(clients, c)
		return true
	})
	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	h.logger.Info("notification hub stopped")
	return nil
}

// Notify implements reminder.Notifier.
func (h *Hub) Notify(_ context.Context, n reminder.Notification) {
	h.broadcast(n.Owner, MsgNotification, n.ReminderID, n)
}

// Speak implements reminder.Speaker.
func (h *Hub) Speak(_ context.Context, owner, text string) {
	h.broadcast(owner, MsgSpeak, "", SpeakPayload{Owner: owner, Text: text})
}

func (h *Hub) broadcast(owner string, typ MessageType, id string, payload any) {
	clients := h.store.ForOwner(owner)
	if len(clients) == 0 {
		return
	}
	data, err := encode(typ, id, payload)
	if err != nil {
		h.logger.Error("notify: marshal message failed", "type", typ, "error", err)
		return
	}
	for _, c := range clients {
		if !c.enqueue(data) {
			h.logger.Warn("notify: dropping message for slow client",
				"client_id", c.ID,
				"owner", owner,
				"type", typ,
			)
		}
	}
}

// ServeHTTP accepts a WebSocket connection. The optional owner query
// parameter restricts delivery to that owner's reminders.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.config.OriginPatterns,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	now := time.Now()
	c := &Client{
		ID:          uuid.NewString(),
		Owner:       r.URL.Query().Get("owner"),
		ConnectedAt: now,
		LastSeenAt:  now,
		conn:        conn,
		send:        make(chan []byte, h.config.SendBuffer),
		done:        make(chan struct{}),
	}
	if !h.store.AddIfUnder(c, h.config.MaxClients) {
		h.logger.Warn("notify: rejecting client, limit reached", "max_clients", h.config.MaxClients)
		_ = conn.Close(websocket.StatusTryAgainLater, "maximum number of clients reached")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.logger.Info("notification client connected", "client_id", c.ID, "owner", c.Owner)
	go h.writeLoop(ctx, c)

	h.readLoop(ctx, c)

	close(c.done)
	h.store.Remove(c.ID)
	h.logger.Info("notification client disconnected", "client_id", c.ID)
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.touch(time.Now())

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn("notify: invalid message from client", "client_id", c.ID, "error", err)
			h.reply(c, MsgError, "", map[string]string{"message": "invalid message format"})
			continue
		}

		switch env.Type {
		case MsgHeartbeat:
			h.reply(c, MsgHeartbeatAck, env.ID, nil)

		case MsgAction:
			h.reply(c, MsgActionResult, env.ID, h.runAction(ctx, c, env.Payload))

		default:
			h.logger.Warn("notify: unexpected message type", "client_id", c.ID, "type", env.Type)
			h.reply(c, MsgError, env.ID, map[string]string{"message": "unsupported message type"})
		}
	}
}

func (h *Hub) runAction(ctx context.Context, c *Client, payload json.RawMessage) ActionResult {
	actions := h.actionHandler()
	if actions == nil {
		return ActionResult{Error: "actions are not available"}
	}

	var cmd reminder.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return ActionResult{Error: err.Error()}
	}

	found, err := actions.HandleAction(ctx, cmd)
	if err != nil {
		h.logger.Warn("notify: action failed",
			"client_id", c.ID,
			"reminder_id", cmd.ReminderID,
			"action", cmd.Action,
			"error", err,
		)
		return ActionResult{Found: found, Error: err.Error()}
	}
	return ActionResult{OK: found, Found: found}
}

func (h *Hub) reply(c *Client, typ MessageType, id string, payload any) {
	data, err := encode(typ, id, payload)
	if err != nil {
		h.logger.Error("notify: marshal reply failed", "type", typ, "error", err)
		return
	}
	if !c.enqueue(data) {
		h.logger.Warn("notify: dropping reply for slow client", "client_id", c.ID, "type", typ)
	}
}

// writeLoop is the only writer on c.conn.
func (h *Hub) writeLoop(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, h.config.WriteTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger.Warn("notify: write failed, closing client", "client_id", c.ID, "error", err)
				}
				_ = c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (h *Hub) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.evictIdle(time.Now())
		}
	}
}

// evictIdle closes clients silent for more than maxMissedHeartbeats
// intervals. The read loop removes them once the close is observed.
func (h *Hub) evictIdle(now time.Time) int {
	threshold := h.config.HeartbeatInterval * maxMissedHeartbeats

	var stale []*Client
	h.store.Range(func(_ string, c *Client) bool {
		if now.Sub(c.lastSeen()) > threshold {
			stale = append(stale, c)
		}
		return true
	})

	for _, c := range stale {
		h.logger.Warn("notify: client heartbeat timeout, disconnecting",
			"client_id", c.ID,
			"last_seen", c.lastSeen(),
		)
		_ = c.conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
	}
	return len(stale)
}

func encode(typ MessageType, id string, payload any) ([]byte, error) {
	env := Envelope{Type: typ, ID: id, Timestamp: time.Now()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
