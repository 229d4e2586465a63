package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/metrics"
	"github.com/mmynk/splitsync/internal/middleware"
	"github.com/mmynk/splitsync/internal/storage"
	"github.com/mmynk/splitsync/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
	membershipWait = 5 * time.Second
)

// Fanout delivers an event frame to every connection in a room.
type Fanout interface {
	Publish(ctx context.Context, room string, f wire.Frame) error
}

// Hub is the in-process channel endpoint. It authenticates the upgrade,
// tracks room membership per connection and fans frames out to rooms.
// A connection that cannot keep up with its send buffer is dropped.
type Hub struct {
	jwtManager *auth.JWTManager
	groups     storage.GroupStore
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	rooms   map[string]map[*hubClient]struct{}
	clients map[*hubClient]struct{}
}

type hubClient struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	// Guarded by hub.mu.
	rooms  map[string]struct{}
	closed bool
}

// NewHub creates a hub. Group joins are checked against groups.
func NewHub(jwtManager *auth.JWTManager, groups storage.GroupStore, logger *slog.Logger) *Hub {
	return &Hub{
		jwtManager: jwtManager,
		groups:     groups,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rooms:   make(map[string]map[*hubClient]struct{}),
		clients: make(map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades an authenticated request. The credential is read from
// the Authorization header, or the token query parameter for clients that
// cannot set headers on the upgrade.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.Authenticate(h.jwtManager, r)
	if err != nil {
		if token := r.URL.Query().Get("token"); token != "" {
			claims, err = h.jwtManager.Validate(token)
		}
	}
	if err != nil {
		h.logger.Warn("Channel handshake rejected", "remote", r.RemoteAddr, "error", err)
		writeJSON(w, http.StatusUnauthorized, wire.ErrorResponse{Error: err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Channel upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}

	c := &hubClient{
		hub:    h,
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
	h.register(c)
	h.logger.Info("Channel connected", "user_id", c.userID)

	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, UserRoom(c.userID))
	metrics.HubConnections.Inc()
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	if c.closed {
		return
	}
	c.closed = true
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	metrics.HubConnections.Dec()
}

func (h *Hub) joinLocked(c *hubClient, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*hubClient]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *hubClient, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) join(c *hubClient, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !c.closed {
		h.joinLocked(c, room)
	}
}

func (h *Hub) leave(c *hubClient, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

// Publish delivers f to the room on this instance.
func (h *Hub) Publish(_ context.Context, room string, f wire.Frame) error {
	h.Broadcast(room, f)
	return nil
}

// Broadcast sends f to every connection in room.
func (h *Hub) Broadcast(room string, f wire.Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("Failed to encode frame", "event", f.Event, "error", err)
		return
	}
	metrics.HubEventsPublished.WithLabelValues(f.Event).Inc()

	var slow []*hubClient
	h.mu.RLock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range slow {
		h.logger.Warn("Dropping slow channel connection", "user_id", c.userID, "room", room)
		h.removeLocked(c)
	}
	h.mu.Unlock()
}

// RoomSize returns the number of connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.hub.logger.Info("Channel disconnected", "user_id", c.userID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f wire.Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Channel read failed", "user_id", c.userID, "error", err)
			}
			return
		}
		c.handle(f)
	}
}

func (c *hubClient) handle(f wire.Frame) {
	var groupID string
	switch f.Event {
	case wire.EventJoinGroup, wire.EventLeaveGroup:
		if err := json.Unmarshal(f.Data, &groupID); err != nil || groupID == "" {
			c.hub.logger.Warn("Ignoring malformed room frame", "user_id", c.userID, "event", f.Event)
			return
		}
	default:
		c.hub.logger.Debug("Ignoring client frame", "user_id", c.userID, "event", f.Event)
		return
	}

	if f.Event == wire.EventLeaveGroup {
		c.hub.leave(c, GroupRoom(groupID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), membershipWait)
	defer cancel()
	ok, err := c.hub.groups.IsGroupMember(ctx, groupID, c.userID)
	if err != nil {
		c.hub.logger.Error("Failed to check group membership", "user_id", c.userID, "group_id", groupID, "error", err)
		return
	}
	if !ok {
		c.hub.logger.Warn("Ignoring join for non-member", "user_id", c.userID, "group_id", groupID)
		return
	}
	c.hub.join(c, GroupRoom(groupID))
	c.hub.logger.Debug("Joined room", "user_id", c.userID, "group_id", groupID)
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
