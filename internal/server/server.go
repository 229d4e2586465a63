// Package server is the collaborator backend: a JSON REST surface over the
// SQLite store plus the WebSocket event channel that fans every successful
// write out to the affected rooms.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/channel"
	"github.com/mmynk/splitsync/internal/middleware"
	"github.com/mmynk/splitsync/internal/storage"
)

// Server owns the handlers and the channel hub.
type Server struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	hub           *Hub
	fanout        Fanout
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithFanout replaces the in-process fan-out, e.g. with a RedisFanout when
// several instances serve the same rooms.
func WithFanout(f Fanout) Option {
	return func(s *Server) { s.fanout = f }
}

// WithAuthenticator replaces the bcrypt password authenticator.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *Server) { s.authenticator = a }
}

// New creates a server.
func New(store storage.Store, jwtManager *auth.JWTManager, opts ...Option) *Server {
	s := &Server{
		store:      store,
		jwtManager: jwtManager,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.authenticator == nil {
		s.authenticator = auth.NewPasswordAuthenticator(store)
	}
	s.hub = NewHub(jwtManager, store, s.logger)
	if s.fanout == nil {
		s.fanout = s.hub
	}
	return s
}

// Hub returns the channel hub, the delivery target of remote fan-outs.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the full HTTP surface.
func (s *Server) Handler() http.Handler {
	requireAuth := middleware.RequireAuth(s.jwtManager)
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /ws", s.hub)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.Handle("GET /api/groups", protected(s.handleListGroups))
	mux.Handle("POST /api/groups", protected(s.handleCreateGroup))
	mux.Handle("POST /api/groups/join", protected(s.handleJoinGroup))
	mux.Handle("GET /api/groups/{id}", protected(s.handleGetGroup))

	mux.Handle("POST /api/expenses", protected(s.handleCreateExpense))
	mux.Handle("GET /api/expenses/group/{groupId}", protected(s.handleListExpenses))
	mux.Handle("DELETE /api/expenses/{id}", protected(s.handleDeleteExpense))

	mux.Handle("POST /api/settlements", protected(s.handleCreateSettlement))
	mux.Handle("GET /api/settlements/group/{groupId}", protected(s.handleListSettlements))
	mux.Handle("DELETE /api/settlements/{id}", protected(s.handleDeleteSettlement))

	mux.Handle("GET /api/friends", protected(s.handleListFriends))
	mux.Handle("GET /api/friend-requests", protected(s.handleListFriendRequests))
	mux.Handle("POST /api/friend-requests", protected(s.handleSendFriendRequest))
	mux.Handle("PUT /api/friend-requests/{id}/accept", protected(s.handleAcceptFriendRequest))

	return middleware.Logging(middleware.CORS(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// publish fans an event out to a room. Delivery is best effort: the write
// already succeeded and clients reconcile on reload.
func (s *Server) publish(ctx context.Context, room string, e channel.Event) {
	frame, err := channel.Encode(e)
	if err != nil {
		s.logger.Error("Failed to encode event", "event", e.Name(), "error", err)
		return
	}
	if err := s.fanout.Publish(ctx, room, frame); err != nil {
		s.logger.Warn("Failed to publish event", "event", e.Name(), "room", room, "error", err)
	}
}

// GroupRoom is the room receiving a group's ledger events.
func GroupRoom(groupID string) string { return "group-" + groupID }

// UserRoom is the room receiving a user's social events.
func UserRoom(userID string) string { return "user-" + userID }
