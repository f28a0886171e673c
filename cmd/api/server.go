package main

import (
	"log/slog"
	"net/http"

	"github.com/Sahil001001/BaatCheet-app/internal/auth"
	"github.com/Sahil001001/BaatCheet-app/internal/middleware"
	"github.com/go-playground/validator/v10"
)

// Server holds the HTTP surface and its collaborators: stores, the presence
// hub, the message router and the auth manager.
type Server struct {
	log      *slog.Logger
	users    UserStore
	auth     *auth.JWTManager
	hub      *PresenceHub
	router   *MessageRouter
	validate *validator.Validate
}

// newServer returns a ready-to-use Server wired with stores, hub, router and
// auth manager.
func newServer(log *slog.Logger, users UserStore, authMgr *auth.JWTManager, hub *PresenceHub, router *MessageRouter) *Server {
	return &Server{
		log:      log,
		users:    users,
		auth:     authMgr,
		hub:      hub,
		router:   router,
		validate: validator.New(),
	}
}

// routes builds the HTTP mux. Signup and login are reachable without
// credentials and sit behind the per-IP rate limiter; everything else runs
// through requireAuth.
func (s *Server) routes(limiter *middleware.LimiterStore) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("POST /api/auth/signup", middleware.RateLimit(limiter, http.HandlerFunc(s.handleSignup)))
	mux.Handle("POST /api/auth/login", middleware.RateLimit(limiter, http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.Handle("GET /api/auth/check", s.requireAuth(http.HandlerFunc(s.handleCheckAuth)))

	mux.Handle("GET /api/message/users", s.requireAuth(http.HandlerFunc(s.handleSidebarUsers)))
	mux.Handle("GET /api/message/{id}", s.requireAuth(http.HandlerFunc(s.handleGetMessages)))
	mux.Handle("POST /api/message/send/{id}", s.requireAuth(http.HandlerFunc(s.handleSendMessage)))
	mux.Handle("DELETE /api/message/{id}", s.requireAuth(http.HandlerFunc(s.handleDeleteMessage)))

	mux.Handle("GET /ws", s.requireAuth(http.HandlerFunc(s.handleWS)))
	mux.HandleFunc("GET /debug/online-users", s.handleDebugOnlineUsers)

	return mux
}
