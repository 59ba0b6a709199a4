// Package server exposes the spectator and admin HTTP + WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/server/handler"
	"github.com/colosseo/arenabook/internal/server/middleware"
	"github.com/colosseo/arenabook/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, the admin endpoints are open

	// RateLimit bounds requests per client IP within RateWindow. Zero
	// disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Pools    *handler.PoolHandler
	Bets     *handler.BetHandler
	Accounts *handler.AccountHandler
	Phase    *handler.PhaseHandler
	Events   *handler.EventHandler
	Admin    *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server for the arena wagering engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting) and attaches the
// WebSocket hub. limiter may be nil when rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Pool endpoints.
	mux.HandleFunc("GET /api/pools", handlers.Pools.ListPools)
	mux.HandleFunc("GET /api/pools/{id}", handlers.Pools.GetPool)
	mux.HandleFunc("GET /api/pools/{id}/odds", handlers.Pools.GetOdds)
	mux.HandleFunc("GET /api/pools/{id}/bets", handlers.Pools.ListPoolBets)
	mux.HandleFunc("GET /api/pools/{id}/events", handlers.Events.ListPoolEvents)

	// Bet endpoints.
	mux.HandleFunc("POST /api/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/bets/{id}", handlers.Bets.GetBet)

	// Account endpoints.
	mux.HandleFunc("POST /api/accounts", handlers.Accounts.CreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", handlers.Accounts.GetAccount)
	mux.HandleFunc("GET /api/accounts/{id}/bets", handlers.Bets.ListAccountBets)

	// Phase and event log.
	mux.HandleFunc("GET /api/phase", handlers.Phase.GetPhase)
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)

	// Operator endpoints behind the API key.
	admin := http.NewServeMux()
	admin.HandleFunc("POST /api/admin/pools/{id}/void", handlers.Admin.VoidPool)
	admin.HandleFunc("GET /api/admin/reconciliation", handlers.Admin.Reconciliation)
	admin.HandleFunc("POST /api/admin/resume", handlers.Admin.Resume)
	mux.Handle("/api/admin/", middleware.Auth(cfg.APIKey)(admin))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, outermost last.
	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
