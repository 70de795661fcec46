// Package server exposes the aggregated market state over HTTP and
// WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketd/internal/server/handler"
	"github.com/alanyoungcy/marketd/internal/server/middleware"
	"github.com/alanyoungcy/marketd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.Health
	Coins   *handler.Coins
	Global  *handler.Global
	Status  *handler.Status
	Intents *handler.Intents
}

// Server is the headless HTTP + WebSocket API for the market aggregator.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.Check)

	// Coin endpoints.
	mux.HandleFunc("GET /api/coins", handlers.Coins.List)
	mux.HandleFunc("GET /api/coins/all", handlers.Coins.All)
	mux.HandleFunc("GET /api/coins/{symbol}/history", handlers.Coins.History)

	// Global market statistics.
	mux.HandleFunc("GET /api/global", handlers.Global.Get)

	// Freshness and degradation state.
	mux.HandleFunc("GET /api/status", handlers.Status.Get)

	// Intent endpoints.
	mux.HandleFunc("POST /api/refresh", handlers.Intents.Refresh)
	mux.HandleFunc("POST /api/favorites/{symbol}/toggle", handlers.Intents.ToggleFavorite)
	mux.HandleFunc("PUT /api/projection", handlers.Intents.UpdateProjection)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
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
