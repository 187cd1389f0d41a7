// Package server assembles the HTTP API for the fillscope service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkov/fillscope/internal/domain"
	"github.com/avolkov/fillscope/internal/server/handler"
	"github.com/avolkov/fillscope/internal/server/middleware"
	"github.com/avolkov/fillscope/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	StaticDir   string // if empty, static serving is disabled

	RateLimit       int           // per-client requests per window; 0 disables
	RateLimitWindow time.Duration // sliding window length
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Markets *handler.MarketHandler
	Trades  *handler.TradesHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered. limiter may be
// nil, which disables per-client rate limiting.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check and metrics (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Market listing.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)

	// Account lookup and trade retrieval.
	mux.HandleFunc("POST /api/lookup-accounts", handlers.Trades.LookupAccounts)
	mux.HandleFunc("POST /api/fetch-trades", handlers.Trades.FetchTrades)
	mux.HandleFunc("POST /api/fetch-trades/export", handlers.Trades.ExportTrades)

	// Fetch progress stream.
	if hub != nil {
		mux.HandleFunc("GET /ws/progress", hub.HandleWS)
	}

	// Static UI.
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.SecurityHeaders()(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // fetch-trades paginates upstream with pacing
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
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
