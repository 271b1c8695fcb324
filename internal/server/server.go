// Package server is the headless HTTP + WebSocket API for the prediction
// market engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/minuteflip/flipd/internal/domain"
	"github.com/minuteflip/flipd/internal/server/handler"
	"github.com/minuteflip/flipd/internal/server/middleware"
	"github.com/minuteflip/flipd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimit       int    // requests per window per client IP; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers the server registers. Optional
// surfaces (chain, candles) may be nil and their routes stay unregistered.
type Handlers struct {
	Health      *handler.HealthHandler
	Rounds      *handler.RoundHandler
	Trades      *handler.TradeHandler
	Prices      *handler.PriceHandler
	Leaderboard *handler.LeaderboardHandler
	Positions   *handler.PositionHandler
	Chain       *handler.ChainHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limit, auth, logging, CORS) wired around it.
// rateLimiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, rateLimiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Round lifecycle.
	mux.HandleFunc("GET /api/rounds/current", handlers.Rounds.GetCurrent)
	mux.HandleFunc("GET /api/rounds", handlers.Rounds.ListRounds)
	mux.HandleFunc("GET /api/rounds/{id}", handlers.Rounds.GetRound)

	// Trading.
	mux.HandleFunc("POST /api/trades", handlers.Trades.PlaceTrade)

	// Oracle views.
	mux.HandleFunc("GET /api/price", handlers.Prices.GetPrice)
	mux.HandleFunc("GET /api/candles", handlers.Prices.GetCandles)

	// Reporting.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.Top)
	mux.HandleFunc("GET /api/positions/{user}", handlers.Positions.GetPosition)

	// Read-only chain passthrough.
	if handlers.Chain != nil {
		mux.HandleFunc("POST /api/chain/call", handlers.Chain.Call)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	if rateLimiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(rateLimiter, cfg.RateLimit, window)(h)
	}

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
