// Package server exposes the contract service over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantship/contractd/internal/server/handler"
	"github.com/quantship/contractd/internal/server/middleware"
	"github.com/quantship/contractd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server registers. Archive
// may be nil when no object storage is configured.
type Handlers struct {
	Health    *handler.HealthHandler
	Contracts *handler.ContractHandler
	Archive   *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API server for contractd.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered on the ServeMux and the
// middleware chain (logging, CORS) applied.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/contracts", handlers.Contracts.CreateContract)
	mux.HandleFunc("POST /api/contracts/{id}/price-update", handlers.Contracts.PriceUpdate)
	mux.HandleFunc("GET /api/contracts/{id}/price-update", handlers.Contracts.GetState)
	mux.HandleFunc("GET /api/contracts/{id}/state", handlers.Contracts.GetState)
	mux.HandleFunc("DELETE /api/contracts/{id}", handlers.Contracts.DeleteContract)

	if handlers.Archive != nil {
		mux.HandleFunc("POST /api/archive/export", handlers.Archive.Export)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
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
