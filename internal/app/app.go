// Package app provides the top-level application lifecycle for contractd. It
// wires together the durable store, registry, services, HTTP server, WebSocket
// hub, and optional price feed, and runs them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantship/contractd/internal/config"
	"github.com/quantship/contractd/internal/feed"
	"github.com/quantship/contractd/internal/server"
	"github.com/quantship/contractd/internal/server/handler"
	"github.com/quantship/contractd/internal/server/ws"
)

// shutdownTimeout bounds how long in-flight requests get to finish once the
// run context is cancelled.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, restores persisted contracts, and starts the
// WebSocket hub, HTTP server, and optional feed goroutines. It blocks until
// the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("storage_backend", a.cfg.Storage.Backend),
		slog.String("log_level", a.cfg.LogLevel),
	)

	hub := ws.NewHub(a.logger)

	deps, cleanup, err := Wire(ctx, a.cfg, hub, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	restored, err := deps.Contracts.RestoreAll(ctx)
	if err != nil {
		return fmt.Errorf("app: restore contracts: %w", err)
	}
	a.logger.InfoContext(ctx, "restored persisted contracts", slog.Int("count", restored))

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Contracts, a.logger),
		Contracts: handler.NewContractHandler(deps.Contracts, a.logger),
	}
	if deps.Archive != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.Archive, a.logger)
	}

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Feed.Enabled {
		sim := feed.NewSimulator(deps.Contracts, feed.Config{
			Interval:   time.Duration(a.cfg.Feed.IntervalMs) * time.Millisecond,
			BasePrice:  a.cfg.Feed.BasePrice,
			Volatility: a.cfg.Feed.Volatility,
		}, a.logger)
		g.Go(func() error {
			return sim.Run(ctx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
