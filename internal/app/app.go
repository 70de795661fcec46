// Package app provides the top-level application lifecycle management for the
// market aggregator. It wires together all dependencies (providers, caches,
// history store, blob storage, and notifications) and runs the state
// container, scheduler, archiver, and API server until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketd/internal/config"
	"github.com/alanyoungcy/marketd/internal/scheduler"
	"github.com/alanyoungcy/marketd/internal/server"
	"github.com/alanyoungcy/marketd/internal/server/handler"
	"github.com/alanyoungcy/marketd/internal/server/ws"
)

// Version is the reported service version. Overridable at build time with
// -ldflags "-X .../internal/app.Version=v1.2.3".
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
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

// Run is the main entry point. It wires all dependencies, starts the state
// container, scheduler, optional archiver, WebSocket hub, and HTTP server,
// and blocks until the context is cancelled. On return it runs all registered
// cleanup functions.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	a.logger.InfoContext(ctx, "starting application",
		slog.String("version", Version),
		slog.String("cache_backend", a.cfg.Cache.Backend),
		slog.Bool("history", a.cfg.History.Enabled),
		slog.Bool("archive", a.cfg.Archive.Enabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	hub := ws.NewHub(deps.Bus, deps.State, a.logger)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:  handler.NewHealth(Version),
			Coins:   handler.NewCoins(deps.State, deps.History, a.logger),
			Global:  handler.NewGlobal(deps.State),
			Status:  handler.NewStatus(deps.State),
			Intents: handler.NewIntents(deps.State),
		},
		hub,
		a.logger,
	)

	sched := scheduler.New(deps.State, scheduler.Config{
		CoinInterval:   a.cfg.Market.CoinRefresh(),
		GlobalInterval: a.cfg.Market.GlobalRefresh(),
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := deps.State.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("app: state container: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("app: ws hub: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("app: scheduler: %w", err)
		}
		return nil
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			if err := deps.Archiver.RunLoop(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("app: archiver: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-gctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
