// Package scheduler drives the two auto-refresh loops: coin data every 60
// seconds and global data every 180 seconds by default. The loops are
// independent of each other and of manual refreshes, but each one awaits the
// full completion of its own cycle (network, cache write, state commit)
// before sleeping again, so a loop never overlaps its previous iteration.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// Refresher runs one full fetch cycle for a kind and returns when it is
// fully applied. Implemented by the state store.
type Refresher interface {
	RefreshSync(ctx context.Context, kind domain.FetchKind) error
}

// Config holds the refresh periods. Zero values select the defaults.
type Config struct {
	CoinInterval   time.Duration
	GlobalInterval time.Duration
}

const (
	defaultCoinInterval   = 60 * time.Second
	defaultGlobalInterval = 180 * time.Second
)

// Scheduler owns the two periodic loops. Both are cancelled as a unit when
// the context passed to Run is done.
type Scheduler struct {
	refresher Refresher
	coinEvery time.Duration
	globEvery time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

// New creates a Scheduler using the wall clock.
func New(refresher Refresher, cfg Config, logger *slog.Logger) *Scheduler {
	return NewWithClock(refresher, cfg, clock.New(), logger)
}

// NewWithClock creates a Scheduler with an injectable clock for tests.
func NewWithClock(refresher Refresher, cfg Config, clk clock.Clock, logger *slog.Logger) *Scheduler {
	if cfg.CoinInterval <= 0 {
		cfg.CoinInterval = defaultCoinInterval
	}
	if cfg.GlobalInterval <= 0 {
		cfg.GlobalInterval = defaultGlobalInterval
	}
	return &Scheduler{
		refresher: refresher,
		coinEvery: cfg.CoinInterval,
		globEvery: cfg.GlobalInterval,
		clock:     clk,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// Run starts both loops and blocks until the context is cancelled. Each loop
// fires once immediately so the UI is not stuck on cached data for a full
// interval after startup.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting",
		slog.Duration("coin_interval", s.coinEvery),
		slog.Duration("global_interval", s.globEvery),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop(ctx, domain.FetchCoins, s.coinEvery) })
	g.Go(func() error { return s.loop(ctx, domain.FetchGlobal, s.globEvery) })

	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

// loop runs one refresh cycle, then sleeps for interval measured from cycle
// completion. Using a plain timer instead of a ticker is what guarantees
// non-overlap: the next wait only starts after RefreshSync has returned.
func (s *Scheduler) loop(ctx context.Context, kind domain.FetchKind, interval time.Duration) error {
	for {
		s.runOnce(ctx, kind)

		timer := s.clock.Timer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, kind domain.FetchKind) {
	start := s.clock.Now()
	err := s.refresher.RefreshSync(ctx, kind)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("refresh cycle failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Debug("refresh cycle complete",
		slog.String("kind", string(kind)),
		slog.Duration("took", s.clock.Since(start)),
	)
}
