// Package market implements the fallback race coordinator: each fetch races
// the primary provider against a fixed timer, escalates to fallback providers
// when the primary loses or fails, and always terminates in exactly one of
// the four outcome variants. Successful payloads are persisted to the
// snapshot cache and the optional history store before the outcome is
// returned.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// Config holds the coordinator's per-kind race timeouts. Zero values select
// the 3-second defaults.
type Config struct {
	CoinTimeout   time.Duration
	GlobalTimeout time.Duration
}

const defaultTimeout = 3 * time.Second

// Coordinator arbitrates fetches for both kinds. Concurrent invocations of
// the same kind are coalesced through singleflight, so a manual refresh
// issued while an auto-refresh cycle is in flight joins that cycle instead of
// racing it.
type Coordinator struct {
	coinPrimary     domain.CoinProvider
	coinFallbacks   []domain.CoinProvider
	globalPrimary   domain.GlobalProvider
	globalFallbacks []domain.GlobalProvider

	cache   domain.SnapshotCache
	history domain.HistoryStore // nil when history is disabled

	coinTimeout   time.Duration
	globalTimeout time.Duration

	group  singleflight.Group
	logger *slog.Logger
}

// NewCoordinator creates a Coordinator. cache must be non-nil; history may be
// nil. The fallback slices may be empty, in which case a lost race produces
// TimedOut or Failure directly.
func NewCoordinator(
	coinPrimary domain.CoinProvider,
	coinFallbacks []domain.CoinProvider,
	globalPrimary domain.GlobalProvider,
	globalFallbacks []domain.GlobalProvider,
	cache domain.SnapshotCache,
	history domain.HistoryStore,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if cfg.CoinTimeout <= 0 {
		cfg.CoinTimeout = defaultTimeout
	}
	if cfg.GlobalTimeout <= 0 {
		cfg.GlobalTimeout = defaultTimeout
	}
	return &Coordinator{
		coinPrimary:     coinPrimary,
		coinFallbacks:   coinFallbacks,
		globalPrimary:   globalPrimary,
		globalFallbacks: globalFallbacks,
		cache:           cache,
		history:         history,
		coinTimeout:     cfg.CoinTimeout,
		globalTimeout:   cfg.GlobalTimeout,
		logger:          logger.With(slog.String("component", "coordinator")),
	}
}

// FetchCoins runs one coordinated coin-set fetch and returns its outcome.
// Payloads are deduplicated by symbol, written to the snapshot cache, and
// appended to the history store before the outcome is returned, so a caller
// that observes the outcome is guaranteed the cache write has completed.
func (c *Coordinator) FetchCoins(ctx context.Context) domain.Outcome[[]domain.Coin] {
	v, _, _ := c.group.Do(string(domain.FetchCoins), func() (any, error) {
		primary := fetcher[[]domain.Coin]{name: c.coinPrimary.Name(), fetch: c.coinPrimary.FetchCoins}
		fallbacks := make([]fetcher[[]domain.Coin], 0, len(c.coinFallbacks))
		for _, f := range c.coinFallbacks {
			fallbacks = append(fallbacks, fetcher[[]domain.Coin]{name: f.Name(), fetch: f.FetchCoins})
		}

		outcome := runRace(ctx, c.coinTimeout, primary, fallbacks, c.logger)
		if outcome.OK() {
			outcome.Payload = domain.DedupeBySymbol(outcome.Payload)
			c.persistCoins(ctx, outcome)
		}
		return outcome, nil
	})
	return v.(domain.Outcome[[]domain.Coin])
}

// FetchGlobal runs one coordinated global-stats fetch and returns its
// outcome. No second global provider is registered today; the fallback slice
// is an extension point and a lost race yields TimedOut or Failure.
func (c *Coordinator) FetchGlobal(ctx context.Context) domain.Outcome[domain.GlobalStats] {
	v, _, _ := c.group.Do(string(domain.FetchGlobal), func() (any, error) {
		primary := fetcher[domain.GlobalStats]{name: c.globalPrimary.Name(), fetch: c.globalPrimary.FetchGlobal}
		fallbacks := make([]fetcher[domain.GlobalStats], 0, len(c.globalFallbacks))
		for _, f := range c.globalFallbacks {
			fallbacks = append(fallbacks, fetcher[domain.GlobalStats]{name: f.Name(), fetch: f.FetchGlobal})
		}
		return runRace(ctx, c.globalTimeout, primary, fallbacks, c.logger), nil
	})
	return v.(domain.Outcome[domain.GlobalStats])
}

// persistCoins writes a successful coin payload to the snapshot cache and the
// history store. Persistence failures degrade to log entries: the fetched set
// is still usable in memory and the next successful cycle retries the write.
func (c *Coordinator) persistCoins(ctx context.Context, outcome domain.Outcome[[]domain.Coin]) {
	if err := c.cache.SaveCoins(ctx, outcome.Payload); err != nil {
		c.logger.ErrorContext(ctx, "snapshot cache write failed",
			slog.String("source", outcome.Source),
			slog.String("error", err.Error()),
		)
	}

	if c.history == nil {
		return
	}
	points := make([]domain.PricePoint, 0, len(outcome.Payload))
	for _, coin := range outcome.Payload {
		points = append(points, domain.PricePoint{
			Symbol:      coin.Symbol,
			Price:       coin.Price,
			DailyChange: coin.DailyChange,
			Volume:      coin.Volume,
			FetchedAt:   outcome.CompletedAt,
		})
	}
	if err := c.history.Append(ctx, points); err != nil {
		c.logger.WarnContext(ctx, "history append failed",
			slog.Int("points", len(points)),
			slog.String("error", err.Error()),
		)
	}
}

// Advisory renders the user-facing message for a degraded outcome. label is
// the fetch kind as shown to the user ("Coin data", "Global data"). A clean
// success returns the empty string, which clears any previous advisory.
func Advisory[T any](label string, outcome domain.Outcome[T]) string {
	switch outcome.Status {
	case domain.StatusFallback:
		return fmt.Sprintf("Using fallback from %s.", outcome.Source)
	case domain.StatusTimedOut:
		return fmt.Sprintf("%s request timed out. Using fallback/cached.", label)
	case domain.StatusFailure:
		return fmt.Sprintf("%s error: %v.", label, outcome.Err)
	default:
		return ""
	}
}
