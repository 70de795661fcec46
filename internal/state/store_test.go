package state

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketd/internal/domain"
	"github.com/alanyoungcy/marketd/internal/market"
)

// --- test doubles ---

type memCache struct {
	mu    sync.Mutex
	coins []domain.Coin
	err   error
}

func (c *memCache) SaveCoins(ctx context.Context, coins []domain.Coin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coins = append([]domain.Coin(nil), coins...)
	return nil
}

func (c *memCache) LoadCoins(ctx context.Context) ([]domain.Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.coins == nil {
		return nil, domain.ErrNotFound
	}
	return append([]domain.Coin(nil), c.coins...), nil
}

type memFavorites struct {
	mu   sync.Mutex
	favs map[string]bool
}

func newMemFavorites() *memFavorites {
	return &memFavorites{favs: make(map[string]bool)}
}

func (f *memFavorites) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.favs))
	for sym := range f.favs {
		out = append(out, sym)
	}
	return out, nil
}

func (f *memFavorites) IsFavorite(ctx context.Context, symbol string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.favs[domain.NormalizeSymbol(symbol)], nil
}

func (f *memFavorites) Toggle(ctx context.Context, symbol string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sym := domain.NormalizeSymbol(symbol)
	now := !f.favs[sym]
	if now {
		f.favs[sym] = true
	} else {
		delete(f.favs, sym)
	}
	return now, nil
}

type coinProviderFunc struct {
	name string
	fn   func(ctx context.Context) ([]domain.Coin, error)
}

func (p coinProviderFunc) Name() string { return p.name }
func (p coinProviderFunc) FetchCoins(ctx context.Context) ([]domain.Coin, error) {
	return p.fn(ctx)
}

type globalProviderFunc struct {
	name string
	fn   func(ctx context.Context) (domain.GlobalStats, error)
}

func (p globalProviderFunc) Name() string { return p.name }
func (p globalProviderFunc) FetchGlobal(ctx context.Context) (domain.GlobalStats, error) {
	return p.fn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(ctx context.Context, event, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+": "+title)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// --- harness ---

type fixture struct {
	store     *Store
	cache     *memCache
	favorites *memFavorites
	cancel    context.CancelFunc
}

func newFixture(t *testing.T, coinFn func(ctx context.Context) ([]domain.Coin, error), globalFn func(ctx context.Context) (domain.GlobalStats, error), notifier Notifier, cfg Config) *fixture {
	t.Helper()

	if coinFn == nil {
		coinFn = func(ctx context.Context) ([]domain.Coin, error) { return nil, domain.ErrTransport }
	}
	if globalFn == nil {
		globalFn = func(ctx context.Context) (domain.GlobalStats, error) {
			return domain.GlobalStats{}, domain.ErrTransport
		}
	}

	logger := slog.New(slog.DiscardHandler)
	cache := &memCache{}
	favorites := newMemFavorites()

	coordinator := market.NewCoordinator(
		coinProviderFunc{name: "Primary", fn: coinFn}, nil,
		globalProviderFunc{name: "Primary", fn: globalFn}, nil,
		cache, nil,
		market.Config{CoinTimeout: time.Second, GlobalTimeout: time.Second},
		logger,
	)

	store := NewStore(coordinator, cache, favorites, nil, notifier, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx)
	t.Cleanup(cancel)

	return &fixture{store: store, cache: cache, favorites: favorites, cancel: cancel}
}

func symbols(coins []domain.Coin) []string {
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = c.Symbol
	}
	return out
}

// --- tests ---

func TestColdStartWithEmptyCacheShowsSeedSet(t *testing.T) {
	f := newFixture(t, nil, nil, nil, Config{})

	snap, err := f.store.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH", "USDT", "BNB", "RLC"}, symbols(snap.Coins))
	assert.Equal(t, snap.Coins, snap.Projected, "default projection shows everything")
	assert.Empty(t, snap.Advisory, "cold start degrades silently")
	assert.Equal(t, domain.DefaultProjection(), snap.Projection)
}

func TestColdStartWithCorruptCacheShowsSeedSetSilently(t *testing.T) {
	f := newFixture(t, nil, nil, nil, Config{})
	f.cache.mu.Lock()
	f.cache.err = domain.ErrCacheCorrupt
	f.cache.mu.Unlock()

	// Restart against the corrupt cache.
	logger := slog.New(slog.DiscardHandler)
	coordinator := market.NewCoordinator(
		coinProviderFunc{name: "Primary", fn: func(ctx context.Context) ([]domain.Coin, error) { return nil, domain.ErrTransport }}, nil,
		globalProviderFunc{name: "Primary", fn: func(ctx context.Context) (domain.GlobalStats, error) { return domain.GlobalStats{}, domain.ErrTransport }}, nil,
		f.cache, nil, market.Config{}, logger,
	)
	store := NewStore(coordinator, f.cache, f.favorites, nil, nil, Config{}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Coins, 5)
	assert.Empty(t, snap.Advisory)
}

func TestColdStartMergesPersistedFavorites(t *testing.T) {
	favorites := newMemFavorites()
	_, err := favorites.Toggle(context.Background(), "BTC")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	cache := &memCache{}
	coordinator := market.NewCoordinator(
		coinProviderFunc{name: "Primary", fn: func(ctx context.Context) ([]domain.Coin, error) { return nil, domain.ErrTransport }}, nil,
		globalProviderFunc{name: "Primary", fn: func(ctx context.Context) (domain.GlobalStats, error) { return domain.GlobalStats{}, domain.ErrTransport }}, nil,
		cache, nil, market.Config{}, logger,
	)
	store := NewStore(coordinator, cache, favorites, nil, nil, Config{}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	for _, c := range snap.Coins {
		if c.Symbol == "BTC" {
			assert.True(t, c.Favorite)
		} else {
			assert.False(t, c.Favorite)
		}
	}
}

func TestRefreshSyncReplacesWorkingSetAndRemergesFavorites(t *testing.T) {
	fetched := []domain.Coin{
		{Symbol: "BTC", Price: 31000, DailyChange: 2.0},
		{Symbol: "SOL", Price: 95, DailyChange: -0.5},
	}
	f := newFixture(t, func(ctx context.Context) ([]domain.Coin, error) { return fetched, nil }, nil, nil, Config{})
	ctx := context.Background()

	fav, err := f.store.ToggleFavorite(ctx, "BTC")
	require.NoError(t, err)
	require.True(t, fav)

	require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))

	snap, err := f.store.Snapshot(ctx)
	require.NoError(t, err)

	// Full replacement, not a patch: the seed set is gone.
	require.Equal(t, []string{"BTC", "SOL"}, symbols(snap.Coins))
	assert.True(t, snap.Coins[0].Favorite, "favorite survives the set replacement")
	assert.False(t, snap.Coins[1].Favorite)
	assert.Equal(t, domain.StatusSuccess, snap.CoinStatus)
	assert.Empty(t, snap.Advisory)
	assert.False(t, snap.LastCoinFetch.IsZero())
}

func TestRefreshSyncFailureKeepsPreviousSetAndSetsAdvisory(t *testing.T) {
	f := newFixture(t, nil, nil, nil, Config{}) // coin provider always fails
	ctx := context.Background()

	require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))

	snap, err := f.store.Snapshot(ctx)
	require.NoError(t, err)

	assert.Len(t, snap.Coins, 5, "seed set stays visible")
	assert.Equal(t, domain.StatusFailure, snap.CoinStatus)
	assert.Contains(t, snap.Advisory, "Coin data error:")
}

func TestRefreshSyncGlobalSuccess(t *testing.T) {
	stats := domain.GlobalStats{TotalMarketCap: 1.1e12, BTCDominance: 50.1}
	f := newFixture(t, nil, func(ctx context.Context) (domain.GlobalStats, error) { return stats, nil }, nil, Config{})
	ctx := context.Background()

	require.NoError(t, f.store.RefreshSync(ctx, domain.FetchGlobal))

	snap, err := f.store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, snap.Global)
	assert.Equal(t, domain.StatusSuccess, snap.GlobalStatus)
}

func TestAdvisoryClearsOnRecovery(t *testing.T) {
	var failing = true
	var mu sync.Mutex
	f := newFixture(t, func(ctx context.Context) ([]domain.Coin, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return nil, domain.ErrBadStatus
		}
		return []domain.Coin{{Symbol: "BTC"}}, nil
	}, nil, nil, Config{})
	ctx := context.Background()

	require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))
	snap, _ := f.store.Snapshot(ctx)
	require.NotEmpty(t, snap.Advisory)

	mu.Lock()
	failing = false
	mu.Unlock()

	require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))
	snap, _ = f.store.Snapshot(ctx)
	assert.Empty(t, snap.Advisory)
	assert.Equal(t, domain.StatusSuccess, snap.CoinStatus)
}

func TestUpdateProjection(t *testing.T) {
	f := newFixture(t, nil, nil, nil, Config{})
	ctx := context.Background()

	t.Run("SegmentGainers", func(t *testing.T) {
		seg := domain.SegmentGainers
		snap, err := f.store.UpdateProjection(ctx, ProjectionUpdate{Segment: &seg})
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC", "ETH", "RLC"}, symbols(snap.Projected))
	})

	t.Run("SearchComposesWithSegment", func(t *testing.T) {
		search := "bit"
		snap, err := f.store.UpdateProjection(ctx, ProjectionUpdate{Search: &search})
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC"}, symbols(snap.Projected))
	})

	t.Run("ToggleSortFlipsDirection", func(t *testing.T) {
		// Reset filters first.
		search := ""
		seg := domain.SegmentAll
		_, err := f.store.UpdateProjection(ctx, ProjectionUpdate{Search: &search, Segment: &seg})
		require.NoError(t, err)

		field := domain.SortPrice
		snap, err := f.store.UpdateProjection(ctx, ProjectionUpdate{ToggleSort: &field})
		require.NoError(t, err)
		assert.Equal(t, domain.SortAsc, snap.Projection.Dir)
		assert.Equal(t, "USDT", snap.Projected[0].Symbol)

		snap, err = f.store.UpdateProjection(ctx, ProjectionUpdate{ToggleSort: &field})
		require.NoError(t, err)
		assert.Equal(t, domain.SortDesc, snap.Projection.Dir)
		assert.Equal(t, "BTC", snap.Projected[0].Symbol)
	})

	t.Run("InvalidSegmentIsIgnored", func(t *testing.T) {
		seg := domain.Segment("bogus")
		snap, err := f.store.UpdateProjection(ctx, ProjectionUpdate{Segment: &seg})
		require.NoError(t, err)
		assert.Equal(t, domain.SegmentAll, snap.Projection.Segment)
	})
}

func TestToggleFavoriteIsDurable(t *testing.T) {
	f := newFixture(t, nil, nil, nil, Config{})
	ctx := context.Background()

	fav, err := f.store.ToggleFavorite(ctx, "eth")
	require.NoError(t, err)
	assert.True(t, fav)

	persisted, err := f.favorites.IsFavorite(ctx, "ETH")
	require.NoError(t, err)
	assert.True(t, persisted, "durable write happens before the in-memory flag")

	fav, err = f.store.ToggleFavorite(ctx, "ETH")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestToggleFavoriteEmptySymbol(t *testing.T) {
	f := newFixture(t, nil, nil, nil, Config{})
	_, err := f.store.ToggleFavorite(context.Background(), "  ")
	assert.Error(t, err)
}

func TestDegradationAlertFiresOnceAtThreshold(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newFixture(t, nil, nil, notifier, Config{DegradedAlertAfter: 3})
	ctx := context.Background()

	for range 5 {
		require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))
	}

	assert.Equal(t, 1, notifier.count(), "alert fires exactly at the threshold, not on every cycle")
}

func TestDegradationCounterResetsOnSuccess(t *testing.T) {
	notifier := &recordingNotifier{}
	var failing = true
	var mu sync.Mutex
	f := newFixture(t, func(ctx context.Context) ([]domain.Coin, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return nil, domain.ErrBadStatus
		}
		return []domain.Coin{{Symbol: "BTC"}}, nil
	}, nil, notifier, Config{DegradedAlertAfter: 3})
	ctx := context.Background()

	for range 2 {
		require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))
	}
	mu.Lock()
	failing = false
	mu.Unlock()
	require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))
	mu.Lock()
	failing = true
	mu.Unlock()
	for range 2 {
		require.NoError(t, f.store.RefreshSync(ctx, domain.FetchCoins))
	}

	assert.Zero(t, notifier.count(), "success in between resets the streak")
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFixture(t, nil, nil, nil, Config{})
	ctx := context.Background()

	snap, err := f.store.Snapshot(ctx)
	require.NoError(t, err)
	snap.Coins[0].Symbol = "MUTATED"

	again, err := f.store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BTC", again.Coins[0].Symbol)
}
