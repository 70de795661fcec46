// Package state owns every piece of UI-visible mutable state: the working
// coin set, the projected list, global stats, the advisory message, and the
// projection configuration. A single goroutine (Run) is the only writer; UI
// surfaces issue intents through the Store's methods and observe immutable
// Snapshot values, either synchronously from the reply or pushed through the
// signal bus. Network callbacks never mutate state directly: fetch outcomes
// are handed to the owning goroutine as messages.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketd/internal/domain"
	"github.com/alanyoungcy/marketd/internal/market"
	"github.com/alanyoungcy/marketd/internal/projection"
)

// Bus channels the store publishes on after every state change.
const (
	ChannelState    = "marketd:state"
	ChannelAdvisory = "marketd:advisory"
)

// Snapshot is the immutable view of the store emitted after every mutation.
type Snapshot struct {
	Coins           []domain.Coin          `json:"coins"`
	Projected       []domain.Coin          `json:"projected"`
	Global          domain.GlobalStats     `json:"global"`
	Projection      domain.ProjectionState `json:"projection"`
	Advisory        string                 `json:"advisory,omitempty"`
	CoinStatus      domain.OutcomeStatus   `json:"coin_status,omitempty"`
	GlobalStatus    domain.OutcomeStatus   `json:"global_status,omitempty"`
	LastCoinFetch   time.Time              `json:"last_coin_fetch,omitzero"`
	LastGlobalFetch time.Time              `json:"last_global_fetch,omitzero"`
}

// AdvisoryEvent is published on ChannelAdvisory whenever a fetch completes
// degraded or recovers.
type AdvisoryEvent struct {
	Kind    domain.FetchKind `json:"kind"`
	Message string           `json:"message"`
}

// ProjectionUpdate carries the optional projection intents of one request.
// Nil fields leave the corresponding state untouched. ToggleSort applies the
// same-field-flips, new-field-resets rule.
type ProjectionUpdate struct {
	Search     *string
	Segment    *domain.Segment
	ToggleSort *domain.SortField
}

// Notifier is the slice of the notification system the store uses for
// degradation alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config tunes store behavior.
type Config struct {
	// DegradedAlertAfter is the number of consecutive degraded cycles of one
	// fetch kind after which a notification is sent. Zero disables alerts.
	DegradedAlertAfter int
}

// Store is the state container. All fields below the intents channel are
// owned by the Run goroutine and must not be touched from outside it.
type Store struct {
	coordinator *market.Coordinator
	cache       domain.SnapshotCache
	favorites   domain.FavoritesStore
	bus         domain.SignalBus
	notifier    Notifier // may be nil
	cfg         Config
	logger      *slog.Logger

	intents chan any

	// Loop-owned state.
	coins          []domain.Coin
	projected      []domain.Coin
	global         domain.GlobalStats
	projState      domain.ProjectionState
	favs           map[string]bool
	advisories     map[domain.FetchKind]string
	statuses       map[domain.FetchKind]domain.OutcomeStatus
	lastFetch      map[domain.FetchKind]time.Time
	degradedCycles map[domain.FetchKind]int
}

// NewStore creates a Store. bus and notifier may be nil; a nil bus disables
// push updates and a nil notifier disables degradation alerts.
func NewStore(
	coordinator *market.Coordinator,
	cache domain.SnapshotCache,
	favorites domain.FavoritesStore,
	bus domain.SignalBus,
	notifier Notifier,
	cfg Config,
	logger *slog.Logger,
) *Store {
	return &Store{
		coordinator:    coordinator,
		cache:          cache,
		favorites:      favorites,
		bus:            bus,
		notifier:       notifier,
		cfg:            cfg,
		logger:         logger.With(slog.String("component", "state")),
		intents:        make(chan any, 64),
		projState:      domain.DefaultProjection(),
		favs:           make(map[string]bool),
		advisories:     make(map[domain.FetchKind]string),
		statuses:       make(map[domain.FetchKind]domain.OutcomeStatus),
		lastFetch:      make(map[domain.FetchKind]time.Time),
		degradedCycles: make(map[domain.FetchKind]int),
	}
}

// Intent and internal message types consumed by the run loop.
type (
	snapshotReq struct {
		reply chan Snapshot
	}
	toggleFavoriteMsg struct {
		symbol string
		reply  chan toggleFavoriteResult
	}
	toggleFavoriteResult struct {
		favorite bool
		err      error
	}
	updateProjectionMsg struct {
		update ProjectionUpdate
		reply  chan Snapshot
	}
	coinOutcomeMsg struct {
		outcome domain.Outcome[[]domain.Coin]
		done    chan struct{}
	}
	globalOutcomeMsg struct {
		outcome domain.Outcome[domain.GlobalStats]
		done    chan struct{}
	}
)

// Run performs the cold start (cache before any network activity) and then
// processes intents until the context is cancelled.
func (s *Store) Run(ctx context.Context) error {
	s.coldStart(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("state store stopped")
			return ctx.Err()
		case msg := <-s.intents:
			s.handle(ctx, msg)
		}
	}
}

// coldStart loads favorites and the last-good snapshot so the first snapshot
// ever published is populated, falling back to the seed set when the cache is
// absent or corrupt. No network activity happens here.
func (s *Store) coldStart(ctx context.Context) {
	if list, err := s.favorites.List(ctx); err != nil {
		s.logger.Warn("load favorites failed", slog.String("error", err.Error()))
	} else {
		for _, sym := range list {
			s.favs[domain.NormalizeSymbol(sym)] = true
		}
	}

	coins, err := s.cache.LoadCoins(ctx)
	switch {
	case err == nil:
		s.logger.Info("loaded snapshot cache", slog.Int("coins", len(coins)))
	case errors.Is(err, domain.ErrNotFound):
		coins = domain.SeedCoins()
		s.logger.Info("no snapshot cache, using seed set")
	case errors.Is(err, domain.ErrCacheCorrupt):
		// Silent degradation: a first run must never show an error banner.
		coins = domain.SeedCoins()
		s.logger.Warn("snapshot cache corrupt, using seed set")
	default:
		coins = domain.SeedCoins()
		s.logger.Warn("snapshot cache unavailable, using seed set", slog.String("error", err.Error()))
	}

	s.coins = domain.MergeFavorites(domain.DedupeBySymbol(coins), s.favs)
	s.reproject()
	s.publish(ctx)
}

func (s *Store) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case snapshotReq:
		m.reply <- s.snapshotLocked()

	case toggleFavoriteMsg:
		m.reply <- s.applyToggleFavorite(ctx, m.symbol)

	case updateProjectionMsg:
		s.applyProjectionUpdate(m.update)
		s.reproject()
		s.publish(ctx)
		m.reply <- s.snapshotLocked()

	case coinOutcomeMsg:
		s.applyCoinOutcome(ctx, m.outcome)
		close(m.done)

	case globalOutcomeMsg:
		s.applyGlobalOutcome(ctx, m.outcome)
		close(m.done)

	default:
		s.logger.Warn("unknown intent", slog.String("type", fmt.Sprintf("%T", msg)))
	}
}

// applyCoinOutcome commits a finished coin fetch: on a usable payload the
// working set is replaced and favorites re-merged before the set is
// considered ready for projection; on timeout/failure the previous set stays
// visible and only the advisory changes.
func (s *Store) applyCoinOutcome(ctx context.Context, outcome domain.Outcome[[]domain.Coin]) {
	if outcome.OK() {
		s.coins = domain.MergeFavorites(outcome.Payload, s.favs)
	}
	s.recordOutcome(ctx, domain.FetchCoins, outcome.Status, outcome.CompletedAt,
		market.Advisory("Coin data", outcome))
	s.reproject()
	s.publish(ctx)
}

func (s *Store) applyGlobalOutcome(ctx context.Context, outcome domain.Outcome[domain.GlobalStats]) {
	if outcome.OK() {
		s.global = outcome.Payload
	}
	s.recordOutcome(ctx, domain.FetchGlobal, outcome.Status, outcome.CompletedAt,
		market.Advisory("Global data", outcome))
	s.publish(ctx)
}

// recordOutcome tracks status, advisory, completion timestamp, and the
// consecutive-degradation counter for one fetch kind, publishing the advisory
// event and firing the operator notification when the threshold is crossed.
func (s *Store) recordOutcome(ctx context.Context, kind domain.FetchKind, status domain.OutcomeStatus, at time.Time, advisory string) {
	s.statuses[kind] = status
	s.lastFetch[kind] = at

	prev := s.advisories[kind]
	s.advisories[kind] = advisory
	if prev != advisory {
		s.publishAdvisory(ctx, kind, advisory)
	}

	if !status.Degraded() {
		s.degradedCycles[kind] = 0
		return
	}
	s.degradedCycles[kind]++
	if s.notifier != nil && s.cfg.DegradedAlertAfter > 0 && s.degradedCycles[kind] == s.cfg.DegradedAlertAfter {
		title := fmt.Sprintf("marketd: %s fetch degraded", kind)
		msg := fmt.Sprintf("%d consecutive degraded cycles, last status %q. %s", s.degradedCycles[kind], status, advisory)
		if err := s.notifier.Notify(ctx, "degraded", title, msg); err != nil {
			s.logger.Warn("degradation alert failed", slog.String("error", err.Error()))
		}
	}
}

func (s *Store) applyToggleFavorite(ctx context.Context, symbol string) toggleFavoriteResult {
	sym := domain.NormalizeSymbol(symbol)
	if sym == "" {
		return toggleFavoriteResult{err: fmt.Errorf("state: empty symbol")}
	}

	// Durable write first; the in-memory flag follows only if it succeeds, so
	// the published state never claims a favorite the store did not persist.
	fav, err := s.favorites.Toggle(ctx, sym)
	if err != nil {
		return toggleFavoriteResult{err: fmt.Errorf("state: toggle favorite %s: %w", sym, err)}
	}

	if fav {
		s.favs[sym] = true
	} else {
		delete(s.favs, sym)
	}
	for i := range s.coins {
		if s.coins[i].Symbol == sym {
			s.coins[i].Favorite = fav
		}
	}
	s.reproject()
	s.publish(ctx)
	return toggleFavoriteResult{favorite: fav}
}

func (s *Store) applyProjectionUpdate(u ProjectionUpdate) {
	if u.Search != nil {
		s.projState.Search = *u.Search
	}
	if u.Segment != nil && u.Segment.Valid() {
		s.projState.Segment = *u.Segment
	}
	if u.ToggleSort != nil && u.ToggleSort.Valid() {
		s.projState.ToggleSort(*u.ToggleSort)
	}
}

func (s *Store) reproject() {
	s.projected = projection.Project(s.coins, s.favs, s.projState)
}

// snapshotLocked builds a Snapshot from loop-owned state. Slices are copied
// so readers can never observe a later mutation.
func (s *Store) snapshotLocked() Snapshot {
	coins := make([]domain.Coin, len(s.coins))
	copy(coins, s.coins)
	projected := make([]domain.Coin, len(s.projected))
	copy(projected, s.projected)

	advisory := s.advisories[domain.FetchCoins]
	if advisory == "" {
		advisory = s.advisories[domain.FetchGlobal]
	}

	return Snapshot{
		Coins:           coins,
		Projected:       projected,
		Global:          s.global,
		Projection:      s.projState,
		Advisory:        advisory,
		CoinStatus:      s.statuses[domain.FetchCoins],
		GlobalStatus:    s.statuses[domain.FetchGlobal],
		LastCoinFetch:   s.lastFetch[domain.FetchCoins],
		LastGlobalFetch: s.lastFetch[domain.FetchGlobal],
	}
}

func (s *Store) publish(ctx context.Context) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		s.logger.Error("marshal snapshot failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, ChannelState, data); err != nil {
		s.logger.Warn("publish snapshot failed", slog.String("error", err.Error()))
	}
}

func (s *Store) publishAdvisory(ctx context.Context, kind domain.FetchKind, message string) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(AdvisoryEvent{Kind: kind, Message: message})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ChannelAdvisory, data); err != nil {
		s.logger.Warn("publish advisory failed", slog.String("error", err.Error()))
	}
}

// ---------------------------------------------------------------------------
// Public intent surface. These are safe to call from any goroutine.
// ---------------------------------------------------------------------------

// Snapshot returns the current state.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.send(ctx, snapshotReq{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// ToggleFavorite flips the favorite flag for symbol, durably, and returns the
// new state. The projection is recomputed within the same logical operation.
func (s *Store) ToggleFavorite(ctx context.Context, symbol string) (bool, error) {
	reply := make(chan toggleFavoriteResult, 1)
	if err := s.send(ctx, toggleFavoriteMsg{symbol: symbol, reply: reply}); err != nil {
		return false, err
	}
	select {
	case res := <-reply:
		return res.favorite, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// UpdateProjection applies the given projection intents and returns the
// resulting snapshot.
func (s *Store) UpdateProjection(ctx context.Context, u ProjectionUpdate) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.send(ctx, updateProjectionMsg{update: u, reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// RefreshSync runs one full fetch cycle for kind, including the snapshot
// cache write and the state commit, and returns when it is fully applied.
// Concurrent calls for the same kind are coalesced by the coordinator: a
// caller arriving mid-cycle joins the in-flight fetch.
func (s *Store) RefreshSync(ctx context.Context, kind domain.FetchKind) error {
	done := make(chan struct{})
	switch kind {
	case domain.FetchCoins:
		outcome := s.coordinator.FetchCoins(ctx)
		if err := s.send(ctx, coinOutcomeMsg{outcome: outcome, done: done}); err != nil {
			return err
		}
	case domain.FetchGlobal:
		outcome := s.coordinator.FetchGlobal(ctx)
		if err := s.send(ctx, globalOutcomeMsg{outcome: outcome, done: done}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("state: unknown fetch kind %q", kind)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh triggers a fetch cycle for kind without waiting for it. Used by the
// manual-refresh endpoint; the cycle is detached from the request context so
// a closed connection cannot abort a half-applied fetch.
func (s *Store) Refresh(ctx context.Context, kind domain.FetchKind) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.RefreshSync(ctx, kind); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("background refresh failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (s *Store) send(ctx context.Context, msg any) error {
	select {
	case s.intents <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
