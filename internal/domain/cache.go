package domain

import "context"

// SnapshotCache is the durable last-known-good storage for the normalized
// coin set. It is read once at cold start before any network activity and
// written after every successful fetch.
type SnapshotCache interface {
	// SaveCoins persists the full normalized set, replacing any previous
	// snapshot.
	SaveCoins(ctx context.Context, coins []Coin) error

	// LoadCoins returns the most recently saved set. Absent snapshots return
	// ErrNotFound; unreadable or unparseable snapshots return ErrCacheCorrupt.
	// Both are treated by callers as a cache miss, never as a user-facing
	// error.
	LoadCoins(ctx context.Context) ([]Coin, error)
}

// FavoritesStore is the durable set of user-marked symbols. Its lifecycle is
// independent of the coin set: a favorite survives the coin temporarily
// disappearing from a fetched set.
type FavoritesStore interface {
	// List returns all favorite symbols, uppercased.
	List(ctx context.Context) ([]string, error)

	// IsFavorite reports whether the symbol is marked.
	IsFavorite(ctx context.Context, symbol string) (bool, error)

	// Toggle flips the symbol's membership and returns the new state.
	Toggle(ctx context.Context, symbol string) (bool, error)
}

// SignalBus carries state snapshots and advisory events from the state store
// to push transports (the WebSocket hub).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
