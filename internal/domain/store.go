package domain

import (
	"context"
	"time"
)

// HistoryStore records one PricePoint per symbol per successful coin fetch
// and serves time-ranged reads for the history endpoint. Implementations are
// optional; when history is disabled the application runs without one.
type HistoryStore interface {
	// Append inserts the given points. Implementations should tolerate
	// duplicate (symbol, fetched_at) pairs.
	Append(ctx context.Context, points []PricePoint) error

	// List returns points for symbol observed at or after since, newest
	// first, at most limit entries.
	List(ctx context.Context, symbol string, since time.Time, limit int) ([]PricePoint, error)

	// ListBefore returns all points observed strictly before the cutoff,
	// used by the cold-storage archiver.
	ListBefore(ctx context.Context, before time.Time) ([]PricePoint, error)

	// DeleteBefore removes points observed strictly before the cutoff. It is
	// invoked only after an archive upload has succeeded.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
