package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL. One row is
// appended per symbol per successful coin fetch.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by the given connection pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Append inserts the given points using a pgx Batch. Duplicate
// (symbol, fetched_at) pairs are silently skipped, so re-delivered outcomes
// are idempotent.
func (s *HistoryStore) Append(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	const query = `
		INSERT INTO price_history (symbol, price, daily_change, volume, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, fetched_at) DO NOTHING`

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(query, p.Symbol, p.Price, p.DailyChange, p.Volume, p.FetchedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: append history point %d: %w", i, err)
		}
	}
	return nil
}

const historySelectCols = `symbol, price, daily_change, volume, fetched_at`

func scanHistoryRows(rows pgx.Rows) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Symbol, &p.Price, &p.DailyChange, &p.Volume, &p.FetchedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// List returns points for symbol observed at or after since, newest first,
// at most limit entries.
func (s *HistoryStore) List(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.PricePoint, error) {
	if limit <= 0 {
		limit = 500
	}

	query := fmt.Sprintf(`
		SELECT %s FROM price_history
		WHERE symbol = $1 AND fetched_at >= $2
		ORDER BY fetched_at DESC
		LIMIT $3`, historySelectCols)

	rows, err := s.pool.Query(ctx, query, domain.NormalizeSymbol(symbol), since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history %s: %w", symbol, err)
	}
	defer rows.Close()

	points, err := scanHistoryRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan history %s: %w", symbol, err)
	}
	return points, nil
}

// ListBefore returns all points observed strictly before the cutoff, oldest
// first, for archival.
func (s *HistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PricePoint, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM price_history
		WHERE fetched_at < $1
		ORDER BY fetched_at ASC`, historySelectCols)

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history before %s: %w", before, err)
	}
	defer rows.Close()

	points, err := scanHistoryRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan history before %s: %w", before, err)
	}
	return points, nil
}

// DeleteBefore removes points observed strictly before the cutoff and
// returns the number deleted.
func (s *HistoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM price_history WHERE fetched_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete history before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
