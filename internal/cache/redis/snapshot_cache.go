package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// snapshotKey is the stable key holding the full coin snapshot as one JSON
// array, mirroring the flat-blob layout the cache contract requires.
const snapshotKey = "marketd:snapshot:coins"

// SnapshotCache implements domain.SnapshotCache on Redis, storing the
// last-known-good coin set as a single JSON value.
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

// SaveCoins replaces the stored snapshot with the given set. No TTL: the
// snapshot is last-known-good data and stays valid until overwritten.
func (sc *SnapshotCache) SaveCoins(ctx context.Context, coins []domain.Coin) error {
	data, err := json.Marshal(coins)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: save snapshot: %w", err)
	}
	return nil
}

// LoadCoins returns the stored snapshot. A missing key maps to
// domain.ErrNotFound and an unparseable value to domain.ErrCacheCorrupt;
// callers treat both as a cache miss.
func (sc *SnapshotCache) LoadCoins(ctx context.Context) ([]domain.Coin, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: load snapshot: %w", err)
	}

	var coins []domain.Coin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, fmt.Errorf("redis: decode snapshot: %w", errors.Join(domain.ErrCacheCorrupt, err))
	}
	return coins, nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
