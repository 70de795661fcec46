package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// favoritesKey is the stable key holding the favorite symbols as a Redis set.
const favoritesKey = "marketd:favorites"

// FavoritesStore implements domain.FavoritesStore on a Redis set keyed by
// uppercased symbol.
type FavoritesStore struct {
	rdb *redis.Client
}

// NewFavoritesStore creates a FavoritesStore backed by the given Client.
func NewFavoritesStore(c *Client) *FavoritesStore {
	return &FavoritesStore{rdb: c.Underlying()}
}

// List returns all favorite symbols.
func (fs *FavoritesStore) List(ctx context.Context) ([]string, error) {
	members, err := fs.rdb.SMembers(ctx, favoritesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list favorites: %w", err)
	}
	return members, nil
}

// IsFavorite reports whether symbol is marked.
func (fs *FavoritesStore) IsFavorite(ctx context.Context, symbol string) (bool, error) {
	ok, err := fs.rdb.SIsMember(ctx, favoritesKey, domain.NormalizeSymbol(symbol)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: is favorite %s: %w", symbol, err)
	}
	return ok, nil
}

// Toggle flips membership for symbol and returns the new state.
func (fs *FavoritesStore) Toggle(ctx context.Context, symbol string) (bool, error) {
	sym := domain.NormalizeSymbol(symbol)

	ok, err := fs.rdb.SIsMember(ctx, favoritesKey, sym).Result()
	if err != nil {
		return false, fmt.Errorf("redis: toggle favorite %s: %w", sym, err)
	}

	if ok {
		if err := fs.rdb.SRem(ctx, favoritesKey, sym).Err(); err != nil {
			return false, fmt.Errorf("redis: unmark favorite %s: %w", sym, err)
		}
		return false, nil
	}
	if err := fs.rdb.SAdd(ctx, favoritesKey, sym).Err(); err != nil {
		return false, fmt.Errorf("redis: mark favorite %s: %w", sym, err)
	}
	return true, nil
}

// Compile-time interface check.
var _ domain.FavoritesStore = (*FavoritesStore)(nil)
