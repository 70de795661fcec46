// Package file implements the snapshot cache and favorites store as flat
// JSON files in a local directory, the single-node equivalent of the
// key-value blobs the aggregation core requires: one file for the coin
// snapshot, one for the favorite symbols.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/marketd/internal/domain"
)

const (
	snapshotFile  = "coins.json"
	favoritesFile = "favorites.json"
)

// Cache implements domain.SnapshotCache and domain.FavoritesStore on a
// directory of JSON files. Writes go through a temp file and rename so a
// crash mid-write can never corrupt the previous good snapshot.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a Cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("filecache: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filecache: create dir %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// SaveCoins persists the full normalized set, replacing any previous
// snapshot.
func (c *Cache) SaveCoins(_ context.Context, coins []domain.Coin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writeJSON(snapshotFile, coins); err != nil {
		return fmt.Errorf("filecache: save snapshot: %w", err)
	}
	return nil
}

// LoadCoins returns the most recently saved set. A missing file maps to
// domain.ErrNotFound, an unparseable one to domain.ErrCacheCorrupt.
func (c *Cache) LoadCoins(_ context.Context) ([]domain.Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, snapshotFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("filecache: read snapshot: %w", errors.Join(domain.ErrCacheCorrupt, err))
	}

	var coins []domain.Coin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, fmt.Errorf("filecache: decode snapshot: %w", errors.Join(domain.ErrCacheCorrupt, err))
	}
	return coins, nil
}

// List returns all favorite symbols.
func (c *Cache) List(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	favs, err := c.loadFavorites()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(favs))
	for sym := range favs {
		out = append(out, sym)
	}
	return out, nil
}

// IsFavorite reports whether symbol is marked.
func (c *Cache) IsFavorite(_ context.Context, symbol string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	favs, err := c.loadFavorites()
	if err != nil {
		return false, err
	}
	return favs[domain.NormalizeSymbol(symbol)], nil
}

// Toggle flips membership for symbol, writes the file, and returns the new
// state.
func (c *Cache) Toggle(_ context.Context, symbol string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	favs, err := c.loadFavorites()
	if err != nil {
		return false, err
	}

	sym := domain.NormalizeSymbol(symbol)
	now := !favs[sym]
	if now {
		favs[sym] = true
	} else {
		delete(favs, sym)
	}

	list := make([]string, 0, len(favs))
	for s := range favs {
		list = append(list, s)
	}
	if err := c.writeJSON(favoritesFile, list); err != nil {
		return false, fmt.Errorf("filecache: save favorites: %w", err)
	}
	return now, nil
}

// loadFavorites reads the favorites file into a set. A missing or corrupt
// file yields an empty set: favorites degrade silently rather than blocking
// a toggle.
func (c *Cache) loadFavorites() (map[string]bool, error) {
	favs := make(map[string]bool)

	data, err := os.ReadFile(filepath.Join(c.dir, favoritesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return favs, nil
		}
		return nil, fmt.Errorf("filecache: read favorites: %w", err)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return favs, nil
	}
	for _, sym := range list {
		favs[domain.NormalizeSymbol(sym)] = true
	}
	return favs, nil
}

// writeJSON marshals v and atomically replaces the named file.
func (c *Cache) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(c.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ domain.SnapshotCache  = (*Cache)(nil)
	_ domain.FavoritesStore = (*Cache)(nil)
)
