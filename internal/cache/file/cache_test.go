package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketd/internal/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	coins := []domain.Coin{
		{Symbol: "BTC", Name: "Bitcoin", Price: 30000, DailyChange: 5.0, Sparkline: []float64{1, 2, 3}},
		{Symbol: "ETH", Name: "Ethereum", Price: 2000, DailyChange: 3.2},
	}

	require.NoError(t, c.SaveCoins(ctx, coins))

	got, err := c.LoadCoins(ctx)
	require.NoError(t, err)
	assert.Equal(t, coins, got)
}

func TestLoadCoinsMissing(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = c.LoadCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadCoinsCorrupt(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "coins.json"), []byte("{not json"), 0o644))

	_, err = c.LoadCoins(context.Background())
	assert.ErrorIs(t, err, domain.ErrCacheCorrupt)
}

func TestSaveCoinsReplacesSnapshot(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.SaveCoins(ctx, []domain.Coin{{Symbol: "BTC"}, {Symbol: "ETH"}}))
	require.NoError(t, c.SaveCoins(ctx, []domain.Coin{{Symbol: "RLC"}}))

	got, err := c.LoadCoins(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "RLC", got[0].Symbol)
}

func TestFavoritesToggle(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("ToggleOnThenOff", func(t *testing.T) {
		on, err := c.Toggle(ctx, "btc")
		require.NoError(t, err)
		assert.True(t, on)

		fav, err := c.IsFavorite(ctx, "BTC")
		require.NoError(t, err)
		assert.True(t, fav, "symbols are normalized on the way in")

		off, err := c.Toggle(ctx, "BTC")
		require.NoError(t, err)
		assert.False(t, off)

		fav, err = c.IsFavorite(ctx, "BTC")
		require.NoError(t, err)
		assert.False(t, fav)
	})

	t.Run("ListReflectsMembership", func(t *testing.T) {
		_, err := c.Toggle(ctx, "ETH")
		require.NoError(t, err)
		_, err = c.Toggle(ctx, "RLC")
		require.NoError(t, err)

		list, err := c.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"ETH", "RLC"}, list)
	})
}

func TestFavoritesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := New(dir)
	require.NoError(t, err)
	_, err = c.Toggle(ctx, "BTC")
	require.NoError(t, err)

	reopened, err := New(dir)
	require.NoError(t, err)
	fav, err := reopened.IsFavorite(ctx, "BTC")
	require.NoError(t, err)
	assert.True(t, fav)
}

func TestCorruptFavoritesDegradeToEmpty(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "favorites.json"), []byte("garbage"), 0o644))

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// A toggle still works and rewrites the file cleanly.
	on, err := c.Toggle(ctx, "BTC")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
