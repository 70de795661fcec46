package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketd/internal/domain"
)

func testCoins() []domain.Coin {
	return []domain.Coin{
		{Symbol: "BTC", Name: "Bitcoin", Price: 30000, DailyChange: 5.0, Volume: 18_000_000_000, Favorite: true},
		{Symbol: "ETH", Name: "Ethereum", Price: 2000, DailyChange: 3.2, Volume: 9_500_000_000},
		{Symbol: "USDT", Name: "Tether", Price: 1.0, DailyChange: 0.0, Volume: 24_000_000_000},
		{Symbol: "BNB", Name: "BNB", Price: 300, DailyChange: -1.1, Volume: 1_200_000_000},
		{Symbol: "RLC", Name: "iExec RLC", Price: 1.5, DailyChange: 10.0, Volume: 35_000_000},
	}
}

func symbols(coins []domain.Coin) []string {
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = c.Symbol
	}
	return out
}

func TestProjectFiltering(t *testing.T) {
	coins := testCoins()

	t.Run("DefaultStateKeepsEverythingInOrder", func(t *testing.T) {
		got := Project(coins, nil, domain.DefaultProjection())
		assert.Equal(t, []string{"BTC", "ETH", "USDT", "BNB", "RLC"}, symbols(got))
	})

	t.Run("SearchMatchesSymbolAndNameCaseInsensitively", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Search = "bit"
		got := Project(coins, nil, state)
		assert.Equal(t, []string{"BTC"}, symbols(got))

		state.Search = "TETHER"
		got = Project(coins, nil, state)
		assert.Equal(t, []string{"USDT"}, symbols(got))
	})

	t.Run("SearchAndSegmentCompose", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Search = "b"
		state.Segment = domain.SegmentGainers
		// "b" matches BTC, BNB (symbol) and Bitcoin (name); only BTC gained.
		got := Project(coins, nil, state)
		assert.Equal(t, []string{"BTC"}, symbols(got))
	})

	t.Run("GainersExcludesZeroChange", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Segment = domain.SegmentGainers
		got := Project(coins, nil, state)
		assert.Equal(t, []string{"BTC", "ETH", "RLC"}, symbols(got))
	})

	t.Run("LosersExcludesZeroChange", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Segment = domain.SegmentLosers
		got := Project(coins, nil, state)
		assert.Equal(t, []string{"BNB"}, symbols(got))
	})

	t.Run("FavoritesUsesFlagOrSupplementalSet", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Segment = domain.SegmentFavorites
		got := Project(coins, map[string]bool{"ETH": true}, state)
		assert.Equal(t, []string{"BTC", "ETH"}, symbols(got))
	})

	t.Run("EmptyResultIsEmptyNotNilError", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Search = "zzz"
		got := Project(coins, nil, state)
		assert.Empty(t, got)
	})
}

func TestProjectSorting(t *testing.T) {
	coins := testCoins()

	t.Run("PriceAscending", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Sort = domain.SortPrice
		got := Project(coins, nil, state)
		assert.Equal(t, []string{"USDT", "RLC", "BNB", "ETH", "BTC"}, symbols(got))
	})

	t.Run("DailyChangeDescending", func(t *testing.T) {
		state := domain.DefaultProjection()
		state.Sort = domain.SortDailyChange
		state.Dir = domain.SortDesc
		got := Project(coins, nil, state)
		assert.Equal(t, []string{"RLC", "BTC", "ETH", "USDT", "BNB"}, symbols(got))
	})

	t.Run("StableSortPreservesTieOrder", func(t *testing.T) {
		tied := []domain.Coin{
			{Symbol: "AAA", Price: 10},
			{Symbol: "BBB", Price: 10},
			{Symbol: "CCC", Price: 10},
		}
		state := domain.DefaultProjection()
		state.Sort = domain.SortPrice
		got := Project(tied, nil, state)
		assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbols(got))

		state.Dir = domain.SortDesc
		got = Project(tied, nil, state)
		assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbols(got))
	})
}

func TestProjectIsPure(t *testing.T) {
	coins := testCoins()
	state := domain.ProjectionState{
		Search:  "b",
		Segment: domain.SegmentAll,
		Sort:    domain.SortVolume,
		Dir:     domain.SortDesc,
	}

	first := Project(coins, nil, state)
	second := Project(coins, nil, state)
	require.Equal(t, first, second)

	// The input slice keeps its original order.
	assert.Equal(t, []string{"BTC", "ETH", "USDT", "BNB", "RLC"}, symbols(coins))
}

func TestToggleSort(t *testing.T) {
	p := domain.DefaultProjection()

	p.ToggleSort(domain.SortPrice)
	assert.Equal(t, domain.SortPrice, p.Sort)
	assert.Equal(t, domain.SortAsc, p.Dir)

	p.ToggleSort(domain.SortPrice)
	assert.Equal(t, domain.SortDesc, p.Dir)

	// Switching fields resets the direction.
	p.ToggleSort(domain.SortVolume)
	assert.Equal(t, domain.SortVolume, p.Sort)
	assert.Equal(t, domain.SortAsc, p.Dir)
}
