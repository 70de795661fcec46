// Package projection derives the user-visible coin list from the full
// working set. Project is a pure function: identical inputs always yield the
// identical ordering, and the input slice is never mutated.
package projection

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// Project applies search, segment, and sort in that order. favorites
// supplements the Favorite flags already merged onto the coins: a symbol is
// treated as favorite when either source says so, which keeps the projection
// correct even before a re-merge has landed.
func Project(coins []domain.Coin, favorites map[string]bool, state domain.ProjectionState) []domain.Coin {
	out := make([]domain.Coin, 0, len(coins))

	search := strings.ToLower(strings.TrimSpace(state.Search))
	for _, c := range coins {
		if !matchSearch(c, search) {
			continue
		}
		if !matchSegment(c, favorites, state.Segment) {
			continue
		}
		out = append(out, c)
	}

	applySort(out, state.Sort, state.Dir)
	return out
}

// matchSearch reports whether the coin matches the lowercased search text.
// Empty search matches everything; otherwise symbol or display name must
// contain the text, case-insensitively.
func matchSearch(c domain.Coin, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Symbol), search) ||
		strings.Contains(strings.ToLower(c.Name), search)
}

// matchSegment applies the segment filter after search.
func matchSegment(c domain.Coin, favorites map[string]bool, seg domain.Segment) bool {
	switch seg {
	case domain.SegmentFavorites:
		return c.Favorite || favorites[domain.NormalizeSymbol(c.Symbol)]
	case domain.SegmentGainers:
		return c.DailyChange > 0
	case domain.SegmentLosers:
		return c.DailyChange < 0
	default:
		return true
	}
}

// applySort orders the filtered slice in place. SortNone preserves the
// filtered order; all other fields use a stable sort so ties keep their
// relative positions.
func applySort(coins []domain.Coin, field domain.SortField, dir domain.SortDir) {
	if field == domain.SortNone {
		return
	}

	less := func(a, b domain.Coin) bool { return false }
	switch field {
	case domain.SortSymbol:
		less = func(a, b domain.Coin) bool {
			return strings.ToLower(a.Symbol) < strings.ToLower(b.Symbol)
		}
	case domain.SortPrice:
		less = func(a, b domain.Coin) bool { return a.Price < b.Price }
	case domain.SortDailyChange:
		less = func(a, b domain.Coin) bool { return a.DailyChange < b.DailyChange }
	case domain.SortVolume:
		less = func(a, b domain.Coin) bool { return a.Volume < b.Volume }
	}

	sort.SliceStable(coins, func(i, j int) bool {
		if dir == domain.SortDesc {
			return less(coins[j], coins[i])
		}
		return less(coins[i], coins[j])
	})
}
