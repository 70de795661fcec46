// Package domain defines the normalized market model shared by every
// component: coin and global-stat records, fetch outcomes, projection state,
// and the port interfaces implemented by the cache, store, and provider
// adapters.
package domain

import (
	"strings"
	"time"
)

// Coin is the provider-agnostic representation of a single market listing.
// Symbol is the stable business key: it is always stored uppercased and no
// two coins in a working set share one. Favorite is never supplied by a
// remote source; it is merged locally from the favorites store after every
// set replacement.
type Coin struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	DailyChange float64   `json:"daily_change"`
	Volume      float64   `json:"volume"`
	Sparkline   []float64 `json:"sparkline,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Favorite    bool      `json:"favorite"`
}

// NormalizeSymbol returns the canonical form of a coin symbol used as the
// join key everywhere (favorites, merges, history lookups).
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// MergeFavorites returns a copy of coins with the Favorite flag set for every
// symbol present in favorites. The input slice is not mutated; the full set
// is replaced on every fetch and flags are re-derived, never patched.
func MergeFavorites(coins []Coin, favorites map[string]bool) []Coin {
	out := make([]Coin, len(coins))
	copy(out, coins)
	for i := range out {
		out[i].Favorite = favorites[NormalizeSymbol(out[i].Symbol)]
	}
	return out
}

// DedupeBySymbol enforces the working-set invariant that no two records
// share a symbol. The first occurrence wins; providers order results by rank,
// so the highest-ranked listing is kept.
func DedupeBySymbol(coins []Coin) []Coin {
	seen := make(map[string]bool, len(coins))
	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		sym := NormalizeSymbol(c.Symbol)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		c.Symbol = sym
		out = append(out, c)
	}
	return out
}

// GlobalStats is the single current snapshot of aggregate market data. It is
// replaced wholesale on each successful global fetch; no history is retained.
type GlobalStats struct {
	TotalMarketCap     float64   `json:"total_market_cap"`
	TotalVolume        float64   `json:"total_volume"`
	BTCDominance       float64   `json:"btc_dominance"`
	MarketCapChange24h float64   `json:"market_cap_change_24h"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PricePoint is one observation in the per-symbol price history, appended on
// every successful coin fetch.
type PricePoint struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	DailyChange float64   `json:"daily_change"`
	Volume      float64   `json:"volume"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SeedCoins returns the hardcoded set shown when both the network and the
// snapshot cache are unavailable, so a first run never renders empty.
func SeedCoins() []Coin {
	return []Coin{
		{Symbol: "BTC", Name: "Bitcoin", Price: 30000, DailyChange: 5.0, Volume: 18_000_000_000},
		{Symbol: "ETH", Name: "Ethereum", Price: 2000, DailyChange: 3.2, Volume: 9_500_000_000},
		{Symbol: "USDT", Name: "Tether", Price: 1.0, DailyChange: 0.0, Volume: 24_000_000_000},
		{Symbol: "BNB", Name: "BNB", Price: 300, DailyChange: -1.1, Volume: 1_200_000_000},
		{Symbol: "RLC", Name: "iExec RLC", Price: 1.5, DailyChange: 10.0, Volume: 35_000_000},
	}
}
