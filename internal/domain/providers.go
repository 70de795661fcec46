package domain

import "context"

// CoinProvider fetches and normalizes a full coin set from one remote source.
// Implementations are stateless: one network call, decode, map to []Coin or a
// typed failure. They never touch the cache or any shared state.
type CoinProvider interface {
	// FetchCoins performs one fetch against the provider's markets endpoint.
	// Missing optional provider fields map to documented defaults: absent
	// percent change is 0, absent sparkline is an empty slice, absent image
	// is the empty string.
	FetchCoins(ctx context.Context) ([]Coin, error)

	// Name returns the human-readable provider name used in provenance
	// messages ("Using fallback from <Name>.").
	Name() string
}

// GlobalProvider fetches and normalizes aggregate market stats from one
// remote source.
type GlobalProvider interface {
	FetchGlobal(ctx context.Context) (GlobalStats, error)
	Name() string
}
