package domain

import "time"

// FetchKind identifies which of the two independent fetch pipelines an
// operation belongs to. Coalescing, timeouts, and refresh periods are all
// tracked per kind.
type FetchKind string

const (
	FetchCoins  FetchKind = "coins"
	FetchGlobal FetchKind = "global"
)

// OutcomeStatus is the discriminant of a fetch outcome. Exactly one status is
// produced per fetch attempt.
type OutcomeStatus string

const (
	// StatusSuccess means the primary provider resolved within the timeout
	// with valid data.
	StatusSuccess OutcomeStatus = "success"

	// StatusFallback means the primary failed or timed out and a fallback
	// provider supplied the payload instead.
	StatusFallback OutcomeStatus = "fallback_success"

	// StatusTimedOut means the race timer won and no fallback produced data.
	StatusTimedOut OutcomeStatus = "timed_out"

	// StatusFailure means the primary returned an error and no fallback
	// produced data.
	StatusFailure OutcomeStatus = "failure"
)

// Degraded reports whether the status represents anything other than a clean
// primary success.
func (s OutcomeStatus) Degraded() bool {
	return s != StatusSuccess
}

// Outcome is the result of one coordinated fetch attempt. The same shape is
// instantiated for coin-set fetches (T = []Coin) and global-stat fetches
// (T = GlobalStats). Payload is only meaningful when the status is
// StatusSuccess or StatusFallback; Err is only set for StatusTimedOut and
// StatusFailure. Source names the provider that supplied the payload.
type Outcome[T any] struct {
	Status      OutcomeStatus
	Payload     T
	Source      string
	Err         error
	CompletedAt time.Time
}

// OK reports whether the outcome carries a usable payload.
func (o Outcome[T]) OK() bool {
	return o.Status == StatusSuccess || o.Status == StatusFallback
}
