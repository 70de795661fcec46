package domain

import "errors"

// Sentinel errors for the fetch and cache failure taxonomy. Adapters and
// caches wrap these with fmt.Errorf("pkg: context: %w", ...) so callers can
// classify failures with errors.Is while logs keep the full chain.
var (
	// ErrNotFound is returned by caches and stores for absent keys.
	ErrNotFound = errors.New("not found")

	// ErrMalformedEndpoint indicates a provider base URL that cannot be
	// parsed. Endpoints are fixed literals, so hitting this at runtime is a
	// construction-time invariant violation.
	ErrMalformedEndpoint = errors.New("malformed endpoint")

	// ErrTransport covers network-level failures: unreachable host, DNS,
	// transport timeouts distinct from the coordinator's own race timer.
	ErrTransport = errors.New("transport failure")

	// ErrBadStatus indicates a non-2xx HTTP response from a provider.
	ErrBadStatus = errors.New("bad status")

	// ErrDecode indicates a provider payload that does not match the
	// expected schema.
	ErrDecode = errors.New("decode failure")

	// ErrRaceTimeout is produced when the coordinator's race timer wins
	// before the primary provider resolves.
	ErrRaceTimeout = errors.New("race timeout")

	// ErrCacheCorrupt indicates an unreadable or unparseable snapshot. It is
	// always recovered as a cache miss, never surfaced to the user.
	ErrCacheCorrupt = errors.New("cache corrupt")
)
