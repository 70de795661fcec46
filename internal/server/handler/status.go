package handler

import (
	"net/http"

	"github.com/alanyoungcy/marketd/internal/state"
)

// Status exposes freshness and degradation state of both fetch kinds.
type Status struct {
	store *state.Store
}

func NewStatus(store *state.Store) *Status {
	return &Status{store: store}
}

func (h *Status) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coin_status":       snap.CoinStatus,
		"global_status":     snap.GlobalStatus,
		"last_coin_fetch":   snap.LastCoinFetch,
		"last_global_fetch": snap.LastGlobalFetch,
		"advisory":          snap.Advisory,
		"coin_count":        len(snap.Coins),
	})
}
