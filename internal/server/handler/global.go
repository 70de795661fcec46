package handler

import (
	"net/http"

	"github.com/alanyoungcy/marketd/internal/state"
)

// Global serves the aggregated market statistics endpoint.
type Global struct {
	store *state.Store
}

func NewGlobal(store *state.Store) *Global {
	return &Global{store: store}
}

func (h *Global) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"global":   snap.Global,
		"status":   snap.GlobalStatus,
		"advisory": snap.Advisory,
	})
}
