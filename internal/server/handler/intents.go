package handler

import (
	"encoding/json"
	"net/http"

	"github.com/alanyoungcy/marketd/internal/domain"
	"github.com/alanyoungcy/marketd/internal/state"
)

// Intents handles the command endpoints: manual refresh, favorite toggling
// and projection updates. Every command is forwarded to the state store.
type Intents struct {
	store *state.Store
}

func NewIntents(store *state.Store) *Intents {
	return &Intents{store: store}
}

// Refresh triggers a fetch cycle. kind=coins, kind=global, or both when the
// parameter is absent. The fetch runs detached so a dropped client does not
// abort a cycle mid-flight.
func (h *Intents) Refresh(w http.ResponseWriter, r *http.Request) {
	kinds, err := refreshKinds(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, kind := range kinds {
		h.store.Refresh(r.Context(), kind)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"refreshing": kinds})
}

func refreshKinds(param string) ([]domain.FetchKind, error) {
	switch param {
	case "":
		return []domain.FetchKind{domain.FetchCoins, domain.FetchGlobal}, nil
	case string(domain.FetchCoins):
		return []domain.FetchKind{domain.FetchCoins}, nil
	case string(domain.FetchGlobal):
		return []domain.FetchKind{domain.FetchGlobal}, nil
	default:
		return nil, errBadQuery("kind", param)
	}
}

// ToggleFavorite flips the favorite flag of one symbol and returns its new
// value.
func (h *Intents) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(pathParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	favorite, err := h.store.ToggleFavorite(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "toggle failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "favorite": favorite})
}

type projectionRequest struct {
	Search     *string `json:"search"`
	Segment    *string `json:"segment"`
	ToggleSort *string `json:"toggle_sort"`
}

// UpdateProjection applies the partial projection update in the request body
// and returns the resulting snapshot's projection and projected list.
func (h *Intents) UpdateProjection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	update := state.ProjectionUpdate{Search: req.Search}
	if req.Segment != nil {
		seg := domain.Segment(*req.Segment)
		if !seg.Valid() {
			writeError(w, http.StatusBadRequest, errBadQuery("segment", *req.Segment).Error())
			return
		}
		update.Segment = &seg
	}
	if req.ToggleSort != nil {
		field := domain.SortField(*req.ToggleSort)
		if !field.Valid() {
			writeError(w, http.StatusBadRequest, errBadQuery("toggle_sort", *req.ToggleSort).Error())
			return
		}
		update.ToggleSort = &field
	}

	snap, err := h.store.UpdateProjection(r.Context(), update)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projection": snap.Projection,
		"coins":      snap.Projected,
	})
}
