package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketd/internal/domain"
	"github.com/alanyoungcy/marketd/internal/projection"
	"github.com/alanyoungcy/marketd/internal/state"
)

// Coins serves the coin list endpoints. Reads come from the state store's
// snapshot; the optional per-request query parameters re-project the list
// without mutating server-side projection state.
type Coins struct {
	store   *state.Store
	history domain.HistoryStore // nil when price history is disabled
	logger  *slog.Logger
}

func NewCoins(store *state.Store, history domain.HistoryStore, logger *slog.Logger) *Coins {
	return &Coins{store: store, history: history, logger: logger}
}

// List returns the projected coin list. Query parameters search, segment,
// sort and dir override the stored projection for this request only.
func (h *Coins) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "state unavailable")
		return
	}

	override, ok, err := projectionOverride(r, snap.Projection)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	coins := snap.Projected
	if ok {
		coins = projection.Project(snap.Coins, favoriteSet(snap.Coins), override)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"coins":      coins,
		"projection": snap.Projection,
		"advisory":   snap.Advisory,
	})
}

// All returns every tracked coin regardless of projection state.
func (h *Coins) All(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coins": snap.Coins})
}

// History returns persisted price points for one symbol, newest first.
func (h *Coins) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "price history is not enabled")
		return
	}

	symbol := domain.NormalizeSymbol(pathParam(r, "symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = t
	}
	limit := queryInt(r, "limit", 500)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	points, err := h.history.List(ctx, symbol, since, limit)
	if err != nil {
		h.logger.Error("history query failed", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "points": points})
}

// projectionOverride builds a request-scoped projection from query
// parameters, starting from the stored projection. ok reports whether any
// parameter was supplied.
func projectionOverride(r *http.Request, base domain.ProjectionState) (domain.ProjectionState, bool, error) {
	q := r.URL.Query()
	ok := false

	if v, has := q["search"]; has {
		base.Search = v[0]
		ok = true
	}
	if v := q.Get("segment"); v != "" {
		seg := domain.Segment(v)
		if !seg.Valid() {
			return base, false, errBadQuery("segment", v)
		}
		base.Segment = seg
		ok = true
	}
	if v := q.Get("sort"); v != "" {
		field := domain.SortField(v)
		if !field.Valid() {
			return base, false, errBadQuery("sort", v)
		}
		base.Sort = field
		ok = true
	}
	if v := q.Get("dir"); v != "" {
		dir := domain.SortDir(v)
		if !dir.Valid() {
			return base, false, errBadQuery("dir", v)
		}
		base.Dir = dir
		ok = true
	}
	return base, ok, nil
}

func favoriteSet(coins []domain.Coin) map[string]bool {
	set := make(map[string]bool, len(coins))
	for _, c := range coins {
		if c.Favorite {
			set[c.Symbol] = true
		}
	}
	return set
}

type badQueryError struct{ param, value string }

func errBadQuery(param, value string) error { return badQueryError{param, value} }

func (e badQueryError) Error() string {
	return "invalid " + e.param + " value: " + e.value
}
