package domain

// Segment selects which slice of the working set the projection keeps after
// the search filter has been applied.
type Segment string

const (
	SegmentAll       Segment = "all"
	SegmentFavorites Segment = "favorites"
	SegmentGainers   Segment = "gainers"
	SegmentLosers    Segment = "losers"
)

// Valid reports whether s is one of the known segments.
func (s Segment) Valid() bool {
	switch s {
	case SegmentAll, SegmentFavorites, SegmentGainers, SegmentLosers:
		return true
	}
	return false
}

// SortField selects the ordering applied after filtering. SortNone preserves
// the filtered order as-is.
type SortField string

const (
	SortNone        SortField = "none"
	SortSymbol      SortField = "symbol"
	SortPrice       SortField = "price"
	SortDailyChange SortField = "dailyChange"
	SortVolume      SortField = "volume"
)

// Valid reports whether f is one of the known sort fields.
func (f SortField) Valid() bool {
	switch f {
	case SortNone, SortSymbol, SortPrice, SortDailyChange, SortVolume:
		return true
	}
	return false
}

// SortDir is the sort direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Valid reports whether d is one of the known directions.
func (d SortDir) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// ProjectionState is the pure configuration of the user-visible view. The
// projected list is always a deterministic function of (coin set, favorites,
// ProjectionState) and is recomputed, never stored.
type ProjectionState struct {
	Search  string    `json:"search"`
	Segment Segment   `json:"segment"`
	Sort    SortField `json:"sort"`
	Dir     SortDir   `json:"dir"`
}

// DefaultProjection is the state applied at cold start.
func DefaultProjection() ProjectionState {
	return ProjectionState{
		Segment: SegmentAll,
		Sort:    SortNone,
		Dir:     SortAsc,
	}
}

// ToggleSort applies the sort-selection rule: choosing the field already in
// effect flips the direction, choosing a new field resets to ascending.
func (p *ProjectionState) ToggleSort(field SortField) {
	if p.Sort == field {
		if p.Dir == SortAsc {
			p.Dir = SortDesc
		} else {
			p.Dir = SortAsc
		}
		return
	}
	p.Sort = field
	p.Dir = SortAsc
}
