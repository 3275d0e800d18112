// Package query compiles the internal game-filter model into the upstream
// catalog's textual query grammar (Apicalypse over HTTP POST)
package query

import (
	"sort"

	perr "playdex/internal/platform/errors"
)

// Mode selects the compilation target
type Mode int

const (
	// ModeList compiles a row-returning query (fields, sort, pagination)
	ModeList Mode = iota
	// ModeCount compiles a count query (where clause only)
	ModeCount
)

// SortField enumerates the sortable game attributes
type SortField string

const (
	// SortNone requests upstream default ordering (relevance under search)
	SortNone SortField = ""
	// SortName sorts by game name
	SortName SortField = "name"
	// SortRating sorts by the 0-100 aggregate rating
	SortRating SortField = "rating"
	// SortRelease sorts by first release date
	SortRelease SortField = "release"
)

// Sort pairs a field with a direction
type Sort struct {
	Field SortField
	Desc  bool
}

// ParseSort parses keys like "rating-desc" or "name-asc"; empty means none
func ParseSort(s string) (Sort, error) {
	switch s {
	case "":
		return Sort{}, nil
	case "name-asc":
		return Sort{Field: SortName}, nil
	case "name-desc":
		return Sort{Field: SortName, Desc: true}, nil
	case "rating-asc":
		return Sort{Field: SortRating}, nil
	case "rating-desc":
		return Sort{Field: SortRating, Desc: true}, nil
	case "release-asc":
		return Sort{Field: SortRelease}, nil
	case "release-desc":
		return Sort{Field: SortRelease, Desc: true}, nil
	default:
		return Sort{}, perr.InvalidArgf("unknown sort key %q", s)
	}
}

// Criteria is the immutable per-request filter model
// Zero values disable the corresponding predicate
type Criteria struct {
	// Search is free text matched against game names (prefix semantics)
	Search string

	// RatingMin and RatingMax bound the 0-100 display rating; 0 disables
	// either side. The compiler widens these before querying and the list
	// pipeline re-filters on the rounded value afterwards
	RatingMin float64
	RatingMax float64

	// Genres, Platforms and Engines are conjunctive facet filters: a game
	// must carry every listed id, not any
	Genres    []int64
	Platforms []int64
	Engines   []int64

	// ReleasedAfter and ReleasedBefore bound the first release date in
	// epoch seconds; 0 disables either side
	ReleasedAfter  int64
	ReleasedBefore int64

	// AgeTiers restricts to the given PEGI tiers (3, 7, 12, 16, 18)
	AgeTiers []int

	Sort   Sort
	Limit  int
	Offset int
}

// HasRatingFilter reports whether either rating bound is active
func (c Criteria) HasRatingFilter() bool { return c.RatingMin > 0 || c.RatingMax > 0 }

// HasActiveFilters reports whether any predicate at all is active
// (pagination and sort do not count)
func (c Criteria) HasActiveFilters() bool {
	return c.Search != "" ||
		c.HasRatingFilter() ||
		len(c.Genres) > 0 || len(c.Platforms) > 0 || len(c.Engines) > 0 ||
		c.ReleasedAfter > 0 || c.ReleasedBefore > 0 ||
		len(c.AgeTiers) > 0
}

// Validate rejects criteria the compiler cannot express
func (c Criteria) Validate() error {
	if c.RatingMin < 0 || c.RatingMin > 100 {
		return perr.WithField(perr.InvalidArgf("rating bound out of range"), "rating_min")
	}
	if c.RatingMax < 0 || c.RatingMax > 100 {
		return perr.WithField(perr.InvalidArgf("rating bound out of range"), "rating_max")
	}
	if c.RatingMin > 0 && c.RatingMax > 0 && c.RatingMin > c.RatingMax {
		return perr.WithField(perr.InvalidArgf("rating_min exceeds rating_max"), "rating_min")
	}
	if c.Limit < 0 || c.Offset < 0 {
		return perr.InvalidArgf("negative pagination")
	}
	for _, tier := range c.AgeTiers {
		if _, ok := pegiTierToUpstream[tier]; !ok {
			return perr.WithField(perr.InvalidArgf("unknown PEGI tier %d", tier), "age_tiers")
		}
	}
	return nil
}

// AgeCategoryPEGI is the upstream age-rating category code reserved for the
// PEGI organization
const AgeCategoryPEGI = 2

// pegiTierToUpstream maps PEGI display tiers to the upstream rating enum
var pegiTierToUpstream = map[int]int{
	3:  1,
	7:  2,
	12: 3,
	16: 4,
	18: 5,
}

// UpstreamRatingToPEGI maps the upstream rating enum back to PEGI tiers
// Unknown values map to 0 (absent)
func UpstreamRatingToPEGI(v int) int {
	for tier, up := range pegiTierToUpstream {
		if up == v {
			return tier
		}
	}
	return 0
}

// upstreamAgeValues returns the sorted upstream enum values for the criteria's
// PEGI tiers, deduplicated
func (c Criteria) upstreamAgeValues() []int {
	if len(c.AgeTiers) == 0 {
		return nil
	}
	seen := map[int]bool{}
	out := make([]int, 0, len(c.AgeTiers))
	for _, tier := range c.AgeTiers {
		if v, ok := pegiTierToUpstream[tier]; ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
