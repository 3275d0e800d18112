package query

import "math"

// Rating widening
//
// The upstream stores fractional ratings and the UI rounds them to integers,
// so a strict upstream comparison on the caller's bounds would drop games
// whose fractional value rounds into the requested band. The compiler widens
// the bounds before querying and the list pipeline re-filters on the rounded
// value afterwards.
//
// The max-side offsets (+15/+10/+5/+2) are empirically tuned against observed
// upstream rounding; keep them literal.

// WidenRatingMin returns the lower bound sent upstream for a requested min
func WidenRatingMin(min float64) float64 {
	if min <= 0 {
		return 0
	}
	return math.Max(0, math.Floor(min-0.5))
}

// WidenRatingMax returns the upper bound sent upstream for a requested max
func WidenRatingMax(max float64, mode Mode) float64 {
	switch {
	case max >= 100:
		return 100
	case max > 91:
		return math.Min(100, max+2)
	case max >= 22:
		if mode == ModeCount {
			return math.Min(100, max+15)
		}
		return math.Min(100, max+10)
	default:
		return math.Min(100, max+5)
	}
}
