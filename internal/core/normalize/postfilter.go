package normalize

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"playdex/internal/core/query"
)

// PostFilter re-applies the caller's literal criteria to a normalized page.
// The upstream query is widened to compensate for aggregate drift, so rows
// outside the requested band come back and get dropped here. Ordering is
// restored where the compiler had to suppress or substitute the sort
func PostFilter(games []Game, c query.Criteria, comp query.Compiled) []Game {
	out := games
	if c.HasRatingFilter() {
		out = filterRating(out, c)
	}
	out = filterConjunction(out, c)

	switch {
	case comp.ClientRatingSort:
		sortByRating(out, c.Sort.Desc)
	case c.Search != "":
		sortBySearchAffinity(out, c.Search)
	}

	if comp.Oversized {
		out = page(out, c.Offset, c.Limit)
	}
	if out == nil {
		out = []Game{}
	}
	return out
}

// filterRating keeps games whose rounded rating lies inside the caller's
// band. Unrated games never satisfy a rating bound
func filterRating(games []Game, c query.Criteria) []Game {
	out := games[:0]
	for _, g := range games {
		if g.Rating == nil {
			continue
		}
		r := math.Round(*g.Rating)
		if c.RatingMin > 0 && r < c.RatingMin {
			continue
		}
		if c.RatingMax > 0 && r > c.RatingMax {
			continue
		}
		out = append(out, g)
	}
	return out
}

// filterConjunction re-checks multi-valued facet filters. The upstream
// conjunction already narrows single values correctly, but a game slipping
// through with only some of the requested ids is dropped here
func filterConjunction(games []Game, c query.Criteria) []Game {
	if len(c.Genres) < 2 && len(c.Platforms) < 2 && len(c.Engines) < 2 {
		return games
	}
	out := games[:0]
	for _, g := range games {
		if len(c.Genres) > 1 && !hasAll(g.Genres, c.Genres) {
			continue
		}
		if len(c.Platforms) > 1 && !hasAll(g.Platforms, c.Platforms) {
			continue
		}
		if len(c.Engines) > 1 && !hasAll(g.Engines, c.Engines) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func hasAll(refs []NamedRef, want []int64) bool {
	for _, id := range want {
		found := false
		for _, r := range refs {
			if r.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortByRating restores the rating order the compiler substituted away.
// The displayed rating is the rounded value, so the re-sort compares
// rounded ratings; fractional differences inside one display value are
// ties and keep the upstream id order. Unrated games sink to the end
// either direction
func sortByRating(games []Game, desc bool) {
	sort.SliceStable(games, func(i, j int) bool {
		a, b := games[i].Rating, games[j].Rating
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case desc:
			return math.Round(*a) > math.Round(*b)
		default:
			return math.Round(*a) < math.Round(*b)
		}
	})
}

// sortBySearchAffinity floats case-folded prefix matches of the search term
// above the rest, keeping upstream relevance order within each group
func sortBySearchAffinity(games []Game, term string) {
	fold := cases.Fold()
	want := fold.String(term)
	sort.SliceStable(games, func(i, j int) bool {
		return strings.HasPrefix(fold.String(games[i].Name), want) &&
			!strings.HasPrefix(fold.String(games[j].Name), want)
	})
}

// page applies the caller's window after client-side filtering. The
// oversized upstream page always starts at row zero
func page(games []Game, offset, limit int) []Game {
	if offset >= len(games) {
		return []Game{}
	}
	games = games[offset:]
	if limit > 0 && limit < len(games) {
		games = games[:limit]
	}
	return games
}
