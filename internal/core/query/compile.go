package query

import (
	"strconv"
	"strings"
)

// ListFields is the projection requested for row queries. Genre, platform and
// engine references are expanded inline; age ratings and websites come back
// as ids (or partial objects) and go through the reference resolver
const ListFields = "id,name,slug,summary,total_rating,first_release_date," +
	"cover.image_id," +
	"genres.id,genres.name," +
	"platforms.id,platforms.name," +
	"game_engines.id,game_engines.name," +
	"age_ratings,websites"

// oversizedPage is the fixed page requested whenever a rating filter is
// active, so enough candidates survive the rounded-rating post-filter
const oversizedPage = 500

// defaultLimit applies when the caller leaves Limit at zero
const defaultLimit = 20

// Compiled is the output of Compile. Query is opaque to callers; only the
// transport reads it. The flags tell the list pipeline which client-side
// steps remain after the upstream responds
type Compiled struct {
	Query string

	// ClientRatingSort is set when a requested rating sort was substituted
	// with an id sort server-side: sorting before the rounded-rating
	// post-filter would order on rows that are about to be dropped
	ClientRatingSort bool

	// Oversized is set when the query requested the fixed 500-row page
	Oversized bool
}

// Compile translates criteria into the upstream grammar for the given mode
func Compile(c Criteria, mode Mode) (Compiled, error) {
	if err := c.Validate(); err != nil {
		return Compiled{}, err
	}

	var b strings.Builder
	out := Compiled{}

	if c.Search != "" {
		b.WriteString(`search "`)
		b.WriteString(EscapeText(c.Search))
		b.WriteString(`"; `)
	}

	if mode == ModeList {
		b.WriteString("fields ")
		b.WriteString(ListFields)
		b.WriteString("; ")
	}

	if w := whereClause(c, mode); w != "" {
		b.WriteString("where ")
		b.WriteString(w)
		b.WriteString("; ")
	}

	if mode == ModeList {
		// search implies relevance ordering; an explicit sort clause would
		// override it upstream
		if c.Search == "" {
			if clause, clientSide := sortClause(c); clause != "" {
				b.WriteString(clause)
				b.WriteString("; ")
				out.ClientRatingSort = clientSide
			}
		}

		limit := c.Limit
		if limit <= 0 {
			limit = defaultLimit
		}
		if limit > oversizedPage {
			limit = oversizedPage
		}
		if c.HasRatingFilter() {
			limit = oversizedPage
			out.Oversized = true
		}
		b.WriteString("limit ")
		b.WriteString(strconv.Itoa(limit))
		b.WriteString("; ")

		// the oversized page starts at row zero; the post-filter applies the
		// caller's offset after dropping out-of-band rows
		if c.Offset > 0 && !out.Oversized {
			b.WriteString("offset ")
			b.WriteString(strconv.Itoa(c.Offset))
			b.WriteString("; ")
		}
	}

	out.Query = strings.TrimSpace(b.String())
	return out, nil
}

// FacetScope renders the criteria's search clause and predicates for facet
// sampling and per-value count queries that build their own projection and
// extra predicates around them. Facet values count on top of every active
// criterion, the search term included; search is empty when no term is set
func FacetScope(c Criteria) (search, where string) {
	if c.Search != "" {
		search = `search "` + EscapeText(c.Search) + `"; `
	}
	return search, whereClause(c, ModeCount)
}

// whereClause renders all active predicates joined with logical AND
func whereClause(c Criteria, mode Mode) string {
	var parts []string

	if c.RatingMin > 0 {
		parts = append(parts, "total_rating >= "+formatRating(WidenRatingMin(c.RatingMin)))
	}
	if c.RatingMax > 0 {
		parts = append(parts, "total_rating <= "+formatRating(WidenRatingMax(c.RatingMax, mode)))
	}

	parts = append(parts, facetConjunction("genres", c.Genres)...)
	parts = append(parts, facetConjunction("platforms", c.Platforms)...)
	parts = append(parts, facetConjunction("game_engines", c.Engines)...)

	if ages := c.upstreamAgeValues(); len(ages) > 0 {
		vals := make([]string, len(ages))
		for i, v := range ages {
			vals[i] = strconv.Itoa(v)
		}
		parts = append(parts,
			"age_ratings.category = "+strconv.Itoa(AgeCategoryPEGI),
			"age_ratings.rating = ("+strings.Join(vals, ",")+")")
	}

	if c.ReleasedAfter > 0 {
		parts = append(parts, "first_release_date >= "+strconv.FormatInt(c.ReleasedAfter, 10))
	}
	if c.ReleasedBefore > 0 {
		parts = append(parts, "first_release_date <= "+strconv.FormatInt(c.ReleasedBefore, 10))
	}

	return strings.Join(parts, " & ")
}

// facetConjunction emits one containment predicate per id so a game must
// carry every listed id, not any
func facetConjunction(field string, ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, field+" = ["+strconv.FormatInt(id, 10)+"]")
	}
	return out
}

// sortClause renders the sort for list queries. The bool result is true when
// the true sort must be re-applied client-side after post-filtering
func sortClause(c Criteria) (string, bool) {
	dir := " asc"
	if c.Sort.Desc {
		dir = " desc"
	}
	switch c.Sort.Field {
	case SortName:
		return "sort name" + dir, false
	case SortRelease:
		return "sort first_release_date" + dir, false
	case SortRating:
		if c.HasRatingFilter() {
			// sort-before-filter upstream would order on rows the
			// post-filter is about to drop; substitute a stable id sort
			// and re-sort by rounded rating client-side
			return "sort id asc", true
		}
		return "sort total_rating" + dir, false
	default:
		return "", false
	}
}

// EscapeText escapes backslashes and double quotes for the quoted grammar
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// formatRating renders a widened bound without a trailing fraction when whole
func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
