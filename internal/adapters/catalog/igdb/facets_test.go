package igdb

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"playdex/internal/core/normalize"
	"playdex/internal/core/query"
)

const sampleRows = `[
	{"id": 1, "genres": [{"id": 8, "name": "Platform"}], "platforms": [{"id": 6, "name": "PC"}]},
	{"id": 2, "genres": [{"id": 8, "name": "Platform"}, {"id": 31, "name": "Adventure"}], "game_engines": [{"id": 13, "name": "Unity"}]},
	{"id": 3, "genres": [{"id": 31, "name": "Adventure"}], "platforms": [{"id": 6, "name": "PC"}]}
]`

func TestFacetStatsAggregatesAndCaches(t *testing.T) {
	f := newFakeUpstream()
	f.on("/games/count", func(body string) (int, string) {
		if strings.Contains(body, "genres = [8]") {
			return http.StatusOK, `{"count": 40}`
		}
		if strings.Contains(body, "genres = [31]") {
			return http.StatusOK, `{"count": 25}`
		}
		if strings.Contains(body, "= [") {
			return http.StatusOK, `{"count": 10}`
		}
		return http.StatusOK, `{"count": 900}`
	})
	f.respond("/games", sampleRows)

	cat := testCatalog(t, f)
	stats, err := cat.FacetStats(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 900 {
		t.Fatalf("total = %d", stats.Total)
	}
	if len(stats.Genres) != 2 || stats.Genres[0].ID != 8 || stats.Genres[0].Count != 40 {
		t.Fatalf("genres = %+v, want id 8 first with exact count 40", stats.Genres)
	}
	if len(stats.Platforms) != 1 || stats.Platforms[0].Name != "PC" {
		t.Fatalf("platforms = %+v", stats.Platforms)
	}
	if stats.Degraded {
		t.Fatal("fresh aggregation must not be degraded")
	}

	countCalls := len(f.calls("/games/count"))

	// second unfiltered call is a pure cache hit
	if _, err := cat.FacetStats(context.Background(), query.Criteria{}); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if n := len(f.calls("/games/count")); n != countCalls {
		t.Fatalf("count calls grew %d -> %d, want cached", countCalls, n)
	}
}

func TestFacetStatsCacheExpires(t *testing.T) {
	f := newFakeUpstream()
	f.respond("/games/count", `{"count": 100}`)
	f.respond("/games", sampleRows)

	cat := testCatalog(t, f)
	if _, err := cat.FacetStats(context.Background(), query.Criteria{}); err != nil {
		t.Fatalf("stats: %v", err)
	}
	first := len(f.calls("/games"))

	cat.facets.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := cat.FacetStats(context.Background(), query.Criteria{}); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if n := len(f.calls("/games")); n <= first {
		t.Fatalf("sample calls = %d, want re-aggregation after TTL", n)
	}
}

func TestFacetStatsFilteredBypassesCache(t *testing.T) {
	f := newFakeUpstream()
	f.respond("/games/count", `{"count": 50}`)
	f.respond("/games", sampleRows)

	cat := testCatalog(t, f)
	c := query.Criteria{Genres: []int64{8}}

	if _, err := cat.FacetStats(context.Background(), c); err != nil {
		t.Fatalf("stats: %v", err)
	}
	first := len(f.calls("/games"))
	if _, err := cat.FacetStats(context.Background(), c); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if n := len(f.calls("/games")); n <= first {
		t.Fatal("filtered stats must aggregate fresh every time")
	}

	// the criteria scope every sample and count query
	for _, body := range f.calls("/games") {
		if !strings.Contains(body, "genres = [8]") {
			t.Fatalf("sample query %q missing criteria scope", body)
		}
	}
}

func TestFacetStatsSearchScopesSamplesAndCounts(t *testing.T) {
	f := newFakeUpstream()
	f.respond("/games/count", `{"count": 60}`)
	f.respond("/games", sampleRows)

	cat := testCatalog(t, f)
	c := query.Criteria{Search: `ze"lda`}

	if _, err := cat.FacetStats(context.Background(), c); err != nil {
		t.Fatalf("stats: %v", err)
	}

	// the search term narrows the catalog, so every sample page and every
	// per-value count must carry it exactly like the total does
	for _, body := range f.calls("/games") {
		if !strings.HasPrefix(body, `search "ze\"lda";`) {
			t.Fatalf("sample query %q missing search scope", body)
		}
	}
	counts := f.calls("/games/count")
	if len(counts) < 2 {
		t.Fatalf("count calls = %d, want total plus per-value counts", len(counts))
	}
	for _, body := range counts {
		if !strings.HasPrefix(body, `search "ze\"lda";`) {
			t.Fatalf("count query %q missing search scope", body)
		}
	}
}

func TestFacetStatsRateLimitDegradesToEmpty(t *testing.T) {
	f := newFakeUpstream()
	f.on("/games/count", func(string) (int, string) { return http.StatusTooManyRequests, "" })
	f.on("/games", func(string) (int, string) { return http.StatusTooManyRequests, "" })

	cat := testCatalog(t, f)
	stats, err := cat.FacetStats(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("stats: %v, want degraded result not error", err)
	}
	if !stats.Degraded {
		t.Fatal("want degraded flag")
	}
	if stats.Genres == nil || stats.Platforms == nil || stats.Engines == nil {
		t.Fatal("degraded stats must keep non-nil slices")
	}
}

func TestFacetStatsRateLimitFallsBackToStaleCache(t *testing.T) {
	f := newFakeUpstream()
	f.respond("/games/count", `{"count": 77}`)
	f.respond("/games", sampleRows)

	cat := testCatalog(t, f)
	if _, err := cat.FacetStats(context.Background(), query.Criteria{}); err != nil {
		t.Fatalf("stats: %v", err)
	}

	// cache is now past TTL and the upstream is rate limiting
	cat.facets.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	f.on("/games/count", func(string) (int, string) { return http.StatusTooManyRequests, "" })
	f.on("/games", func(string) (int, string) { return http.StatusTooManyRequests, "" })

	stats, err := cat.FacetStats(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !stats.Degraded || stats.Total != 77 {
		t.Fatalf("stats = %+v, want stale cached copy flagged degraded", stats)
	}
}

func TestFacetStatsCountFailureUsesEstimate(t *testing.T) {
	f := newFakeUpstream()
	f.on("/games/count", func(body string) (int, string) {
		if strings.Contains(body, "= [") {
			return http.StatusOK, `{"count": 5}`
		}
		return http.StatusInternalServerError, "boom"
	})
	f.respond("/games", sampleRows)

	cat := testCatalog(t, f)
	stats, err := cat.FacetStats(context.Background(), query.Criteria{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != catalogEstimate {
		t.Fatalf("total = %d, want estimate %d", stats.Total, catalogEstimate)
	}
}

func TestRankRefsOrdersByFrequency(t *testing.T) {
	t.Parallel()

	sample := []normalize.RawGame{
		{Genres: []normalize.NamedRef{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}},
		{Genres: []normalize.NamedRef{{ID: 2, Name: "b"}}},
		{Genres: []normalize.NamedRef{{ID: 2}, {ID: 3, Name: "c"}}},
	}
	ranked := rankRefs(sample, func(g normalize.RawGame) []normalize.NamedRef { return g.Genres })

	if len(ranked) != 3 || ranked[0].ID != 2 || ranked[0].Name != "b" {
		t.Fatalf("ranked = %+v, want id 2 first keeping its first name", ranked)
	}
	// ties break on id for a deterministic order
	if ranked[1].ID != 1 || ranked[2].ID != 3 {
		t.Fatalf("tie order = %+v", ranked)
	}
}

func TestTopKCapsLength(t *testing.T) {
	t.Parallel()

	refs := make([]normalize.NamedRef, 30)
	for i := range refs {
		refs[i] = normalize.NamedRef{ID: int64(i)}
	}
	if got := topK(refs, facetTopK); len(got) != facetTopK {
		t.Fatalf("len = %d, want %d", len(got), facetTopK)
	}
	if got := topK(refs[:3], facetTopK); len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}
