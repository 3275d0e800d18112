package igdb

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"playdex/internal/core/normalize"
	"playdex/internal/core/query"
	perr "playdex/internal/platform/errors"
	"playdex/internal/platform/logger"
	"playdex/internal/platform/metrics"
)

const (
	// catalogEstimate stands in for the total when the count call fails
	catalogEstimate = 300000

	sampleBatches     = 5
	sampleConcurrency = 3

	// top-K cap for the high-cardinality facets. Genres are few enough to
	// count exhaustively
	facetTopK = 20

	countWave      = 5
	countStagger   = 30 * time.Millisecond
	countWavePause = 100 * time.Millisecond

	facetCacheTTL = time.Hour

	// aggregation fans out dozens of small calls; bound the whole pass
	facetOpTimeout = 120 * time.Second
)

// FacetValue is one countable facet entry
type FacetValue struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// FacetStats is the aggregated facet distribution for a criteria set
type FacetStats struct {
	Total     int64        `json:"total"`
	Genres    []FacetValue `json:"genres"`
	Platforms []FacetValue `json:"platforms"`
	Engines   []FacetValue `json:"engines"`

	// Degraded is set when rate limiting forced a cached or empty answer
	Degraded bool `json:"degraded,omitempty"`
}

// facetAggregator estimates facet distributions by sampling pages of the
// catalog, ranking the observed values, then fetching exact counts for the
// ranked candidates in throttled waves
type facetAggregator struct {
	client *Client
	log    logger.Logger

	mu       sync.RWMutex
	cached   *FacetStats
	cachedAt time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func newFacetAggregator(c *Client) *facetAggregator {
	return &facetAggregator{
		client: c,
		log:    *logger.Named("igdb.facets"),
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// stats serves facet statistics. The unfiltered distribution is cached for
// an hour; filtered criteria always aggregate fresh. Rate limiting mid-way
// degrades to the cached copy (however stale) or an empty result rather
// than failing the request
func (f *facetAggregator) stats(ctx context.Context, c query.Criteria) (FacetStats, error) {
	unfiltered := !c.HasActiveFilters()

	if unfiltered {
		if s, ok := f.fromCache(); ok {
			metrics.FacetCache.WithLabelValues("hit").Inc()
			return s, nil
		}
		metrics.FacetCache.WithLabelValues("miss").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, facetOpTimeout)
	defer cancel()

	s, err := f.aggregate(ctx, c)
	if err != nil {
		if perr.IsRateLimited(err) {
			return f.degraded(), nil
		}
		return FacetStats{}, err
	}

	if unfiltered {
		f.mu.Lock()
		cp := s
		f.cached = &cp
		f.cachedAt = f.now()
		f.mu.Unlock()
	}
	return s, nil
}

func (f *facetAggregator) fromCache() (FacetStats, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.cached == nil || f.now().Sub(f.cachedAt) > facetCacheTTL {
		return FacetStats{}, false
	}
	return *f.cached, true
}

// degraded returns the cached stats regardless of age, or empty stats
func (f *facetAggregator) degraded() FacetStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	metrics.FacetCache.WithLabelValues("stale_fallback").Inc()
	if f.cached != nil {
		s := *f.cached
		s.Degraded = true
		return s
	}
	return FacetStats{
		Degraded:  true,
		Genres:    []FacetValue{},
		Platforms: []FacetValue{},
		Engines:   []FacetValue{},
	}
}

func (f *facetAggregator) aggregate(ctx context.Context, c query.Criteria) (FacetStats, error) {
	total := f.countTotal(ctx, c)

	samples, err := f.sample(ctx, c, total)
	if err != nil {
		return FacetStats{}, err
	}

	genres := rankRefs(samples, func(g normalize.RawGame) []normalize.NamedRef { return g.Genres })
	platforms := topK(rankRefs(samples, func(g normalize.RawGame) []normalize.NamedRef { return g.Platforms }), facetTopK)
	engines := topK(rankRefs(samples, func(g normalize.RawGame) []normalize.NamedRef { return g.Engines }), facetTopK)

	out := FacetStats{Total: total}
	if out.Genres, err = f.exactCounts(ctx, c, "genres", genres); err != nil {
		return FacetStats{}, err
	}
	if out.Platforms, err = f.exactCounts(ctx, c, "platforms", platforms); err != nil {
		return FacetStats{}, err
	}
	if out.Engines, err = f.exactCounts(ctx, c, "game_engines", engines); err != nil {
		return FacetStats{}, err
	}
	return out, nil
}

// countTotal counts the criteria's match set, falling back to a static
// catalog estimate when the count endpoint fails
func (f *facetAggregator) countTotal(ctx context.Context, c query.Criteria) int64 {
	comp, err := query.Compile(c, query.ModeCount)
	if err == nil {
		var n int64
		if n, err = f.client.count(ctx, "games", comp.Query); err == nil {
			return n
		}
	}
	f.log.Warn().Err(err).Msg("total count failed, using estimate")
	return catalogEstimate
}

// sample pulls up to sampleBatches pages of sample rows spread evenly
// across the match set, sampleConcurrency pages in flight at once
func (f *facetAggregator) sample(ctx context.Context, c query.Criteria, total int64) ([]normalize.RawGame, error) {
	searchClause, where := query.FacetScope(c)

	batches := sampleBatches
	if span := int(total / chunkSize); span < batches {
		batches = span + 1
	}
	step := 0
	if batches > 1 {
		step = int(total) / batches
	}

	type result struct {
		rows []normalize.RawGame
		err  error
	}
	results := make([]result, batches)
	sem := make(chan struct{}, sampleConcurrency)
	var wg sync.WaitGroup

	for i := 0; i < batches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			q := searchClause + "fields genres.id,genres.name,platforms.id,platforms.name,game_engines.id,game_engines.name;"
			if where != "" {
				q += " where " + where + ";"
			}
			q += " limit " + strconv.Itoa(chunkSize) + ";"
			if off := i * step; off > 0 {
				q += " offset " + strconv.Itoa(off) + ";"
			}
			var rows []normalize.RawGame
			results[i].err = f.client.query(ctx, "games", q, &rows)
			results[i].rows = rows
		}(i)
	}
	wg.Wait()

	var rows []normalize.RawGame
	for _, r := range results {
		if r.err != nil {
			// one rate-limited batch poisons the whole aggregation; other
			// batch failures just shrink the sample
			if perr.IsRateLimited(r.err) {
				return nil, r.err
			}
			f.log.Warn().Err(r.err).Msg("facet sample batch failed")
			continue
		}
		rows = append(rows, r.rows...)
	}
	return rows, nil
}

// exactCounts issues one count query per candidate value, countWave at a
// time with a short stagger inside the wave and a pause between waves.
// Values that count to zero are dropped
func (f *facetAggregator) exactCounts(ctx context.Context, c query.Criteria, field string, candidates []normalize.NamedRef) ([]FacetValue, error) {
	out := make([]FacetValue, 0, len(candidates))
	searchClause, baseWhere := query.FacetScope(c)

	for start := 0; start < len(candidates); start += countWave {
		if start > 0 {
			f.sleep(countWavePause)
		}
		end := start + countWave
		if end > len(candidates) {
			end = len(candidates)
		}
		wave := candidates[start:end]

		counts := make([]int64, len(wave))
		errs := make([]error, len(wave))
		var wg sync.WaitGroup
		for i, cand := range wave {
			if i > 0 {
				f.sleep(countStagger)
			}
			wg.Add(1)
			go func(i int, id int64) {
				defer wg.Done()
				where := field + " = [" + strconv.FormatInt(id, 10) + "]"
				if baseWhere != "" {
					where = baseWhere + " & " + where
				}
				counts[i], errs[i] = f.client.count(ctx, "games", searchClause+"where "+where+";")
			}(i, cand.ID)
		}
		wg.Wait()

		for i, cand := range wave {
			if errs[i] != nil {
				if perr.IsRateLimited(errs[i]) {
					return nil, errs[i]
				}
				f.log.Warn().Err(errs[i]).Int64("id", cand.ID).Str("field", field).Msg("facet count failed")
				continue
			}
			if counts[i] > 0 {
				out = append(out, FacetValue{ID: cand.ID, Name: cand.Name, Count: counts[i]})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// rankRefs tallies reference frequency across the sample, most frequent
// first. Name collisions keep the first observed name
func rankRefs(sample []normalize.RawGame, pick func(normalize.RawGame) []normalize.NamedRef) []normalize.NamedRef {
	freq := map[int64]int{}
	names := map[int64]string{}
	for _, g := range sample {
		for _, r := range pick(g) {
			freq[r.ID]++
			if names[r.ID] == "" {
				names[r.ID] = r.Name
			}
		}
	}
	out := make([]normalize.NamedRef, 0, len(freq))
	for id := range freq {
		out = append(out, normalize.NamedRef{ID: id, Name: names[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if freq[out[i].ID] != freq[out[j].ID] {
			return freq[out[i].ID] > freq[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func topK(refs []normalize.NamedRef, k int) []normalize.NamedRef {
	if len(refs) > k {
		return refs[:k]
	}
	return refs
}
