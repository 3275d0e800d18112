package igdb

import (
	"context"
	"strconv"

	"playdex/internal/core/normalize"
	"playdex/internal/core/query"
	perr "playdex/internal/platform/errors"
)

// Catalog is the full upstream facade: list queries, point lookups, counts
// and facet statistics over one shared transport
type Catalog struct {
	client *Client
	facets *facetAggregator
}

// NewCatalog wires a Catalog from transport options
func NewCatalog(o Options) *Catalog {
	c := NewClient(o)
	return &Catalog{client: c, facets: newFacetAggregator(c)}
}

// SearchGames runs the full list pipeline: compile, fetch, resolve
// references, normalize, then re-apply the caller's literal criteria
func (cat *Catalog) SearchGames(ctx context.Context, c query.Criteria) ([]normalize.Game, error) {
	comp, err := query.Compile(c, query.ModeList)
	if err != nil {
		return nil, err
	}
	raw, err := cat.fetchGames(ctx, comp.Query)
	if err != nil {
		return nil, err
	}
	return normalize.PostFilter(normalize.NormalizeAll(raw), c, comp), nil
}

// GameByID looks up a single game by upstream id
func (cat *Catalog) GameByID(ctx context.Context, id int64) (normalize.Game, error) {
	q := "fields " + query.ListFields + "; where id = " + strconv.FormatInt(id, 10) + "; limit 1;"
	return cat.fetchOne(ctx, q, strconv.FormatInt(id, 10))
}

// GameBySlug looks up a single game by its URL slug
func (cat *Catalog) GameBySlug(ctx context.Context, slug string) (normalize.Game, error) {
	q := `fields ` + query.ListFields + `; where slug = "` + query.EscapeText(slug) + `"; limit 1;`
	return cat.fetchOne(ctx, q, slug)
}

func (cat *Catalog) fetchOne(ctx context.Context, q, ref string) (normalize.Game, error) {
	raw, err := cat.fetchGames(ctx, q)
	if err != nil {
		return normalize.Game{}, err
	}
	if len(raw) == 0 {
		return normalize.Game{}, perr.NotFoundf("game %s not found", ref)
	}
	return normalize.Normalize(raw[0]), nil
}

// GamesByIDs fetches a batch of games by id, preserving the caller's order.
// An empty id list returns immediately without an upstream call
func (cat *Catalog) GamesByIDs(ctx context.Context, ids []int64) ([]normalize.Game, error) {
	if len(ids) == 0 {
		return []normalize.Game{}, nil
	}

	byID := make(map[int64]normalize.Game, len(ids))
	for _, chunk := range chunks(ids, chunkSize) {
		q := "fields " + query.ListFields + "; where id = (" + joinIDs(chunk) + "); limit " + strconv.Itoa(chunkSize) + ";"
		raw, err := cat.fetchGames(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, r := range raw {
			byID[r.ID] = normalize.Normalize(r)
		}
	}

	out := make([]normalize.Game, 0, len(ids))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// GamesCount returns the number of games matching the criteria. Rating
// bounds use the looser count widening, so the total may slightly exceed
// the rows a full listing would keep
func (cat *Catalog) GamesCount(ctx context.Context, c query.Criteria) (int64, error) {
	comp, err := query.Compile(c, query.ModeCount)
	if err != nil {
		return 0, err
	}
	return cat.client.count(ctx, "games", comp.Query)
}

// FacetStats returns genre, platform and engine distributions for the
// criteria, cached when the criteria carry no filters
func (cat *Catalog) FacetStats(ctx context.Context, c query.Criteria) (FacetStats, error) {
	return cat.facets.stats(ctx, c)
}

func (cat *Catalog) fetchGames(ctx context.Context, q string) ([]normalize.RawGame, error) {
	var raw []normalize.RawGame
	if err := cat.client.query(ctx, "games", q, &raw); err != nil {
		return nil, err
	}
	cat.client.resolveReferences(ctx, raw)
	return raw, nil
}
