package domain

import (
	"context"

	"playdex/internal/adapters/catalog/igdb"
	"playdex/internal/core/normalize"
	"playdex/internal/core/query"
)

// CatalogPort abstracts the upstream catalog adapter
type CatalogPort interface {
	SearchGames(ctx context.Context, c query.Criteria) ([]normalize.Game, error)
	GameByID(ctx context.Context, id int64) (normalize.Game, error)
	GameBySlug(ctx context.Context, slug string) (normalize.Game, error)
	GamesByIDs(ctx context.Context, ids []int64) ([]normalize.Game, error)
	GamesCount(ctx context.Context, c query.Criteria) (int64, error)
	FacetStats(ctx context.Context, c query.Criteria) (igdb.FacetStats, error)
}

// ServicePort is consumed by handlers
type ServicePort interface {
	Search(ctx context.Context, in SearchInput) ([]normalize.Game, error)
	ByRef(ctx context.Context, ref string) (normalize.Game, error)
	Batch(ctx context.Context, in BatchInput) ([]normalize.Game, error)
	Count(ctx context.Context, in SearchInput) (CountOutput, error)
	Facets(ctx context.Context, in SearchInput) (igdb.FacetStats, error)
}
