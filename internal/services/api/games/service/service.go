// Package service implements the games service on top of the catalog port
package service

import (
	"context"
	"strconv"
	"time"

	"playdex/internal/adapters/catalog/igdb"
	"playdex/internal/core/normalize"
	"playdex/internal/core/query"
	perr "playdex/internal/platform/errors"
	"playdex/internal/platform/logger"
	"playdex/internal/services/api/games/domain"
)

// Service implements domain.ServicePort
type Service struct {
	catalog domain.CatalogPort
	log     logger.Logger
}

// New creates a Service
func New(catalog domain.CatalogPort) *Service {
	return &Service{catalog: catalog, log: *logger.Named("games")}
}

// Search lists games matching the input filters
func (s *Service) Search(ctx context.Context, in domain.SearchInput) ([]normalize.Game, error) {
	c, err := toCriteria(in)
	if err != nil {
		return nil, err
	}
	return s.catalog.SearchGames(ctx, c)
}

// ByRef fetches one game; a numeric ref is an id, anything else a slug
func (s *Service) ByRef(ctx context.Context, ref string) (normalize.Game, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return s.catalog.GameByID(ctx, id)
	}
	return s.catalog.GameBySlug(ctx, ref)
}

// Batch fetches games by id, preserving request order
func (s *Service) Batch(ctx context.Context, in domain.BatchInput) ([]normalize.Game, error) {
	return s.catalog.GamesByIDs(ctx, in.IDs)
}

// Count returns the match total for the input filters
func (s *Service) Count(ctx context.Context, in domain.SearchInput) (domain.CountOutput, error) {
	c, err := toCriteria(in)
	if err != nil {
		return domain.CountOutput{}, err
	}
	n, err := s.catalog.GamesCount(ctx, c)
	if err != nil {
		return domain.CountOutput{}, err
	}
	return domain.CountOutput{Count: n}, nil
}

// Facets returns facet distributions scoped to the input filters
func (s *Service) Facets(ctx context.Context, in domain.SearchInput) (igdb.FacetStats, error) {
	c, err := toCriteria(in)
	if err != nil {
		return igdb.FacetStats{}, err
	}
	return s.catalog.FacetStats(ctx, c)
}

func toCriteria(in domain.SearchInput) (query.Criteria, error) {
	srt, err := query.ParseSort(in.Sort)
	if err != nil {
		return query.Criteria{}, err
	}
	c := query.Criteria{
		Search:    in.Search,
		RatingMin: in.RatingMin,
		RatingMax: in.RatingMax,
		Genres:    in.Genres,
		Platforms: in.Platforms,
		Engines:   in.Engines,
		AgeTiers:  in.AgeTiers,
		Sort:      srt,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if c.ReleasedAfter, err = dayEpoch(in.ReleasedAfter, 0); err != nil {
		return query.Criteria{}, err
	}
	// the before bound is inclusive of the named day
	if c.ReleasedBefore, err = dayEpoch(in.ReleasedBefore, 24*time.Hour-time.Second); err != nil {
		return query.Criteria{}, err
	}
	if err := c.Validate(); err != nil {
		return query.Criteria{}, err
	}
	return c, nil
}

func dayEpoch(day string, shift time.Duration) (int64, error) {
	if day == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return 0, perr.InvalidArgf("bad date %q, want YYYY-MM-DD", day)
	}
	return t.Add(shift).Unix(), nil
}
