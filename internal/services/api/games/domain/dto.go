// Package domain holds DTOs for games http and service contracts
package domain

// Dates are ISO8601 without timezone; ratings are the 0-100 display scale

// SearchInput is the full filter surface of the catalog listing
type SearchInput struct {
	Search string `json:"search,omitempty" validate:"omitempty,min=1,max=200" example:"zelda"`

	RatingMin float64 `json:"rating_min,omitempty" validate:"omitempty,gt=0,lte=100" example:"80"`
	RatingMax float64 `json:"rating_max,omitempty" validate:"omitempty,gt=0,lte=100" example:"95"`

	Genres    []int64 `json:"genres,omitempty" validate:"omitempty,max=10,dive,gt=0" example:"8,31"`
	Platforms []int64 `json:"platforms,omitempty" validate:"omitempty,max=10,dive,gt=0" example:"6"`
	Engines   []int64 `json:"engines,omitempty" validate:"omitempty,max=10,dive,gt=0" example:"13"`

	ReleasedAfter  string `json:"released_after,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2015-01-01"`
	ReleasedBefore string `json:"released_before,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2020-12-31"`

	AgeTiers []int `json:"age_tiers,omitempty" validate:"omitempty,max=5,dive,oneof=3 7 12 16 18" example:"3,7"`

	Sort   string `json:"sort,omitempty" validate:"omitempty,oneof=name-asc name-desc rating-asc rating-desc release-asc release-desc" example:"rating-desc"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"20"`
	Offset int    `json:"offset,omitempty" validate:"omitempty,min=0" example:"0"`
}

// BatchInput requests a set of games by upstream id
// An empty list is valid and resolves to an empty result
type BatchInput struct {
	IDs []int64 `json:"ids" validate:"omitempty,max=500,dive,gt=0" example:"1020,1942"`
}

// CountOutput wraps a criteria match total
type CountOutput struct {
	Count int64 `json:"count" example:"1234"`
}
