// Package normalize reshapes raw upstream catalog records into the stable
// internal game representation, and re-applies the caller's original filter
// and ordering after the widened upstream query returns
package normalize

import (
	"encoding/json"
)

// Upstream reference fields arrive in three shapes depending on upstream
// internals: a bare integer id, a partially expanded object ({id}), or a
// fully expanded object. The shape is not contractually fixed, so each
// reference parses into an explicit unresolved-or-resolved variant at
// ingestion instead of being re-inspected downstream.

// NamedRef is a facet reference (genre, platform, engine): id plus name
// A zero Name means the upstream sent only the id
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts a bare id or an object
func (n *NamedRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '{' {
		return json.Unmarshal(b, &n.ID)
	}
	type alias NamedRef
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*n = NamedRef(a)
	return nil
}

// AgeRating is a fully expanded upstream age-rating entry
type AgeRating struct {
	ID       int64 `json:"id"`
	Category int   `json:"category"`
	Rating   int   `json:"rating"`
}

// AgeRatingRef is the tagged variant for an age-rating reference
// Resolved is nil until the reference resolver fills it in
type AgeRatingRef struct {
	ID       int64
	Resolved *AgeRating
}

// UnmarshalJSON detects the shape by the presence of the category property
func (r *AgeRatingRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '{' {
		return json.Unmarshal(b, &r.ID)
	}
	var obj struct {
		ID       int64 `json:"id"`
		Category *int  `json:"category"`
		Rating   int   `json:"rating"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	if obj.Category != nil {
		r.Resolved = &AgeRating{ID: obj.ID, Category: *obj.Category, Rating: obj.Rating}
	}
	return nil
}

// MarshalJSON renders the resolved object when present, else the bare id
func (r AgeRatingRef) MarshalJSON() ([]byte, error) {
	if r.Resolved != nil {
		return json.Marshal(r.Resolved)
	}
	return json.Marshal(r.ID)
}

// Website is a fully expanded upstream website entry
type Website struct {
	ID       int64  `json:"id"`
	Category int    `json:"category"`
	URL      string `json:"url"`
}

// WebsiteRef is the tagged variant for a website reference
type WebsiteRef struct {
	ID       int64
	Resolved *Website
}

// UnmarshalJSON detects the shape by the category+url pair
func (r *WebsiteRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '{' {
		return json.Unmarshal(b, &r.ID)
	}
	var obj struct {
		ID       int64  `json:"id"`
		Category *int   `json:"category"`
		URL      string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	if obj.Category != nil && obj.URL != "" {
		r.Resolved = &Website{ID: obj.ID, Category: *obj.Category, URL: obj.URL}
	}
	return nil
}

// MarshalJSON renders the resolved object when present, else the bare id
func (r WebsiteRef) MarshalJSON() ([]byte, error) {
	if r.Resolved != nil {
		return json.Marshal(r.Resolved)
	}
	return json.Marshal(r.ID)
}

// CoverRef carries the image identifier when the projection expanded it
type CoverRef struct {
	ID      int64  `json:"id"`
	ImageID string `json:"image_id,omitempty"`
}

// UnmarshalJSON accepts a bare id or an object
func (c *CoverRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '{' {
		return json.Unmarshal(b, &c.ID)
	}
	type alias CoverRef
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = CoverRef(a)
	return nil
}

// RawGame is the upstream response unit for the games endpoint
type RawGame struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	TotalRating      *float64       `json:"total_rating,omitempty"`
	FirstReleaseDate int64          `json:"first_release_date,omitempty"`
	Cover            *CoverRef      `json:"cover,omitempty"`
	Genres           []NamedRef     `json:"genres,omitempty"`
	Platforms        []NamedRef     `json:"platforms,omitempty"`
	Engines          []NamedRef     `json:"game_engines,omitempty"`
	AgeRatings       []AgeRatingRef `json:"age_ratings,omitempty"`
	Websites         []WebsiteRef   `json:"websites,omitempty"`
}
