package normalize

import (
	"strings"
	"time"
)

// coverURLTemplate synthesizes a fully qualified cover image URL from the
// bare image id the upstream returns
const coverURLTemplate = "https://images.igdb.com/igdb/image/upload/t_cover_big/"

// Storefront website category codes as the upstream assigns them
const (
	siteSteam       = 13
	siteGOG         = 17
	siteEpic        = 16
	sitePlayStation = 26
	siteXbox        = 27
)

// upstreamRatingToAge maps the upstream PEGI enum back to the printed age
var upstreamRatingToAge = map[int]int{1: 3, 2: 7, 3: 12, 4: 16, 5: 18}

// StoreLinks holds per-storefront purchase URLs. Zero fields are omitted
type StoreLinks struct {
	Steam       string `json:"steam,omitempty"`
	GOG         string `json:"gog,omitempty"`
	Epic        string `json:"epic,omitempty"`
	PlayStation string `json:"playstation,omitempty"`
	Xbox        string `json:"xbox,omitempty"`
}

// Empty reports whether no storefront was matched
func (s StoreLinks) Empty() bool {
	return s == StoreLinks{}
}

// Game is the normalized catalog record served to callers
type Game struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug,omitempty"`
	Name        string      `json:"name"`
	Summary     string      `json:"summary,omitempty"`
	Rating      *float64    `json:"rating"`
	CoverURL    *string     `json:"cover_url"`
	ReleaseDate string      `json:"release_date,omitempty"`
	Genres      []NamedRef  `json:"genres"`
	Platforms   []NamedRef  `json:"platforms"`
	Engines     []NamedRef  `json:"engines"`
	PEGI        int         `json:"pegi,omitempty"`
	Stores      *StoreLinks `json:"stores,omitempty"`
}

// Normalize reshapes one raw upstream record. Collection fields are never
// nil on the result, and unresolved references contribute nothing
func Normalize(r RawGame) Game {
	g := Game{
		ID:        r.ID,
		Slug:      r.Slug,
		Name:      r.Name,
		Summary:   r.Summary,
		Rating:    r.TotalRating,
		Genres:    ensureRefs(r.Genres),
		Platforms: ensureRefs(r.Platforms),
		Engines:   ensureRefs(r.Engines),
	}

	if r.FirstReleaseDate > 0 {
		g.ReleaseDate = time.Unix(r.FirstReleaseDate, 0).UTC().Format(time.RFC3339)
	}

	if r.Cover != nil && r.Cover.ImageID != "" {
		u := coverURLTemplate + r.Cover.ImageID + ".jpg"
		g.CoverURL = &u
	}

	g.PEGI = pegiAge(r.AgeRatings)

	if links := storeLinks(r.Websites); !links.Empty() {
		g.Stores = &links
	}

	return g
}

// NormalizeAll maps a page of raw records. A nil input yields an empty,
// non-nil slice
func NormalizeAll(raw []RawGame) []Game {
	out := make([]Game, 0, len(raw))
	for _, r := range raw {
		out = append(out, Normalize(r))
	}
	return out
}

func ensureRefs(refs []NamedRef) []NamedRef {
	if refs == nil {
		return []NamedRef{}
	}
	return refs
}

// pegiAge picks the PEGI age label from the resolved age ratings, ignoring
// other rating systems and unresolved entries. Zero means absent
func pegiAge(ratings []AgeRatingRef) int {
	for _, ar := range ratings {
		if ar.Resolved == nil || ar.Resolved.Category != 2 {
			continue
		}
		if age, ok := upstreamRatingToAge[ar.Resolved.Rating]; ok {
			return age
		}
	}
	return 0
}

// storeLinks classifies resolved websites into storefront slots. The
// category code wins; when it names no storefront, the URL host decides.
// First match per storefront sticks
func storeLinks(sites []WebsiteRef) StoreLinks {
	var links StoreLinks
	for _, wr := range sites {
		w := wr.Resolved
		if w == nil || w.URL == "" {
			continue
		}
		switch storefrontFor(w) {
		case siteSteam:
			if links.Steam == "" {
				links.Steam = w.URL
			}
		case siteGOG:
			if links.GOG == "" {
				links.GOG = w.URL
			}
		case siteEpic:
			if links.Epic == "" {
				links.Epic = w.URL
			}
		case sitePlayStation:
			if links.PlayStation == "" {
				links.PlayStation = w.URL
			}
		case siteXbox:
			if links.Xbox == "" {
				links.Xbox = w.URL
			}
		}
	}
	return links
}

func storefrontFor(w *Website) int {
	switch w.Category {
	case siteSteam, siteGOG, siteEpic, sitePlayStation, siteXbox:
		return w.Category
	}
	u := strings.ToLower(w.URL)
	switch {
	case strings.Contains(u, "store.steampowered.com"):
		return siteSteam
	case strings.Contains(u, "gog.com"):
		return siteGOG
	case strings.Contains(u, "epicgames.com"):
		return siteEpic
	case strings.Contains(u, "playstation.com"):
		return sitePlayStation
	case strings.Contains(u, "xbox.com"), strings.Contains(u, "microsoft.com"):
		return siteXbox
	}
	return 0
}
