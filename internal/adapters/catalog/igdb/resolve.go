package igdb

import (
	"context"
	"strconv"
	"strings"

	"playdex/internal/core/normalize"
	"playdex/internal/platform/logger"
)

// chunkSize is the upstream per-query row ceiling; id lookups batch at it
const chunkSize = 500

// resolveReferences fills in the age-rating and website references the list
// projection returned as bare ids. Lookups batch across the whole page so a
// page of games costs at most a couple of calls per endpoint. After this
// pass every reference is either resolved or dropped; callers never see a
// bare id again
func (c *Client) resolveReferences(ctx context.Context, games []normalize.RawGame) {
	ageIDs := map[int64]bool{}
	siteIDs := map[int64]bool{}
	for _, g := range games {
		for _, ar := range g.AgeRatings {
			if ar.Resolved == nil {
				ageIDs[ar.ID] = true
			}
		}
		for _, w := range g.Websites {
			if w.Resolved == nil {
				siteIDs[w.ID] = true
			}
		}
	}

	ages := c.lookupAgeRatings(ctx, keys(ageIDs))
	sites := c.lookupWebsites(ctx, keys(siteIDs))

	for i := range games {
		g := &games[i]
		kept := g.AgeRatings[:0]
		for _, ar := range g.AgeRatings {
			if ar.Resolved == nil {
				ar.Resolved = ages[ar.ID]
			}
			if ar.Resolved != nil {
				kept = append(kept, ar)
			}
		}
		g.AgeRatings = kept

		keptW := g.Websites[:0]
		for _, w := range g.Websites {
			if w.Resolved == nil {
				w.Resolved = sites[w.ID]
			}
			if w.Resolved != nil {
				keptW = append(keptW, w)
			}
		}
		g.Websites = keptW
	}
}

// lookupAgeRatings fetches age-rating objects by id. A failed batch logs
// and resolves to nothing; the page still renders without those entries
func (c *Client) lookupAgeRatings(ctx context.Context, ids []int64) map[int64]*normalize.AgeRating {
	out := make(map[int64]*normalize.AgeRating, len(ids))
	for _, chunk := range chunks(ids, chunkSize) {
		var rows []normalize.AgeRating
		q := "fields id,category,rating; where id = (" + joinIDs(chunk) + "); limit " + strconv.Itoa(chunkSize) + ";"
		if err := c.query(ctx, "age_ratings", q, &rows); err != nil {
			logger.C(ctx).Warn().Err(err).Int("ids", len(chunk)).Msg("age rating lookup failed")
			continue
		}
		for i := range rows {
			out[rows[i].ID] = &rows[i]
		}
	}
	return out
}

// lookupWebsites fetches website objects by id, same degradation rules
func (c *Client) lookupWebsites(ctx context.Context, ids []int64) map[int64]*normalize.Website {
	out := make(map[int64]*normalize.Website, len(ids))
	for _, chunk := range chunks(ids, chunkSize) {
		var rows []normalize.Website
		q := "fields id,category,url; where id = (" + joinIDs(chunk) + "); limit " + strconv.Itoa(chunkSize) + ";"
		if err := c.query(ctx, "websites", q, &rows); err != nil {
			logger.C(ctx).Warn().Err(err).Int("ids", len(chunk)).Msg("website lookup failed")
			continue
		}
		for i := range rows {
			out[rows[i].ID] = &rows[i]
		}
	}
	return out
}

func keys(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func chunks(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([][]int64, 0, (len(ids)+size-1)/size)
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	return append(out, ids)
}

func joinIDs(ids []int64) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
