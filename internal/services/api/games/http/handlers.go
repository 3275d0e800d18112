// Package http provides http transport for games
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	httpx "playdex/internal/platform/net/http"
	"playdex/internal/services/api/games/domain"
)

// Register mounts games endpoints on the given router
func Register(r httpx.Router, s domain.ServicePort) {
	h := &handlers{svc: s}

	// filtered, sorted, paginated listing
	httpx.PostJSON[domain.SearchInput](r, "/search", h.search)

	// match total for the same filter surface
	httpx.PostJSON[domain.SearchInput](r, "/count", h.count)

	// facet distributions, optionally scoped by filters
	httpx.PostJSON[domain.SearchInput](r, "/facets", h.facets)

	// batch lookup by id
	httpx.PostJSON[domain.BatchInput](r, "/batch", h.batch)

	// single game by numeric id or slug
	httpx.GetJSON(r, "/{ref}", h.byRef)
}

type handlers struct{ svc domain.ServicePort }

func (h *handlers) search(r *stdhttp.Request, in domain.SearchInput) (any, error) {
	return h.svc.Search(r.Context(), in)
}

func (h *handlers) count(r *stdhttp.Request, in domain.SearchInput) (any, error) {
	return h.svc.Count(r.Context(), in)
}

func (h *handlers) facets(r *stdhttp.Request, in domain.SearchInput) (any, error) {
	return h.svc.Facets(r.Context(), in)
}

func (h *handlers) batch(r *stdhttp.Request, in domain.BatchInput) (any, error) {
	return h.svc.Batch(r.Context(), in)
}

func (h *handlers) byRef(r *stdhttp.Request) (any, error) {
	return h.svc.ByRef(r.Context(), chi.URLParam(r, "ref"))
}
