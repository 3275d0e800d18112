package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"playdex/internal/adapters/catalog/igdb"
	"playdex/internal/core/normalize"
	perr "playdex/internal/platform/errors"
	phttp "playdex/internal/platform/net/http"
	"playdex/internal/services/api/games/domain"
	gameshttp "playdex/internal/services/api/games/http"
)

type stubService struct {
	games  []normalize.Game
	refErr error
}

func (s *stubService) Search(context.Context, domain.SearchInput) ([]normalize.Game, error) {
	return s.games, nil
}

func (s *stubService) ByRef(_ context.Context, ref string) (normalize.Game, error) {
	if s.refErr != nil {
		return normalize.Game{}, s.refErr
	}
	return normalize.Game{Slug: ref}, nil
}

func (s *stubService) Batch(context.Context, domain.BatchInput) ([]normalize.Game, error) {
	return s.games, nil
}

func (s *stubService) Count(context.Context, domain.SearchInput) (domain.CountOutput, error) {
	return domain.CountOutput{Count: 9}, nil
}

func (s *stubService) Facets(context.Context, domain.SearchInput) (igdb.FacetStats, error) {
	return igdb.FacetStats{Total: 9}, nil
}

func mount(s domain.ServicePort) http.Handler {
	r := phttp.AdaptChi(chi.NewRouter())
	r.Route("/games", func(gr phttp.Router) {
		gameshttp.Register(gr, s)
	})
	return r.Mux()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, phttp.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env phttp.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rr.Body.String())
	}
	return rr, env
}

func TestSearchEndpointOK(t *testing.T) {
	t.Parallel()

	h := mount(&stubService{games: []normalize.Game{{ID: 1, Name: "x"}}})
	rr, env := do(t, h, http.MethodPost, "/games/search", `{"search":"x"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body.String())
	}
	rows, ok := env.Data.([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("data = %#v", env.Data)
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	t.Parallel()

	h := mount(&stubService{})
	rr, env := do(t, h, http.MethodPost, "/games/search", `{"rating_min": 120}`)
	if rr.Code != http.StatusBadRequest && rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want validation failure", rr.Code)
	}
	if env.Error == "" {
		t.Fatal("want error message in envelope")
	}
}

func TestSearchEndpointRejectsUnknownSortKey(t *testing.T) {
	t.Parallel()

	h := mount(&stubService{})
	rr, _ := do(t, h, http.MethodPost, "/games/search", `{"sort":"price-asc"}`)
	if rr.Code == http.StatusOK {
		t.Fatal("unknown sort key must not pass validation")
	}
}

func TestByRefEndpointNotFound(t *testing.T) {
	t.Parallel()

	h := mount(&stubService{refErr: perr.NotFoundf("game nope not found")})
	rr, env := do(t, h, http.MethodGet, "/games/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if env.Code != perr.ErrorCodeNotFound {
		t.Fatalf("code = %v", env.Code)
	}
}

func TestByRefEndpointPassesParam(t *testing.T) {
	t.Parallel()

	h := mount(&stubService{})
	rr, env := do(t, h, http.MethodGet, "/games/hollow-knight", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	obj, ok := env.Data.(map[string]any)
	if !ok || obj["slug"] != "hollow-knight" {
		t.Fatalf("data = %#v", env.Data)
	}
}

func TestCountEndpoint(t *testing.T) {
	t.Parallel()

	h := mount(&stubService{})
	rr, env := do(t, h, http.MethodPost, "/games/count", `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	obj, ok := env.Data.(map[string]any)
	if !ok || obj["count"] != float64(9) {
		t.Fatalf("data = %#v", env.Data)
	}
}
