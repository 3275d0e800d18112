// Package api provides the HTTP API for the application
package api

import (
	stdhttp "net/http"

	"playdex/internal/adapters/catalog/igdb"
	"playdex/internal/core/version"
	"playdex/internal/platform/config"
	"playdex/internal/platform/metrics"
	phttp "playdex/internal/platform/net/http"

	gameshttp "playdex/internal/services/api/games/http"
	gamessvc "playdex/internal/services/api/games/service"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Catalog        *igdb.Catalog
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	games := gamessvc.New(opt.Catalog)

	r.Route("/api/v1", func(api phttp.Router) {
		api.Route("/games", func(gr phttp.Router) {
			gameshttp.Register(gr, games)
		})
	})

	r.Handle("/metrics", metrics.Handler())
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	phttp.GetJSON(r, "/healthz", func(_ *stdhttp.Request) (any, error) {
		return map[string]any{"status": "ok", "build": version.Info()}, nil
	})
}
