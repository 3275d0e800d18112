package main

import (
	"context"
	"time"

	"playdex/internal/adapters/catalog/igdb"
	"playdex/internal/platform/config"
	"playdex/internal/platform/logger"
	phttp "playdex/internal/platform/net/http"
	"playdex/internal/platform/net/middleware"

	"playdex/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	igdbCfg := root.Prefix("IGDB_") // upstream catalog credentials and URLs

	// bring up logging early
	l := logger.Get()

	catalog := igdb.NewCatalog(igdb.Options{
		BaseURL:  igdbCfg.MayString("BASE_URL", ""),
		TokenURL: igdbCfg.MayString("TOKEN_URL", ""),
		ClientID: igdbCfg.MustString("CLIENT_ID"),
		Secret:   igdbCfg.MustString("CLIENT_SECRET"),
		Timeout:  igdbCfg.MayDuration("TIMEOUT", 10*time.Second),
	})

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	r := srv.Router()
	r.Use(middleware.Defaults()...)
	r.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{
		Slow: apiCfg.MayDuration("SLOW", 2*time.Second),
	}))
	r.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: apiCfg.MayCSV("CORS_ORIGINS", nil),
	}))

	api.Mount(r, api.Options{
		Config:         apiCfg,
		Catalog:        catalog,
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	})

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
