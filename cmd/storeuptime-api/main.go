// @title         Store Uptime API
// @version       0.1.0
// @description   Trigger and poll store uptime/downtime reports

package main

import (
	"context"

	"storeuptime/internal/platform/config"
	"storeuptime/internal/platform/logger"
	phttp "storeuptime/internal/platform/net/http"
	"storeuptime/internal/platform/store"

	"storeuptime/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// db config lives under SERVICE_PGSQL_* / SERVICE_CLICKHOUSE_*
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	// bring up logging early
	l := logger.Get()

	dsn := dbCfg.MayString("DBURL", "")
	if dsn == "" {
		panic("missing SERVICE_PGSQL_DBURL")
	}
	chURL := chCfg.MayString("URL", "")
	if chURL == "" {
		panic("missing SERVICE_CLICKHOUSE_URL")
	}

	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "storeuptime-api",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         dsn,
				MaxConns:    int32(dbCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: dbCfg.MayInt("SLOW_MS", 500),
				LogSQL:      dbCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:     true,
				URL:         chURL,
				LogSQL:      chCfg.MayBool("LOG_SQL", true),
				ClientName:  "storeuptime-api",
				ClientTag:   "api",
				InsertChunk: chCfg.MayInt("INSERT_CHUNK", 1000),
				MaxRetries:  chCfg.MayInt("MAX_RETRIES", 3),
				RetryBaseMs: chCfg.MayInt("RETRY_BASE_MS", 250),
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_API_PORT, default :4000)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
