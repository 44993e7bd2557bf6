// Command storeuptime-loader loads store_status.csv, menu_hours.csv, and
// timezones.csv into the ClickHouse/Postgres snapshot, the Go analogue of
// original_source's `manage.py load_csv_data` management command.
package main

import (
	"context"

	"github.com/fatih/color"

	"storeuptime/internal/platform/config"
	"storeuptime/internal/platform/logger"
	"storeuptime/internal/platform/store"

	"storeuptime/internal/services/ingest/domain"
	ingestrepo "storeuptime/internal/services/ingest/repo"
	ingestsvc "storeuptime/internal/services/ingest/service"
)

func main() {
	root := config.New()
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	loaderCfg := root.Prefix("CORE_LOADER_")

	l := logger.Get()
	color.Cyan("storeuptime-loader starting")

	dsn := dbCfg.MustString("DBURL")
	chURL := chCfg.MustString("URL")

	ctx := context.Background()
	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "storeuptime-loader",
			PG: store.PGConfig{
				Enabled: true,
				URL:     dsn,
				LogSQL:  dbCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:     true,
				URL:         chURL,
				LogSQL:      chCfg.MayBool("LOG_SQL", true),
				ClientName:  "storeuptime-loader",
				ClientTag:   "loader",
				InsertChunk: chCfg.MayInt("INSERT_CHUNK", 1000),
				MaxRetries:  chCfg.MayInt("MAX_RETRIES", 3),
				RetryBaseMs: chCfg.MayInt("RETRY_BASE_MS", 250),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(ctx); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	refs := ingestrepo.NewPG().Bind(st.PG)
	obs := ingestrepo.NewCH(st.CH)
	svc := ingestsvc.New(obs, refs)

	in := domain.LoadInput{
		StoreStatusPath:   loaderCfg.MayString("STORE_STATUS_CSV", "docs/store_status.csv"),
		BusinessHoursPath: loaderCfg.MayString("MENU_HOURS_CSV", "docs/menu_hours.csv"),
		TimezonesPath:     loaderCfg.MayString("TIMEZONES_CSV", "docs/timezones.csv"),
		ChunkSize:         loaderCfg.MayInt("CHUNK_SIZE", ingestsvc.DefaultChunkSize),
	}

	out, err := svc.Load(ctx, in)
	if err != nil {
		l.Panic().Err(err).Msg("csv load failed")
	}

	color.Green("loaded %d store status rows (%d skipped), %d business hours (%d skipped), %d timezones (%d defaulted)",
		out.StoreStatusLoaded, out.StoreStatusSkipped,
		out.BusinessHoursLoaded, out.BusinessHoursSkipped,
		out.TimezonesLoaded, out.TimezonesDefaulted,
	)
}
