// Command storeuptime-worker polls the durable report-job queue and runs
// the chunked map-reduce report computation out of process, the
// queue-driven counterpart to the API's in-process sequential dispatch.
package main

import (
	"context"
	"time"

	"storeuptime/internal/core/clock"
	"storeuptime/internal/platform/config"
	"storeuptime/internal/platform/logger"
	"storeuptime/internal/platform/store"

	reportsrepo "storeuptime/internal/services/reports/repo"
	reportssvc "storeuptime/internal/services/reports/service"
	"storeuptime/internal/services/reports/snapshot"
	"storeuptime/queue"
)

func main() {
	root := config.New()
	workerCfg := root.Prefix("CORE_WORKER_")
	reportCfg := root.Prefix("CORE_REPORT_")
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()
	log := logger.Named("reports-worker")

	dsn := dbCfg.MustString("DBURL")
	chURL := chCfg.MustString("URL")

	ctx := context.Background()
	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "storeuptime-worker",
			PG: store.PGConfig{
				Enabled: true,
				URL:     dsn,
				LogSQL:  dbCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:     true,
				URL:         chURL,
				LogSQL:      chCfg.MayBool("LOG_SQL", true),
				ClientName:  "storeuptime-worker",
				ClientTag:   "worker",
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

	q := queue.NewPG().Bind(st.PG)

	c := clock.New(reportCfg.MayString("NOW_OVERRIDE", ""))
	cacheTTL := reportCfg.MayDuration("CACHE_TTL", time.Hour)
	chunkSize := reportCfg.MayInt("CHUNK_SIZE", reportssvc.DefaultChunkSize)
	storeWorkers := reportCfg.MayInt("WORKERS", 4)

	loader := snapshot.NewLoader(st.CH)
	repoBinder := reportsrepo.NewPG()
	svc := reportssvc.New(st.PG, repoBinder, loader, c, cacheTTL, chunkSize, q, storeWorkers)

	batch := workerCfg.MayInt("BATCH", 5)
	lease := workerCfg.MayDuration("LEASE", 2*time.Minute)
	poll := workerCfg.MayDuration("POLL_INTERVAL", 2*time.Second)

	log.Info().Int("store_workers", storeWorkers).Int("batch", batch).Msg("storeuptime-worker started")

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs, err := q.Lease(ctx, reportssvc.QueueName, batch, lease)
			if err != nil {
				log.Error().Err(err).Msg("lease report jobs failed")
				continue
			}
			for _, j := range jobs {
				reportID, in, err := reportssvc.DecodeJob(j.Payload)
				if err != nil {
					log.Error().Err(err).Str("job_id", j.ID).Msg("bad job payload")
					_ = q.Fail(ctx, j.ID, err.Error())
					continue
				}
				svc.Compute(ctx, reportID, in)
				if err := q.Complete(ctx, j.ID); err != nil {
					log.Error().Err(err).Str("job_id", j.ID).Msg("failed to complete queue job")
				}
			}
		}
	}
}
