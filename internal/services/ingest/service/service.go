// Package service implements CSV-to-store loading: store_status.csv in
// row-count chunks into ClickHouse, menu_hours.csv/timezones.csv in full
// into Postgres, mirroring original_source's load_csv_data.py and
// csv_utils.py chunked loaders.
package service

import (
	"context"
	"os"
	"time"

	"storeuptime/internal/platform/logger"
	"storeuptime/internal/services/ingest/domain"
	"storeuptime/internal/services/ingest/repo"
)

// DefaultChunkSize matches load_csv_data_parallel_task's chunk_size default
const DefaultChunkSize = 10000

// Service defines the ingest service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the ingest service
type Svc struct {
	Observations repo.ObservationWriter
	Refs         repo.ReferenceWriter
}

// New constructs an ingest service
func New(observations repo.ObservationWriter, refs repo.ReferenceWriter) *Svc {
	if observations == nil {
		panic("ingest.Service requires a non nil ObservationWriter")
	}
	if refs == nil {
		panic("ingest.Service requires a non nil ReferenceWriter")
	}
	return &Svc{Observations: observations, Refs: refs}
}

// Load runs all three loaders, matching load_csv_data's independent
// try/except-per-table structure: a failure loading one table is returned
// immediately rather than silently continuing to the next, since (unlike
// the Django command) this loader has no stdout to report partial success to.
func (s *Svc) Load(ctx context.Context, in domain.LoadInput) (domain.LoadResult, error) {
	log := logger.Named("ingest")
	chunkSize := in.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var out domain.LoadResult

	loaded, skipped, err := s.loadStoreStatus(ctx, in.StoreStatusPath, chunkSize)
	if err != nil {
		return out, err
	}
	out.StoreStatusLoaded, out.StoreStatusSkipped = loaded, skipped
	log.Info().Int("loaded", loaded).Int("skipped", skipped).Msg("loaded store status")

	hrLoaded, hrSkipped, err := s.loadBusinessHours(ctx, in.BusinessHoursPath)
	if err != nil {
		return out, err
	}
	out.BusinessHoursLoaded, out.BusinessHoursSkipped = hrLoaded, hrSkipped
	log.Info().Int("loaded", hrLoaded).Int("skipped", hrSkipped).Msg("loaded business hours")

	tzLoaded, tzDefaulted, err := s.loadTimezones(ctx, in.TimezonesPath)
	if err != nil {
		return out, err
	}
	out.TimezonesLoaded, out.TimezonesDefaulted = tzLoaded, tzDefaulted
	log.Info().Int("loaded", tzLoaded).Int("defaulted", tzDefaulted).Msg("loaded timezones")

	return out, nil
}

func (s *Svc) loadStoreStatus(ctx context.Context, path string, chunkSize int) (loaded, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	rd, err := newStatusChunkReader(f)
	if err != nil {
		return 0, 0, err
	}
	defer rd.Close()

	for {
		chunk, rerr := rd.Next(chunkSize)
		if len(chunk) > 0 {
			if werr := s.Observations.InsertStatusChunk(ctx, chunk); werr != nil {
				return loaded, rd.skipped, werr
			}
			loaded += len(chunk)
		}
		if rerr != nil {
			break
		}
	}
	return loaded, rd.skipped, nil
}

func (s *Svc) loadBusinessHours(ctx context.Context, path string) (loaded, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	rows, skipped, err := readBusinessHours(f)
	if err != nil {
		return 0, 0, err
	}
	if err := s.Refs.ReplaceBusinessHours(ctx, rows); err != nil {
		return 0, skipped, err
	}
	return len(rows), skipped, nil
}

func (s *Svc) loadTimezones(ctx context.Context, path string) (loaded, defaulted int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	rows, defaulted, err := readTimezones(f, isValidTimezone)
	if err != nil {
		return 0, 0, err
	}
	if err := s.Refs.ReplaceTimezones(ctx, rows); err != nil {
		return 0, defaulted, err
	}
	return len(rows), defaulted, nil
}

func isValidTimezone(tz string) bool {
	_, err := time.LoadLocation(tz)
	return err == nil
}
