// Package service contains the report trigger/poll workflow: building a
// Snapshot from ClickHouse + Postgres, running the core orchestrator with a
// per-store result cache, persisting the Running/Complete/Failed state
// machine, and retrying the poll-side lookup with backoff.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"storeuptime/internal/core/clock"
	"storeuptime/internal/core/model"
	"storeuptime/internal/core/report"
	"storeuptime/internal/modkit/repokit"
	perrs "storeuptime/internal/platform/errors"
	"storeuptime/internal/platform/logger"
	"storeuptime/internal/services/reports/domain"
	"storeuptime/internal/services/reports/repo"
	"storeuptime/internal/services/reports/snapshot"
	"storeuptime/queue"
)

// DefaultChunkSize matches CORE_REPORT_CHUNK_SIZE's default
const DefaultChunkSize = 500

// QueueName is the queue_jobs row this service's Trigger enqueues to when a
// Queue is wired, and storeuptime-worker polls from
const QueueName = "report.compute"

// jobPayload is what Trigger enqueues and storeuptime-worker decodes;
// unexported since nothing outside this package constructs or reads one
type jobPayload struct {
	ReportID string             `json:"report_id"`
	In       domain.TriggerInput `json:"in"`
}

// RetryAttempts/RetryInitialDelay/RetryFactor are the poll-side lookup retry
// policy from SPEC_FULL.md §3 ("3 retries, initial delay 10s, factor 2")
const (
	RetryAttempts     = 3
	RetryInitialDelay = 10 * time.Second
	RetryFactor       = 2.0
)

// Service defines the reports service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the reports service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	loader    *snapshot.Loader
	clock     clock.Clock
	cache     *resultCache
	chunkSize int

	// queue is optional: when nil, Trigger dispatches computation itself
	// via an in-process goroutine (the sequential API-only mode). When
	// wired, Trigger enqueues instead and storeuptime-worker performs the
	// computation out of process, per SPEC_FULL.md's worker-pool strategy.
	queue   queue.Queue
	workers int
}

// New constructs a reports service. q may be nil (in-process dispatch);
// workers <= 0 runs each compute sequentially, > 0 fans stores out across
// a bounded in-process worker pool (used by storeuptime-worker).
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], loader *snapshot.Loader, c clock.Clock, cacheTTL time.Duration, chunkSize int, q queue.Queue, workers int) *Svc {
	if db == nil {
		panic("reports.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("reports.Service requires a non nil Repo binder")
	}
	if loader == nil {
		panic("reports.Service requires a non nil snapshot Loader")
	}
	if c == nil {
		c = clock.System{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Svc{
		Repo:      binder.Bind(db),
		binder:    binder,
		db:        db,
		loader:    loader,
		clock:     c,
		cache:     newResultCache(cacheTTL),
		chunkSize: chunkSize,
		queue:     q,
		workers:   workers,
	}
}

// Trigger creates a Running report row and dispatches computation, mirroring
// views.py's trigger_report: the caller gets a report_id back immediately
// and polls for completion. With no Queue wired this dispatches an
// in-process goroutine; with one wired it enqueues for storeuptime-worker.
func (s *Svc) Trigger(ctx context.Context, in domain.TriggerInput) (domain.TriggerOutput, error) {
	id := uuid.NewString()
	if err := s.Repo.CreateRun(ctx, id); err != nil {
		return domain.TriggerOutput{}, perrs.Wrap(err, perrs.ErrorCodeDB, "create report run")
	}

	if s.queue != nil {
		payload, err := json.Marshal(jobPayload{ReportID: id, In: in})
		if err != nil {
			return domain.TriggerOutput{}, perrs.Wrap(err, perrs.ErrorCodeInvalidArgument, "encode job payload")
		}
		if _, err := s.queue.Enqueue(ctx, QueueName, string(payload)); err != nil {
			return domain.TriggerOutput{}, perrs.Wrap(err, perrs.ErrorCodeDB, "enqueue report job")
		}
		return domain.TriggerOutput{ReportID: id}, nil
	}

	// detached from the request context: the HTTP handler returns long
	// before this finishes
	go s.Compute(context.WithoutCancel(ctx), id, in)

	return domain.TriggerOutput{ReportID: id}, nil
}

// Compute runs one report to completion; exported so storeuptime-worker can
// call it directly after leasing a job off the queue.
func (s *Svc) Compute(ctx context.Context, id string, in domain.TriggerInput) {
	s.compute(ctx, id, in)
}

// DecodeJob unmarshals a leased queue.Job's payload for storeuptime-worker
func DecodeJob(payload string) (reportID string, in domain.TriggerInput, err error) {
	var p jobPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", domain.TriggerInput{}, err
	}
	return p.ReportID, p.In, nil
}

func (s *Svc) compute(ctx context.Context, id string, in domain.TriggerInput) {
	log := logger.Named("reports")

	c := s.clock
	if in.NowOverride != "" {
		if fx, ok := clock.FromOverride(in.NowOverride); ok {
			c = fx
		}
	}

	observations, skippedObs, err := s.loader.LoadObservations(ctx)
	if err != nil {
		s.fail(ctx, id, perrs.Wrap(err, perrs.ErrorCodeDB, "load observation snapshot"))
		return
	}
	if len(skippedObs) > 0 {
		log.Warn().Strs("stores", skippedObs).Msg("skipped observations with unparseable status")
	}

	hourRows, err := s.Repo.BusinessHours(ctx)
	if err != nil {
		s.fail(ctx, id, perrs.Wrap(err, perrs.ErrorCodeDB, "load business hours"))
		return
	}
	hours, skippedHours := snapshot.ToBusinessHourRules(hourRows)
	if len(skippedHours) > 0 {
		log.Warn().Strs("stores", skippedHours).Msg("skipped business-hour rules with unparseable time")
	}

	tzRows, err := s.Repo.Timezones(ctx)
	if err != nil {
		s.fail(ctx, id, perrs.Wrap(err, perrs.ErrorCodeDB, "load timezones"))
		return
	}

	snap := report.Snapshot{
		Observations:  observations,
		BusinessHours: hours,
		Timezones:     snapshot.ToTimezones(tzRows),
	}

	rows := s.computeRows(ctx, c, snap)
	csv := report.ToCSV(rows)

	if err := s.Repo.MarkComplete(ctx, id, csv); err != nil {
		log.Error().Err(err).Str("report_id", id).Msg("failed to persist completed report")
	}
}

// computeRows runs the orchestrator's per-store computation through the
// result cache: a cache hit for (store_id, now) skips recomputation
// entirely, a miss computes once and populates the cache for later runs
// that share the same now. With s.workers > 0 (the storeuptime-worker
// configuration) stores are fanned out across a bounded pool instead of
// computed one at a time, matching original_source's sequential-vs-chord
// split (see SPEC_FULL.md's "Parallel vs. sequential trigger modes").
func (s *Svc) computeRows(ctx context.Context, c clock.Clock, snap report.Snapshot) []model.ReportRow {
	now := c.Now()
	computer := report.NewComputer(c, snap)
	storeIDs := snap.StoreIDs()

	if s.workers <= 1 {
		rows := make([]model.ReportRow, 0, len(storeIDs))
		for _, storeID := range storeIDs {
			rows = append(rows, s.computeOne(ctx, computer, storeID, now))
		}
		return rows
	}

	rows := make([]model.ReportRow, len(storeIDs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)
	for i, storeID := range storeIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, storeID string) {
			defer wg.Done()
			defer func() { <-sem }()
			rows[i] = s.computeOne(ctx, computer, storeID, now)
		}(i, storeID)
	}
	wg.Wait()
	return rows
}

func (s *Svc) computeOne(ctx context.Context, computer *report.Computer, storeID string, now time.Time) model.ReportRow {
	if cached, ok := s.cache.get(storeID, now); ok {
		return cached
	}
	row := computer.Row(ctx, storeID)
	s.cache.put(storeID, now, row)
	return row
}

func (s *Svc) fail(ctx context.Context, id string, err error) {
	logger.Named("reports").Error().Err(err).Str("report_id", id).Msg("report run failed")
	if mErr := s.Repo.MarkFailed(ctx, id, err.Error()); mErr != nil {
		logger.Named("reports").Error().Err(mErr).Str("report_id", id).Msg("failed to persist failed report")
	}
}

// Poll returns a report run's current status, retrying the lookup with
// exponential backoff on transient failures (SPEC_FULL.md §3); a
// not-found is permanent and returns immediately without retrying.
func (s *Svc) Poll(ctx context.Context, reportID string) (domain.PollOutput, error) {
	run, err := s.getRunWithRetry(ctx, reportID)
	if err != nil {
		return domain.PollOutput{}, err
	}

	out := domain.PollOutput{
		Status:    domain.RunStatus(run.Status),
		CreatedAt: run.CreatedAt,
	}
	switch out.Status {
	case domain.RunComplete:
		out.ReportCSV = run.ReportCSV
		out.FinishedAt = run.FinishedAt
	case domain.RunFailed:
		out.Error = run.Error
		out.FinishedAt = run.FinishedAt
	}
	return out, nil
}

func (s *Svc) getRunWithRetry(ctx context.Context, reportID string) (repo.Run, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialDelay
	b.Multiplier = RetryFactor

	var run repo.Run
	op := func() error {
		r, err := s.Repo.GetRun(ctx, reportID)
		if err != nil {
			if perrs.IsCode(err, perrs.ErrorCodeNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		run = r
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, RetryAttempts), ctx))
	if err != nil {
		return repo.Run{}, err
	}
	return run, nil
}
