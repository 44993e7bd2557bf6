// Package queue is a minimal durable task-dispatch seam backed by
// Postgres, grounded on the bouncer service's lease-and-claim
// pattern (FOR UPDATE SKIP LOCKED). It gives storeuptime-worker a way to
// pull report-compute jobs independently of the HTTP API process, as an
// alternative to the API's own in-process dispatch for the chunked
// map-reduce strategy.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storeuptime/internal/modkit/repokit"
)

// Job is one leased unit of work
type Job struct {
	ID       string
	Queue    string
	Payload  string
	Attempts int
}

// Queue is the durable dispatch surface
type Queue interface {
	// Enqueue inserts a ready-to-run job and returns its ID
	Enqueue(ctx context.Context, queueName, payload string) (string, error)
	// Lease claims up to limit ready jobs on queueName, locking them for
	// leaseFor so a crashed worker's claim eventually expires
	Lease(ctx context.Context, queueName string, limit int, leaseFor time.Duration) ([]Job, error)
	// Complete removes a job after successful processing
	Complete(ctx context.Context, id string) error
	// Fail records an error and makes the job immediately re-leasable
	Fail(ctx context.Context, id, errMsg string) error
}

type (
	// PG is a binder that can bind the queue to a Queryer
	PG struct{}
	// queries implements Queue against the queue_jobs table
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the queue to a Queryer
func NewPG() repokit.Binder[Queue] { return PG{} }

// Bind wires a Queryer to the queue
func (PG) Bind(q repokit.Queryer) Queue { return &queries{q: q} }

func (r *queries) Enqueue(ctx context.Context, queueName, payload string) (string, error) {
	id := uuid.NewString()
	const sql = `
insert into queue_jobs (id, queue_name, payload, attempts, leased_by, next_attempt_at, created_at)
values ($1, $2, $3, 0, null, now(), now())
`
	if _, err := r.q.Exec(ctx, sql, id, queueName, payload); err != nil {
		return "", err
	}
	return id, nil
}

// Lease claims ready jobs the same way the bouncer worker leases
// verifications: a CTE selects candidates FOR UPDATE SKIP LOCKED so
// concurrent workers never double-claim the same row
func (r *queries) Lease(ctx context.Context, queueName string, limit int, leaseFor time.Duration) ([]Job, error) {
	workerID := uuid.NewString()
	const sql = `
with ready as (
    select id
      from queue_jobs
     where queue_name = $1
       and (leased_by is null or lease_expires_at <= now())
       and next_attempt_at <= now()
     order by next_attempt_at asc
     limit $2
       for update skip locked
), upd as (
    update queue_jobs j
       set leased_by = $3,
           lease_expires_at = now() + $4::interval,
           attempts = attempts + 1
     where j.id in (select id from ready)
    returning j.id, j.queue_name, j.payload, j.attempts
)
select id, queue_name, payload, attempts from upd
`
	rows, err := r.q.Query(ctx, sql, queueName, limit, workerID, leaseFor.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Queue, &j.Payload, &j.Attempts); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *queries) Complete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `delete from queue_jobs where id = $1`, id)
	return err
}

// Fail clears the lease so the job is immediately eligible for re-leasing
// by the next poll; queue_jobs has no dead-letter table, a job that keeps
// failing just keeps retrying until a human investigates via attempts
func (r *queries) Fail(ctx context.Context, id, errMsg string) error {
	const sql = `
update queue_jobs
set leased_by = null, lease_expires_at = null, last_error = $2
where id = $1
`
	_, err := r.q.Exec(ctx, sql, id, errMsg)
	return err
}
