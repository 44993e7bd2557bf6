// Package repo provides postgres access for report runs and the
// business-hour/timezone reference tables
package repo

import (
	"context"
	"time"

	"storeuptime/internal/modkit/repokit"
)

// Run is a persisted report run row
type Run struct {
	ID         string
	Status     string
	ReportCSV  string
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// HourRow is one business-hour rule as stored in menu_hours
type HourRow struct {
	StoreID    string
	DayOfWeek  int
	StartLocal string
	EndLocal   string
}

// TZRow is one store's IANA timezone as stored in timezones
type TZRow struct {
	StoreID string
	TZ      string
}

// Repo is the minimal persistence surface for reports
type Repo interface {
	CreateRun(ctx context.Context, id string) error
	MarkComplete(ctx context.Context, id, reportCSV string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	GetRun(ctx context.Context, id string) (Run, error)

	BusinessHours(ctx context.Context) ([]HourRow, error)
	Timezones(ctx context.Context) ([]TZRow, error)
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) CreateRun(ctx context.Context, id string) error {
	const sql = `
insert into report_runs (id, status, created_at)
values ($1, 'Running', now())
`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) MarkComplete(ctx context.Context, id, reportCSV string) error {
	const sql = `
update report_runs
set status = 'Complete', report_csv = $2, finished_at = now()
where id = $1
`
	_, err := r.q.Exec(ctx, sql, id, reportCSV)
	return err
}

func (r *queries) MarkFailed(ctx context.Context, id, errMsg string) error {
	const sql = `
update report_runs
set status = 'Failed', error = $2, finished_at = now()
where id = $1
`
	_, err := r.q.Exec(ctx, sql, id, errMsg)
	return err
}

func (r *queries) GetRun(ctx context.Context, id string) (Run, error) {
	const sql = `
select id, status, coalesce(report_csv, ''), coalesce(error, ''), created_at, coalesce(finished_at, created_at)
from report_runs
where id = $1
`
	rows, err := r.q.Query(ctx, sql, id)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()

	var out Run
	found := false
	if rows.Next() {
		found = true
		if err := rows.Scan(&out.ID, &out.Status, &out.ReportCSV, &out.Error, &out.CreatedAt, &out.FinishedAt); err != nil {
			return Run{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	if !found {
		return Run{}, errNotFound
	}
	return out, nil
}

func (r *queries) BusinessHours(ctx context.Context) ([]HourRow, error) {
	const sql = `
select store_id, day_of_week, start_time_local, end_time_local
from menu_hours
order by store_id, day_of_week
`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourRow
	for rows.Next() {
		var h HourRow
		if err := rows.Scan(&h.StoreID, &h.DayOfWeek, &h.StartLocal, &h.EndLocal); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *queries) Timezones(ctx context.Context) ([]TZRow, error) {
	const sql = `select store_id, timezone_str from timezones`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TZRow
	for rows.Next() {
		var z TZRow
		if err := rows.Scan(&z.StoreID, &z.TZ); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}
