// Package repo writes CSV-sourced rows into the ClickHouse observation
// table and the Postgres reference tables, mirroring load_csv_data.py's
// delete-then-bulk_create per table
package repo

import (
	"context"
	"time"

	"storeuptime/internal/modkit/repokit"
	"storeuptime/internal/platform/store"
)

// StatusRow is one store_status.csv row ready for insertion
type StatusRow struct {
	StoreID string
	TUTC    time.Time
	Status  string
}

// HourRow is one menu_hours.csv row ready for insertion
type HourRow struct {
	StoreID    string
	DayOfWeek  int
	StartLocal string
	EndLocal   string
}

// TZRow is one timezones.csv row ready for insertion
type TZRow struct {
	StoreID string
	TZ      string
}

// ObservationWriter persists store_status rows to ClickHouse in chunks
type ObservationWriter interface {
	InsertStatusChunk(ctx context.Context, rows []StatusRow) error
}

// ReferenceWriter persists the (small) business-hour and timezone tables to
// Postgres, replacing their prior contents the way the Django command does
type ReferenceWriter interface {
	ReplaceBusinessHours(ctx context.Context, rows []HourRow) error
	ReplaceTimezones(ctx context.Context, rows []TZRow) error
}

// CH binds an ObservationWriter to the ClickHouse seam
type CH struct{ conn store.Clickhouse }

// NewCH returns an ObservationWriter bound to conn
func NewCH(conn store.Clickhouse) ObservationWriter { return &CH{conn: conn} }

// InsertStatusChunk inserts one chunk of store_status rows
func (c *CH) InsertStatusChunk(ctx context.Context, rows []StatusRow) error {
	if len(rows) == 0 {
		return nil
	}
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.StoreID, r.TUTC, r.Status}
	}
	return c.conn.Insert(ctx, "store_status", data)
}

type (
	// PG is a binder that can bind the reference-table repo to a Queryer
	PG struct{}
	// queries implements ReferenceWriter
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the reference-table repo to a Queryer
func NewPG() repokit.Binder[ReferenceWriter] { return PG{} }

// Bind wires a Queryer to the reference-table repo
func (PG) Bind(q repokit.Queryer) ReferenceWriter { return &queries{q: q} }

// ReplaceBusinessHours clears menu_hours and reinserts rows, matching
// load_csv_data.py's "delete then bulk_create" semantics for this table
func (r *queries) ReplaceBusinessHours(ctx context.Context, rows []HourRow) error {
	if _, err := r.q.Exec(ctx, `delete from menu_hours`); err != nil {
		return err
	}
	const sql = `
insert into menu_hours (store_id, day_of_week, start_time_local, end_time_local)
values ($1, $2, $3, $4)
on conflict do nothing
`
	for _, h := range rows {
		if _, err := r.q.Exec(ctx, sql, h.StoreID, h.DayOfWeek, h.StartLocal, h.EndLocal); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceTimezones clears timezones and reinserts rows; store_id is the
// primary key there so a plain insert after delete is sufficient
func (r *queries) ReplaceTimezones(ctx context.Context, rows []TZRow) error {
	if _, err := r.q.Exec(ctx, `delete from timezones`); err != nil {
		return err
	}
	const sql = `insert into timezones (store_id, timezone_str) values ($1, $2)`
	for _, z := range rows {
		if _, err := r.q.Exec(ctx, sql, z.StoreID, z.TZ); err != nil {
			return err
		}
	}
	return nil
}
