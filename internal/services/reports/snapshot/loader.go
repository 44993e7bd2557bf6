// Package snapshot loads the observation table from ClickHouse into the
// in-memory Snapshot the report orchestrator computes against, per
// SPEC_FULL.md §3's "read once per run into memory and grouped by store_id"
// ownership note.
package snapshot

import (
	"context"

	"storeuptime/internal/core/model"
	"storeuptime/internal/platform/store"
)

// ObservationTable names the ClickHouse table holding raw store-status rows
const ObservationTable = "store_status"

// Loader reads the observation snapshot from ClickHouse through the
// platform store's Clickhouse seam (not the concrete ch.CH driver type),
// matching how the rest of the services layer only ever depends on
// modkit.Deps's storage seams rather than a specific backend package.
type Loader struct {
	CH store.Clickhouse
}

// NewLoader builds a Loader bound to a ClickHouse seam
func NewLoader(c store.Clickhouse) *Loader { return &Loader{CH: c} }

// LoadObservations reads every row of the observation table into memory.
// Rows with an unparseable status are skipped (logged by the caller, not
// here — this package stays I/O-pure the way the core engine does).
func (l *Loader) LoadObservations(ctx context.Context) ([]model.Observation, []string, error) {
	const q = `select store_id, timestamp_utc, status from ` + ObservationTable

	rows, err := l.CH.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var out []model.Observation
	var skipped []string
	for rows.Next() {
		var o model.Observation
		var statusStr string
		if err := rows.Scan(&o.StoreID, &o.TUTC, &statusStr); err != nil {
			return nil, nil, err
		}
		status, ok := model.ParseStatus(statusStr)
		if !ok {
			skipped = append(skipped, o.StoreID)
			continue
		}
		o.Status = status
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, skipped, nil
}
