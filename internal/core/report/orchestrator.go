// Package report implements the map-reduce orchestrator that composes the
// Clock, Business-Hour Expander, and Segment Evaluator into one ReportRow
// per store, and serializes the result set to CSV (spec.md §4.4).
package report

import (
	"context"
	"sort"
	"time"

	"storeuptime/internal/core/businesshours"
	"storeuptime/internal/core/clock"
	"storeuptime/internal/core/model"
	"storeuptime/internal/core/segment"
)

// Snapshot is the read-only data a run computes against: the full
// observation/business-hour/timezone tables, loaded once at run start per
// spec.md §9's "ownership of large snapshots" design note.
type Snapshot struct {
	Observations  []model.Observation
	BusinessHours []model.BusinessHourRule
	Timezones     []model.StoreTimezone
}

// StoreIDs returns the distinct store ids appearing in the observation
// table, in first-seen order (spec.md §4.4: "one row per distinct store_id
// appearing in the observation table")
func (s Snapshot) StoreIDs() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, o := range s.Observations {
		if !seen[o.StoreID] {
			seen[o.StoreID] = true
			out = append(out, o.StoreID)
		}
	}
	return out
}

// byStore indexes a snapshot's observations and business-hour rules per
// store so each worker can filter and sort them once
type byStore struct {
	observations map[string][]model.Observation
	hours        map[string][]model.BusinessHourRule
	tz           map[string]string
}

func indexSnapshot(s Snapshot) byStore {
	idx := byStore{
		observations: make(map[string][]model.Observation),
		hours:        make(map[string][]model.BusinessHourRule),
		tz:           make(map[string]string),
	}
	for _, o := range s.Observations {
		idx.observations[o.StoreID] = append(idx.observations[o.StoreID], o)
	}
	for _, h := range s.BusinessHours {
		idx.hours[h.StoreID] = append(idx.hours[h.StoreID], h)
	}
	for _, z := range s.Timezones {
		idx.tz[z.StoreID] = z.TZ
	}
	for storeID, obs := range idx.observations {
		sort.Slice(obs, func(i, j int) bool { return obs[i].TUTC.Before(obs[j].TUTC) })
		idx.observations[storeID] = obs
	}
	return idx
}

// Run computes one ReportRow per distinct store_id sequentially, in the
// order StoreIDs returns them (spec.md's "sequential in-process" mode,
// grounded on original_source's generate_report_task)
func Run(ctx context.Context, c clock.Clock, snap Snapshot) []model.ReportRow {
	idx := indexSnapshot(snap)
	storeIDs := snap.StoreIDs()
	rows := make([]model.ReportRow, 0, len(storeIDs))
	for _, id := range storeIDs {
		rows = append(rows, computeRow(ctx, c, idx, id))
	}
	return rows
}

// RunChunked computes rows the same way as Run but partitions storeIDs into
// fixed-size chunks and hands each chunk to worker(chunk) to run — the
// chord/barrier map-reduce pattern from spec.md §4.4/§5, grounded on
// original_source's generate_report_parallel_task. The reducer is the
// concatenation of chunk results after all chunks return; no cross-chunk
// state exists, and any partitioning of storeIDs is tolerated (order of
// chunks, and rows within a chunk, do not affect the final row set).
func RunChunked(ctx context.Context, c clock.Clock, snap Snapshot, chunkSize int, worker func(ctx context.Context, chunk []string, mapStore func(string) model.ReportRow) []model.ReportRow) []model.ReportRow {
	idx := indexSnapshot(snap)
	storeIDs := snap.StoreIDs()
	if chunkSize <= 0 {
		chunkSize = len(storeIDs)
	}
	if chunkSize == 0 {
		return nil
	}

	mapStore := func(id string) model.ReportRow { return computeRow(ctx, c, idx, id) }

	var rows []model.ReportRow
	for start := 0; start < len(storeIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(storeIDs) {
			end = len(storeIDs)
		}
		chunk := storeIDs[start:end]
		rows = append(rows, worker(ctx, chunk, mapStore)...)
	}
	return rows
}

// Computer indexes a Snapshot once and computes individual store rows
// against it, letting a caller (e.g. a per-store result cache) interleave
// cache hits and misses without re-indexing the snapshot on every call.
type Computer struct {
	clock clock.Clock
	idx   byStore
}

// NewComputer indexes snap once for repeated per-store Row calls
func NewComputer(c clock.Clock, snap Snapshot) *Computer {
	return &Computer{clock: c, idx: indexSnapshot(snap)}
}

// Row computes the ReportRow for one store_id
func (cp *Computer) Row(ctx context.Context, storeID string) model.ReportRow {
	return computeRow(ctx, cp.clock, cp.idx, storeID)
}

func computeRow(ctx context.Context, c clock.Clock, idx byStore, storeID string) model.ReportRow {
	now := c.Now()
	loc := businesshours.LoadLocation(ctx, idx.tz[storeID])
	obs := idx.observations[storeID]
	hours := idx.hours[storeID]

	windows := []model.ReportWindow{
		{Label: model.WindowLastHour, Start: now.Add(-time.Hour), End: now},
		{Label: model.WindowLastDay, Start: now.Add(-24 * time.Hour), End: now},
		{Label: model.WindowLastWeek, Start: now.Add(-7 * 24 * time.Hour), End: now},
	}

	totals := make(map[model.WindowLabel]struct{ up, down int64 }, 3)
	for _, w := range windows {
		r := segment.PrepareObservations(obs, w.Start, w.End, now)
		up, down := accumulateWindow(ctx, w, loc, hours, r)
		totals[w.Label] = struct{ up, down int64 }{up, down}
	}

	hourTotals := totals[model.WindowLastHour]
	dayTotals := totals[model.WindowLastDay]
	weekTotals := totals[model.WindowLastWeek]

	return model.ReportRow{
		StoreID:             storeID,
		UptimeLastHourMin:   roundHalfToEvenInt64(minutesOf(hourTotals.up)),
		UptimeLastDayHr:     roundHalfToEven2dp(hoursOf(dayTotals.up)),
		UptimeLastWeekHr:    roundHalfToEven2dp(hoursOf(weekTotals.up)),
		DowntimeLastHourMin: roundHalfToEvenInt64(minutesOf(hourTotals.down)),
		DowntimeLastDayHr:   roundHalfToEven2dp(hoursOf(dayTotals.down)),
		DowntimeLastWeekHr:  roundHalfToEven2dp(hoursOf(weekTotals.down)),
	}
}

// accumulateWindow walks each UTC calendar day the window touches, expands
// that day's business-hour segments, intersects each with the window, and
// accumulates the Evaluator's per-segment totals (spec.md §4.4 step 5)
func accumulateWindow(ctx context.Context, w model.ReportWindow, loc *time.Location, hours []model.BusinessHourRule, r []model.Observation) (upMS, downMS int64) {
	day := floorToUTCDay(w.Start)
	for !day.After(w.End) {
		dow := utcDayOfWeek(day)
		dayRules := filterByDayOfWeek(hours, dow)
		is24x7 := len(dayRules) == 0

		segments := businesshours.Expand(ctx, day, loc, dayRules)
		for _, seg := range segments {
			s, e, ok := intersect(seg.Start, seg.End, w.Start, w.End)
			if !ok {
				continue
			}
			up, down := segment.Evaluate(s, e, r, is24x7)
			upMS += up
			downMS += down
		}
		day = day.AddDate(0, 0, 1)
	}
	return upMS, downMS
}

func floorToUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// utcDayOfWeek maps Go's time.Weekday (0 = Sunday) onto spec.md's
// day_of_week convention (0 = Monday .. 6 = Sunday)
func utcDayOfWeek(t time.Time) int {
	wd := int(t.Weekday())
	return (wd + 6) % 7
}

func filterByDayOfWeek(rules []model.BusinessHourRule, dow int) []model.BusinessHourRule {
	out := make([]model.BusinessHourRule, 0, len(rules))
	for _, r := range rules {
		if r.DayOfWeek == dow {
			out = append(out, r)
		}
	}
	return out
}

// intersect returns the overlap of the half-open business-hour segment
// [aS, aE) with the closed report window [bS, bE]. A single instant has no
// duration, so clipping aE down to bE when it overruns doesn't shortchange
// the segment: the evaluator already treats its own upper bound as
// inclusive for observation matching (spec.md §4.3 step 3, "S < o.t ≤ E"),
// which is what actually realizes the window's closed-closed semantics
// without double counting.
func intersect(aS, aE, bS, bE time.Time) (s, e time.Time, ok bool) {
	if aS.Before(bS) {
		aS = bS
	}
	if aE.After(bE) {
		aE = bE
	}
	if !aE.After(aS) {
		return time.Time{}, time.Time{}, false
	}
	return aS, aE, true
}

func minutesOf(ms int64) float64 { return float64(ms) / 60000.0 }
func hoursOf(ms int64) float64   { return float64(ms) / 3_600_000.0 }
