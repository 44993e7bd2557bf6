package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"storeuptime/internal/core/model"
)

// Header is the fixed CSV header spec.md §4.4 mandates
const Header = "store_id,uptime_last_hour,uptime_last_day,uptime_last_week,downtime_last_hour,downtime_last_day,downtime_last_week"

// ToCSV serializes rows into the UTF-8 CSV body spec.md §4.4/§6 describes:
// one header line, one line per row, no quoting, no thousands separators,
// newline = \n. Row order is not meaningful (spec.md: "rows may be emitted
// in arbitrary order"); callers that need deterministic output (golden
// tests, idempotence checks) should sort first, e.g. via SortByStoreID.
func ToCSV(rows []model.ReportRow) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(formatRow(r))
		b.WriteByte('\n')
	}
	return b.String()
}

// SortByStoreID returns rows sorted by store_id, for deterministic-order
// comparisons (e.g. the idempotence property in spec.md §8); it does not
// mutate the input slice.
func SortByStoreID(rows []model.ReportRow) []model.ReportRow {
	out := make([]model.ReportRow, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out
}

func formatRow(r model.ReportRow) string {
	return fmt.Sprintf("%s,%d,%s,%s,%d,%s,%s",
		r.StoreID,
		r.UptimeLastHourMin,
		formatHours(r.UptimeLastDayHr),
		formatHours(r.UptimeLastWeekHr),
		r.DowntimeLastHourMin,
		formatHours(r.DowntimeLastDayHr),
		formatHours(r.DowntimeLastWeekHr),
	)
}

// formatHours renders an already-rounded hours value with up to two
// fractional digits, trimming a trailing ".00" the way a whole-hour result
// should read ("0", not "0.00"), matching spec.md §6's "decimals with up to
// two fractional digits"
func formatHours(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// roundHalfToEvenInt64 rounds v (already in the target unit) to the nearest
// integer using banker's rounding, per spec.md §9's recommendation and
// §4.4's "round half-to-even"
func roundHalfToEvenInt64(v float64) int64 {
	return int64(math.RoundToEven(v))
}

// roundHalfToEven2dp rounds v to two fractional digits using banker's
// rounding on the shifted value
func roundHalfToEven2dp(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
