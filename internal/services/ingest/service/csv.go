package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"storeuptime/internal/services/ingest/repo"
)

// storeStatusTimeLayouts covers both timestamp forms load_csv_data.py
// tolerates: with and without fractional seconds, both carrying a literal
// " UTC" suffix that strptime strips before parsing
var storeStatusTimeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseObservationTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "UTC"))
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range storeStatusTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", s, lastErr)
}

// statusChunkReader pages through store_status.csv row_count rows at a
// time, matching load_store_status_chunk_task's "skip to chunk_start, read
// chunk_size rows" behavior without needing an explicit byte offset: it
// simply keeps the same csv.Reader open across calls.
type statusChunkReader struct {
	r       *csv.Reader
	closer  io.Closer
	header  map[string]int
	skipped int
}

func newStatusChunkReader(rc io.ReadCloser) (*statusChunkReader, error) {
	r := csv.NewReader(rc)
	header, err := r.Read()
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	idx := indexHeader(header)
	for _, col := range []string{"store_id", "timestamp_utc", "status"} {
		if _, ok := idx[col]; !ok {
			_ = rc.Close()
			return nil, fmt.Errorf("store_status.csv: missing expected column %q", col)
		}
	}
	return &statusChunkReader{r: r, closer: rc, header: idx}, nil
}

func (c *statusChunkReader) Close() error { return c.closer.Close() }

// Next reads up to chunkSize valid rows, skipping (and counting) rows with
// a bad status or an unparseable timestamp, matching the Python loader's
// log-and-skip-then-continue behavior. Returns io.EOF once the file is
// exhausted, even if it returns a non-empty final chunk alongside it.
func (c *statusChunkReader) Next(chunkSize int) ([]repo.StatusRow, error) {
	out := make([]repo.StatusRow, 0, chunkSize)
	for len(out) < chunkSize {
		row, err := c.r.Read()
		if err == io.EOF {
			return out, io.EOF
		}
		if err != nil {
			return out, err
		}

		storeID := row[c.header["store_id"]]
		statusStr := row[c.header["status"]]
		if _, ok := parseStatusLoose(statusStr); !ok {
			c.skipped++
			continue
		}
		ts, err := parseObservationTimestamp(row[c.header["timestamp_utc"]])
		if err != nil {
			c.skipped++
			continue
		}
		out = append(out, repo.StatusRow{StoreID: storeID, TUTC: ts, Status: statusStr})
	}
	return out, nil
}

func parseStatusLoose(s string) (string, bool) {
	switch s {
	case "active", "inactive":
		return s, true
	default:
		return "", false
	}
}

// readBusinessHours parses menu_hours.csv in full: original_source treats
// this as a small, one-shot table with no chunking
func readBusinessHours(rc io.ReadCloser) ([]repo.HourRow, int, error) {
	defer rc.Close()
	r := csv.NewReader(rc)
	header, err := r.Read()
	if err != nil {
		return nil, 0, err
	}
	idx := indexHeader(header)
	dayCol, hasDay := idx["dayOfWeek"]
	if !hasDay {
		dayCol, hasDay = idx["day"]
	}
	for name, ok := range map[string]bool{
		"store_id": true, "start_time_local": true, "end_time_local": true,
	} {
		if _, present := idx[name]; !present && ok {
			return nil, 0, fmt.Errorf("menu_hours.csv: missing expected column %q", name)
		}
	}
	if !hasDay {
		return nil, 0, fmt.Errorf("menu_hours.csv: missing expected column \"dayOfWeek\"/\"day\"")
	}

	var out []repo.HourRow
	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		day, err := strconv.Atoi(row[dayCol])
		if err != nil || day < 0 || day > 6 {
			skipped++
			continue
		}
		out = append(out, repo.HourRow{
			StoreID:    row[idx["store_id"]],
			DayOfWeek:  day,
			StartLocal: row[idx["start_time_local"]],
			EndLocal:   row[idx["end_time_local"]],
		})
	}
	return out, skipped, nil
}

// defaultTimezone is the fallback original_source applies to a blank or
// unrecognized timezone_str column
const defaultTimezone = "America/Chicago"

// readTimezones parses timezones.csv in full, defaulting an empty or
// unresolvable timezone_str to defaultTimezone the way load_csv_data.py
// does via pytz.timezone validation
func readTimezones(rc io.ReadCloser, isValidTZ func(string) bool) ([]repo.TZRow, int, error) {
	defer rc.Close()
	r := csv.NewReader(rc)
	header, err := r.Read()
	if err != nil {
		return nil, 0, err
	}
	idx := indexHeader(header)
	if _, ok := idx["store_id"]; !ok {
		return nil, 0, fmt.Errorf("timezones.csv: missing expected column \"store_id\"")
	}
	tzCol, hasTZ := idx["timezone_str"]

	var out []repo.TZRow
	defaulted := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		tz := ""
		if hasTZ {
			tz = strings.TrimSpace(row[tzCol])
		}
		if tz == "" || !isValidTZ(tz) {
			tz = defaultTimezone
			defaulted++
		}
		out = append(out, repo.TZRow{StoreID: row[idx["store_id"]], TZ: tz})
	}
	return out, defaulted, nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}
