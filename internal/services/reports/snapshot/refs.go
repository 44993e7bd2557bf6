package snapshot

import (
	"strconv"
	"strings"
	"time"

	"storeuptime/internal/core/model"
	"storeuptime/internal/services/reports/repo"
)

// ToBusinessHourRules converts the postgres-stored "HH:MM:SS" wall-clock
// strings into model.BusinessHourRule's time.Duration-since-midnight form.
// Rows with an unparseable time are skipped and their store_id returned so
// the caller can log them, matching original_source's "bad day-of-week"
// skip-on-error behavior for the reference tables.
func ToBusinessHourRules(rows []repo.HourRow) ([]model.BusinessHourRule, []string) {
	out := make([]model.BusinessHourRule, 0, len(rows))
	var skipped []string
	for _, h := range rows {
		start, ok1 := parseClock(h.StartLocal)
		end, ok2 := parseClock(h.EndLocal)
		if !ok1 || !ok2 {
			skipped = append(skipped, h.StoreID)
			continue
		}
		out = append(out, model.BusinessHourRule{
			StoreID:    h.StoreID,
			DayOfWeek:  h.DayOfWeek,
			StartLocal: start,
			EndLocal:   end,
		})
	}
	return out, skipped
}

// ToTimezones converts postgres timezone rows to the core model's form
func ToTimezones(rows []repo.TZRow) []model.StoreTimezone {
	out := make([]model.StoreTimezone, 0, len(rows))
	for _, z := range rows {
		out = append(out, model.StoreTimezone{StoreID: z.StoreID, TZ: z.TZ})
	}
	return out
}

// parseClock parses "HH:MM:SS" or "HH:MM" into a duration since midnight
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	sec := 0
	if len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, false
		}
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, true
}
