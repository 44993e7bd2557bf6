// Package businesshours converts a store's weekly local-time schedule into
// concrete UTC half-open intervals for a given local day, resolving
// daylight-saving edge cases per spec.
//
// Algorithm (mirrors spec.md §4.2):
//  1. Convert the reference UTC instant to a local civil date in the store's zone.
//  2. Empty rule set for that weekday ⇒ emit the whole local day as one interval.
//  3. Otherwise, for each rule build local start/end (end before start ⇒ overnight,
//     end rolls to the next local date).
//  4. Localize both endpoints. An ambiguous (DST fall-back) or non-existent
//     (DST spring-forward) local time drops that rule's interval for the day
//     and logs a warning; no heuristic repair is attempted.
//  5. Convert to UTC and emit.
package businesshours

import (
	"context"
	"time"

	"storeuptime/internal/core/model"
	"storeuptime/internal/platform/logger"
)

// Interval is a half-open UTC interval [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Expand returns the UTC business-hour intervals for the local day
// containing refUTC, in the given zone, for the supplied rules. rules must
// already be pre-filtered to a single (store, day_of_week); an empty slice
// means 24/7 for that day. Overlapping/duplicate rules are deduplicated by
// identical (start, end) per spec.md §3's invariant; they are not merged.
func Expand(ctx context.Context, refUTC time.Time, loc *time.Location, rules []model.BusinessHourRule) []Interval {
	localDate := refUTC.In(loc)
	y, m, d := localDate.Date()

	if len(rules) == 0 {
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		end := time.Date(y, m, d, 23, 59, 59, 999_000_000, loc)
		return []Interval{{Start: start.UTC(), End: end.UTC()}}
	}

	seen := make(map[[2]time.Duration]bool, len(rules))
	out := make([]Interval, 0, len(rules))

	for _, r := range rules {
		key := [2]time.Duration{r.StartLocal, r.EndLocal}
		if seen[key] {
			continue
		}
		seen[key] = true

		startDate := civilDate{y, m, d}
		endDate := civilDate{y, m, d}
		if r.EndLocal <= r.StartLocal {
			endDate = civilDate{y, m, d}.addDay()
		}

		startUTC, startOK := localize(startDate, r.StartLocal, loc)
		endUTC, endOK := localize(endDate, r.EndLocal, loc)
		if !startOK || !endOK {
			logger.C(ctx).Warn().
				Str("store_id", r.StoreID).
				Int("day_of_week", r.DayOfWeek).
				Str("tz", loc.String()).
				Msg("business hour rule localizes to an ambiguous or non-existent local time, dropping interval")
			continue
		}

		out = append(out, Interval{Start: startUTC, End: endUTC})
	}

	return out
}

// civilDate is a bare calendar date, independent of any zone or clock
type civilDate struct {
	y int
	m time.Month
	d int
}

func (c civilDate) addDay() civilDate {
	t := time.Date(c.y, c.m, c.d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// localize resolves (date, timeOfDay) to a UTC instant in loc, detecting
// DST ambiguity and non-existence. There is at most one DST transition
// within a calendar day in every IANA zone in practice, so the zone offsets
// sampled at the date's local midnight and at the following midnight bound
// the two candidate offsets that could apply to any wall-clock time that day.
func localize(date civilDate, timeOfDay time.Duration, loc *time.Location) (utc time.Time, ok bool) {
	_, offStart := time.Date(date.y, date.m, date.d, 0, 0, 0, 0, loc).Zone()
	next := date.addDay()
	_, offEnd := time.Date(next.y, next.m, next.d, 0, 0, 0, 0, loc).Zone()

	naiveUTC := time.Date(date.y, date.m, date.d, 0, 0, 0, 0, time.UTC).Add(timeOfDay)

	tryOffset := func(off int) (time.Time, bool) {
		candidate := naiveUTC.Add(-time.Duration(off) * time.Second)
		wantY, wantM, wantD := date.y, date.m, date.d
		wantDur := timeOfDay
		gotY, gotM, gotD := candidate.In(loc).Date()
		gotDur := time.Duration(candidate.In(loc).Hour())*time.Hour +
			time.Duration(candidate.In(loc).Minute())*time.Minute +
			time.Duration(candidate.In(loc).Second())*time.Second
		if gotY == wantY && gotM == wantM && gotD == wantD && gotDur == wantDur {
			return candidate, true
		}
		return time.Time{}, false
	}

	candStart, okStart := tryOffset(offStart)
	if offEnd == offStart {
		return candStart, okStart
	}

	candEnd, okEnd := tryOffset(offEnd)
	switch {
	case okStart && okEnd:
		// Ambiguous: both the pre- and post-transition offsets reproduce
		// this wall clock (DST fall-back). Spec mandates dropping, not
		// heuristically picking one.
		return time.Time{}, false
	case okStart:
		return candStart, true
	case okEnd:
		return candEnd, true
	default:
		// Non-existent: neither offset reproduces this wall clock
		// (DST spring-forward gap).
		return time.Time{}, false
	}
}

// LoadLocation resolves tz, falling back to model.DefaultTimezone (and
// logging) when tz is empty or unknown to the IANA database
func LoadLocation(ctx context.Context, tz string) *time.Location {
	if tz == "" {
		tz = model.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.C(ctx).Warn().Str("tz", tz).Err(err).
			Msg("unknown IANA timezone, substituting default")
		loc, err = time.LoadLocation(model.DefaultTimezone)
		if err != nil {
			// model.DefaultTimezone must always resolve on any system with a
			// standard tzdata install; UTC is the last-resort seam
			return time.UTC
		}
	}
	return loc
}
