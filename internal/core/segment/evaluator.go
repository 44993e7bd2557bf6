// Package segment interpolates a piecewise-constant active/inactive signal
// from sparse observations over a half-open UTC interval. It is the
// algorithmic heart of the metrics engine (spec.md §4.3) and is
// deliberately a pure function with no I/O or logging dependency, so it can
// be exercised with property-based and table-driven tests in isolation.
package segment

import (
	"sort"
	"time"

	"storeuptime/internal/core/model"
)

// EightDayWindow is the cutoff beyond which a pre-window observation is no
// longer considered indicative of current state (spec.md §4.3 "eight-day rule")
const EightDayWindow = 8 * 24 * time.Hour

// PrepareObservations builds R: the de-duplicated, time-sorted sequence of
// observations relevant to a report window, given the store's full
// chronological observation slice. windowStart/windowEnd are the closed
// report window [W_s, W_e]; nowUTC anchors the eight-day rule.
//
// all must already be sorted ascending by TUTC and pre-filtered to the
// store; duplicates at identical timestamps are resolved to the
// later-in-iteration-order value per spec.md §3.
func PrepareObservations(all []model.Observation, windowStart, windowEnd, nowUTC time.Time) []model.Observation {
	var before *model.Observation
	var inside []model.Observation
	var after *model.Observation

	for i := range all {
		o := all[i]
		switch {
		case o.TUTC.Before(windowStart):
			// latest strictly-before candidate: later iteration order wins
			if before == nil || !o.TUTC.Before(before.TUTC) {
				before = &o
			}
		case o.TUTC.After(windowEnd):
			// earliest strictly-after candidate
			if after == nil || o.TUTC.Before(after.TUTC) {
				after = &o
			}
		default:
			inside = append(inside, o)
		}
	}

	if before != nil && nowUTC.Sub(before.TUTC) > EightDayWindow {
		before = nil
	}

	out := make([]model.Observation, 0, len(inside)+2)
	if before != nil {
		out = append(out, *before)
	}
	out = append(out, inside...)
	if after != nil {
		out = append(out, *after)
	}

	return dedupeByTimestamp(out)
}

// dedupeByTimestamp collapses observations sharing an identical timestamp
// to the later-in-iteration-order one, preserving ascending time order.
// Input need not be pre-sorted across the before/inside/after concatenation
// boundary since before.TUTC < windowStart <= inside <= windowEnd < after.TUTC
// already orders them; a stable sort guards against any caller violating that.
func dedupeByTimestamp(in []model.Observation) []model.Observation {
	sort.SliceStable(in, func(i, j int) bool { return in[i].TUTC.Before(in[j].TUTC) })

	out := in[:0:0]
	for _, o := range in {
		if n := len(out); n > 0 && out[n-1].TUTC.Equal(o.TUTC) {
			out[n-1] = o // later-in-iteration-order value wins the tie
			continue
		}
		out = append(out, o)
	}
	return out
}

// Evaluate computes (uptime_ms, downtime_ms) for the half-open interval
// [S, E) given R (the prepared observation sequence for the whole report
// window, ascending by time, shared and reused across every segment of
// that window) and is24x7 (true iff the containing local day had no
// business-hour rules).
//
// When R is empty overall (no in-window observation, no O_before, no
// O_after survived the eight-day rule anywhere in the window) spec.md
// §4.3 step 5 overrides the general algorithm: a 24/7 schedule charges the
// whole segment to downtime (no polling ever happened, so the store is
// presumed down); a limited schedule charges nothing at all, since absence
// of polling inside a bounded business window is not evidence of any state.
func Evaluate(s, e time.Time, r []model.Observation, is24x7 bool) (uptimeMS, downtimeMS int64) {
	if !e.After(s) {
		return 0, 0
	}

	if len(r) == 0 {
		if is24x7 {
			return 0, e.Sub(s).Milliseconds()
		}
		return 0, 0
	}

	// Accumulate in nanosecond-precision Durations and convert to
	// milliseconds exactly once at the end. Converting per-credit instead
	// would truncate each fractional-millisecond share independently and
	// could under-report the segment total by up to a millisecond.
	var up, down time.Duration

	initial, hasInitial := latestAtOrBefore(r, s)
	relevant := between(r, s, e)

	cursor := s
	lastStatus := model.StatusUnknown
	haveLast := hasInitial
	if hasInitial {
		lastStatus = initial
	}

	for _, o := range relevant {
		delta := o.TUTC.Sub(cursor)
		if delta > 0 {
			switch {
			case !haveLast:
				// No status is known before the first sample; spec.md §9
				// mandates whole-interval-to-downtime here, not a split and
				// not attribution to the incoming sample's status
				down += delta
			case lastStatus != o.Status:
				half := delta / 2
				rem := delta - half*2 // 0 or 1ns, preserved via the nanosecond-precision accumulator
				credit(&up, &down, lastStatus, half+rem)
				credit(&up, &down, o.Status, half)
			default:
				credit(&up, &down, lastStatus, delta)
			}
		}
		cursor = o.TUTC
		lastStatus = o.Status
		haveLast = true
	}

	remainder := e.Sub(cursor)
	if remainder > 0 {
		if haveLast && lastStatus == model.StatusActive {
			up += remainder
		} else {
			down += remainder
		}
	}

	return up.Milliseconds(), down.Milliseconds()
}

func credit(up, down *time.Duration, status model.Status, d time.Duration) {
	if status == model.StatusActive {
		*up += d
	} else {
		*down += d
	}
}

// latestAtOrBefore returns the status of the latest element with t <= at
func latestAtOrBefore(r []model.Observation, at time.Time) (model.Status, bool) {
	var found model.Observation
	ok := false
	for _, o := range r {
		if o.TUTC.After(at) {
			break
		}
		found = o
		ok = true
	}
	return found.Status, ok
}

// between returns elements with S < t <= E, ascending
func between(r []model.Observation, s, e time.Time) []model.Observation {
	out := make([]model.Observation, 0, len(r))
	for _, o := range r {
		if o.TUTC.After(s) && !o.TUTC.After(e) {
			out = append(out, o)
		}
	}
	return out
}
