// Package clock supplies the reference "current UTC instant" a report run
// computes against, either wall-clock or a fixed override for deterministic
// golden-output testing.
package clock

import "time"

// Clock returns the instant a report run should treat as "now"
type Clock interface {
	Now() time.Time
}

// System is the wall-clock Clock
type System struct{}

// Now returns time.Now() converted to UTC
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock that always returns the same instant, used in tests and
// whenever CORE_REPORT_NOW_OVERRIDE is set; CURRENT_TIMESTAMP_OVERRIDE is
// not read
type Fixed struct {
	At time.Time
}

// Now returns the fixed instant, converted to UTC
func (f Fixed) Now() time.Time { return f.At.UTC() }

// FromOverride parses override as an ISO-8601 instant and returns a Fixed
// clock wrapping it in UTC. A naive (zone-less) override is assumed to
// already be UTC. An empty or unparseable override returns ok=false so the
// caller can fall back to the wall clock silently, per spec
func FromOverride(override string) (c Fixed, ok bool) {
	if override == "" {
		return Fixed{}, false
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, override)
		if err != nil {
			continue
		}
		// Naive layouts parse with an implicit UTC location already; aware
		// layouts carry their own offset. Either way, .UTC() is the
		// conversion spec.md §4.1 asks for
		return Fixed{At: t.UTC()}, true
	}
	return Fixed{}, false
}

// New builds the Clock a report run should use: the override when present
// and parseable, otherwise the wall clock
func New(override string) Clock {
	if c, ok := FromOverride(override); ok {
		return c
	}
	return System{}
}
