package businesshours

import (
	"context"
	"testing"
	"time"

	"storeuptime/internal/core/model"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", name, err)
	}
	return loc
}

func TestExpand_EmptyRuleSetIsWholeLocalDay(t *testing.T) {
	loc := mustLoc(t, "UTC")
	ref := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	got := Expand(context.Background(), ref, loc, nil)
	if len(got) != 1 {
		t.Fatalf("expected exactly one interval, got %d", len(got))
	}
	wantStart := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 14, 23, 59, 59, 999_000_000, time.UTC)
	if !got[0].Start.Equal(wantStart) || !got[0].End.Equal(wantEnd) {
		t.Fatalf("got [%v, %v), want [%v, %v)", got[0].Start, got[0].End, wantStart, wantEnd)
	}
}

func TestExpand_OvernightRule(t *testing.T) {
	loc := mustLoc(t, "UTC")
	ref := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) // Friday
	rules := []model.BusinessHourRule{
		{StoreID: "D", DayOfWeek: 4, StartLocal: 22 * time.Hour, EndLocal: 2 * time.Hour},
	}

	got := Expand(context.Background(), ref, loc, rules)
	if len(got) != 1 {
		t.Fatalf("expected exactly one interval, got %d", len(got))
	}
	wantStart := time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC)
	if !got[0].Start.Equal(wantStart) || !got[0].End.Equal(wantEnd) {
		t.Fatalf("got [%v, %v), want [%v, %v)", got[0].Start, got[0].End, wantStart, wantEnd)
	}
}

func TestExpand_DeduplicatesIdenticalRules(t *testing.T) {
	loc := mustLoc(t, "UTC")
	ref := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	rules := []model.BusinessHourRule{
		{StoreID: "A", DayOfWeek: 3, StartLocal: 9 * time.Hour, EndLocal: 17 * time.Hour},
		{StoreID: "A", DayOfWeek: 3, StartLocal: 9 * time.Hour, EndLocal: 17 * time.Hour},
	}
	got := Expand(context.Background(), ref, loc, rules)
	if len(got) != 1 {
		t.Fatalf("expected duplicate rule collapsed to one interval, got %d", len(got))
	}
}

func TestExpand_TimezoneRoundTrip_NoDSTCrossing(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	ref := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC) // mid-summer, no transition
	rules := []model.BusinessHourRule{
		{StoreID: "B", DayOfWeek: 0, StartLocal: 9 * time.Hour, EndLocal: 17 * time.Hour},
	}
	got := Expand(context.Background(), ref, loc, rules)
	if len(got) != 1 {
		t.Fatalf("expected one interval, got %d", len(got))
	}
	gotLen := got[0].End.Sub(got[0].Start)
	if gotLen != 8*time.Hour {
		t.Fatalf("interval length = %v, want 8h", gotLen)
	}
}

func TestExpand_SpringForwardNonExistentIsDropped(t *testing.T) {
	// 2024-03-10 is the US spring-forward Sunday: 02:00 -> 03:00 local,
	// so 02:30 never occurs.
	loc := mustLoc(t, "America/New_York")
	ref := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rules := []model.BusinessHourRule{
		{StoreID: "C", DayOfWeek: 6, StartLocal: 2*time.Hour + 30*time.Minute, EndLocal: 3*time.Hour + 30*time.Minute},
	}
	got := Expand(context.Background(), ref, loc, rules)
	if len(got) != 0 {
		t.Fatalf("expected the non-existent interval to be dropped, got %d intervals: %+v", len(got), got)
	}
}

func TestExpand_FallBackAmbiguousIsDropped(t *testing.T) {
	// 2024-11-03 is the US fall-back Sunday: 01:00-01:59:59 local occurs twice.
	loc := mustLoc(t, "America/New_York")
	ref := time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)
	rules := []model.BusinessHourRule{
		{StoreID: "C", DayOfWeek: 6, StartLocal: 1 * time.Hour, EndLocal: time.Hour + 30*time.Minute},
	}
	got := Expand(context.Background(), ref, loc, rules)
	if len(got) != 0 {
		t.Fatalf("expected the ambiguous interval to be dropped, got %d intervals: %+v", len(got), got)
	}
}

func TestLoadLocation_FallsBackOnUnknownZone(t *testing.T) {
	loc := LoadLocation(context.Background(), "Not/AZone")
	if loc.String() != model.DefaultTimezone {
		t.Fatalf("LoadLocation fallback = %v, want %v", loc, model.DefaultTimezone)
	}
}

func TestLoadLocation_EmptyDefaultsToChicago(t *testing.T) {
	loc := LoadLocation(context.Background(), "")
	if loc.String() != model.DefaultTimezone {
		t.Fatalf("LoadLocation empty = %v, want %v", loc, model.DefaultTimezone)
	}
}
