package booking

import (
	"testing"
	"time"

	"github.com/carinspect/carinspect/internal/domain/center"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestGenerateSlotsTilesInterval(t *testing.T) {
	loc := mustLocation(t, "UTC")
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, loc) // a Monday

	intervals := []center.Interval{{Start: "08:00", End: "12:00"}}
	slots := GenerateSlots(intervals, 20*time.Minute, date, loc)

	if len(slots) != 12 {
		t.Fatalf("expected 12 slots for a 4h interval at 20min, got %d", len(slots))
	}
	first := slots[0]
	if got := first.Start.In(loc).Format("15:04"); got != "08:00" {
		t.Errorf("first slot starts at %s, want 08:00", got)
	}
	last := slots[len(slots)-1]
	if got := last.Start.In(loc).Format("15:04"); got != "11:40" {
		t.Errorf("last slot starts at %s, want 11:40", got)
	}
	if got := last.End.In(loc).Format("15:04"); got != "12:00" {
		t.Errorf("last slot ends at %s, want 12:00", got)
	}
}

func TestGenerateSlotsDropsPartialTrailingSlot(t *testing.T) {
	loc := mustLocation(t, "UTC")
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	intervals := []center.Interval{{Start: "09:00", End: "09:50"}}
	slots := GenerateSlots(intervals, 20*time.Minute, date, loc)

	if len(slots) != 2 {
		t.Fatalf("expected 2 full slots in a 50min interval, got %d", len(slots))
	}
	if got := slots[1].End.In(loc).Format("15:04"); got != "09:40" {
		t.Errorf("second slot ends at %s, want 09:40 (the 09:40-09:50 remainder is dropped)", got)
	}
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	loc := mustLocation(t, "Europe/Berlin")
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	intervals := []center.Interval{
		{Start: "08:00", End: "12:00"},
		{Start: "13:00", End: "17:00"},
	}

	a := GenerateSlots(intervals, 30*time.Minute, date, loc)
	b := GenerateSlots(intervals, 30*time.Minute, date, loc)

	if len(a) != len(b) {
		t.Fatalf("two runs produced %d and %d slots", len(a), len(b))
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			t.Errorf("slot %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
	for i := 1; i < len(a); i++ {
		if !a[i].Start.After(a[i-1].Start) {
			t.Errorf("slot %d not ordered after its predecessor", i)
		}
	}
}

func TestGenerateSlotsEmptyInputs(t *testing.T) {
	loc := mustLocation(t, "UTC")
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	if got := GenerateSlots(nil, 20*time.Minute, date, loc); len(got) != 0 {
		t.Errorf("closed day produced %d slots", len(got))
	}
	if got := GenerateSlots([]center.Interval{{Start: "08:00", End: "12:00"}}, 0, date, loc); got != nil {
		t.Errorf("zero duration produced %d slots", len(got))
	}
}

func TestGenerateSlotsAcrossDSTTransition(t *testing.T) {
	loc := mustLocation(t, "Europe/Berlin")
	// 2026-03-29: clocks jump 02:00 -> 03:00 in Berlin.
	date := time.Date(2026, 3, 29, 0, 0, 0, 0, loc)

	intervals := []center.Interval{{Start: "08:00", End: "10:00"}}
	slots := GenerateSlots(intervals, 30*time.Minute, date, loc)

	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if got := slots[0].Start.In(loc).Format("15:04"); got != "08:00" {
		t.Errorf("first slot wall clock is %s, want 08:00 despite the DST jump", got)
	}
}
