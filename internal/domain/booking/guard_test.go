package booking

import (
	"testing"
	"time"

	"github.com/carinspect/carinspect/internal/domain/center"
)

func testCenter() *center.Center {
	return &center.Center{
		Name:                "Hauptbahnhof Station",
		Timezone:            "UTC",
		CapacityPerSlot:     2,
		SlotDurationMinutes: 20,
		WorkingHours: center.WorkingHours{
			"mon": {{Start: "08:00", End: "12:00"}},
			"tue": {{Start: "08:00", End: "12:00"}, {Start: "13:00", End: "17:00"}},
		},
		BlackoutDays: center.BlackoutDays{"2026-03-09"},
		Active:       true,
	}
}

func TestValidateBookingWindow(t *testing.T) {
	c := testCenter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) // Sunday

	cases := []struct {
		name  string
		start time.Time
		ok    bool
	}{
		{"interval start is bookable", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), true},
		{"mid interval", time.Date(2026, 3, 2, 10, 20, 0, 0, time.UTC), true},
		{"last slot before close", time.Date(2026, 3, 2, 11, 40, 0, 0, time.UTC), true},
		{"interval end is exclusive", time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), false},
		{"before opening", time.Date(2026, 3, 2, 7, 40, 0, 0, time.UTC), false},
		{"closed weekday", time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), false}, // Wednesday
		{"blackout day", time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), false},
		{"in the past", time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC), false},
		{"lunch gap on split day", time.Date(2026, 3, 3, 12, 30, 0, 0, time.UTC), false},
		{"second interval on split day", time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateBookingWindow(c, tc.start, now)
			if tc.ok && err != nil {
				t.Errorf("expected %v to be bookable, got %v", tc.start, err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("expected %v to be rejected", tc.start)
				}
				if !IsValidation(err) {
					t.Errorf("rejection should be a validation error, got %T", err)
				}
			}
		})
	}
}

func TestValidateBookingWindowGracePeriod(t *testing.T) {
	// A 90 minute inspection at 11:30 ends at 13:00, one hour past the 12:00
	// close. Allowed: the grace window applies to the end time only.
	c := testCenter()
	c.SlotDurationMinutes = 90
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	start := time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC)
	if err := validateBookingWindow(c, start, now); err != nil {
		t.Errorf("end within grace window should pass, got %v", err)
	}

	// At 12:01 the end exceeds close by 61 minutes.
	c.SlotDurationMinutes = 121
	start = time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	if err := validateBookingWindow(c, start, now); err == nil {
		t.Error("end past the grace window should be rejected")
	}
}

func TestValidateBookingWindowTimezone(t *testing.T) {
	c := testCenter()
	c.Timezone = "America/New_York"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 13:00 UTC on Monday is 08:00 in New York: inside working hours there
	// even though a UTC reading would place it outside nothing relevant.
	start := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	if err := validateBookingWindow(c, start, now); err != nil {
		t.Errorf("expected local-time evaluation to accept, got %v", err)
	}

	// 08:00 UTC is 03:00 in New York: the center is closed.
	start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if err := validateBookingWindow(c, start, now); err == nil {
		t.Error("expected local-time evaluation to reject")
	}
}

func TestValidateBookingWindowBadTimezone(t *testing.T) {
	c := testCenter()
	c.Timezone = "Mars/Olympus_Mons"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := validateBookingWindow(c, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), now)
	if err == nil || !IsValidation(err) {
		t.Errorf("expected validation error for unknown timezone, got %v", err)
	}
}
