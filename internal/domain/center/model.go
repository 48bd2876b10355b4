package center

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the day-bucket format used for blackout days and slot dates.
const DateLayout = "2006-01-02"

// Weekday codes used as keys in a center's working-hours map.
var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// WeekdayCode returns the working-hours map key for a weekday.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

// Interval is one open period within a working day, HH:MM inclusive start,
// exclusive end.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MinuteOfDay parses an HH:MM value into minutes since midnight.
func MinuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// StartMinute returns the interval start as minutes since midnight.
func (iv Interval) StartMinute() (int, error) { return MinuteOfDay(iv.Start) }

// EndMinute returns the interval end as minutes since midnight.
func (iv Interval) EndMinute() (int, error) { return MinuteOfDay(iv.End) }

// WorkingHours maps a weekday code ("mon".."sun") to the ordered open
// intervals for that day. A missing or empty entry means closed.
type WorkingHours map[string][]Interval

// Validate checks weekday codes, HH:MM syntax, interval ordering and
// non-overlap within each day.
func (wh WorkingHours) Validate() error {
	valid := make(map[string]bool, len(weekdayCodes))
	for _, code := range weekdayCodes {
		valid[code] = true
	}

	for day, intervals := range wh {
		if !valid[day] {
			return fmt.Errorf("unknown weekday code %q", day)
		}
		prevEnd := -1
		for _, iv := range intervals {
			start, err := iv.StartMinute()
			if err != nil {
				return fmt.Errorf("%s: %w", day, err)
			}
			end, err := iv.EndMinute()
			if err != nil {
				return fmt.Errorf("%s: %w", day, err)
			}
			if end <= start {
				return fmt.Errorf("%s: interval %s-%s ends before it starts", day, iv.Start, iv.End)
			}
			if start < prevEnd {
				return fmt.Errorf("%s: interval %s-%s overlaps the previous interval", day, iv.Start, iv.End)
			}
			prevEnd = end
		}
	}
	return nil
}

// ForWeekday returns the open intervals for a weekday sorted by start time.
func (wh WorkingHours) ForWeekday(d time.Weekday) []Interval {
	intervals := append([]Interval(nil), wh[WeekdayCode(d)]...)
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	return intervals
}

// BlackoutDays is a set of YYYY-MM-DD dates on which a center is closed
// regardless of its weekday schedule.
type BlackoutDays []string

// Validate checks each entry parses as a calendar date.
func (bd BlackoutDays) Validate() error {
	for _, d := range bd {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("invalid blackout day %q: expected YYYY-MM-DD", d)
		}
	}
	return nil
}

// Contains reports whether the given YYYY-MM-DD date is blacked out.
func (bd BlackoutDays) Contains(date string) bool {
	for _, d := range bd {
		if d == date {
			return true
		}
	}
	return false
}

// Center maps to the centers table: a physical service location offering
// inspections.
type Center struct {
	ID                  uuid.UUID    `db:"id" json:"id"`
	Name                string       `db:"name" json:"name"`
	Address             string       `db:"address" json:"address"`
	Latitude            *float64     `db:"latitude" json:"latitude,omitempty"`
	Longitude           *float64     `db:"longitude" json:"longitude,omitempty"`
	Timezone            string       `db:"timezone" json:"timezone"`
	CapacityPerSlot     int          `db:"capacity_per_slot" json:"capacity_per_slot"`
	SlotDurationMinutes int          `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	WorkingHours        WorkingHours `db:"working_hours" json:"working_hours"`
	BlackoutDays        BlackoutDays `db:"blackout_days" json:"blackout_days"`
	Active              bool         `db:"active" json:"active"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updated_at"`
}

// Location resolves the center's IANA timezone. All working-hour and blackout
// comparisons happen in this location, not UTC.
func (c *Center) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlotDuration returns the slot length as a duration.
func (c *Center) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}

// ServiceType maps to the service_types table.
type ServiceType struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
