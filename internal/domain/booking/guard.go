package booking

import (
	"time"

	"github.com/carinspect/carinspect/internal/domain/center"
)

// closingGraceWindow tolerates the last slot of a shift running slightly past
// nominal close: an appointment's end may exceed the interval end by up to
// this much. Business policy, applied to the end time only.
const closingGraceWindow = time.Hour

// validateBookingWindow checks a candidate [start, end) against the center's
// calendar: the start must lie in the future, the date outside the blackout
// set, and the time-of-day inside one of that weekday's open intervals
// (start inclusive, end exclusive) with the grace window applied to the end.
//
// All comparisons happen in the center's local time. The returned errors are
// ValidationError values; overlap/capacity conflicts are checked separately
// because they carry a different signal.
func validateBookingWindow(c *center.Center, start time.Time, now time.Time) error {
	if !start.After(now) {
		return validationf("appointment time must be in the future")
	}

	loc, err := c.Location()
	if err != nil {
		return validationf("center has an invalid timezone")
	}
	localStart := start.In(loc)

	intervals := c.WorkingHours.ForWeekday(localStart.Weekday())
	if len(intervals) == 0 {
		return validationf("center is closed on %s", localStart.Weekday())
	}

	if c.BlackoutDays.Contains(localStart.Format(center.DateLayout)) {
		return validationf("center is closed on %s", localStart.Format(center.DateLayout))
	}

	// Minutes since local midnight. The end offset is not wrapped at 24h so
	// the grace comparison stays valid when the appointment crosses midnight.
	startMin := localStart.Hour()*60 + localStart.Minute()
	endMin := startMin + c.SlotDurationMinutes
	graceMin := int(closingGraceWindow / time.Minute)

	for _, iv := range intervals {
		ivStart, err := iv.StartMinute()
		if err != nil {
			continue
		}
		ivEnd, err := iv.EndMinute()
		if err != nil {
			continue
		}
		if startMin >= ivStart && startMin < ivEnd && endMin <= ivEnd+graceMin {
			return nil
		}
	}
	return validationf("requested time is outside working hours")
}
