package booking

import (
	"time"

	"github.com/carinspect/carinspect/internal/domain/center"
)

// GeneratedSlot is one tile of a working-hours interval.
type GeneratedSlot struct {
	Start time.Time
	End   time.Time
}

// GenerateSlots tiles each open interval of a day with fixed-length slots
// starting at the interval start. A slot is only emitted if its full duration
// fits before the interval end; a trailing remainder is dropped, by the
// schedule's definition rather than as an error. Identical inputs always
// yield the identical ordered sequence, which is what lets the ledger decide
// which persisted rows are stale.
func GenerateSlots(intervals []center.Interval, slotDuration time.Duration, date time.Time, loc *time.Location) []GeneratedSlot {
	if slotDuration <= 0 {
		return nil
	}

	year, month, day := date.In(loc).Date()
	durMin := int(slotDuration / time.Minute)

	// Slot boundaries are wall-clock times in the center's timezone;
	// time.Date normalizes the minute offset, which keeps the tiling correct
	// across DST transitions.
	var slots []GeneratedSlot
	for _, iv := range intervals {
		startMin, err := iv.StartMinute()
		if err != nil {
			continue
		}
		endMin, err := iv.EndMinute()
		if err != nil {
			continue
		}

		for m := startMin; m+durMin <= endMin; m += durMin {
			slots = append(slots, GeneratedSlot{
				Start: time.Date(year, month, day, 0, m, 0, 0, loc),
				End:   time.Date(year, month, day, 0, m+durMin, 0, 0, loc),
			})
		}
	}
	return slots
}
