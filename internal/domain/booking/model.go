package booking

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state of a booking.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCanceled  AppointmentStatus = "canceled"
)

// Active statuses count toward slot capacity.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// SlotStatus is the stored state of a ledger row.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotBlocked   SlotStatus = "blocked"
)

// Slot maps to the slots table: the per-(center, date, start) occupancy
// ledger. The ledger is a rebuildable read cache; the appointments table is
// the source of truth for capacity.
type Slot struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CenterID   uuid.UUID  `db:"center_id" json:"center_id"`
	SlotDate   string     `db:"slot_date" json:"slot_date"`
	StartTime  time.Time  `db:"start_time" json:"start_time"`
	EndTime    time.Time  `db:"end_time" json:"end_time"`
	Capacity   int        `db:"capacity" json:"capacity"`
	TakenCount int        `db:"taken_count" json:"taken_count"`
	Available  bool       `db:"available" json:"available"`
	Status     SlotStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// CustomerSnapshot is captured at booking time and never linked to a mutable
// customer record.
type CustomerSnapshot struct {
	Name         string `db:"customer_name" json:"name"`
	Phone        string `db:"customer_phone" json:"phone"`
	VehiclePlate string `db:"vehicle_plate" json:"vehicle_plate"`
	Notes        string `db:"notes" json:"notes,omitempty"`
}

// Appointment maps to the appointments table. Rows are never physically
// deleted; canceled appointments are retained for reporting.
type Appointment struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	ReferenceCode string            `db:"reference_code" json:"reference_code"`
	CenterID      uuid.UUID         `db:"center_id" json:"center_id"`
	ServiceTypeID uuid.UUID         `db:"service_type_id" json:"service_type_id"`
	Customer      CustomerSnapshot  `json:"customer"`
	StartTime     time.Time         `db:"start_time" json:"start_time"`
	EndTime       time.Time         `db:"end_time" json:"end_time"`
	Status        AppointmentStatus `db:"status" json:"status"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// Overlaps reports strict interval overlap with [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}

// AvailabilitySlot is the presentation shape returned by the availability
// query: the stored two-state available flag plus a derived three-way status.
type AvailabilitySlot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TimeLabel  string    `json:"time_label"`
	Available  bool      `json:"available"`
	TakenCount int       `json:"taken_count"`
	Capacity   int       `json:"capacity"`
	Status     string    `json:"status"`
}

// deriveStatus folds a ledger row into the presentation status: free
// (untouched), pending (partially taken), full (at capacity). Staff-blocked
// slots are reported as blocked.
func deriveStatus(sl *Slot) string {
	switch {
	case sl.Status == SlotBlocked:
		return "blocked"
	case sl.TakenCount <= 0:
		return "free"
	case sl.TakenCount < sl.Capacity:
		return "pending"
	default:
		return "full"
	}
}
