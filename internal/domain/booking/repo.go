package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SlotLedgerRepository persists the derived slot ledger.
type SlotLedgerRepository interface {
	// UpsertGenerated writes the generator output for one (center, date):
	// new rows start empty, existing rows get the current capacity without
	// their taken_count being reset.
	UpsertGenerated(ctx context.Context, centerID uuid.UUID, date string, capacity int, slots []GeneratedSlot) error
	// DeleteStale removes rows for the date whose start time is not in keep
	// (their working hours changed).
	DeleteStale(ctx context.Context, centerID uuid.UUID, date string, keep []time.Time) error
	ListForDate(ctx context.Context, centerID uuid.UUID, date string) ([]*Slot, error)
	// AdjustOccupancy shifts taken_count by delta (clamped at zero) on every
	// row intersecting [start, end), recomputing available and status. Must
	// be a single atomic statement, not read-modify-write.
	AdjustOccupancy(ctx context.Context, centerID uuid.UUID, start, end time.Time, delta int) error
	// MaterializedDates lists the distinct dates on or after from for which
	// ledger rows exist.
	MaterializedDates(ctx context.Context, centerID uuid.UUID, from string) ([]string, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
}

// AppointmentFilter narrows staff appointment listings.
type AppointmentFilter struct {
	CenterID *uuid.UUID
	Status   AppointmentStatus
	Date     string // YYYY-MM-DD in the center's local day bucket
}

// AppointmentRepository persists bookings. Book and Transition enforce the
// capacity invariant at the storage layer so concurrent requests cannot
// overshoot it.
type AppointmentRepository interface {
	// Book inserts a pending appointment and increments the ledger in one
	// transaction. Returns ErrConflict when the interval is at capacity or
	// blocked, ErrDuplicateReference when the reference code raced another
	// insert.
	Book(ctx context.Context, a *Appointment, capacity int) error
	// Transition updates the status, applying the implied ledger delta:
	// leaving an active status frees capacity, re-entering one re-takes it
	// after re-checking the capacity gate.
	Transition(ctx context.Context, id uuid.UUID, to AppointmentStatus, capacity int) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByReference(ctx context.Context, code string) (*Appointment, error)
	ReferenceExists(ctx context.Context, code string) (bool, error)
	CountActiveOverlapping(ctx context.Context, centerID uuid.UUID, start, end time.Time) (int, error)
	List(ctx context.Context, filter AppointmentFilter, limit, offset int) ([]*Appointment, int, error)
}
