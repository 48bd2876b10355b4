package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carinspect/carinspect/internal/domain/center"
	"github.com/carinspect/carinspect/internal/platform/cache"
)

const (
	refAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	refLength     = 6
	refMaxRetries = 5
)

// Service coordinates the slot ledger, the appointment book and the center
// calendar. It owns the booking flow end to end: window validation, capacity
// pre-check, reference code generation and the transactional insert.
type Service struct {
	ledger  SlotLedgerRepository
	appts   AppointmentRepository
	centers center.CenterRepository
	cache   *cache.AvailabilityCache
	logger  zerolog.Logger

	// now is swapped out in tests.
	now func() time.Time
}

func NewService(ledger SlotLedgerRepository, appts AppointmentRepository, centers center.CenterRepository, availCache *cache.AvailabilityCache, logger zerolog.Logger) *Service {
	return &Service{
		ledger:  ledger,
		appts:   appts,
		centers: centers,
		cache:   availCache,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) getCenter(ctx context.Context, id uuid.UUID) (*center.Center, error) {
	c, err := s.centers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !c.Active {
		return nil, ErrNotFound
	}
	return c, nil
}

// ReconcileSlots re-derives the ledger rows for one (center, date) from the
// current schedule configuration. Upserts the generated set, then removes
// persisted rows the generator no longer produces. Idempotent.
func (s *Service) ReconcileSlots(ctx context.Context, c *center.Center, date string) error {
	day, err := time.Parse(center.DateLayout, date)
	if err != nil {
		return validationf("invalid date %q: expected YYYY-MM-DD", date)
	}
	loc, err := c.Location()
	if err != nil {
		return validationf("center has an invalid timezone")
	}

	var generated []GeneratedSlot
	if !c.BlackoutDays.Contains(date) {
		localDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
		intervals := c.WorkingHours.ForWeekday(localDay.Weekday())
		generated = GenerateSlots(intervals, c.SlotDuration(), localDay, loc)
	}

	if len(generated) > 0 {
		if err := s.ledger.UpsertGenerated(ctx, c.ID, date, c.CapacityPerSlot, generated); err != nil {
			return err
		}
	}

	keep := make([]time.Time, len(generated))
	for i, gs := range generated {
		keep[i] = gs.Start
	}
	if err := s.ledger.DeleteStale(ctx, c.ID, date, keep); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, c.ID.String(), date)
	return nil
}

// ReconcileMaterializedDates re-runs reconciliation for every future date the
// ledger already holds rows for. Called by the center service after a
// schedule-shaping configuration change.
func (s *Service) ReconcileMaterializedDates(ctx context.Context, c *center.Center) error {
	loc, err := c.Location()
	if err != nil {
		return err
	}
	from := s.now().In(loc).Format(center.DateLayout)

	dates, err := s.ledger.MaterializedDates(ctx, c.ID, from)
	if err != nil {
		return err
	}
	for _, date := range dates {
		if err := s.ReconcileSlots(ctx, c, date); err != nil {
			return err
		}
	}
	return nil
}

// GetAvailability returns the slot grid for a (center, service, date). A
// closed or blacked-out day yields an empty list rather than an error. The
// ledger for the date is materialized lazily on first read.
func (s *Service) GetAvailability(ctx context.Context, centerID, serviceTypeID uuid.UUID, date string) ([]AvailabilitySlot, error) {
	if _, err := time.Parse(center.DateLayout, date); err != nil {
		return nil, validationf("invalid date %q: expected YYYY-MM-DD", date)
	}

	c, err := s.getCenter(ctx, centerID)
	if err != nil {
		return nil, err
	}
	offered, err := s.centers.OffersService(ctx, centerID, serviceTypeID)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, validationf("center does not offer the requested service")
	}

	var cached []AvailabilitySlot
	if s.cache.Get(ctx, centerID.String(), date, &cached) {
		return cached, nil
	}

	if err := s.ReconcileSlots(ctx, c, date); err != nil {
		return nil, err
	}
	rows, err := s.ledger.ListForDate(ctx, centerID, date)
	if err != nil {
		return nil, err
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	slots := make([]AvailabilitySlot, 0, len(rows))
	for _, sl := range rows {
		slots = append(slots, AvailabilitySlot{
			Start:      sl.StartTime,
			End:        sl.EndTime,
			TimeLabel:  sl.StartTime.In(loc).Format("15:04"),
			Available:  sl.Available,
			TakenCount: sl.TakenCount,
			Capacity:   sl.Capacity,
			Status:     deriveStatus(sl),
		})
	}

	s.cache.Set(ctx, centerID.String(), date, slots)
	return slots, nil
}

// CreateAppointmentInput is the booking request after transport decoding.
type CreateAppointmentInput struct {
	CenterID      uuid.UUID
	ServiceTypeID uuid.UUID
	StartTime     time.Time
	Customer      CustomerSnapshot
}

func (in *CreateAppointmentInput) validate() error {
	if in.CenterID == uuid.Nil {
		return validationf("center_id is required")
	}
	if in.ServiceTypeID == uuid.Nil {
		return validationf("service_type_id is required")
	}
	if in.StartTime.IsZero() {
		return validationf("start is required")
	}
	if strings.TrimSpace(in.Customer.Name) == "" {
		return validationf("customer name is required")
	}
	if strings.TrimSpace(in.Customer.Phone) == "" {
		return validationf("customer phone is required")
	}
	return nil
}

// CreateAppointment runs the full booking flow. Validation failures come back
// as ValidationError; a fully occupied or blocked interval comes back as
// ErrConflict so the client knows to refresh availability and pick again.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c, err := s.getCenter(ctx, in.CenterID)
	if err != nil {
		return nil, err
	}
	offered, err := s.centers.OffersService(ctx, in.CenterID, in.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, validationf("center does not offer the requested service")
	}

	if err := validateBookingWindow(c, in.StartTime, s.now()); err != nil {
		return nil, err
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	start := in.StartTime
	end := start.Add(c.SlotDuration())
	date := start.In(loc).Format(center.DateLayout)

	if err := s.ReconcileSlots(ctx, c, date); err != nil {
		return nil, err
	}

	// Cheap pre-check before opening a transaction. The authoritative gate
	// runs inside Book; this one just rejects the common case early.
	active, err := s.appts.CountActiveOverlapping(ctx, in.CenterID, start, end)
	if err != nil {
		return nil, err
	}
	if active >= c.CapacityPerSlot {
		return nil, ErrConflict
	}

	a := &Appointment{
		CenterID:      in.CenterID,
		ServiceTypeID: in.ServiceTypeID,
		Customer:      in.Customer,
		StartTime:     start,
		EndTime:       end,
	}

	for attempt := 0; attempt < refMaxRetries; attempt++ {
		code, err := generateReferenceCode()
		if err != nil {
			return nil, err
		}
		exists, err := s.appts.ReferenceExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		a.ReferenceCode = code
		err = s.appts.Book(ctx, a, c.CapacityPerSlot)
		if errors.Is(err, ErrDuplicateReference) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.cache.Invalidate(ctx, in.CenterID.String(), date)
		s.logger.Info().
			Str("reference_code", a.ReferenceCode).
			Str("center_id", in.CenterID.String()).
			Time("start", start).
			Msg("appointment booked")
		return a, nil
	}

	return nil, ErrReferenceExhausted
}

// generateReferenceCode draws a 6-character code from [A-Z0-9] using
// crypto/rand so codes are not guessable from booking order.
func generateReferenceCode() (string, error) {
	max := big.NewInt(int64(len(refAlphabet)))
	buf := make([]byte, refLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = refAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// GetByReference looks up an appointment by its public reference code.
// Lookup is case-insensitive; codes are stored uppercase.
func (s *Service) GetByReference(ctx context.Context, code string) (*Appointment, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != refLength {
		return nil, ErrNotFound
	}
	return s.appts.GetByReference(ctx, code)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, filter AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.List(ctx, filter, limit, offset)
}

// transition applies a lifecycle change after checking the transition is
// legal from the current status.
func (s *Service) transition(ctx context.Context, id uuid.UUID, allowed []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	legal := false
	for _, from := range allowed {
		if a.Status == from {
			legal = true
			break
		}
	}
	if !legal {
		return nil, validationf("cannot move a %s appointment to %s", a.Status, to)
	}

	c, err := s.centers.GetByID(ctx, a.CenterID)
	if err != nil {
		return nil, err
	}

	updated, err := s.appts.Transition(ctx, id, to, c.CapacityPerSlot)
	if err != nil {
		return nil, err
	}

	if loc, locErr := c.Location(); locErr == nil {
		s.cache.Invalidate(ctx, a.CenterID.String(), a.StartTime.In(loc).Format(center.DateLayout))
	}
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(a.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")
	return updated, nil
}

// Confirm moves a pending appointment to confirmed. Occupancy is unchanged;
// both statuses hold capacity.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, []AppointmentStatus{StatusPending}, StatusConfirmed)
}

// Cancel releases the appointment's capacity. Allowed from pending or
// confirmed; the row is kept for reporting and later reactivation.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, []AppointmentStatus{StatusPending, StatusConfirmed}, StatusCanceled)
}

// Reactivate re-confirms a canceled appointment. The capacity gate runs
// again: the slot may have filled up since the cancellation, in which case
// the caller gets ErrConflict and the appointment stays canceled.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, []AppointmentStatus{StatusCanceled}, StatusConfirmed)
}

// BlockSlot takes a ledger row out of circulation for staff reasons
// (maintenance, closures shorter than a blackout day). Existing appointments
// are untouched.
func (s *Service) BlockSlot(ctx context.Context, slotID uuid.UUID) error {
	return s.setSlotBlocked(ctx, slotID, true)
}

// UnblockSlot returns a blocked ledger row to circulation.
func (s *Service) UnblockSlot(ctx context.Context, slotID uuid.UUID) error {
	return s.setSlotBlocked(ctx, slotID, false)
}

func (s *Service) setSlotBlocked(ctx context.Context, slotID uuid.UUID, blocked bool) error {
	sl, err := s.ledger.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.ledger.SetBlocked(ctx, slotID, blocked); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, sl.CenterID.String(), sl.SlotDate)
	return nil
}
