package center

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrCenterHasAppointments rejects deactivating a center that still has
// pending or confirmed bookings.
var ErrCenterHasAppointments = errors.New("center has active appointments; cancel or complete them first")

// SlotReconciler re-derives the slot ledger after a center's schedule
// configuration changes. Implemented by the booking service; declared here to
// avoid a package cycle.
type SlotReconciler interface {
	ReconcileMaterializedDates(ctx context.Context, c *Center) error
}

type Service struct {
	centers      CenterRepository
	serviceTypes ServiceTypeRepository
	reconciler   SlotReconciler
	logger       zerolog.Logger
}

func NewService(centers CenterRepository, serviceTypes ServiceTypeRepository, reconciler SlotReconciler, logger zerolog.Logger) *Service {
	return &Service{
		centers:      centers,
		serviceTypes: serviceTypes,
		reconciler:   reconciler,
		logger:       logger,
	}
}

func validateCenter(c *Center) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.CapacityPerSlot <= 0 {
		return fmt.Errorf("capacity_per_slot must be positive")
	}
	if c.SlotDurationMinutes <= 0 {
		return fmt.Errorf("slot_duration_minutes must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.WorkingHours.Validate(); err != nil {
		return fmt.Errorf("working_hours: %w", err)
	}
	if err := c.BlackoutDays.Validate(); err != nil {
		return fmt.Errorf("blackout_days: %w", err)
	}
	return nil
}

func (s *Service) CreateCenter(ctx context.Context, c *Center) error {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if err := validateCenter(c); err != nil {
		return err
	}
	return s.centers.Create(ctx, c)
}

func (s *Service) GetCenter(ctx context.Context, id uuid.UUID) (*Center, error) {
	return s.centers.GetByID(ctx, id)
}

func (s *Service) ListCenters(ctx context.Context, activeOnly bool, limit, offset int) ([]*Center, int, error) {
	return s.centers.List(ctx, activeOnly, limit, offset)
}

// UpdateCenter persists the new configuration and, when the schedule shape
// changed, reconciles already-materialized slot ledger dates so stale slots
// are removed and new ones inserted.
func (s *Service) UpdateCenter(ctx context.Context, c *Center) error {
	if err := validateCenter(c); err != nil {
		return err
	}

	existing, err := s.centers.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	scheduleChanged := existing.SlotDurationMinutes != c.SlotDurationMinutes ||
		existing.CapacityPerSlot != c.CapacityPerSlot ||
		existing.Timezone != c.Timezone ||
		!workingHoursEqual(existing.WorkingHours, c.WorkingHours)

	if err := s.centers.Update(ctx, c); err != nil {
		return err
	}

	if scheduleChanged && s.reconciler != nil {
		if err := s.reconciler.ReconcileMaterializedDates(ctx, c); err != nil {
			// The ledger is rebuilt lazily on the next availability query,
			// so a failed eager pass is not fatal.
			s.logger.Warn().Err(err).Str("center_id", c.ID.String()).
				Msg("slot reconciliation after configuration change failed")
		}
	}
	return nil
}

// DeleteCenter soft-deactivates: a center with active bookings is never
// removed, and even without bookings rows are retained for reporting.
func (s *Service) DeleteCenter(ctx context.Context, id uuid.UUID) error {
	if _, err := s.centers.GetByID(ctx, id); err != nil {
		return err
	}
	busy, err := s.centers.HasActiveAppointments(ctx, id)
	if err != nil {
		return err
	}
	if busy {
		return ErrCenterHasAppointments
	}
	return s.centers.Deactivate(ctx, id)
}

func (s *Service) AssignService(ctx context.Context, centerID, serviceTypeID uuid.UUID) error {
	if _, err := s.centers.GetByID(ctx, centerID); err != nil {
		return err
	}
	if _, err := s.serviceTypes.GetByID(ctx, serviceTypeID); err != nil {
		return err
	}
	return s.centers.AssignService(ctx, centerID, serviceTypeID)
}

func (s *Service) RemoveService(ctx context.Context, centerID, serviceTypeID uuid.UUID) error {
	return s.centers.RemoveService(ctx, centerID, serviceTypeID)
}

func (s *Service) ListCenterServices(ctx context.Context, centerID uuid.UUID) ([]*ServiceType, error) {
	return s.centers.ListServices(ctx, centerID)
}

func (s *Service) CreateServiceType(ctx context.Context, st *ServiceType) error {
	if st.Name == "" {
		return fmt.Errorf("name is required")
	}
	st.Active = true
	return s.serviceTypes.Create(ctx, st)
}

func (s *Service) GetServiceType(ctx context.Context, id uuid.UUID) (*ServiceType, error) {
	return s.serviceTypes.GetByID(ctx, id)
}

func (s *Service) UpdateServiceType(ctx context.Context, st *ServiceType) error {
	if st.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.serviceTypes.Update(ctx, st)
}

func (s *Service) ListServiceTypes(ctx context.Context, limit, offset int) ([]*ServiceType, int, error) {
	return s.serviceTypes.List(ctx, limit, offset)
}

func workingHoursEqual(a, b WorkingHours) bool {
	if len(a) != len(b) {
		return false
	}
	for day, ivs := range a {
		other, ok := b[day]
		if !ok || len(other) != len(ivs) {
			return false
		}
		for i := range ivs {
			if ivs[i] != other[i] {
				return false
			}
		}
	}
	return true
}
