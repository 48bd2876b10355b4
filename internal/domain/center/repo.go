package center

import (
	"context"

	"github.com/google/uuid"
)

type CenterRepository interface {
	Create(ctx context.Context, c *Center) error
	GetByID(ctx context.Context, id uuid.UUID) (*Center, error)
	Update(ctx context.Context, c *Center) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Center, int, error)
	// Catalog of offered services.
	AssignService(ctx context.Context, centerID, serviceTypeID uuid.UUID) error
	RemoveService(ctx context.Context, centerID, serviceTypeID uuid.UUID) error
	ListServices(ctx context.Context, centerID uuid.UUID) ([]*ServiceType, error)
	OffersService(ctx context.Context, centerID, serviceTypeID uuid.UUID) (bool, error)
	// HasActiveAppointments reports whether any pending or confirmed
	// appointment references the center.
	HasActiveAppointments(ctx context.Context, centerID uuid.UUID) (bool, error)
}

type ServiceTypeRepository interface {
	Create(ctx context.Context, st *ServiceType) error
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceType, error)
	Update(ctx context.Context, st *ServiceType) error
	List(ctx context.Context, limit, offset int) ([]*ServiceType, int, error)
}
