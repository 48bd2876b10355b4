package center

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Center Repository ===========

type centerRepoPG struct{ pool *pgxpool.Pool }

func NewCenterRepoPG(pool *pgxpool.Pool) CenterRepository { return &centerRepoPG{pool: pool} }

const centerCols = `id, name, address, latitude, longitude, timezone,
	capacity_per_slot, slot_duration_minutes, working_hours, blackout_days,
	active, created_at, updated_at`

func scanCenter(row pgx.Row) (*Center, error) {
	var c Center
	var hours, blackouts []byte
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Latitude, &c.Longitude, &c.Timezone,
		&c.CapacityPerSlot, &c.SlotDurationMinutes, &hours, &blackouts,
		&c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hours, &c.WorkingHours); err != nil {
		return nil, fmt.Errorf("decode working hours: %w", err)
	}
	if err := json.Unmarshal(blackouts, &c.BlackoutDays); err != nil {
		return nil, fmt.Errorf("decode blackout days: %w", err)
	}
	return &c, nil
}

func encodeSchedule(c *Center) (hours, blackouts []byte, err error) {
	if c.WorkingHours == nil {
		c.WorkingHours = WorkingHours{}
	}
	if c.BlackoutDays == nil {
		c.BlackoutDays = BlackoutDays{}
	}
	hours, err = json.Marshal(c.WorkingHours)
	if err != nil {
		return nil, nil, fmt.Errorf("encode working hours: %w", err)
	}
	blackouts, err = json.Marshal(c.BlackoutDays)
	if err != nil {
		return nil, nil, fmt.Errorf("encode blackout days: %w", err)
	}
	return hours, blackouts, nil
}

func (r *centerRepoPG) Create(ctx context.Context, c *Center) error {
	c.ID = uuid.New()
	hours, blackouts, err := encodeSchedule(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO centers (id, name, address, latitude, longitude, timezone,
			capacity_per_slot, slot_duration_minutes, working_hours, blackout_days, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.Name, c.Address, c.Latitude, c.Longitude, c.Timezone,
		c.CapacityPerSlot, c.SlotDurationMinutes, hours, blackouts, c.Active)
	return err
}

func (r *centerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Center, error) {
	return scanCenter(r.pool.QueryRow(ctx, `SELECT `+centerCols+` FROM centers WHERE id = $1`, id))
}

func (r *centerRepoPG) Update(ctx context.Context, c *Center) error {
	hours, blackouts, err := encodeSchedule(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE centers SET name=$2, address=$3, latitude=$4, longitude=$5, timezone=$6,
			capacity_per_slot=$7, slot_duration_minutes=$8, working_hours=$9,
			blackout_days=$10, active=$11, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Address, c.Latitude, c.Longitude, c.Timezone,
		c.CapacityPerSlot, c.SlotDurationMinutes, hours, blackouts, c.Active)
	return err
}

func (r *centerRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE centers SET active=FALSE, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *centerRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Center, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM centers`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+centerCols+` FROM centers`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Center
	for rows.Next() {
		c, err := scanCenter(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *centerRepoPG) AssignService(ctx context.Context, centerID, serviceTypeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO center_services (center_id, service_type_id)
		VALUES ($1, $2)
		ON CONFLICT (center_id, service_type_id) DO NOTHING`,
		centerID, serviceTypeID)
	return err
}

func (r *centerRepoPG) RemoveService(ctx context.Context, centerID, serviceTypeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM center_services WHERE center_id = $1 AND service_type_id = $2`,
		centerID, serviceTypeID)
	return err
}

func (r *centerRepoPG) ListServices(ctx context.Context, centerID uuid.UUID) ([]*ServiceType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT st.id, st.name, st.description, st.active, st.created_at, st.updated_at
		FROM service_types st
		JOIN center_services cs ON cs.service_type_id = st.id
		WHERE cs.center_id = $1
		ORDER BY st.name`, centerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ServiceType
	for rows.Next() {
		var st ServiceType
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.Active, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &st)
	}
	return items, rows.Err()
}

func (r *centerRepoPG) OffersService(ctx context.Context, centerID, serviceTypeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM center_services
			WHERE center_id = $1 AND service_type_id = $2
		)`, centerID, serviceTypeID).Scan(&exists)
	return exists, err
}

func (r *centerRepoPG) HasActiveAppointments(ctx context.Context, centerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE center_id = $1 AND status IN ('pending', 'confirmed')
		)`, centerID).Scan(&exists)
	return exists, err
}

// =========== Service Type Repository ===========

type serviceTypeRepoPG struct{ pool *pgxpool.Pool }

func NewServiceTypeRepoPG(pool *pgxpool.Pool) ServiceTypeRepository {
	return &serviceTypeRepoPG{pool: pool}
}

const serviceTypeCols = `id, name, description, active, created_at, updated_at`

func scanServiceType(row pgx.Row) (*ServiceType, error) {
	var st ServiceType
	err := row.Scan(&st.ID, &st.Name, &st.Description, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	return &st, err
}

func (r *serviceTypeRepoPG) Create(ctx context.Context, st *ServiceType) error {
	st.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO service_types (id, name, description, active)
		VALUES ($1, $2, $3, $4)`,
		st.ID, st.Name, st.Description, st.Active)
	return err
}

func (r *serviceTypeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceType, error) {
	return scanServiceType(r.pool.QueryRow(ctx,
		`SELECT `+serviceTypeCols+` FROM service_types WHERE id = $1`, id))
}

func (r *serviceTypeRepoPG) Update(ctx context.Context, st *ServiceType) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE service_types SET name=$2, description=$3, active=$4, updated_at=NOW()
		WHERE id = $1`,
		st.ID, st.Name, st.Description, st.Active)
	return err
}

func (r *serviceTypeRepoPG) List(ctx context.Context, limit, offset int) ([]*ServiceType, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM service_types`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+serviceTypeCols+` FROM service_types ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ServiceType
	for rows.Next() {
		st, err := scanServiceType(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, st)
	}
	return items, total, rows.Err()
}
