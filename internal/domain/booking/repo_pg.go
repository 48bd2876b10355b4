package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// =========== Slot Ledger Repository ===========

type slotLedgerRepoPG struct{ pool *pgxpool.Pool }

func NewSlotLedgerRepoPG(pool *pgxpool.Pool) SlotLedgerRepository {
	return &slotLedgerRepoPG{pool: pool}
}

const slotCols = `id, center_id, slot_date::text, start_time, end_time,
	capacity, taken_count, available, status, created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var sl Slot
	err := row.Scan(&sl.ID, &sl.CenterID, &sl.SlotDate, &sl.StartTime, &sl.EndTime,
		&sl.Capacity, &sl.TakenCount, &sl.Available, &sl.Status, &sl.CreatedAt, &sl.UpdatedAt)
	return &sl, err
}

func (r *slotLedgerRepoPG) UpsertGenerated(ctx context.Context, centerID uuid.UUID, date string, capacity int, slots []GeneratedSlot) error {
	// The unique constraint on (center_id, slot_date, start_time) makes this
	// safe to run concurrently for the same date: racing reconciles converge
	// on one row per slot.
	for _, gs := range slots {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO slots (id, center_id, slot_date, start_time, end_time, capacity, taken_count, available, status)
			VALUES ($1, $2, $3, $4, $5, $6, 0, TRUE, 'available')
			ON CONFLICT (center_id, slot_date, start_time) DO UPDATE SET
				capacity = EXCLUDED.capacity,
				end_time = EXCLUDED.end_time,
				available = slots.taken_count < EXCLUDED.capacity AND slots.status <> 'blocked',
				status = CASE
					WHEN slots.status = 'blocked' THEN 'blocked'
					WHEN slots.taken_count >= EXCLUDED.capacity THEN 'booked'
					ELSE 'available'
				END,
				updated_at = NOW()`,
			uuid.New(), centerID, date, gs.Start, gs.End, capacity)
		if err != nil {
			return fmt.Errorf("upsert slot %s: %w", gs.Start.Format(time.RFC3339), err)
		}
	}
	return nil
}

func (r *slotLedgerRepoPG) DeleteStale(ctx context.Context, centerID uuid.UUID, date string, keep []time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE center_id = $1 AND slot_date = $2 AND start_time <> ALL($3)`,
		centerID, date, keep)
	return err
}

func (r *slotLedgerRepoPG) ListForDate(ctx context.Context, centerID uuid.UUID, date string) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotCols+` FROM slots
		WHERE center_id = $1 AND slot_date = $2
		ORDER BY start_time`, centerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, sl)
	}
	return items, rows.Err()
}

// occupancyUpdate recomputes taken_count, available and status for every slot
// intersecting [start, end). Runs as one statement so concurrent callers
// cannot lose updates.
const occupancyUpdate = `
	UPDATE slots SET
		taken_count = GREATEST(taken_count + $4, 0),
		available = GREATEST(taken_count + $4, 0) < capacity AND status <> 'blocked',
		status = CASE
			WHEN status = 'blocked' THEN 'blocked'
			WHEN GREATEST(taken_count + $4, 0) >= capacity THEN 'booked'
			ELSE 'available'
		END,
		updated_at = NOW()
	WHERE center_id = $1 AND start_time < $3 AND end_time > $2`

func (r *slotLedgerRepoPG) AdjustOccupancy(ctx context.Context, centerID uuid.UUID, start, end time.Time, delta int) error {
	_, err := r.pool.Exec(ctx, occupancyUpdate, centerID, start, end, delta)
	return err
}

func (r *slotLedgerRepoPG) MaterializedDates(ctx context.Context, centerID uuid.UUID, from string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT slot_date::text FROM slots
		WHERE center_id = $1 AND slot_date >= $2
		ORDER BY slot_date`, centerID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *slotLedgerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.pool.QueryRow(ctx, `SELECT `+slotCols+` FROM slots WHERE id = $1`, id))
}

func (r *slotLedgerRepoPG) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	var query string
	if blocked {
		query = `UPDATE slots SET status = 'blocked', available = FALSE, updated_at = NOW() WHERE id = $1`
	} else {
		query = `UPDATE slots SET
			status = CASE WHEN taken_count >= capacity THEN 'booked' ELSE 'available' END,
			available = taken_count < capacity,
			updated_at = NOW()
		WHERE id = $1`
	}
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, reference_code, center_id, service_type_id,
	customer_name, customer_phone, vehicle_plate, notes,
	start_time, end_time, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string
	err := row.Scan(&a.ID, &a.ReferenceCode, &a.CenterID, &a.ServiceTypeID,
		&a.Customer.Name, &a.Customer.Phone, &a.Customer.VehiclePlate, &notes,
		&a.StartTime, &a.EndTime, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		a.Customer.Notes = *notes
	}
	return &a, nil
}

// lockAndCheckCapacity serializes concurrent bookings for the same interval
// by locking the intersecting ledger rows, then counts active appointments
// against the capacity. Returns ErrConflict when the interval is full or a
// slot is staff-blocked.
func lockAndCheckCapacity(ctx context.Context, tx pgx.Tx, centerID uuid.UUID, start, end time.Time, capacity int, excludeID uuid.UUID) error {
	rows, err := tx.Query(ctx, `
		SELECT status FROM slots
		WHERE center_id = $1 AND start_time < $3 AND end_time > $2
		FOR UPDATE`, centerID, start, end)
	if err != nil {
		return fmt.Errorf("lock slots: %w", err)
	}
	locked := 0
	for rows.Next() {
		var status SlotStatus
		if err := rows.Scan(&status); err != nil {
			rows.Close()
			return err
		}
		locked++
		if status == SlotBlocked {
			rows.Close()
			return ErrConflict
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// An interval's untiled remainder has no ledger row, so there may be
	// nothing above to lock. Fall back to the center row as the
	// serialization point so two racing bookers still queue behind one
	// another before counting.
	if locked == 0 {
		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM centers WHERE id = $1 FOR UPDATE`, centerID); err != nil {
			return fmt.Errorf("lock center: %w", err)
		}
	}

	var active int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE center_id = $1 AND id <> $4
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3 AND end_time > $2`,
		centerID, start, end, excludeID).Scan(&active)
	if err != nil {
		return fmt.Errorf("count overlapping appointments: %w", err)
	}
	if active >= capacity {
		return ErrConflict
	}
	return nil
}

func (r *appointmentRepoPG) Book(ctx context.Context, a *Appointment, capacity int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockAndCheckCapacity(ctx, tx, a.CenterID, a.StartTime, a.EndTime, capacity, uuid.Nil); err != nil {
		return err
	}

	a.ID = uuid.New()
	a.Status = StatusPending
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, reference_code, center_id, service_type_id,
			customer_name, customer_phone, vehicle_plate, notes,
			start_time, end_time, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.ReferenceCode, a.CenterID, a.ServiceTypeID,
		a.Customer.Name, a.Customer.Phone, a.Customer.VehiclePlate, a.Customer.Notes,
		a.StartTime, a.EndTime, a.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateReference
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, occupancyUpdate, a.CenterID, a.StartTime, a.EndTime, 1); err != nil {
		return fmt.Errorf("increment slot occupancy: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *appointmentRepoPG) Transition(ctx context.Context, id uuid.UUID, to AppointmentStatus, capacity int) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := scanAppointment(tx.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	delta := 0
	switch {
	case a.Status.Active() && !to.Active():
		delta = -1
	case !a.Status.Active() && to.Active():
		delta = 1
	}

	// Re-taking capacity (reactivation) must pass the same gate as a fresh
	// booking: the slot may have been re-booked since the cancellation.
	if delta > 0 {
		if err := lockAndCheckCapacity(ctx, tx, a.CenterID, a.StartTime, a.EndTime, capacity, a.ID); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, to); err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	if delta != 0 {
		if _, err := tx.Exec(ctx, occupancyUpdate, a.CenterID, a.StartTime, a.EndTime, delta); err != nil {
			return nil, fmt.Errorf("adjust slot occupancy: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	a.Status = to
	return a, nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *appointmentRepoPG) GetByReference(ctx context.Context, code string) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE reference_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *appointmentRepoPG) ReferenceExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE reference_code = $1)`, code).Scan(&exists)
	return exists, err
}

func (r *appointmentRepoPG) CountActiveOverlapping(ctx context.Context, centerID uuid.UUID, start, end time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE center_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3 AND end_time > $2`,
		centerID, start, end).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) List(ctx context.Context, filter AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointments WHERE 1=1`
	var args []interface{}
	idx := 1

	if filter.CenterID != nil {
		cond := fmt.Sprintf(` AND center_id = $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, *filter.CenterID)
		idx++
	}
	if filter.Status != "" {
		cond := fmt.Sprintf(` AND status = $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, filter.Status)
		idx++
	}
	if filter.Date != "" {
		// Day bucketing follows the owning center's wall clock, not the
		// session time zone.
		cond := fmt.Sprintf(` AND (start_time AT TIME ZONE (
			SELECT timezone FROM centers WHERE centers.id = appointments.center_id
		))::date = $%d::date`, idx)
		query += cond
		countQuery += cond
		args = append(args, filter.Date)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
