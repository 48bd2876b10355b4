package center

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type stubCenterRepo struct {
	centers map[uuid.UUID]*Center
	busy    bool
	busyErr error
}

func newStubCenterRepo() *stubCenterRepo {
	return &stubCenterRepo{centers: map[uuid.UUID]*Center{}}
}

func (r *stubCenterRepo) Create(_ context.Context, c *Center) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.centers[c.ID] = c
	return nil
}

func (r *stubCenterRepo) GetByID(_ context.Context, id uuid.UUID) (*Center, error) {
	c, ok := r.centers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (r *stubCenterRepo) Update(_ context.Context, c *Center) error {
	if _, ok := r.centers[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.centers[c.ID] = c
	return nil
}

func (r *stubCenterRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	c, ok := r.centers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Active = false
	return nil
}

func (r *stubCenterRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Center, int, error) {
	var out []*Center
	for _, c := range r.centers {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *stubCenterRepo) AssignService(_ context.Context, _, _ uuid.UUID) error       { return nil }
func (r *stubCenterRepo) RemoveService(_ context.Context, _, _ uuid.UUID) error      { return nil }
func (r *stubCenterRepo) ListServices(_ context.Context, _ uuid.UUID) ([]*ServiceType, error) {
	return nil, nil
}
func (r *stubCenterRepo) OffersService(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return true, nil
}
func (r *stubCenterRepo) HasActiveAppointments(_ context.Context, _ uuid.UUID) (bool, error) {
	return r.busy, r.busyErr
}

type stubServiceTypeRepo struct {
	types map[uuid.UUID]*ServiceType
}

func (r *stubServiceTypeRepo) Create(_ context.Context, st *ServiceType) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	r.types[st.ID] = st
	return nil
}

func (r *stubServiceTypeRepo) GetByID(_ context.Context, id uuid.UUID) (*ServiceType, error) {
	st, ok := r.types[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return st, nil
}

func (r *stubServiceTypeRepo) Update(_ context.Context, st *ServiceType) error {
	r.types[st.ID] = st
	return nil
}

func (r *stubServiceTypeRepo) List(_ context.Context, limit, offset int) ([]*ServiceType, int, error) {
	var out []*ServiceType
	for _, st := range r.types {
		out = append(out, st)
	}
	return out, len(out), nil
}

type stubReconciler struct {
	calls int
}

func (r *stubReconciler) ReconcileMaterializedDates(_ context.Context, _ *Center) error {
	r.calls++
	return nil
}

func validTestCenter() *Center {
	return &Center{
		Name:                "Tempelhof Station",
		Address:             "Tempelhofer Damm 1",
		Timezone:            "Europe/Berlin",
		CapacityPerSlot:     2,
		SlotDurationMinutes: 20,
		WorkingHours:        WorkingHours{"mon": {{Start: "08:00", End: "16:00"}}},
		Active:              true,
	}
}

func newCenterService(repo *stubCenterRepo, rec SlotReconciler) *Service {
	return NewService(repo, &stubServiceTypeRepo{types: map[uuid.UUID]*ServiceType{}}, rec, zerolog.Nop())
}

func TestCreateCenterValidation(t *testing.T) {
	svc := newCenterService(newStubCenterRepo(), nil)
	ctx := context.Background()

	if err := svc.CreateCenter(ctx, validTestCenter()); err != nil {
		t.Fatalf("valid center rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Center)
		want   string
	}{
		{"missing name", func(c *Center) { c.Name = "" }, "name"},
		{"zero capacity", func(c *Center) { c.CapacityPerSlot = 0 }, "capacity"},
		{"negative duration", func(c *Center) { c.SlotDurationMinutes = -20 }, "duration"},
		{"bad timezone", func(c *Center) { c.Timezone = "Moon/Crater" }, "timezone"},
		{"bad working hours", func(c *Center) {
			c.WorkingHours = WorkingHours{"mon": {{Start: "12:00", End: "08:00"}}}
		}, "working_hours"},
		{"bad blackout day", func(c *Center) { c.BlackoutDays = BlackoutDays{"not-a-date"} }, "blackout_days"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validTestCenter()
			tc.mutate(c)
			err := svc.CreateCenter(ctx, c)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateCenterDefaultsTimezone(t *testing.T) {
	svc := newCenterService(newStubCenterRepo(), nil)
	c := validTestCenter()
	c.Timezone = ""
	if err := svc.CreateCenter(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	if c.Timezone != "UTC" {
		t.Errorf("timezone defaulted to %q, want UTC", c.Timezone)
	}
}

func TestUpdateCenterTriggersReconcile(t *testing.T) {
	repo := newStubCenterRepo()
	rec := &stubReconciler{}
	svc := newCenterService(repo, rec)
	ctx := context.Background()

	c := validTestCenter()
	if err := svc.CreateCenter(ctx, c); err != nil {
		t.Fatal(err)
	}

	// Renaming is not a schedule change.
	renamed := *c
	renamed.Name = "Tempelhof Süd Station"
	if err := svc.UpdateCenter(ctx, &renamed); err != nil {
		t.Fatal(err)
	}
	if rec.calls != 0 {
		t.Fatalf("rename triggered %d reconciles", rec.calls)
	}

	resized := renamed
	resized.SlotDurationMinutes = 30
	if err := svc.UpdateCenter(ctx, &resized); err != nil {
		t.Fatal(err)
	}
	if rec.calls != 1 {
		t.Fatalf("duration change triggered %d reconciles, want 1", rec.calls)
	}

	rehoused := resized
	rehoused.WorkingHours = WorkingHours{"tue": {{Start: "09:00", End: "17:00"}}}
	if err := svc.UpdateCenter(ctx, &rehoused); err != nil {
		t.Fatal(err)
	}
	if rec.calls != 2 {
		t.Fatalf("working hours change triggered %d reconciles, want 2", rec.calls)
	}
}

func TestDeleteCenterWithActiveAppointments(t *testing.T) {
	repo := newStubCenterRepo()
	svc := newCenterService(repo, nil)
	ctx := context.Background()

	c := validTestCenter()
	if err := svc.CreateCenter(ctx, c); err != nil {
		t.Fatal(err)
	}

	repo.busy = true
	if err := svc.DeleteCenter(ctx, c.ID); !errors.Is(err, ErrCenterHasAppointments) {
		t.Fatalf("expected ErrCenterHasAppointments, got %v", err)
	}
	if !c.Active {
		t.Error("refused deletion must not deactivate the center")
	}

	repo.busy = false
	if err := svc.DeleteCenter(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if c.Active {
		t.Error("center should be deactivated")
	}
}
