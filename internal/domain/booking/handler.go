package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carinspect/carinspect/internal/domain/center"
	"github.com/carinspect/carinspect/internal/platform/auth"
	"github.com/carinspect/carinspect/pkg/pagination"
)

type Handler struct {
	svc     *Service
	centers center.CenterRepository
}

func NewHandler(svc *Service, centers center.CenterRepository) *Handler {
	return &Handler{svc: svc, centers: centers}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public booking flow.
	api.GET("/availability", h.GetAvailability)
	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments/ref/:code", h.GetByReference)

	// Staff-only lifecycle and ledger management.
	staff := api.Group("", auth.RequireRole("staff"))
	staff.GET("/appointments", h.ListAppointments)
	staff.POST("/appointments/:id/confirm", h.ConfirmAppointment)
	staff.POST("/appointments/:id/cancel", h.CancelAppointment)
	staff.POST("/appointments/:id/reactivate", h.ReactivateAppointment)
	staff.POST("/centers/:id/reconcile", h.ReconcileCenter)
	staff.POST("/slots/:id/block", h.BlockSlot)
	staff.POST("/slots/:id/unblock", h.UnblockSlot)
}

// httpError maps the booking error taxonomy onto status codes: validation
// failures are 400, capacity conflicts 409 with a hint to refresh, missing
// records 404, everything else 500.
func httpError(err error) error {
	switch {
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, map[string]string{
			"error":  ErrConflict.Error(),
			"action": "refresh availability and choose another time",
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Public Handlers --

func (h *Handler) GetAvailability(c echo.Context) error {
	centerID, err := uuid.Parse(c.QueryParam("center_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center_id")
	}
	serviceTypeID, err := uuid.Parse(c.QueryParam("service_type_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service_type_id")
	}
	date := c.QueryParam("date")

	slots, err := h.svc.GetAvailability(c.Request().Context(), centerID, serviceTypeID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"center_id": centerID,
		"date":      date,
		"slots":     slots,
	})
}

type createAppointmentRequest struct {
	CenterID      uuid.UUID        `json:"center_id"`
	ServiceTypeID uuid.UUID        `json:"service_type_id"`
	Start         time.Time        `json:"start"`
	Customer      CustomerSnapshot `json:"customer"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.svc.CreateAppointment(c.Request().Context(), CreateAppointmentInput{
		CenterID:      req.CenterID,
		ServiceTypeID: req.ServiceTypeID,
		StartTime:     req.Start,
		Customer:      req.Customer,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetByReference(c echo.Context) error {
	a, err := h.svc.GetByReference(c.Request().Context(), c.Param("code"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// -- Staff Handlers --

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)

	var filter AppointmentFilter
	if raw := c.QueryParam("center_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid center_id")
		}
		filter.CenterID = &id
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := AppointmentStatus(raw)
		if status != StatusPending && status != StatusConfirmed && status != StatusCanceled {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filter.Status = status
	}
	if raw := c.QueryParam("date"); raw != "" {
		if _, err := time.Parse(center.DateLayout, raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		filter.Date = raw
	}

	items, total, err := h.svc.ListAppointments(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) transition(c echo.Context, fn func(echo.Context, uuid.UUID) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := fn(c, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ConfirmAppointment(c echo.Context) error {
	return h.transition(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.Confirm(c.Request().Context(), id)
	})
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	return h.transition(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.Cancel(c.Request().Context(), id)
	})
}

func (h *Handler) ReactivateAppointment(c echo.Context) error {
	return h.transition(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.Reactivate(c.Request().Context(), id)
	})
}

func (h *Handler) ReconcileCenter(c echo.Context) error {
	centerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center id")
	}
	ctr, err := h.centers.GetByID(c.Request().Context(), centerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "center not found")
	}

	ctx := c.Request().Context()
	if date := c.QueryParam("date"); date != "" {
		if err := h.svc.ReconcileSlots(ctx, ctr, date); err != nil {
			return httpError(err)
		}
	} else {
		if err := h.svc.ReconcileMaterializedDates(ctx, ctr); err != nil {
			return httpError(err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) BlockSlot(c echo.Context) error {
	return h.setBlocked(c, true)
}

func (h *Handler) UnblockSlot(c echo.Context) error {
	return h.setBlocked(c, false)
}

func (h *Handler) setBlocked(c echo.Context, blocked bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}
	var opErr error
	if blocked {
		opErr = h.svc.BlockSlot(c.Request().Context(), id)
	} else {
		opErr = h.svc.UnblockSlot(c.Request().Context(), id)
	}
	if opErr != nil {
		return httpError(opErr)
	}
	return c.NoContent(http.StatusNoContent)
}
