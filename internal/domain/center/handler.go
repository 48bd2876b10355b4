package center

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/carinspect/carinspect/internal/platform/auth"
	"github.com/carinspect/carinspect/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public read endpoints used by the booking flow.
	api.GET("/centers", h.ListCenters)
	api.GET("/centers/:id", h.GetCenter)
	api.GET("/centers/:id/services", h.ListCenterServices)
	api.GET("/service-types", h.ListServiceTypes)

	// Staff-only configuration endpoints.
	staff := api.Group("", auth.RequireRole("staff"))
	staff.POST("/centers", h.CreateCenter)
	staff.PUT("/centers/:id", h.UpdateCenter)
	staff.DELETE("/centers/:id", h.DeleteCenter)
	staff.POST("/centers/:id/services/:serviceTypeId", h.AssignService)
	staff.DELETE("/centers/:id/services/:serviceTypeId", h.RemoveService)
	staff.POST("/service-types", h.CreateServiceType)
	staff.GET("/service-types/:id", h.GetServiceType)
	staff.PUT("/service-types/:id", h.UpdateServiceType)
}

// -- Center Handlers --

func (h *Handler) CreateCenter(c echo.Context) error {
	var ctr Center
	if err := c.Bind(&ctr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctr.Active = true
	if err := h.svc.CreateCenter(c.Request().Context(), &ctr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ctr)
}

func (h *Handler) GetCenter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctr, err := h.svc.GetCenter(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "center not found")
	}
	return c.JSON(http.StatusOK, ctr)
}

func (h *Handler) ListCenters(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("include_inactive") != "true"
	items, total, err := h.svc.ListCenters(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateCenter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var ctr Center
	if err := c.Bind(&ctr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctr.ID = id
	if err := h.svc.UpdateCenter(c.Request().Context(), &ctr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "center not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ctr)
}

func (h *Handler) DeleteCenter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCenter(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "center not found")
		case errors.Is(err, ErrCenterHasAppointments):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "delete center")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Catalog Handlers --

func (h *Handler) AssignService(c echo.Context) error {
	centerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center id")
	}
	serviceTypeID, err := uuid.Parse(c.Param("serviceTypeId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service type id")
	}
	if err := h.svc.AssignService(c.Request().Context(), centerID, serviceTypeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "center or service type not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RemoveService(c echo.Context) error {
	centerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center id")
	}
	serviceTypeID, err := uuid.Parse(c.Param("serviceTypeId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service type id")
	}
	if err := h.svc.RemoveService(c.Request().Context(), centerID, serviceTypeID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCenterServices(c echo.Context) error {
	centerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center id")
	}
	items, err := h.svc.ListCenterServices(c.Request().Context(), centerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// -- Service Type Handlers --

func (h *Handler) CreateServiceType(c echo.Context) error {
	var st ServiceType
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateServiceType(c.Request().Context(), &st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetServiceType(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	st, err := h.svc.GetServiceType(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "service type not found")
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateServiceType(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var st ServiceType
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st.ID = id
	if err := h.svc.UpdateServiceType(c.Request().Context(), &st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ListServiceTypes(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListServiceTypes(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
