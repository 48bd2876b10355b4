package center

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carinspect/carinspect/internal/platform/auth"
)

func newCenterTestServer(t *testing.T) (*echo.Echo, *stubCenterRepo, *Service) {
	t.Helper()
	repo := newStubCenterRepo()
	svc := newCenterService(repo, nil)

	e := echo.New()
	api := e.Group("/api/v1")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, []string{"staff"})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e, repo, svc
}

func doDelete(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDeleteCenterStatusMapping(t *testing.T) {
	e, repo, svc := newCenterTestServer(t)
	ctx := context.Background()

	c := validTestCenter()
	if err := svc.CreateCenter(ctx, c); err != nil {
		t.Fatal(err)
	}

	rec := doDelete(e, "/api/v1/centers/"+uuid.New().String())
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown center: got %d, want 404", rec.Code)
	}

	repo.busy = true
	rec = doDelete(e, "/api/v1/centers/"+c.ID.String())
	if rec.Code != http.StatusConflict {
		t.Errorf("center with active appointments: got %d, want 409", rec.Code)
	}
	if !c.Active {
		t.Error("refused deletion must not deactivate the center")
	}

	repo.busy = false
	repo.busyErr = errors.New("connection reset")
	rec = doDelete(e, "/api/v1/centers/"+c.ID.String())
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("storage failure: got %d, want 500", rec.Code)
	}

	repo.busyErr = nil
	rec = doDelete(e, "/api/v1/centers/"+c.ID.String())
	if rec.Code != http.StatusNoContent {
		t.Errorf("idle center: got %d, want 204", rec.Code)
	}
	if c.Active {
		t.Error("center should be deactivated")
	}
}
