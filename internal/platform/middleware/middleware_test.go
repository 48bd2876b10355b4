package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/")
	mw := RequestID()

	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rid, _ := c.Get("request_id").(string)
	if rid == "" {
		t.Fatal("expected request_id to be set in context")
	}
	if rec.Header().Get("X-Request-ID") != rid {
		t.Errorf("expected response header to carry request id %q", rid)
	}
}

func TestRequestID_HonorsInboundHeader(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/")
	c.Request().Header.Set("X-Request-ID", "upstream-id")

	err := RequestID()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Request-ID") != "upstream-id" {
		t.Errorf("expected inbound request id to be preserved, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestRecovery_ConvertsPanicToHTTPError(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/")
	logger := zerolog.New(os.Stderr)

	err := Recovery(logger)(func(c echo.Context) error { panic("boom") })(c)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", he.Code)
	}
}

func TestLogger_PassesThroughHandlerError(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/")
	logger := zerolog.New(os.Stderr)

	want := echo.NewHTTPError(http.StatusBadRequest, "bad")
	err := Logger(logger)(func(c echo.Context) error { return want })(c)
	if err != want {
		t.Errorf("expected handler error to propagate, got %v", err)
	}
}

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 2; i++ {
		c, _ := newTestContext(http.MethodGet, "/")
		if err := handler(c); err != nil {
			t.Fatalf("request %d should be allowed: %v", i, err)
		}
	}

	c, _ := newTestContext(http.MethodGet, "/")
	err := handler(c)
	if err == nil {
		t.Fatal("expected third request to be rate limited")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", err)
	}
	if c.Response().Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on rejected request")
	}
}

func TestRateLimit_IndependentClients(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	first, _ := newTestContext(http.MethodGet, "/")
	first.Request().Header.Set("X-Real-IP", "10.0.0.1")
	if err := handler(first); err != nil {
		t.Fatalf("first client should be allowed: %v", err)
	}

	second, _ := newTestContext(http.MethodGet, "/")
	second.Request().Header.Set("X-Real-IP", "10.0.0.2")
	if err := handler(second); err != nil {
		t.Errorf("second client should have its own bucket: %v", err)
	}
}
