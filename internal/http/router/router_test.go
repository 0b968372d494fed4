package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkwellhq/inkwell-server/internal/security"
)

func TestHealthLive(t *testing.T) {
	h := New(Dependencies{
		JWTManager:       security.NewJWTManager("test", "test", "abcdefghijklmnopqrstuvwxyz123456"),
		APIRateLimitRPM:  100,
		AuthRateLimitRPM: 100,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthReadyReflectsDependencies(t *testing.T) {
	probeErr := error(nil)
	h := New(Dependencies{
		JWTManager:       security.NewJWTManager("test", "test", "abcdefghijklmnopqrstuvwxyz123456"),
		APIRateLimitRPM:  100,
		AuthRateLimitRPM: 100,
		Readiness:        func(context.Context) error { return probeErr },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", rec.Code)
	}

	probeErr = errors.New("db down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when a dependency is down, got %d", rec.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	h := New(Dependencies{
		JWTManager:       security.NewJWTManager("test", "test", "abcdefghijklmnopqrstuvwxyz123456"),
		APIRateLimitRPM:  100,
		AuthRateLimitRPM: 100,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	h := New(Dependencies{
		JWTManager:       security.NewJWTManager("test", "test", "abcdefghijklmnopqrstuvwxyz123456"),
		APIRateLimitRPM:  100,
		AuthRateLimitRPM: 100,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
}
