package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkwellhq/inkwell-server/internal/security"
)

func testJWTManager() *security.JWTManager {
	return security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
}

func TestAuthMiddlewareMissingTokenReturnsUnauthorized(t *testing.T) {
	h := AuthMiddleware(testJWTManager())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rr.Code)
	}
}

func TestAuthMiddlewareValidBearerTokenAttachesClaims(t *testing.T) {
	jwtMgr := testJWTManager()
	token, err := jwtMgr.SignAccessToken(42, "alice@example.com", "user", 15*time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var gotEmail string
	h := AuthMiddleware(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("expected claims in context")
		}
		gotEmail = claims.Email
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rr.Code)
	}
	if gotEmail != "alice@example.com" {
		t.Fatalf("unexpected email claim: %q", gotEmail)
	}
}

func TestAuthMiddlewareAcceptsAccessCookie(t *testing.T) {
	jwtMgr := testJWTManager()
	token, err := jwtMgr.SignAccessToken(7, "bob@example.com", "user", 15*time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var gotEmail string
	h := AuthMiddleware(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("expected claims in context")
		}
		gotEmail = claims.Email
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessCookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid cookie token, got %d", rr.Code)
	}
	if gotEmail != "bob@example.com" {
		t.Fatalf("unexpected email claim: %q", gotEmail)
	}
}

func TestAuthMiddlewareRejectsTamperedToken(t *testing.T) {
	jwtMgr := testJWTManager()
	token, err := jwtMgr.SignAccessToken(42, "alice@example.com", "user", 15*time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	h := AuthMiddleware(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tampered)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered token, got %d", rr.Code)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	jwtMgr := testJWTManager()
	token, err := jwtMgr.SignAccessToken(42, "alice@example.com", "user", -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	h := AuthMiddleware(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rr.Code)
	}
}
