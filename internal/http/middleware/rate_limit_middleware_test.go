package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalLimiterEnforcesWindow(t *testing.T) {
	l := NewLocalLimiter()

	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(context.Background(), "k", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	allowed, retryAfter, err := l.Allow(context.Background(), "k", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if allowed {
		t.Fatal("expected fourth request to be denied")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retryAfter)
	}

	allowed, _, err = l.Allow(context.Background(), "other", 3, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("expected separate key to be unaffected: allowed=%v err=%v", allowed, err)
	}
}

func TestRedisLimiterEnforcesWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, "test")
	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(context.Background(), "k", 2, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	allowed, _, err := l.Allow(context.Background(), "k", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if allowed {
		t.Fatal("expected third request to be denied")
	}
}

func TestRateLimiterMiddlewareFailsOpenOnBackendOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	rl := NewRateLimiter(NewRedisLimiter(client, "test"), 1, time.Minute, "auth")
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200 during backend outage, got %d", rr.Code)
	}
}

func TestRateLimiterMiddlewareDeniesOverLimit(t *testing.T) {
	rl := NewRateLimiter(NewLocalLimiter(), 1, time.Minute, "auth")
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:5555"

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on limited response")
	}
}
