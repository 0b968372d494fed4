package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/inkwellhq/inkwell-server/internal/http/response"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request under key fits inside the window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimiter wraps a Limiter as chi middleware. Backend failures fail open:
// losing the limiter must not take authentication down with it.
type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	scope   string
}

func NewRateLimiter(limiter Limiter, limit int, window time.Duration, scope string) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{limiter: limiter, limit: limit, window: window, scope: scope}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.scope + ":" + clientIPKey(r)
			allowed, retryAfter, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				slog.Warn("rate limiter backend unavailable, allowing request",
					"scope", rl.scope, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if retryAfter <= 0 {
					retryAfter = time.Second
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LocalLimiter is a per-process fixed-window counter.
type LocalLimiter struct {
	mu      sync.Mutex
	windows map[string]*localWindow
}

type localWindow struct {
	count   int
	resetAt time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{windows: make(map[string]*localWindow)}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &localWindow{count: 1, resetAt: now.Add(window)}
		if len(l.windows) > 10000 {
			for k, v := range l.windows {
				if now.After(v.resetAt) {
					delete(l.windows, k)
				}
			}
		}
		return true, 0, nil
	}
	if w.count >= limit {
		return false, time.Until(w.resetAt), nil
	}
	w.count++
	return true, 0, nil
}

// RedisLimiter is a fixed-window counter shared across replicas.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	bucket := time.Now().Unix() / int64(window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if incr.Val() > int64(limit) {
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
