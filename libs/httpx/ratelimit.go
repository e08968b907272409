package httpx

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter is an in-process fixed-window limiter keyed by client address.
// Suitable for single-instance deployments; use RedisRateLimiter when more
// than one replica serves traffic.
type RateLimiter struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, windowSize time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  windowSize,
		windows: map[string]*window{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientKey(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if len(rl.windows) > 10000 {
		for k, v := range rl.windows {
			if now.After(v.resetAt) {
				delete(rl.windows, k)
			}
		}
	}

	v := rl.windows[key]
	if v == nil || now.After(v.resetAt) {
		rl.windows[key] = &window{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if v.count >= rl.limit {
		return false
	}
	v.count++
	return true
}
