package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sakif/medtrack/internal/apperror"
)

// sweepThreshold is the number of tracked keys above which expired windows
// are pruned on the next request.
const sweepThreshold = 10_000

// RateLimiter is a fixed-window request counter keyed by "scope:clientIP".
//
// FIXED WINDOW:
// The first request for a key opens a window of length `window` and sets
// the count to 1. Further requests in the same window increment the count;
// once it exceeds `limit` they are rejected until the window ends, at which
// point the next request opens a fresh window.
//
//	limit=3, window=1m
//	t=0s  ✓ (1)   t=10s ✓ (2)   t=20s ✓ (3)   t=30s ✗ retry in 30s
//	t=61s ✓ (1, new window)
//
// State is in-process and lost on restart. With several replicas each one
// counts separately.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithRateLimitClock overrides the clock. Tests use it to step past a window
// without sleeping.
func WithRateLimitClock(now func() time.Time) RateLimitOption {
	return func(l *RateLimiter) { l.now = now }
}

// NewRateLimiter allows `limit` requests per key per `window`.
func NewRateLimiter(limit int, window time.Duration, opts ...RateLimitOption) *RateLimiter {
	l := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key. When the request is over the limit it
// returns false and how long until the window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.windows) > sweepThreshold {
		l.sweep(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.windows[key] = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}

	if w.count >= l.limit {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	return true, 0
}

// Reset forgets every window.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*rateWindow)
}

// sweep drops expired windows. Caller holds l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// Middleware limits requests per client IP within scope. Different scopes
// count independently, so "auth" traffic does not eat into another budget.
//
// A rejected request gets 429 with a Retry-After header and the usual error
// body, and never reaches the handler.
func (l *RateLimiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := l.Allow(scope + ":" + ClientIP(r))
			if !allowed {
				writeRateLimited(w, apperror.RateLimited(retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": appErr.Message})
}

// ClientIP returns the caller's IP address.
//
// chi's RealIP middleware has already replaced RemoteAddr with the
// X-Forwarded-For / X-Real-IP value when present; otherwise RemoteAddr is
// "host:port" and the port is stripped.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
