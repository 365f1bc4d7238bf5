package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"conexus/pkg/requestcontext"
)

// RateLimiter applies a per-client-IP sliding window to the public endpoints.
// Registration submission and attendance scanning face unauthenticated
// traffic, so each IP gets at most limit requests per window.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*slidingWindow
	lastSweep time.Time

	limit  int
	window time.Duration
}

type slidingWindow struct {
	timestamps []time.Time
}

// NewRateLimiter builds a limiter allowing limit requests per window per IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
	}
}

// allow records a request for key and reports whether it is within the
// limit, how many requests remain, and when the oldest entry expires.
func (l *RateLimiter) allow(key string, now time.Time) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	l.sweep(cutoff, now)

	w, ok := l.windows[key]
	if !ok {
		w = &slidingWindow{}
		l.windows[key] = w
	}

	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept

	if len(w.timestamps) >= l.limit {
		return false, 0, w.timestamps[0].Add(l.window)
	}

	w.timestamps = append(w.timestamps, now)
	resetAt := w.timestamps[0].Add(l.window)
	return true, l.limit - len(w.timestamps), resetAt
}

// sweep drops windows whose every timestamp has aged out, so one-off clients
// do not accumulate map entries forever. Runs at most once per window length.
// Caller holds l.mu.
func (l *RateLimiter) sweep(cutoff, now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, w := range l.windows {
		n := len(w.timestamps)
		if n == 0 || !w.timestamps[n-1].After(cutoff) {
			delete(l.windows, key)
		}
	}
}

// Limit is the middleware form of the limiter. Denied requests get a 429 with
// Retry-After and the standard X-RateLimit headers.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := requestcontext.ClientIP(r.Context())
		now := requestcontext.Now(r.Context())

		allowed, remaining, resetAt := l.allow(ip, now)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","error_description":"too many requests, slow down"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
