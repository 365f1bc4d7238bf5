package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conexus/pkg/requestcontext"
)

func doLimited(t *testing.T, limiter *RateLimiter, ip string, at time.Time) *httptest.ResponseRecorder {
	t.Helper()
	handler := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/registrations", nil)
	ctx := requestcontext.WithClientIP(req.Context(), ip)
	ctx = requestcontext.WithTime(ctx, at)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	now := time.Now()

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec = doLimited(t, limiter, "10.0.0.1", now)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiterDeniesOverLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Now()

	require.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.1", now).Code)
	require.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.1", now).Code)

	rec := doLimited(t, limiter, "10.0.0.1", now)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Now()

	require.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.1", now).Code)
	require.Equal(t, http.StatusTooManyRequests, doLimited(t, limiter, "10.0.0.1", now.Add(30*time.Second)).Code)
	assert.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.1", now.Add(61*time.Second)).Code)
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	require.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.1", base).Code)
	require.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.2", base).Code)
	require.Len(t, limiter.windows, 2)

	// Both earlier clients have aged out of the window by the time a third
	// client arrives, so their entries get dropped.
	require.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.3", base.Add(2*time.Minute)).Code)
	assert.Len(t, limiter.windows, 1)
	assert.Contains(t, limiter.windows, "10.0.0.3")
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Now()

	require.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.1", now).Code)
	assert.Equal(t, http.StatusOK, doLimited(t, limiter, "10.0.0.2", now).Code)
}
