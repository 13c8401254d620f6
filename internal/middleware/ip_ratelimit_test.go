package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/coneflip/overlay-server-go/internal/service"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) service.RateLimitDecision {
	args := m.Called(key, limit, window)
	return args.Get(0).(service.RateLimitDecision)
}

func TestIPRateLimitMiddleware(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("allows under limit and keys by client ip", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("CheckLimit", "ip:admin:5.5.5.5", 30, time.Minute).
			Return(service.RateLimitDecision{Allowed: true, Remaining: 29})

		mw := NewIPRateLimitMiddleware(limiter, 30, time.Minute, "admin")
		req := httptest.NewRequest(http.MethodGet, "/admin/api/status", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", "5.5.5.5, 10.0.0.1")
		rec := httptest.NewRecorder()

		mw.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "29", rec.Header().Get("X-RateLimit-Remaining"))
		limiter.AssertExpectations(t)
	})

	t.Run("rejects over limit with retry-after", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("CheckLimit", mock.Anything, 30, time.Minute).
			Return(service.RateLimitDecision{Allowed: false, ResetAt: now.Add(2500 * time.Millisecond)})

		mw := NewIPRateLimitMiddleware(limiter, 30, time.Minute, "admin")
		mw.now = func() time.Time { return now }

		req := httptest.NewRequest(http.MethodGet, "/admin/api/status", nil)
		rec := httptest.NewRecorder()
		mw.Handler(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("retry-after is at least one second", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("CheckLimit", mock.Anything, 30, time.Minute).
			Return(service.RateLimitDecision{Allowed: false, ResetAt: now.Add(-time.Second)})

		mw := NewIPRateLimitMiddleware(limiter, 30, time.Minute, "admin")
		mw.now = func() time.Time { return now }

		rec := httptest.NewRecorder()
		mw.Handler(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})
}
