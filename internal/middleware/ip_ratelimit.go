package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/coneflip/overlay-server-go/internal/audit"
	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/service"
	"github.com/coneflip/overlay-server-go/internal/util"
)

// LimitChecker decides whether one more request fits under a limit.
type LimitChecker interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) service.RateLimitDecision
}

// IPRateLimitMiddleware limits requests per client address.
type IPRateLimitMiddleware struct {
	limiter LimitChecker
	limit   int
	window  time.Duration
	prefix  string
	now     func() time.Time
}

func NewIPRateLimitMiddleware(limiter LimitChecker, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := util.ResolveClientIP(r.Header, r.RemoteAddr)
		key := fmt.Sprintf("ip:%s:%s", m.prefix, ip)

		decision := m.limiter.CheckLimit(r.Context(), key, m.limit, m.window)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			secondsLeft := int(math.Ceil(decision.ResetAt.Sub(m.now()).Seconds()))
			if secondsLeft < 1 {
				secondsLeft = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secondsLeft))

			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Details: map[string]interface{}{"scope": m.prefix},
			})
			writeError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}
