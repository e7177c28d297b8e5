package server

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// identityRateLimiter holds one token bucket per publisher name.
type identityRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newIdentityRateLimiter(perSecond float64, burst int) *identityRateLimiter {
	return &identityRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *identityRateLimiter) allow(name string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[name] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// publishRateLimit throttles publish attempts per identity. Runs after
// requireAuth, so the identity is always present.
func (s *Server) publishRateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := identityFromContext(c)
		if !s.publishLimiter.allow(identity.Name) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "publish rate limit exceeded")
		}
		return next(c)
	}
}
