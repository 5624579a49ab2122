package limiter

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sweetpotato0/ai-autopilot/middleware"
)

// RateLimiter middleware bounds how often the reasoning service is called.
type RateLimiter struct {
	limiter *rate.Limiter
	wait    bool
}

// NewRateLimiter creates a token-bucket limiter allowing perSecond calls with
// the given burst. When wait is true calls block until a token is available
// (or the call context ends); otherwise they fail fast.
func NewRateLimiter(perSecond float64, burst int, wait bool) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst), wait: wait}
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute checks rate limit
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.wait {
		if err := m.limiter.Wait(ctx.Context()); err != nil {
			return fmt.Errorf("%w: %v", middleware.ErrRateLimitExceeded, err)
		}
		return next(ctx)
	}
	if !m.limiter.Allow() {
		return middleware.ErrRateLimitExceeded
	}
	return next(ctx)
}
