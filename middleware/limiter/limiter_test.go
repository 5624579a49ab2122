package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sweetpotato0/ai-autopilot/middleware"
)

func pass(c *middleware.Context) error { return nil }

func TestRateLimiterFailFast(t *testing.T) {
	l := NewRateLimiter(0.001, 2, false)
	ctx := middleware.NewContext(context.Background(), nil)

	assert.NoError(t, l.Execute(ctx, pass))
	assert.NoError(t, l.Execute(ctx, pass))
	assert.ErrorIs(t, l.Execute(ctx, pass), middleware.ErrRateLimitExceeded)
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	l := NewRateLimiter(0.001, 1, true)
	assert.NoError(t, l.Execute(middleware.NewContext(context.Background(), nil), pass))

	cctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Execute(middleware.NewContext(cctx, nil), pass)
	assert.ErrorIs(t, err, middleware.ErrRateLimitExceeded)
}

func TestRateLimiterName(t *testing.T) {
	assert.Equal(t, "RateLimiter", NewRateLimiter(1, 0, false).Name())
}
