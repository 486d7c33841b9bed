package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/errors"
)

// FixedWindowLimiter is an in-process rate limiter with a fixed window
// per (user, action) pair. Exact limits are policy injected at
// construction; a limit of zero means the action is unlimited.
type FixedWindowLimiter struct {
	window time.Duration
	limits map[ports.RateLimitAction]int

	mu      sync.Mutex
	buckets map[string]*windowBucket
	now     func() time.Time
}

type windowBucket struct {
	windowStart time.Time
	count       int
}

// NewFixedWindowLimiter creates a limiter with the given window and
// per-action limits.
func NewFixedWindowLimiter(window time.Duration, limits map[ports.RateLimitAction]int) *FixedWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		window:  window,
		limits:  limits,
		buckets: make(map[string]*windowBucket),
		now:     time.Now,
	}
}

// CheckRateLimit records one attempt and fails when the window's limit
// is exceeded.
func (l *FixedWindowLimiter) CheckRateLimit(_ context.Context, userID string, action ports.RateLimitAction) error {
	limit, ok := l.limits[action]
	if !ok || limit <= 0 {
		return nil
	}

	key := userID + "|" + string(action)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil || now.Sub(b.windowStart) >= l.window {
		b = &windowBucket{windowStart: now}
		l.buckets[key] = b
	}
	if b.count >= limit {
		return errors.NewError(errors.CodeRateLimit,
			fmt.Sprintf("rate limit for %s exceeded (%d per %s)", action, limit, l.window),
			errors.ErrRateLimited)
	}
	b.count++
	return nil
}

var _ ports.RateLimiter = (*FixedWindowLimiter)(nil)
