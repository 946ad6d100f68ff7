package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter to provide a simpler interface. The scheduler
// uses it as a cooperative yield: bursts up to the configured interval run
// back to back, sustained dispatch is paced so other goroutines get CPU.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second.
// b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// NewYieldLimiter builds a limiter that allows `interval` dispatches per
// `delay` window, which is the scheduler's yieldInterval/yieldDelay pair.
func NewYieldLimiter(interval int, delay time.Duration) *Limiter {
	if interval <= 0 {
		interval = 1
	}
	if delay <= 0 {
		delay = time.Millisecond
	}
	perSecond := float64(interval) / delay.Seconds()
	return NewLimiter(perSecond, interval)
}

// Allow reports whether an event with weight n may happen at time now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}
