// Package backoff implements the retry policy shared by broker connects and
// outbound saga calls: exponential delay with full jitter, bounded by a cap
// and a maximum attempt count.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes one retry schedule. The zero value is not usable; use
// Default or construct explicitly.
type Policy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxAttempts  int
}

// Default matches the broker-connect schedule: 500ms doubling up to 1m,
// 15 attempts.
func Default() Policy {
	return Policy{
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Minute,
		MaxAttempts:  15,
	}
}

// Delay returns the sleep before attempt n (0-based), with full jitter.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)) + 1)
}

// Retry runs fn until it succeeds, the policy is exhausted, or ctx is done.
// The last error is returned when attempts run out.
func (p Policy) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return err
}
