package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayIsBoundedByCap(t *testing.T) {
	p := Policy{InitialDelay: 10 * time.Millisecond, Multiplier: 2, MaxDelay: 80 * time.Millisecond, MaxAttempts: 10}
	for attempt := 0; attempt < 10; attempt++ {
		d := p.Delay(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

func TestRetryStopsAfterMaxAttempts(t *testing.T) {
	p := Policy{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond, MaxAttempts: 3}
	calls := 0
	wantErr := errors.New("broker unreachable")
	err := p.Retry(context.Background(), func(context.Context) error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsNilOnSuccess(t *testing.T) {
	p := Default()
	calls := 0
	err := p.Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	p := Policy{InitialDelay: time.Hour, Multiplier: 2, MaxDelay: time.Hour, MaxAttempts: 5}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Retry(ctx, func(context.Context) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}
