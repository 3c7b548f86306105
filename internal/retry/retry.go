// Package retry implements the retry-with-backoff policy shared by the
// execution gateway and the confirmation monitor.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes a bounded retry loop with exponential backoff.
// Retryable decides whether an error is transient; a nil predicate retries
// everything.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts
// MaxAttempts, or ctx is cancelled. The delay doubles after each failed
// attempt: base, 2*base, 4*base, capped at MaxDelay when set.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
