// Package retry provides bounded retry with exponential backoff for
// transient submission failures. Deterministic failures are surfaced on the
// first attempt; the classifier decides which is which.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the pause after the first failure.
	InitialDelay time.Duration
	// MaxDelay caps the growing backoff.
	MaxDelay time.Duration
	// Multiplier grows the delay after each failure.
	Multiplier float64
}

// DefaultPolicy suits blockchain submission retries: three attempts with a
// short growing backoff.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
}

// Transient reports whether an error is worth retrying.
type Transient func(error) bool

// Do runs fn until it succeeds, fails deterministically, exhausts the
// policy, or ctx ends. The attempt index (from zero) is passed to fn.
func Do[T any](ctx context.Context, policy Policy, transient Transient, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry aborted: %w", err)
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !transient(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * policy.Multiplier)
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("retries exhausted: %w", lastErr)
}
