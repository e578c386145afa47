// Package backoff implements bounded retry with exponential backoff and
// jitter for calls to external services (embedding API, language model).
// Only transport-level failures should be retried; callers classify errors
// via the retryable predicate so validation and auth errors fail immediately.
package backoff

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	// DefaultAttempts is the total number of tries (first call + retries).
	DefaultAttempts = 3

	// DefaultBaseDelay is the delay before the first retry; it doubles on
	// each subsequent attempt.
	DefaultBaseDelay = 500 * time.Millisecond

	// maxDelay caps the computed backoff so a long retry chain never sleeps
	// for more than this per attempt.
	maxDelay = 30 * time.Second
)

// Delay returns the exponential backoff duration for the given attempt
// (1-based), with ±25% jitter. Attempt 0 or below yields zero.
func Delay(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30 // bound the shift
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	// rand.Int64N panics on a non-positive argument, so sub-2ns delays
	// carry no jitter.
	half := int64(d) / 2
	if half < 1 {
		return d
	}
	jitter := time.Duration(rand.Int64N(half)) - d/4
	return d + jitter
}

// Retry runs fn up to attempts times, sleeping Delay(base, n) between tries.
// It stops early when fn succeeds, when retryable reports the error as
// permanent, or when ctx is cancelled. The last error is returned.
func Retry(ctx context.Context, attempts int, base time.Duration, retryable func(error) bool, fn func() error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if base <= 0 {
		base = DefaultBaseDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Delay(base, attempt)):
		}
	}
	return err
}
