package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelay_ZeroForNonPositiveAttempt(t *testing.T) {
	t.Parallel()

	if d := Delay(time.Second, 0); d != 0 {
		t.Errorf("attempt 0: want 0, got %v", d)
	}
	if d := Delay(time.Second, -1); d != 0 {
		t.Errorf("attempt -1: want 0, got %v", d)
	}
}

func TestDelay_GrowsAndStaysBounded(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 10; attempt++ {
		d := Delay(base, attempt)
		// ±25% jitter around base*2^(attempt-1), capped at 30s.
		expected := base * time.Duration(1<<uint(attempt-1))
		if expected > 30*time.Second {
			expected = 30 * time.Second
		}
		lo := expected - expected/4
		hi := expected + expected/4
		if d < lo || d > hi {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, d, lo, hi)
		}
	}
}

func TestDelay_TinyBaseDoesNotPanic(t *testing.T) {
	t.Parallel()

	for _, base := range []time.Duration{1, 2, 3} {
		d := Delay(base, 1)
		if d < 0 {
			t.Errorf("base %v: negative delay %v", base, d)
		}
	}
}

func TestRetry_TinyBaseDoesNotPanic(t *testing.T) {
	t.Parallel()

	transient := errors.New("transient")
	calls := 0
	err := Retry(context.Background(), 2, time.Nanosecond, func(error) bool { return true }, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("want transient error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("want 2 calls, got %d", calls)
	}
}

func TestDelay_HugeAttemptDoesNotOverflow(t *testing.T) {
	t.Parallel()

	d := Delay(time.Second, 63)
	if d <= 0 || d > 40*time.Second {
		t.Errorf("attempt 63: unreasonable delay %v", d)
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, nil, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("want 1 call, got %d", calls)
	}
}

func TestRetry_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("want 3 calls, got %d", calls)
	}
}

func TestRetry_PermanentErrorStopsImmediately(t *testing.T) {
	t.Parallel()

	permanent := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(error) bool { return false }, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("want permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("want 1 call, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	transient := errors.New("timeout")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(error) bool { return true }, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("want transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("want 3 calls, got %d", calls)
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Minute, func(error) bool { return true }, func() error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
