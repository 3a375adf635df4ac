// Package retry runs an operation a bounded number of times with a
// pluggable backoff schedule and clock.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy returns the wait before attempt n+1, given attempt n (1-based) just failed
type Policy func(attempt int) time.Duration

// Linear waits base*attempt: base, 2*base, 3*base...
func Linear(base time.Duration) Policy {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Clock abstracts waiting so schedules can be tested without real sleeps
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock sleeps on the wall clock and wakes early on cancellation
var RealClock Clock = realClock{}

type Options struct {
	MaxAttempts int
	Policy      Policy
	Clock       Clock
	// OnFailure is called after every failed attempt, before any wait
	OnFailure func(attempt int, err error)
}

// Do calls fn until it succeeds, MaxAttempts is reached, or ctx is done.
// It returns the result, the number of attempts made and the final error.
func Do[T any](ctx context.Context, opts Options, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Clock == nil {
		opts.Clock = RealClock
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt - 1, err
		}

		out, err := fn(ctx, attempt)
		if err == nil {
			return out, attempt, nil
		}
		lastErr = err
		if opts.OnFailure != nil {
			opts.OnFailure(attempt, err)
		}

		// Don't sleep after the last attempt
		if attempt < opts.MaxAttempts && opts.Policy != nil {
			if err := opts.Clock.Sleep(ctx, opts.Policy(attempt)); err != nil {
				return zero, attempt, err
			}
		}
	}

	return zero, opts.MaxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, opts.MaxAttempts, lastErr)
}
