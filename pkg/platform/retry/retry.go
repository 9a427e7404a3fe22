// Package retry runs cross-module calls with a fixed attempt budget and a
// per-attempt timeout. Only transient failures are retried; domain rejections
// are returned to the caller on the first attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/sentinel"
)

// Policy bounds a guarded call.
type Policy struct {
	Attempts int
	Timeout  time.Duration
	Delay    time.Duration
}

// DefaultPolicy is three attempts of two seconds each.
var DefaultPolicy = Policy{Attempts: 3, Timeout: 2 * time.Second, Delay: 50 * time.Millisecond}

// IsRetryable reports whether err is a transient failure worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sentinel.ErrUnavailable) {
		return true
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Code == dErrors.CodeTimeout || de.Code == dErrors.CodeInternal
	}
	return false
}

// Do runs fn until it succeeds, fails permanently, or the budget is spent.
// Exhaustion returns an external_call_failure wrapping the last error.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "call aborted: context cancelled")
		}

		lastErr = runAttempt(ctx, policy.Timeout, fn)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt < attempts && policy.Delay > 0 {
			select {
			case <-ctx.Done():
				return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "call aborted: context cancelled")
			case <-time.After(policy.Delay):
			}
		}
	}

	return dErrors.Wrap(lastErr, dErrors.CodeExternalCallFailure,
		fmt.Sprintf("call failed after %d attempts", attempts))
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
