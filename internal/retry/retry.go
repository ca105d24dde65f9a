// Package retry retries transient failures with exponential backoff and
// jitter. It is used where the service talks to something that may not be up
// yet, such as Postgres while a compose stack is still starting.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// PermanentError wraps an error that should not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do will not retry it.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Notify is called before each backoff sleep with the attempt number
// (1-based), the error that caused it and the sleep duration.
type Notify func(attempt int, err error, wait time.Duration)

// Do calls fn up to maxAttempts times. It stops early on success, on a
// *PermanentError (returning the wrapped error) and on ctx cancellation.
// baseDelay doubles after every attempt with +-25% jitter.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	return DoNotify(ctx, maxAttempts, baseDelay, fn, nil)
}

// DoNotify is Do with a hook for logging retries. notify may be nil.
func DoNotify(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error, notify Notify) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var err error
	delay := baseDelay
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if attempt >= maxAttempts {
			return err
		}

		wait := jitter(delay)
		if notify != nil {
			notify(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

// jitter spreads d over [0.75d, 1.25d].
func jitter(d time.Duration) time.Duration {
	spread := int64(d / 4)
	if spread <= 0 {
		return d
	}
	return d - time.Duration(spread) + time.Duration(rand.Int64N(2*spread+1))
}
