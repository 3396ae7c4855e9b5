package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a failed round trip to a remote backend such as Redis.
// A cached search result that cannot be fetched is treated as a miss by
// the pipeline, so callers rarely need to inspect it.
var ErrNetwork = errors.New("cache backend unreachable")

// RetryableError marks a backend failure that may succeed on a second
// attempt, typically a dropped connection rather than a bad key or an
// oversized value.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped by Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// backoff is an exponential retry schedule.
type backoff struct {
	attempts int
	first    time.Duration
}

// remoteBackoff paces retries of remote cache round trips. A search that
// waits on the cache longer than a few hundred milliseconds is better off
// recomputing.
var remoteBackoff = backoff{attempts: 3, first: 200 * time.Millisecond}

func (b backoff) run(ctx context.Context, fn func() error) error {
	delay := b.first
	var err error
	for i := 0; i < b.attempts; i++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == b.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}

// RetryWithBackoff runs fn on the remote cache schedule: up to three
// attempts, doubling the delay after each. Errors not marked Retryable
// are returned at once.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return remoteBackoff.run(ctx, fn)
}
