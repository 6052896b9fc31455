// Package retry repeats calls that fail transiently, with capped
// exponential backoff and full jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"
)

// Predicate reports whether a failed attempt should be repeated.
type Predicate func(error) bool

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, the first included.
	Attempts int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	// AttemptTimeout bounds each try. Zero leaves only ctx in charge.
	AttemptTimeout time.Duration
}

// API returns the policy for cloud API calls: a few quick retries of
// throttled or dropped requests.
func API() Policy {
	return Policy{
		Attempts:       4,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// Boot returns the policy for reaching a freshly launched instance, whose
// services come up over a minute or more.
func Boot() Policy {
	return Policy{
		Attempts:  6,
		BaseDelay: 2 * time.Second,
		MaxDelay:  15 * time.Second,
	}
}

// ExhaustedError is returned when every attempt failed with a retryable
// error. It unwraps to the last failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, fails with an error retryable rejects, or
// the policy runs out of attempts. fn receives a context bounded by the
// policy's attempt timeout. A nil retryable means IsTransient.
func Do(ctx context.Context, p Policy, retryable Predicate, fn func(ctx context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if retryable == nil {
		retryable = IsTransient
	}

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = runAttempt(ctx, p.AttemptTimeout, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		if !sleep(ctx, backoff(p.BaseDelay, p.MaxDelay, attempt)) {
			return ctx.Err()
		}
	}

	if p.Attempts == 1 {
		return err
	}
	return &ExhaustedError{Attempts: p.Attempts, Err: err}
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// IsTransient reports whether err looks like a network hiccup or an
// attempt that ran out of time.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// backoff returns a random delay in [0, min(max, base*2^(attempt-1))].
func backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	ceiling := base << (attempt - 1)
	if ceiling <= 0 || (max > 0 && ceiling > max) {
		ceiling = max
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
