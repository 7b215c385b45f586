// Package retry implements the exponential backoff policy used by the engine
// to re-attempt transient agent invocation failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is the number of attempts made before giving up.
	DefaultMaxAttempts = 3
	// DefaultBaseWait is the wait before the second attempt.
	DefaultBaseWait = 500 * time.Millisecond
	// DefaultMaxWait caps the wait between attempts.
	DefaultMaxWait = 5 * time.Second
)

// ErrExhausted is matched (errors.Is) by every ExhaustedError.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedError is returned when every attempt failed with a retryable error.
// Err is the last failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrExhausted) match any ExhaustedError.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Policy controls retry behavior. The zero value is usable and behaves like
// DefaultPolicy. A Policy holds no per-call state and may be shared.
type Policy struct {
	// MaxAttempts bounds the total number of attempts (values < 1 mean default).
	MaxAttempts int
	// BaseWait is the wait before the second attempt; it doubles per attempt.
	BaseWait time.Duration
	// MaxWait caps the computed wait.
	MaxWait time.Duration
	// ShouldRetry classifies an error as transient. Defaults to IsTemporary.
	ShouldRetry func(error) bool
	// Sleep waits for d or until ctx is done. Defaults to a timer based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry, if set, is called before each wait with the attempt that just
	// failed, the upcoming wait and the failure.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy returns the policy used by the engine unless configured
// otherwise: 3 attempts, 500ms base wait, 5s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseWait:    DefaultBaseWait,
		MaxWait:     DefaultMaxWait,
	}
}

// Attempts returns the effective attempt bound.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// Backoff returns the wait before the given attempt: zero for the first
// attempt, then min(MaxWait, BaseWait * 2^(attempt-2)).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	base, ceiling := p.BaseWait, p.MaxWait
	if base <= 0 {
		base = DefaultBaseWait
	}
	if ceiling <= 0 {
		ceiling = DefaultMaxWait
	}
	if base >= ceiling {
		return ceiling
	}
	wait := base
	for i := 2; i < attempt; i++ {
		if wait >= ceiling/2 {
			return ceiling
		}
		wait *= 2
	}
	return min(wait, ceiling)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt bound is reached. It returns the value, the number of attempts
// made, and the error. Non-retryable errors are returned unchanged; running
// out of attempts yields *ExhaustedError. Context cancellation during a wait
// is returned as-is and never retried.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}

	attempts := p.Attempts()
	for attempt := 1; ; attempt++ {
		v, err := op(ctx, attempt)
		if err == nil {
			return v, attempt, nil
		}
		if !p.shouldRetry(ctx, err) {
			return zero, attempt, err
		}
		if attempt >= attempts {
			return zero, attempt, &ExhaustedError{Attempts: attempt, Err: err}
		}

		wait := p.Backoff(attempt + 1)
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := p.sleep(ctx, wait); err != nil {
			return zero, attempt, err
		}
	}
}

func (p Policy) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.ShouldRetry == nil {
		return IsTemporary(err)
	}
	return p.ShouldRetry(err)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep blocks the calling goroutine for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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

// IsTemporary reports whether any error in err's chain implements
// Temporary() bool and returns true.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
