package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transientErr struct{ msg string }

func (e transientErr) Error() string   { return e.msg }
func (e transientErr) Temporary() bool { return true }

type sleepRecorder struct{ waits []time.Duration }

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func TestPolicy_Backoff(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, time.Duration(0), p.Backoff(1))
	assert.Equal(t, 500*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 1*time.Second, p.Backoff(3))
	assert.Equal(t, 2*time.Second, p.Backoff(4))
	assert.Equal(t, 4*time.Second, p.Backoff(5))
	assert.Equal(t, 5*time.Second, p.Backoff(6))
	assert.Equal(t, 5*time.Second, p.Backoff(100))
}

func TestPolicy_BackoffNonDecreasing(t *testing.T) {
	p := Policy{BaseWait: 300 * time.Millisecond, MaxWait: 7 * time.Second}

	prev := time.Duration(0)
	for attempt := 2; attempt < 80; attempt++ {
		wait := p.Backoff(attempt)
		assert.GreaterOrEqual(t, wait, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, wait, p.MaxWait, "attempt %d", attempt)
		prev = wait
	}
}

func TestPolicy_ZeroValueUsesDefaults(t *testing.T) {
	var p Policy

	assert.Equal(t, DefaultMaxAttempts, p.Attempts())
	assert.Equal(t, DefaultBaseWait, p.Backoff(2))
	assert.Equal(t, DefaultMaxWait, p.Backoff(10))
}

func TestDo_FailTwiceThenSucceed(t *testing.T) {
	rec := &sleepRecorder{}
	p := DefaultPolicy()
	p.Sleep = rec.sleep

	calls := 0
	v, attempts, err := Do(context.Background(), p, func(_ context.Context, attempt int) (string, error) {
		calls++
		assert.Equal(t, calls, attempt)
		if calls < 3 {
			return "", transientErr{fmt.Sprintf("attempt %d failed", calls)}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, rec.waits)
}

func TestDo_ExhaustedReturnsLastError(t *testing.T) {
	rec := &sleepRecorder{}
	p := DefaultPolicy()
	p.Sleep = rec.sleep

	calls := 0
	_, attempts, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		calls++
		return 0, transientErr{fmt.Sprintf("attempt %d failed", calls)}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.EqualError(t, exhausted.Err, "attempt 3 failed")
	assert.Len(t, rec.waits, 2)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	rec := &sleepRecorder{}
	p := DefaultPolicy()
	p.Sleep = rec.sleep

	permanent := errors.New("misconfigured")
	calls := 0
	_, attempts, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		calls++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.waits)
}

func TestDo_CustomClassifier(t *testing.T) {
	p := Policy{
		MaxAttempts: 2,
		ShouldRetry: func(error) bool { return true },
		Sleep:       (&sleepRecorder{}).sleep,
	}

	calls := 0
	_, _, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		calls++
		return 0, errors.New("plain")
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, calls)
}

func TestDo_OnRetryHook(t *testing.T) {
	type retryCall struct {
		attempt int
		wait    time.Duration
	}
	var hooks []retryCall

	p := DefaultPolicy()
	p.Sleep = (&sleepRecorder{}).sleep
	p.OnRetry = func(attempt int, wait time.Duration, _ error) {
		hooks = append(hooks, retryCall{attempt, wait})
	}

	_, _, _ = Do(context.Background(), p, func(context.Context, int) (int, error) {
		return 0, transientErr{"boom"}
	})

	assert.Equal(t, []retryCall{{1, 500 * time.Millisecond}, {2, time.Second}}, hooks)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := DefaultPolicy()
	p.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	_, _, err := Do(ctx, p, func(context.Context, int) (int, error) {
		calls++
		return 0, transientErr{"boom"}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContextNeverCallsOp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, attempts, err := Do(ctx, DefaultPolicy(), func(context.Context, int) (int, error) {
		t.Fatal("op must not be called")
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
