package core

import (
	"fmt"
	"sync"
)

// InvocationLimiter enforces a maximum number of invoker calls per run.
type InvocationLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewInvocationLimiter creates a new limiter with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewInvocationLimiter(max int) *InvocationLimiter {
	return &InvocationLimiter{max: max}
}

// Increment records one invoker call. Once the count exceeds the maximum it
// returns an error wrapping ErrInvocationLimit; the engine treats that as a
// permanent step failure.
func (l *InvocationLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("%w: max %d calls per run", ErrInvocationLimit, l.max)
	}

	return nil
}

// Count returns the current number of calls made.
func (l *InvocationLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many calls are left before hitting the limit.
func (l *InvocationLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1 // unlimited
	}

	return max(l.max-l.count, 0)
}
