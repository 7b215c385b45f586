package core

import "context"

// Observer receives one notification per attempted step, including the step
// that terminated a run. Notify runs synchronously on the run's goroutine;
// implementations that must not block the run are responsible for offloading.
// Returned errors (and panics) are logged by the engine and never abort a run.
type Observer interface {
	Notify(ctx context.Context, result ExecutionResult) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, result ExecutionResult) error

// Notify calls f(ctx, result).
func (f ObserverFunc) Notify(ctx context.Context, result ExecutionResult) error {
	return f(ctx, result)
}
