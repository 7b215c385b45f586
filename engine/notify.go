package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/logging"
)

// notify delivers result to every observer in registration order. Observer
// errors and panics are logged and never affect the run.
func (r *Runner) notify(ctx context.Context, log logging.Logger, result core.ExecutionResult) {
	for _, o := range r.observers {
		if err := safeNotify(ctx, o, result); err != nil {
			log.Warn("observer notification failed", "step_id", result.StepID, "error", err)
		}
	}
}

func safeNotify(ctx context.Context, o core.Observer, result core.ExecutionResult) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("observer panic: %v", rec)
		}
	}()
	return o.Notify(ctx, result)
}
