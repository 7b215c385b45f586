// Package engine implements the scenario execution engine for scenariomesh.
//
// The Runner executes a core.Plan strictly sequentially. Every step may depend
// on the output of any earlier step, so steps are never reordered or run in
// parallel.
//
// # Step Lifecycle
//
// For each step, in plan order:
//
//  1. The step's InputTemplate is rendered against the current core.State.
//     A reference to a key that does not exist yet is a permanent
//     core.TemplateError; it is not retried.
//  2. The configured core.AgentInvoker is called under the retry.Policy.
//     Responses with a non-"ok" status are transient and retried with
//     exponential backoff. Errors returned by the invoker abort immediately
//     unless they report themselves as temporary.
//  3. On success the output is appended to the results, written to
//     state[step.ID], and every observer is notified.
//  4. On failure the result carries the error message, observers are
//     notified, and the run stops with a *core.StepError.
//
// # Concurrency Model
//
// A single Run call executes on the calling goroutine. Only the invoker call
// and the backoff wait block. A Runner holds no per-run mutable state, so
// independent runs, each with its own State, may execute concurrently.
//
// # Observers
//
// Observers are called synchronously after each attempted step. An observer
// that returns an error or panics is logged and otherwise ignored; observation
// never changes the outcome of a run.
//
// # Example
//
//	runner := engine.New(invoker.Echo(), func(o *engine.Options) {
//	    o.Observers = []core.Observer{observer.NewConsole(os.Stdout)}
//	})
//
//	state := core.State{"user": "X"}
//	results, err := runner.Run(ctx, plan, state)
//	if err != nil {
//	    var stepErr *core.StepError
//	    if errors.As(err, &stepErr) {
//	        log.Printf("step %s failed", stepErr.StepID)
//	    }
//	}
package engine
