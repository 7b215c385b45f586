// Package scenariomesh provides a high-level façade over the scenario engine.
// Most applications interact with this package by:
//  1. Creating a Mesh via New() with an AgentInvoker (echo by default)
//  2. Running a core.Plan (Run) or a declarative scenario.Definition
//     (RunScenario)
//  3. Optionally streaming step results as they complete (Stream)
//
// The façade delegates execution to engine.Runner and keeps setup concise.
// All defaults are safe for local development and testing.
package scenariomesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/engine"
	"github.com/hupe1980/scenariomesh/invoker"
	"github.com/hupe1980/scenariomesh/logging"
	"github.com/hupe1980/scenariomesh/scenario"
)

// ErrMissingInput is returned by RunScenario when the initial state lacks a
// declared scenario input.
var ErrMissingInput = errors.New("missing scenario input")

// Options configures the Mesh instance.
type Options struct {
	// Engine configuration (retry policy, step id validation, invocation cap).
	EngineConfig engine.Config

	// Invoker executes agent steps. Defaults to invoker.Echo().
	Invoker core.AgentInvoker

	// Observers are notified of every attempted step of every run.
	Observers []core.Observer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the runner and its collaborators.
type Mesh struct {
	opts   Options
	runner *engine.Runner
}

// New creates a new Mesh instance with optional overrides.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Invoker:      invoker.Echo(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Mesh{opts: opts, runner: opts.newRunner(nil)}
}

func (o Options) newRunner(extra core.Observer) *engine.Runner {
	return engine.New(o.Invoker, func(eo *engine.Options) {
		eo.Config = o.EngineConfig
		eo.Observers = append(append([]core.Observer(nil), o.Observers...), extra)
		eo.Logger = o.Logger
	})
}

// Run executes plan against state. See engine.Runner.Run.
func (m *Mesh) Run(ctx context.Context, plan core.Plan, state core.State) ([]core.ExecutionResult, error) {
	return m.runner.Run(ctx, plan, state)
}

// RunScenario validates def, checks that state supplies every declared input
// and runs the resulting plan.
func (m *Mesh) RunScenario(ctx context.Context, def scenario.Definition, state core.State) ([]core.ExecutionResult, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if missing := def.MissingInputs(state); len(missing) > 0 {
		return nil, fmt.Errorf("scenario %q: %w: %v", def.ID, ErrMissingInput, missing)
	}
	return m.Run(ctx, def.Plan(), state)
}

// Stream starts plan in a background goroutine and delivers each step result
// as soon as observers have been notified. The results channel is closed
// when the run ends; the error channel then receives the terminal error (nil
// on success) and is closed.
func (m *Mesh) Stream(ctx context.Context, plan core.Plan, state core.State) (<-chan core.ExecutionResult, <-chan error) {
	results := make(chan core.ExecutionResult, len(plan.Steps))
	errCh := make(chan error, 1)

	// results holds one slot per step and each step is notified at most once,
	// so the send never blocks.
	forward := core.ObserverFunc(func(_ context.Context, r core.ExecutionResult) error {
		results <- r
		return nil
	})
	runner := m.opts.newRunner(forward)

	go func() {
		defer close(errCh)
		_, err := runner.Run(ctx, plan, state)
		close(results)
		errCh <- err
	}()

	return results, errCh
}

// RunSync drains Stream and returns the collected results, mirroring Run for
// callers that consume results incrementally elsewhere.
func (m *Mesh) RunSync(ctx context.Context, plan core.Plan, state core.State) ([]core.ExecutionResult, error) {
	resultsCh, errCh := m.Stream(ctx, plan, state)

	var results []core.ExecutionResult
	for r := range resultsCh {
		results = append(results, r)
	}
	return results, <-errCh
}
