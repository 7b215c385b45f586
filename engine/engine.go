package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/internal/util"
	"github.com/hupe1980/scenariomesh/logging"
	"github.com/hupe1980/scenariomesh/retry"
)

// Config defines tuning parameters for the Runner's operational behavior.
//
// Example:
//
//	cfg := engine.DefaultConfig
//	cfg.Retry.MaxAttempts = 5
//	cfg.MaxInvocations = 20
type Config struct {
	// Retry controls per-step retries of transient invocation failures.
	Retry retry.Policy

	// ValidateStepIDs rejects plans with duplicate step ids before any step
	// executes. When disabled, a later step silently overwrites the state key
	// written by an earlier step with the same id.
	ValidateStepIDs bool

	// MaxInvocations bounds the number of invoker calls (attempts, not steps)
	// per run. Zero means unlimited.
	MaxInvocations int
}

// DefaultConfig provides the default configuration values:
//   - Retry: 3 attempts, 500ms base wait doubling up to 5s
//   - ValidateStepIDs: true
//   - MaxInvocations: 0 (unlimited)
var DefaultConfig = Config{
	Retry:           retry.DefaultPolicy(),
	ValidateStepIDs: true,
}

// Options configures a Runner instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Observers are notified once per attempted step, in order.
	Observers []core.Observer

	// Logger provides structured logging. Defaults to NoOp logger.
	Logger logging.Logger

	// Now returns the current time. Defaults to time.Now; tests may override
	// it to control measured latency.
	Now func() time.Time
}

// Runner executes linear scenario plans.
//
// Each step's template is rendered against the accumulating state, the agent
// is invoked under the retry policy, and the output is written back into the
// state under the step id so later steps can reference it. A Runner holds no
// per-run mutable state; independent Run calls may execute concurrently as
// long as each uses its own State.
type Runner struct {
	invoker   core.AgentInvoker
	observers []core.Observer
	logger    logging.Logger
	config    Config
	now       func() time.Time
}

// New creates a Runner that executes steps through invoker.
//
// A nil invoker is accepted; runs then fail at their first step with
// core.ErrInvokerUnavailable.
//
// Examples:
//
//	// Minimal setup with all defaults
//	runner := engine.New(invoker)
//
//	// Custom retry policy and logger
//	runner := engine.New(invoker, func(o *engine.Options) {
//	    o.Config.Retry.MaxAttempts = 5
//	    o.Logger = logger
//	    o.Observers = append(o.Observers, observer.NewConsole(os.Stdout))
//	})
func New(invoker core.AgentInvoker, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	observers := make([]core.Observer, 0, len(opts.Observers))
	for _, o := range opts.Observers {
		if o != nil {
			observers = append(observers, o)
		}
	}

	return &Runner{
		invoker:   invoker,
		observers: observers,
		logger:    opts.Logger,
		config:    opts.Config,
		now:       opts.Now,
	}
}

// Run executes plan against state and returns one ExecutionResult per
// attempted step, in plan order.
//
// state is mutated in place: after each successful step, state[step.ID] holds
// the step output. If state is nil a fresh map is used and the accumulated
// keys are only visible through the results.
//
// On the first step that fails permanently (template error, missing invoker,
// non-retryable invoker error, exhausted retries, cancelled context) the
// failing step's result is recorded with Error set, observers are notified,
// and Run returns the partial results together with a *core.StepError.
//
// A plan with duplicate step ids is rejected with *core.DuplicateStepIDError
// before any step executes when Config.ValidateStepIDs is set.
func (r *Runner) Run(ctx context.Context, plan core.Plan, state core.State) ([]core.ExecutionResult, error) {
	if r.config.ValidateStepIDs {
		if err := plan.ValidateStepIDs(); err != nil {
			return nil, err
		}
	}
	if state == nil {
		state = core.State{}
	}

	runID := uuid.NewString()
	log := logging.With(r.logger, "plan_id", plan.ID, "run_id", runID)
	log.Info("scenario run started", "plan_name", plan.Name, "steps", len(plan.Steps))

	rs := &runState{
		runner:  r,
		log:     log,
		limiter: core.NewInvocationLimiter(r.config.MaxInvocations),
	}

	start := r.now()
	results := make([]core.ExecutionResult, 0, len(plan.Steps))

	for i, step := range plan.Steps {
		result, err := rs.executeStep(ctx, step, state)
		results = append(results, result)

		if err != nil {
			r.notify(ctx, log, result)
			log.Error("scenario run failed",
				"step_id", step.ID,
				"step_index", i,
				"error", err,
				"duration", r.now().Sub(start),
			)
			return results, &core.StepError{StepID: step.ID, Index: i, Err: err}
		}

		state[step.ID] = result.Output
		r.notify(ctx, log, result)
	}

	log.Info("scenario run completed",
		"steps", len(results),
		"invocations", rs.limiter.Count(),
		"duration", r.now().Sub(start),
	)

	return results, nil
}

// runState carries the per-run collaborators of a single Run call.
type runState struct {
	runner  *Runner
	log     logging.Logger
	limiter *core.InvocationLimiter
}

func (rs *runState) executeStep(ctx context.Context, step core.AgentStep, state core.State) (core.ExecutionResult, error) {
	r := rs.runner
	log := logging.With(rs.log, "step_id", step.ID, "agent", step.Agent)

	prompt, err := util.RenderTemplate(step.InputTemplate, state)
	if err != nil {
		return failedResult(step.ID, 0, err), err
	}

	start := r.now()

	policy := r.config.Retry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		log.Warn("agent invocation failed, retrying",
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	req := core.InvokeRequest{Agent: step.Agent, Prompt: prompt}

	output, attempts, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) (any, error) {
		req.Tool = step.Tool.Clone()
		return rs.invoke(ctx, req)
	})

	latency := latencyMS(r.now().Sub(start))
	if err != nil {
		return failedResult(step.ID, latency, err), err
	}

	log.Debug("step completed", "attempts", attempts, "latency_ms", latency)

	return core.ExecutionResult{
		StepID:    step.ID,
		Output:    output,
		LatencyMS: latency,
	}, nil
}

// invoke performs a single attempt and classifies its outcome.
func (rs *runState) invoke(ctx context.Context, req core.InvokeRequest) (any, error) {
	if rs.runner.invoker == nil {
		return nil, core.ErrInvokerUnavailable
	}
	if err := rs.limiter.Increment(); err != nil {
		return nil, err
	}

	resp, err := rs.runner.invoker.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("invoke agent %s: %w", req.Agent, err)
	}

	if !resp.OK() {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &core.InvocationError{Agent: req.Agent, Status: resp.Status, Message: msg}
	}

	return resp.Output, nil
}

func failedResult(stepID string, latency int64, err error) core.ExecutionResult {
	return core.ExecutionResult{
		StepID:    stepID,
		LatencyMS: latency,
		Error:     err.Error(),
	}
}

func latencyMS(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
