package core

import "maps"

// ToolCall is an optional tool attachment on a step. It is treated as
// immutable once constructed; use Clone before handing Args to code that may
// modify it.
type ToolCall struct {
	Name string         `json:"name" yaml:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// Clone returns a copy of the tool call with its own Args map.
func (t *ToolCall) Clone() *ToolCall {
	if t == nil {
		return nil
	}
	return &ToolCall{Name: t.Name, Args: maps.Clone(t.Args)}
}

// AgentStep is a single unit of work inside a Plan.
//
// InputTemplate is a brace format string referencing State keys by name, e.g.
// "hello {user}". It may only reference keys that exist when the step runs:
// caller supplied keys plus the ids of earlier steps.
type AgentStep struct {
	ID            string    `json:"id" yaml:"id"`
	Agent         string    `json:"agent" yaml:"agent"`
	InputTemplate string    `json:"input_template" yaml:"input_template"`
	Tool          *ToolCall `json:"tool,omitempty" yaml:"tool,omitempty"`
}

// Plan is an ordered, strictly linear list of steps. Step order defines both
// execution order and data-dependency order.
type Plan struct {
	ID    string      `json:"id" yaml:"id"`
	Name  string      `json:"name" yaml:"name"`
	Steps []AgentStep `json:"steps" yaml:"steps"`
}

// ValidateStepIDs reports the first step id that appears more than once.
func (p Plan) ValidateStepIDs() error {
	seen := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		if _, dup := seen[s.ID]; dup {
			return &DuplicateStepIDError{PlanID: p.ID, StepID: s.ID}
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// ExecutionResult records the outcome of one attempted step.
// Error is empty on success; on failure Output is nil.
type ExecutionResult struct {
	StepID    string `json:"step_id"`
	Output    any    `json:"output,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Failed reports whether the step terminated with an error.
func (r ExecutionResult) Failed() bool { return r.Error != "" }

// State is the execution context threaded between steps. The runner writes
// step.ID -> output after each successful step. A State is owned by a single
// run while it executes and must not be mutated concurrently by the caller.
type State map[string]any

// Clone returns a shallow copy of the state.
func (s State) Clone() State { return maps.Clone(s) }
