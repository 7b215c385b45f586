package testutil

import "github.com/hupe1980/scenariomesh/core"

// PlanBuilder helps construct plans with fluent chaining for tests.
// Example:
//
//	plan := NewPlanBuilder("plan").Step("s1", "a1", "hello {user}").Step("s2", "a2", "result {s1}").Build()
type PlanBuilder struct {
	plan core.Plan
}

// NewPlanBuilder creates a builder for a plan with the given id. The name
// defaults to the id.
func NewPlanBuilder(id string) *PlanBuilder {
	return &PlanBuilder{plan: core.Plan{ID: id, Name: id}}
}

// Name sets the plan name (chainable).
func (b *PlanBuilder) Name(name string) *PlanBuilder {
	b.plan.Name = name
	return b
}

// Step appends a step without a tool (chainable).
func (b *PlanBuilder) Step(id, agent, template string) *PlanBuilder {
	b.plan.Steps = append(b.plan.Steps, core.AgentStep{ID: id, Agent: agent, InputTemplate: template})
	return b
}

// ToolStep appends a step carrying a tool call (chainable).
func (b *PlanBuilder) ToolStep(id, agent, template, tool string, args map[string]any) *PlanBuilder {
	b.plan.Steps = append(b.plan.Steps, core.AgentStep{
		ID:            id,
		Agent:         agent,
		InputTemplate: template,
		Tool:          &core.ToolCall{Name: tool, Args: args},
	})
	return b
}

// Build returns the constructed plan.
func (b *PlanBuilder) Build() core.Plan {
	p := b.plan
	p.Steps = append([]core.AgentStep(nil), b.plan.Steps...)
	return p
}
