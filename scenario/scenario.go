// Package scenario loads declarative scenario definitions from YAML or JSON
// and converts them into executable core.Plan values.
//
// A definition file looks like:
//
//	id: scn_incident
//	workspace_id: ws_demo
//	name: Incident Playbook
//	inputs: [incident]
//	guardrails: [no-pii]
//	steps:
//	  - id: triage
//	    agent: triage-agent
//	    input_template: "Classify: {incident}"
//	  - id: notify
//	    agent: notifier
//	    tool: slack_post
//	    tool_args: {channel: "#ops"}
//	    input_template: "Summarise {triage}"
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/internal/util"
	"gopkg.in/yaml.v3"
)

// StepDefinition is the declarative form of a core.AgentStep.
type StepDefinition struct {
	ID            string         `yaml:"id" json:"id"`
	Name          string         `yaml:"name,omitempty" json:"name,omitempty"`
	Agent         string         `yaml:"agent" json:"agent"`
	Tool          string         `yaml:"tool,omitempty" json:"tool,omitempty"`
	ToolArgs      map[string]any `yaml:"tool_args,omitempty" json:"tool_args,omitempty"`
	InputTemplate string         `yaml:"input_template" json:"input_template"`
}

// Definition describes a scenario owned by a workspace.
//
// Inputs optionally declares the keys the caller supplies in the initial
// state. When it is non-empty, Validate checks that every template only
// references declared inputs or the ids of earlier steps. Guardrails are
// carried as metadata and are not enforced by the runner.
type Definition struct {
	ID          string           `yaml:"id" json:"id"`
	WorkspaceID string           `yaml:"workspace_id,omitempty" json:"workspace_id,omitempty"`
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Inputs      []string         `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Steps       []StepDefinition `yaml:"steps" json:"steps"`
	Guardrails  []string         `yaml:"guardrails,omitempty" json:"guardrails,omitempty"`
}

// ErrInvalid is matched (errors.Is) by every validation failure.
var ErrInvalid = errors.New("invalid scenario")

// ValidationError lists every problem found in a definition.
type ValidationError struct {
	ScenarioID string
	Problems   []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("scenario %q: %s", e.ScenarioID, e.Problems[0])
	}
	return fmt.Sprintf("scenario %q: %d problems: %v", e.ScenarioID, len(e.Problems), e.Problems)
}

// Is lets errors.Is(err, ErrInvalid) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Parse decodes a definition from YAML (or JSON) bytes and validates it.
func Parse(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, fmt.Errorf("scenario: definition payload is empty")
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("scenario: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadReader reads a definition from r.
func LoadReader(r io.Reader) (Definition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("scenario: read definition: %w", err)
	}
	return Parse(content)
}

// Load reads a definition from the file at path.
func Load(path string) (Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	def, err := Parse(content)
	if err != nil {
		return Definition{}, fmt.Errorf("scenario: %s: %w", path, err)
	}
	return def, nil
}

// Validate checks structural constraints: a scenario id, a non-empty id and
// agent per step, unique step ids, well-formed templates and tool arguments
// only alongside a tool name.
func (d Definition) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if d.ID == "" {
		addf("id is required")
	}

	known := make(map[string]struct{}, len(d.Inputs)+len(d.Steps))
	for _, in := range d.Inputs {
		known[in] = struct{}{}
	}

	seen := make(map[string]struct{}, len(d.Steps))
	for i, s := range d.Steps {
		label := s.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			addf("step %s: id is required", label)
		}
		if s.Agent == "" {
			addf("step %s: agent is required", label)
		}
		if s.Tool == "" && len(s.ToolArgs) > 0 {
			addf("step %s: tool_args given without tool", label)
		}
		if s.ID != "" {
			if _, dup := seen[s.ID]; dup {
				addf("step %s: duplicate step id", label)
			}
		}

		keys, err := util.TemplateKeys(s.InputTemplate)
		if err != nil {
			addf("step %s: %v", label, err)
		} else if len(d.Inputs) > 0 {
			for _, k := range keys {
				if _, ok := known[k]; !ok {
					addf("step %s: template references unknown key %q", label, k)
				}
			}
		}

		if s.ID != "" {
			seen[s.ID] = struct{}{}
			known[s.ID] = struct{}{}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{ScenarioID: d.ID, Problems: problems}
	}
	return nil
}

// Plan converts the definition into an executable plan. Tool arguments are
// copied so the plan does not alias the definition.
func (d Definition) Plan() core.Plan {
	steps := make([]core.AgentStep, 0, len(d.Steps))
	for _, s := range d.Steps {
		step := core.AgentStep{
			ID:            s.ID,
			Agent:         s.Agent,
			InputTemplate: s.InputTemplate,
		}
		if s.Tool != "" {
			step.Tool = (&core.ToolCall{Name: s.Tool, Args: s.ToolArgs}).Clone()
		}
		steps = append(steps, step)
	}
	return core.Plan{ID: d.ID, Name: d.Name, Steps: steps}
}

// MissingInputs returns the declared inputs absent from state, in declaration
// order.
func (d Definition) MissingInputs(state core.State) []string {
	var missing []string
	for _, in := range d.Inputs {
		if _, ok := state[in]; !ok && !slices.Contains(missing, in) {
			missing = append(missing, in)
		}
	}
	return missing
}
