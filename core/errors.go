package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplate is matched (errors.Is) by every TemplateError.
	ErrTemplate = errors.New("template error")

	// ErrInvokerUnavailable is returned when a run is started without an
	// AgentInvoker. It is permanent and aborts the run at the first step.
	ErrInvokerUnavailable = errors.New("agent invoker unavailable")

	// ErrInvocationLimit is returned when a run exceeds its configured
	// maximum number of invoker calls.
	ErrInvocationLimit = errors.New("invocation limit exceeded")
)

// TemplateError reports a step template that could not be rendered against
// the current state, usually because it references a key that does not exist
// yet. It is never retried.
type TemplateError struct {
	Template string
	Key      string
	Reason   string
}

func (e *TemplateError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("template error: key %q not found in context", e.Key)
	}
	return fmt.Sprintf("template error: %s", e.Reason)
}

// Is lets errors.Is(err, ErrTemplate) match any TemplateError.
func (e *TemplateError) Is(target error) bool { return target == ErrTemplate }

// InvocationError is produced when an invoker answers with a non-ok status.
// It is the only failure the default retry classifier treats as transient.
type InvocationError struct {
	Agent   string
	Status  string
	Message string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %s returned status %q: %s", e.Agent, e.Status, e.Message)
}

// Temporary marks the error as retryable.
func (e *InvocationError) Temporary() bool { return true }

// DuplicateStepIDError is returned before execution when two steps of a plan
// share an id.
type DuplicateStepIDError struct {
	PlanID string
	StepID string
}

func (e *DuplicateStepIDError) Error() string {
	return fmt.Sprintf("plan %q: duplicate step id %q", e.PlanID, e.StepID)
}

// StepError is the terminal error of a failed run. It names the failing step
// and wraps the underlying cause (TemplateError, retry.ExhaustedError, ...).
type StepError struct {
	StepID string
	Index  int
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
