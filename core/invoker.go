package core

import "context"

const (
	// StatusOK marks a successful invocation. Any other status is treated as a
	// transient failure and retried.
	StatusOK = "ok"
	// StatusError is the conventional non-ok status used by bundled invokers.
	StatusError = "error"
)

// InvokeRequest is the payload passed to an AgentInvoker for one attempt.
type InvokeRequest struct {
	Agent  string    `json:"agent"`
	Prompt string    `json:"prompt"`
	Tool   *ToolCall `json:"tool,omitempty"`
}

// InvokeResponse is the invoker's answer for one attempt.
type InvokeResponse struct {
	Status string `json:"status"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the response carries a successful status.
func (r InvokeResponse) OK() bool { return r.Status == StatusOK }

// AgentInvoker executes a single step against an agent or tool backend
// (typically an LLM client).
//
// Implementations signal transient failures by returning a response whose
// Status is not StatusOK; the engine retries those. A non-nil error is treated
// as permanent unless it implements Temporary() bool returning true.
// Per-attempt timeouts are the implementation's responsibility.
type AgentInvoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error)
}

// InvokerFunc adapts a plain function to the AgentInvoker interface.
type InvokerFunc func(ctx context.Context, req InvokeRequest) (InvokeResponse, error)

// Invoke calls f(ctx, req).
func (f InvokerFunc) Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error) {
	return f(ctx, req)
}
