// Package invoker contains core.AgentInvoker implementations that do not need
// a remote backend (echo, scripted responses, agent routing) together with the
// helpers shared by the provider adapters in the openai and anthropic
// subpackages.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/scenariomesh/core"
)

// Echo returns an invoker that answers every request with "echo:" + prompt.
func Echo() core.AgentInvoker {
	return core.InvokerFunc(func(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
		if err := ctx.Err(); err != nil {
			return core.InvokeResponse{}, err
		}
		return core.InvokeResponse{Status: core.StatusOK, Output: "echo:" + req.Prompt}, nil
	})
}

// Scripted is a deterministic in-memory invoker for tests and demos.
// Responses queued per agent are consumed in order; once an agent's queue is
// empty the fallback response is returned. It is safe for concurrent use.
type Scripted struct {
	mu       sync.Mutex
	queues   map[string][]core.InvokeResponse
	fallback func(req core.InvokeRequest) core.InvokeResponse
	calls    []core.InvokeRequest
}

// NewScripted creates a Scripted invoker whose fallback echoes the prompt.
func NewScripted() *Scripted {
	return &Scripted{
		queues: make(map[string][]core.InvokeResponse),
		fallback: func(req core.InvokeRequest) core.InvokeResponse {
			return core.InvokeResponse{Status: core.StatusOK, Output: "echo:" + req.Prompt}
		},
	}
}

// Enqueue appends responses to the queue of agent.
func (s *Scripted) Enqueue(agent string, responses ...core.InvokeResponse) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[agent] = append(s.queues[agent], responses...)
	return s
}

// FailTimes queues n non-ok responses for agent.
func (s *Scripted) FailTimes(agent string, n int, msg string) *Scripted {
	for i := 0; i < n; i++ {
		s.Enqueue(agent, core.InvokeResponse{Status: core.StatusError, Error: msg})
	}
	return s
}

// Fallback replaces the response used when an agent's queue is empty.
func (s *Scripted) Fallback(fn func(req core.InvokeRequest) core.InvokeResponse) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = fn
	return s
}

// Invoke implements core.AgentInvoker.
func (s *Scripted) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	if err := ctx.Err(); err != nil {
		return core.InvokeResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	if q := s.queues[req.Agent]; len(q) > 0 {
		s.queues[req.Agent] = q[1:]
		return q[0], nil
	}
	return s.fallback(req), nil
}

// Calls returns a copy of the requests received so far.
func (s *Scripted) Calls() []core.InvokeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.InvokeRequest(nil), s.calls...)
}

// Router dispatches requests to invokers registered per agent name, falling
// back to a default invoker for unknown agents.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]core.AgentInvoker
	fallback core.AgentInvoker
}

// NewRouter creates a Router. fallback may be nil, in which case requests for
// unregistered agents fail permanently with core.ErrInvokerUnavailable.
func NewRouter(fallback core.AgentInvoker) *Router {
	return &Router{routes: make(map[string]core.AgentInvoker), fallback: fallback}
}

// Register routes requests for agent to inv, replacing any previous route.
func (r *Router) Register(agent string, inv core.AgentInvoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[agent] = inv
}

// Invoke implements core.AgentInvoker.
func (r *Router) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	r.mu.RLock()
	inv, ok := r.routes[req.Agent]
	r.mu.RUnlock()

	if !ok {
		inv = r.fallback
	}
	if inv == nil {
		return core.InvokeResponse{}, fmt.Errorf("agent %q: %w", req.Agent, core.ErrInvokerUnavailable)
	}
	return inv.Invoke(ctx, req)
}

// ComposePrompt returns the user prompt sent to a model provider. When the
// request carries a tool call, its name and JSON encoded arguments are
// appended so the model can act on them.
func ComposePrompt(req core.InvokeRequest) (string, error) {
	if req.Tool == nil {
		return req.Prompt, nil
	}

	args := req.Tool.Args
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode arguments of tool %s: %w", req.Tool.Name, err)
	}

	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n\nTool: ")
	b.WriteString(req.Tool.Name)
	b.WriteString("\nArguments: ")
	b.Write(raw)
	return b.String(), nil
}

// Retryable reports whether an HTTP status returned by a provider API should
// be surfaced as a transient (non-ok) response rather than a permanent error.
func Retryable(statusCode int) bool {
	return statusCode == 408 || statusCode == 409 || statusCode == 429 || statusCode >= 500
}
