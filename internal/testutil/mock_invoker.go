package testutil

import (
	"context"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/stretchr/testify/mock"
)

// MockInvoker is a testify mock implementing core.AgentInvoker.
type MockInvoker struct {
	mock.Mock
}

// Invoke records the call and returns the configured response and error.
func (m *MockInvoker) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(core.InvokeResponse), args.Error(1)
}

// OK builds a successful response.
func OK(output any) core.InvokeResponse {
	return core.InvokeResponse{Status: core.StatusOK, Output: output}
}

// Fail builds a non-ok (retryable) response.
func Fail(msg string) core.InvokeResponse {
	return core.InvokeResponse{Status: core.StatusError, Error: msg}
}

// Req matches an InvokeRequest by agent and prompt, ignoring the tool.
func Req(agent, prompt string) any {
	return mock.MatchedBy(func(r core.InvokeRequest) bool {
		return r.Agent == agent && r.Prompt == prompt
	})
}
