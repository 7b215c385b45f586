package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/scenariomesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-sonnet-20241022",
  "content": [{"type": "text", "text": "triage "}, {"type": "text", "text": "complete"}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 4, "output_tokens": 2}
}`

func newTestInvoker(t *testing.T, handler http.HandlerFunc, optFns ...func(o *Options)) *Invoker {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return NewInvokerFromClient(&client, optFns...)
}

func TestInvoker_Success(t *testing.T) {
	var got map[string]any
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageBody)
	}, func(o *Options) {
		o.DefaultInstruction = "You triage incidents."
	})

	resp, err := inv.Invoke(context.Background(), core.InvokeRequest{
		Agent:  "triage",
		Prompt: "incident {x}",
		Tool:   &core.ToolCall{Name: "pager", Args: map[string]any{"sev": 1}},
	})

	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "triage complete", resp.Output)
	assert.NotNil(t, got["system"])
	assert.Contains(t, got["messages"].([]any)[0].(map[string]any)["content"].([]any)[0].(map[string]any)["text"], "Tool: pager")
}

func TestInvoker_OverloadIsRetryable(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})

	resp, err := inv.Invoke(context.Background(), core.InvokeRequest{Agent: "triage", Prompt: "p"})

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Contains(t, resp.Error, "anthropic api error")
}

func TestInvoker_BadRequestIsPermanent(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	})

	_, err := inv.Invoke(context.Background(), core.InvokeRequest{Agent: "triage", Prompt: "p"})

	assert.Error(t, err)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(529))
	assert.True(t, retryable(500))
	assert.False(t, retryable(404))
}
