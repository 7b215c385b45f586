package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "logprobs": null,
    "message": {"role": "assistant", "content": "summary ready", "refusal": null}
  }],
  "usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
}`

func newTestInvoker(t *testing.T, handler http.HandlerFunc, optFns ...func(o *Options)) *Invoker {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return NewInvokerFromClient(&client, optFns...)
}

func TestInvoker_Success(t *testing.T) {
	var got map[string]any
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	}, func(o *Options) {
		o.Instructions = map[string]string{"writer": "You write summaries."}
	})

	resp, err := inv.Invoke(context.Background(), core.InvokeRequest{Agent: "writer", Prompt: "summarize X"})

	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "summary ready", resp.Output)

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, "gpt-4o-mini", got["model"])
}

func TestInvoker_RateLimitIsRetryable(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	})

	resp, err := inv.Invoke(context.Background(), core.InvokeRequest{Agent: "writer", Prompt: "p"})

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, core.StatusError, resp.Status)
	assert.Contains(t, resp.Error, "openai api error")
}

func TestInvoker_AuthErrorIsPermanent(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := inv.Invoke(context.Background(), core.InvokeRequest{Agent: "writer", Prompt: "p"})

	require.Error(t, err)
	var apiErr *openai.Error
	assert.ErrorAs(t, err, &apiErr)
}

func TestInvoker_NoChoices(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`)
	})

	resp, err := inv.Invoke(context.Background(), core.InvokeRequest{Agent: "writer", Prompt: "p"})

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, "no choices returned", resp.Error)
}

func TestInvoker_Instruction(t *testing.T) {
	client := openai.NewClient(option.WithAPIKey("k"))
	inv := NewInvokerFromClient(&client, func(o *Options) {
		o.Instructions = map[string]string{"a1": "one"}
		o.DefaultInstruction = "default"
	})

	assert.Equal(t, "one", inv.instruction("a1"))
	assert.Equal(t, "default", inv.instruction("a2"))
}
