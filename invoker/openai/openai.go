// Package openai provides a core.AgentInvoker backed by the OpenAI Chat
// Completions API. Each step becomes one non-streaming completion: the agent's
// instruction (if configured) is sent as the system message and the rendered
// step prompt as the user message.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/invoker"
	"github.com/hupe1980/scenariomesh/logging"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI invoker.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64

	// Instructions maps agent names to system prompts.
	Instructions map[string]string
	// DefaultInstruction is used for agents without an entry in Instructions.
	DefaultInstruction string

	Logger logging.Logger
}

// Invoker wraps the OpenAI Chat Completions API behind core.AgentInvoker.
type Invoker struct {
	client *openai.Client
	opts   Options
}

// NewInvoker creates a new OpenAI invoker using the official client, which
// reads OPENAI_API_KEY from the environment.
func NewInvoker(optFns ...func(o *Options)) *Invoker {
	client := openai.NewClient()
	return NewInvokerFromClient(&client, optFns...)
}

// NewInvokerFromClient creates a new OpenAI invoker from an existing client.
func NewInvokerFromClient(client *openai.Client, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Invoker{client: client, opts: opts}
}

// Invoke implements core.AgentInvoker.
//
// Rate limits, server errors and transport failures are reported as non-ok
// responses so the engine retries them. Other API errors (authentication,
// invalid requests) and context cancellation are returned as errors.
func (i *Invoker) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	prompt, err := invoker.ComposePrompt(req)
	if err != nil {
		return core.InvokeResponse{}, err
	}

	resp, err := i.client.Chat.Completions.New(ctx, i.buildParams(req.Agent, prompt))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.InvokeResponse{}, ctxErr
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && !invoker.Retryable(apiErr.StatusCode) {
			return core.InvokeResponse{}, fmt.Errorf("openai api error: %w", err)
		}
		return core.InvokeResponse{Status: core.StatusError, Error: fmt.Sprintf("openai api error: %v", err)}, nil
	}

	if len(resp.Choices) == 0 {
		return core.InvokeResponse{Status: core.StatusError, Error: "no choices returned"}, nil
	}

	i.opts.Logger.Debug("openai completion",
		"agent", req.Agent,
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens,
		"finish_reason", resp.Choices[0].FinishReason,
	)

	return core.InvokeResponse{Status: core.StatusOK, Output: resp.Choices[0].Message.Content}, nil
}

// buildParams assembles the OpenAI request parameters for one step.
func (i *Invoker) buildParams(agent, prompt string) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if instruction := i.instruction(agent); instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	messages = append(messages, openai.UserMessage(prompt))

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               i.opts.Model,
		Temperature:         openai.Float(i.opts.Temperature),
		MaxCompletionTokens: openai.Int(i.opts.MaxCompletionTokens),
	}
}

func (i *Invoker) instruction(agent string) string {
	if s, ok := i.opts.Instructions[agent]; ok {
		return s
	}
	return i.opts.DefaultInstruction
}
