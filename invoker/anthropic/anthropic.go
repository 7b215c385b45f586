// Package anthropic provides a core.AgentInvoker for the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/invoker"
	"github.com/hupe1980/scenariomesh/logging"
)

// Options configures the Anthropic invoker (model id, temperature, max
// tokens, API key, per-agent system prompts).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string

	// Instructions maps agent names to system prompts.
	Instructions map[string]string
	// DefaultInstruction is used for agents without an entry in Instructions.
	DefaultInstruction string

	Logger logging.Logger
}

// Invoker wraps the Anthropic Messages API behind core.AgentInvoker.
type Invoker struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
		Logger:      logging.NoOpLogger{},
	}
}

// NewInvoker creates a new Anthropic invoker using the official client.
func NewInvoker(optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return newInvoker(&client, opts)
}

// NewInvokerFromClient creates a new Anthropic invoker from an existing client.
func NewInvokerFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newInvoker(client, opts)
}

func newInvoker(client *anthropic.Client, opts Options) *Invoker {
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Invoker{client: client, opts: opts}
}

// Invoke implements core.AgentInvoker. The output is the concatenated text of
// the response. Rate limits, overload and server errors become non-ok
// responses; other API errors are permanent.
func (i *Invoker) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	prompt, err := invoker.ComposePrompt(req)
	if err != nil {
		return core.InvokeResponse{}, err
	}

	params := anthropic.MessageNewParams{
		Model:       i.opts.Model,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens:   i.opts.MaxTokens,
		Temperature: anthropic.Float(i.opts.Temperature),
	}
	if instruction := i.instruction(req.Agent); instruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: instruction}}
	}

	resp, err := i.client.Messages.New(ctx, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.InvokeResponse{}, ctxErr
		}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && !retryable(apiErr.StatusCode) {
			return core.InvokeResponse{}, fmt.Errorf("anthropic api error: %w", err)
		}
		return core.InvokeResponse{Status: core.StatusError, Error: fmt.Sprintf("anthropic api error: %v", err)}, nil
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	i.opts.Logger.Debug("anthropic message",
		"agent", req.Agent,
		"model", string(resp.Model),
		"stop_reason", string(resp.StopReason),
		"output_tokens", resp.Usage.OutputTokens,
	)

	return core.InvokeResponse{Status: core.StatusOK, Output: text.String()}, nil
}

func (i *Invoker) instruction(agent string) string {
	if s, ok := i.opts.Instructions[agent]; ok {
		return s
	}
	return i.opts.DefaultInstruction
}

// retryable extends the shared classification with Anthropic's 529 overload.
func retryable(statusCode int) bool {
	return statusCode == 529 || invoker.Retryable(statusCode)
}
