// Package slack posts messages to Slack through the Web API. It provides a
// Connector, an Observer that reports step results to a channel and an
// AgentInvoker that lets a scenario step post its prompt.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/invoker"
	"github.com/hupe1980/scenariomesh/logging"
)

const (
	// DefaultBaseURL is the Slack Web API root.
	DefaultBaseURL = "https://slack.com/api"
	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 10 * time.Second
)

// APIError is returned when Slack answers with a non-2xx status or with
// "ok": false.
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("slack: api error %q (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("slack: unexpected status %d", e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return invoker.Retryable(e.StatusCode) || e.Code == "ratelimited"
}

// Options configures a Connector.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// HTTPClient defaults to a client with DefaultTimeout.
	HTTPClient *http.Client
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Connector is a minimal Slack Web API client.
type Connector struct {
	botToken string
	baseURL  string
	client   *http.Client
	logger   logging.Logger
}

// New creates a Connector authenticating with botToken.
func New(botToken string, optFns ...func(o *Options)) *Connector {
	opts := Options{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Connector{
		botToken: botToken,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		client:   opts.HTTPClient,
		logger:   opts.Logger,
	}
}

// PostMessage sends text to channel via chat.postMessage and returns the
// decoded response body.
func (c *Connector) PostMessage(ctx context.Context, channel, text string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{"channel": channel, "text": text})
	if err != nil {
		return nil, fmt.Errorf("slack: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack: post message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("slack: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("slack: decode response: %w", err)
	}

	if ok, _ := out["ok"].(bool); !ok {
		code, _ := out["error"].(string)
		return out, &APIError{StatusCode: resp.StatusCode, Code: code}
	}

	c.logger.Debug("slack message posted", "channel", channel, "ts", out["ts"])
	return out, nil
}

// Observer posts a one-line summary of every step result to a channel.
type Observer struct {
	conn    *Connector
	channel string
}

var _ core.Observer = (*Observer)(nil)

// NewObserver creates an Observer posting to channel.
func NewObserver(conn *Connector, channel string) *Observer {
	return &Observer{conn: conn, channel: channel}
}

// Notify implements core.Observer.
func (o *Observer) Notify(ctx context.Context, result core.ExecutionResult) error {
	_, err := o.conn.PostMessage(ctx, o.channel, Summary(result))
	return err
}

// Summary formats a step result for humans.
func Summary(result core.ExecutionResult) string {
	if result.Failed() {
		return fmt.Sprintf(":x: step `%s` failed after %dms: %s", result.StepID, result.LatencyMS, result.Error)
	}
	return fmt.Sprintf(":white_check_mark: step `%s` completed in %dms", result.StepID, result.LatencyMS)
}

// Invoker is a core.AgentInvoker that posts the rendered prompt to a channel.
// A tool argument named "channel" overrides the default channel. The output
// is the message timestamp returned by Slack.
type Invoker struct {
	conn    *Connector
	channel string
}

var _ core.AgentInvoker = (*Invoker)(nil)

// NewInvoker creates an Invoker posting to channel by default.
func NewInvoker(conn *Connector, channel string) *Invoker {
	return &Invoker{conn: conn, channel: channel}
}

// Invoke implements core.AgentInvoker. Transient Slack failures are reported
// as non-ok responses so the runner retries them.
func (i *Invoker) Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error) {
	channel := i.channel
	if req.Tool != nil {
		if c, ok := req.Tool.Args["channel"].(string); ok && c != "" {
			channel = c
		}
	}
	if channel == "" {
		return core.InvokeResponse{}, errors.New("slack: no channel configured")
	}

	out, err := i.conn.PostMessage(ctx, channel, req.Prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.InvokeResponse{}, ctxErr
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return core.InvokeResponse{}, err
		}
		return core.InvokeResponse{Status: core.StatusError, Error: err.Error()}, nil
	}

	ts, _ := out["ts"].(string)
	return core.InvokeResponse{Status: core.StatusOK, Output: ts}, nil
}
