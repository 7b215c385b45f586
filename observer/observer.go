// Package observer provides core.Observer implementations: console output,
// structured logging, in-memory recording and fan-out.
package observer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/logging"
)

// Console prints one line per step:
//
//	[ScenarioRunner] step=s1 latency=12ms error=None
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a Console observer writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Notify implements core.Observer.
func (c *Console) Notify(_ context.Context, result core.ExecutionResult) error {
	errText := result.Error
	if errText == "" {
		errText = "None"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "[ScenarioRunner] step=%s latency=%dms error=%s\n", result.StepID, result.LatencyMS, errText)
	return err
}

// Logging reports step results through a logging.Logger: successes at info,
// failures at error level.
type Logging struct {
	logger logging.Logger
}

// NewLogging creates a Logging observer. A nil logger discards everything.
func NewLogging(logger logging.Logger) *Logging {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Logging{logger: logger}
}

// Notify implements core.Observer.
func (l *Logging) Notify(_ context.Context, result core.ExecutionResult) error {
	if result.Failed() {
		l.logger.Error("step failed", "step_id", result.StepID, "latency_ms", result.LatencyMS, "error", result.Error)
		return nil
	}
	l.logger.Info("step completed", "step_id", result.StepID, "latency_ms", result.LatencyMS)
	return nil
}

// Recorder captures results in memory and exposes snapshots. It is safe for
// concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	results []core.ExecutionResult
}

var _ core.Observer = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{results: make([]core.ExecutionResult, 0)}
}

// Notify implements core.Observer.
func (r *Recorder) Notify(_ context.Context, result core.ExecutionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append(r.results, result)
	return nil
}

// Results returns a copy of the recorded results in notification order.
func (r *Recorder) Results() []core.ExecutionResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.ExecutionResult, len(r.results))
	copy(out, r.results)
	return out
}

// Reset discards all recorded results.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = r.results[:0]
}

// Multi fans a notification out to several observers. Every observer is
// called even if an earlier one fails; the failures are joined.
type Multi []core.Observer

// Notify implements core.Observer.
func (m Multi) Notify(ctx context.Context, result core.ExecutionResult) error {
	var errs []error
	for _, o := range m {
		if o == nil {
			continue
		}
		if err := o.Notify(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
