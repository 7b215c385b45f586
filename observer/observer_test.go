package observer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/hupe1980/scenariomesh/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.Notify(context.Background(), core.ExecutionResult{StepID: "s1", LatencyMS: 12}))
	require.NoError(t, c.Notify(context.Background(), core.ExecutionResult{StepID: "s2", LatencyMS: 3, Error: "boom"}))

	assert.Equal(t,
		"[ScenarioRunner] step=s1 latency=12ms error=None\n"+
			"[ScenarioRunner] step=s2 latency=3ms error=boom\n",
		buf.String())
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogging(logging.NewLogger(&logging.LoggerConfig{Format: "text", Output: &buf}))

	require.NoError(t, l.Notify(context.Background(), core.ExecutionResult{StepID: "s1"}))
	require.NoError(t, l.Notify(context.Background(), core.ExecutionResult{StepID: "s2", Error: "boom"}))

	out := buf.String()
	assert.Contains(t, out, `msg="step completed" step_id=s1`)
	assert.Contains(t, out, `level=ERROR msg="step failed" step_id=s2`)
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Notify(context.Background(), core.ExecutionResult{StepID: "s"})
		}()
	}
	wg.Wait()

	assert.Len(t, r.Results(), 50)

	r.Reset()
	assert.Empty(t, r.Results())
}

func TestMulti(t *testing.T) {
	first := NewRecorder()
	last := NewRecorder()
	failing := core.ObserverFunc(func(context.Context, core.ExecutionResult) error {
		return errors.New("sink down")
	})

	m := Multi{first, nil, failing, last}
	err := m.Notify(context.Background(), core.ExecutionResult{StepID: "s1"})

	assert.EqualError(t, err, "sink down")
	assert.Len(t, first.Results(), 1)
	assert.Len(t, last.Results(), 1)
}
