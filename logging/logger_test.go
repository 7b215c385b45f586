package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		"Error":   LogLevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf, Component: "engine"})

	l.Debug("hidden")
	l.Info("step completed", "step_id", "s1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "step completed", entry["msg"])
	assert.Equal(t, "s1", entry["step_id"])
	assert.Equal(t, "engine", entry["component"])
}

func TestNewLogger_Pretty(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "pretty", Output: &buf})

	l.Info("hidden")
	l.Warn("retrying", "attempt", 2)

	assert.Contains(t, buf.String(), "retrying")
	assert.Contains(t, buf.String(), "attempt=2")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := With(NewLogger(&LoggerConfig{Format: "text", Output: &buf}), "run_id", "r-1")
	l.Info("run started")
	assert.Contains(t, buf.String(), "run_id=r-1")

	assert.Equal(t, NoOpLogger{}, With(NoOpLogger{}, "k", "v"))
}

func TestIsTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, isTerminal(&buf))

	f, err := os.Create(filepath.Join(t.TempDir(), "log.txt"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.False(t, isTerminal(w))
}

func TestNewLogger_PrettyToFileHasNoColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.log")
	f, err := os.Create(path)
	require.NoError(t, err)

	NewLogger(&LoggerConfig{Format: "pretty", Output: f}).Info("plain", "k", "v")
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "k=v")
	assert.NotContains(t, string(raw), "\x1b[")
}
