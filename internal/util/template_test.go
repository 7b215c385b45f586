package util

import (
	"testing"

	"github.com/hupe1980/scenariomesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	state := map[string]any{"user": "X", "n": 42, "s1": "echo:hello X"}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "no placeholders", "no placeholders"},
		{"single", "hello {user}", "hello X"},
		{"step output", "result {s1}", "result echo:hello X"},
		{"non string", "n={n}", "n=42"},
		{"repeated", "{user}-{user}", "X-X"},
		{"escaped braces", "{{literal}} {user}", "{literal} X"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.text, state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTemplate_MissingKey(t *testing.T) {
	_, err := RenderTemplate("result {s2}", map[string]any{"s1": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTemplate)

	var tplErr *core.TemplateError
	require.ErrorAs(t, err, &tplErr)
	assert.Equal(t, "s2", tplErr.Key)
}

func TestRenderTemplate_Malformed(t *testing.T) {
	for _, text := range []string{"open {user", "close }", "empty {}", "format {user:>10}"} {
		_, err := RenderTemplate(text, map[string]any{"user": "X"})
		assert.ErrorIs(t, err, core.ErrTemplate, text)
	}
}

func TestTemplateKeys(t *testing.T) {
	keys, err := TemplateKeys("{a} and {b} then {a} {{c}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	_, err = TemplateKeys("{broken")
	assert.Error(t, err)
}
