package util

import (
	"fmt"
	"strings"

	"github.com/hupe1980/scenariomesh/core"
)

// RenderTemplate substitutes {key} placeholders with values from state.
// "{{" and "}}" render literal braces. Values are formatted with fmt.Sprint.
// A missing key, an empty or unterminated placeholder, or a stray "}" yields a
// *core.TemplateError.
// This lives in internal to avoid committing to public API stability prematurely.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.ContainsAny(text, "{}") { // fast path: no template markers
		return text, nil
	}

	var buf strings.Builder
	buf.Grow(len(text))

	err := scan(text, func(literal string) {
		buf.WriteString(literal)
	}, func(key string) error {
		val, ok := state[key]
		if !ok {
			return &core.TemplateError{Template: text, Key: key}
		}
		fmt.Fprint(&buf, val)
		return nil
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// TemplateKeys returns the placeholder keys referenced by text in order of
// first appearance.
func TemplateKeys(text string) ([]string, error) {
	var keys []string
	seen := map[string]bool{}
	err := scan(text, func(string) {}, func(key string) error {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func scan(text string, literal func(string), field func(string) error) error {
	for i := 0; i < len(text); {
		switch text[i] {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				literal("{")
				i += 2
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return &core.TemplateError{Template: text, Reason: "unterminated placeholder"}
			}
			key := text[i+1 : i+1+end]
			if key == "" {
				return &core.TemplateError{Template: text, Reason: "empty placeholder"}
			}
			if strings.ContainsAny(key, "{:!") {
				return &core.TemplateError{Template: text, Reason: fmt.Sprintf("unsupported placeholder %q", key)}
			}
			if err := field(key); err != nil {
				return err
			}
			i += end + 2
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				literal("}")
				i += 2
				continue
			}
			return &core.TemplateError{Template: text, Reason: "single '}' encountered"}
		default:
			next := strings.IndexAny(text[i:], "{}")
			if next < 0 {
				literal(text[i:])
				return nil
			}
			literal(text[i : i+next])
			i += next
		}
	}
	return nil
}
