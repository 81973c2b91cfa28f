// Package jsonextract recovers a JSON object from free-form model output.
package jsonextract

import (
	"encoding/json"
	"strings"
)

// FirstObject returns the first JSON object embedded in text.
//
// The whole text is tried first. Otherwise the scan starts at the first '{'
// and stops at the brace that balances it, ignoring braces inside quoted
// strings. That single candidate either parses or the call reports no
// object; later candidates are never considered.
func FirstObject(text string) (map[string]any, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	if obj, ok := decodeObject(text); ok {
		return obj, true
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}

	end, ok := balancedEnd(text, start)
	if !ok {
		return nil, false
	}
	return decodeObject(text[start : end+1])
}

// Raw is FirstObject but returns the matching span instead of the decoded value.
func Raw(text string) (string, bool) {
	if _, ok := decodeObject(text); ok {
		return strings.TrimSpace(text), true
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end, ok := balancedEnd(text, start)
	if !ok {
		return "", false
	}
	candidate := text[start : end+1]
	if _, ok := decodeObject(candidate); !ok {
		return "", false
	}
	return candidate, true
}

// balancedEnd returns the index of the brace closing the one at start.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decodeObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return obj, true
}
