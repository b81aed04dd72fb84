package builtin

import (
	"fmt"
	"strings"
)

// stringArg fetches a string-like argument from the call map, returning
// an empty string when the key is absent or nil.
func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	value, ok := args[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// intArg parses a positive integer-ish argument, returning fallback on
// missing or invalid inputs.
func intArg(args map[string]any, key string, fallback int) int {
	if args == nil {
		return fallback
	}
	switch value := args[key].(type) {
	case int:
		if value > 0 {
			return value
		}
	case int64:
		if value > 0 {
			return int(value)
		}
	case float64:
		if value > 0 {
			return int(value)
		}
	case jsonNumber:
		if parsed, err := value.Int64(); err == nil && parsed > 0 {
			return int(parsed)
		}
	}
	return fallback
}

// jsonNumber bridges encoding/json's Number without importing it at call
// sites.
type jsonNumber interface {
	Int64() (int64, error)
}

// contentSnippet returns a trimmed prefix of content to use as a
// lightweight preview, avoiding empty strings and over-long slices.
func contentSnippet(content string, max int) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= max {
		return trimmed
	}
	return string(runes[:max]) + "…"
}
