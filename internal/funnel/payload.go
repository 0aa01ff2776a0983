package funnel

import (
	"strconv"
	"strings"
	"time"
)

// Webhook payloads arrive as loosely typed JSON; these helpers tolerate
// missing keys, wrong types and numeric ids without panicking.

func childMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// optString returns the trimmed string value, or "" for anything that is not
// a non-empty string.
func optString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// anyString stringifies strings and JSON numbers. Processors are not
// consistent about whether ids arrive quoted.
func anyString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func anyFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return 0
}

// epochMillis converts a JSON epoch-milliseconds number to a UTC timestamp.
// Non-numeric values yield nil.
func epochMillis(v any) *time.Time {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	t := time.UnixMilli(int64(f)).UTC()
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
