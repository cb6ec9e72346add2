// Package normalize coerces loosely typed client values into the canonical
// field types of a game. Every function here is total: bad input falls back
// to a default instead of returning an error.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"guandan-scorekeeper/internal/domain"
)

// Dealer trims v and returns nil for empty text or the literal tokens
// "null" and "undefined" (any case).
func Dealer(v any) *string {
	if v == nil {
		return nil
	}
	var text string
	switch t := v.(type) {
	case string:
		text = t
	case bool:
		if t {
			text = "1"
		}
	default:
		text = String(v)
	}
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "", "null", "undefined":
		return nil
	}
	return &text
}

// Teams defaults both names to "" and only overrides keys that are present.
func Teams(v any) domain.TeamNames {
	var teams domain.TeamNames
	m, ok := v.(map[string]any)
	if !ok {
		return teams
	}
	if a, ok := m["A"]; ok {
		teams.A = String(a)
	}
	if b, ok := m["B"]; ok {
		teams.B = String(b)
	}
	return teams
}

// A1Fails defaults both counters to 0 and only overrides keys that are present.
func A1Fails(v any) domain.FailCounts {
	var fails domain.FailCounts
	m, ok := v.(map[string]any)
	if !ok {
		return fails
	}
	if a, ok := m["A"]; ok {
		fails.A = Int(a)
	}
	if b, ok := m["B"]; ok {
		fails.B = Int(b)
	}
	return fails
}

// String passes strings through and stringifies numbers. Anything else is "".
func String(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// Int coerces v the way a loose integer cast would: floats truncate toward
// zero, strings contribute their leading integer, booleans are 1 or 0.
func Int(v any) int {
	n := Int64(v)
	if n > math.MaxInt {
		return math.MaxInt
	}
	if n < math.MinInt {
		return math.MinInt
	}
	return int(n)
}

func Int64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int64:
		return t
	case int32:
		return int64(t)
	case float64:
		return truncate(t)
	case float32:
		return truncate(float64(t))
	case bool:
		if t {
			return 1
		}
		return 0
	case json.Number:
		return leadingInt(t.String())
	case string:
		return leadingInt(t)
	default:
		return 0
	}
}

// Bool follows "non-empty" truthiness: false, 0, "", "0", nil, empty
// arrays and empty objects are false.
func Bool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Notes keeps JSON objects and arrays as they are. Everything else becomes
// an empty array.
func Notes(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		return t
	default:
		return []any{}
	}
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

// leadingInt parses the numeric prefix of s, so "12abc" is 12, "3.9" is 3,
// "1e3" is 1000 and "abc" is 0.
func leadingInt(s string) int64 {
	prefix := numericPrefix(strings.TrimSpace(s))
	if prefix == "" {
		return 0
	}
	if n, err := strconv.ParseInt(prefix, 10, 64); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(prefix, 64)
	return truncate(f)
}

func numericPrefix(s string) string {
	for end := len(s); end > 0; end-- {
		if _, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return s[:end]
		}
	}
	return ""
}
