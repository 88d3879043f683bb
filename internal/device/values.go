package device

import (
	"fmt"
	"strconv"
	"strings"
)

// BaseName strips a trailing signature from a command, property or event
// name: "setBrightness(int)" becomes "setBrightness".
func BaseName(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		return name[:i]
	}
	return name
}

// signatureArity counts the parameters in "name(a,b)". A name without
// parentheses, or with empty ones, has arity 0.
func signatureArity(sig string) int {
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return 0
	}
	inner := strings.TrimSuffix(sig[open+1:], ")")
	if strings.TrimSpace(inner) == "" {
		return 0
	}
	return strings.Count(inner, ",") + 1
}

// ConvertValue turns authoring strings into typed values: "true" and
// "false" become bools, numeric strings become float64. Everything else,
// including non-string values, is returned unchanged.
func ConvertValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return normalizeNumber(v)
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return s
}

// ConvertValues applies ConvertValue to each element.
func ConvertValues(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = ConvertValue(v)
	}
	return out
}

// normalizeNumber widens integer types to float64 so state comparisons
// do not depend on where a value came from.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// toFloat converts a command or property argument to a number.
func toFloat(v any) (float64, error) {
	switch n := ConvertValue(v).(type) {
	case float64:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidArgument, v)
	}
}

// toBool converts an argument to a bool.
func toBool(v any) (bool, error) {
	switch b := ConvertValue(v).(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	default:
		return false, fmt.Errorf("%w: %v is not a boolean", ErrInvalidArgument, v)
	}
}

// equalValues compares two normalized state values.
func equalValues(a, b any) bool {
	a, b = normalizeNumber(a), normalizeNumber(b)
	switch av := a.(type) {
	case float64, bool, string, nil:
		return a == b
	default:
		return fmt.Sprint(av) == fmt.Sprint(b)
	}
}
