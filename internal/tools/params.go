package tools

import (
	"fmt"

	"github.com/cascadehq/cascade/internal/wire"
)

// paramString decodes a required/optional string parameter. Absent or
// explicitly-undefined values return ("", false); wrong types are a
// validation error.
func paramString(params map[string]any, name string) (string, bool, error) {
	v, present := params[name]
	if !present || v == nil || isUndefined(v) {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("%s must be a string", name)
	}
	return s, true, nil
}

// paramInt decodes a numeric parameter (wire coercion produces
// float64 for numbers).
func paramInt(params map[string]any, name string) (int, bool, error) {
	v, present := params[name]
	if !present || v == nil || isUndefined(v) {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), true, nil
	case int:
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
}

// paramBool decodes a boolean parameter.
func paramBool(params map[string]any, name string) (bool, bool, error) {
	v, present := params[name]
	if !present || v == nil || isUndefined(v) {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("%s must be a boolean", name)
	}
	return b, true, nil
}

// paramStringSlice decodes an array-of-string parameter, tolerating a
// JSON-decoded []any of strings.
func paramStringSlice(params map[string]any, name string) ([]string, bool, error) {
	v, present := params[name]
	if !present || v == nil || isUndefined(v) {
		return nil, false, nil
	}
	switch arr := v.(type) {
	case []string:
		return arr, true, nil
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			s, ok := item.(string)
			if !ok {
				return nil, false, fmt.Errorf("%s must be an array of strings", name)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%s must be an array", name)
	}
}

func requireString(params map[string]any, name string) (string, error) {
	v, present, err := paramString(params, name)
	if err != nil {
		return "", err
	}
	if !present || v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// isUndefined reports whether v is the wire parser's Undefined
// sentinel, distinct from a literal null.
func isUndefined(v any) bool {
	_, ok := v.(wire.Undefined)
	return ok
}
