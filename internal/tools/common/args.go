package common

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Arguments wraps the raw argument map of a tool call.
type Arguments map[string]any

// RequiredString returns a non-empty string argument.
func (a Arguments) RequiredString(name string) (string, error) {
	v, ok := a[name].(string)
	if !ok || v == "" {
		return "", errors.Newf("%s is required", name)
	}
	return v, nil
}

// String returns a string argument, or def when it is absent or empty.
func (a Arguments) String(name, def string) string {
	if v, ok := a[name].(string); ok && v != "" {
		return v
	}
	return def
}

// OptionalString returns nil when the argument is absent. An explicit empty
// string is returned as such.
func (a Arguments) OptionalString(name string) (*string, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil, nil
	}
	v, ok := raw.(string)
	if !ok {
		return nil, errors.Newf("%s must be a string", name)
	}
	return &v, nil
}

// OptionalInt accepts JSON numbers and numeric strings. Fractions are
// rejected.
func (a Arguments) OptionalInt(name string) (*int, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		return &v, nil
	case int64:
		n := int(v)
		return &n, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, errors.Newf("%s must be an integer", name)
		}
		i := int(n)
		return &i, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.Newf("%s must be an integer", name)
		}
		return &n, nil
	default:
		return nil, errors.Newf("%s must be an integer", name)
	}
	if f != math.Trunc(f) {
		return nil, errors.Newf("%s must be an integer", name)
	}
	n := int(f)
	return &n, nil
}

// Int returns an integer argument or def.
func (a Arguments) Int(name string, def int) (int, error) {
	v, err := a.OptionalInt(name)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}

// OptionalBool accepts JSON booleans and "true"/"false" strings.
func (a Arguments) OptionalBool(name string) (*bool, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case bool:
		return &v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.Newf("%s must be a boolean", name)
		}
		return &b, nil
	default:
		return nil, errors.Newf("%s must be a boolean", name)
	}
}

// Bool returns a boolean argument or def.
func (a Arguments) Bool(name string, def bool) (bool, error) {
	v, err := a.OptionalBool(name)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}

// OptionalStringSlice accepts a JSON array of strings, a JSON array encoded
// as a string, or a comma-separated string. An empty array is returned as a
// non-nil empty slice so callers can clear a list.
func (a Arguments) OptionalStringSlice(name string) (*[]string, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		out := append([]string{}, v...)
		return &out, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Newf("%s[%d] must be a string", name, i)
			}
			out = append(out, s)
		}
		return &out, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var out []string
			if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
				if out == nil {
					out = []string{}
				}
				return &out, nil
			}
		}
		out := []string{}
		for _, part := range strings.Split(trimmed, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return &out, nil
	default:
		return nil, errors.Newf("%s must be an array of strings", name)
	}
}

// OptionalObject returns a JSON object argument.
func (a Arguments) OptionalObject(name string) (map[string]any, error) {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil, nil
	}
	v, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Newf("%s must be an object", name)
	}
	return v, nil
}
