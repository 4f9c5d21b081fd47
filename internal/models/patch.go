package models

import (
	"fmt"
	"math"
	"reflect"

	"github.com/desertthunder/focusync/internal/shared"
)

// Patch is a field-level update keyed by JSON field name.
//
// Values arrive either typed (from Go callers) or decoded from JSON (float64, []any), so readers normalize them.
type Patch map[string]any

// Keys returns the patched field names.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}

// Matches reports whether every field in p holds the same value in current.
func (p Patch) Matches(current Patch) bool {
	for k, v := range p {
		if !reflect.DeepEqual(current[k], v) {
			return false
		}
	}
	return true
}

// Subset returns the entries of p whose key is listed in keys.
func (p Patch) Subset(keys []string) Patch {
	out := make(Patch, len(keys))
	for _, k := range keys {
		if v, ok := p[k]; ok {
			out[k] = v
		}
	}
	return out
}

func patchString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", shared.ErrInvalidPatch, field, v)
	}
	return s, nil
}

func patchBool(field string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", shared.ErrInvalidPatch, field, v)
	}
	return b, nil
}

func patchInt(field string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s must be a whole number, got %v", shared.ErrInvalidPatch, field, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", shared.ErrInvalidPatch, field, v)
	}
}

func patchStrings(field string, v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain strings, got %T", shared.ErrInvalidPatch, field, item)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return []string{}, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list, got %T", shared.ErrInvalidPatch, field, v)
	}
}

func unknownField(kind Kind, field string) error {
	return fmt.Errorf("%w: %s has no field %q", shared.ErrInvalidPatch, kind, field)
}
