// Package merge combines partial JSON-like documents into one release.
//
// Values are the shapes produced by encoding/json: map[string]any, []any and
// scalars. Sequences of mappings that carry an identifier key are correlated
// by identifier; everything else merges structurally, with scalar collisions
// resolved last-write-wins and recorded in a ConflictLog.
package merge

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Shape tags a JSON-like value for structural recursion.
type Shape int

const (
	ShapeAbsent Shape = iota
	ShapeScalar
	ShapeMapping
	ShapeSequence
)

func (s Shape) String() string {
	switch s {
	case ShapeAbsent:
		return "absent"
	case ShapeScalar:
		return "scalar"
	case ShapeMapping:
		return "mapping"
	case ShapeSequence:
		return "sequence"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ShapeOf classifies v. A nil value is absent. The typed slice and map
// variants converters commonly build are recognized alongside the
// encoding/json forms.
func ShapeOf(v any) Shape {
	switch v.(type) {
	case nil:
		return ShapeAbsent
	case map[string]any, map[string]string, Fragment:
		return ShapeMapping
	case []any, []map[string]any, []string:
		return ShapeSequence
	default:
		return ShapeScalar
	}
}

// asMap returns v as a map[string]any, converting typed variants.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fragment:
		return map[string]any(m), true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// asSlice returns v as a []any, converting typed variants.
func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}

// deepCopy returns a copy of v that shares no mutable containers with it.
// Typed variants are normalized to map[string]any and []any.
func deepCopy(v any) any {
	if m, ok := asMap(v); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = deepCopy(val)
		}
		return out
	}
	if s, ok := asSlice(v); ok {
		out := make([]any, len(s))
		for i, val := range s {
			out[i] = deepCopy(val)
		}
		return out
	}
	return v
}

// scalarKey normalizes a scalar so that values which encode to the same
// JSON compare equal: every numeric type collapses to float64. The second
// return is false for values that cannot serve as a map key.
func scalarKey(v any) (any, bool) {
	switch n := v.(type) {
	case nil:
		return nil, true
	case string, bool:
		return n, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		if f, err := strconv.ParseFloat(string(n), 64); err == nil && !math.IsInf(f, 0) {
			return f, true
		}
		return "json.Number:" + string(n), true
	default:
		return nil, false
	}
}

// scalarEqual reports whether two scalars encode to the same JSON value.
func scalarEqual(a, b any) bool {
	ka, okA := scalarKey(a)
	kb, okB := scalarKey(b)
	return okA && okB && ka == kb
}
