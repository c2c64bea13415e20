// Package jsonutil provides helper functions for extracting typed values
// from unstructured JSON maps (map[string]any), used where backend payload
// variants disagree on field placement.
package jsonutil

import "encoding/json"

// IntFromAny converts various numeric types to int.
func IntFromAny(value any) int {
	switch num := value.(type) {
	case float64:
		return int(num)
	case int:
		return num
	case int64:
		return int(num)
	case json.Number:
		i, _ := num.Int64()
		return int(i)
	default:
		return 0
	}
}

// FloatFromAny converts various numeric types to float64.
func FloatFromAny(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// StringFromAny safely converts any value to string.
func StringFromAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// IntFromMap extracts an int from a map by key.
func IntFromMap(data map[string]any, key string) int {
	if v, ok := data[key]; ok {
		return IntFromAny(v)
	}
	return 0
}

// StringFromMap extracts a string from a map by key.
func StringFromMap(data map[string]any, key string) string {
	if v, ok := data[key]; ok {
		return StringFromAny(v)
	}
	return ""
}

// Lookup walks nested objects along path and returns the value found.
// ok is false if any step is missing or not an object.
func Lookup(data map[string]any, path ...string) (any, bool) {
	var cur any = data
	for _, key := range path {
		m, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		v, found := m[key]
		if !found {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// MapAt returns the object at path, or nil.
func MapAt(data map[string]any, path ...string) map[string]any {
	v, ok := Lookup(data, path...)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// CountsFromAny converts an object of numeric values into a map of counts.
// Non-numeric values are skipped. Returns nil if v is not an object.
func CountsFromAny(v any) map[string]int {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, val := range m {
		switch val.(type) {
		case float64, int, int64, json.Number:
			out[k] = IntFromAny(val)
		}
	}
	return out
}
