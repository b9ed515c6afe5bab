package statetree

import (
	"encoding/json"
	"math"
	"reflect"
)

// toFloat reports the numeric value of v for every Go numeric kind and
// json.Number.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func isNumber(v any) bool {
	f, ok := toFloat(v)
	return ok && !math.IsNaN(f)
}

// isFiniteNumber excludes NaN and the infinities, which JSON cannot carry.
func isFiniteNumber(v any) bool {
	f, ok := toFloat(v)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isInteger(v any) bool {
	f, ok := toFloat(v)
	return ok && !math.IsInf(f, 0) && f == math.Trunc(f)
}

func numbersEqual(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	return okA && okB && fa == fb
}
