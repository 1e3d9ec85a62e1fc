package variantz

import (
	"math"
	"reflect"
)

// valuesEqual compares two opaque values the way configuration authors
// expect: numbers compare across Go kinds (a JSON-decoded float64 1 equals
// an int 1), everything else falls back to deep equality.
func valuesEqual(left, right any) bool {
	li, leftInt := asInt64(left)
	ri, rightInt := asInt64(right)
	if leftInt && rightInt {
		return li == ri
	}

	lu, leftUint := asUint64(left)
	ru, rightUint := asUint64(right)
	if leftUint && rightUint {
		return lu == ru
	}
	if leftInt && rightUint {
		return li >= 0 && uint64(li) == ru
	}
	if leftUint && rightInt {
		return ri >= 0 && lu == uint64(ri)
	}

	lf, leftFloat := asFloat64(left)
	rf, rightFloat := asFloat64(right)
	if leftFloat && rightFloat {
		return lf == rf
	}
	// A float that did not coerce onto an integer rail is fractional,
	// infinite, or out of range; it cannot equal an integer.
	if (leftFloat && (rightInt || rightUint)) || (rightFloat && (leftInt || leftUint)) {
		return false
	}

	return reflect.DeepEqual(left, right)
}

// valueIn reports whether value equals any element of list, which must be
// a slice or array of any element type.
func valueIn(value any, list any) bool {
	elements := reflect.ValueOf(list)
	if !elements.IsValid() {
		return false
	}
	if elements.Kind() != reflect.Slice && elements.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < elements.Len(); i++ {
		if valuesEqual(value, elements.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// asInt64 coerces signed integers, small unsigned integers, and whole
// in-range floats onto the int64 rail.
func asInt64(value any) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	case float32:
		return wholeFloatToInt64(float64(n))
	case float64:
		return wholeFloatToInt64(n)
	}
	return 0, false
}

// asUint64 coerces unsigned integers and whole non-negative floats onto
// the uint64 rail.
func asUint64(value any) (uint64, bool) {
	switch n := value.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case float32:
		return wholeFloatToUint64(float64(n))
	case float64:
		return wholeFloatToUint64(n)
	}
	return 0, false
}

func asFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func wholeFloatToInt64(f float64) (int64, bool) {
	// The upper bound is exclusive: float64(MaxInt64) rounds to 2^63,
	// which does not fit, and converting it would overflow.
	if !isWholeFinite(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	converted := int64(f)
	if float64(converted) != f {
		return 0, false
	}
	return converted, true
}

func wholeFloatToUint64(f float64) (uint64, bool) {
	if !isWholeFinite(f) || f < 0 || f >= math.MaxUint64 {
		return 0, false
	}
	converted := uint64(f)
	if float64(converted) != f {
		return 0, false
	}
	return converted, true
}

func isWholeFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Trunc(f) == f
}

// asAnySlice converts a slice or array of any element type to []any.
func asAnySlice(value any) ([]any, bool) {
	if elements, ok := value.([]any); ok {
		return elements, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
