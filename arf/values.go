package arf

import "math"

// AsFloat coerces a scalar attribute value to float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// AsInt coerces a scalar attribute value to int64. Floats convert only
// when they carry an integral value.
func AsInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if math.Trunc(x) != x || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

// AsUint coerces a scalar attribute value to uint64. Negative values
// and non-integral floats do not convert.
func AsUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if math.Trunc(x) != x || x < 0 || x >= math.MaxUint64 {
			return 0, false
		}
		return uint64(x), true
	}
	return 0, false
}

// AsString coerces a scalar attribute value to a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// TimestampSeconds converts an entry timestamp attribute to seconds.
// ARF stores timestamps as a [seconds, microseconds] pair; scalar
// second values and single-element arrays are accepted as well.
func TimestampSeconds(v any) (float64, bool) {
	switch x := v.(type) {
	case []int64:
		return pairSeconds(float64slice(x))
	case []uint64:
		return pairSeconds(float64sliceU(x))
	case []float64:
		return pairSeconds(x)
	}
	return AsFloat(v)
}

func pairSeconds(x []float64) (float64, bool) {
	switch len(x) {
	case 0:
		return 0, false
	case 1:
		return x[0], true
	default:
		return x[0] + x[1]*1e-6, true
	}
}

func float64slice(x []int64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func float64sliceU(x []uint64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
