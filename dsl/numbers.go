package dsl

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// toInt64 converts Go integers, integral floats, json.Number and numeric
// text to int64. numeric is false when v is not a number at all; ok is false
// when it is one but has no exact int64 form.
func toInt64(v any) (n int64, ok, numeric bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true, true
	case int8:
		return int64(x), true, true
	case int16:
		return int64(x), true, true
	case int32:
		return int64(x), true, true
	case int64:
		return x, true, true
	case uint:
		return int64(x), x <= math.MaxInt64, true
	case uint8:
		return int64(x), true, true
	case uint16:
		return int64(x), true, true
	case uint32:
		return int64(x), true, true
	case uint64:
		return int64(x), x <= math.MaxInt64, true
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case json.Number:
		return parseInt64(string(x))
	case string:
		return parseInt64(strings.TrimSpace(x))
	}
	return 0, false, false
}

func parseInt64(s string) (int64, bool, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, false
	}
	return floatToInt64(f)
}

func floatToInt64(f float64) (int64, bool, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false, true
	}
	return int64(f), true, true
}

// toFloat64 converts any Go number, json.Number or numeric text to float64.
func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	if n, ok, _ := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}
