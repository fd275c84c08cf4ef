package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/reoring/storemodel"
)

// String returns the text attribute type. Numbers and booleans are rendered
// as text; structured values are rejected.
func String() storemodel.Type { return stringType{} }

// Integer returns the int64 attribute type. Integral floats, json.Number and
// numeric text are accepted; empty text casts to nil.
func Integer() storemodel.Type { return integerType{} }

// Float returns the float64 attribute type.
func Float() storemodel.Type { return floatType{} }

// Boolean returns the bool attribute type. Text such as "true", "1", "no"
// and "off" is accepted; empty text casts to nil.
func Boolean() storemodel.Type { return booleanType{} }

// Time returns the time.Time attribute type. It reads RFC3339 text (with or
// without fractional seconds) and writes RFC3339Nano in UTC.
func Time() storemodel.Type { return timeType{} }

// Raw returns a pass-through type for free-form JSON values. Numbers are
// normalized to float64 at every depth so that a value compares equal to its
// own round trip through wire text.
func Raw() storemodel.Type { return rawType{} }

type stringType struct{}

func (stringType) Kind() storemodel.Kind { return storemodel.KindPrimitive }
func (stringType) TypeName() string      { return "string" }

func (stringType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case json.Number:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if f, ok := toFloat64(raw); ok {
		if n, exact, _ := toInt64(raw); exact {
			return strconv.FormatInt(n, 10), nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return nil, &storemodel.CastError{Value: raw, Allowed: "text, numbers or booleans"}
}

func (stringType) Serialize(v any) (any, error) { return v, nil }

func (t stringType) Changed(oldRaw, v any) bool { return storemodel.Changed(t, oldRaw, v) }

type integerType struct{}

func (integerType) Kind() storemodel.Kind { return storemodel.KindPrimitive }
func (integerType) TypeName() string      { return "integer" }

func (integerType) Cast(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	n, ok, _ := toInt64(raw)
	if !ok {
		return nil, &storemodel.CastError{Value: raw, Allowed: "integers"}
	}
	return n, nil
}

func (integerType) Serialize(v any) (any, error) { return v, nil }

func (t integerType) Changed(oldRaw, v any) bool { return storemodel.Changed(t, oldRaw, v) }

type floatType struct{}

func (floatType) Kind() storemodel.Kind { return storemodel.KindPrimitive }
func (floatType) TypeName() string      { return "float" }

func (floatType) Cast(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, ok := toFloat64(raw)
	if !ok {
		return nil, &storemodel.CastError{Value: raw, Allowed: "numbers"}
	}
	return f, nil
}

func (floatType) Serialize(v any) (any, error) { return v, nil }

func (t floatType) Changed(oldRaw, v any) bool { return storemodel.Changed(t, oldRaw, v) }

type booleanType struct{}

func (booleanType) Kind() storemodel.Kind { return storemodel.KindPrimitive }
func (booleanType) TypeName() string      { return "boolean" }

func (booleanType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return nil, nil
		case "true", "t", "1", "yes", "y", "on":
			return true, nil
		case "false", "f", "0", "no", "n", "off":
			return false, nil
		}
	default:
		if n, ok, _ := toInt64(raw); ok && (n == 0 || n == 1) {
			return n == 1, nil
		}
	}
	return nil, &storemodel.CastError{Value: raw, Allowed: "booleans"}
}

func (booleanType) Serialize(v any) (any, error) { return v, nil }

func (t booleanType) Changed(oldRaw, v any) bool { return storemodel.Changed(t, oldRaw, v) }

type timeType struct{}

func (timeType) Kind() storemodel.Kind { return storemodel.KindPrimitive }
func (timeType) TypeName() string      { return "time" }

func (timeType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		t, err := parseRFC3339(v)
		if err != nil {
			return nil, &storemodel.CastError{Value: raw, Allowed: "RFC3339 text"}
		}
		return t, nil
	}
	return nil, &storemodel.CastError{Value: raw, Allowed: "RFC3339 text or times"}
}

func (timeType) Serialize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return formatRFC3339Canonical(t), nil
	}
	return v, nil
}

func (t timeType) Changed(oldRaw, v any) bool { return storemodel.Changed(t, oldRaw, v) }

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type rawType struct{}

func (rawType) Kind() storemodel.Kind { return storemodel.KindPrimitive }
func (rawType) TypeName() string      { return "raw" }

func (rawType) Cast(raw any) (any, error) { return normalizeRaw(raw), nil }

func (rawType) Serialize(v any) (any, error) { return v, nil }

func (t rawType) Changed(oldRaw, v any) bool { return storemodel.Changed(t, oldRaw, v) }

func normalizeRaw(v any) any {
	switch x := v.(type) {
	case nil, string, bool:
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeRaw(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for n, e := range x {
			out[n] = normalizeRaw(e)
		}
		return out
	}
	if f, ok := toFloat64(v); ok {
		return f
	}
	return v
}
