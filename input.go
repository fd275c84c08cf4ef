package storemodel

import "reflect"

// Mapper is implemented by values that can turn themselves into a keyed
// mapping (DTO-style wrappers, form objects). Casting treats them like a
// map[string]any.
type Mapper interface {
	ToMap() map[string]any
}

// inputKind tags a raw wire value once at the boundary of each cast; the
// container types then switch over the tag.
type inputKind int

const (
	inputNil inputKind = iota
	inputInstance
	inputText
	inputMapping
	inputSequence
	inputOther
)

type input struct {
	kind     inputKind
	instance *Instance
	text     []byte
	mapping  map[string]any
	sequence []any
	raw      any
}

func classify(raw any) input {
	switch v := raw.(type) {
	case nil:
		return input{kind: inputNil}
	case *Instance:
		if v == nil {
			return input{kind: inputNil}
		}
		return input{kind: inputInstance, instance: v, raw: raw}
	case string:
		return input{kind: inputText, text: []byte(v), raw: raw}
	case []byte:
		return input{kind: inputText, text: v, raw: raw}
	case map[string]any:
		return input{kind: inputMapping, mapping: v, raw: raw}
	case Mapper:
		return input{kind: inputMapping, mapping: v.ToMap(), raw: raw}
	case []any:
		return input{kind: inputSequence, sequence: v, raw: raw}
	}
	return classifyReflect(raw)
}

// classifyReflect handles typed maps and slices ([]*Instance,
// map[string]*Instance, []map[string]any, json.RawMessage, ...).
func classifyReflect(raw any) input {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return input{kind: inputNil}
		}
	case reflect.Slice:
		if rv.IsNil() {
			return input{kind: inputNil}
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return input{kind: inputText, text: rv.Bytes(), raw: raw}
		}
		seq := make([]any, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return input{kind: inputSequence, sequence: seq, raw: raw}
	case reflect.Array:
		seq := make([]any, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return input{kind: inputSequence, sequence: seq, raw: raw}
	case reflect.Map:
		if rv.IsNil() {
			return input{kind: inputNil}
		}
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return input{kind: inputMapping, mapping: m, raw: raw}
	}
	return input{kind: inputOther, raw: raw}
}

// isNil reports whether v is nil or a typed nil pointer, map or slice.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
