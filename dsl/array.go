package dsl

import (
	"reflect"

	"github.com/reoring/storemodel"
)

// ArrayOf returns a type holding a []any of elem-typed values. JSON text is
// decoded first; malformed text casts to an empty slice.
func ArrayOf(elem storemodel.Type) storemodel.Type { return arrayType{elem: elem} }

type arrayType struct{ elem storemodel.Type }

func (arrayType) Kind() storemodel.Kind { return storemodel.KindPrimitive }
func (arrayType) TypeName() string      { return "array" }

// Elem returns the element type.
func (t arrayType) Elem() storemodel.Type { return t.elem }

func (t arrayType) Cast(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		decoded, err := storemodel.Unmarshal([]byte(v))
		if err != nil {
			return []any{}, nil
		}
		seq, ok := decoded.([]any)
		if !ok {
			return nil, &storemodel.CastError{Value: raw, Allowed: "sequences"}
		}
		return t.castAll(seq)
	case []any:
		return t.castAll(v)
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &storemodel.CastError{Value: raw, Allowed: "sequences"}
	}
	seq := make([]any, rv.Len())
	for n := range seq {
		seq[n] = rv.Index(n).Interface()
	}
	return t.castAll(seq)
}

func (t arrayType) castAll(seq []any) (any, error) {
	out := make([]any, len(seq))
	for n, e := range seq {
		v, err := t.elem.Cast(e)
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}

func (t arrayType) Serialize(v any) (any, error) {
	seq, ok := v.([]any)
	if !ok {
		return v, nil
	}
	out := make([]any, len(seq))
	for n, e := range seq {
		w, err := t.elem.Serialize(e)
		if err != nil {
			return nil, err
		}
		out[n] = w
	}
	return out, nil
}

func (t arrayType) Changed(oldRaw, v any) bool { return storemodel.Changed(t, oldRaw, v) }
