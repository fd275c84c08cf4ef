package storemodel

import (
	"math"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind identifies the variant of an attribute Type.
type Kind int

const (
	KindPrimitive Kind = iota
	KindEnum
	KindOne
	KindMany
	KindHash
	KindOnePolymorphic
	KindManyPolymorphic
	KindHashPolymorphic
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindOne:
		return "one"
	case KindMany:
		return "many"
	case KindHash:
		return "hash"
	case KindOnePolymorphic:
		return "one_polymorphic"
	case KindManyPolymorphic:
		return "many_polymorphic"
	case KindHashPolymorphic:
		return "hash_polymorphic"
	}
	return "unknown"
}

// Shape groups kinds by how many nested instances they hold.
type Shape int

const (
	ShapeScalar  Shape = iota // primitives and enums
	ShapeSingle               // One, polymorphic One
	ShapeIndexed              // Many, polymorphic Many
	ShapeKeyed                // Hash, polymorphic Hash
)

// Shape returns the container shape of k.
func (k Kind) Shape() Shape {
	switch k {
	case KindOne, KindOnePolymorphic:
		return ShapeSingle
	case KindMany, KindManyPolymorphic:
		return ShapeIndexed
	case KindHash, KindHashPolymorphic:
		return ShapeKeyed
	}
	return ShapeScalar
}

// Container reports whether k holds nested model instances.
func (k Kind) Container() bool { return k.Shape() != ShapeScalar }

// Type converts between wire values and in-memory attribute values.
//
// Cast must be idempotent: Cast(Serialize(Cast(x))) equals Cast(x) for every
// well-formed x.
type Type interface {
	Kind() Kind
	// Cast converts a wire value (text, decoded JSON, or an already typed
	// value) into the in-memory representation.
	Cast(raw any) (any, error)
	// Serialize converts an in-memory value back to its wire form. Scalar
	// types return scalars; container types return JSON text.
	Serialize(v any) (any, error)
	// Changed reports whether newValue differs from the value oldRaw casts to.
	Changed(oldRaw, newValue any) bool
}

// EnumLabeler is implemented by enum types so that serialization can render
// ordinals as labels. The primitive encode step has no schema knowledge, so
// label rendering runs as a post pass over the encoded attributes.
type EnumLabeler interface {
	Label(v any) (string, bool)
}

// Changed is the shared Type.Changed rule: the old raw value is cast again and
// compared to newValue by value. A failing cast counts as a change.
func Changed(t Type, oldRaw, newValue any) bool {
	old, err := t.Cast(oldRaw)
	if err != nil {
		return true
	}
	return !Equal(old, newValue)
}

// valueType is the pass-through Type used for discriminators declared without
// an explicit type. Numbers are held as int64, or float64 when not integral,
// so a value read back from the wire equals the declared one.
type valueType struct{}

func (valueType) Kind() Kind                   { return KindPrimitive }
func (valueType) Cast(raw any) (any, error)    { return canonicalScalar(raw), nil }
func (valueType) Serialize(v any) (any, error) { return v, nil }
func (t valueType) Changed(oldRaw, v any) bool { return Changed(t, oldRaw, v) }

func canonicalScalar(v any) any {
	var f float64
	switch x := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return n
		}
		parsed, err := x.Float64()
		if err != nil {
			return v
		}
		f = parsed
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if u := rv.Uint(); u <= math.MaxInt64 {
				return int64(u)
			}
			return v
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		default:
			return v
		}
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
