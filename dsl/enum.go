package dsl

import (
	"fmt"
	"strings"

	"github.com/reoring/storemodel"
)

// EnumPair binds a label to its stored ordinal.
type EnumPair struct {
	Label   string
	Ordinal int64
}

// Pair is shorthand for EnumPair{label, ordinal}.
func Pair(label string, ordinal int64) EnumPair { return EnumPair{Label: label, Ordinal: ordinal} }

// EnumType maps labels to integer ordinals. Casting accepts either a label
// or an ordinal present in the mapping and stores the ordinal; serialization
// writes the ordinal, and the label is rendered by the instance when label
// rendering is enabled.
type EnumType struct {
	pairs     []EnumPair
	byLabel   map[string]int64
	byOrdinal map[int64]string
	// lenient passes unmapped values through instead of failing.
	lenient bool
}

var _ storemodel.EnumLabeler = (*EnumType)(nil)

// NewEnum validates pairs: labels must be non-empty, and both labels and
// ordinals unique.
func NewEnum(pairs ...EnumPair) (*EnumType, error) {
	e := &EnumType{
		pairs:     append([]EnumPair(nil), pairs...),
		byLabel:   make(map[string]int64, len(pairs)),
		byOrdinal: make(map[int64]string, len(pairs)),
	}
	for _, p := range pairs {
		if p.Label == "" {
			return nil, fmt.Errorf("dsl: enum label for ordinal %d is empty", p.Ordinal)
		}
		if _, dup := e.byLabel[p.Label]; dup {
			return nil, fmt.Errorf("dsl: enum label %q is declared twice", p.Label)
		}
		if other, dup := e.byOrdinal[p.Ordinal]; dup {
			return nil, fmt.Errorf("dsl: enum ordinal %d is shared by %q and %q", p.Ordinal, other, p.Label)
		}
		e.byLabel[p.Label] = p.Ordinal
		e.byOrdinal[p.Ordinal] = p.Label
	}
	return e, nil
}

// Enum is NewEnum that panics on an invalid mapping.
func Enum(pairs ...EnumPair) *EnumType {
	e, err := NewEnum(pairs...)
	if err != nil {
		panic(err)
	}
	return e
}

// EnumOf numbers labels from zero in the given order.
func EnumOf(labels ...string) *EnumType {
	pairs := make([]EnumPair, len(labels))
	for n, l := range labels {
		pairs[n] = Pair(l, int64(n))
	}
	return Enum(pairs...)
}

// RaiseOnInvalid returns a copy of e that fails on unmapped values (the
// default) or, with false, keeps them unchanged.
func (e *EnumType) RaiseOnInvalid(raise bool) *EnumType {
	cp := *e
	cp.lenient = !raise
	return &cp
}

// Pairs returns the mapping in declaration order.
func (e *EnumType) Pairs() []EnumPair { return append([]EnumPair(nil), e.pairs...) }

// Labels returns the labels in declaration order.
func (e *EnumType) Labels() []string {
	out := make([]string, len(e.pairs))
	for n, p := range e.pairs {
		out[n] = p.Label
	}
	return out
}

// Ordinal returns the ordinal mapped to label.
func (e *EnumType) Ordinal(label string) (int64, bool) {
	n, ok := e.byLabel[label]
	return n, ok
}

// Label returns the label of an ordinal given in any numeric form.
func (e *EnumType) Label(v any) (string, bool) {
	n, ok, _ := toInt64(v)
	if !ok {
		return "", false
	}
	l, ok := e.byOrdinal[n]
	return l, ok
}

func (e *EnumType) Kind() storemodel.Kind { return storemodel.KindEnum }

func (e *EnumType) TypeName() string { return "enum" }

// Cast maps a label to its ordinal and checks an ordinal against the
// mapping. nil and whitespace-only text cast to nil.
func (e *EnumType) Cast(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		if n, mapped := e.byLabel[s]; mapped {
			return n, nil
		}
		// Ordinals persisted as text still load.
		if n, isInt, _ := toInt64(strings.TrimSpace(s)); isInt {
			if _, mapped := e.byOrdinal[n]; mapped {
				return n, nil
			}
		}
		return e.invalid(raw)
	}
	n, isInt, numeric := toInt64(raw)
	if !numeric {
		return nil, &storemodel.CastError{Value: raw, Allowed: "text or integers"}
	}
	if !isInt {
		return e.invalid(raw)
	}
	if _, mapped := e.byOrdinal[n]; !mapped {
		return e.invalid(raw)
	}
	return n, nil
}

// invalid keeps an unmapped value when the enum is lenient. Numbers are
// stored as int64 (or float64) so they compare equal after a wire round trip.
func (e *EnumType) invalid(raw any) (any, error) {
	if e.lenient {
		if _, text := raw.(string); text {
			return raw, nil
		}
		if n, exact, _ := toInt64(raw); exact {
			return n, nil
		}
		if f, ok := toFloat64(raw); ok {
			return f, nil
		}
		return raw, nil
	}
	return nil, &storemodel.InvalidEnumValueError{Value: raw}
}

// Serialize writes the stored ordinal.
func (e *EnumType) Serialize(v any) (any, error) { return v, nil }

func (e *EnumType) Changed(oldRaw, v any) bool { return storemodel.Changed(e, oldRaw, v) }
