package storemodel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
)

// Union builds a Polymorphic that dispatches on the discriminator attribute
// (DefaultDiscriminator when empty). Every schema must supply a non-blank
// value for it and no two may share one; all violations are reported together
// before any value is cast.
func Union(schemas []*Schema, discriminator string) (*Polymorphic, error) {
	if discriminator == "" {
		discriminator = DefaultDiscriminator
	}
	table := make(map[string]*Schema, len(schemas))
	var errs error
	for _, s := range schemas {
		if s == nil {
			errs = multierr.Append(errs, &ExpandWrapperError{})
			continue
		}
		v, ok := discriminatorValue(s, discriminator)
		if !ok || IsBlank(v) {
			errs = multierr.Append(errs, &DiscriminatorError{
				Kind:          CodeDiscriminatorMissing,
				Schema:        s.name,
				Discriminator: discriminator,
			})
			continue
		}
		key := canonicalKey(v)
		if other, dup := table[key]; dup {
			errs = multierr.Append(errs, &DiscriminatorError{
				Kind:          CodeDiscriminatorDuplicate,
				Schema:        s.name,
				Other:         other.name,
				Discriminator: discriminator,
				Value:         v,
			})
			continue
		}
		table[key] = s
	}
	if errs != nil {
		return nil, errs
	}
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.name
	}
	p := &Polymorphic{
		label:   "union(" + strings.Join(names, ", ") + ")",
		schemas: append([]*Schema(nil), schemas...),
	}
	p.resolve = func(payload map[string]any) (*Schema, error) {
		v, present := payload[discriminator]
		if !present || v == nil {
			return nil, &DiscriminatorError{Kind: CodeDiscriminatorAbsent, Discriminator: discriminator}
		}
		s, ok := table[canonicalKey(v)]
		if !ok {
			return nil, &DiscriminatorError{Kind: CodeDiscriminatorUnknown, Discriminator: discriminator, Value: v}
		}
		return s, nil
	}
	return p, nil
}

// MustUnion is Union that panics on error.
func MustUnion(schemas []*Schema, discriminator string) *Polymorphic {
	p, err := Union(schemas, discriminator)
	if err != nil {
		panic(err)
	}
	return p
}

// discriminatorValue reads the value a schema pins for key: the declared
// discriminator when the names match, else the default of a plain attribute
// of that name.
func discriminatorValue(s *Schema, key string) (any, bool) {
	if s.discName == key {
		return s.discValue, true
	}
	a, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return a.Default()
}

// canonicalKey folds values that print alike into one lookup key, so that a
// payload ordinal decoded as json.Number or float64 still matches an int
// declared in Go.
func canonicalKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return canonicalNumber(string(x))
	case fmt.Stringer:
		return x.String()
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return canonicalNumber(fmt.Sprint(v))
}

func canonicalNumber(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}
