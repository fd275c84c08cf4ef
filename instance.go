package storemodel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Instance is a value conforming to a Schema: cast attribute values, the
// unknown-attributes overflow table, a non-owning parent pointer and
// serialization preference overrides.
type Instance struct {
	schema  *Schema
	values  map[string]any
	unknown map[string]any
	// parent is a lookup pointer only; the parent owns this instance.
	parent any
	errors *Errors

	serializeUnknown *bool
	enumsAsLabel     *bool
}

// New builds an instance from attrs. Keys the schema neither declares nor
// aliases yield *UnrecognizedAttributeError; container casts recover from it,
// callers of New see it. An "attributes" key that is not itself declared is
// treated as an envelope whose entries are assigned.
func (s *Schema) New(attrs map[string]any) (*Instance, error) {
	return s.construct(s.load(attrs))
}

// MustNew is New that panics on error.
func (s *Schema) MustNew(attrs map[string]any) *Instance {
	inst, err := s.New(attrs)
	if err != nil {
		panic(err)
	}
	return inst
}

func (s *Schema) load(attrs map[string]any) map[string]any {
	if s.coder == nil || attrs == nil {
		return attrs
	}
	return s.coder.Load(attrs)
}

func (s *Schema) construct(attrs map[string]any) (*Instance, error) {
	inst := &Instance{
		schema:  s,
		values:  make(map[string]any, len(s.attrs)),
		unknown: map[string]any{},
		errors:  &Errors{},
	}
	for _, a := range s.attrs {
		inst.values[a.name] = nil
		dv, ok := a.Default()
		if !ok {
			continue
		}
		if err := inst.write(a, dv); err != nil {
			return nil, fmt.Errorf("storemodel: default of %s.%s: %w", s.name, a.name, err)
		}
	}
	for _, k := range sortedKeys(attrs) {
		v := attrs[k]
		if k == envelopeKey && !s.HasAttribute(envelopeKey) {
			env, ok := v.(map[string]any)
			if !ok {
				return nil, &UnrecognizedAttributeError{Schema: s.name, Attribute: k}
			}
			for _, ek := range sortedKeys(env) {
				if err := inst.assign(ek, env[ek]); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := inst.assign(k, v); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// assign writes a declared or aliased attribute during construction.
func (i *Instance) assign(name string, raw any) error {
	a, ok := i.schema.index[i.schema.resolveAlias(name)]
	if !ok {
		return &UnrecognizedAttributeError{Schema: i.schema.name, Attribute: name}
	}
	return i.write(a, raw)
}

// write casts raw through the attribute type, stores it, assigns parents and
// runs the schema's write hooks.
func (i *Instance) write(a *Attribute, raw any) error {
	v, err := a.typ.Cast(raw)
	if err != nil {
		return err
	}
	i.values[a.name] = v
	if i.schema.Config().EnableParentAssignment {
		AssignParent(i, v)
	}
	for _, h := range i.schema.hooks {
		h(i, a.name, v)
	}
	return nil
}

// Schema returns the schema i conforms to.
func (i *Instance) Schema() *Schema { return i.schema }

// Get reads a declared attribute directly. Undeclared names (aliases
// included) yield *KeyNotFoundError; declared-but-unset attributes read nil.
func (i *Instance) Get(name string) (any, error) {
	if _, ok := i.schema.index[name]; !ok {
		return nil, &KeyNotFoundError{Name: name}
	}
	return i.values[name], nil
}

// Set casts value through the declared attribute type and stores it.
func (i *Instance) Set(name string, value any) error {
	a, ok := i.schema.index[name]
	if !ok {
		return &UnrecognizedAttributeError{Schema: i.schema.name, Attribute: name}
	}
	return i.write(a, value)
}

// MustGet is Get that panics on error.
func (i *Instance) MustGet(name string) any {
	v, err := i.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Fetch returns the value of a declared or aliased attribute.
func (i *Instance) Fetch(name string) (any, error) {
	target := i.schema.resolveAlias(name)
	if _, ok := i.schema.index[target]; !ok {
		return nil, &KeyNotFoundError{Name: name}
	}
	return i.values[target], nil
}

// HasAttribute reports whether name is declared or aliased.
func (i *Instance) HasAttribute(name string) bool { return i.schema.HasAttribute(name) }

// Attributes returns a copy of the declared attribute values.
func (i *Instance) Attributes() map[string]any {
	return cloneMap(i.values)
}

// UnknownAttributes returns the live table of wire keys the schema does not
// declare. Mutations are visible to serialization.
func (i *Instance) UnknownAttributes() map[string]any { return i.unknown }

// Parent returns the enclosing value, if any.
func (i *Instance) Parent() any { return i.parent }

// SetParent records the enclosing value. Last write wins.
func (i *Instance) SetParent(p any) { i.parent = p }

// EnumLabel returns the label of an enum attribute's current ordinal.
func (i *Instance) EnumLabel(name string) (string, error) {
	v, err := i.Fetch(name)
	if err != nil {
		return "", err
	}
	l, ok := i.schema.TypeFor(name).(EnumLabeler)
	if !ok {
		return "", &SchemaError{Schema: i.schema.name, Reason: fmt.Sprintf("attribute %q is not an enum", name)}
	}
	label, _ := l.Label(v)
	return label, nil
}

// EnumIs reports whether an enum attribute currently holds label.
func (i *Instance) EnumIs(name, label string) bool {
	got, err := i.EnumLabel(name)
	return err == nil && got == label
}

// Equal reports value equality: both instances conform to the same schema and
// every declared attribute is pairwise equal. Instances of different schemas
// are equal only when they are the same pointer.
func (i *Instance) Equal(o *Instance) bool {
	if i == o {
		return true
	}
	if i == nil || o == nil || i.schema != o.schema {
		return false
	}
	for _, a := range i.schema.attrs {
		if !Equal(i.values[a.name], o.values[a.name]) {
			return false
		}
	}
	return true
}

// Blank reports whether every attribute value is blank.
func (i *Instance) Blank() bool {
	for _, v := range i.values {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}

// String renders the instance as #<Name attr: value, ...> in declaration order.
func (i *Instance) String() string {
	if i == nil {
		return "nil"
	}
	var b strings.Builder
	b.WriteString("#<")
	b.WriteString(i.schema.name)
	for n, a := range i.schema.attrs {
		if n == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		v := i.values[a.name]
		if isNil(v) {
			fmt.Fprintf(&b, "%s: nil", a.name)
			continue
		}
		fmt.Fprintf(&b, "%s: %v", a.name, v)
	}
	b.WriteByte('>')
	return b.String()
}

// Errors returns the instance's validation error sink.
func (i *Instance) Errors() *Errors { return i.errors }

// SetSerializeUnknownAttributes overrides the unknown-attribute inclusion
// preference for this instance; nil restores the configured default.
func (i *Instance) SetSerializeUnknownAttributes(v *bool) { i.serializeUnknown = v }

// SetSerializeEnumsAsLabel overrides enum label rendering for this instance;
// nil restores the configured default.
func (i *Instance) SetSerializeEnumsAsLabel(v *bool) { i.enumsAsLabel = v }

// SerializeUnknownAttributes returns the effective inclusion preference.
func (i *Instance) SerializeUnknownAttributes() bool {
	if i.serializeUnknown != nil {
		return *i.serializeUnknown
	}
	return i.schema.Config().SerializeUnknownAttributes
}

// SerializeEnumsAsLabel returns the effective label rendering preference.
func (i *Instance) SerializeEnumsAsLabel() bool {
	if i.enumsAsLabel != nil {
		return *i.enumsAsLabel
	}
	return i.schema.Config().SerializeEnumsAsLabel
}

// AssignParent points every instance held by value (directly, or as an
// element of a slice or map) at parent.
func AssignParent(parent, value any) {
	switch v := value.(type) {
	case *Instance:
		if v != nil {
			v.parent = parent
		}
	case []*Instance:
		for _, c := range v {
			AssignParent(parent, c)
		}
	case map[string]*Instance:
		for _, c := range v {
			AssignParent(parent, c)
		}
	case []any:
		for _, c := range v {
			AssignParent(parent, c)
		}
	case map[string]any:
		for _, c := range v {
			AssignParent(parent, c)
		}
	}
}

// AttributeWrittenHook is invoked after an attribute write (construction
// included) with the cast value.
type AttributeWrittenHook func(inst *Instance, name string, value any)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asUnrecognized extracts an UnrecognizedAttributeError raised for s itself.
func asUnrecognized(s *Schema, err error) (*UnrecognizedAttributeError, bool) {
	var ue *UnrecognizedAttributeError
	if errors.As(err, &ue) && ue.Schema == s.name {
		return ue, true
	}
	return nil, false
}
