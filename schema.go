package storemodel

import (
	"fmt"

	"go.uber.org/multierr"
)

// DefaultDiscriminator is the attribute name used by Discriminator when
// name is empty.
const DefaultDiscriminator = "type"

// envelopeKey is the wrapper key whose map entries are assigned as if they
// were top-level keys, unless a schema declares it as an attribute.
const envelopeKey = "attributes"

// Attribute is one declared attribute of a Schema.
type Attribute struct {
	name       string
	typ        Type
	def        any
	defFn      func() any
	hasDefault bool
}

func (a *Attribute) Name() string { return a.name }
func (a *Attribute) Type() Type   { return a.typ }

// Default returns the declared default (evaluating DefaultFunc) and whether
// one was declared.
func (a *Attribute) Default() (any, bool) {
	if !a.hasDefault {
		return nil, false
	}
	if a.defFn != nil {
		return a.defFn(), true
	}
	return a.def, true
}

// AttributeOption configures an attribute declaration.
type AttributeOption func(*Attribute)

// Default declares a default value; it is cast through the attribute type on
// every New. Mutable defaults should use DefaultFunc.
func Default(v any) AttributeOption {
	return func(a *Attribute) { a.def, a.hasDefault = v, true }
}

// DefaultFunc declares a default computed per instance.
func DefaultFunc(fn func() any) AttributeOption {
	return func(a *Attribute) { a.defFn, a.hasDefault = fn, true }
}

// Schema is a named, ordered, immutable set of attribute declarations.
type Schema struct {
	name      string
	attrs     []*Attribute
	index     map[string]*Attribute
	aliases   map[string]string
	discName  string
	discValue any
	rules     []rule
	hooks     []AttributeWrittenHook
	coder     KeyCoder
	cfg       *Config
	built     bool
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

func (s *Schema) String() string { return s.name }

// AttributeNames returns declared names in declaration order.
func (s *Schema) AttributeNames() []string {
	out := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		out[i] = a.name
	}
	return out
}

// Attribute returns the declaration for a declared name.
func (s *Schema) Attribute(name string) (*Attribute, bool) {
	a, ok := s.index[name]
	return a, ok
}

// TypeFor returns the Type of a declared or aliased attribute, or nil.
func (s *Schema) TypeFor(name string) Type {
	if a, ok := s.index[s.resolveAlias(name)]; ok {
		return a.typ
	}
	return nil
}

// HasAttribute reports whether name is declared or aliased.
func (s *Schema) HasAttribute(name string) bool {
	_, ok := s.index[s.resolveAlias(name)]
	return ok
}

// Aliases returns a copy of the alias table (alias -> attribute).
func (s *Schema) Aliases() map[string]string {
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// Discriminator returns the discriminator attribute name and its declared
// value; ok is false when the schema declares none.
func (s *Schema) Discriminator() (name string, value any, ok bool) {
	if s.discName == "" {
		return "", nil, false
	}
	return s.discName, s.discValue, true
}

// DiscriminatorName returns the discriminator attribute name, or "".
func (s *Schema) DiscriminatorName() string { return s.discName }

// DiscriminatorValue returns the value the schema declares for its
// discriminator, or nil.
func (s *Schema) DiscriminatorValue() any { return s.discValue }

// Config returns the schema's Config, falling back to Global().
func (s *Schema) Config() *Config { return resolveConfig(s.cfg) }

func (s *Schema) resolveAlias(name string) string {
	if target, ok := s.aliases[name]; ok {
		return target
	}
	return name
}

// One returns the single-value container type for s.
func (s *Schema) One() *One { return &One{kind: KindOne, elem: schemaElement{s}} }

// Many returns the collection container type for s.
func (s *Schema) Many() *Many { return &Many{kind: KindMany, elem: schemaElement{s}} }

// Hash returns the keyed container type for s.
func (s *Schema) Hash() *Hash { return &Hash{kind: KindHash, elem: schemaElement{s}} }

// SchemaBuilder declares a Schema. Declaration errors are collected and
// reported together by Build.
type SchemaBuilder struct {
	s    *Schema
	errs error
}

// NewSchema starts a schema declaration.
func NewSchema(name string) *SchemaBuilder {
	return &SchemaBuilder{s: &Schema{
		name:    name,
		index:   map[string]*Attribute{},
		aliases: map[string]string{},
	}}
}

func (b *SchemaBuilder) fail(format string, args ...any) {
	b.errs = multierr.Append(b.errs, &SchemaError{Schema: b.s.name, Reason: fmt.Sprintf(format, args...)})
}

// Attribute declares an attribute.
func (b *SchemaBuilder) Attribute(name string, t Type, opts ...AttributeOption) *SchemaBuilder {
	switch {
	case name == "":
		b.fail("attribute name is empty")
		return b
	case t == nil:
		b.fail("attribute %q has no type", name)
		return b
	}
	if _, dup := b.s.index[name]; dup {
		b.fail("attribute %q is declared twice", name)
		return b
	}
	a := &Attribute{name: name, typ: t}
	for _, opt := range opts {
		opt(a)
	}
	b.s.attrs = append(b.s.attrs, a)
	b.s.index[name] = a
	return b
}

// Alias makes alias an alternative name for target in New and Fetch.
func (b *SchemaBuilder) Alias(alias, target string) *SchemaBuilder {
	b.s.aliases[alias] = target
	return b
}

// Discriminator declares the attribute a union resolves on. The attribute
// defaults to value and may still be overridden per instance. An empty name
// means DefaultDiscriminator; a nil type passes values through.
func (b *SchemaBuilder) Discriminator(name string, t Type, value any) *SchemaBuilder {
	if name == "" {
		name = DefaultDiscriminator
	}
	if t == nil {
		t = valueType{}
	}
	if b.s.discName != "" {
		b.fail("discriminator declared twice (%q and %q)", b.s.discName, name)
		return b
	}
	cast, err := t.Cast(value)
	if err != nil {
		b.errs = multierr.Append(b.errs, fmt.Errorf("storemodel: discriminator %q of %s: %w", name, b.s.name, err))
		return b
	}
	b.s.discName, b.s.discValue = name, cast
	return b.Attribute(name, t, Default(cast))
}

// WithKeyCoder installs a key transformer applied on load and dump.
func (b *SchemaBuilder) WithKeyCoder(c KeyCoder) *SchemaBuilder {
	b.s.coder = c
	return b
}

// WithConfig binds the schema (and the container types derived from it) to cfg.
func (b *SchemaBuilder) WithConfig(cfg *Config) *SchemaBuilder {
	b.s.cfg = cfg
	return b
}

// OnAttributeWritten registers a hook invoked after every attribute write.
func (b *SchemaBuilder) OnAttributeWritten(h AttributeWrittenHook) *SchemaBuilder {
	if h != nil {
		b.s.hooks = append(b.s.hooks, h)
	}
	return b
}

// Build validates the declaration and returns the immutable Schema.
func (b *SchemaBuilder) Build() (*Schema, error) {
	s := b.s
	errs := b.errs
	for alias, target := range s.aliases {
		if _, ok := s.index[target]; !ok {
			errs = multierr.Append(errs, &SchemaError{Schema: s.name, Reason: fmt.Sprintf("alias %q points at undeclared attribute %q", alias, target)})
		}
		if _, clash := s.index[alias]; clash {
			errs = multierr.Append(errs, &SchemaError{Schema: s.name, Reason: fmt.Sprintf("alias %q shadows a declared attribute", alias)})
		}
	}
	for _, r := range s.rules {
		if err := r.check(s); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}
	s.built = true
	b.s = nil
	return s, nil
}

// MustBuild is Build that panics on error.
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
