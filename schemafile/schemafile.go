// Package schemafile compiles YAML schema declarations into storemodel
// schemas and unions.
//
// A document declares an optional config block, named schemas and named
// unions:
//
//	config:
//	  merge_array_errors: merge_indexed
//	schemas:
//	  Email:
//	    discriminator: {name: channel, value: email}
//	    attributes:
//	      - {name: address, type: string}
//	  Product:
//	    attributes:
//	      - {name: status, type: enum, labels: [draft, live]}
//	      - {name: notifications, type: many, union: Notification}
//	    validates:
//	      nested: [{name: notifications, allow_nil: true}]
//	unions:
//	  Notification:
//	    discriminator: channel
//	    schemas: [Email]
//
// Schemas may reference each other in any order; references are compiled
// depth first and cycles are reported as errors.
package schemafile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/reoring/storemodel"
	"github.com/reoring/storemodel/dsl"
	"github.com/reoring/storemodel/rules"
)

// Document is the decoded form of a schema file.
type Document struct {
	Config  yaml.Node             `yaml:"config"`
	Schemas map[string]SchemaDecl `yaml:"schemas"`
	Unions  map[string]UnionDecl  `yaml:"unions"`
}

type SchemaDecl struct {
	// KeyCoder is "" or "camel_case".
	KeyCoder      string             `yaml:"key_coder"`
	Discriminator *DiscriminatorDecl `yaml:"discriminator"`
	Attributes    []AttributeDecl    `yaml:"attributes"`
	Aliases       map[string]string  `yaml:"aliases"`
	Validates     ValidationDecl     `yaml:"validates"`
}

type DiscriminatorDecl struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// AttributeDecl declares one attribute. Type is a primitive name (string,
// integer, float, boolean, time, raw), "array" with Of naming the element
// primitive, "enum" with Values or Labels, or a container kind (one, many,
// hash) referencing either a Schema or a Union.
type AttributeDecl struct {
	Name           string           `yaml:"name"`
	Type           string           `yaml:"type"`
	Of             string           `yaml:"of"`
	Schema         string           `yaml:"schema"`
	Union          string           `yaml:"union"`
	Default        any              `yaml:"default"`
	Values         map[string]int64 `yaml:"values"`
	Labels         []string         `yaml:"labels"`
	RaiseOnInvalid *bool            `yaml:"raise_on_invalid"`
}

type ValidationDecl struct {
	Presence []string     `yaml:"presence"`
	Nested   []NestedDecl `yaml:"nested"`
	// Inclusion maps an attribute to its allowed values.
	Inclusion  map[string][]any `yaml:"inclusion"`
	AtLeastOne []string         `yaml:"at_least_one"`
	// UniqueBy maps a collection attribute to the element key that must be
	// unique.
	UniqueBy map[string]string `yaml:"unique_by"`
	When     []WhenDecl        `yaml:"when"`
}

// WhenDecl runs nested validations only while an attribute equals a value.
type WhenDecl struct {
	Attribute string         `yaml:"attribute"`
	Equals    any            `yaml:"equals"`
	Validates ValidationDecl `yaml:"validates"`
}

// NestedDecl mirrors storemodel.NestedOptions; selectors accept the same
// values as the config keys (true, false or a strategy name).
type NestedDecl struct {
	Name             string `yaml:"name"`
	MergeErrors      any    `yaml:"merge_errors"`
	MergeArrayErrors any    `yaml:"merge_array_errors"`
	MergeHashErrors  any    `yaml:"merge_hash_errors"`
	AllowNil         bool   `yaml:"allow_nil"`
}

type UnionDecl struct {
	Discriminator string   `yaml:"discriminator"`
	Schemas       []string `yaml:"schemas"`
}

// Registry holds the compiled schemas and unions of one document.
type Registry struct {
	cfg     *storemodel.Config
	schemas map[string]*storemodel.Schema
	unions  map[string]*storemodel.Polymorphic
}

// Schema returns the compiled schema called name.
func (r *Registry) Schema(name string) (*storemodel.Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Union returns the compiled union called name.
func (r *Registry) Union(name string) (*storemodel.Polymorphic, bool) {
	u, ok := r.unions[name]
	return u, ok
}

// Config returns the config the registry's schemas are bound to.
func (r *Registry) Config() *storemodel.Config {
	if r.cfg == nil {
		return storemodel.Global()
	}
	return r.cfg
}

// Names returns the schema names in sorted order.
func (r *Registry) Names() []string { return sortedNames(r.schemas) }

// UnionNames returns the union names in sorted order.
func (r *Registry) UnionNames() []string { return sortedNames(r.unions) }

// Type returns the container type of kind ("one", "many" or "hash") over the
// schema or union called name. Schemas shadow unions of the same name.
func (r *Registry) Type(name, kind string) (storemodel.Type, error) {
	var src containerSource
	if s, ok := r.schemas[name]; ok {
		src = s
	} else if u, ok := r.unions[name]; ok {
		src = u
	} else {
		return nil, fmt.Errorf("schemafile: no schema or union named %q", name)
	}
	return containerOf(src, kind)
}

// Option configures Load.
type Option func(*options)

type options struct {
	base *storemodel.Config
}

// WithBaseConfig seeds the document's config block with base instead of the
// built-in defaults. Without a config block the schemas are bound to base.
func WithBaseConfig(base *storemodel.Config) Option {
	return func(o *options) { o.base = base }
}

// Load decodes and compiles a schema document. Unknown keys are rejected.
// All declaration errors found are returned together.
func Load(r io.Reader, opts ...Option) (*Registry, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schemafile: decode: %w", err)
	}
	return Compile(&doc, opts...)
}

// LoadFile is Load over the file at path.
func LoadFile(path string, opts ...Option) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: open: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f, opts...)
}

// Compile builds the schemas and unions declared in doc.
func Compile(doc *Document, opts ...Option) (*Registry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.base
	if !doc.Config.IsZero() {
		if cfg == nil {
			cfg = storemodel.DefaultConfig()
		} else {
			cfg = cfg.Clone()
		}
		if err := doc.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("schemafile: decode config: %w", err)
		}
	}

	c := &compiler{
		doc:   doc,
		reg:   &Registry{cfg: cfg, schemas: map[string]*storemodel.Schema{}, unions: map[string]*storemodel.Polymorphic{}},
		state: map[string]visit{},
	}
	for _, name := range sortedNames(doc.Schemas) {
		_, _ = c.schema(name, nil)
	}
	for _, name := range sortedNames(doc.Unions) {
		_, _ = c.union(name, nil)
	}
	if c.errs != nil {
		return nil, c.errs
	}
	return c.reg, nil
}

type visit int

const (
	_ visit = iota
	visiting
	done
	failed
)

// errDependency marks a declaration that failed or references one that
// did; the root cause is recorded once in compiler.errs.
var errDependency = errors.New("schemafile: dependency failed")

type compiler struct {
	doc   *Document
	reg   *Registry
	state map[string]visit
	errs  error
}

// fail records err and returns errDependency for the referencing
// declarations to propagate.
func (c *compiler) fail(err error) error {
	c.errs = multierr.Append(c.errs, err)
	return errDependency
}

// enter marks key as being compiled. It reports a cycle when key is already
// on path, and errDependency when key failed earlier.
func (c *compiler) enter(key string, path []string) (bool, error) {
	switch c.state[key] {
	case done:
		return false, nil
	case failed:
		return false, errDependency
	case visiting:
		cycle := append(append([]string(nil), path...), key)
		return false, c.fail(fmt.Errorf("schemafile: reference cycle: %s", strings.Join(cycle, " -> ")))
	}
	c.state[key] = visiting
	return true, nil
}

func (c *compiler) leave(key string, err error) {
	if err != nil {
		c.state[key] = failed
		return
	}
	c.state[key] = done
}

func (c *compiler) schema(name string, path []string) (s *storemodel.Schema, err error) {
	key := "schema " + name
	decl, ok := c.doc.Schemas[name]
	if !ok {
		return nil, fmt.Errorf("undeclared schema %q", name)
	}
	fresh, err := c.enter(key, path)
	if !fresh {
		return c.reg.schemas[name], err
	}
	defer func() { c.leave(key, err) }()
	path = append(path, key)

	b := storemodel.NewSchema(name)
	if cfg := c.reg.cfg; cfg != nil {
		b.WithConfig(cfg)
	}
	var declErrs error
	if d := decl.Discriminator; d != nil {
		t, err := primitive(d.Type)
		if err != nil {
			declErrs = multierr.Append(declErrs, fmt.Errorf("discriminator: %w", err))
		} else {
			b.Discriminator(d.Name, t, d.Value)
		}
	}
	switch decl.KeyCoder {
	case "":
	case "camel_case", "camel":
		b.WithKeyCoder(storemodel.CamelCase{})
	default:
		declErrs = multierr.Append(declErrs, fmt.Errorf("unknown key coder %q", decl.KeyCoder))
	}
	for _, a := range decl.Attributes {
		t, err := c.attributeType(a, path)
		if errors.Is(err, errDependency) {
			return nil, err
		}
		if err != nil {
			declErrs = multierr.Append(declErrs, fmt.Errorf("attribute %q: %w", a.Name, err))
			continue
		}
		var opts []storemodel.AttributeOption
		if a.Default != nil {
			opts = append(opts, storemodel.Default(a.Default))
		}
		b.Attribute(a.Name, t, opts...)
	}
	for _, alias := range sortedNames(decl.Aliases) {
		b.Alias(alias, decl.Aliases[alias])
	}
	if len(decl.Validates.Presence) > 0 {
		b.ValidatesPresence(decl.Validates.Presence...)
	}
	for _, fn := range ruleSet(decl.Validates, false) {
		b.Validate(fn)
	}
	for _, w := range decl.Validates.When {
		b.Validate(rules.If(w.Attribute, rules.Eq, w.Equals).Then(ruleSet(w.Validates, true)...))
	}
	for _, n := range decl.Validates.Nested {
		opts := []storemodel.NestedOption{
			storemodel.WithMergeErrors(n.MergeErrors),
			storemodel.WithMergeArrayErrors(n.MergeArrayErrors),
			storemodel.WithMergeHashErrors(n.MergeHashErrors),
		}
		if n.AllowNil {
			opts = append(opts, storemodel.AllowNil())
		}
		b.ValidatesNested(n.Name, opts...)
	}
	if declErrs != nil {
		return nil, c.fail(fmt.Errorf("schemafile: schema %q: %w", name, declErrs))
	}
	s, err = b.Build()
	if err != nil {
		return nil, c.fail(fmt.Errorf("schemafile: %w", err))
	}
	c.reg.schemas[name] = s
	return s, nil
}

func (c *compiler) union(name string, path []string) (u *storemodel.Polymorphic, err error) {
	key := "union " + name
	decl, ok := c.doc.Unions[name]
	if !ok {
		return nil, fmt.Errorf("undeclared union %q", name)
	}
	fresh, err := c.enter(key, path)
	if !fresh {
		return c.reg.unions[name], err
	}
	defer func() { c.leave(key, err) }()
	path = append(path, key)

	if len(decl.Schemas) == 0 {
		return nil, c.fail(fmt.Errorf("schemafile: union %q lists no schemas", name))
	}
	members := make([]*storemodel.Schema, 0, len(decl.Schemas))
	for _, sn := range decl.Schemas {
		s, err := c.schema(sn, path)
		if errors.Is(err, errDependency) {
			return nil, err
		}
		if err != nil {
			return nil, c.fail(fmt.Errorf("schemafile: union %q: %w", name, err))
		}
		members = append(members, s)
	}
	u, err = storemodel.Union(members, decl.Discriminator)
	if err != nil {
		return nil, c.fail(fmt.Errorf("schemafile: union %q: %w", name, err))
	}
	if cfg := c.reg.cfg; cfg != nil {
		u = u.WithConfig(cfg)
	}
	c.reg.unions[name] = u
	return u, nil
}

func (c *compiler) attributeType(a AttributeDecl, path []string) (storemodel.Type, error) {
	switch a.Type {
	case "one", "many", "hash":
		var src containerSource
		switch {
		case a.Schema != "" && a.Union != "":
			return nil, errors.New("schema and union are mutually exclusive")
		case a.Schema != "":
			s, err := c.schema(a.Schema, path)
			if err != nil {
				return nil, err
			}
			src = s
		case a.Union != "":
			u, err := c.union(a.Union, path)
			if err != nil {
				return nil, err
			}
			src = u
		default:
			return nil, fmt.Errorf("%s attribute needs a schema or a union", a.Type)
		}
		return containerOf(src, a.Type)
	case "enum":
		return enum(a)
	case "array":
		elem, err := primitive(a.Of)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return dsl.ArrayOf(elem), nil
	case "":
		return nil, errors.New("missing type")
	}
	return primitive(a.Type)
}

// ruleSet converts the rule-based checks of v. Top-level presence is a
// builder declaration; inside a when block it becomes a rule. Nested
// validations are only honored at the top level.
func ruleSet(v ValidationDecl, presence bool) []storemodel.ValidatorFunc {
	var out []storemodel.ValidatorFunc
	if presence && len(v.Presence) > 0 {
		out = append(out, rules.Presence(v.Presence...))
	}
	for _, attr := range sortedNames(v.Inclusion) {
		out = append(out, rules.Inclusion(attr, v.Inclusion[attr]...))
	}
	for _, attr := range v.AtLeastOne {
		out = append(out, rules.AtLeastOne(attr))
	}
	for _, attr := range sortedNames(v.UniqueBy) {
		out = append(out, rules.UniqueBy(attr, v.UniqueBy[attr]))
	}
	return out
}

type containerSource interface {
	One() *storemodel.One
	Many() *storemodel.Many
	Hash() *storemodel.Hash
}

func containerOf(src containerSource, kind string) (storemodel.Type, error) {
	switch kind {
	case "one":
		return src.One(), nil
	case "many":
		return src.Many(), nil
	case "hash":
		return src.Hash(), nil
	}
	return nil, fmt.Errorf("schemafile: unknown container kind %q", kind)
}

func primitive(name string) (storemodel.Type, error) {
	switch name {
	case "string", "":
		return dsl.String(), nil
	case "integer":
		return dsl.Integer(), nil
	case "float":
		return dsl.Float(), nil
	case "boolean":
		return dsl.Boolean(), nil
	case "time":
		return dsl.Time(), nil
	case "raw":
		return dsl.Raw(), nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func enum(a AttributeDecl) (storemodel.Type, error) {
	var e *dsl.EnumType
	switch {
	case len(a.Values) > 0 && len(a.Labels) > 0:
		return nil, errors.New("enum takes values or labels, not both")
	case len(a.Labels) > 0:
		pairs := make([]dsl.EnumPair, len(a.Labels))
		for i, l := range a.Labels {
			pairs[i] = dsl.Pair(l, int64(i))
		}
		var err error
		if e, err = dsl.NewEnum(pairs...); err != nil {
			return nil, err
		}
	case len(a.Values) > 0:
		pairs := make([]dsl.EnumPair, 0, len(a.Values))
		for _, l := range sortedNames(a.Values) {
			pairs = append(pairs, dsl.Pair(l, a.Values[l]))
		}
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Ordinal < pairs[j].Ordinal })
		var err error
		if e, err = dsl.NewEnum(pairs...); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("enum needs values or labels")
	}
	if a.RaiseOnInvalid != nil {
		e = e.RaiseOnInvalid(*a.RaiseOnInvalid)
	}
	return e, nil
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
