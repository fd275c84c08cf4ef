// Package jsonschema exports storemodel schemas as JSON Schema (2020-12)
// documents describing the wire shape of a column value.
package jsonschema

import (
	"sort"

	"github.com/reoring/storemodel"
)

const draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is the subset of JSON Schema needed to describe storemodel types.
type Schema struct {
	Dialect string `json:"$schema,omitempty"`
	Ref     string `json:"$ref,omitempty"`
	Title   string `json:"title,omitempty"`

	// Core
	Type    string `json:"type,omitempty"`
	Format  string `json:"format,omitempty"`
	Default any    `json:"default,omitempty"`
	Const   any    `json:"const,omitempty"`
	Enum    []any  `json:"enum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`

	// Union
	OneOf []*Schema `json:"oneOf,omitempty"`

	Defs map[string]*Schema `json:"$defs,omitempty"`
}

// ForType describes an attribute type. Nested schemas are emitted once under
// $defs and referenced by name.
func ForType(t storemodel.Type) *Schema {
	x := &exporter{defs: map[string]*Schema{}}
	root := x.typ(t)
	return x.finish(root)
}

// ForSchema describes one instance of s.
func ForSchema(s *storemodel.Schema) *Schema {
	x := &exporter{defs: map[string]*Schema{}}
	root := x.object(s)
	return x.finish(root)
}

// Marshal encodes the document with the configured JSON driver.
func (s *Schema) Marshal() ([]byte, error) { return storemodel.Marshal(s) }

type exporter struct {
	defs map[string]*Schema
}

func (x *exporter) finish(root *Schema) *Schema {
	root.Dialect = draft
	if len(x.defs) > 0 {
		root.Defs = x.defs
	}
	return root
}

// typeNamer is implemented by the dsl scalar types.
type typeNamer interface{ TypeName() string }

type schemaLister interface{ Schemas() []*storemodel.Schema }

func (x *exporter) typ(t storemodel.Type) *Schema {
	switch t.Kind().Shape() {
	case storemodel.ShapeSingle:
		return x.element(t)
	case storemodel.ShapeIndexed:
		return &Schema{Type: "array", Items: x.element(t)}
	case storemodel.ShapeKeyed:
		return &Schema{Type: "object", AdditionalProperties: x.element(t)}
	}
	if t.Kind() == storemodel.KindEnum {
		return enum(t)
	}
	name := ""
	if n, ok := t.(typeNamer); ok {
		name = n.TypeName()
	}
	switch name {
	case "string":
		return &Schema{Type: "string"}
	case "integer":
		return &Schema{Type: "integer"}
	case "float":
		return &Schema{Type: "number"}
	case "boolean":
		return &Schema{Type: "boolean"}
	case "time":
		return &Schema{Type: "string", Format: "date-time"}
	case "array":
		if e, ok := t.(interface{ Elem() storemodel.Type }); ok {
			return &Schema{Type: "array", Items: x.typ(e.Elem())}
		}
		return &Schema{Type: "array"}
	}
	// raw and pass-through values accept anything
	return &Schema{}
}

// element describes one nested instance of a container type.
func (x *exporter) element(t storemodel.Type) *Schema {
	l, ok := t.(schemaLister)
	if !ok {
		return &Schema{Type: "object"}
	}
	schemas := l.Schemas()
	switch {
	case len(schemas) == 0:
		return &Schema{Type: "object"}
	case len(schemas) == 1 && !polymorphic(t.Kind()):
		return x.ref(schemas[0])
	}
	out := &Schema{OneOf: make([]*Schema, len(schemas))}
	for i, s := range schemas {
		out.OneOf[i] = x.ref(s)
	}
	return out
}

func polymorphic(k storemodel.Kind) bool {
	switch k {
	case storemodel.KindOnePolymorphic, storemodel.KindManyPolymorphic, storemodel.KindHashPolymorphic:
		return true
	}
	return false
}

func (x *exporter) ref(s *storemodel.Schema) *Schema {
	if _, seen := x.defs[s.Name()]; !seen {
		// Reserve the name before descending; schemas are acyclic but may be
		// shared between attributes.
		x.defs[s.Name()] = nil
		x.defs[s.Name()] = x.object(s)
	}
	return &Schema{Ref: "#/$defs/" + s.Name()}
}

func (x *exporter) object(s *storemodel.Schema) *Schema {
	out := &Schema{Title: s.Name(), Type: "object", Properties: map[string]*Schema{}}
	for _, name := range s.AttributeNames() {
		a, _ := s.Attribute(name)
		p := x.typ(a.Type())
		if name == s.DiscriminatorName() {
			p.Const = s.DiscriminatorValue()
		} else if dv, ok := a.Default(); ok {
			p.Default = wireDefault(a.Type(), dv)
		}
		out.Properties[name] = p
	}
	return out
}

// wireDefault renders a declared default the way it is stored. Defaults that
// do not cast are left out.
func wireDefault(t storemodel.Type, dv any) any {
	if t.Kind().Container() {
		return nil
	}
	v, err := t.Cast(dv)
	if err != nil {
		return nil
	}
	if l, ok := t.(storemodel.EnumLabeler); ok && v != nil {
		if label, ok := l.Label(v); ok {
			return label
		}
	}
	w, err := t.Serialize(v)
	if err != nil {
		return nil
	}
	return w
}

// enum lists labels and ordinals; both cast to the same value.
func enum(t storemodel.Type) *Schema {
	p, ok := t.(interface {
		Labels() []string
		Ordinal(label string) (int64, bool)
	})
	if !ok {
		return &Schema{}
	}
	labels := p.Labels()
	values := make([]any, 0, 2*len(labels))
	for _, l := range labels {
		values = append(values, l)
	}
	ordinals := make([]int64, 0, len(labels))
	for _, l := range labels {
		n, _ := p.Ordinal(l)
		ordinals = append(ordinals, n)
	}
	sort.Slice(ordinals, func(i, j int) bool { return ordinals[i] < ordinals[j] })
	for _, n := range ordinals {
		values = append(values, n)
	}
	return &Schema{Enum: values}
}
