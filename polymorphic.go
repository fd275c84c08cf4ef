package storemodel

import "fmt"

// Resolver picks the concrete schema for a decoded payload. Errors are
// returned to the caller of Cast unchanged; a nil schema without an error is
// reported as *ExpandWrapperError.
type Resolver func(payload map[string]any) (*Schema, error)

// Polymorphic wraps a Resolver and derives One, Many and Hash container types
// that resolve the schema per element before delegating to it.
type Polymorphic struct {
	resolve Resolver
	cfg     *Config
	label   string
	schemas []*Schema
}

// OneOf returns a Polymorphic over an arbitrary resolver function.
func OneOf(r Resolver) *Polymorphic {
	return &Polymorphic{resolve: r, label: "polymorphic"}
}

// WithConfig binds the derived container types to cfg.
func (p *Polymorphic) WithConfig(cfg *Config) *Polymorphic {
	cp := *p
	cp.cfg = cfg
	return &cp
}

// Schemas returns the member schemas of a union; nil for OneOf.
func (p *Polymorphic) Schemas() []*Schema {
	return append([]*Schema(nil), p.schemas...)
}

// Resolve runs the resolver and checks its result.
func (p *Polymorphic) Resolve(payload map[string]any) (*Schema, error) {
	s, err := p.resolve(payload)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &ExpandWrapperError{}
	}
	if !s.built {
		return nil, &ExpandWrapperError{Got: s.name}
	}
	return s, nil
}

func (p *Polymorphic) One() *One   { return &One{kind: KindOnePolymorphic, elem: p} }
func (p *Polymorphic) Many() *Many { return &Many{kind: KindManyPolymorphic, elem: p} }
func (p *Polymorphic) Hash() *Hash { return &Hash{kind: KindHashPolymorphic, elem: p} }

func (p *Polymorphic) config() *Config { return resolveConfig(p.cfg) }
func (p *Polymorphic) name() string    { return p.label }

func (p *Polymorphic) allowed() string {
	return "text, mapping or model instances"
}

// accepts keeps any instance: the caller already chose its schema.
func (p *Polymorphic) accepts(*Instance) bool { return true }

func (p *Polymorphic) castElement(raw any) (*Instance, error) {
	in := classify(raw)
	switch in.kind {
	case inputNil:
		return nil, nil
	case inputInstance:
		return in.instance, nil
	case inputText:
		payload, ok := decodeObject(in.text)
		if !ok {
			// No payload to resolve a schema from.
			return nil, nil
		}
		return p.build(payload)
	case inputMapping:
		return p.build(in.mapping)
	}
	return nil, &CastError{Value: raw, Allowed: p.allowed()}
}

func (p *Polymorphic) build(payload map[string]any) (*Instance, error) {
	s, err := p.Resolve(payload)
	if err != nil {
		return nil, err
	}
	p.config().logger().Debug("storemodel: resolved schema", "resolver", p.label, "schema", s.name)
	return s.build(payload)
}

func (p *Polymorphic) String() string { return fmt.Sprintf("Polymorphic(%s)", p.label) }
