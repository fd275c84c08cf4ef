package storemodel

// elementCaster builds one nested instance from one raw element. It is shared
// by the One, Many and Hash containers of both the plain and the polymorphic
// variants.
type elementCaster interface {
	castElement(raw any) (*Instance, error)
	// accepts reports whether an already typed instance is kept as is.
	accepts(inst *Instance) bool
	config() *Config
	name() string
	allowed() string
	// Schemas lists the schemas an element may be built from; empty when a
	// resolver decides freely.
	Schemas() []*Schema
}

// schemaElement casts into one fixed schema.
type schemaElement struct{ s *Schema }

func (e schemaElement) config() *Config { return e.s.Config() }
func (e schemaElement) name() string    { return e.s.name }

func (e schemaElement) Schemas() []*Schema { return []*Schema{e.s} }

func (e schemaElement) allowed() string {
	return "text, mapping or " + e.s.name + " instances"
}

func (e schemaElement) accepts(inst *Instance) bool { return inst.schema == e.s }

func (e schemaElement) castElement(raw any) (*Instance, error) {
	in := classify(raw)
	switch in.kind {
	case inputNil:
		return nil, nil
	case inputInstance:
		if e.accepts(in.instance) {
			return in.instance, nil
		}
	case inputText:
		payload, ok := decodeObject(in.text)
		if !ok {
			// Malformed persisted data still loads, as an empty instance.
			payload = map[string]any{}
		}
		return e.s.build(payload)
	case inputMapping:
		return e.s.build(in.mapping)
	}
	return nil, &CastError{Value: raw, Allowed: e.allowed()}
}

// decodeObject decodes text expected to hold a JSON object.
func decodeObject(text []byte) (map[string]any, bool) {
	v, ok := decodeText(text)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// build constructs an instance from payload, recovering from undeclared keys:
// each offending key is removed (from the "attributes" envelope too, when one
// is present), construction is retried, and the removed value is recorded in
// the new instance's unknown attributes.
func (s *Schema) build(payload map[string]any) (*Instance, error) {
	p := cloneMap(s.load(payload))
	unknown := map[string]any{}
	for {
		inst, err := s.construct(p)
		if err == nil {
			for k, v := range unknown {
				inst.unknown[k] = v
			}
			return inst, nil
		}
		ue, ok := asUnrecognized(s, err)
		if !ok {
			return nil, err
		}
		key := ue.Attribute
		v, present := p[key]
		delete(p, key)
		if env, isEnv := p[envelopeKey].(map[string]any); isEnv && !s.HasAttribute(envelopeKey) {
			if ev, inEnv := env[key]; inEnv {
				v, present = ev, true
				env = cloneMap(env)
				delete(env, key)
				p[envelopeKey] = env
			}
		}
		if !present {
			return nil, err
		}
		unknown[key] = v
		cfg := s.Config()
		cfg.observer().UnknownAttributeRecovered(s.name, key)
		cfg.logger().Debug("storemodel: parked unknown attribute", "schema", s.name, "attribute", key)
	}
}
