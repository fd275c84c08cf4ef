package storemodel

// One casts a single wire value into one nested instance.
type One struct {
	kind Kind
	elem elementCaster
}

var _ Type = (*One)(nil)

func (t *One) Kind() Kind { return t.kind }

// Schemas returns the schemas elements are built from.
func (t *One) Schemas() []*Schema { return t.elem.Schemas() }

// Cast converts nil, text, a mapping or an instance into an *Instance (or
// nil). Malformed text yields an empty instance rather than an error.
func (t *One) Cast(raw any) (v any, err error) {
	defer func() { t.elem.config().observer().CastCompleted(t.kind, t.elem.name(), err) }()
	inst, err := t.elem.castElement(raw)
	if err != nil || inst == nil {
		return nil, err
	}
	return inst, nil
}

// CastInstance is Cast with a typed result.
func (t *One) CastInstance(raw any) (*Instance, error) {
	v, err := t.Cast(raw)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*Instance), nil
}

// Serialize encodes an instance (honoring its own preference overrides) or a
// raw mapping into JSON text.
func (t *One) Serialize(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *Instance:
		if val == nil {
			return nil, nil
		}
		w, err := val.AsWire(SerializeOptions{})
		if err != nil {
			return nil, err
		}
		return encodeText(w)
	case map[string]any:
		return encodeText(val)
	}
	return nil, &CastError{Value: v, Allowed: t.elem.allowed()}
}

func (t *One) Changed(oldRaw, newValue any) bool { return Changed(t, oldRaw, newValue) }
