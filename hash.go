package storemodel

// Hash casts a keyed mapping of wire values into map[string]*Instance. Nil
// values under a key are kept as nil.
type Hash struct {
	kind Kind
	elem elementCaster
}

var _ Type = (*Hash)(nil)

func (t *Hash) Kind() Kind { return t.kind }

func (t *Hash) Schemas() []*Schema { return t.elem.Schemas() }

func (t *Hash) allowed() string { return "text or mappings" }

// Cast converts nil, text or a mapping into map[string]*Instance. Text that
// does not decode to an object yields an empty map.
func (t *Hash) Cast(raw any) (v any, err error) {
	defer func() { t.elem.config().observer().CastCompleted(t.kind, t.elem.name(), err) }()
	in := classify(raw)
	var m map[string]any
	switch in.kind {
	case inputNil:
		return nil, nil
	case inputText:
		decoded, ok := decodeObject(in.text)
		if !ok {
			return map[string]*Instance{}, nil
		}
		m = decoded
	case inputMapping:
		m = in.mapping
	default:
		return nil, &CastError{Value: raw, Allowed: t.allowed()}
	}
	out := make(map[string]*Instance, len(m))
	for _, k := range sortedKeys(m) {
		inst, err := t.elem.castElement(m[k])
		if err != nil {
			return nil, err
		}
		out[k] = inst
	}
	return out, nil
}

// CastInstances is Cast with a typed result.
func (t *Hash) CastInstances(raw any) (map[string]*Instance, error) {
	v, err := t.Cast(raw)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(map[string]*Instance), nil
}

// Serialize encodes the mapping as JSON text. When every value is an
// instance, the preferences of the instance under the smallest key apply to
// all of them; otherwise values are encoded as they are.
func (t *Hash) Serialize(v any) (any, error) {
	var m map[string]any
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]*Instance:
		m = make(map[string]any, len(val))
		for k, c := range val {
			m[k] = c
		}
	case map[string]any:
		m = val
	default:
		return nil, &CastError{Value: v, Allowed: t.allowed()}
	}
	if len(m) == 0 {
		return "{}", nil
	}
	keys := sortedKeys(m)
	seq := make([]any, len(keys))
	for n, k := range keys {
		seq[n] = m[k]
	}
	insts, ok := allInstances(seq)
	if !ok {
		return encodeText(m)
	}
	opts := uniformOptions(insts[0])
	out := make(map[string]any, len(keys))
	for n, k := range keys {
		w, err := insts[n].AsWire(opts)
		if err != nil {
			return nil, err
		}
		out[k] = w
	}
	return encodeText(out)
}

func (t *Hash) Changed(oldRaw, newValue any) bool { return Changed(t, oldRaw, newValue) }
