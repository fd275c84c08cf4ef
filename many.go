package storemodel

// Many casts an ordered sequence of wire values into []*Instance.
type Many struct {
	kind Kind
	elem elementCaster
}

var _ Type = (*Many)(nil)

func (t *Many) Kind() Kind { return t.kind }

func (t *Many) Schemas() []*Schema { return t.elem.Schemas() }

func (t *Many) allowed() string { return "text or sequences" }

// Cast converts nil, text or a sequence into []*Instance. Each element is
// cast independently; malformed text yields an empty slice.
func (t *Many) Cast(raw any) (v any, err error) {
	defer func() { t.elem.config().observer().CastCompleted(t.kind, t.elem.name(), err) }()
	in := classify(raw)
	var seq []any
	switch in.kind {
	case inputNil:
		return nil, nil
	case inputText:
		decoded, ok := decodeText(in.text)
		if !ok {
			return []*Instance{}, nil
		}
		seq, _ = decoded.([]any)
	case inputSequence:
		seq = in.sequence
	default:
		return nil, &CastError{Value: raw, Allowed: t.allowed()}
	}
	out := make([]*Instance, len(seq))
	for n, el := range seq {
		inst, err := t.elem.castElement(el)
		if err != nil {
			return nil, err
		}
		out[n] = inst
	}
	return out, nil
}

// CastInstances is Cast with a typed result.
func (t *Many) CastInstances(raw any) ([]*Instance, error) {
	v, err := t.Cast(raw)
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]*Instance), nil
}

// Serialize encodes the sequence as JSON text. When every element is an
// instance, the first element's preferences apply to all of them; otherwise
// the elements are encoded as they are.
func (t *Many) Serialize(v any) (any, error) {
	var seq []any
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []*Instance:
		seq = make([]any, len(val))
		for n, c := range val {
			seq[n] = c
		}
	case []any:
		seq = val
	default:
		return nil, &CastError{Value: v, Allowed: t.allowed()}
	}
	if len(seq) == 0 {
		return "[]", nil
	}
	insts, ok := allInstances(seq)
	if !ok {
		return encodeText(seq)
	}
	opts := uniformOptions(insts[0])
	out := make([]any, len(insts))
	for n, inst := range insts {
		w, err := inst.AsWire(opts)
		if err != nil {
			return nil, err
		}
		out[n] = w
	}
	return encodeText(out)
}

func (t *Many) Changed(oldRaw, newValue any) bool { return Changed(t, oldRaw, newValue) }

// allInstances returns the elements as instances when none is anything else
// (nil included).
func allInstances(seq []any) ([]*Instance, bool) {
	out := make([]*Instance, len(seq))
	for n, el := range seq {
		inst, ok := el.(*Instance)
		if !ok || inst == nil {
			return nil, false
		}
		out[n] = inst
	}
	return out, true
}

// uniformOptions lifts one instance's effective preferences into call
// options applied to a whole container.
func uniformOptions(first *Instance) SerializeOptions {
	return SerializeOptions{
		IncludeUnknown: Bool(first.SerializeUnknownAttributes()),
		EnumsAsLabel:   Bool(first.SerializeEnumsAsLabel()),
	}
}
