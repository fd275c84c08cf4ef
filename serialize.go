package storemodel

// SerializeOptions are per-call serialization preferences. Unset fields fall
// back to the instance override and then to the Config.
type SerializeOptions struct {
	IncludeUnknown *bool
	EnumsAsLabel   *bool
	IncludeEmpty   *bool
	Config         *Config
}

// Bool returns a pointer to b, for option and override fields.
func Bool(b bool) *bool { return &b }

// resolve fixes every preference for i; the result is propagated unchanged to
// nested instances.
func (i *Instance) resolve(opts SerializeOptions) SerializeOptions {
	cfg := resolveConfig(opts.Config, i.schema.cfg)
	out := SerializeOptions{Config: opts.Config}
	switch {
	case opts.IncludeUnknown != nil:
		out.IncludeUnknown = opts.IncludeUnknown
	case i.serializeUnknown != nil:
		out.IncludeUnknown = i.serializeUnknown
	default:
		out.IncludeUnknown = Bool(cfg.SerializeUnknownAttributes)
	}
	switch {
	case opts.EnumsAsLabel != nil:
		out.EnumsAsLabel = opts.EnumsAsLabel
	case i.enumsAsLabel != nil:
		out.EnumsAsLabel = i.enumsAsLabel
	default:
		out.EnumsAsLabel = Bool(cfg.SerializeEnumsAsLabel)
	}
	if opts.IncludeEmpty != nil {
		out.IncludeEmpty = opts.IncludeEmpty
	} else {
		out.IncludeEmpty = Bool(cfg.SerializeEmptyAttributes)
	}
	return out
}

// AsWire encodes the instance into its decoded wire shape (a map of scalars,
// maps and slices). Nested instances are encoded with the same resolved
// options.
func (i *Instance) AsWire(opts SerializeOptions) (map[string]any, error) {
	o := i.resolve(opts)
	out := make(map[string]any, len(i.schema.attrs)+len(i.unknown))
	for _, a := range i.schema.attrs {
		v := i.values[a.name]
		if !*o.IncludeEmpty && isEmpty(v) {
			continue
		}
		w, err := encodeAttribute(a, v, o)
		if err != nil {
			return nil, err
		}
		out[a.name] = w
	}
	if *o.IncludeUnknown {
		for k, v := range i.unknown {
			if _, known := out[k]; !known {
				out[k] = v
			}
		}
	}
	if *o.EnumsAsLabel {
		renderEnumLabels(i.schema, out)
	}
	if i.schema.coder != nil {
		out = i.schema.coder.Dump(out)
	}
	return out, nil
}

func encodeAttribute(a *Attribute, v any, o SerializeOptions) (any, error) {
	if a.typ.Kind().Container() {
		return encodeNested(v, o)
	}
	return a.typ.Serialize(v)
}

// encodeNested walks container values, delegating instances to AsWire.
func encodeNested(v any, o SerializeOptions) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *Instance:
		if val == nil {
			return nil, nil
		}
		return val.AsWire(o)
	case []*Instance:
		out := make([]any, len(val))
		for n, c := range val {
			w, err := encodeNested(c, o)
			if err != nil {
				return nil, err
			}
			out[n] = w
		}
		return out, nil
	case map[string]*Instance:
		out := make(map[string]any, len(val))
		for k, c := range val {
			w, err := encodeNested(c, o)
			if err != nil {
				return nil, err
			}
			out[k] = w
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for n, c := range val {
			w, err := encodeNested(c, o)
			if err != nil {
				return nil, err
			}
			out[n] = w
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, c := range val {
			w, err := encodeNested(c, o)
			if err != nil {
				return nil, err
			}
			out[k] = w
		}
		return out, nil
	}
	return v, nil
}

// renderEnumLabels is the post pass replacing enum ordinals with labels.
// Ordinals missing from the mapping (kept by non-raising enums) stay as is.
func renderEnumLabels(s *Schema, out map[string]any) {
	for _, a := range s.attrs {
		l, ok := a.typ.(EnumLabeler)
		if !ok {
			continue
		}
		v, present := out[a.name]
		if !present || v == nil {
			continue
		}
		if label, ok := l.Label(v); ok {
			out[a.name] = label
		}
	}
}

// MarshalJSON encodes the instance with its resolved preferences.
func (i *Instance) MarshalJSON() ([]byte, error) {
	w, err := i.AsWire(SerializeOptions{})
	if err != nil {
		return nil, err
	}
	return getJSONDriver().Marshal(w)
}
