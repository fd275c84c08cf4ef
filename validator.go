package storemodel

import (
	"fmt"
	"strconv"
)

// rule is one validation declared on a schema. check runs once at Build;
// apply runs on every Validate.
type rule interface {
	check(s *Schema) error
	apply(inst *Instance, errs *Errors) error
}

// ValidatorFunc is a custom validation. It reports problems by adding to errs.
type ValidatorFunc func(inst *Instance, errs *Errors)

// NestedOptions configures the validation of one container attribute. Each
// Merge* field is a strategy selector that takes precedence over the Config
// field of the same name.
type NestedOptions struct {
	MergeErrors      any
	MergeArrayErrors any
	MergeHashErrors  any
	// AllowNil skips the "blank" error for a nil value.
	AllowNil bool
}

// NestedOption sets one field of NestedOptions.
type NestedOption func(*NestedOptions)

// WithMergeErrors sets the selector used for a single nested instance.
func WithMergeErrors(sel any) NestedOption {
	return func(o *NestedOptions) { o.MergeErrors = sel }
}

// WithMergeArrayErrors sets the selector used for sequences.
func WithMergeArrayErrors(sel any) NestedOption {
	return func(o *NestedOptions) { o.MergeArrayErrors = sel }
}

// WithMergeHashErrors sets the selector used for keyed containers.
func WithMergeHashErrors(sel any) NestedOption {
	return func(o *NestedOptions) { o.MergeHashErrors = sel }
}

// AllowNil accepts a nil container value.
func AllowNil() NestedOption {
	return func(o *NestedOptions) { o.AllowNil = true }
}

// ValidatesPresence adds a "blank" error for each named attribute whose
// value is blank.
func (b *SchemaBuilder) ValidatesPresence(names ...string) *SchemaBuilder {
	b.s.rules = append(b.s.rules, presenceRule{names: names})
	return b
}

// ValidatesNested validates the instances held by a container attribute and
// folds their errors into the parent with the selected strategy.
func (b *SchemaBuilder) ValidatesNested(name string, opts ...NestedOption) *SchemaBuilder {
	r := nestedRule{name: name}
	for _, opt := range opts {
		opt(&r.opts)
	}
	b.s.rules = append(b.s.rules, r)
	return b
}

// Validate adds a custom validation.
func (b *SchemaBuilder) Validate(fn ValidatorFunc) *SchemaBuilder {
	b.s.rules = append(b.s.rules, customRule{fn: fn})
	return b
}

type presenceRule struct{ names []string }

func (r presenceRule) check(s *Schema) error {
	for _, n := range r.names {
		if _, ok := s.index[n]; !ok {
			return &SchemaError{Schema: s.name, Reason: fmt.Sprintf("presence validation on undeclared attribute %q", n)}
		}
	}
	return nil
}

func (r presenceRule) apply(inst *Instance, errs *Errors) error {
	for _, n := range r.names {
		if IsBlank(inst.values[n]) {
			errs.Add(n, ErrorBlank)
		}
	}
	return nil
}

type nestedRule struct {
	name string
	opts NestedOptions
}

func (r nestedRule) check(s *Schema) error {
	a, ok := s.index[r.name]
	if !ok {
		return &SchemaError{Schema: s.name, Reason: fmt.Sprintf("nested validation on undeclared attribute %q", r.name)}
	}
	if !a.typ.Kind().Container() {
		return &SchemaError{Schema: s.name, Reason: fmt.Sprintf("nested validation on %s attribute %q", a.typ.Kind(), r.name)}
	}
	// Unknown strategy names in the declaration fail the build; names coming
	// from Config are resolved per validation.
	for _, sel := range []any{r.opts.MergeErrors, r.opts.MergeArrayErrors, r.opts.MergeHashErrors} {
		if _, err := SelectStrategy(sel, nil, ShapeSingle); err != nil {
			return fmt.Errorf("storemodel: %s.%s: %w", s.name, r.name, err)
		}
	}
	return nil
}

func (r nestedRule) apply(inst *Instance, errs *Errors) error {
	return ValidateNested(errs, r.name, inst.schema.index[r.name].typ, inst.values[r.name], r.opts, inst.schema.Config())
}

type customRule struct{ fn ValidatorFunc }

func (r customRule) check(s *Schema) error {
	if r.fn == nil {
		return &SchemaError{Schema: s.name, Reason: "nil validator"}
	}
	return nil
}

func (r customRule) apply(inst *Instance, errs *Errors) error {
	r.fn(inst, errs)
	return nil
}

// ValidateNested validates the nested instances of value, an attribute of
// type t, and reports into errs:
//   - nil adds "blank" (unless AllowNil);
//   - a single instance hands its errors to the strategy when invalid;
//   - a sequence hands every element to the strategy when any is invalid;
//   - a keyed container hands only the invalid entries to the strategy.
//
// The returned error is a strategy selection failure, never a validation
// result.
func ValidateNested(errs *Errors, attribute string, t Type, value any, opts NestedOptions, cfg *Config) error {
	cfg = resolveConfig(cfg)
	if isNil(value) {
		if !opts.AllowNil {
			errs.Add(attribute, ErrorBlank)
		}
		return nil
	}
	shape := t.Kind().Shape()
	var children []ChildErrors
	var option, fallback any
	switch shape {
	case ShapeSingle:
		inst, ok := value.(*Instance)
		if !ok {
			return &CastError{Value: value, Allowed: "model instances"}
		}
		if !inst.Invalid() {
			return nil
		}
		children = []ChildErrors{{Errors: inst.errors}}
		option, fallback = opts.MergeErrors, cfg.MergeErrors
	case ShapeIndexed:
		seq, ok := value.([]*Instance)
		if !ok {
			return &CastError{Value: value, Allowed: "sequences of model instances"}
		}
		anyInvalid := false
		for n, inst := range seq {
			if inst == nil {
				continue
			}
			if inst.Invalid() {
				anyInvalid = true
			}
			children = append(children, ChildErrors{Label: strconv.Itoa(n), Errors: inst.errors})
		}
		if !anyInvalid {
			return nil
		}
		option, fallback = opts.MergeArrayErrors, cfg.MergeArrayErrors
	case ShapeKeyed:
		m, ok := value.(map[string]*Instance)
		if !ok {
			return &CastError{Value: value, Allowed: "mappings of model instances"}
		}
		for _, k := range sortedKeys(m) {
			if inst := m[k]; inst != nil && inst.Invalid() {
				children = append(children, ChildErrors{Label: k, Errors: inst.errors})
			}
		}
		if len(children) == 0 {
			return nil
		}
		option, fallback = opts.MergeHashErrors, cfg.MergeHashErrors
	default:
		return &SchemaError{Reason: fmt.Sprintf("attribute %q of kind %s holds no nested instances", attribute, t.Kind())}
	}
	strategy, err := SelectStrategy(option, fallback, shape)
	if err != nil {
		return err
	}
	cfg.logger().Debug("storemodel: combining nested errors",
		"attribute", attribute, "strategy", fmt.Sprintf("%T", strategy), "children", len(children))
	strategy.Combine(attribute, errs, children)
	return nil
}

// Check clears the error sink, runs every validation declared on the schema
// and returns the sink as ValidationErrors, or nil when the instance is valid.
// Other errors report a misconfigured strategy selector.
func (i *Instance) Check() error {
	i.errors.Clear()
	cfg := i.schema.Config()
	for _, r := range i.schema.rules {
		if err := r.apply(i, i.errors); err != nil {
			cfg.observer().Validated(i.schema.name, false)
			return err
		}
	}
	cfg.observer().Validated(i.schema.name, i.errors.Empty())
	return i.errors.Err()
}

// Validate runs the declared validations and reports whether none failed.
// A misconfigured strategy selector counts as a failure and is logged.
func (i *Instance) Validate() bool {
	err := i.Check()
	if err == nil {
		return true
	}
	if _, ok := AsValidationErrors(err); !ok {
		i.schema.Config().logger().Error("storemodel: validation aborted", "schema", i.schema.name, "error", err)
	}
	return false
}

// Invalid is the negation of Validate.
func (i *Instance) Invalid() bool { return !i.Validate() }
