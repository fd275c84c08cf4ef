// Package rules provides reusable validations for storemodel schemas:
// conditional execution, inclusion, collection size and uniqueness checks.
// Every rule is a storemodel.ValidatorFunc and is registered with
// SchemaBuilder.Validate:
//
//	storemodel.NewSchema("Product").
//		...
//		Validate(rules.If("status", rules.Eq, "live").Then(
//			rules.AtLeastOne("variants"),
//			rules.UniqueBy("variants", "sku"),
//		))
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/reoring/storemodel"
)

// Error kinds added by the rules in this package.
const (
	ErrorInclusion = "inclusion"
	ErrorTooShort  = "too_short"
	ErrorTaken     = "taken"
)

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional comparing the value at path with want. The path
// names an attribute; "/" descends into nested instances, mappings and
// sequences ("variants/0/color"). Enum attributes compare by label when want
// is text.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: strings.Trim(path, "/"), op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Holds evaluates the condition against inst.
func (c Conditional) Holds(inst *storemodel.Instance) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.Holds(inst) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.Holds(inst) {
				return true
			}
		}
		return false
	}
	cur, ok := lookup(inst, c.path)
	if !ok {
		return false
	}
	if label, text := c.want.(string); text && !strings.Contains(c.path, "/") {
		if l, err := inst.EnumLabel(c.path); err == nil && l != "" {
			cur = l
		}
		return compare(cur, c.op, label)
	}
	return compare(cur, c.op, c.want)
}

// Then attaches rules to run when the condition is satisfied.
func (c Conditional) Then(rules ...storemodel.ValidatorFunc) storemodel.ValidatorFunc {
	run := And(rules...)
	return func(inst *storemodel.Instance, errs *storemodel.Errors) {
		if c.Holds(inst) {
			run(inst, errs)
		}
	}
}

// Presence requires each attribute to be non-blank.
func Presence(attributes ...string) storemodel.ValidatorFunc {
	return func(inst *storemodel.Instance, errs *storemodel.Errors) {
		for _, attr := range attributes {
			if v, ok := lookup(inst, attr); !ok || storemodel.IsBlank(v) {
				errs.Add(attr, storemodel.ErrorBlank)
			}
		}
	}
}

// Inclusion requires the attribute to be blank or equal to one of allowed.
// Enum attributes match by ordinal or by label.
func Inclusion(attribute string, allowed ...any) storemodel.ValidatorFunc {
	return func(inst *storemodel.Instance, errs *storemodel.Errors) {
		v, ok := lookup(inst, attribute)
		if !ok || storemodel.IsBlank(v) {
			return
		}
		label, _ := inst.EnumLabel(attribute)
		for _, a := range allowed {
			if equal(v, a) || label != "" && equal(label, a) {
				return
			}
		}
		errs.Add(attribute, ErrorInclusion, storemodel.WithMeta("value", v))
	}
}

// AtLeastOne requires the collection attribute to hold an element.
func AtLeastOne(attribute string) storemodel.ValidatorFunc {
	return func(inst *storemodel.Instance, errs *storemodel.Errors) {
		v, ok := lookup(inst, attribute)
		if !ok {
			return
		}
		if n, isColl := length(v); v == nil || isColl && n == 0 {
			errs.Add(attribute, ErrorTooShort, storemodel.WithMeta("count", 1))
		}
	}
}

// UniqueBy requires the elements of a Many attribute (or a plain sequence of
// mappings) to have distinct values at key. Elements without the key are
// skipped; one error is added per duplicate.
func UniqueBy(attribute, key string) storemodel.ValidatorFunc {
	key = strings.Trim(key, "/")
	return func(inst *storemodel.Instance, errs *storemodel.Errors) {
		v, ok := lookup(inst, attribute)
		if !ok {
			return
		}
		seq, ok := elements(v)
		if !ok {
			return
		}
		seen := map[string]int{}
		for i, elem := range seq {
			kv, ok := walk(elem, key)
			if !ok || kv == nil {
				continue
			}
			k := fmt.Sprint(kv)
			if first, dup := seen[k]; dup {
				errs.Add(attribute, ErrorTaken,
					storemodel.WithMessage(fmt.Sprintf("[%d] %s %v has already been taken", i, key, kv)),
					storemodel.WithMeta("first", first),
					storemodel.WithMeta("dup", i))
				continue
			}
			seen[k] = i
		}
	}
}

// And runs every rule.
func And(rules ...storemodel.ValidatorFunc) storemodel.ValidatorFunc {
	return func(inst *storemodel.Instance, errs *storemodel.Errors) {
		for _, r := range rules {
			if r != nil {
				r(inst, errs)
			}
		}
	}
}

// Or succeeds if any rule adds no error. When all fail, the errors of the
// branch with the fewest errors are kept.
func Or(rules ...storemodel.ValidatorFunc) storemodel.ValidatorFunc {
	return func(inst *storemodel.Instance, errs *storemodel.Errors) {
		var best *storemodel.Errors
		for _, r := range rules {
			if r == nil {
				continue
			}
			scratch := &storemodel.Errors{}
			r(inst, scratch)
			if scratch.Empty() {
				return
			}
			if best == nil || scratch.Len() < best.Len() {
				best = scratch
			}
		}
		if best == nil {
			return
		}
		for _, e := range best.Details() {
			opts := []storemodel.ErrorOption{storemodel.WithMessage(e.Message)}
			for k, v := range e.Meta {
				opts = append(opts, storemodel.WithMeta(k, v))
			}
			errs.Add(e.Attribute, e.Kind, opts...)
		}
	}
}

// ------- helpers -------

func lookup(inst *storemodel.Instance, path string) (any, bool) {
	head, rest, _ := strings.Cut(strings.Trim(path, "/"), "/")
	v, err := inst.Get(head)
	if err != nil {
		return nil, false
	}
	return walk(v, rest)
}

// walk navigates nested instances, mappings and sequences by a "/"-separated
// relative path.
func walk(v any, rel string) (any, bool) {
	if rel == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(rel, "/") {
		switch c := cur.(type) {
		case *storemodel.Instance:
			if c == nil {
				return nil, false
			}
			next, err := c.Get(seg)
			if err != nil {
				return nil, false
			}
			cur = next
		case map[string]*storemodel.Instance:
			next, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]any:
			next, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = next
		default:
			seq, ok := elements(cur)
			if !ok {
				return nil, false
			}
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(seq) {
				return nil, false
			}
			cur = seq[idx]
		}
	}
	return cur, true
}

func elements(v any) ([]any, bool) {
	switch s := v.(type) {
	case []*storemodel.Instance:
		out := make([]any, len(s))
		for i, inst := range s {
			out[i] = inst
		}
		return out, true
	case []any:
		return s, true
	}
	return nil, false
}

func length(v any) (int, bool) {
	switch c := v.(type) {
	case []*storemodel.Instance:
		return len(c), true
	case []any:
		return len(c), true
	case map[string]*storemodel.Instance:
		return len(c), true
	case map[string]any:
		return len(c), true
	}
	return 0, false
}

// equal is storemodel.Equal with numbers compared by value across Go types.
func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return storemodel.Equal(a, b)
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return equal(cur, want)
	case Ne:
		return !equal(cur, want)
	case Lt, Le, Gt, Ge:
		return compareOrdered(cur, op, want)
	default:
		return false
	}
}

func compareOrdered(cur any, op Op, want any) bool {
	a, ok := number(cur)
	if !ok {
		return false
	}
	b, ok := number(want)
	if !ok {
		return false
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
