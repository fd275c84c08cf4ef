package storemodel

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// ChildErrors is the error set of one validated child. Label is the position
// ("0", "1", ...) for sequences, the key for keyed containers and empty for a
// single child.
type ChildErrors struct {
	Label  string
	Errors *Errors
}

// Strategy folds the errors of nested instances into the parent's sink under
// attribute. Strategies hold no state beyond their configuration.
type Strategy interface {
	Combine(attribute string, parent *Errors, children []ChildErrors)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(attribute string, parent *Errors, children []ChildErrors)

func (f StrategyFunc) Combine(attribute string, parent *Errors, children []ChildErrors) {
	f(attribute, parent, children)
}

// MarkInvalid adds a single "invalid" entry for attribute. The child error
// set is attached under MetaErrors: the child's *Errors for one child, the
// []ChildErrors otherwise.
type MarkInvalid struct{}

func (MarkInvalid) Combine(attribute string, parent *Errors, children []ChildErrors) {
	var meta any = children
	if len(children) == 1 && children[0].Label == "" {
		meta = children[0].Errors
	}
	parent.Add(attribute, ErrorInvalid, WithMeta(MetaErrors, meta))
}

// Merge copies every child message onto the parent. By default each message
// is added under attribute in its full form; with CopyAttributes the child's
// attribute names and kinds are kept as they are.
type Merge struct {
	CopyAttributes bool
}

func (m Merge) Combine(attribute string, parent *Errors, children []ChildErrors) {
	for _, c := range children {
		for _, e := range c.Errors.Details() {
			if m.CopyAttributes {
				parent.Add(e.Attribute, e.Kind, WithMessage(e.Message))
				continue
			}
			parent.Add(attribute, ErrorInvalid, WithMessage(e.FullMessage()))
		}
	}
}

// MergeIndexed copies child messages prefixed with the child's position:
// "[1] Color can't be blank".
type MergeIndexed struct{}

func (MergeIndexed) Combine(attribute string, parent *Errors, children []ChildErrors) {
	mergeLabeled(attribute, parent, children)
}

// MergeKeyed copies child messages prefixed with the child's key:
// "[primary] Color can't be blank".
type MergeKeyed struct{}

func (MergeKeyed) Combine(attribute string, parent *Errors, children []ChildErrors) {
	mergeLabeled(attribute, parent, children)
}

func mergeLabeled(attribute string, parent *Errors, children []ChildErrors) {
	for _, c := range children {
		for _, msg := range c.Errors.FullMessages() {
			parent.Add(attribute, ErrorInvalid, WithMessage("["+c.Label+"] "+msg))
		}
	}
}

var (
	strategiesMu sync.RWMutex
	strategies   = map[string]func() Strategy{
		"MarkInvalid":  func() Strategy { return MarkInvalid{} },
		"Merge":        func() Strategy { return Merge{} },
		"MergeIndexed": func() Strategy { return MergeIndexed{} },
		"MergeKeyed":   func() Strategy { return MergeKeyed{} },
		"MergeArray":   func() Strategy { return MergeIndexed{} },
		"MergeHash":    func() Strategy { return MergeKeyed{} },
	}
)

// RegisterStrategy makes a strategy selectable by name. Names are matched
// after camelizing, so "merge_all" and "MergeAll" are the same entry.
func RegisterStrategy(name string, factory func() Strategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[strategyKey(name)] = factory
}

// LookupStrategy instantiates a registered strategy.
func LookupStrategy(name string) (Strategy, error) {
	strategiesMu.RLock()
	factory, ok := strategies[strategyKey(name)]
	strategiesMu.RUnlock()
	if !ok {
		return nil, &UnknownStrategyError{Name: name}
	}
	return factory(), nil
}

// SelectStrategy resolves a strategy selector. option wins over fallback
// unless it is unset (nil or false). The resolved selector is used as
// follows:
//   - a Strategy (or a function with the Combine signature) is used as is;
//   - true picks the Merge variant matching shape;
//   - unset picks MarkInvalid;
//   - a string is looked up in the registry.
func SelectStrategy(option, fallback any, shape Shape) (Strategy, error) {
	sel := option
	if unsetSelector(sel) {
		sel = fallback
	}
	if unsetSelector(sel) {
		return MarkInvalid{}, nil
	}
	switch v := sel.(type) {
	case Strategy:
		return v, nil
	case func(string, *Errors, []ChildErrors):
		return StrategyFunc(v), nil
	case bool:
		switch shape {
		case ShapeIndexed:
			return MergeIndexed{}, nil
		case ShapeKeyed:
			return MergeKeyed{}, nil
		}
		return Merge{}, nil
	case string:
		return LookupStrategy(v)
	case fmt.Stringer:
		return LookupStrategy(v.String())
	}
	return nil, &UnknownStrategyError{Name: fmt.Sprint(sel)}
}

func unsetSelector(v any) bool {
	if v == nil {
		return true
	}
	b, ok := v.(bool)
	return ok && !b
}

// strategyKey camelizes name and drops a trailing "ErrorStrategy" or
// "Strategy": "merge_array_error_strategy" -> "MergeArray".
func strategyKey(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upper = true
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	key := b.String()
	key = strings.TrimSuffix(key, "Strategy")
	key = strings.TrimSuffix(key, "Error")
	return key
}
