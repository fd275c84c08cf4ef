package storemodel

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/reoring/storemodel/i18n"
)

// Validation error kinds understood by the built-in translator.
const (
	ErrorInvalid = "invalid"
	ErrorBlank   = "blank"
)

// AttributeBase is the attribute name for errors that concern the instance
// as a whole. Its full message is the bare message.
const AttributeBase = "base"

// MetaErrors is the metadata key under which MarkInvalid attaches the child
// error set.
const MetaErrors = "errors"

// Error is one validation entry of an Errors sink.
type Error struct {
	Attribute string
	Kind      string // e.g. "invalid", "blank"; custom kinds are allowed
	Message   string
	// Meta carries structured details, such as the child errors attached by
	// MarkInvalid.
	Meta map[string]any
}

// FullMessage prefixes the message with the humanized attribute name.
func (e Error) FullMessage() string {
	if e.Attribute == AttributeBase || e.Attribute == "" {
		return e.Message
	}
	return Humanize(e.Attribute) + " " + e.Message
}

// ErrorOption customizes an entry added to an Errors sink.
type ErrorOption func(*Error)

// WithMessage replaces the translated message of the kind.
func WithMessage(msg string) ErrorOption {
	return func(e *Error) { e.Message = msg }
}

// WithMeta attaches one metadata entry.
func WithMeta(key string, value any) ErrorOption {
	return func(e *Error) {
		if e.Meta == nil {
			e.Meta = map[string]any{}
		}
		e.Meta[key] = value
	}
}

// Errors collects validation errors in insertion order. The zero value is
// ready to use.
type Errors struct {
	list []Error
}

// Add appends an entry. The message defaults to the translation of kind.
func (es *Errors) Add(attribute, kind string, opts ...ErrorOption) Error {
	e := Error{Attribute: attribute, Kind: kind, Message: i18n.T(kind, nil)}
	for _, opt := range opts {
		opt(&e)
	}
	es.list = append(es.list, e)
	return e
}

// Len returns the number of entries.
func (es *Errors) Len() int {
	if es == nil {
		return 0
	}
	return len(es.list)
}

// Empty reports whether no entry was added.
func (es *Errors) Empty() bool { return es.Len() == 0 }

// Clear drops every entry.
func (es *Errors) Clear() { es.list = nil }

// Details returns a copy of the entries.
func (es *Errors) Details() []Error {
	if es.Len() == 0 {
		return nil
	}
	return append([]Error(nil), es.list...)
}

// On returns the messages recorded for attribute.
func (es *Errors) On(attribute string) []string {
	var out []string
	for _, e := range es.Details() {
		if e.Attribute == attribute {
			out = append(out, e.Message)
		}
	}
	return out
}

// Messages returns every message without attribute prefix.
func (es *Errors) Messages() []string {
	out := make([]string, 0, es.Len())
	for _, e := range es.Details() {
		out = append(out, e.Message)
	}
	return out
}

// FullMessages returns every message prefixed with its humanized attribute.
func (es *Errors) FullMessages() []string {
	out := make([]string, 0, es.Len())
	for _, e := range es.Details() {
		out = append(out, e.FullMessage())
	}
	return out
}

// Copy returns an independent sink with the same entries.
func (es *Errors) Copy() *Errors {
	return &Errors{list: es.Details()}
}

// Err returns the entries as an error, or nil when empty.
func (es *Errors) Err() error {
	if es.Empty() {
		return nil
	}
	return ValidationErrors(es.Details())
}

// ValidationErrors is the error form of an Errors sink.
type ValidationErrors []Error

// Error summarizes the first few entries.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(ve), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ve[i].FullMessage())
	}
	if len(ve) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(ve))
	}
	return b.String()
}

// AsValidationErrors extracts ValidationErrors from an error chain.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	if err == nil {
		return nil, false
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Humanize turns an attribute name into a label: underscores become spaces
// and the first letter is upper-cased ("primary_color" -> "Primary color").
func Humanize(attribute string) string {
	s := strings.TrimSuffix(attribute, "_id")
	s = strings.ReplaceAll(s, "_", " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
