package storemodel

import (
	"errors"
	"fmt"

	"github.com/reoring/storemodel/i18n"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeCast                   = "cast_error"
	CodeInvalidEnumValue       = "invalid_enum_value"
	CodeExpandWrapper          = "expand_wrapper"
	CodeUnrecognizedAttribute  = "unrecognized_attribute"
	CodeKeyNotFound            = "key_not_found"
	CodeUnknownStrategy        = "unknown_strategy"
	CodeSchema                 = "schema_error"
	// Union construction (fail fast, before any cast).
	CodeDiscriminatorMissing   = "discriminator_missing"
	CodeDiscriminatorDuplicate = "discriminator_duplicate"
	// Union resolution (per cast).
	CodeDiscriminatorAbsent  = "discriminator_absent"
	CodeDiscriminatorUnknown = "discriminator_unknown"
)

// Coded is implemented by every error carrier of this package.
type Coded interface {
	error
	Code() string
}

// CodeOf returns the code of the first Coded error in err's chain, or "".
func CodeOf(err error) string {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// CastError reports a wire value whose structural kind cannot be reconciled
// with the target type. It is never retried.
type CastError struct {
	Value   any
	Allowed string // e.g. "text, mapping or Configuration instances"
}

func (e *CastError) Code() string { return CodeCast }

func (e *CastError) Error() string {
	return "storemodel: " + i18n.T(CodeCast, map[string]string{
		"value":   fmt.Sprintf("%#v", e.Value),
		"allowed": e.Allowed,
	})
}

// InvalidEnumValueError reports a label or ordinal absent from an enum mapping.
type InvalidEnumValueError struct {
	Value any
}

func (e *InvalidEnumValueError) Code() string { return CodeInvalidEnumValue }

func (e *InvalidEnumValueError) Error() string {
	return "storemodel: " + i18n.T(CodeInvalidEnumValue, map[string]string{"value": fmt.Sprint(e.Value)})
}

// ExpandWrapperError reports a polymorphic resolver that did not return a
// usable schema. It points at resolver configuration, not at the wire data.
type ExpandWrapperError struct {
	Got any
}

func (e *ExpandWrapperError) Code() string { return CodeExpandWrapper }

func (e *ExpandWrapperError) Error() string {
	return "storemodel: " + i18n.T(CodeExpandWrapper, map[string]string{"value": fmt.Sprintf("%v", e.Got)})
}

// UnrecognizedAttributeError is returned by Schema.New for keys the schema
// does not declare. Container casts recover from it and park the key in the
// instance's unknown attributes.
type UnrecognizedAttributeError struct {
	Schema    string
	Attribute string
}

func (e *UnrecognizedAttributeError) Code() string { return CodeUnrecognizedAttribute }

func (e *UnrecognizedAttributeError) Error() string {
	return "storemodel: " + i18n.T(CodeUnrecognizedAttribute, map[string]string{"attribute": e.Attribute, "schema": e.Schema})
}

// KeyNotFoundError is returned by Get and Fetch for names that are neither
// declared nor aliased.
type KeyNotFoundError struct {
	Name string
}

func (e *KeyNotFoundError) Code() string { return CodeKeyNotFound }

func (e *KeyNotFoundError) Error() string {
	return "storemodel: " + i18n.T(CodeKeyNotFound, map[string]string{"name": e.Name})
}

// UnknownStrategyError reports a strategy name missing from the registry.
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Code() string { return CodeUnknownStrategy }

func (e *UnknownStrategyError) Error() string {
	return "storemodel: " + i18n.T(CodeUnknownStrategy, map[string]string{"name": e.Name})
}

// DiscriminatorError covers both union construction failures
// (CodeDiscriminatorMissing, CodeDiscriminatorDuplicate) and per-cast
// resolution failures (CodeDiscriminatorAbsent, CodeDiscriminatorUnknown).
type DiscriminatorError struct {
	Kind          string // one of the CodeDiscriminator* constants
	Schema        string // offending schema (construction only)
	Other         string // schema already holding the value (duplicate only)
	Discriminator string
	Value         any
}

func (e *DiscriminatorError) Code() string { return e.Kind }

// Construction reports whether the error was raised while building a union.
func (e *DiscriminatorError) Construction() bool {
	return e.Kind == CodeDiscriminatorMissing || e.Kind == CodeDiscriminatorDuplicate
}

func (e *DiscriminatorError) Error() string {
	return "storemodel: " + i18n.T(e.Kind, map[string]string{
		"schema":        e.Schema,
		"other":         e.Other,
		"discriminator": e.Discriminator,
		"value":         fmt.Sprint(e.Value),
	})
}

// SchemaError reports an invalid schema declaration.
type SchemaError struct {
	Schema string
	Reason string
}

func (e *SchemaError) Code() string { return CodeSchema }

func (e *SchemaError) Error() string {
	return "storemodel: " + i18n.T(CodeSchema, map[string]string{"schema": e.Schema, "reason": e.Reason})
}
