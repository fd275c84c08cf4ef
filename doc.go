package storemodel

// Package storemodel casts schema-typed sub-values stored inside a JSON
// column and serializes them back:
//
// - Schema/Instance: named attribute sets and the values conforming to them
// - One/Many/Hash container types, plain or polymorphic (OneOf, Union)
// - Unknown wire keys are preserved and written back on serialization
// - Nested validation folds child errors into the parent via a Strategy
//
// Design policy:
// - Keep the core in the root package; attribute primitives live under dsl/.
// - Casting never fails on malformed text (it degrades to an empty value) but
//   always fails on a wrong structural kind.
// - Process-wide defaults live in a Config; Schemas may carry their own.
//
// Typical usage:
//
//	color := storemodel.NewSchema("Configuration").
//		Attribute("color", dsl.String()).
//		Attribute("model", dsl.String()).
//		ValidatesPresence("color").
//		MustBuild()
//
//	v, err := color.One().Cast(`{"color":"red","extra":1}`)
//	inst := v.(*storemodel.Instance)
//	inst.UnknownAttributes()["extra"] // json.Number("1")
//	text, err := color.One().Serialize(inst)
