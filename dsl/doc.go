// Package dsl provides the attribute types used when declaring a
// storemodel.Schema.
//
// Overview
//   - Primitives: String(), Integer(), Float(), Boolean(), Time(), Raw().
//   - Arrays of primitives: ArrayOf(elem).
//   - Enums: Enum(Pair("active", 1), ...) or EnumOf("draft", "published").
//
// Nested models are not declared here: use Schema.One(), Schema.Many() and
// Schema.Hash() from the root package, or storemodel.Union for polymorphic
// attributes.
//
// Example
//
//	status := dsl.Enum(dsl.Pair("active", 1), dsl.Pair("archived", 0))
//	s := storemodel.NewSchema("Configuration").
//	    Attribute("color", dsl.String()).
//	    Attribute("status", status, storemodel.Default("active")).
//	    MustBuild()
package dsl
