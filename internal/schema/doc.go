// Package schema provides the schema-aware data model of the directory
// core: attribute types, object classes, syntaxes, and matching rules,
// held in sealed registries that can be looked up by name or OID.
//
// Registries are immutable after sealing. Schema modifications rebuild a
// fresh set of registries and swap them atomically via the Manager, so
// readers never observe a partially updated schema.
package schema
