// Package pipeline implements the operation pipeline of the directory
// core: per-request operation contexts, the statically composed
// interceptor chain every operation traverses, and the interceptors
// that attach cross-cutting behavior — normalization, tree-level sanity
// guards, operational attribute stamping, schema validation, subentry
// administration, collective attribute merging, the default
// authorization policy, and the change feed.
//
// The chain is immutable after construction. Each interceptor either
// short-circuits with a typed error, mutates the context, or delegates
// to the remainder of the chain; the tail forwards to the partition
// nexus.
package pipeline
