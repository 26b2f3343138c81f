// Package search implements the filter evaluator and the candidate
// cursor planner: per-node evaluators that accept either a cheap index
// entry or a resuscitated full entry, scan-count estimation over the
// partition's indices, and the cursor constructions that turn a
// normalized filter and a scope into a stream of matching entry
// identifiers, each emitted exactly once.
package search
