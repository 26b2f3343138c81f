// Package store provides the indexed store abstraction of the directory
// core: ordered tables with duplicate values built on an in-memory
// B-tree, the bidirectional cursor protocol over them, and the
// forward/reverse index pairs partitions maintain per attribute.
//
// Cursors follow a strict state machine: created before the first
// element, they move between BEFORE_FIRST, POSITIONED, BETWEEN, and
// AFTER_LAST, with CLOSED absorbing from any state. Get is legal only
// when positioned on an element. Cursors operate on a snapshot taken at
// creation time; concurrent writes are invisible to an open cursor but
// never corrupt it.
package store
