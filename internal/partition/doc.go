// Package partition implements the storage partition layer: a named
// subtree of entries owned by one store, addressed by a stable entry
// identifier and exposed through the system indices the search planner
// relies on (presence, rdn, entryUUID) plus one forward/reverse index
// pair per configured user attribute.
package partition
