package partition

import (
	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/store"
)

// RdnSep joins a parent identifier and a normalized RDN into an rdn
// index key. Identifiers are UUID strings and RDNs never contain NUL,
// so the separator is unambiguous.
const RdnSep = "\x00"

// RdnKey builds the rdn index key for a child of the given parent.
func RdnKey(parentID, normRdn string) string {
	return parentID + RdnSep + normRdn
}

// RdnPrefix is the key prefix shared by all children of a parent.
func RdnPrefix(parentID string) string {
	return parentID + RdnSep
}

// RootParentID is the synthetic parent identifier of a partition's
// suffix entry.
const RootParentID = "ROOT"

// Partition is a named subtree of entries owned by one storage
// instance. All DNs passed in must be normalized; entry identity is the
// stable per-partition identifier, independent of the DN.
type Partition interface {
	// Suffix returns the partition's suffix DN.
	Suffix() dn.Dn

	// Count returns the number of entries in the partition.
	Count() int

	// EntryID resolves a DN to the stable entry identifier.
	EntryID(d dn.Dn) (string, bool)

	// Lookup returns a copy of the entry named by the DN.
	Lookup(d dn.Dn) (*entry.Entry, bool)

	// LookupByID returns a copy of the entry with the given identifier.
	LookupByID(id string) (*entry.Entry, bool)

	// Add stores a new entry, assigning its identifier.
	Add(e *entry.Entry) error

	// Delete removes the leaf entry named by the DN.
	Delete(d dn.Dn) error

	// Update replaces the attributes of an existing entry. The entry's
	// identifier selects the target; its DN must be unchanged.
	Update(e *entry.Entry) error

	// Rename moves the entry at old (and its subtree) to the new DN.
	// The updated entry carries the new RDN attribute state.
	Rename(old, new dn.Dn, updated *entry.Entry) error

	// HasChildren reports whether the entry has at least one child.
	HasChildren(id string) bool

	// ChildCount returns the number of immediate children.
	ChildCount(id string) int

	// RdnCursor opens a cursor over the rdn index, whose keys are
	// parent-id + RDN and whose values are child identifiers.
	RdnCursor() *store.TableCursor[string, string]

	// IDCursor opens a cursor over the entryUUID index: every entry
	// identifier, in identifier order.
	IDCursor() *store.TableCursor[string, string]

	// Index returns the user attribute index for the given attribute
	// OID, if one is configured.
	Index(attrOID string) (*store.Index, bool)

	// PresenceCursor opens an unpositioned cursor over the presence
	// index, whose keys are attribute OIDs and whose values are entry
	// identifiers.
	PresenceCursor() *store.TableCursor[string, string]

	// PresenceCount returns the number of entries carrying the
	// attribute.
	PresenceCount(attrOID string) int
}
