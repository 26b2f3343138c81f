package partition

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
	"github.com/KilimcininKorOglu/sedir/internal/store"
)

// Memory is the in-memory b-tree partition. Entries live in a master
// table keyed by identifier; the rdn, presence, and entryUUID system
// indices plus the configured user attribute indices are maintained on
// every write.
type Memory struct {
	suffix dn.Dn
	reg    *schema.Registries
	logger *zap.Logger

	mu       sync.RWMutex
	master   *store.Table[string, *entry.Entry]
	presence *store.Table[string, string] // attribute OID -> id
	rdnIdx   *store.Table[string, string] // parent-id + rdn -> id
	rdnRev   *store.Table[string, string] // id -> parent-id + rdn
	uuidIdx  *store.Table[string, string] // id -> id
	indices  map[string]*store.Index      // user indices by attribute OID
}

// NewMemory creates an empty partition for the given suffix. The suffix
// DN must be normalized. indexedAttrs names the user attributes to
// maintain forward/reverse indices for.
func NewMemory(suffix dn.Dn, reg *schema.Registries, logger *zap.Logger, indexedAttrs ...string) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Memory{
		suffix: suffix,
		reg:    reg,
		logger: logger,
		master: store.NewTable[string, *entry.Entry](store.CompareIDs, func(a, b *entry.Entry) int {
			return store.CompareIDs(a.ID, b.ID)
		}),
		presence: store.NewTable[string, string](strings.Compare, store.CompareIDs),
		rdnIdx:   store.NewTable[string, string](strings.Compare, store.CompareIDs),
		rdnRev:   store.NewTable[string, string](store.CompareIDs, strings.Compare),
		uuidIdx:  store.NewTable[string, string](store.CompareIDs, store.CompareIDs),
		indices:  make(map[string]*store.Index),
	}
	for _, attr := range indexedAttrs {
		p.AddIndexFor(attr)
	}
	return p
}

// AddIndexFor configures a user attribute index, ordered by the
// attribute's ordering comparator.
func (p *Memory) AddIndexFor(nameOrOID string) {
	at, ok := p.reg.AttributeType(nameOrOID)
	if !ok {
		p.logger.Warn("not indexing unknown attribute", zap.String("attribute", nameOrOID))
		return
	}
	cmp := store.Compare[string](strings.Compare)
	if mr, ok := p.reg.OrderingRule(at); ok && mr.Compare != nil {
		cmp = store.Compare[string](mr.Compare)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.indices[at.OID]; !exists {
		p.indices[at.OID] = store.NewIndex(at.OID, cmp)
	}
}

// Suffix returns the partition's suffix DN.
func (p *Memory) Suffix() dn.Dn {
	return p.suffix
}

// Count returns the number of entries in the partition.
func (p *Memory) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.master.Count()
}

// EntryID resolves a normalized DN to its entry identifier by walking
// the rdn index from the suffix downward.
func (p *Memory) EntryID(d dn.Dn) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entryIDLocked(d)
}

func (p *Memory) entryIDLocked(d dn.Dn) (string, bool) {
	if d.Equal(p.suffix) {
		return p.rdnIdx.Get(RdnKey(RootParentID, p.suffix.Norm()))
	}
	if !d.IsDescendantOf(p.suffix) {
		return "", false
	}
	id, ok := p.rdnIdx.Get(RdnKey(RootParentID, p.suffix.Norm()))
	if !ok {
		return "", false
	}
	// Components below the suffix, least specific first.
	depth := d.Size() - p.suffix.Size()
	for i := depth - 1; i >= 0; i-- {
		id, ok = p.rdnIdx.Get(RdnKey(id, d.Rdns[i].Norm()))
		if !ok {
			return "", false
		}
	}
	return id, true
}

// Lookup returns a copy of the entry named by the DN.
func (p *Memory) Lookup(d dn.Dn) (*entry.Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.entryIDLocked(d)
	if !ok {
		return nil, false
	}
	e, ok := p.master.Get(id)
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// LookupByID returns a copy of the entry with the given identifier.
func (p *Memory) LookupByID(id string) (*entry.Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.master.Get(id)
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Add stores a new entry under its (normalized) DN.
func (p *Memory) Add(e *entry.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var parentID, rdnNorm string
	if e.Dn.Equal(p.suffix) {
		parentID, rdnNorm = RootParentID, p.suffix.Norm()
	} else {
		if !e.Dn.IsDescendantOf(p.suffix) {
			return ldap.Errorf(ldap.ResultNamingViolation, "%s is outside partition %s", e.Dn.User(), p.suffix.User())
		}
		var ok bool
		parentID, ok = p.entryIDLocked(e.Dn.Parent())
		if !ok {
			return ldap.NewError(ldap.ResultNoSuchObject, p.suffix.User(), "parent of "+e.Dn.User()+" does not exist")
		}
		rdnNorm = e.Dn.Rdn().Norm()
	}

	key := RdnKey(parentID, rdnNorm)
	if p.rdnIdx.Has(key) {
		return ldap.NewError(ldap.ResultEntryAlreadyExists, e.Dn.User(), "entry already exists")
	}

	stored := e.Clone()
	stored.ID = uuid.NewString()
	e.ID = stored.ID
	_ = stored.Put(p.reg, schema.AttrEntryUUID, stored.ID)

	p.master.Put(stored.ID, stored)
	p.uuidIdx.Put(stored.ID, stored.ID)
	p.rdnIdx.Put(key, stored.ID)
	p.rdnRev.Put(stored.ID, key)
	p.indexLocked(stored)

	p.logger.Debug("entry added",
		zap.String("dn", stored.Dn.User()),
		zap.String("id", stored.ID))
	return nil
}

// Delete removes the leaf entry named by the DN.
func (p *Memory) Delete(d dn.Dn) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.entryIDLocked(d)
	if !ok {
		return ldap.NewError(ldap.ResultNoSuchObject, p.suffix.User(), d.User()+" does not exist")
	}
	if p.hasChildrenLocked(id) {
		return ldap.NewError(ldap.ResultNotAllowedOnNonLeaf, d.User(), "entry has children")
	}

	e, _ := p.master.Get(id)
	if e != nil {
		p.unindexLocked(e)
	}
	if key, ok := p.rdnRev.Get(id); ok {
		p.rdnIdx.Remove(key)
	}
	p.rdnRev.Remove(id)
	p.uuidIdx.Remove(id)
	p.master.Remove(id)

	p.logger.Debug("entry deleted", zap.String("dn", d.User()), zap.String("id", id))
	return nil
}

// Update replaces the attribute state of an existing entry.
func (p *Memory) Update(e *entry.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	old, ok := p.master.Get(e.ID)
	if !ok {
		return ldap.NewError(ldap.ResultNoSuchObject, p.suffix.User(), e.Dn.User()+" does not exist")
	}
	p.unindexLocked(old)
	stored := e.Clone()
	p.master.RemoveValue(e.ID, old)
	p.master.Put(e.ID, stored)
	p.indexLocked(stored)
	return nil
}

// Rename moves the entry at old, together with its subtree, to the new
// DN. The updated entry carries the post-rename attribute state.
func (p *Memory) Rename(old, new dn.Dn, updated *entry.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old.Equal(p.suffix) {
		return ldap.NewError(ldap.ResultUnwillingToPerform, old.User(), "cannot rename the partition suffix")
	}
	id, ok := p.entryIDLocked(old)
	if !ok {
		return ldap.NewError(ldap.ResultNoSuchObject, p.suffix.User(), old.User()+" does not exist")
	}
	if _, exists := p.entryIDLocked(new); exists {
		return ldap.NewError(ldap.ResultEntryAlreadyExists, new.User(), "target entry already exists")
	}
	newParentID, ok := p.entryIDLocked(new.Parent())
	if !ok {
		return ldap.NewError(ldap.ResultNoSuchObject, p.suffix.User(), "new parent does not exist")
	}

	// Re-key the rdn index.
	if key, ok := p.rdnRev.Get(id); ok {
		p.rdnIdx.Remove(key)
		p.rdnRev.RemoveValue(id, key)
	}
	newKey := RdnKey(newParentID, new.Rdn().Norm())
	p.rdnIdx.Put(newKey, id)
	p.rdnRev.Put(id, newKey)

	// Swap in the updated entry under the new DN.
	oldStored, _ := p.master.Get(id)
	if oldStored != nil {
		p.unindexLocked(oldStored)
		p.master.RemoveValue(id, oldStored)
	}
	stored := updated.Clone()
	stored.ID = id
	stored.Dn = new
	updated.ID = id
	p.master.Put(id, stored)
	p.indexLocked(stored)

	// Rewrite the DNs of every descendant in place; their identifiers,
	// rdn keys, and index state are unaffected by the move.
	p.rewriteSubtreeDNs(id, old, new)

	p.logger.Debug("entry renamed",
		zap.String("old", old.User()),
		zap.String("new", new.User()))
	return nil
}

func (p *Memory) rewriteSubtreeDNs(parentID string, old, new dn.Dn) {
	for _, childID := range p.childIDsLocked(parentID) {
		child, ok := p.master.Get(childID)
		if !ok {
			continue
		}
		keep := child.Dn.Size() - old.Size()
		if keep < 1 {
			continue
		}
		rdns := make([]dn.Rdn, 0, keep+new.Size())
		rdns = append(rdns, child.Dn.Rdns[:keep]...)
		rdns = append(rdns, new.Rdns...)
		child.Dn = dn.New(rdns...)
		p.rewriteSubtreeDNs(childID, old, new)
	}
}

// HasChildren reports whether the entry has at least one child.
func (p *Memory) HasChildren(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hasChildrenLocked(id)
}

// ChildCount returns the number of immediate children.
func (p *Memory) ChildCount(id string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.childIDsLocked(id))
}

func (p *Memory) hasChildrenLocked(id string) bool {
	found := false
	p.scanChildrenLocked(id, func(string) bool {
		found = true
		return false
	})
	return found
}

func (p *Memory) childIDsLocked(id string) []string {
	var ids []string
	p.scanChildrenLocked(id, func(childID string) bool {
		ids = append(ids, childID)
		return true
	})
	return ids
}

// scanChildrenLocked walks the rdn index region belonging to a parent.
func (p *Memory) scanChildrenLocked(parentID string, fn func(childID string) bool) {
	prefix := RdnPrefix(parentID)
	cur := p.rdnIdx.Cursor()
	defer cur.Close()
	_ = cur.Before(store.Tuple[string, string]{Key: prefix})
	for {
		ok, err := cur.Next()
		if err != nil || !ok {
			return
		}
		t, err := cur.Get()
		if err != nil || !strings.HasPrefix(t.Key, prefix) {
			return
		}
		if !fn(t.Value) {
			return
		}
	}
}

// RdnCursor opens a cursor over the rdn index.
func (p *Memory) RdnCursor() *store.TableCursor[string, string] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rdnIdx.Cursor()
}

// IDCursor opens a cursor over the entryUUID index.
func (p *Memory) IDCursor() *store.TableCursor[string, string] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.uuidIdx.Cursor()
}

// Index returns the user attribute index for the attribute OID.
func (p *Memory) Index(attrOID string) (*store.Index, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ix, ok := p.indices[attrOID]
	return ix, ok
}

// PresenceCursor opens a cursor over the presence index.
func (p *Memory) PresenceCursor() *store.TableCursor[string, string] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.presence.Cursor()
}

// PresenceCount returns the number of entries carrying the attribute.
func (p *Memory) PresenceCount(attrOID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.presence.KeyCount(attrOID)
}

func (p *Memory) indexLocked(e *entry.Entry) {
	for _, a := range e.Attributes() {
		p.presence.Put(a.Type.OID, e.ID)
		if ix, ok := p.indices[a.Type.OID]; ok {
			for _, nv := range a.NormValues() {
				ix.Add(nv, e.ID)
			}
		}
	}
}

func (p *Memory) unindexLocked(e *entry.Entry) {
	for _, a := range e.Attributes() {
		p.presence.RemoveValue(a.Type.OID, e.ID)
		if ix, ok := p.indices[a.Type.OID]; ok {
			ix.DropID(e.ID)
		}
	}
}
