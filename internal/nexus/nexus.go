// Package nexus implements the partition nexus: a DN-prefix routing
// tree that maps distinguished names to the partitions owning them,
// synthesizes the root DSE, and forwards primitive operations to the
// resolved partition.
package nexus

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
	"github.com/KilimcininKorOglu/sedir/internal/search"
)

// Vendor identification reported by the root DSE.
const (
	VendorName    = "Sedir"
	VendorVersion = "dev"
)

// node is one step of the routing tree. Nodes are either structural
// containers or partition mount points; the tree is strictly acyclic
// and holds no back-edges.
type node struct {
	children map[string]*node
	part     partition.Partition
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Nexus routes DNs to partitions and synthesizes the root DSE.
type Nexus struct {
	schemas    *schema.Manager
	root       *node
	partitions []partition.Partition
	controls   []string
	subschema  dn.Dn
	logger     *zap.Logger
}

// New creates an empty nexus. supportedControls lists the control OIDs
// the root DSE advertises.
func New(schemas *schema.Manager, logger *zap.Logger, supportedControls ...string) *Nexus {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Nexus{
		schemas:  schemas,
		root:     newNode(),
		controls: supportedControls,
		logger:   logger,
	}
	sub, err := dn.Parse("cn=schema")
	if err == nil {
		sub, err = sub.Normalize(schemas.Current())
	}
	if err == nil {
		n.subschema = sub
	}
	return n
}

// SubschemaDN returns the DN of the subschema subentry.
func (n *Nexus) SubschemaDN() dn.Dn {
	return n.subschema
}

// AddPartition mounts a partition under its suffix. Mounting two
// partitions on the same suffix is an error.
func (n *Nexus) AddPartition(p partition.Partition) error {
	suffix := p.Suffix()
	cur := n.root
	for i := suffix.Size() - 1; i >= 0; i-- {
		key := suffix.Rdns[i].Norm()
		next, ok := cur.children[key]
		if !ok {
			next = newNode()
			cur.children[key] = next
		}
		cur = next
	}
	if cur.part != nil {
		return fmt.Errorf("partition already mounted at %s", suffix.User())
	}
	cur.part = p
	n.partitions = append(n.partitions, p)
	n.logger.Info("partition mounted", zap.String("suffix", suffix.User()))
	return nil
}

// Partitions returns the mounted partitions.
func (n *Nexus) Partitions() []partition.Partition {
	return n.partitions
}

// FindSuffix returns the partition owning the longest suffix of the
// given normalized DN.
func (n *Nexus) FindSuffix(d dn.Dn) (partition.Partition, bool) {
	cur := n.root
	var found partition.Partition
	if cur.part != nil {
		found = cur.part
	}
	for i := d.Size() - 1; i >= 0; i-- {
		next, ok := cur.children[d.Rdns[i].Norm()]
		if !ok {
			break
		}
		cur = next
		if cur.part != nil {
			found = cur.part
		}
	}
	return found, found != nil
}

// resolve routes a DN, failing with NoSuchObject when no partition
// serves it.
func (n *Nexus) resolve(d dn.Dn) (partition.Partition, error) {
	p, ok := n.FindSuffix(d)
	if !ok {
		return nil, ldap.NewError(ldap.ResultNoSuchObject, "", d.User()+" is not held by any partition")
	}
	return p, nil
}

// HasEntry reports whether the DN names an existing entry. The empty DN
// (the root DSE) always exists.
func (n *Nexus) HasEntry(d dn.Dn) bool {
	if d.IsEmpty() {
		return true
	}
	p, ok := n.FindSuffix(d)
	if !ok {
		return false
	}
	_, ok = p.EntryID(d)
	return ok
}

// HasChildren reports whether the entry named by the DN has at least
// one child.
func (n *Nexus) HasChildren(d dn.Dn) (bool, error) {
	p, err := n.resolve(d)
	if err != nil {
		return false, err
	}
	id, ok := p.EntryID(d)
	if !ok {
		return false, ldap.NewError(ldap.ResultNoSuchObject, n.matchedPrefix(p, d), d.User()+" does not exist")
	}
	return p.HasChildren(id), nil
}

// ChildCount returns the number of immediate children of the entry
// named by the DN.
func (n *Nexus) ChildCount(d dn.Dn) (int, error) {
	p, err := n.resolve(d)
	if err != nil {
		return 0, err
	}
	id, ok := p.EntryID(d)
	if !ok {
		return 0, ldap.NewError(ldap.ResultNoSuchObject, n.matchedPrefix(p, d), d.User()+" does not exist")
	}
	return p.ChildCount(id), nil
}

// Lookup fetches the entry named by the normalized DN. The empty DN
// yields the synthesized root DSE.
func (n *Nexus) Lookup(d dn.Dn) (*entry.Entry, error) {
	if d.IsEmpty() {
		return n.RootDSE(), nil
	}
	p, err := n.resolve(d)
	if err != nil {
		return nil, err
	}
	e, ok := p.Lookup(d)
	if !ok {
		return nil, ldap.NewError(ldap.ResultNoSuchObject, n.matchedPrefix(p, d), d.User()+" does not exist")
	}
	return e, nil
}

// Add stores a new entry in the owning partition.
func (n *Nexus) Add(e *entry.Entry) error {
	p, err := n.resolve(e.Dn)
	if err != nil {
		return err
	}
	return p.Add(e)
}

// Delete removes the entry named by the normalized DN.
func (n *Nexus) Delete(d dn.Dn) error {
	p, err := n.resolve(d)
	if err != nil {
		return err
	}
	return p.Delete(d)
}

// Update replaces the attribute state of an existing entry.
func (n *Nexus) Update(e *entry.Entry) error {
	p, err := n.resolve(e.Dn)
	if err != nil {
		return err
	}
	return p.Update(e)
}

// Rename moves an entry and its subtree to a new DN. Moves across
// partitions are not supported.
func (n *Nexus) Rename(old, new dn.Dn, updated *entry.Entry) error {
	src, err := n.resolve(old)
	if err != nil {
		return err
	}
	dst, err := n.resolve(new)
	if err != nil {
		return err
	}
	if src != dst {
		return ldap.NewError(ldap.ResultUnwillingToPerform, old.User(),
			"cannot move an entry across partitions")
	}
	return src.Rename(old, new, updated)
}

// Search opens a candidate cursor over the partition owning the base.
func (n *Nexus) Search(base dn.Dn, mode ldap.SearchScope, f *filter.Node) (search.Cursor, partition.Partition, error) {
	p, err := n.resolve(base)
	if err != nil {
		return nil, nil, err
	}
	baseID, ok := p.EntryID(base)
	if !ok {
		return nil, nil, ldap.NewError(ldap.ResultNoSuchObject, n.matchedPrefix(p, base), base.User()+" does not exist")
	}
	planner := search.NewPlanner(p, n.schemas.Current())
	cur, err := planner.Cursor(search.Scope{Base: base, BaseID: baseID, Mode: mode}, f)
	if err != nil {
		return nil, nil, err
	}
	return cur, p, nil
}

// matchedPrefix returns the longest existing ancestor of a DN inside a
// partition: the resolved prefix reported with NoSuchObject.
func (n *Nexus) matchedPrefix(p partition.Partition, d dn.Dn) string {
	for cur := d.Parent(); ; cur = cur.Parent() {
		if cur.Size() < p.Suffix().Size() {
			return p.Suffix().User()
		}
		if _, ok := p.EntryID(cur); ok {
			return cur.User()
		}
		if cur.IsEmpty() {
			return ""
		}
	}
}

// RootDSE synthesizes the root DSE: naming contexts, the subschema
// subentry DN, and the supported control OIDs.
func (n *Nexus) RootDSE() *entry.Entry {
	reg := n.schemas.Current()
	e := entry.New(dn.Empty)
	_ = e.Add(reg, schema.AttrObjectClass, "top", schema.ClassExtensibleObject)
	for _, p := range n.partitions {
		_ = e.Add(reg, schema.AttrNamingContexts, p.Suffix().User())
	}
	_ = e.Add(reg, schema.AttrSubschemaSubentry, n.subschema.User())
	for _, oid := range n.controls {
		_ = e.Add(reg, schema.AttrSupportedControl, oid)
	}
	_ = e.Add(reg, "supportedLDAPVersion", "3")
	_ = e.Add(reg, "vendorName", VendorName)
	_ = e.Add(reg, "vendorVersion", VendorVersion)
	return e
}
