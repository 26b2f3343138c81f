package entry

import (
	"fmt"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Entry is a directory entry: a DN, a stable per-partition identifier,
// and a set of attributes keyed by attribute-type OID.
type Entry struct {
	// Dn is the entry's distinguished name, normalized by the pipeline.
	Dn dn.Dn

	// ID is the stable entry identifier assigned by the owning
	// partition, independent of the DN.
	ID string

	attrs map[string]*Attribute // keyed by attribute-type OID
	order []string              // OIDs in insertion order
}

// New creates an empty entry with the given DN.
func New(d dn.Dn) *Entry {
	return &Entry{
		Dn:    d,
		attrs: make(map[string]*Attribute),
	}
}

// Get returns the attribute for the given name or OID, or nil.
func (e *Entry) Get(reg *schema.Registries, nameOrOID string) *Attribute {
	at, ok := reg.AttributeType(nameOrOID)
	if !ok {
		return nil
	}
	return e.attrs[at.OID]
}

// Has reports whether the entry carries the named attribute with at
// least one value.
func (e *Entry) Has(reg *schema.Registries, nameOrOID string) bool {
	a := e.Get(reg, nameOrOID)
	return a != nil && a.Len() > 0
}

// First returns the first value of the named attribute, or "".
func (e *Entry) First(reg *schema.Registries, nameOrOID string) string {
	a := e.Get(reg, nameOrOID)
	if a == nil {
		return ""
	}
	return a.First()
}

// Add merges values into the named attribute, creating it when absent.
// Values already present under the equality rule are ignored.
func (e *Entry) Add(reg *schema.Registries, nameOrOID string, values ...string) error {
	at, ok := reg.AttributeType(nameOrOID)
	if !ok {
		return ldap.Errorf(ldap.ResultUndefinedAttributeType, "attribute %s is not defined", nameOrOID)
	}
	a := e.attrs[at.OID]
	if a == nil {
		a = NewAttribute(at, nameOrOID)
		e.attrs[at.OID] = a
		e.order = append(e.order, at.OID)
	}
	for _, v := range values {
		if _, err := a.Add(reg, v); err != nil {
			return ldap.Errorf(ldap.ResultInvalidAttributeSyntax, "%v", err)
		}
	}
	return nil
}

// Put replaces all values of the named attribute. An empty value list
// removes the attribute.
func (e *Entry) Put(reg *schema.Registries, nameOrOID string, values ...string) error {
	at, ok := reg.AttributeType(nameOrOID)
	if !ok {
		return ldap.Errorf(ldap.ResultUndefinedAttributeType, "attribute %s is not defined", nameOrOID)
	}
	e.removeOID(at.OID)
	if len(values) == 0 {
		return nil
	}
	return e.Add(reg, nameOrOID, values...)
}

// Remove deletes specific values, or the whole attribute when no values
// are given. It reports whether anything was removed.
func (e *Entry) Remove(reg *schema.Registries, nameOrOID string, values ...string) (bool, error) {
	at, ok := reg.AttributeType(nameOrOID)
	if !ok {
		return false, ldap.Errorf(ldap.ResultUndefinedAttributeType, "attribute %s is not defined", nameOrOID)
	}
	a := e.attrs[at.OID]
	if a == nil {
		return false, nil
	}
	if len(values) == 0 {
		e.removeOID(at.OID)
		return true, nil
	}
	removed := false
	for _, v := range values {
		if a.Remove(reg, v) {
			removed = true
		}
	}
	if a.Len() == 0 {
		e.removeOID(at.OID)
	}
	return removed, nil
}

func (e *Entry) removeOID(oid string) {
	if _, ok := e.attrs[oid]; !ok {
		return
	}
	delete(e.attrs, oid)
	for i, o := range e.order {
		if o == oid {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Attributes returns the entry's attributes in insertion order.
func (e *Entry) Attributes() []*Attribute {
	out := make([]*Attribute, 0, len(e.order))
	for _, oid := range e.order {
		out = append(out, e.attrs[oid])
	}
	return out
}

// HasObjectClass reports whether the entry lists the given object class,
// directly or through a superior class.
func (e *Entry) HasObjectClass(reg *schema.Registries, nameOrOID string) bool {
	target, ok := reg.ObjectClass(nameOrOID)
	if !ok {
		return false
	}
	a := e.Get(reg, schema.AttrObjectClass)
	if a == nil {
		return false
	}
	for _, v := range a.Values() {
		oc, ok := reg.ObjectClass(v)
		for ok {
			if oc.OID == target.OID {
				return true
			}
			if oc.Superior == "" {
				break
			}
			oc, ok = reg.ObjectClass(oc.Superior)
		}
	}
	return false
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := &Entry{
		Dn:    e.Dn,
		ID:    e.ID,
		attrs: make(map[string]*Attribute, len(e.attrs)),
		order: append([]string(nil), e.order...),
	}
	for oid, a := range e.attrs {
		out.attrs[oid] = a.Clone()
	}
	return out
}

// Apply applies a modification list to the entry in order. ModAdd of a
// value already present fails with AttributeOrValueExists; ModDelete of
// a missing attribute or value fails with NoSuchAttribute.
func (e *Entry) Apply(reg *schema.Registries, mods []ldap.Modification) error {
	for _, mod := range mods {
		switch mod.Type {
		case ldap.ModAdd:
			at, ok := reg.AttributeType(mod.Attribute)
			if !ok {
				return ldap.Errorf(ldap.ResultUndefinedAttributeType, "attribute %s is not defined", mod.Attribute)
			}
			a := e.attrs[at.OID]
			for _, v := range mod.Values {
				if a != nil && a.Contains(reg, v) {
					return ldap.Errorf(ldap.ResultAttributeOrValueExists,
						"attribute %s already holds value %s", mod.Attribute, v)
				}
			}
			if err := e.Add(reg, mod.Attribute, mod.Values...); err != nil {
				return err
			}
		case ldap.ModDelete:
			removed, err := e.Remove(reg, mod.Attribute, mod.Values...)
			if err != nil {
				return err
			}
			if !removed {
				return ldap.Errorf(ldap.ResultNoSuchAttribute,
					"attribute %s has no matching value to delete", mod.Attribute)
			}
		case ldap.ModReplace:
			if err := e.Put(reg, mod.Attribute, mod.Values...); err != nil {
				return err
			}
		default:
			return ldap.Errorf(ldap.ResultProtocolError, "unknown modification type %d", mod.Type)
		}
	}
	return nil
}

// String renders the entry DN for diagnostics.
func (e *Entry) String() string {
	return fmt.Sprintf("entry(%s)", e.Dn.User())
}
