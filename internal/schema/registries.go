package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// Registry errors.
var (
	ErrSealed            = errors.New("registries are sealed")
	ErrNotSealed         = errors.New("registries are not sealed")
	ErrUndefinedType     = errors.New("undefined attribute type")
	ErrUndefinedClass    = errors.New("undefined object class")
	ErrUndefinedRule     = errors.New("undefined matching rule")
	ErrUndefinedSyntax   = errors.New("undefined syntax")
	ErrDanglingReference = errors.New("dangling schema reference")
)

// Registries holds the complete schema: attribute types, object classes,
// syntaxes, and matching rules, each addressable by OID or by any of its
// names (case-insensitive). After Seal succeeds the registries are
// immutable; modifications go through a Manager rebuild.
type Registries struct {
	attributeTypes map[string]*AttributeType
	objectClasses  map[string]*ObjectClass
	syntaxes       map[string]*Syntax
	matchingRules  map[string]*MatchingRule

	// Distinct definitions, kept for iteration and cloning.
	attributeTypeList []*AttributeType
	objectClassList   []*ObjectClass
	syntaxList        []*Syntax
	matchingRuleList  []*MatchingRule

	sealed bool
}

// NewRegistries creates empty, unsealed registries.
func NewRegistries() *Registries {
	return &Registries{
		attributeTypes: make(map[string]*AttributeType),
		objectClasses:  make(map[string]*ObjectClass),
		syntaxes:       make(map[string]*Syntax),
		matchingRules:  make(map[string]*MatchingRule),
	}
}

func regKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AddAttributeType registers an attribute type by OID and all names.
func (r *Registries) AddAttributeType(at *AttributeType) error {
	if r.sealed {
		return ErrSealed
	}
	r.attributeTypeList = append(r.attributeTypeList, at)
	if at.OID != "" {
		r.attributeTypes[regKey(at.OID)] = at
	}
	for _, name := range at.Names {
		r.attributeTypes[regKey(name)] = at
	}
	return nil
}

// AddObjectClass registers an object class by OID and all names.
func (r *Registries) AddObjectClass(oc *ObjectClass) error {
	if r.sealed {
		return ErrSealed
	}
	r.objectClassList = append(r.objectClassList, oc)
	if oc.OID != "" {
		r.objectClasses[regKey(oc.OID)] = oc
	}
	for _, name := range oc.Names {
		r.objectClasses[regKey(name)] = oc
	}
	return nil
}

// AddSyntax registers a syntax by OID.
func (r *Registries) AddSyntax(syn *Syntax) error {
	if r.sealed {
		return ErrSealed
	}
	r.syntaxList = append(r.syntaxList, syn)
	if syn.OID != "" {
		r.syntaxes[regKey(syn.OID)] = syn
	}
	return nil
}

// AddMatchingRule registers a matching rule by OID and all names.
func (r *Registries) AddMatchingRule(mr *MatchingRule) error {
	if r.sealed {
		return ErrSealed
	}
	r.matchingRuleList = append(r.matchingRuleList, mr)
	if mr.OID != "" {
		r.matchingRules[regKey(mr.OID)] = mr
	}
	for _, name := range mr.Names {
		r.matchingRules[regKey(name)] = mr
	}
	return nil
}

// AttributeType looks up an attribute type by name or OID.
func (r *Registries) AttributeType(nameOrOID string) (*AttributeType, bool) {
	at, ok := r.attributeTypes[regKey(nameOrOID)]
	return at, ok
}

// ObjectClass looks up an object class by name or OID.
func (r *Registries) ObjectClass(nameOrOID string) (*ObjectClass, bool) {
	oc, ok := r.objectClasses[regKey(nameOrOID)]
	return oc, ok
}

// Syntax looks up a syntax by OID.
func (r *Registries) Syntax(oid string) (*Syntax, bool) {
	syn, ok := r.syntaxes[regKey(oid)]
	return syn, ok
}

// MatchingRule looks up a matching rule by name or OID.
func (r *Registries) MatchingRule(nameOrOID string) (*MatchingRule, bool) {
	mr, ok := r.matchingRules[regKey(nameOrOID)]
	return mr, ok
}

// OID resolves an attribute name or alias to its OID. Unknown names
// resolve to false.
func (r *Registries) OID(nameOrOID string) (string, bool) {
	at, ok := r.AttributeType(nameOrOID)
	if !ok {
		return "", false
	}
	return at.OID, true
}

// AttributeTypes returns all registered attribute type definitions.
func (r *Registries) AttributeTypes() []*AttributeType {
	return r.attributeTypeList
}

// ObjectClasses returns all registered object class definitions.
func (r *Registries) ObjectClasses() []*ObjectClass {
	return r.objectClassList
}

// EqualityRule resolves the equality matching rule of an attribute type,
// walking the superior chain when the type does not define one itself.
func (r *Registries) EqualityRule(at *AttributeType) (*MatchingRule, bool) {
	for at != nil {
		if at.Equality != "" {
			return r.MatchingRule(at.Equality)
		}
		if at.Superior == "" {
			break
		}
		sup, ok := r.AttributeType(at.Superior)
		if !ok {
			break
		}
		at = sup
	}
	return nil, false
}

// OrderingRule resolves the ordering matching rule of an attribute type,
// falling back to the equality rule's comparator when none is defined.
func (r *Registries) OrderingRule(at *AttributeType) (*MatchingRule, bool) {
	for cur := at; cur != nil; {
		if cur.Ordering != "" {
			return r.MatchingRule(cur.Ordering)
		}
		if cur.Superior == "" {
			break
		}
		sup, ok := r.AttributeType(cur.Superior)
		if !ok {
			break
		}
		cur = sup
	}
	return r.EqualityRule(at)
}

// Normalize reduces a value to the canonical form defined by the
// attribute type's equality matching rule. Types without an equality
// rule normalize case-insensitively.
func (r *Registries) Normalize(at *AttributeType, value string) (string, error) {
	if mr, ok := r.EqualityRule(at); ok && mr.Normalize != nil {
		return mr.Normalize(value)
	}
	return NormalizeCaseIgnore(value)
}

// NormalizeByName normalizes a value for the named attribute. Unknown
// attribute names return ErrUndefinedType.
func (r *Registries) NormalizeByName(nameOrOID, value string) (string, error) {
	at, ok := r.AttributeType(nameOrOID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUndefinedType, nameOrOID)
	}
	return r.Normalize(at, value)
}

// Seal verifies referential integrity and freezes the registries:
// every attribute type must resolve its equality rule (when named), its
// syntax, and its superior; every object class must resolve its superior
// and all MUST and MAY attributes.
func (r *Registries) Seal() error {
	for _, at := range r.attributeTypeList {
		if at.Equality != "" {
			if _, ok := r.MatchingRule(at.Equality); !ok {
				return fmt.Errorf("%w: attribute type %s references matching rule %s", ErrDanglingReference, at.Name, at.Equality)
			}
		}
		if at.Syntax != "" {
			if _, ok := r.Syntax(at.Syntax); !ok {
				return fmt.Errorf("%w: attribute type %s references syntax %s", ErrDanglingReference, at.Name, at.Syntax)
			}
		}
		if at.Superior != "" {
			if _, ok := r.AttributeType(at.Superior); !ok {
				return fmt.Errorf("%w: attribute type %s references superior %s", ErrDanglingReference, at.Name, at.Superior)
			}
		}
	}
	for _, oc := range r.objectClassList {
		if oc.Superior != "" {
			if _, ok := r.ObjectClass(oc.Superior); !ok {
				return fmt.Errorf("%w: object class %s references superior %s", ErrDanglingReference, oc.Name, oc.Superior)
			}
		}
		for _, must := range oc.Must {
			if _, ok := r.AttributeType(must); !ok {
				return fmt.Errorf("%w: object class %s requires unknown attribute %s", ErrDanglingReference, oc.Name, must)
			}
		}
		for _, may := range oc.May {
			if _, ok := r.AttributeType(may); !ok {
				return fmt.Errorf("%w: object class %s allows unknown attribute %s", ErrDanglingReference, oc.Name, may)
			}
		}
	}
	r.sealed = true
	return nil
}

// Sealed reports whether the registries have been sealed.
func (r *Registries) Sealed() bool {
	return r.sealed
}

// Clone returns an unsealed deep copy suitable for a rebuild.
func (r *Registries) Clone() *Registries {
	out := NewRegistries()
	for _, at := range r.attributeTypeList {
		cp := *at
		cp.Names = append([]string(nil), at.Names...)
		out.AddAttributeType(&cp)
	}
	for _, oc := range r.objectClassList {
		cp := *oc
		cp.Names = append([]string(nil), oc.Names...)
		cp.Must = append([]string(nil), oc.Must...)
		cp.May = append([]string(nil), oc.May...)
		out.AddObjectClass(&cp)
	}
	for _, syn := range r.syntaxList {
		cp := *syn
		out.AddSyntax(&cp)
	}
	for _, mr := range r.matchingRuleList {
		cp := *mr
		cp.Names = append([]string(nil), mr.Names...)
		out.AddMatchingRule(&cp)
	}
	return out
}

// Manager publishes the current registries and performs atomic
// rebuild-and-swap schema modifications. Readers obtain a consistent
// snapshot from Current and are never blocked by a rebuild.
type Manager struct {
	current atomic.Pointer[Registries]
}

// NewManager creates a Manager around sealed registries.
func NewManager(r *Registries) (*Manager, error) {
	if !r.Sealed() {
		return nil, ErrNotSealed
	}
	m := &Manager{}
	m.current.Store(r)
	return m, nil
}

// Current returns the active registries snapshot.
func (m *Manager) Current() *Registries {
	return m.current.Load()
}

// Rebuild clones the active registries, applies the mutation, seals the
// result, and swaps it in. The mutation sees an unsealed copy; on any
// error the active registries are left untouched.
func (m *Manager) Rebuild(mutate func(*Registries) error) error {
	next := m.Current().Clone()
	if err := mutate(next); err != nil {
		return err
	}
	if err := next.Seal(); err != nil {
		return err
	}
	m.current.Store(next)
	return nil
}
