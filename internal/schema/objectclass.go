package schema

import "strings"

// ObjectClassKind represents the kind of an LDAP object class.
type ObjectClassKind int

const (
	// ObjectClassAbstract represents an abstract object class. Abstract
	// classes cannot be instantiated directly.
	ObjectClassAbstract ObjectClassKind = iota

	// ObjectClassStructural represents a structural object class. Every
	// entry has exactly one structural class chain.
	ObjectClassStructural

	// ObjectClassAuxiliary represents an auxiliary object class, which
	// adds attributes alongside a structural class.
	ObjectClassAuxiliary
)

// String returns the string representation of the ObjectClassKind.
func (k ObjectClassKind) String() string {
	switch k {
	case ObjectClassAbstract:
		return "ABSTRACT"
	case ObjectClassStructural:
		return "STRUCTURAL"
	case ObjectClassAuxiliary:
		return "AUXILIARY"
	default:
		return "UNKNOWN"
	}
}

// ObjectClass represents an LDAP object class definition: the attributes
// entries of the class must have (MUST) and may have (MAY).
type ObjectClass struct {
	OID      string          // Object Identifier (e.g., "2.5.6.6")
	Name     string          // Primary name (e.g., "person")
	Names    []string        // All names including aliases
	Desc     string          // Human-readable description
	Obsolete bool            // Whether this object class is obsolete
	Superior string          // Parent object class name or OID
	Kind     ObjectClassKind // Abstract, Structural, or Auxiliary
	Must     []string        // Required attribute names
	May      []string        // Optional attribute names
}

// NewObjectClass creates a new structural ObjectClass with the given OID
// and name.
func NewObjectClass(oid, name string) *ObjectClass {
	return &ObjectClass{
		OID:   oid,
		Name:  name,
		Names: []string{name},
		Kind:  ObjectClassStructural,
	}
}

// HasMustAttribute checks if the given attribute is required by this
// object class, ignoring case.
func (oc *ObjectClass) HasMustAttribute(attr string) bool {
	for _, must := range oc.Must {
		if strings.EqualFold(must, attr) {
			return true
		}
	}
	return false
}

// HasMayAttribute checks if the given attribute is optional for this
// object class, ignoring case.
func (oc *ObjectClass) HasMayAttribute(attr string) bool {
	for _, may := range oc.May {
		if strings.EqualFold(may, attr) {
			return true
		}
	}
	return false
}

// AllowsAttribute checks if the given attribute is allowed (MUST or MAY)
// by this object class.
func (oc *ObjectClass) AllowsAttribute(attr string) bool {
	return oc.HasMustAttribute(attr) || oc.HasMayAttribute(attr)
}

// HasName reports whether the given name or OID refers to this class,
// ignoring case.
func (oc *ObjectClass) HasName(nameOrOID string) bool {
	if strings.EqualFold(oc.OID, nameOrOID) {
		return true
	}
	for _, n := range oc.Names {
		if strings.EqualFold(n, nameOrOID) {
			return true
		}
	}
	return false
}
