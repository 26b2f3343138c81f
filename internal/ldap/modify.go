package ldap

// ModificationType represents the type of a modify operation element.
type ModificationType int

const (
	// ModAdd adds values to an attribute.
	ModAdd ModificationType = iota
	// ModDelete removes values from an attribute, or the whole attribute
	// when no values are listed.
	ModDelete
	// ModReplace replaces all values of an attribute.
	ModReplace
)

// String returns the string representation of the modification type.
func (m ModificationType) String() string {
	switch m {
	case ModAdd:
		return "add"
	case ModDelete:
		return "delete"
	case ModReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Modification represents a single element of a modify operation.
type Modification struct {
	// Type is the kind of modification (add, delete, replace).
	Type ModificationType

	// Attribute is the name or OID of the attribute to modify.
	Attribute string

	// Values are the values to add, delete, or replace with.
	Values []string
}

// NewModification creates a new Modification.
func NewModification(modType ModificationType, attr string, values ...string) Modification {
	return Modification{
		Type:      modType,
		Attribute: attr,
		Values:    values,
	}
}
