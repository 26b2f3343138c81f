package schema

import "strings"

// AttributeUsage defines how an attribute is used in the directory.
type AttributeUsage int

const (
	// UserApplications indicates a user attribute that applications can
	// read and write. This is the default usage.
	UserApplications AttributeUsage = iota

	// DirectoryOperation indicates an operational attribute maintained
	// by the directory for its own purposes.
	DirectoryOperation

	// DistributedOperation indicates an operational attribute shared
	// across cooperating directory servers.
	DistributedOperation

	// DSAOperation indicates an operational attribute local to a single
	// server.
	DSAOperation
)

// String returns the string representation of the AttributeUsage.
func (u AttributeUsage) String() string {
	switch u {
	case UserApplications:
		return "userApplications"
	case DirectoryOperation:
		return "directoryOperation"
	case DistributedOperation:
		return "distributedOperation"
	case DSAOperation:
		return "dSAOperation"
	default:
		return "unknown"
	}
}

// IsOperational returns true if this usage indicates an operational attribute.
func (u AttributeUsage) IsOperational() bool {
	return u != UserApplications
}

// AttributeType represents an LDAP attribute type definition.
type AttributeType struct {
	OID         string         // Object Identifier (e.g., "2.5.4.3")
	Name        string         // Primary name (e.g., "cn")
	Names       []string       // All names including aliases (e.g., ["cn", "commonName"])
	Desc        string         // Human-readable description
	Obsolete    bool           // Whether this attribute type is obsolete
	Superior    string         // Parent attribute type name or OID
	Equality    string         // Matching rule OID/name for equality matching
	Ordering    string         // Matching rule OID/name for ordering matching
	Substring   string         // Matching rule OID/name for substring matching
	Syntax      string         // Syntax OID
	SingleValue bool           // If true, the attribute can hold only one value
	Collective  bool           // If true, the attribute is collective
	NoUserMod   bool           // If true, the attribute cannot be modified by users
	Usage       AttributeUsage // How the attribute is used
}

// NewAttributeType creates a new AttributeType with the given OID and
// name. The default usage is UserApplications.
func NewAttributeType(oid, name string) *AttributeType {
	return &AttributeType{
		OID:   oid,
		Name:  name,
		Names: []string{name},
		Usage: UserApplications,
	}
}

// IsOperational returns true if this is an operational attribute.
func (at *AttributeType) IsOperational() bool {
	return at.Usage.IsOperational()
}

// IsUserModifiable returns true when users may write this attribute.
func (at *AttributeType) IsUserModifiable() bool {
	return !at.NoUserMod && at.Usage == UserApplications
}

// HasName reports whether the given name or OID refers to this type,
// ignoring case.
func (at *AttributeType) HasName(nameOrOID string) bool {
	if strings.EqualFold(at.OID, nameOrOID) {
		return true
	}
	for _, n := range at.Names {
		if strings.EqualFold(n, nameOrOID) {
			return true
		}
	}
	return false
}

// AddName adds an alias name to this attribute type.
func (at *AttributeType) AddName(name string) {
	for _, n := range at.Names {
		if strings.EqualFold(n, name) {
			return
		}
	}
	at.Names = append(at.Names, name)
}

// IsDescendantOf reports whether this type equals or derives from the
// named supertype, following the superior chain through the registries.
// Collective attributes returned for a requested supertype rely on this
// relationship.
func (at *AttributeType) IsDescendantOf(r *Registries, nameOrOID string) bool {
	target, ok := r.AttributeType(nameOrOID)
	if !ok {
		return false
	}
	for cur := at; cur != nil; {
		if cur.OID == target.OID {
			return true
		}
		if cur.Superior == "" {
			return false
		}
		sup, ok := r.AttributeType(cur.Superior)
		if !ok {
			return false
		}
		cur = sup
	}
	return false
}
