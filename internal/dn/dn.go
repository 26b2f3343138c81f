package dn

import (
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Dn is a distinguished name: an ordered sequence of RDNs from most
// specific (left) to least specific (right). The zero value is the empty
// DN, which names the root DSE.
type Dn struct {
	// Rdns holds the components, most specific first.
	Rdns []Rdn

	// normalized records whether Normalize has been applied.
	normalized bool
}

// Empty is the empty DN naming the root DSE.
var Empty = Dn{}

// New builds a DN from RDNs, most specific first.
func New(rdns ...Rdn) Dn {
	return Dn{Rdns: rdns}
}

// IsEmpty reports whether this is the empty DN (the root DSE).
func (d Dn) IsEmpty() bool {
	return len(d.Rdns) == 0
}

// Size returns the number of RDN components.
func (d Dn) Size() int {
	return len(d.Rdns)
}

// Rdn returns the most specific component, or the zero Rdn for the
// empty DN.
func (d Dn) Rdn() Rdn {
	if len(d.Rdns) == 0 {
		return Rdn{}
	}
	return d.Rdns[0]
}

// Parent returns the DN with the most specific component removed. The
// parent of the empty DN is the empty DN.
func (d Dn) Parent() Dn {
	if len(d.Rdns) == 0 {
		return Empty
	}
	return Dn{Rdns: d.Rdns[1:], normalized: d.normalized}
}

// Child returns the DN obtained by prepending the given RDN.
func (d Dn) Child(r Rdn) Dn {
	rdns := make([]Rdn, 0, len(d.Rdns)+1)
	rdns = append(rdns, r)
	rdns = append(rdns, d.Rdns...)
	return Dn{Rdns: rdns}
}

// User renders the DN in user form.
func (d Dn) User() string {
	parts := make([]string, len(d.Rdns))
	for i, r := range d.Rdns {
		parts[i] = r.User()
	}
	return strings.Join(parts, ",")
}

// Norm renders the DN in normalized form. Equality of normalized forms
// defines entry identity.
func (d Dn) Norm() string {
	parts := make([]string, len(d.Rdns))
	for i, r := range d.Rdns {
		parts[i] = r.Norm()
	}
	return strings.Join(parts, ",")
}

// String renders the user form.
func (d Dn) String() string {
	return d.User()
}

// Normalized reports whether Normalize has been applied.
func (d Dn) Normalized() bool {
	return d.normalized || d.IsEmpty()
}

// Normalize resolves every AVA type through the registries and applies
// the equality normalizer of each type to its value. Normalization is
// idempotent.
func (d Dn) Normalize(reg *schema.Registries) (Dn, error) {
	if d.IsEmpty() {
		return Empty, nil
	}
	out := Dn{Rdns: make([]Rdn, len(d.Rdns)), normalized: true}
	for i, r := range d.Rdns {
		nr, err := r.normalize(reg)
		if err != nil {
			return Dn{}, err
		}
		out.Rdns[i] = nr
	}
	return out, nil
}

// Equal reports whether two DNs have identical normalized forms.
func (d Dn) Equal(other Dn) bool {
	if len(d.Rdns) != len(other.Rdns) {
		return false
	}
	return d.Norm() == other.Norm()
}

// IsDescendantOf reports whether d sits strictly below ancestor in the
// tree. The empty DN is an ancestor of every non-empty DN.
func (d Dn) IsDescendantOf(ancestor Dn) bool {
	if len(d.Rdns) <= len(ancestor.Rdns) {
		return false
	}
	offset := len(d.Rdns) - len(ancestor.Rdns)
	for i, r := range ancestor.Rdns {
		if d.Rdns[offset+i].Norm() != r.Norm() {
			return false
		}
	}
	return true
}

// IsChildOf reports whether d is an immediate child of parent.
func (d Dn) IsChildOf(parent Dn) bool {
	return len(d.Rdns) == len(parent.Rdns)+1 && d.IsDescendantOf(parent)
}

// Suffix returns the trailing n components as a DN.
func (d Dn) Suffix(n int) Dn {
	if n >= len(d.Rdns) {
		return d
	}
	return Dn{Rdns: d.Rdns[len(d.Rdns)-n:], normalized: d.normalized}
}
