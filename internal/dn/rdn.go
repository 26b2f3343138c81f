package dn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Rdn is a relative distinguished name: one or more AVAs joined by '+'.
// After normalization all AVAs have distinct canonical types and are
// iterated in ascending type order, so the normalized string is
// canonical.
type Rdn struct {
	Avas []Ava
}

// NewRdn builds an RDN from a single type and value.
func NewRdn(attrType, value string) Rdn {
	return Rdn{Avas: []Ava{newAva(attrType, value)}}
}

// ParseRdn parses a single RDN string. Empty RDNs are rejected.
func ParseRdn(s string) (Rdn, error) {
	d, err := Parse(s)
	if err != nil {
		return Rdn{}, err
	}
	if d.Size() != 1 {
		return Rdn{}, fmt.Errorf("%w: expected a single component in %q", ErrInvalidDN, s)
	}
	return d.Rdn(), nil
}

// Size returns the number of AVAs in the RDN.
func (r Rdn) Size() int {
	return len(r.Avas)
}

// Type returns the normalized type of the first AVA.
func (r Rdn) Type() string {
	if len(r.Avas) == 0 {
		return ""
	}
	return r.Avas[0].NormType
}

// Value returns the user value of the first AVA.
func (r Rdn) Value() string {
	if len(r.Avas) == 0 {
		return ""
	}
	return r.Avas[0].UserValue
}

// HasType reports whether the RDN contains an AVA of the given
// canonical type.
func (r Rdn) HasType(normType string) bool {
	for _, a := range r.Avas {
		if a.NormType == normType {
			return true
		}
	}
	return false
}

// User renders the RDN in user form.
func (r Rdn) User() string {
	parts := make([]string, len(r.Avas))
	for i, a := range r.Avas {
		parts[i] = a.user()
	}
	return strings.Join(parts, "+")
}

// Norm renders the RDN in canonical form: AVAs in ascending type order.
func (r Rdn) Norm() string {
	parts := make([]string, len(r.Avas))
	for i, a := range sortedAvas(r.Avas) {
		parts[i] = a.norm()
	}
	return strings.Join(parts, "+")
}

// String renders the user form.
func (r Rdn) String() string {
	return r.User()
}

// Equal reports whether two RDNs have identical canonical forms.
func (r Rdn) Equal(other Rdn) bool {
	return r.Norm() == other.Norm()
}

// normalize returns a copy with every AVA normalized through the
// registries. Duplicate canonical types within the RDN are rejected.
func (r Rdn) normalize(reg *schema.Registries) (Rdn, error) {
	out := Rdn{Avas: make([]Ava, len(r.Avas))}
	seen := make(map[string]struct{}, len(r.Avas))
	for i, a := range r.Avas {
		na, err := a.normalize(reg)
		if err != nil {
			return Rdn{}, err
		}
		if _, dup := seen[na.NormType]; dup {
			return Rdn{}, fmt.Errorf("%w: duplicate attribute type %s in RDN", ErrInvalidDN, a.UserType)
		}
		seen[na.NormType] = struct{}{}
		out.Avas[i] = na
	}
	return out, nil
}

func sortedAvas(avas []Ava) []Ava {
	if len(avas) < 2 {
		return avas
	}
	out := append([]Ava(nil), avas...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].NormType != out[j].NormType {
			return out[i].NormType < out[j].NormType
		}
		return out[i].NormValue < out[j].NormValue
	})
	return out
}
