package entry

import (
	"fmt"

	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Attribute holds the values of one attribute type on an entry. Values
// keep insertion order; duplicates under the type's equality matching
// rule are forbidden.
type Attribute struct {
	// Type is the resolved attribute type.
	Type *schema.AttributeType

	// UserID is the attribute name as first supplied (e.g. "OU").
	UserID string

	values []string // user values, insertion ordered
	norm   []string // normalized values, parallel to values
}

// NewAttribute creates an empty attribute of the given type.
func NewAttribute(at *schema.AttributeType, userID string) *Attribute {
	if userID == "" {
		userID = at.Name
	}
	return &Attribute{Type: at, UserID: userID}
}

// Len returns the number of values.
func (a *Attribute) Len() int {
	return len(a.values)
}

// Values returns the user-form values in insertion order. The returned
// slice is shared; callers must not mutate it.
func (a *Attribute) Values() []string {
	return a.values
}

// NormValues returns the normalized projection of the values.
func (a *Attribute) NormValues() []string {
	return a.norm
}

// First returns the first user value, or "".
func (a *Attribute) First() string {
	if len(a.values) == 0 {
		return ""
	}
	return a.values[0]
}

// Add appends a value unless an equal value (under the equality rule) is
// already present. It reports whether the value was added.
func (a *Attribute) Add(reg *schema.Registries, value string) (bool, error) {
	nv, err := reg.Normalize(a.Type, value)
	if err != nil {
		return false, fmt.Errorf("normalizing %s value: %w", a.UserID, err)
	}
	for _, existing := range a.norm {
		if existing == nv {
			return false, nil
		}
	}
	a.values = append(a.values, value)
	a.norm = append(a.norm, nv)
	return true, nil
}

// Contains reports whether the attribute holds a value equal to the
// given one under the equality rule.
func (a *Attribute) Contains(reg *schema.Registries, value string) bool {
	nv, err := reg.Normalize(a.Type, value)
	if err != nil {
		return false
	}
	for _, existing := range a.norm {
		if existing == nv {
			return true
		}
	}
	return false
}

// Remove deletes the value equal to the given one under the equality
// rule, reporting whether a value was removed.
func (a *Attribute) Remove(reg *schema.Registries, value string) bool {
	nv, err := reg.Normalize(a.Type, value)
	if err != nil {
		return false
	}
	for i, existing := range a.norm {
		if existing == nv {
			a.values = append(a.values[:i], a.values[i+1:]...)
			a.norm = append(a.norm[:i], a.norm[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the attribute.
func (a *Attribute) Clone() *Attribute {
	return &Attribute{
		Type:   a.Type,
		UserID: a.UserID,
		values: append([]string(nil), a.values...),
		norm:   append([]string(nil), a.norm...),
	}
}
