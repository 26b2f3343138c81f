package dn

import (
	"fmt"
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Ava is a single attribute-type-and-value pair inside an RDN. Both the
// type and the value keep the user-provided form alongside the
// normalized form filled in by Normalize.
type Ava struct {
	// UserType is the attribute type as supplied (e.g. "OU").
	UserType string
	// NormType is the canonical type: the resolved attribute OID when
	// the schema knows the type, otherwise the lowercased name.
	NormType string
	// UserValue is the value as supplied, after escape decoding.
	UserValue string
	// NormValue is the value reduced by the type's equality normalizer.
	NormValue string
}

// newAva creates an unnormalized Ava from parsed components.
func newAva(userType, userValue string) Ava {
	return Ava{
		UserType:  userType,
		NormType:  strings.ToLower(strings.TrimSpace(userType)),
		UserValue: userValue,
		NormValue: strings.ToLower(strings.TrimSpace(userValue)),
	}
}

// normalize resolves the type through the registries and applies the
// equality normalizer of the attribute type to the value.
func (a Ava) normalize(reg *schema.Registries) (Ava, error) {
	at, ok := reg.AttributeType(a.UserType)
	if !ok {
		return Ava{}, fmt.Errorf("%w: %s", schema.ErrUndefinedType, a.UserType)
	}
	norm, err := reg.Normalize(at, a.UserValue)
	if err != nil {
		return Ava{}, fmt.Errorf("normalizing value of %s: %w", a.UserType, err)
	}
	return Ava{
		UserType:  a.UserType,
		NormType:  at.OID,
		UserValue: a.UserValue,
		NormValue: norm,
	}, nil
}

// user renders the AVA in user form.
func (a Ava) user() string {
	return a.UserType + "=" + escapeValue(a.UserValue)
}

// norm renders the AVA in normalized form.
func (a Ava) norm() string {
	return a.NormType + "=" + escapeValue(a.NormValue)
}

// escapeValue escapes the characters RFC 2253 requires inside an
// attribute value: leading '#' and space, trailing space, and the
// special characters ',', '+', '"', '\', '<', '>', ';'.
func escapeValue(v string) string {
	if v == "" {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch c {
		case ',', '+', '"', '\\', '<', '>', ';':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '#':
			if i == 0 {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		case ' ':
			if i == 0 || i == len(v)-1 {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		default:
			if c < 0x20 {
				fmt.Fprintf(&b, "\\%02x", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
