package entry

import (
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Validate checks an entry against the object class rules of the
// schema before it is written:
//
//   - the entry lists at least one defined object class
//   - every required (MUST) attribute of every listed class is present
//   - every attribute is allowed by some listed class, unless the entry
//     is extensible or the attribute is operational
//   - single-valued attributes hold at most one value
//   - every value conforms to its attribute's syntax
//   - collective attributes appear only on collective attribute
//     subentries
//   - the RDN's attribute-value pairs appear among the entry's
//     attributes
func Validate(reg *schema.Registries, e *Entry) error {
	ocAttr := e.Get(reg, schema.AttrObjectClass)
	if ocAttr == nil || ocAttr.Len() == 0 {
		return ldap.Errorf(ldap.ResultObjectClassViolation, "entry %s has no objectClass", e.Dn.User())
	}

	classes := make([]*schema.ObjectClass, 0, ocAttr.Len())
	for _, name := range ocAttr.Values() {
		oc, ok := reg.ObjectClass(name)
		if !ok {
			return ldap.Errorf(ldap.ResultObjectClassViolation, "unknown object class %s", name)
		}
		// Pull in superior classes so their MUST/MAY sets apply.
		for oc != nil {
			classes = append(classes, oc)
			if oc.Superior == "" {
				break
			}
			sup, ok := reg.ObjectClass(oc.Superior)
			if !ok {
				break
			}
			oc = sup
		}
	}

	extensible := e.HasObjectClass(reg, schema.ClassExtensibleObject)
	collectiveSubentry := e.HasObjectClass(reg, schema.ClassCollectiveAttributeSubentry)

	for _, oc := range classes {
		for _, must := range oc.Must {
			if !e.Has(reg, must) {
				return ldap.Errorf(ldap.ResultObjectClassViolation,
					"entry %s is missing required attribute %s of class %s", e.Dn.User(), must, oc.Name)
			}
		}
	}

	for _, a := range e.Attributes() {
		at := a.Type
		if at.Collective && !collectiveSubentry {
			return ldap.Errorf(ldap.ResultObjectClassViolation,
				"collective attribute %s may only appear on a collective attribute subentry", a.UserID)
		}
		if at.SingleValue && a.Len() > 1 {
			return ldap.Errorf(ldap.ResultConstraintViolation,
				"attribute %s is single-valued", a.UserID)
		}
		if at.Syntax != "" {
			if syn, ok := reg.Syntax(at.Syntax); ok {
				for _, v := range a.Values() {
					if !syn.Validate(v) {
						return ldap.Errorf(ldap.ResultInvalidAttributeSyntax,
							"value %q of attribute %s violates syntax %s", v, a.UserID, syn.Description)
					}
				}
			}
		}
		if at.IsOperational() || extensible {
			continue
		}
		allowed := false
		for _, oc := range classes {
			if oc.AllowsAttribute(at.Name) || oc.AllowsAttribute(at.OID) {
				allowed = true
				break
			}
			// A class allowing a supertype also admits its descendants.
			for _, name := range append(append([]string(nil), oc.Must...), oc.May...) {
				if at.IsDescendantOf(reg, name) {
					allowed = true
					break
				}
			}
			if allowed {
				break
			}
		}
		if !allowed {
			return ldap.Errorf(ldap.ResultObjectClassViolation,
				"attribute %s is not allowed by the entry's object classes", a.UserID)
		}
	}

	// The RDN's attribute-value pairs must be attributes of the entry.
	if !e.Dn.IsEmpty() {
		for _, ava := range e.Dn.Rdn().Avas {
			a := e.Get(reg, ava.UserType)
			if a == nil || !a.Contains(reg, ava.UserValue) {
				return ldap.Errorf(ldap.ResultNamingViolation,
					"RDN value %s=%s is not present among the entry's attributes", ava.UserType, ava.UserValue)
			}
		}
	}

	return nil
}
