package entry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

var reg = schema.Default()

func norm(t *testing.T, s string) dn.Dn {
	t.Helper()
	d, err := dn.MustParse(s).Normalize(reg)
	if err != nil {
		t.Fatalf("Normalize(%q) failed: %v", s, err)
	}
	return d
}

func person(t *testing.T) *Entry {
	t.Helper()
	e := New(norm(t, "cn=Alice,ou=system"))
	for name, values := range map[string][]string{
		"objectClass": {"top", "person"},
		"cn":          {"Alice"},
		"sn":          {"Smith"},
	} {
		if err := e.Add(reg, name, values...); err != nil {
			t.Fatalf("Add(%s) failed: %v", name, err)
		}
	}
	return e
}

func TestAddDeduplicatesByMatchingRule(t *testing.T) {
	e := person(t)
	if err := e.Add(reg, "cn", "ALICE"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	a := e.Get(reg, "cn")
	if a.Len() != 1 {
		t.Errorf("case variant should deduplicate, got %v", a.Values())
	}
	if !a.Contains(reg, "alice  ") {
		t.Error("Contains should use the equality rule")
	}
}

func TestGetByAliasAndOID(t *testing.T) {
	e := person(t)
	if e.Get(reg, "commonName") == nil {
		t.Error("lookup by alias should find cn")
	}
	if e.Get(reg, "2.5.4.3") == nil {
		t.Error("lookup by OID should find cn")
	}
	if e.Get(reg, "frobnicator") != nil {
		t.Error("unknown attribute should be nil")
	}
}

func TestHasObjectClassWalksSuperiors(t *testing.T) {
	e := New(norm(t, "uid=x,ou=system"))
	_ = e.Add(reg, "objectClass", "top", "inetOrgPerson")
	_ = e.Add(reg, "uid", "x")
	if !e.HasObjectClass(reg, "person") {
		t.Error("inetOrgPerson derives from person")
	}
	if !e.HasObjectClass(reg, "top") {
		t.Error("everything derives from top")
	}
	if e.HasObjectClass(reg, "alias") {
		t.Error("unrelated class should not match")
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := person(t)
	c := e.Clone()
	if err := c.Add(reg, "description", "changed"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if e.Has(reg, "description") {
		t.Error("mutating the clone must not touch the original")
	}
	if diff := cmp.Diff(e.Get(reg, "cn").Values(), c.Get(reg, "cn").Values()); diff != "" {
		t.Errorf("clone differs: %s", diff)
	}
}

func TestApplyModifications(t *testing.T) {
	e := person(t)

	err := e.Apply(reg, []ldap.Modification{
		ldap.NewModification(ldap.ModAdd, "description", "first"),
		ldap.NewModification(ldap.ModReplace, "sn", "Jones"),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if e.First(reg, "description") != "first" {
		t.Error("add not applied")
	}
	if e.First(reg, "sn") != "Jones" {
		t.Error("replace not applied")
	}

	// Adding an existing value fails.
	err = e.Apply(reg, []ldap.Modification{
		ldap.NewModification(ldap.ModAdd, "description", "first"),
	})
	if ldap.Code(err) != ldap.ResultAttributeOrValueExists {
		t.Errorf("expected attributeOrValueExists, got %v", err)
	}

	// Deleting a missing attribute fails.
	err = e.Apply(reg, []ldap.Modification{
		ldap.NewModification(ldap.ModDelete, "telephoneNumber"),
	})
	if ldap.Code(err) != ldap.ResultNoSuchAttribute {
		t.Errorf("expected noSuchAttribute, got %v", err)
	}

	// Replace with no values removes the attribute.
	err = e.Apply(reg, []ldap.Modification{
		ldap.NewModification(ldap.ModReplace, "description"),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if e.Has(reg, "description") {
		t.Error("replace with no values should remove the attribute")
	}
}

func TestValidateHappyPath(t *testing.T) {
	if err := Validate(reg, person(t)); err != nil {
		t.Errorf("valid entry rejected: %v", err)
	}
}

func TestValidateMissingObjectClass(t *testing.T) {
	e := New(norm(t, "cn=x,ou=system"))
	_ = e.Add(reg, "cn", "x")
	if ldap.Code(Validate(reg, e)) != ldap.ResultObjectClassViolation {
		t.Error("entry without objectClass should be rejected")
	}
}

func TestValidateMissingRequiredAttribute(t *testing.T) {
	e := New(norm(t, "cn=x,ou=system"))
	_ = e.Add(reg, "objectClass", "top", "person")
	_ = e.Add(reg, "cn", "x")
	// sn is required by person.
	if ldap.Code(Validate(reg, e)) != ldap.ResultObjectClassViolation {
		t.Error("missing MUST attribute should be rejected")
	}
}

func TestValidateDisallowedAttribute(t *testing.T) {
	e := person(t)
	_ = e.Add(reg, "uid", "alice") // person does not allow uid
	if ldap.Code(Validate(reg, e)) != ldap.ResultObjectClassViolation {
		t.Error("attribute outside MUST/MAY should be rejected")
	}
}

func TestValidateExtensibleObjectBypassesMay(t *testing.T) {
	e := person(t)
	_ = e.Add(reg, "objectClass", "extensibleObject")
	_ = e.Add(reg, "uid", "alice")
	if err := Validate(reg, e); err != nil {
		t.Errorf("extensibleObject should allow any attribute: %v", err)
	}
}

func TestValidateSingleValue(t *testing.T) {
	e := New(norm(t, "uid=x,ou=system"))
	_ = e.Add(reg, "objectClass", "top", "person", "inetOrgPerson")
	_ = e.Add(reg, "cn", "x")
	_ = e.Add(reg, "sn", "y")
	_ = e.Add(reg, "uid", "x")
	_ = e.Add(reg, "displayName", "one", "two")
	if ldap.Code(Validate(reg, e)) != ldap.ResultConstraintViolation {
		t.Error("multiple values on a single-valued attribute should be rejected")
	}
}

func TestAddRejectsBadSyntax(t *testing.T) {
	e := New(norm(t, "uid=x,ou=system"))
	_ = e.Add(reg, "objectClass", "top", "person", "inetOrgPerson")
	// The equality normalizer rejects the value on the way in.
	err := e.Add(reg, "uidNumber", "not-a-number")
	if ldap.Code(err) != ldap.ResultInvalidAttributeSyntax {
		t.Errorf("expected invalidAttributeSyntax, got %v", err)
	}
}

func TestValidateSyntax(t *testing.T) {
	e := New(norm(t, "cn=x,ou=system"))
	_ = e.Add(reg, "objectClass", "top", "person")
	_ = e.Add(reg, "cn", "x")
	_ = e.Add(reg, "sn", "y")
	// telephoneNumber normalizes as a case-ignore string but its syntax
	// rejects letters.
	_ = e.Add(reg, "telephoneNumber", "not a phone")
	if ldap.Code(Validate(reg, e)) != ldap.ResultInvalidAttributeSyntax {
		t.Error("syntax violation should be rejected")
	}
}

func TestValidateCollectiveOnOrdinaryEntry(t *testing.T) {
	e := person(t)
	_ = e.Add(reg, "c-ou", "nope")
	if ldap.Code(Validate(reg, e)) != ldap.ResultObjectClassViolation {
		t.Error("collective attribute on an ordinary entry should be rejected")
	}
}

func TestValidateRdnMustBePresent(t *testing.T) {
	e := New(norm(t, "cn=Missing,ou=system"))
	_ = e.Add(reg, "objectClass", "top", "person")
	_ = e.Add(reg, "cn", "Other")
	_ = e.Add(reg, "sn", "x")
	if ldap.Code(Validate(reg, e)) != ldap.ResultNamingViolation {
		t.Error("RDN value absent from the entry should be rejected")
	}
}
