package dn

import (
	"testing"

	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

func TestParseEmptyDNIsRootDSE(t *testing.T) {
	d, err := Parse("")
	if err != nil {
		t.Fatalf("Parse(\"\") returned error: %v", err)
	}
	if !d.IsEmpty() {
		t.Error("empty string should parse to the empty DN")
	}
	if d.User() != "" || d.Norm() != "" {
		t.Error("empty DN should render as the empty string")
	}
}

func TestParseSimpleDN(t *testing.T) {
	d, err := Parse("uid=alice,ou=users,ou=system")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.Size() != 3 {
		t.Fatalf("expected 3 components, got %d", d.Size())
	}
	if d.Rdn().Value() != "alice" {
		t.Errorf("expected leading RDN value 'alice', got %q", d.Rdn().Value())
	}
	if d.Parent().User() != "ou=users,ou=system" {
		t.Errorf("unexpected parent: %q", d.Parent().User())
	}
}

func TestParseRejectsEmptyRdn(t *testing.T) {
	for _, s := range []string{",", "ou=a,,ou=b", "ou=a,", "+", "ou=a+"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) should fail", s)
		}
	}
}

func TestParseRejectsBadTypes(t *testing.T) {
	for _, s := range []string{"=value", "1ou=x", "o u=x", "2.5.=x"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) should fail", s)
		}
	}
}

func TestSemicolonSeparator(t *testing.T) {
	d, err := Parse("ou=a;ou=b;ou=c")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.Size() != 3 {
		t.Fatalf("expected 3 components, got %d", d.Size())
	}
	if d.User() != "ou=a,ou=b,ou=c" {
		t.Errorf("semicolons should normalize to commas, got %q", d.User())
	}
}

func TestEscapes(t *testing.T) {
	tests := []struct {
		in    string
		value string
	}{
		{`cn=Smith\, John`, "Smith, John"},
		{`cn=a\+b`, "a+b"},
		{`cn=\23hash`, "#hash"},
		{`cn=back\5cslash`, `back\slash`},
	}
	for _, tt := range tests {
		d, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.in, err)
		}
		if got := d.Rdn().Value(); got != tt.value {
			t.Errorf("Parse(%q) value = %q, want %q", tt.in, got, tt.value)
		}
	}
}

func TestHexBinaryValue(t *testing.T) {
	d, err := Parse("cn=#48656c6c6f")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.Rdn().Value() != "Hello" {
		t.Errorf("hex value should decode to 'Hello', got %q", d.Rdn().Value())
	}
	if _, err := Parse("cn=#4865f"); err == nil {
		t.Error("odd-length hex string should fail")
	}
}

func TestNormalizeAndEquality(t *testing.T) {
	reg := schema.Default()

	a := MustParse("OU=Users, OU=System")
	b := MustParse("ou=users,ou=system")

	na, err := a.Normalize(reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	nb, err := b.Normalize(reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !na.Equal(nb) {
		t.Errorf("normalized forms should be equal: %q vs %q", na.Norm(), nb.Norm())
	}
	// Types resolve to their OIDs in the canonical form.
	if na.Rdn().Type() != "2.5.4.11" {
		t.Errorf("normalized type should be the OID, got %q", na.Rdn().Type())
	}
	// The user form is preserved.
	if na.User() != "OU=Users,OU=System" {
		t.Errorf("user form should preserve case, got %q", na.User())
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	reg := schema.Default()
	d := MustParse("uid=Alice,ou=Users,ou=System")
	once, err := d.Normalize(reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	twice, err := once.Normalize(reg)
	if err != nil {
		t.Fatalf("second Normalize failed: %v", err)
	}
	if once.Norm() != twice.Norm() {
		t.Errorf("normalization should be idempotent: %q vs %q", once.Norm(), twice.Norm())
	}
}

func TestRoundTrip(t *testing.T) {
	reg := schema.Default()
	for _, s := range []string{
		"uid=alice,ou=users,ou=system",
		`cn=Smith\, John,ou=users,ou=system`,
		"cn=a+sn=b,ou=system",
	} {
		d := MustParse(s)
		nd, err := d.Normalize(reg)
		if err != nil {
			t.Fatalf("Normalize(%q) failed: %v", s, err)
		}
		back := MustParse(nd.User())
		nback, err := back.Normalize(reg)
		if err != nil {
			t.Fatalf("Normalize of round trip failed: %v", err)
		}
		if nback.Norm() != nd.Norm() {
			t.Errorf("round trip of %q changed normalized form: %q vs %q", s, nback.Norm(), nd.Norm())
		}
	}
}

func TestMultiValuedRdnCanonicalOrder(t *testing.T) {
	reg := schema.Default()
	a, err := MustParse("sn=b+cn=a,ou=system").Normalize(reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	b, err := MustParse("cn=a+sn=b,ou=system").Normalize(reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if a.Norm() != b.Norm() {
		t.Errorf("ATAV order inside an RDN should not matter: %q vs %q", a.Norm(), b.Norm())
	}
	// cn (2.5.4.3) sorts before sn (2.5.4.4).
	if a.Rdn().Norm() != "2.5.4.3=a+2.5.4.4=b" {
		t.Errorf("unexpected canonical RDN: %q", a.Rdn().Norm())
	}
}

func TestDuplicateTypeInRdnRejected(t *testing.T) {
	reg := schema.Default()
	if _, err := MustParse("cn=a+cn=b,ou=system").Normalize(reg); err == nil {
		t.Error("duplicate attribute type inside an RDN should fail normalization")
	}
}

func TestUnknownTypeFailsNormalize(t *testing.T) {
	reg := schema.Default()
	if _, err := MustParse("frobnicator=1,ou=system").Normalize(reg); err == nil {
		t.Error("unknown attribute type should fail normalization")
	}
}

func TestDescendants(t *testing.T) {
	reg := schema.Default()
	base := mustNorm(t, reg, "ou=system")
	child := mustNorm(t, reg, "ou=users,ou=system")
	grand := mustNorm(t, reg, "uid=alice,ou=users,ou=system")
	other := mustNorm(t, reg, "ou=other")

	if !child.IsDescendantOf(base) || !grand.IsDescendantOf(base) {
		t.Error("children and grandchildren are descendants")
	}
	if !child.IsChildOf(base) {
		t.Error("direct child should be a child")
	}
	if grand.IsChildOf(base) {
		t.Error("grandchild is not a direct child")
	}
	if base.IsDescendantOf(base) {
		t.Error("a DN is not its own descendant")
	}
	if other.IsDescendantOf(base) {
		t.Error("sibling tree is not a descendant")
	}
	if !grand.IsDescendantOf(Empty) {
		t.Error("the empty DN is an ancestor of everything")
	}
}

func TestChildParent(t *testing.T) {
	base := MustParse("ou=system")
	child := base.Child(NewRdn("ou", "users"))
	if child.User() != "ou=users,ou=system" {
		t.Errorf("Child built %q", child.User())
	}
	if child.Parent().User() != "ou=system" {
		t.Errorf("Parent returned %q", child.Parent().User())
	}
}

func mustNorm(t *testing.T, reg *schema.Registries, s string) Dn {
	t.Helper()
	d, err := MustParse(s).Normalize(reg)
	if err != nil {
		t.Fatalf("Normalize(%q) failed: %v", s, err)
	}
	return d
}
