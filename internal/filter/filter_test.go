package filter

import (
	"testing"

	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

func TestParseSimpleFilters(t *testing.T) {
	tests := []struct {
		in   string
		typ  NodeType
		attr string
		val  string
	}{
		{"(cn=alice)", Equality, "cn", "alice"},
		{"(cn=*)", Present, "cn", ""},
		{"(uidNumber>=100)", GreaterOrEqual, "uidNumber", "100"},
		{"(uidNumber<=100)", LessOrEqual, "uidNumber", "100"},
		{"(cn~=alise)", Approximate, "cn", "alise"},
	}
	for _, tt := range tests {
		n, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.in, err)
		}
		if n.Type != tt.typ {
			t.Errorf("Parse(%q).Type = %v, want %v", tt.in, n.Type, tt.typ)
		}
		if n.Attribute != tt.attr {
			t.Errorf("Parse(%q).Attribute = %q, want %q", tt.in, n.Attribute, tt.attr)
		}
		if n.Value != tt.val {
			t.Errorf("Parse(%q).Value = %q, want %q", tt.in, n.Value, tt.val)
		}
	}
}

func TestParseSubstring(t *testing.T) {
	n := MustParse("(cn=ini*mid1*mid2*fin)")
	if n.Type != Substring {
		t.Fatalf("expected substring, got %v", n.Type)
	}
	if n.Sub.Initial != "ini" || n.Sub.Final != "fin" {
		t.Errorf("initial/final = %q/%q", n.Sub.Initial, n.Sub.Final)
	}
	if len(n.Sub.Any) != 2 || n.Sub.Any[0] != "mid1" || n.Sub.Any[1] != "mid2" {
		t.Errorf("any = %v", n.Sub.Any)
	}

	// Leading and trailing wildcards only.
	n = MustParse("(cn=*mid*)")
	if n.Type != Substring || n.Sub.Initial != "" || n.Sub.Final != "" || len(n.Sub.Any) != 1 {
		t.Errorf("unexpected parse of (cn=*mid*): %+v", n.Sub)
	}
}

func TestParseComposite(t *testing.T) {
	n := MustParse("(&(objectClass=person)(|(cn=a)(cn=b))(!(sn=c)))")
	if n.Type != And || len(n.Children) != 3 {
		t.Fatalf("unexpected root: %v with %d children", n.Type, len(n.Children))
	}
	if n.Children[1].Type != Or || len(n.Children[1].Children) != 2 {
		t.Error("second child should be a 2-ary OR")
	}
	if n.Children[2].Type != Not || n.Children[2].Child == nil {
		t.Error("third child should be a NOT with a child")
	}
}

func TestParseExtensible(t *testing.T) {
	n := MustParse("(cn:caseExactMatch:=Fred)")
	if n.Type != Extensible || n.Attribute != "cn" || n.MatchingRule != "caseExactMatch" || n.Value != "Fred" {
		t.Errorf("unexpected extensible parse: %+v", n)
	}
	n = MustParse("(cn:dn:=Fred)")
	if !n.DnAttributes {
		t.Error("dn flag not parsed")
	}
}

func TestParseEscapes(t *testing.T) {
	n := MustParse(`(cn=a\2ab)`)
	if n.Type != Equality || n.Value != "a*b" {
		t.Errorf("escaped asterisk: got %v %q", n.Type, n.Value)
	}
	n = MustParse(`(cn=\28paren\29)`)
	if n.Value != "(paren)" {
		t.Errorf("escaped parens: got %q", n.Value)
	}
	if _, err := Parse(`(cn=bad\zz)`); err == nil {
		t.Error("bad escape should fail")
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "()", "(&)", "(cn=a", "((cn=a))", "(=v)"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) should fail", s)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"(cn=alice)",
		"(&(objectClass=person)(cn=a))",
		"(|(cn=a)(cn=b))",
		"(!(cn=a))",
		"(cn=ini*mid*fin)",
		"(cn=*)",
	} {
		n := MustParse(s)
		back, err := Parse(n.String())
		if err != nil {
			t.Fatalf("re-parsing %q (from %q) failed: %v", n.String(), s, err)
		}
		if back.String() != n.String() {
			t.Errorf("String round trip unstable: %q vs %q", back.String(), n.String())
		}
	}
}

func rewrite(t *testing.T, s string) *Node {
	t.Helper()
	return NewRewriter(schema.Default()).Rewrite(MustParse(s))
}

func TestRewriteResolvesAndNormalizes(t *testing.T) {
	n := rewrite(t, "(CN=Alice  Smith)")
	if n == nil {
		t.Fatal("rewrite dropped a defined attribute")
	}
	if n.Attribute != "2.5.4.3" {
		t.Errorf("attribute should resolve to the OID, got %q", n.Attribute)
	}
	if n.Value != "alice smith" {
		t.Errorf("value should be normalized, got %q", n.Value)
	}
}

func TestRewriteUndefinedLeafDropped(t *testing.T) {
	if n := rewrite(t, "(frobnicator=1)"); n != nil {
		t.Errorf("undefined leaf should become nil, got %v", n)
	}
}

func TestRewriteAndPoisoned(t *testing.T) {
	if n := rewrite(t, "(&(cn=a)(frobnicator=1))"); n != nil {
		t.Errorf("an undefined attribute poisons the conjunction, got %v", n)
	}
}

func TestRewriteOrDropsNullChildren(t *testing.T) {
	n := rewrite(t, "(|(cn=a)(frobnicator=1))")
	if n == nil {
		t.Fatal("OR with one live child should survive")
	}
	// The surviving single child collapses the branch.
	if n.Type != Equality || n.Attribute != "2.5.4.3" {
		t.Errorf("expected collapsed equality on cn, got %v", n)
	}

	if n := rewrite(t, "(|(frobnicator=1)(gadget=2))"); n != nil {
		t.Errorf("OR with no live children should become nil, got %v", n)
	}
}

func TestRewriteNotNullChild(t *testing.T) {
	if n := rewrite(t, "(!(frobnicator=1))"); n != nil {
		t.Errorf("NOT over nil should become nil, got %v", n)
	}
}

func TestRewriteSingleChildCollapses(t *testing.T) {
	n := rewrite(t, "(&(cn=a))")
	if n == nil || n.Type != Equality {
		t.Errorf("AND with one child should collapse to the child, got %v", n)
	}
}

func TestRewriteDoubleNegation(t *testing.T) {
	n := rewrite(t, "(!(!(cn=a)))")
	if n == nil || n.Type != Equality || n.Attribute != "2.5.4.3" {
		t.Errorf("double negation should cancel, got %v", n)
	}
}

func TestRewriteSubstringComponents(t *testing.T) {
	n := rewrite(t, "(cn=Ali*Ce*Smi)")
	if n == nil || n.Type != Substring {
		t.Fatalf("expected substring, got %v", n)
	}
	if n.Sub.Initial != "ali" || n.Sub.Final != "smi" || n.Sub.Any[0] != "ce" {
		t.Errorf("components should be normalized: %+v", n.Sub)
	}
}

func TestMatchSubstring(t *testing.T) {
	sub := &SubAssert{Initial: "ab", Any: []string{"cd"}, Final: "ef"}
	tests := []struct {
		value string
		want  bool
	}{
		{"abxcdxef", true},
		{"abcdef", true},
		{"abef", false},
		{"xabcdef", false},
		{"abcdefx", false},
	}
	for _, tt := range tests {
		if got := MatchSubstring(tt.value, sub); got != tt.want {
			t.Errorf("MatchSubstring(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	// Overlap between the final component and an any component must
	// not double-count.
	if MatchSubstring("abcd", &SubAssert{Any: []string{"cd"}, Final: "cd"}) {
		t.Error("final must match after the any components")
	}
}
