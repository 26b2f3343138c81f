package sedir

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	d, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestBootstrapEntries(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	for _, dn := range []string{
		"ou=system",
		"uid=admin,ou=system",
		"ou=users,ou=system",
		"ou=groups,ou=system",
		"cn=administrators,ou=groups,ou=system",
		"ou=configuration,ou=system",
		"ou=services,ou=configuration,ou=system",
		"ou=interceptors,ou=configuration,ou=system",
	} {
		if _, err := d.Lookup(admin, dn); err != nil {
			t.Errorf("bootstrap entry %s missing: %v", dn, err)
		}
	}
}

func TestSearchMissingBaseReturnsMatchedPrefix(t *testing.T) {
	d := testDirectory(t)

	_, err := d.SearchAll(d.AdminSession(), SearchRequest{
		Base:  "ou=blah,ou=system",
		Scope: "sub",
	})
	require.Error(t, err)
	require.Equal(t, CodeNoSuchObject, Code(err))
	require.Equal(t, "ou=system", MatchedDN(err))
}

func TestDeleteNonLeaf(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "ou=blah,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"blah"},
	}))
	require.NoError(t, d.Add(admin, "ou=subctx,ou=blah,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"subctx"},
	}))

	err := d.Delete(admin, "ou=blah,ou=system")
	require.Error(t, err)
	require.Equal(t, CodeNotAllowedOnNonLeaf, Code(err))
	require.Equal(t, "ou=blah,ou=system", MatchedDN(err))

	require.NoError(t, d.Delete(admin, "ou=subctx,ou=blah,ou=system"))
	require.NoError(t, d.Delete(admin, "ou=blah,ou=system"))
}

func TestRenameOntoExistingEntry(t *testing.T) {
	d := testDirectory(t)

	err := d.Rename(d.AdminSession(), "ou=users,ou=system", "ou=groups", true)
	require.Error(t, err)
	require.Equal(t, CodeEntryAlreadyExists, Code(err))
	require.Equal(t, "ou=groups,ou=system", MatchedDN(err))
}

func TestAddExistingEntry(t *testing.T) {
	d := testDirectory(t)
	err := d.Add(d.AdminSession(), "ou=users,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"users"},
	})
	require.Error(t, err)
	require.Equal(t, CodeEntryAlreadyExists, Code(err))
}

func TestAddMissingParent(t *testing.T) {
	d := testDirectory(t)
	err := d.Add(d.AdminSession(), "ou=deep,ou=missing,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"deep"},
	})
	require.Error(t, err)
	require.Equal(t, CodeNoSuchObject, Code(err))
	require.Equal(t, "ou=system", MatchedDN(err))
}

func TestCollectiveAttributes(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "cn=collective,ou=system", map[string][]string{
		"objectClass":          {"top", "subentry", "collectiveAttributeSubentry"},
		"cn":                   {"collective"},
		"subtreeSpecification": {`{ base "ou=configuration" }`},
		"c-ou":                 {"configuration"},
	}))

	// Entries inside the selected subtree inherit c-ou.
	e, err := d.Lookup(admin, "ou=services,ou=configuration,ou=system", "*", "c-ou")
	require.NoError(t, err)
	require.Equal(t, []string{"configuration"}, e.Values("c-ou"))

	// Excluding c-ou suppresses it for that entry only.
	require.NoError(t, d.Modify(admin, "ou=services,ou=configuration,ou=system", []Mod{
		{Op: "add", Attr: "collectiveExclusions", Values: []string{"c-ou"}},
	}))
	e, err = d.Lookup(admin, "ou=services,ou=configuration,ou=system", "*", "c-ou")
	require.NoError(t, err)
	require.Empty(t, e.Values("c-ou"))

	sibling, err := d.Lookup(admin, "ou=interceptors,ou=configuration,ou=system", "*", "c-ou")
	require.NoError(t, err)
	require.Equal(t, []string{"configuration"}, sibling.Values("c-ou"))

	// A second subentry contributes a second value.
	require.NoError(t, d.Add(admin, "cn=collective2,ou=system", map[string][]string{
		"objectClass":          {"top", "subentry", "collectiveAttributeSubentry"},
		"cn":                   {"collective2"},
		"subtreeSpecification": {`{ base "ou=configuration" }`},
		"c-ou":                 {"configuration2"},
	}))
	sibling, err = d.Lookup(admin, "ou=interceptors,ou=configuration,ou=system", "*", "c-ou")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"configuration", "configuration2"}, sibling.Values("c-ou"))
}

func TestCollectiveSupertypeRequestReturnsValues(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "cn=collective,ou=system", map[string][]string{
		"objectClass":          {"top", "subentry", "collectiveAttributeSubentry"},
		"cn":                   {"collective"},
		"subtreeSpecification": {`{ base "ou=configuration" }`},
		"c-ou":                 {"configuration"},
	}))

	// Requesting the supertype ou must still return the collective
	// subtype values.
	e, err := d.Lookup(admin, "ou=services,ou=configuration,ou=system", "ou")
	require.NoError(t, err)
	require.Equal(t, []string{"configuration"}, e.Values("c-ou"))

	// Requesting only cn must not return collective values.
	e, err = d.Lookup(admin, "ou=services,ou=configuration,ou=system", "cn")
	require.NoError(t, err)
	require.Empty(t, e.Values("c-ou"))
}

func TestCollectiveDirectWriteRejected(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	err := d.Add(admin, "ou=direct,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"direct"},
		"c-ou":        {"nope"},
	})
	require.Error(t, err)
	require.Equal(t, CodeObjectClassViolation, Code(err))

	err = d.Modify(admin, "ou=configuration,ou=system", []Mod{
		{Op: "add", Attr: "c-ou", Values: []string{"nope"}},
	})
	require.Error(t, err)
	require.Equal(t, CodeObjectClassViolation, Code(err))
}

func TestDefaultAuthorization(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()
	anon := Anonymous()

	// Anonymous modification of the admin entry is denied.
	err := d.Modify(anon, "uid=admin,ou=system", []Mod{
		{Op: "replace", Attr: "description", Values: []string{"owned"}},
	})
	require.Error(t, err)
	require.Equal(t, CodeInsufficientAccessRights, Code(err))

	// A user may modify its own entry.
	require.NoError(t, d.Add(admin, "uid=alice,ou=users,ou=system", map[string][]string{
		"objectClass":  {"top", "person", "organizationalPerson", "inetOrgPerson"},
		"uid":          {"alice"},
		"cn":           {"Alice"},
		"sn":           {"Smith"},
		"userPassword": {"wonderland"},
	}))
	alice, err := d.Bind("uid=alice,ou=users,ou=system", "wonderland")
	require.NoError(t, err)

	require.NoError(t, d.Modify(alice, "uid=alice,ou=users,ou=system", []Mod{
		{Op: "replace", Attr: "description", Values: []string{"my own entry"}},
	}))

	// But not anyone else's.
	require.NoError(t, d.Add(admin, "uid=bob,ou=users,ou=system", map[string][]string{
		"objectClass":  {"top", "person", "organizationalPerson", "inetOrgPerson"},
		"uid":          {"bob"},
		"cn":           {"Bob"},
		"sn":           {"Jones"},
		"userPassword": {"builder"},
	}))
	err = d.Modify(alice, "uid=bob,ou=users,ou=system", []Mod{
		{Op: "replace", Attr: "description", Values: []string{"not mine"}},
	})
	require.Error(t, err)
	require.Equal(t, CodeInsufficientAccessRights, Code(err))

	// The admin account cannot be deleted, even by itself.
	err = d.Delete(admin, "uid=admin,ou=system")
	require.Error(t, err)
	require.Equal(t, CodeInsufficientAccessRights, Code(err))

	// Search results hide protected entries from other users.
	entries, err := d.SearchAll(alice, SearchRequest{Base: "ou=users,ou=system", Scope: "sub"})
	require.NoError(t, err)
	var dns []string
	for _, e := range entries {
		dns = append(dns, strings.ToLower(e.Dn))
	}
	require.Contains(t, dns, "uid=alice,ou=users,ou=system")
	require.NotContains(t, dns, "uid=bob,ou=users,ou=system")
}

func TestBindInvalidCredentials(t *testing.T) {
	d := testDirectory(t)
	_, err := d.Bind("uid=admin,ou=system", "wrong")
	require.Error(t, err)
	require.Equal(t, int(49), Code(err))

	_, err = d.Bind("uid=ghost,ou=system", "whatever")
	require.Error(t, err)
	require.Equal(t, int(49), Code(err))
}

func TestAddThenLookupRoundTrip(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	attrs := map[string][]string{
		"objectClass": {"top", "person"},
		"cn":          {"Round Trip"},
		"sn":          {"Trip"},
	}
	require.NoError(t, d.Add(admin, "cn=Round Trip,ou=system", attrs))

	e, err := d.Lookup(admin, "cn=Round Trip,ou=system")
	require.NoError(t, err)
	require.Equal(t, []string{"Round Trip"}, e.Values("cn"))
	require.Equal(t, []string{"Trip"}, e.Values("sn"))
	// Operational attributes are stripped by default.
	require.Empty(t, e.Values("createTimestamp"))
	require.Empty(t, e.Values("creatorsName"))

	// They appear when requested explicitly.
	e, err = d.Lookup(admin, "cn=Round Trip,ou=system", "+")
	require.NoError(t, err)
	require.NotEmpty(t, e.Values("createTimestamp"))
	require.Equal(t, []string{"uid=admin,ou=system"}, e.Values("creatorsName"))
	require.NotEmpty(t, e.Values("entryUUID"))
}

func TestModifyStampsAfterSuccess(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "ou=stamps,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"stamps"},
	}))

	before, err := d.Lookup(admin, "ou=stamps,ou=system", "modifyTimestamp")
	require.NoError(t, err)
	require.Empty(t, before.Values("modifyTimestamp"))

	require.NoError(t, d.Modify(admin, "ou=stamps,ou=system", []Mod{
		{Op: "replace", Attr: "description", Values: []string{"stamped"}},
	}))
	after, err := d.Lookup(admin, "ou=stamps,ou=system", "modifyTimestamp", "modifiersName")
	require.NoError(t, err)
	require.NotEmpty(t, after.Values("modifyTimestamp"))
	require.Equal(t, []string{"uid=admin,ou=system"}, after.Values("modifiersName"))

	// A rejected modify leaves no stamps.
	require.NoError(t, d.Add(admin, "ou=untouched,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"untouched"},
	}))
	err = d.Modify(admin, "ou=untouched,ou=system", []Mod{
		{Op: "add", Attr: "frobnicator", Values: []string{"x"}},
	})
	require.Error(t, err)
	got, err := d.Lookup(admin, "ou=untouched,ou=system", "modifyTimestamp")
	require.NoError(t, err)
	require.Empty(t, got.Values("modifyTimestamp"))
}

func TestModifyAddExistingValue(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "ou=dup,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {"dup"},
		"description": {"one"},
	}))
	err := d.Modify(admin, "ou=dup,ou=system", []Mod{
		{Op: "add", Attr: "description", Values: []string{"one"}},
	})
	require.Error(t, err)
	require.Equal(t, CodeAttributeOrValueExists, Code(err))
}

func TestMoveAndRename(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "ou=src,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"}, "ou": {"src"},
	}))
	require.NoError(t, d.Add(admin, "ou=dst,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"}, "ou": {"dst"},
	}))
	require.NoError(t, d.Add(admin, "cn=thing,ou=src,ou=system", map[string][]string{
		"objectClass": {"top", "person"}, "cn": {"thing"}, "sn": {"thing"},
	}))

	require.NoError(t, d.Move(admin, "cn=thing,ou=src,ou=system", "ou=dst,ou=system"))
	_, err := d.Lookup(admin, "cn=thing,ou=dst,ou=system")
	require.NoError(t, err)

	require.NoError(t, d.Rename(admin, "cn=thing,ou=dst,ou=system", "cn=renamed", false))
	e, err := d.Lookup(admin, "cn=renamed,ou=dst,ou=system")
	require.NoError(t, err)
	// deleteOldRdn=false keeps the old RDN value.
	require.ElementsMatch(t, []string{"thing", "renamed"}, e.Values("cn"))

	// Rename stamps land on the final DN.
	stamped, err := d.Lookup(admin, "cn=renamed,ou=dst,ou=system", "modifiersName")
	require.NoError(t, err)
	require.NotEmpty(t, stamped.Values("modifiersName"))
}

func TestSearchSizeLimit(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, d.Add(admin, "ou="+name+",ou=system", map[string][]string{
			"objectClass": {"top", "organizationalUnit"}, "ou": {name},
		}))
	}
	res, err := d.Search(admin, SearchRequest{Base: "ou=system", Scope: "sub", SizeLimit: 2})
	require.NoError(t, err)
	defer res.Close()

	n := 0
	for res.Next() {
		n++
	}
	require.Equal(t, 2, n)
	require.Equal(t, CodeSizeLimitExceeded, Code(res.Err()))
}

func TestSearchAbandon(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	res, err := d.Search(admin, SearchRequest{Base: "ou=system", Scope: "sub"})
	require.NoError(t, err)
	defer res.Close()

	require.True(t, res.Next())
	res.Abandon()
	require.False(t, res.Next())
	require.NoError(t, res.Err(), "an abandoned search ends without an error result")
}

func TestRootDSE(t *testing.T) {
	d := testDirectory(t)

	entries, err := d.SearchAll(Anonymous(), SearchRequest{Base: "", Scope: "base"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	dse := entries[0]
	require.Contains(t, dse.Values("namingContexts"), "ou=system")
	require.Equal(t, []string{"cn=schema"}, dse.Values("subschemaSubentry"))
	require.NotEmpty(t, dse.Values("supportedControl"))
}

func TestSubentriesHiddenFromOrdinarySearch(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "cn=collective,ou=system", map[string][]string{
		"objectClass":          {"top", "subentry", "collectiveAttributeSubentry"},
		"cn":                   {"collective"},
		"subtreeSpecification": {`{ base "ou=configuration" }`},
		"c-ou":                 {"configuration"},
	}))

	entries, err := d.SearchAll(admin, SearchRequest{Base: "ou=system", Scope: "sub"})
	require.NoError(t, err)
	for _, e := range entries {
		require.NotEqual(t, "cn=collective,ou=system", strings.ToLower(e.Dn),
			"subentries must not appear in ordinary search results")
	}

	// A base-object read still sees it.
	got, err := d.Lookup(admin, "cn=collective,ou=system")
	require.NoError(t, err)
	require.Equal(t, []string{"collective"}, got.Values("cn"))
}

func TestLdifLoadAndDump(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	in := strings.Join([]string{
		"dn: ou=imported,ou=system",
		"objectClass: top",
		"objectClass: organizationalUnit",
		"ou: imported",
		"",
		"dn: cn=Imported Person,ou=imported,ou=system",
		"objectClass: top",
		"objectClass: person",
		"cn: Imported Person",
		"sn: Person",
		"",
	}, "\n")

	n, err := d.LoadLDIF(admin, strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = d.Lookup(admin, "cn=Imported Person,ou=imported,ou=system")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, d.DumpLDIF(admin, &out, "ou=imported,ou=system"))
	dump := out.String()
	require.Contains(t, dump, "dn: ou=imported,ou=system")
	require.Contains(t, dump, "sn: Person")
}

func TestChangeFeed(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	feed, cancel, err := d.Watch("ou=system")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, d.Add(admin, "ou=watched,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"}, "ou": {"watched"},
	}))

	select {
	case ev := <-feed:
		require.Equal(t, "add", ev.Op)
		require.Equal(t, "ou=watched,ou=system", strings.ToLower(ev.Dn))
		require.NotZero(t, ev.Token)
	case <-time.After(time.Second):
		t.Fatal("no change event received")
	}
}

func TestSubordinateAttributesOnRead(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	e, err := d.Lookup(admin, "ou=system", "hasSubordinates", "numSubordinates")
	require.NoError(t, err)
	require.Equal(t, []string{"TRUE"}, e.Values("hasSubordinates"))
	num := e.Value("numSubordinates")
	require.NotEmpty(t, num)
	require.NotEqual(t, "0", num)

	leaf, err := d.Lookup(admin, "uid=admin,ou=system", "hasSubordinates", "numSubordinates")
	require.NoError(t, err)
	require.Equal(t, []string{"FALSE"}, leaf.Values("hasSubordinates"))
	require.Equal(t, []string{"0"}, leaf.Values("numSubordinates"))

	// Derived attributes stay out of the default view.
	plain, err := d.Lookup(admin, "ou=system")
	require.NoError(t, err)
	require.Empty(t, plain.Values("hasSubordinates"))

	// "+" selects them along with the other operational attributes.
	plus, err := d.Lookup(admin, "ou=system", "+")
	require.NoError(t, err)
	require.Equal(t, []string{"TRUE"}, plus.Values("hasSubordinates"))
}

func TestPagedSearch(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	all, err := d.SearchAll(admin, SearchRequest{Base: "ou=system", Scope: "sub"})
	require.NoError(t, err)
	require.Greater(t, len(all), 3)

	seen := make(map[string]struct{})
	var cookie []byte
	for page := 0; ; page++ {
		require.Less(t, page, len(all)+1, "paging must terminate")
		res, err := d.Search(admin, SearchRequest{
			Base:     "ou=system",
			Scope:    "sub",
			Controls: []Control{PagedControl(3, cookie)},
		})
		require.NoError(t, err)

		n := 0
		for res.Next() {
			if _, dup := seen[res.Entry().Dn]; dup {
				t.Fatalf("entry %s delivered twice", res.Entry().Dn)
			}
			seen[res.Entry().Dn] = struct{}{}
			n++
		}
		require.NoError(t, res.Err())
		require.LessOrEqual(t, n, 3)

		next, ok := PagedCookie(res.ResponseControls())
		require.True(t, ok, "every page carries a paged-results response control")
		require.NoError(t, res.Close())
		if len(next) == 0 {
			break
		}
		cookie = next
	}
	require.Len(t, seen, len(all))
}

func TestPagedSearchBadCookie(t *testing.T) {
	d := testDirectory(t)
	_, err := d.Search(d.AdminSession(), SearchRequest{
		Base:     "ou=system",
		Scope:    "sub",
		Controls: []Control{PagedControl(3, []byte("gibberish"))},
	})
	require.Error(t, err)
	require.Equal(t, CodeUnwillingToPerform, Code(err))
}

func TestSubentriesControlFlipsVisibility(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	require.NoError(t, d.Add(admin, "cn=collective,ou=system", map[string][]string{
		"objectClass":          {"top", "subentry", "collectiveAttributeSubentry"},
		"cn":                   {"collective"},
		"subtreeSpecification": {`{ base "ou=configuration" }`},
		"c-ou":                 {"configuration"},
	}))

	entries, err := d.SearchAll(admin, SearchRequest{
		Base:     "ou=system",
		Scope:    "sub",
		Controls: []Control{{OID: ControlSubentries}},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1, "with the control only subentries are visible")
	require.Equal(t, "cn=collective,ou=system", strings.ToLower(entries[0].Dn))
}

func TestCompare(t *testing.T) {
	d := testDirectory(t)
	admin := d.AdminSession()

	ok, err := d.Compare(admin, "ou=system", "ou", "SYSTEM")
	require.NoError(t, err)
	require.True(t, ok, "compare uses the equality matching rule")

	ok, err = d.Compare(admin, "ou=system", "ou", "other")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSchemaExtensionViaConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Schema.AttributeTypes = []string{
		"( 1.2.3.4.5 NAME 'favoriteDrink' EQUALITY caseIgnoreMatch SYNTAX 1.3.6.1.4.1.1466.115.121.1.15 )",
	}
	cfg.Schema.ObjectClasses = []string{
		"( 1.2.3.4.6 NAME 'drinker' SUP top AUXILIARY MAY favoriteDrink )",
	}
	d, err := New(cfg)
	require.NoError(t, err)
	defer d.Close()

	admin := d.AdminSession()
	require.NoError(t, d.Add(admin, "cn=fred,ou=system", map[string][]string{
		"objectClass":   {"top", "person", "drinker"},
		"cn":            {"fred"},
		"sn":            {"flintstone"},
		"favoriteDrink": {"cactus cooler"},
	}))
	e, err := d.Lookup(admin, "cn=fred,ou=system")
	require.NoError(t, err)
	require.Equal(t, []string{"cactus cooler"}, e.Values("favoriteDrink"))
}
