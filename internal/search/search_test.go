package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

var reg = schema.Default()

func norm(t *testing.T, s string) dn.Dn {
	t.Helper()
	d, err := dn.MustParse(s).Normalize(reg)
	require.NoError(t, err)
	return d
}

func addEntry(t *testing.T, p *partition.Memory, dnStr string, attrs map[string][]string) *entry.Entry {
	t.Helper()
	e := entry.New(norm(t, dnStr))
	for name, values := range attrs {
		require.NoError(t, e.Add(reg, name, values...))
	}
	require.NoError(t, p.Add(e))
	return e
}

// fixture builds ou=system with three users (uid indexed, uidNumber
// indexed) and one nested container.
func fixture(t *testing.T) (*partition.Memory, map[string]string) {
	t.Helper()
	p := partition.NewMemory(norm(t, "ou=system"), reg, nil, "uid", "uidNumber")
	ids := make(map[string]string)

	add := func(dnStr string, attrs map[string][]string) {
		e := addEntry(t, p, dnStr, attrs)
		ids[dnStr] = e.ID
	}

	add("ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"}, "ou": {"system"},
	})
	add("ou=users,ou=system", map[string][]string{
		"objectClass": {"top", "organizationalUnit"}, "ou": {"users"},
	})
	person := func(uid, cn, sn, num string) map[string][]string {
		return map[string][]string{
			"objectClass": {"top", "person", "organizationalPerson", "inetOrgPerson"},
			"uid":         {uid},
			"cn":          {cn},
			"sn":          {sn},
			"uidNumber":   {num},
		}
	}
	add("uid=alice,ou=users,ou=system", person("alice", "Alice", "Smith", "100"))
	add("uid=bob,ou=users,ou=system", person("bob", "Bob", "Jones", "200"))
	add("uid=carol,ou=users,ou=system", person("carol", "Carol", "Smith", "300"))
	return p, ids
}

func collect(t *testing.T, cur Cursor) []string {
	t.Helper()
	defer cur.Close()
	var out []string
	for {
		ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, cur.Candidate().ID)
	}
}

func runSearch(t *testing.T, p *partition.Memory, base string, mode ldap.SearchScope, filterStr string) []string {
	t.Helper()
	baseDn := norm(t, base)
	baseID, ok := p.EntryID(baseDn)
	require.True(t, ok)

	f := filter.NewRewriter(reg).Rewrite(filter.MustParse(filterStr))
	planner := NewPlanner(p, reg)
	cur, err := planner.Cursor(Scope{Base: baseDn, BaseID: baseID, Mode: mode}, f)
	require.NoError(t, err)
	return collect(t, cur)
}

func TestEqualityIndexedExactSet(t *testing.T) {
	p, ids := fixture(t)
	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(uid=alice)")
	require.Equal(t, []string{ids["uid=alice,ou=users,ou=system"]}, got)
}

func TestEqualityUnindexedFallsBackToScan(t *testing.T) {
	p, ids := fixture(t)
	// sn is not indexed; the scan must still honor the filter.
	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(sn=Smith)")
	require.ElementsMatch(t, []string{
		ids["uid=alice,ou=users,ou=system"],
		ids["uid=carol,ou=users,ou=system"],
	}, got)
}

func TestPresence(t *testing.T) {
	p, _ := fixture(t)
	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(uid=*)")
	require.Len(t, got, 3)
}

func TestRangeFilters(t *testing.T) {
	p, ids := fixture(t)

	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(uidNumber>=200)")
	require.ElementsMatch(t, []string{
		ids["uid=bob,ou=users,ou=system"],
		ids["uid=carol,ou=users,ou=system"],
	}, got)

	got = runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(uidNumber<=200)")
	require.ElementsMatch(t, []string{
		ids["uid=alice,ou=users,ou=system"],
		ids["uid=bob,ou=users,ou=system"],
	}, got)
}

func TestSubstringIndexed(t *testing.T) {
	p, ids := fixture(t)
	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(uid=a*e)")
	require.Equal(t, []string{ids["uid=alice,ou=users,ou=system"]}, got)

	got = runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(uid=*o*)")
	require.ElementsMatch(t, []string{
		ids["uid=bob,ou=users,ou=system"],
		ids["uid=carol,ou=users,ou=system"],
	}, got)
}

func TestAndPicksCheapestChild(t *testing.T) {
	p, ids := fixture(t)
	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(&(sn=Smith)(uid=carol))")
	require.Equal(t, []string{ids["uid=carol,ou=users,ou=system"]}, got)
}

func TestAndZeroCountShortCircuits(t *testing.T) {
	p, _ := fixture(t)
	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(&(uid=nobody)(sn=Smith))")
	require.Empty(t, got)
}

func TestOrUnionDeduplicates(t *testing.T) {
	p, ids := fixture(t)
	// Both branches match alice; she must be emitted once.
	got := runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(|(uid=alice)(uidNumber<=100))")
	require.Equal(t, []string{ids["uid=alice,ou=users,ou=system"]}, got)

	got = runSearch(t, p, "ou=system", ldap.ScopeWholeSubtree, "(|(uid=alice)(uid=bob))")
	require.Len(t, got, 2)
}

func TestNotDrivenByScope(t *testing.T) {
	p, ids := fixture(t)
	got := runSearch(t, p, "ou=users,ou=system", ldap.ScopeSingleLevel, "(!(sn=Smith))")
	require.Equal(t, []string{ids["uid=bob,ou=users,ou=system"]}, got)
}

func TestScopeBase(t *testing.T) {
	p, ids := fixture(t)
	got := runSearch(t, p, "uid=alice,ou=users,ou=system", ldap.ScopeBaseObject, "(objectClass=*)")
	require.Equal(t, []string{ids["uid=alice,ou=users,ou=system"]}, got)

	got = runSearch(t, p, "uid=alice,ou=users,ou=system", ldap.ScopeBaseObject, "(uid=bob)")
	require.Empty(t, got)
}

func TestScopeOneLevel(t *testing.T) {
	p, ids := fixture(t)
	got := runSearch(t, p, "ou=users,ou=system", ldap.ScopeSingleLevel, "(objectClass=*)")
	require.ElementsMatch(t, []string{
		ids["uid=alice,ou=users,ou=system"],
		ids["uid=bob,ou=users,ou=system"],
		ids["uid=carol,ou=users,ou=system"],
	}, got)
}

func TestScopeSubtreeIncludesBase(t *testing.T) {
	p, ids := fixture(t)
	got := runSearch(t, p, "ou=users,ou=system", ldap.ScopeWholeSubtree, "(objectClass=*)")
	require.Len(t, got, 4)
	require.Contains(t, got, ids["ou=users,ou=system"])
}

func TestScopeRestrictsIndexedSearch(t *testing.T) {
	p, _ := fixture(t)
	// alice exists, but not under this one-level scope.
	got := runSearch(t, p, "ou=system", ldap.ScopeSingleLevel, "(uid=alice)")
	require.Empty(t, got)
}

func TestNilFilterYieldsNothing(t *testing.T) {
	p, _ := fixture(t)
	baseDn := norm(t, "ou=system")
	baseID, _ := p.EntryID(baseDn)
	planner := NewPlanner(p, reg)
	cur, err := planner.Cursor(Scope{Base: baseDn, BaseID: baseID, Mode: ldap.ScopeWholeSubtree}, nil)
	require.NoError(t, err)
	require.Empty(t, collect(t, cur))
}

func TestCursorMatchesEvaluatorVerdicts(t *testing.T) {
	p, _ := fixture(t)
	baseDn := norm(t, "ou=system")
	baseID, _ := p.EntryID(baseDn)
	scope := Scope{Base: baseDn, BaseID: baseID, Mode: ldap.ScopeWholeSubtree}

	for _, filterStr := range []string{
		"(uid=alice)",
		"(sn=Smith)",
		"(uidNumber>=150)",
		"(&(objectClass=person)(uidNumber<=250))",
		"(|(uid=bob)(sn=smith))",
		"(!(uid=alice))",
		"(uid=a*)",
	} {
		f := filter.NewRewriter(reg).Rewrite(filter.MustParse(filterStr))
		require.NotNil(t, f, filterStr)

		planner := NewPlanner(p, reg)
		cur, err := planner.Cursor(scope, f)
		require.NoError(t, err, filterStr)
		got := collect(t, cur)

		// Reference: evaluate the filter against every entry in scope.
		ev, err := NewEvaluator(&Context{Part: p, Reg: reg}, f)
		require.NoError(t, err, filterStr)
		var want []string
		ref := ScopeCursor(p, scope)
		for {
			ok, err := ref.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			c := ref.Candidate()
			match, err := ev.Evaluate(c)
			require.NoError(t, err)
			if match {
				want = append(want, c.ID)
			}
		}
		ref.Close()

		require.ElementsMatch(t, want, got, filterStr)
	}
}

func TestAnnotateCounts(t *testing.T) {
	p, _ := fixture(t)

	f := filter.NewRewriter(reg).Rewrite(filter.MustParse("(uid=alice)"))
	AnnotateCounts(p, f)
	require.Equal(t, int64(1), f.Count)

	f = filter.NewRewriter(reg).Rewrite(filter.MustParse("(sn=Smith)"))
	AnnotateCounts(p, f)
	require.Equal(t, filter.CountUnknown, f.Count)

	f = filter.NewRewriter(reg).Rewrite(filter.MustParse("(&(uid=alice)(sn=Smith))"))
	AnnotateCounts(p, f)
	require.Equal(t, int64(1), f.Count, "AND takes its cheapest child")

	f = filter.NewRewriter(reg).Rewrite(filter.MustParse("(|(uid=alice)(sn=Smith))"))
	AnnotateCounts(p, f)
	require.Equal(t, filter.CountUnknown, f.Count, "one unindexed child makes an OR unindexable")

	f = filter.NewRewriter(reg).Rewrite(filter.MustParse("(uid=*)"))
	AnnotateCounts(p, f)
	require.Equal(t, int64(3), f.Count)
}

func TestAbandonStopsCursor(t *testing.T) {
	p, _ := fixture(t)
	baseDn := norm(t, "ou=system")
	baseID, _ := p.EntryID(baseDn)
	planner := NewPlanner(p, reg)
	cur, err := planner.Cursor(
		Scope{Base: baseDn, BaseID: baseID, Mode: ldap.ScopeWholeSubtree},
		filter.NewRewriter(reg).Rewrite(filter.MustParse("(objectClass=*)")))
	require.NoError(t, err)

	abandoned := false
	wrapped := WithAbandon(cur, func() bool { return abandoned })

	ok, err := wrapped.Next()
	require.NoError(t, err)
	require.True(t, ok)

	abandoned = true
	ok, err = wrapped.Next()
	require.NoError(t, err)
	require.False(t, ok, "an abandoned cursor yields nothing further")
}
