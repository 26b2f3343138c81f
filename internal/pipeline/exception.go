package pipeline

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// exceptionInterceptor enforces tree-level sanity before anything
// mutates the DIT: target existence and uniqueness, leaf rules, alias
// rules, and protection of the subschema subentry. A bounded LRU cache
// remembers parents known not to be aliases so repeated adds under the
// same parent skip the lookup; the cache entry is invalidated whenever
// the parent is deleted, modified, or moved.
type exceptionInterceptor struct {
	Base
	deps     *Deps
	notAlias *lru.Cache[string, struct{}]
}

func newExceptionInterceptor(deps *Deps) (*exceptionInterceptor, error) {
	cache, err := lru.New[string, struct{}](deps.Config.NotAliasCacheSize)
	if err != nil {
		return nil, err
	}
	return &exceptionInterceptor{deps: deps, notAlias: cache}, nil
}

func (in *exceptionInterceptor) Name() string { return "exception" }

// matched returns the resolved prefix of a missing DN.
func (in *exceptionInterceptor) matched(d dn.Dn) string {
	for cur := d.Parent(); !cur.IsEmpty(); cur = cur.Parent() {
		if in.deps.Nexus.HasEntry(cur) {
			return cur.User()
		}
	}
	return ""
}

func (in *exceptionInterceptor) noSuchObject(d dn.Dn) error {
	return ldap.NewError(ldap.ResultNoSuchObject, in.matched(d), d.User()+" does not exist")
}

func (in *exceptionInterceptor) isSubschema(d dn.Dn) bool {
	return d.Equal(in.deps.Nexus.SubschemaDN())
}

func (in *exceptionInterceptor) Add(next Chain, ctx *AddContext) error {
	target := ctx.Entry.Dn
	if in.isSubschema(target) {
		return ldap.NewError(ldap.ResultEntryAlreadyExists, target.User(),
			"the subschema subentry already exists")
	}
	if in.deps.Nexus.HasEntry(target) {
		return ldap.NewError(ldap.ResultEntryAlreadyExists, target.User(), "entry already exists")
	}

	parent := target.Parent()
	if !parent.IsEmpty() {
		if !in.deps.Nexus.HasEntry(parent) {
			return in.noSuchObject(target)
		}
		if err := in.checkParentNotAlias(parent); err != nil {
			return err
		}
	}
	return next.Add(ctx)
}

// checkParentNotAlias rejects adds below alias entries, consulting the
// negative cache before fetching the parent.
func (in *exceptionInterceptor) checkParentNotAlias(parent dn.Dn) error {
	key := parent.Norm()
	if _, ok := in.notAlias.Get(key); ok {
		return nil
	}
	pe, err := in.deps.Nexus.Lookup(parent)
	if err != nil {
		return err
	}
	if pe.HasObjectClass(in.deps.reg(), schema.ClassAlias) {
		return ldap.NewError(ldap.ResultAliasDereferencingProblem, parent.User(),
			"cannot add an entry below an alias")
	}
	in.notAlias.Add(key, struct{}{})
	return nil
}

func (in *exceptionInterceptor) Delete(next Chain, ctx *DeleteContext) error {
	if in.isSubschema(ctx.Dn) {
		return ldap.NewError(ldap.ResultUnwillingToPerform, ctx.Dn.User(),
			"the subschema subentry cannot be deleted")
	}
	if !in.deps.Nexus.HasEntry(ctx.Dn) {
		return in.noSuchObject(ctx.Dn)
	}
	if has, err := in.deps.Nexus.HasChildren(ctx.Dn); err != nil {
		return err
	} else if has {
		return ldap.NewError(ldap.ResultNotAllowedOnNonLeaf, ctx.Dn.User(), "entry has children")
	}
	in.notAlias.Remove(ctx.Dn.Norm())
	return next.Delete(ctx)
}

func (in *exceptionInterceptor) Modify(next Chain, ctx *ModifyContext) error {
	if !in.deps.Nexus.HasEntry(ctx.Dn) {
		return in.noSuchObject(ctx.Dn)
	}
	current, err := in.deps.Nexus.Lookup(ctx.Dn)
	if err != nil {
		return err
	}
	ctx.CacheEntry(current)

	reg := in.deps.reg()
	for _, mod := range ctx.Mods {
		if mod.Type != ldap.ModAdd {
			continue
		}
		a := current.Get(reg, mod.Attribute)
		if a == nil {
			continue
		}
		for _, v := range mod.Values {
			if a.Contains(reg, v) {
				return ldap.NewError(ldap.ResultAttributeOrValueExists, ctx.Dn.User(),
					"attribute "+mod.Attribute+" already holds value "+v)
			}
		}
	}

	in.notAlias.Remove(ctx.Dn.Norm())
	return next.Modify(ctx)
}

func (in *exceptionInterceptor) Rename(next Chain, ctx *RenameContext) error {
	if in.isSubschema(ctx.Dn) {
		return ldap.NewError(ldap.ResultUnwillingToPerform, ctx.Dn.User(),
			"the subschema subentry cannot be moved")
	}
	if !in.deps.Nexus.HasEntry(ctx.Dn) {
		return in.noSuchObject(ctx.Dn)
	}
	if ctx.HasNewParent && !in.deps.Nexus.HasEntry(ctx.NewParent) {
		return in.noSuchObject(ctx.NewParent.Child(ctx.NewDn.Rdn()))
	}
	if in.deps.Nexus.HasEntry(ctx.NewDn) && !ctx.NewDn.Equal(ctx.Dn) {
		return ldap.NewError(ldap.ResultEntryAlreadyExists, ctx.NewDn.User(),
			"target entry already exists")
	}
	in.notAlias.Remove(ctx.Dn.Norm())
	in.notAlias.Remove(ctx.Dn.Parent().Norm())
	return next.Rename(ctx)
}

func (in *exceptionInterceptor) Lookup(next Chain, ctx *LookupContext) (*entry.Entry, error) {
	if !ctx.Dn.IsEmpty() && !in.deps.Nexus.HasEntry(ctx.Dn) {
		return nil, in.noSuchObject(ctx.Dn)
	}
	return next.Lookup(ctx)
}

// Search distinguishes an empty result from an absent base by
// re-checking existence only when the cursor yielded nothing. A cursor
// that fails mid-stream is an internal error, not a missing base.
func (in *exceptionInterceptor) Search(next Chain, ctx *SearchContext) (EntryCursor, error) {
	cur, err := next.Search(ctx)
	if err != nil {
		return nil, err
	}
	return &baseCheckCursor{inner: cur, in: in, ctx: ctx}, nil
}

func (in *exceptionInterceptor) Compare(next Chain, ctx *CompareContext) (bool, error) {
	if !in.deps.Nexus.HasEntry(ctx.Dn) {
		return false, in.noSuchObject(ctx.Dn)
	}
	return next.Compare(ctx)
}

// baseCheckCursor converts an exhausted, empty result stream into
// NoSuchObject when the base turns out not to exist.
type baseCheckCursor struct {
	inner   EntryCursor
	in      *exceptionInterceptor
	ctx     *SearchContext
	emitted bool
	err     error
}

func (bc *baseCheckCursor) Next() bool {
	if bc.err != nil {
		return false
	}
	if bc.inner.Next() {
		bc.emitted = true
		return true
	}
	bc.err = bc.inner.Err()
	if bc.err == nil && !bc.emitted && !bc.ctx.Base.IsEmpty() {
		if !bc.in.deps.Nexus.HasEntry(bc.ctx.Base) {
			bc.err = bc.in.noSuchObject(bc.ctx.Base)
		}
	}
	return false
}

func (bc *baseCheckCursor) Entry() *entry.Entry { return bc.inner.Entry() }
func (bc *baseCheckCursor) Err() error          { return bc.err }
func (bc *baseCheckCursor) Close() error        { return bc.inner.Close() }
