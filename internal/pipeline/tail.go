package pipeline

import (
	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
	"github.com/KilimcininKorOglu/sedir/internal/search"
)

// tail is the end of the chain: it forwards every operation to the
// partition nexus.
type tail struct {
	deps *Deps
}

func newTail(deps *Deps) *tail {
	return &tail{deps: deps}
}

func (t *tail) Name() string { return "nexus" }

func (t *tail) Add(_ Chain, ctx *AddContext) error {
	if ctx.Abandoned() {
		return errAbandoned()
	}
	return t.deps.Nexus.Add(ctx.Entry)
}

func (t *tail) Delete(_ Chain, ctx *DeleteContext) error {
	if ctx.Abandoned() {
		return errAbandoned()
	}
	return t.deps.Nexus.Delete(ctx.Dn)
}

func (t *tail) Modify(_ Chain, ctx *ModifyContext) error {
	if ctx.Abandoned() {
		return errAbandoned()
	}
	prepared := ctx.Prepared
	if prepared == nil {
		current, err := t.deps.Nexus.Lookup(ctx.Dn)
		if err != nil {
			return err
		}
		prepared = current.Clone()
		if err := prepared.Apply(t.deps.reg(), ctx.Mods); err != nil {
			return err
		}
	}
	return t.deps.Nexus.Update(prepared)
}

func (t *tail) Rename(_ Chain, ctx *RenameContext) error {
	if ctx.Abandoned() {
		return errAbandoned()
	}
	prepared := ctx.Prepared
	if prepared == nil {
		current, err := t.deps.Nexus.Lookup(ctx.Dn)
		if err != nil {
			return err
		}
		var perr error
		prepared, perr = prepareRename(t.deps.reg(), current, ctx)
		if perr != nil {
			return perr
		}
	}
	return t.deps.Nexus.Rename(ctx.Dn, ctx.NewDn, prepared)
}

func (t *tail) Lookup(_ Chain, ctx *LookupContext) (*entry.Entry, error) {
	if ctx.Abandoned() {
		return nil, errAbandoned()
	}
	return t.deps.Nexus.Lookup(ctx.Dn)
}

func (t *tail) Search(_ Chain, ctx *SearchContext) (EntryCursor, error) {
	if ctx.Abandoned() {
		return nil, errAbandoned()
	}
	if ctx.Filter == nil {
		return emptyEntryCursor{}, nil
	}

	// A base-object search on the empty DN returns the synthesized
	// root DSE.
	if ctx.Base.IsEmpty() && ctx.Scope == ldap.ScopeBaseObject {
		dse := t.deps.Nexus.RootDSE()
		if !matchEntry(t.deps.reg(), dse, ctx.Filter) {
			return emptyEntryCursor{}, nil
		}
		return withLimits(newSliceCursor(dse), ctx.SizeLimit, ctx.TimeLimit, ctx.Abandoned), nil
	}

	cur, part, err := t.deps.Nexus.Search(ctx.Base, ctx.Scope, ctx.Filter)
	if err != nil {
		return nil, err
	}
	cur = search.WithAbandon(cur, ctx.Abandoned)
	return withLimits(newCandidateEntryCursor(cur, part), ctx.SizeLimit, ctx.TimeLimit, ctx.Abandoned), nil
}

func (t *tail) Compare(_ Chain, ctx *CompareContext) (bool, error) {
	if ctx.Abandoned() {
		return false, errAbandoned()
	}
	e, err := t.deps.Nexus.Lookup(ctx.Dn)
	if err != nil {
		return false, err
	}
	a := e.Get(t.deps.reg(), ctx.Attribute)
	if a == nil {
		return false, ldap.NewError(ldap.ResultNoSuchAttribute, ctx.Dn.User(),
			"entry has no attribute "+ctx.Attribute)
	}
	return a.Contains(t.deps.reg(), ctx.Value), nil
}

func (t *tail) Bind(_ Chain, ctx *BindContext) error {
	if ctx.Dn.IsEmpty() {
		// Anonymous bind.
		ctx.Session = Session{}
		return nil
	}
	e, err := t.deps.Nexus.Lookup(ctx.Dn)
	if err != nil {
		if ldap.IsCode(err, ldap.ResultNoSuchObject) {
			return ldap.Errorf(ldap.ResultInvalidCredentials, "invalid credentials")
		}
		return err
	}
	pw := e.Get(t.deps.reg(), schema.AttrUserPassword)
	if pw == nil || !pw.Contains(t.deps.reg(), ctx.Password) {
		return ldap.Errorf(ldap.ResultInvalidCredentials, "invalid credentials")
	}
	ctx.Session = Session{Principal: ctx.Dn}
	return nil
}

// prepareRename builds the post-rename entry: the new RDN's values are
// merged in, the old RDN's values are removed when requested, and the
// DN becomes the target DN.
func prepareRename(reg *schema.Registries, current *entry.Entry, ctx *RenameContext) (*entry.Entry, error) {
	updated := current.Clone()
	updated.Dn = ctx.NewDn

	newRdn := ctx.NewDn.Rdn()
	oldRdn := ctx.Dn.Rdn()

	for _, ava := range newRdn.Avas {
		if err := updated.Add(reg, ava.UserType, ava.UserValue); err != nil {
			return nil, err
		}
	}

	if ctx.DeleteOldRdn && oldRdn.Norm() != newRdn.Norm() {
		for _, ava := range oldRdn.Avas {
			if newRdn.HasType(ava.NormType) && containsAva(newRdn, ava) {
				continue
			}
			if _, err := updated.Remove(reg, ava.UserType, ava.UserValue); err != nil {
				return nil, err
			}
		}
	}
	return updated, nil
}

func containsAva(r dn.Rdn, ava dn.Ava) bool {
	for _, other := range r.Avas {
		if other.NormType == ava.NormType && other.NormValue == ava.NormValue {
			return true
		}
	}
	return false
}
