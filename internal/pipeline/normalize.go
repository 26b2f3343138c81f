package pipeline

import (
	"errors"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// normalizeInterceptor canonicalizes every DN in the context and
// rewrites search filters before anything else sees them. It is the
// head of the chain; everything downstream relies on normalized forms.
type normalizeInterceptor struct {
	Base
	deps *Deps
}

func newNormalizeInterceptor(deps *Deps) *normalizeInterceptor {
	return &normalizeInterceptor{deps: deps}
}

func (in *normalizeInterceptor) Name() string { return "normalization" }

// normDn normalizes a DN, mapping schema failures to the protocol
// errors callers expect.
func (in *normalizeInterceptor) normDn(d dn.Dn) (dn.Dn, error) {
	nd, err := d.Normalize(in.deps.reg())
	if err != nil {
		if errors.Is(err, schema.ErrUndefinedType) {
			return dn.Dn{}, ldap.Errorf(ldap.ResultUndefinedAttributeType, "%v", err)
		}
		return dn.Dn{}, ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	return nd, nil
}

func (in *normalizeInterceptor) Add(next Chain, ctx *AddContext) error {
	nd, err := in.normDn(ctx.Entry.Dn)
	if err != nil {
		return err
	}
	ctx.Entry.Dn = nd
	return next.Add(ctx)
}

func (in *normalizeInterceptor) Delete(next Chain, ctx *DeleteContext) error {
	nd, err := in.normDn(ctx.Dn)
	if err != nil {
		return err
	}
	ctx.Dn = nd
	return next.Delete(ctx)
}

func (in *normalizeInterceptor) Modify(next Chain, ctx *ModifyContext) error {
	nd, err := in.normDn(ctx.Dn)
	if err != nil {
		return err
	}
	ctx.Dn = nd
	return next.Modify(ctx)
}

func (in *normalizeInterceptor) Rename(next Chain, ctx *RenameContext) error {
	nd, err := in.normDn(ctx.Dn)
	if err != nil {
		return err
	}
	ctx.Dn = nd

	parent := nd.Parent()
	if ctx.HasNewParent {
		if parent, err = in.normDn(ctx.NewParent); err != nil {
			return err
		}
		ctx.NewParent = parent
	}

	rdn := nd.Rdn()
	if ctx.NewRdn.Size() > 0 {
		rdn = ctx.NewRdn
	}
	newDn, err := in.normDn(parent.Child(rdn))
	if err != nil {
		return err
	}
	ctx.NewDn = newDn
	ctx.NewRdn = newDn.Rdn()
	return next.Rename(ctx)
}

func (in *normalizeInterceptor) Lookup(next Chain, ctx *LookupContext) (*entry.Entry, error) {
	nd, err := in.normDn(ctx.Dn)
	if err != nil {
		return nil, err
	}
	ctx.Dn = nd
	return next.Lookup(ctx)
}

func (in *normalizeInterceptor) Search(next Chain, ctx *SearchContext) (EntryCursor, error) {
	nd, err := in.normDn(ctx.Base)
	if err != nil {
		return nil, err
	}
	ctx.Base = nd

	// The rewriter may reduce the filter to nil: nothing can match.
	ctx.Filter = filter.NewRewriter(in.deps.reg()).Rewrite(ctx.Filter)
	return next.Search(ctx)
}

func (in *normalizeInterceptor) Compare(next Chain, ctx *CompareContext) (bool, error) {
	nd, err := in.normDn(ctx.Dn)
	if err != nil {
		return false, err
	}
	ctx.Dn = nd
	return next.Compare(ctx)
}

func (in *normalizeInterceptor) Bind(next Chain, ctx *BindContext) error {
	nd, err := in.normDn(ctx.Dn)
	if err != nil {
		return err
	}
	ctx.Dn = nd
	return next.Bind(ctx)
}
