package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// collectiveInterceptor merges the attributes supplied by collective
// attribute subentries into entries on the read paths, honoring each
// entry's collectiveExclusions, and rejects direct writes of collective
// attributes to ordinary entries.
type collectiveInterceptor struct {
	Base
	deps *Deps
}

func newCollectiveInterceptor(deps *Deps) *collectiveInterceptor {
	return &collectiveInterceptor{deps: deps}
}

func (in *collectiveInterceptor) Name() string { return "collective-attribute" }

// collectiveSubentry is one collective attribute subentry with its
// parsed selection.
type collectiveSubentry struct {
	adminPoint dn.Dn
	spec       *SubtreeSpecification
	entry      *entry.Entry
}

// subentriesFor collects the collective attribute subentries of the
// partition holding the given DN.
func (in *collectiveInterceptor) subentriesFor(d dn.Dn) []collectiveSubentry {
	p, ok := in.deps.Nexus.FindSuffix(d)
	if !ok {
		return nil
	}
	return in.collect(p)
}

func (in *collectiveInterceptor) collect(p partition.Partition) []collectiveSubentry {
	reg := in.deps.reg()
	var out []collectiveSubentry

	cur := p.IDCursor()
	defer cur.Close()
	for {
		ok, err := cur.Next()
		if err != nil || !ok {
			break
		}
		t, err := cur.Get()
		if err != nil {
			break
		}
		e, ok := p.LookupByID(t.Key)
		if !ok || !e.HasObjectClass(reg, schema.ClassCollectiveAttributeSubentry) {
			continue
		}
		raw := e.First(reg, schema.AttrSubtreeSpecification)
		spec, err := ParseSubtreeSpecification(raw)
		if err != nil {
			in.deps.Logger.Warn("skipping subentry with bad subtreeSpecification",
				zap.String("dn", e.Dn.User()), zap.Error(err))
			continue
		}
		out = append(out, collectiveSubentry{
			adminPoint: e.Dn.Parent(),
			spec:       spec,
			entry:      e,
		})
	}
	return out
}

// merge folds the collective attributes of every selecting subentry
// into the entry, unless the entry excludes them.
func (in *collectiveInterceptor) merge(subentries []collectiveSubentry, e *entry.Entry) (*entry.Entry, error) {
	if len(subentries) == 0 {
		return e, nil
	}
	reg := in.deps.reg()
	if e.HasObjectClass(reg, schema.ClassSubentry) {
		return e, nil
	}

	excludeAll, excluded := exclusionsOf(reg, e)
	if excludeAll {
		return e, nil
	}

	var out *entry.Entry
	for _, sub := range subentries {
		if !sub.spec.Selects(reg, sub.adminPoint, e.Dn) {
			continue
		}
		for _, a := range sub.entry.Attributes() {
			if !a.Type.Collective {
				continue
			}
			if _, skip := excluded[a.Type.OID]; skip {
				continue
			}
			if out == nil {
				out = e.Clone()
			}
			if err := out.Add(reg, a.UserID, a.Values()...); err != nil {
				return nil, err
			}
		}
	}
	if out == nil {
		return e, nil
	}
	return out, nil
}

// exclusionsOf reads an entry's collectiveExclusions into a set of
// attribute-type OIDs, detecting the exclude-all sentinel.
func exclusionsOf(reg *schema.Registries, e *entry.Entry) (bool, map[string]struct{}) {
	a := e.Get(reg, schema.AttrCollectiveExclusions)
	if a == nil {
		return false, nil
	}
	excluded := make(map[string]struct{})
	for _, v := range a.Values() {
		if strings.EqualFold(v, schema.ExcludeAllCollectiveAttributes) ||
			v == "2.5.18.0" {
			return true, nil
		}
		if at, ok := reg.AttributeType(v); ok {
			excluded[at.OID] = struct{}{}
		}
	}
	return false, excluded
}

func (in *collectiveInterceptor) Add(next Chain, ctx *AddContext) error {
	if err := in.rejectCollectiveWrite(ctx.Entry); err != nil {
		return err
	}
	return next.Add(ctx)
}

func (in *collectiveInterceptor) Modify(next Chain, ctx *ModifyContext) error {
	reg := in.deps.reg()
	target := ctx.CachedEntry()
	isSubentry := target != nil && target.HasObjectClass(reg, schema.ClassCollectiveAttributeSubentry)
	if !isSubentry {
		for _, mod := range ctx.Mods {
			at, ok := reg.AttributeType(mod.Attribute)
			if ok && at.Collective {
				return ldap.NewError(ldap.ResultObjectClassViolation, ctx.Dn.User(),
					"collective attribute "+mod.Attribute+" may only be modified on a collective attribute subentry")
			}
		}
	}
	return next.Modify(ctx)
}

func (in *collectiveInterceptor) rejectCollectiveWrite(e *entry.Entry) error {
	reg := in.deps.reg()
	if e.HasObjectClass(reg, schema.ClassCollectiveAttributeSubentry) {
		return nil
	}
	for _, a := range e.Attributes() {
		if a.Type.Collective {
			return ldap.NewError(ldap.ResultObjectClassViolation, e.Dn.User(),
				"collective attribute "+a.UserID+" may only appear on a collective attribute subentry")
		}
	}
	return nil
}

func (in *collectiveInterceptor) Lookup(next Chain, ctx *LookupContext) (*entry.Entry, error) {
	e, err := next.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	subentries := in.subentriesFor(ctx.Dn)
	return in.merge(subentries, e)
}

func (in *collectiveInterceptor) Search(next Chain, ctx *SearchContext) (EntryCursor, error) {
	cur, err := next.Search(ctx)
	if err != nil {
		return nil, err
	}
	// One subentry sweep serves the whole result stream.
	subentries := in.subentriesFor(ctx.Base)
	return withTransform(cur, func(e *entry.Entry) (*entry.Entry, error) {
		return in.merge(subentries, e)
	}), nil
}
