package pipeline

import (
	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// authzInterceptor enforces the fixed administrative policy that
// applies while rule-based access control is disabled: the root DSE and
// the administrative entries are immovable, and below the ou=users and
// ou=groups containers only administrators may delete, modify, rename,
// move, look up, or compare entries, with a self-access exemption for a
// principal's own entry. Adds are not checked. On search the same policy is attached to the result stream as
// an idempotent, side-effect-free acceptance predicate.
type authzInterceptor struct {
	Base
	deps *Deps

	adminDn      dn.Dn
	adminGroupDn dn.Dn
	usersBase    dn.Dn
	groupsBase   dn.Dn
}

func newAuthzInterceptor(deps *Deps) (*authzInterceptor, error) {
	in := &authzInterceptor{deps: deps}
	reg := deps.reg()
	for _, bind := range []struct {
		raw    string
		target *dn.Dn
	}{
		{deps.Config.AdminDn, &in.adminDn},
		{deps.Config.AdminGroupDn, &in.adminGroupDn},
		{deps.Config.UsersBase, &in.usersBase},
		{deps.Config.GroupsBase, &in.groupsBase},
	} {
		parsed, err := dn.Parse(bind.raw)
		if err != nil {
			return nil, err
		}
		if *bind.target, err = parsed.Normalize(reg); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (in *authzInterceptor) Name() string { return "default-authorization" }

func (in *authzInterceptor) enabled() bool {
	return !in.deps.Config.AccessControlEnabled
}

// isAdmin reports whether the session principal is the administrator
// or a member of the administrators group.
func (in *authzInterceptor) isAdmin(session Session) bool {
	if session.IsAnonymous() {
		return false
	}
	if session.Principal.Equal(in.adminDn) {
		return true
	}
	group, err := in.deps.Nexus.Lookup(in.adminGroupDn)
	if err != nil {
		return false
	}
	reg := in.deps.reg()
	members := group.Get(reg, schema.AttrMember)
	if members == nil {
		members = group.Get(reg, schema.AttrUniqueMember)
	}
	if members == nil {
		return false
	}
	for _, v := range members.Values() {
		md, err := dn.Parse(v)
		if err != nil {
			continue
		}
		nmd, err := md.Normalize(reg)
		if err != nil {
			continue
		}
		if nmd.Equal(session.Principal) {
			return true
		}
	}
	return false
}

// isProtected reports whether the DN sits below one of the protected
// containers.
func (in *authzInterceptor) isProtected(d dn.Dn) bool {
	return d.IsDescendantOf(in.usersBase) || d.IsDescendantOf(in.groupsBase)
}

func denied(d dn.Dn, msg string) error {
	return ldap.NewError(ldap.ResultInsufficientAccessRights, d.User(), msg)
}

func (in *authzInterceptor) Delete(next Chain, ctx *DeleteContext) error {
	if !in.enabled() {
		return next.Delete(ctx)
	}
	switch {
	case ctx.Dn.IsEmpty():
		return denied(ctx.Dn, "the root DSE cannot be deleted")
	case ctx.Dn.Equal(in.adminDn):
		return denied(ctx.Dn, "the administrator account cannot be deleted")
	case ctx.Dn.Equal(in.adminGroupDn):
		return denied(ctx.Dn, "the administrators group cannot be deleted")
	}
	if in.isProtected(ctx.Dn) && !in.isAdmin(ctx.Session) {
		return denied(ctx.Dn, "only administrators may delete entries in this container")
	}
	return next.Delete(ctx)
}

func (in *authzInterceptor) Modify(next Chain, ctx *ModifyContext) error {
	if !in.enabled() {
		return next.Modify(ctx)
	}
	if ctx.Dn.IsEmpty() {
		return denied(ctx.Dn, "the root DSE cannot be modified")
	}
	if in.isProtected(ctx.Dn) || ctx.Dn.Equal(in.adminDn) {
		// A principal may always modify its own entry.
		if !ctx.Session.Principal.Equal(ctx.Dn) && !in.isAdmin(ctx.Session) {
			return denied(ctx.Dn, "only administrators may modify this entry")
		}
	}
	return next.Modify(ctx)
}

func (in *authzInterceptor) Rename(next Chain, ctx *RenameContext) error {
	if !in.enabled() {
		return next.Rename(ctx)
	}
	switch {
	case ctx.Dn.IsEmpty():
		return denied(ctx.Dn, "the root DSE cannot be moved or renamed")
	case ctx.Dn.Equal(in.adminGroupDn):
		return denied(ctx.Dn, "the administrators group cannot be moved or renamed")
	case ctx.Dn.Equal(in.adminDn):
		return denied(ctx.Dn, "the administrator account cannot be moved or renamed")
	}
	if (in.isProtected(ctx.Dn) || in.isProtected(ctx.NewDn)) && !in.isAdmin(ctx.Session) {
		return denied(ctx.Dn, "only administrators may move or rename entries in this container")
	}
	return next.Rename(ctx)
}

func (in *authzInterceptor) Lookup(next Chain, ctx *LookupContext) (*entry.Entry, error) {
	if in.enabled() && in.isProtected(ctx.Dn) {
		if !ctx.Session.Principal.Equal(ctx.Dn) && !in.isAdmin(ctx.Session) {
			return nil, denied(ctx.Dn, "only administrators may look up entries in this container")
		}
	}
	return next.Lookup(ctx)
}

func (in *authzInterceptor) Compare(next Chain, ctx *CompareContext) (bool, error) {
	if in.enabled() && in.isProtected(ctx.Dn) {
		if !ctx.Session.Principal.Equal(ctx.Dn) && !in.isAdmin(ctx.Session) {
			return false, denied(ctx.Dn, "only administrators may compare entries in this container")
		}
	}
	return next.Compare(ctx)
}

func (in *authzInterceptor) Search(next Chain, ctx *SearchContext) (EntryCursor, error) {
	cur, err := next.Search(ctx)
	if err != nil {
		return nil, err
	}
	if !in.enabled() {
		return cur, nil
	}
	// Evaluate the caller's standing once per operation; the predicate
	// itself stays idempotent and side-effect-free.
	admin := in.isAdmin(ctx.Session)
	principal := ctx.Session.Principal
	return withAcceptance(cur, func(e *entry.Entry) (bool, error) {
		if admin {
			return true, nil
		}
		if !in.isProtected(e.Dn) {
			return true, nil
		}
		return principal.Equal(e.Dn), nil
	}), nil
}
