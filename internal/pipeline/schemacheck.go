package pipeline

import (
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
)

// schemaInterceptor validates write operations against the schema: new
// entries must satisfy their object classes, modifications may not
// touch read-only attributes, and the post-modification state must
// still validate. The validated result is stashed on the context so the
// tail writes exactly what was checked.
type schemaInterceptor struct {
	Base
	deps *Deps
}

func newSchemaInterceptor(deps *Deps) *schemaInterceptor {
	return &schemaInterceptor{deps: deps}
}

func (in *schemaInterceptor) Name() string { return "schema" }

func (in *schemaInterceptor) Add(next Chain, ctx *AddContext) error {
	if err := entry.Validate(in.deps.reg(), ctx.Entry); err != nil {
		return err
	}
	return next.Add(ctx)
}

func (in *schemaInterceptor) Modify(next Chain, ctx *ModifyContext) error {
	reg := in.deps.reg()

	for _, mod := range ctx.Mods {
		at, ok := reg.AttributeType(mod.Attribute)
		if !ok {
			return ldap.Errorf(ldap.ResultUndefinedAttributeType,
				"attribute %s is not defined", mod.Attribute)
		}
		if at.NoUserMod {
			return ldap.NewError(ldap.ResultConstraintViolation, ctx.Dn.User(),
				"attribute "+mod.Attribute+" may not be modified by users")
		}
		if at.HasName("objectClass") && mod.Type == ldap.ModDelete && len(mod.Values) == 0 {
			return ldap.NewError(ldap.ResultObjectClassModsProhibited, ctx.Dn.User(),
				"objectClass cannot be removed")
		}
	}

	current := ctx.CachedEntry()
	if current == nil {
		var err error
		current, err = in.deps.Nexus.Lookup(ctx.Dn)
		if err != nil {
			return err
		}
	}
	prepared := current.Clone()
	if err := prepared.Apply(reg, ctx.Mods); err != nil {
		return err
	}
	if err := entry.Validate(reg, prepared); err != nil {
		return err
	}
	ctx.Prepared = prepared
	return next.Modify(ctx)
}

func (in *schemaInterceptor) Rename(next Chain, ctx *RenameContext) error {
	current := ctx.CachedEntry()
	if current == nil {
		var err error
		current, err = in.deps.Nexus.Lookup(ctx.Dn)
		if err != nil {
			return err
		}
	}
	prepared, err := prepareRename(in.deps.reg(), current, ctx)
	if err != nil {
		return err
	}
	if err := entry.Validate(in.deps.reg(), prepared); err != nil {
		return err
	}
	ctx.Prepared = prepared
	return next.Rename(ctx)
}
