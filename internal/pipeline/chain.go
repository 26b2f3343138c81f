package pipeline

import (
	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/event"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/nexus"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Interceptor sees every operation before it reaches the nexus. An
// interceptor either raises a typed error, mutates the context, or
// delegates to the remainder of the chain.
type Interceptor interface {
	Name() string

	Add(next Chain, ctx *AddContext) error
	Delete(next Chain, ctx *DeleteContext) error
	Modify(next Chain, ctx *ModifyContext) error
	Rename(next Chain, ctx *RenameContext) error
	Lookup(next Chain, ctx *LookupContext) (*entry.Entry, error)
	Search(next Chain, ctx *SearchContext) (EntryCursor, error)
	Compare(next Chain, ctx *CompareContext) (bool, error)
	Bind(next Chain, ctx *BindContext) error
}

// Base is a pass-through Interceptor to embed in concrete
// interceptors; every operation delegates to the remainder of the
// chain.
type Base struct{}

// Name identifies the embedding interceptor; overridden by all.
func (Base) Name() string { return "base" }

// Add delegates to the remainder of the chain.
func (Base) Add(next Chain, ctx *AddContext) error { return next.Add(ctx) }

// Delete delegates to the remainder of the chain.
func (Base) Delete(next Chain, ctx *DeleteContext) error { return next.Delete(ctx) }

// Modify delegates to the remainder of the chain.
func (Base) Modify(next Chain, ctx *ModifyContext) error { return next.Modify(ctx) }

// Rename delegates to the remainder of the chain.
func (Base) Rename(next Chain, ctx *RenameContext) error { return next.Rename(ctx) }

// Lookup delegates to the remainder of the chain.
func (Base) Lookup(next Chain, ctx *LookupContext) (*entry.Entry, error) {
	return next.Lookup(ctx)
}

// Search delegates to the remainder of the chain.
func (Base) Search(next Chain, ctx *SearchContext) (EntryCursor, error) {
	return next.Search(ctx)
}

// Compare delegates to the remainder of the chain.
func (Base) Compare(next Chain, ctx *CompareContext) (bool, error) {
	return next.Compare(ctx)
}

// Bind delegates to the remainder of the chain.
func (Base) Bind(next Chain, ctx *BindContext) error { return next.Bind(ctx) }

// Chain is a position in the interceptor list. Calling an operation on
// a Chain dispatches to the interceptor at that position, handing it
// the remainder.
type Chain struct {
	interceptors []Interceptor
	pos          int
}

func (c Chain) step() (Interceptor, Chain) {
	return c.interceptors[c.pos], Chain{interceptors: c.interceptors, pos: c.pos + 1}
}

// Add dispatches an add operation down the chain.
func (c Chain) Add(ctx *AddContext) error {
	in, rest := c.step()
	return in.Add(rest, ctx)
}

// Delete dispatches a delete operation down the chain.
func (c Chain) Delete(ctx *DeleteContext) error {
	in, rest := c.step()
	return in.Delete(rest, ctx)
}

// Modify dispatches a modify operation down the chain.
func (c Chain) Modify(ctx *ModifyContext) error {
	in, rest := c.step()
	return in.Modify(rest, ctx)
}

// Rename dispatches a rename/move operation down the chain.
func (c Chain) Rename(ctx *RenameContext) error {
	in, rest := c.step()
	return in.Rename(rest, ctx)
}

// Lookup dispatches a lookup operation down the chain.
func (c Chain) Lookup(ctx *LookupContext) (*entry.Entry, error) {
	in, rest := c.step()
	return in.Lookup(rest, ctx)
}

// Search dispatches a search operation down the chain.
func (c Chain) Search(ctx *SearchContext) (EntryCursor, error) {
	in, rest := c.step()
	return in.Search(rest, ctx)
}

// Compare dispatches a compare operation down the chain.
func (c Chain) Compare(ctx *CompareContext) (bool, error) {
	in, rest := c.step()
	return in.Compare(rest, ctx)
}

// Bind dispatches a bind operation down the chain.
func (c Chain) Bind(ctx *BindContext) error {
	in, rest := c.step()
	return in.Bind(rest, ctx)
}

// Config tunes the pipeline's fixed policies.
type Config struct {
	// AdminDn is the administrator entry (default "uid=admin,ou=system").
	AdminDn string
	// AdminGroupDn is the administrators group.
	AdminGroupDn string
	// UsersBase and GroupsBase are the protected containers of the
	// default authorization policy.
	UsersBase  string
	GroupsBase string

	// DenormalizeOpAttrs re-renders DN-valued operational attributes
	// with short attribute names on read.
	DenormalizeOpAttrs bool

	// AccessControlEnabled disables the default authorization
	// interceptor. The core has no rule-based access control, so no
	// authorization checks apply while it is set.
	AccessControlEnabled bool

	// NotAliasCacheSize bounds the negative alias cache of the
	// exception interceptor.
	NotAliasCacheSize int
}

// DefaultConfig returns the standard pipeline policy rooted under
// ou=system.
func DefaultConfig() Config {
	return Config{
		AdminDn:           "uid=admin,ou=system",
		AdminGroupDn:      "cn=administrators,ou=groups,ou=system",
		UsersBase:         "ou=users,ou=system",
		GroupsBase:        "ou=groups,ou=system",
		NotAliasCacheSize: 1024,
	}
}

// Deps are the shared collaborators injected into the interceptors at
// construction. Process-wide state is always reached through these, not
// through package globals.
type Deps struct {
	Schemas *schema.Manager
	Nexus   *nexus.Nexus
	Broker  *event.Broker
	Logger  *zap.Logger
	Config  Config
}

func (d *Deps) reg() *schema.Registries {
	return d.Schemas.Current()
}

// New assembles the chain in its fixed order: normalization, exception,
// operational attributes, schema, subentry, collective attributes,
// default authorization, event feed, and the nexus tail.
func New(deps *Deps) (Chain, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.NotAliasCacheSize <= 0 {
		deps.Config.NotAliasCacheSize = 1024
	}

	exception, err := newExceptionInterceptor(deps)
	if err != nil {
		return Chain{}, err
	}
	authz, err := newAuthzInterceptor(deps)
	if err != nil {
		return Chain{}, err
	}

	interceptors := []Interceptor{
		newNormalizeInterceptor(deps),
		exception,
		newOperationalInterceptor(deps),
		newSchemaInterceptor(deps),
		newSubentryInterceptor(deps),
		newCollectiveInterceptor(deps),
		authz,
		newEventInterceptor(deps),
		newTail(deps),
	}
	return Chain{interceptors: interceptors}, nil
}

// errAbandoned is returned by operations that observe the abandon flag
// before producing a result.
func errAbandoned() error {
	return ldap.Errorf(ldap.ResultAbandoned, "operation abandoned")
}
