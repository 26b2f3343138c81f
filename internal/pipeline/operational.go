package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// GeneralizedTime is the timestamp layout of the operational
// attributes (RFC 4517 generalized time, seconds precision, Zulu).
const GeneralizedTime = "20060102150405Z"

// FormatTime renders a time as LDAP generalized time.
func FormatTime(t time.Time) string {
	return t.UTC().Format(GeneralizedTime)
}

// operationalInterceptor maintains the operational attributes: creator
// and modifier stamps on the write path, attribute projection and
// optional DN denormalization on the read path.
type operationalInterceptor struct {
	Base
	deps *Deps
	now  func() time.Time
}

func newOperationalInterceptor(deps *Deps) *operationalInterceptor {
	return &operationalInterceptor{deps: deps, now: time.Now}
}

func (in *operationalInterceptor) Name() string { return "operational-attribute" }

func (in *operationalInterceptor) Add(next Chain, ctx *AddContext) error {
	reg := in.deps.reg()
	if err := ctx.Entry.Put(reg, schema.AttrCreatorsName, ctx.Session.Principal.User()); err != nil {
		return err
	}
	if err := ctx.Entry.Put(reg, schema.AttrCreateTimestamp, FormatTime(in.now())); err != nil {
		return err
	}
	return next.Add(ctx)
}

func (in *operationalInterceptor) Modify(next Chain, ctx *ModifyContext) error {
	if err := next.Modify(ctx); err != nil {
		return err
	}
	// Stamp after success so a rejected modify leaves timestamps
	// untouched.
	return in.stamp(ctx.Dn, ctx.Session)
}

func (in *operationalInterceptor) Rename(next Chain, ctx *RenameContext) error {
	if err := next.Rename(ctx); err != nil {
		return err
	}
	// The follow-up lands on the final DN: the moved target, not the
	// source.
	return in.stamp(ctx.NewDn, ctx.Session)
}

// stamp issues the follow-up modify that sets modifiersName and
// modifyTimestamp directly against the nexus.
func (in *operationalInterceptor) stamp(d dn.Dn, session Session) error {
	reg := in.deps.reg()
	e, err := in.deps.Nexus.Lookup(d)
	if err != nil {
		return err
	}
	if err := e.Put(reg, schema.AttrModifiersName, session.Principal.User()); err != nil {
		return err
	}
	if err := e.Put(reg, schema.AttrModifyTimestamp, FormatTime(in.now())); err != nil {
		return err
	}
	return in.deps.Nexus.Update(e)
}

func (in *operationalInterceptor) Lookup(next Chain, ctx *LookupContext) (*entry.Entry, error) {
	e, err := next.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	return in.project(e, ctx.Attrs)
}

func (in *operationalInterceptor) Search(next Chain, ctx *SearchContext) (EntryCursor, error) {
	cur, err := next.Search(ctx)
	if err != nil {
		return nil, err
	}
	attrs := ctx.Attrs
	return withTransform(cur, func(e *entry.Entry) (*entry.Entry, error) {
		return in.project(e, attrs)
	}), nil
}

// project applies the returning-attribute rules: a nil list selects
// every user attribute and filters operational attributes out; an
// explicit list returns only what it names, where "*" selects the user
// attributes, "+" the operational ones, and "1.1" nothing. A requested
// supertype also selects its descendant types.
func (in *operationalInterceptor) project(e *entry.Entry, attrs []string) (*entry.Entry, error) {
	reg := in.deps.reg()
	// The root DSE is all operational attributes; filtering them out
	// would leave nothing useful, so the default view returns it whole.
	if e.Dn.IsEmpty() && len(attrs) == 0 {
		return e, nil
	}
	out := entry.New(e.Dn)
	out.ID = e.ID

	include := func(a *entry.Attribute) bool {
		if len(attrs) == 0 {
			return !a.Type.IsOperational()
		}
		for _, req := range attrs {
			switch req {
			case "1.1":
				continue
			case "*":
				if !a.Type.IsOperational() {
					return true
				}
			case "+":
				if a.Type.IsOperational() {
					return true
				}
			default:
				if a.Type.HasName(req) || a.Type.IsDescendantOf(reg, req) {
					return true
				}
			}
		}
		return false
	}

	for _, a := range e.Attributes() {
		if !include(a) {
			continue
		}
		values := a.Values()
		if in.deps.Config.DenormalizeOpAttrs && a.Type.IsOperational() && a.Type.Syntax == schema.SyntaxDN {
			values = denormalizeValues(reg, values)
		}
		if err := out.Add(reg, a.UserID, values...); err != nil {
			return nil, err
		}
	}
	if err := in.addSubordinates(out, attrs); err != nil {
		return nil, err
	}
	return out, nil
}

// addSubordinates derives hasSubordinates and numSubordinates from the
// tree when the returning-attribute list selects them. They are never
// stored; the rdn index is the source of truth.
func (in *operationalInterceptor) addSubordinates(out *entry.Entry, attrs []string) error {
	wantHas := requested(attrs, schema.AttrHasSubordinates)
	wantNum := requested(attrs, schema.AttrNumSubordinates)
	if out.Dn.IsEmpty() || (!wantHas && !wantNum) {
		return nil
	}
	count, err := in.deps.Nexus.ChildCount(out.Dn)
	if err != nil {
		return nil
	}
	reg := in.deps.reg()
	if wantHas {
		value := "FALSE"
		if count > 0 {
			value = "TRUE"
		}
		if err := out.Put(reg, schema.AttrHasSubordinates, value); err != nil {
			return err
		}
	}
	if wantNum {
		if err := out.Put(reg, schema.AttrNumSubordinates, strconv.Itoa(count)); err != nil {
			return err
		}
	}
	return nil
}

// requested reports whether an explicit returning-attribute list
// selects the named operational attribute, directly or via "+".
func requested(attrs []string, name string) bool {
	for _, req := range attrs {
		if req == "+" || strings.EqualFold(req, name) {
			return true
		}
	}
	return false
}

// denormalizeValues re-renders DN values using short attribute-type
// names.
func denormalizeValues(reg *schema.Registries, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = denormalizeDN(reg, v)
	}
	return out
}

func denormalizeDN(reg *schema.Registries, value string) string {
	d, err := dn.Parse(value)
	if err != nil {
		return value
	}
	for i := range d.Rdns {
		for j := range d.Rdns[i].Avas {
			ava := &d.Rdns[i].Avas[j]
			if at, ok := reg.AttributeType(ava.UserType); ok {
				ava.UserType = at.Name
			}
		}
	}
	return d.User()
}
