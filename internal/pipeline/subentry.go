package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// ErrBadSubtreeSpec indicates a malformed subtreeSpecification value.
var ErrBadSubtreeSpec = errors.New("malformed subtreeSpecification")

// SubtreeSpecification selects a region of the tree relative to an
// administrative point, per X.501: a relative base, optional chop
// exclusions, and optional minimum/maximum depths.
type SubtreeSpecification struct {
	// Base is relative to the administrative point; empty selects the
	// whole administrative area.
	Base dn.Dn

	// ChopBefore excludes the named subtree including its root;
	// ChopAfter excludes only the subordinates of its root. Both are
	// relative to the base.
	ChopBefore []dn.Dn
	ChopAfter  []dn.Dn

	// Minimum and Maximum bound the depth below the base; zero means
	// unbounded.
	Minimum int
	Maximum int
}

// ParseSubtreeSpecification parses the braced X.501 textual form, e.g.
// `{ base "ou=configuration", minimum 1, specificExclusions {
// chopBefore: "cn=x", chopAfter: "cn=y" } }`.
func ParseSubtreeSpecification(s string) (*SubtreeSpecification, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, ErrBadSubtreeSpec
	}
	spec := &SubtreeSpecification{}
	body := s[1 : len(s)-1]

	for len(body) > 0 {
		body = strings.TrimLeft(body, " \t\r\n,")
		if body == "" {
			break
		}
		switch {
		case strings.HasPrefix(body, "base"):
			value, rest, err := quotedValue(body[len("base"):])
			if err != nil {
				return nil, err
			}
			base, err := dn.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadSubtreeSpec, err)
			}
			spec.Base = base
			body = rest
		case strings.HasPrefix(body, "minimum"):
			n, rest, err := intValue(body[len("minimum"):])
			if err != nil {
				return nil, err
			}
			spec.Minimum = n
			body = rest
		case strings.HasPrefix(body, "maximum"):
			n, rest, err := intValue(body[len("maximum"):])
			if err != nil {
				return nil, err
			}
			spec.Maximum = n
			body = rest
		case strings.HasPrefix(body, "specificExclusions"):
			inner, rest, err := bracedValue(body[len("specificExclusions"):])
			if err != nil {
				return nil, err
			}
			if err := spec.parseExclusions(inner); err != nil {
				return nil, err
			}
			body = rest
		default:
			return nil, fmt.Errorf("%w: near %q", ErrBadSubtreeSpec, body)
		}
	}
	return spec, nil
}

func (spec *SubtreeSpecification) parseExclusions(body string) error {
	for len(body) > 0 {
		body = strings.TrimLeft(body, " \t\r\n,")
		if body == "" {
			return nil
		}
		var chopBefore bool
		switch {
		case strings.HasPrefix(body, "chopBefore"):
			chopBefore = true
			body = strings.TrimLeft(body[len("chopBefore"):], " \t:")
		case strings.HasPrefix(body, "chopAfter"):
			body = strings.TrimLeft(body[len("chopAfter"):], " \t:")
		default:
			return fmt.Errorf("%w: near %q", ErrBadSubtreeSpec, body)
		}
		value, rest, err := quotedValue(body)
		if err != nil {
			return err
		}
		d, err := dn.Parse(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadSubtreeSpec, err)
		}
		if chopBefore {
			spec.ChopBefore = append(spec.ChopBefore, d)
		} else {
			spec.ChopAfter = append(spec.ChopAfter, d)
		}
		body = rest
	}
	return nil
}

func quotedValue(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t:")
	if len(s) == 0 || s[0] != '"' {
		return "", "", ErrBadSubtreeSpec
	}
	end := strings.IndexByte(s[1:], '"')
	if end < 0 {
		return "", "", ErrBadSubtreeSpec
	}
	return s[1 : 1+end], s[end+2:], nil
}

// bracedValue splits a leading `{ ... }` group off s, returning its body
// and the text after the closing brace.
func bracedValue(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t:")
	if len(s) == 0 || s[0] != '{' {
		return "", "", ErrBadSubtreeSpec
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return "", "", ErrBadSubtreeSpec
	}
	return s[1:end], s[end+1:], nil
}

func intValue(s string) (int, string, error) {
	s = strings.TrimLeft(s, " \t:")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, "", ErrBadSubtreeSpec
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, "", ErrBadSubtreeSpec
	}
	return n, s[end:], nil
}

// Selects reports whether the specification, anchored at the given
// administrative point, selects the entry. Both DNs must be normalized;
// the relative DNs inside the specification are normalized on the fly.
func (spec *SubtreeSpecification) Selects(reg *schema.Registries, adminPoint, entryDn dn.Dn) bool {
	base := adminPoint
	if !spec.Base.IsEmpty() {
		nb, err := spec.Base.Normalize(reg)
		if err != nil {
			return false
		}
		rdns := append(append([]dn.Rdn(nil), nb.Rdns...), adminPoint.Rdns...)
		base = dn.New(rdns...)
	}

	if !entryDn.Equal(base) && !entryDn.IsDescendantOf(base) {
		return false
	}
	depth := entryDn.Size() - base.Size()
	if depth < spec.Minimum {
		return false
	}
	if spec.Maximum > 0 && depth > spec.Maximum {
		return false
	}

	for _, chop := range spec.ChopBefore {
		root, ok := spec.anchor(reg, chop, base)
		if !ok {
			continue
		}
		if entryDn.Equal(root) || entryDn.IsDescendantOf(root) {
			return false
		}
	}
	for _, chop := range spec.ChopAfter {
		root, ok := spec.anchor(reg, chop, base)
		if !ok {
			continue
		}
		if entryDn.IsDescendantOf(root) {
			return false
		}
	}
	return true
}

func (spec *SubtreeSpecification) anchor(reg *schema.Registries, rel, base dn.Dn) (dn.Dn, bool) {
	nr, err := rel.Normalize(reg)
	if err != nil {
		return dn.Dn{}, false
	}
	rdns := append(append([]dn.Rdn(nil), nr.Rdns...), base.Rdns...)
	return dn.New(rdns...), true
}

// subentryInterceptor administers subentries: it validates their
// subtreeSpecification on the way in and keeps them out of ordinary
// search results. With the subentries control the visibility flips:
// only subentries are returned.
type subentryInterceptor struct {
	Base
	deps *Deps
}

func newSubentryInterceptor(deps *Deps) *subentryInterceptor {
	return &subentryInterceptor{deps: deps}
}

func (in *subentryInterceptor) Name() string { return "subentry" }

func (in *subentryInterceptor) Add(next Chain, ctx *AddContext) error {
	reg := in.deps.reg()
	if ctx.Entry.HasObjectClass(reg, schema.ClassSubentry) {
		raw := ctx.Entry.First(reg, schema.AttrSubtreeSpecification)
		if raw == "" {
			return ldap.NewError(ldap.ResultObjectClassViolation, ctx.Entry.Dn.User(),
				"subentry without subtreeSpecification")
		}
		if _, err := ParseSubtreeSpecification(raw); err != nil {
			return ldap.NewError(ldap.ResultInvalidAttributeSyntax, ctx.Entry.Dn.User(),
				err.Error())
		}
	}
	return next.Add(ctx)
}

func (in *subentryInterceptor) Search(next Chain, ctx *SearchContext) (EntryCursor, error) {
	cur, err := next.Search(ctx)
	if err != nil {
		return nil, err
	}
	// Base-object reads see the entry as named regardless of kind.
	if ctx.Scope == ldap.ScopeBaseObject {
		return cur, nil
	}
	reg := in.deps.reg()
	wantSubentries := ldap.SubentriesVisibility(ctx.Control(ldap.ControlSubentries))
	return withAcceptance(cur, func(e *entry.Entry) (bool, error) {
		return e.HasObjectClass(reg, schema.ClassSubentry) == wantSubentries, nil
	}), nil
}
