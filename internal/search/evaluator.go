package search

import (
	"sort"
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Evaluator decides whether a candidate satisfies one filter node. The
// cheap path inspects the index pairing carried by the candidate; the
// resuscitation path fetches and inspects the full entry. Both paths
// return the same verdict for the same entry.
type Evaluator interface {
	Evaluate(c *Candidate) (bool, error)
}

// Context carries the dependencies evaluators share.
type Context struct {
	Part partition.Partition
	Reg  *schema.Registries

	// Scope, when set, is additionally demanded by NOT evaluators so a
	// negation can never accept candidates outside the search scope.
	Scope Evaluator
}

// NewEvaluator builds the evaluator tree for a normalized filter node.
func NewEvaluator(ctx *Context, n *filter.Node) (Evaluator, error) {
	switch n.Type {
	case filter.And:
		children := make([]Evaluator, len(n.Children))
		for i, c := range n.Children {
			ev, err := NewEvaluator(ctx, c)
			if err != nil {
				return nil, err
			}
			children[i] = ev
		}
		return &andEvaluator{children: children}, nil

	case filter.Or:
		// Children ordered by descending scan count: the broadest
		// assertion is the most likely to short-circuit the disjunction.
		nodes := append([]*filter.Node(nil), n.Children...)
		sort.SliceStable(nodes, func(i, j int) bool {
			return effectiveCount(nodes[i]) > effectiveCount(nodes[j])
		})
		children := make([]Evaluator, len(nodes))
		for i, c := range nodes {
			ev, err := NewEvaluator(ctx, c)
			if err != nil {
				return nil, err
			}
			children[i] = ev
		}
		return &orEvaluator{children: children}, nil

	case filter.Not:
		child, err := NewEvaluator(ctx, n.Child)
		if err != nil {
			return nil, err
		}
		return &notEvaluator{child: child, scope: ctx.Scope}, nil

	default:
		return newLeafEvaluator(ctx, n)
	}
}

func effectiveCount(n *filter.Node) int64 {
	if n.Count == filter.CountUnknown {
		return int64(1) << 62
	}
	return n.Count
}

type andEvaluator struct {
	children []Evaluator
}

func (ev *andEvaluator) Evaluate(c *Candidate) (bool, error) {
	for _, child := range ev.children {
		ok, err := child.Evaluate(c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

type orEvaluator struct {
	children []Evaluator
}

func (ev *orEvaluator) Evaluate(c *Candidate) (bool, error) {
	for _, child := range ev.children {
		ok, err := child.Evaluate(c)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type notEvaluator struct {
	child Evaluator
	scope Evaluator
}

func (ev *notEvaluator) Evaluate(c *Candidate) (bool, error) {
	if ev.scope != nil {
		in, err := ev.scope.Evaluate(c)
		if err != nil {
			return false, err
		}
		if !in {
			return false, nil
		}
	}
	ok, err := ev.child.Evaluate(c)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// leafEvaluator handles every assertion leaf. It wraps the attribute
// type's matching rule comparator.
type leafEvaluator struct {
	ctx  *Context
	node *filter.Node
	at   *schema.AttributeType
	cmp  schema.Comparator
}

func newLeafEvaluator(ctx *Context, n *filter.Node) (Evaluator, error) {
	at, ok := ctx.Reg.AttributeType(n.Attribute)
	if !ok {
		return nil, ldap.Errorf(ldap.ResultUndefinedAttributeType,
			"filter references undefined attribute %s", n.Attribute)
	}
	cmp := schema.Comparator(strings.Compare)
	switch n.Type {
	case filter.GreaterOrEqual, filter.LessOrEqual:
		if mr, ok := ctx.Reg.OrderingRule(at); ok && mr.Compare != nil {
			cmp = mr.Compare
		}
	case filter.Extensible:
		if n.MatchingRule != "" {
			if mr, ok := ctx.Reg.MatchingRule(n.MatchingRule); ok && mr.Compare != nil {
				cmp = mr.Compare
			}
		} else if mr, ok := ctx.Reg.EqualityRule(at); ok && mr.Compare != nil {
			cmp = mr.Compare
		}
	default:
		if mr, ok := ctx.Reg.EqualityRule(at); ok && mr.Compare != nil {
			cmp = mr.Compare
		}
	}
	return &leafEvaluator{ctx: ctx, node: n, at: at, cmp: cmp}, nil
}

func (ev *leafEvaluator) Evaluate(c *Candidate) (bool, error) {
	// Cheap path: the candidate came from this attribute's own index,
	// so the index key is a normalized value of the attribute.
	if c.FromAttr == ev.at.OID && c.Value != "" {
		if ok, decided := ev.evaluateValue(c.Value); decided {
			return ok, nil
		}
	}

	e, err := c.Entry(ev.ctx.Part)
	if err != nil {
		return false, err
	}

	if ev.node.Type == filter.Present {
		return len(ev.valuesOf(e)) > 0, nil
	}

	for _, v := range ev.valuesOf(e) {
		if ok, _ := ev.evaluateValue(v); ok {
			return true, nil
		}
	}

	if ev.node.Type == filter.Extensible && ev.node.DnAttributes {
		for _, r := range e.Dn.Rdns {
			for _, ava := range r.Avas {
				if ava.NormType != ev.at.OID {
					continue
				}
				if ok, _ := ev.evaluateValue(ava.NormValue); ok {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// evaluateValue applies the assertion to one normalized value. The
// second return is false when the assertion cannot be decided from a
// single value (presence).
func (ev *leafEvaluator) evaluateValue(v string) (bool, bool) {
	switch ev.node.Type {
	case filter.Equality, filter.Approximate, filter.Extensible:
		return ev.cmp(v, ev.node.Value) == 0, true
	case filter.GreaterOrEqual:
		return ev.cmp(v, ev.node.Value) >= 0, true
	case filter.LessOrEqual:
		return ev.cmp(v, ev.node.Value) <= 0, true
	case filter.Substring:
		return filter.MatchSubstring(v, ev.node.Sub), true
	case filter.Present:
		return true, false
	}
	return false, true
}

// valuesOf collects the normalized values of the assertion's attribute
// on the entry, including values of descendant attribute types, so an
// assertion on a supertype sees its subtypes' values.
func (ev *leafEvaluator) valuesOf(e *entry.Entry) []string {
	var out []string
	for _, a := range e.Attributes() {
		if a.Type.OID == ev.at.OID || a.Type.IsDescendantOf(ev.ctx.Reg, ev.at.OID) {
			out = append(out, a.NormValues()...)
		}
	}
	return out
}
