package search

import (
	"sort"
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
	"github.com/KilimcininKorOglu/sedir/internal/store"
)

// Planner turns a normalized filter and a scope into an indexed
// candidate cursor. Every matching identifier is emitted exactly once,
// in an order consistent with the driving index; candidates are
// confirmed against the scope before they leave the planner.
type Planner struct {
	part partition.Partition
	reg  *schema.Registries
}

// NewPlanner creates a planner over one partition.
func NewPlanner(part partition.Partition, reg *schema.Registries) *Planner {
	return &Planner{part: part, reg: reg}
}

// Cursor builds the candidate cursor for a search. A nil filter yields
// nothing (the rewriter already decided no entry can match). When no
// index can drive the filter, the scope cursor seeds the scan and the
// full filter evaluator gates it, so scope restrictions stay cheap even
// on full scans.
func (p *Planner) Cursor(scope Scope, f *filter.Node) (Cursor, error) {
	if f == nil {
		return Empty(), nil
	}
	AnnotateCounts(p.part, f)

	scopeEv := NewScopeEvaluator(p.part, scope)
	ctx := &Context{Part: p.part, Reg: p.reg, Scope: scopeEv}

	if f.Count == filter.CountUnknown {
		fullEv, err := NewEvaluator(ctx, f)
		if err != nil {
			return nil, err
		}
		return WithPredicates(ScopeCursor(p.part, scope), fullEv), nil
	}

	driver, err := p.build(ctx, scope, f)
	if err != nil {
		return nil, err
	}
	return WithPredicates(driver, scopeEv), nil
}

// build constructs the cursor for one node. The returned cursor is
// exact for the node: it emits precisely the identifiers matching the
// node's assertion, each once.
func (p *Planner) build(ctx *Context, scope Scope, n *filter.Node) (Cursor, error) {
	switch n.Type {
	case filter.Equality:
		ix, ok := p.part.Index(n.Attribute)
		if !ok {
			return p.fallback(ctx, scope, n)
		}
		return newEqualityCursor(ix, p.orderingCmp(n.Attribute), n.Value), nil

	case filter.GreaterOrEqual:
		ix, ok := p.part.Index(n.Attribute)
		if !ok {
			return p.fallback(ctx, scope, n)
		}
		return Dedup(newRangeCursor(ix, n.Value, true)), nil

	case filter.LessOrEqual:
		ix, ok := p.part.Index(n.Attribute)
		if !ok {
			return p.fallback(ctx, scope, n)
		}
		return Dedup(newRangeCursor(ix, n.Value, false)), nil

	case filter.Present:
		return newPresenceCursor(p.part, n.Attribute), nil

	case filter.Substring:
		ix, ok := p.part.Index(n.Attribute)
		if !ok {
			return p.fallback(ctx, scope, n)
		}
		return Dedup(newSubstringCursor(ix, n.Sub)), nil

	case filter.And:
		return p.buildAnd(ctx, scope, n)

	case filter.Or:
		return p.buildOr(ctx, scope, n)

	case filter.Not:
		// Drive with the scope and negate per candidate.
		ev, err := NewEvaluator(ctx, n)
		if err != nil {
			return nil, err
		}
		return WithPredicates(ScopeCursor(p.part, scope), ev), nil

	default:
		return p.fallback(ctx, scope, n)
	}
}

// buildAnd drives the conjunction with the child of minimum non-zero
// scan count and wraps the remaining children as acceptance predicates.
func (p *Planner) buildAnd(ctx *Context, scope Scope, n *filter.Node) (Cursor, error) {
	best := -1
	for i, c := range n.Children {
		if c.Count == filter.CountUnknown {
			continue
		}
		if c.Count == 0 {
			// An index already proved this child matches nothing.
			return Empty(), nil
		}
		if best < 0 || c.Count < n.Children[best].Count {
			best = i
		}
	}
	if best < 0 {
		return p.fallback(ctx, scope, n)
	}

	driver, err := p.build(ctx, scope, n.Children[best])
	if err != nil {
		return nil, err
	}
	preds := make([]Evaluator, 0, len(n.Children)-1)
	for i, c := range n.Children {
		if i == best {
			continue
		}
		ev, err := NewEvaluator(ctx, c)
		if err != nil {
			driver.Close()
			return nil, err
		}
		preds = append(preds, ev)
	}
	return WithPredicates(driver, preds...), nil
}

// buildOr composes child cursors into a de-duplicating union driven in
// scan-count order.
func (p *Planner) buildOr(ctx *Context, scope Scope, n *filter.Node) (Cursor, error) {
	nodes := append([]*filter.Node(nil), n.Children...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return effectiveCount(nodes[i]) < effectiveCount(nodes[j])
	})
	children := make([]Cursor, 0, len(nodes))
	for _, c := range nodes {
		cur, err := p.build(ctx, scope, c)
		if err != nil {
			for _, opened := range children {
				opened.Close()
			}
			return nil, err
		}
		children = append(children, cur)
	}
	return Union(children...), nil
}

// fallback seeds an unindexed node with the scope cursor and gates it
// with the node's evaluator.
func (p *Planner) fallback(ctx *Context, scope Scope, n *filter.Node) (Cursor, error) {
	ev, err := NewEvaluator(ctx, n)
	if err != nil {
		return nil, err
	}
	return WithPredicates(ScopeCursor(p.part, scope), ev), nil
}

func (p *Planner) orderingCmp(attrOID string) store.Compare[string] {
	if at, ok := p.reg.AttributeType(attrOID); ok {
		if mr, ok := p.reg.OrderingRule(at); ok && mr.Compare != nil {
			return store.Compare[string](mr.Compare)
		}
	}
	return strings.Compare
}
