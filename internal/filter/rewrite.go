package filter

import (
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Rewriter canonicalizes a filter tree against the schema in a single
// post-order pass:
//
//   - leaf attribute names resolve to their OID; leaves naming an
//     undefined attribute are dropped (become nil)
//   - assertion values are reduced by the attribute's equality
//     normalizer
//   - an AND with any nil child becomes nil (an undefined attribute
//     poisons the conjunction)
//   - an OR drops nil children and becomes nil only when none remain
//   - a NOT with a nil child becomes nil
//   - a branch left with a single child collapses to that child
//
// A nil result means the filter can match nothing.
type Rewriter struct {
	reg *schema.Registries
}

// NewRewriter creates a Rewriter over the given registries.
func NewRewriter(reg *schema.Registries) *Rewriter {
	return &Rewriter{reg: reg}
}

// Rewrite returns the canonical form of the filter, or nil when the
// filter cannot match anything. The input tree is not modified.
func (rw *Rewriter) Rewrite(n *Node) *Node {
	if n == nil {
		return nil
	}
	return rw.rewrite(n.Clone())
}

func (rw *Rewriter) rewrite(n *Node) *Node {
	switch n.Type {
	case And:
		children := make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			rc := rw.rewrite(c)
			if rc == nil {
				return nil
			}
			children = append(children, rc)
		}
		if len(children) == 0 {
			return nil
		}
		if len(children) == 1 {
			return children[0]
		}
		n.Children = children
		return n

	case Or:
		children := make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			if rc := rw.rewrite(c); rc != nil {
				children = append(children, rc)
			}
		}
		if len(children) == 0 {
			return nil
		}
		if len(children) == 1 {
			return children[0]
		}
		n.Children = children
		return n

	case Not:
		child := rw.rewrite(n.Child)
		if child == nil {
			return nil
		}
		// Double negation cancels.
		if child.Type == Not {
			return child.Child
		}
		n.Child = child
		return n

	default:
		return rw.rewriteLeaf(n)
	}
}

func (rw *Rewriter) rewriteLeaf(n *Node) *Node {
	at, ok := rw.reg.AttributeType(n.Attribute)
	if !ok {
		return nil
	}
	n.Attribute = at.OID

	normalize := func(v string) (string, bool) {
		if v == "" {
			return "", true
		}
		nv, err := rw.reg.Normalize(at, v)
		if err != nil {
			return "", false
		}
		return nv, true
	}

	switch n.Type {
	case Present:
		return n
	case Substring:
		sub := &SubAssert{}
		var ok bool
		if sub.Initial, ok = normalize(n.Sub.Initial); !ok {
			return nil
		}
		if sub.Final, ok = normalize(n.Sub.Final); !ok {
			return nil
		}
		for _, any := range n.Sub.Any {
			na, ok := normalize(any)
			if !ok {
				return nil
			}
			sub.Any = append(sub.Any, na)
		}
		// A substring assertion with no wildcard text left degrades to
		// presence; one without any wildcard is plain equality.
		if sub.Initial == "" && sub.Final == "" && len(sub.Any) == 0 {
			n.Type = Present
			n.Sub = nil
			return n
		}
		n.Sub = sub
		return n
	case Extensible:
		if n.MatchingRule != "" {
			if _, ok := rw.reg.MatchingRule(n.MatchingRule); !ok {
				return nil
			}
		}
		nv, ok := normalize(n.Value)
		if !ok {
			return nil
		}
		n.Value = nv
		return n
	default:
		nv, ok := normalize(n.Value)
		if !ok {
			return nil
		}
		n.Value = nv
		return n
	}
}
