package filter

import "strings"

// NodeType represents the type of a filter node.
type NodeType int

const (
	// And represents a conjunction (&).
	And NodeType = iota
	// Or represents a disjunction (|).
	Or
	// Not represents a negation (!).
	Not
	// Equality represents an equality assertion (attr=value).
	Equality
	// Substring represents a substring assertion (attr=ini*a*fin).
	Substring
	// GreaterOrEqual represents an ordering assertion (attr>=value).
	GreaterOrEqual
	// LessOrEqual represents an ordering assertion (attr<=value).
	LessOrEqual
	// Present represents a presence assertion (attr=*).
	Present
	// Approximate represents an approximate assertion (attr~=value).
	Approximate
	// Extensible represents an extensible match assertion (attr:rule:=value).
	Extensible
)

// String returns the string representation of the node type.
func (t NodeType) String() string {
	switch t {
	case And:
		return "AND"
	case Or:
		return "OR"
	case Not:
		return "NOT"
	case Equality:
		return "EQUALITY"
	case Substring:
		return "SUBSTRING"
	case GreaterOrEqual:
		return "GREATER_OR_EQUAL"
	case LessOrEqual:
		return "LESS_OR_EQUAL"
	case Present:
		return "PRESENT"
	case Approximate:
		return "APPROXIMATE"
	case Extensible:
		return "EXTENSIBLE"
	default:
		return "UNKNOWN"
	}
}

// Node is a search filter tree node. Leaves carry an attribute
// description and an assertion value; branches carry children.
type Node struct {
	Type      NodeType
	Attribute string // attribute description; the rewriter replaces it with the OID
	Value     string // assertion value; normalized by the rewriter

	Children []*Node    // for And/Or
	Child    *Node      // for Not
	Sub      *SubAssert // for Substring

	// Extensible match fields.
	MatchingRule string
	DnAttributes bool

	// Count is the planner's scan-count estimate for this node: the
	// number of candidates an index scan for the node alone would
	// visit. Unindexed nodes carry CountUnknown.
	Count int64
}

// CountUnknown marks a node whose scan count cannot be estimated from
// any index; the planner treats it as +inf.
const CountUnknown int64 = -1

// SubAssert holds the components of a substring assertion.
type SubAssert struct {
	Initial string   // before the first '*'
	Any     []string // between '*'s
	Final   string   // after the last '*'
}

// NewAnd creates a conjunction node.
func NewAnd(children ...*Node) *Node {
	return &Node{Type: And, Children: children}
}

// NewOr creates a disjunction node.
func NewOr(children ...*Node) *Node {
	return &Node{Type: Or, Children: children}
}

// NewNot creates a negation node.
func NewNot(child *Node) *Node {
	return &Node{Type: Not, Child: child}
}

// NewEquality creates an equality leaf.
func NewEquality(attribute, value string) *Node {
	return &Node{Type: Equality, Attribute: attribute, Value: value}
}

// NewPresent creates a presence leaf.
func NewPresent(attribute string) *Node {
	return &Node{Type: Present, Attribute: attribute}
}

// NewGreaterOrEqual creates a greater-or-equal leaf.
func NewGreaterOrEqual(attribute, value string) *Node {
	return &Node{Type: GreaterOrEqual, Attribute: attribute, Value: value}
}

// NewLessOrEqual creates a less-or-equal leaf.
func NewLessOrEqual(attribute, value string) *Node {
	return &Node{Type: LessOrEqual, Attribute: attribute, Value: value}
}

// NewApproximate creates an approximate leaf.
func NewApproximate(attribute, value string) *Node {
	return &Node{Type: Approximate, Attribute: attribute, Value: value}
}

// NewSubstring creates a substring leaf.
func NewSubstring(attribute string, sub *SubAssert) *Node {
	return &Node{Type: Substring, Attribute: attribute, Sub: sub}
}

// NewExtensible creates an extensible match leaf.
func NewExtensible(attribute, rule, value string, dnAttrs bool) *Node {
	return &Node{
		Type:         Extensible,
		Attribute:    attribute,
		MatchingRule: rule,
		Value:        value,
		DnAttributes: dnAttrs,
	}
}

// IsLeaf reports whether the node is an assertion leaf.
func (n *Node) IsLeaf() bool {
	switch n.Type {
	case And, Or, Not:
		return false
	}
	return true
}

// Clone returns a deep copy of the filter tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Sub != nil {
		sub := *n.Sub
		sub.Any = append([]string(nil), n.Sub.Any...)
		out.Sub = &sub
	}
	if n.Child != nil {
		out.Child = n.Child.Clone()
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// String renders the filter in RFC 4515 prefix notation.
func (n *Node) String() string {
	if n == nil {
		return "(nil)"
	}
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	b.WriteByte('(')
	switch n.Type {
	case And, Or:
		if n.Type == And {
			b.WriteByte('&')
		} else {
			b.WriteByte('|')
		}
		for _, c := range n.Children {
			c.render(b)
		}
	case Not:
		b.WriteByte('!')
		if n.Child != nil {
			n.Child.render(b)
		}
	case Equality:
		b.WriteString(n.Attribute)
		b.WriteByte('=')
		b.WriteString(escapeAssertion(n.Value))
	case Present:
		b.WriteString(n.Attribute)
		b.WriteString("=*")
	case GreaterOrEqual:
		b.WriteString(n.Attribute)
		b.WriteString(">=")
		b.WriteString(escapeAssertion(n.Value))
	case LessOrEqual:
		b.WriteString(n.Attribute)
		b.WriteString("<=")
		b.WriteString(escapeAssertion(n.Value))
	case Approximate:
		b.WriteString(n.Attribute)
		b.WriteString("~=")
		b.WriteString(escapeAssertion(n.Value))
	case Substring:
		b.WriteString(n.Attribute)
		b.WriteByte('=')
		b.WriteString(escapeAssertion(n.Sub.Initial))
		b.WriteByte('*')
		for _, any := range n.Sub.Any {
			b.WriteString(escapeAssertion(any))
			b.WriteByte('*')
		}
		b.WriteString(escapeAssertion(n.Sub.Final))
	case Extensible:
		b.WriteString(n.Attribute)
		if n.DnAttributes {
			b.WriteString(":dn")
		}
		if n.MatchingRule != "" {
			b.WriteByte(':')
			b.WriteString(n.MatchingRule)
		}
		b.WriteString(":=")
		b.WriteString(escapeAssertion(n.Value))
	}
	b.WriteByte(')')
}
