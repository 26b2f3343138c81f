package search

import (
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
)

// AnnotateCounts walks a normalized filter and stamps every node with
// its scan-count estimate: the number of candidates an index scan for
// that node alone would visit. Nodes with no usable index carry
// CountUnknown, which the planner treats as +inf. Counts order work;
// they are never exact results.
func AnnotateCounts(part partition.Partition, n *filter.Node) {
	if n == nil {
		return
	}
	switch n.Type {
	case filter.And:
		// The conjunction scans its cheapest child.
		best := filter.CountUnknown
		for _, c := range n.Children {
			AnnotateCounts(part, c)
			if c.Count == filter.CountUnknown {
				continue
			}
			if best == filter.CountUnknown || c.Count < best {
				best = c.Count
			}
		}
		n.Count = best

	case filter.Or:
		// The disjunction scans every child; one unindexed child makes
		// the whole node unindexable.
		var total int64
		for _, c := range n.Children {
			AnnotateCounts(part, c)
			if c.Count == filter.CountUnknown {
				total = filter.CountUnknown
			}
			if total != filter.CountUnknown {
				total += c.Count
			}
		}
		n.Count = total

	case filter.Not:
		AnnotateCounts(part, n.Child)
		// A negation can only be driven by a scope walk.
		n.Count = filter.CountUnknown

	case filter.Equality:
		if ix, ok := part.Index(n.Attribute); ok {
			n.Count = int64(ix.ValueCount(n.Value))
		} else {
			n.Count = filter.CountUnknown
		}

	case filter.GreaterOrEqual, filter.LessOrEqual, filter.Substring:
		// Bounded above by the index population.
		if ix, ok := part.Index(n.Attribute); ok {
			n.Count = int64(ix.Count())
		} else {
			n.Count = filter.CountUnknown
		}

	case filter.Present:
		n.Count = int64(part.PresenceCount(n.Attribute))

	default:
		n.Count = filter.CountUnknown
	}
}
