package pipeline

import (
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// matchEntry evaluates a normalized filter directly against an entry
// that never reaches a partition: the root DSE and other synthesized
// entries.
func matchEntry(reg *schema.Registries, e *entry.Entry, f *filter.Node) bool {
	if f == nil || e == nil {
		return false
	}
	switch f.Type {
	case filter.And:
		for _, c := range f.Children {
			if !matchEntry(reg, e, c) {
				return false
			}
		}
		return true
	case filter.Or:
		for _, c := range f.Children {
			if matchEntry(reg, e, c) {
				return true
			}
		}
		return false
	case filter.Not:
		return !matchEntry(reg, e, f.Child)
	}

	at, ok := reg.AttributeType(f.Attribute)
	if !ok {
		return false
	}
	var values []string
	for _, a := range e.Attributes() {
		if a.Type.OID == at.OID || a.Type.IsDescendantOf(reg, at.OID) {
			values = append(values, a.NormValues()...)
		}
	}
	if f.Type == filter.Present {
		return len(values) > 0
	}

	cmp := schema.Comparator(strings.Compare)
	if mr, ok := reg.EqualityRule(at); ok && mr.Compare != nil {
		cmp = mr.Compare
	}
	for _, v := range values {
		switch f.Type {
		case filter.Equality, filter.Approximate, filter.Extensible:
			if cmp(v, f.Value) == 0 {
				return true
			}
		case filter.GreaterOrEqual:
			if cmp(v, f.Value) >= 0 {
				return true
			}
		case filter.LessOrEqual:
			if cmp(v, f.Value) <= 0 {
				return true
			}
		case filter.Substring:
			if filter.MatchSubstring(v, f.Sub) {
				return true
			}
		}
	}
	return false
}
