package search

import (
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/store"
)

// Scope names the region of the tree a search covers: the base entry,
// its immediate children, or its whole subtree.
type Scope struct {
	Base   dn.Dn
	BaseID string
	Mode   ldap.SearchScope
}

// scopeEvaluator accepts candidates whose entry lies inside the scope.
type scopeEvaluator struct {
	part  partition.Partition
	scope Scope
}

// NewScopeEvaluator builds the acceptance predicate for a scope.
func NewScopeEvaluator(part partition.Partition, scope Scope) Evaluator {
	return &scopeEvaluator{part: part, scope: scope}
}

func (ev *scopeEvaluator) Evaluate(c *Candidate) (bool, error) {
	if ev.scope.Mode == ldap.ScopeBaseObject {
		return c.ID == ev.scope.BaseID, nil
	}
	e, err := c.Entry(ev.part)
	if err != nil {
		return false, err
	}
	switch ev.scope.Mode {
	case ldap.ScopeSingleLevel:
		return e.Dn.IsChildOf(ev.scope.Base), nil
	case ldap.ScopeWholeSubtree:
		return e.Dn.Equal(ev.scope.Base) || e.Dn.IsDescendantOf(ev.scope.Base), nil
	}
	return false, nil
}

// ScopeCursor opens the cursor that enumerates exactly the identifiers
// inside the scope, in index order. A subtree search whose base is the
// partition suffix degenerates to a full-partition scan.
func ScopeCursor(part partition.Partition, scope Scope) Cursor {
	switch scope.Mode {
	case ldap.ScopeBaseObject:
		return &sliceCursor{ids: []string{scope.BaseID}}
	case ldap.ScopeSingleLevel:
		return newOneLevelCursor(part, scope.BaseID)
	default:
		if scope.Base.Equal(part.Suffix()) {
			return newFullScanCursor(part)
		}
		return &subtreeCursor{part: part, stack: []string{scope.BaseID}}
	}
}

// sliceCursor yields a fixed list of identifiers.
type sliceCursor struct {
	ids []string
	pos int
	cur *Candidate
}

func (sc *sliceCursor) Next() (bool, error) {
	if sc.pos >= len(sc.ids) {
		return false, nil
	}
	sc.cur = &Candidate{ID: sc.ids[sc.pos]}
	sc.pos++
	return true, nil
}

func (sc *sliceCursor) Candidate() *Candidate { return sc.cur }
func (sc *sliceCursor) Close() error          { return nil }

// oneLevelCursor seeks the rdn index to the parent identifier and
// iterates its direct children.
type oneLevelCursor struct {
	cur    *store.TableCursor[string, string]
	prefix string
	cand   *Candidate
}

func newOneLevelCursor(part partition.Partition, parentID string) *oneLevelCursor {
	c := &oneLevelCursor{
		cur:    part.RdnCursor(),
		prefix: partition.RdnPrefix(parentID),
	}
	_ = c.cur.Before(store.Tuple[string, string]{Key: c.prefix})
	return c
}

func (oc *oneLevelCursor) Next() (bool, error) {
	ok, err := oc.cur.Next()
	if err != nil || !ok {
		return false, err
	}
	t, err := oc.cur.Get()
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(t.Key, oc.prefix) {
		return false, nil
	}
	oc.cand = &Candidate{ID: t.Value}
	return true, nil
}

func (oc *oneLevelCursor) Candidate() *Candidate { return oc.cand }
func (oc *oneLevelCursor) Close() error          { return oc.cur.Close() }

// subtreeCursor walks the descendant region of the base in depth-first
// order, emitting the base itself first.
type subtreeCursor struct {
	part  partition.Partition
	stack []string
	cand  *Candidate
}

func (sc *subtreeCursor) Next() (bool, error) {
	if len(sc.stack) == 0 {
		return false, nil
	}
	id := sc.stack[len(sc.stack)-1]
	sc.stack = sc.stack[:len(sc.stack)-1]

	children, err := childIDs(sc.part, id)
	if err != nil {
		return false, err
	}
	// Reverse so the first child is popped next.
	for i := len(children) - 1; i >= 0; i-- {
		sc.stack = append(sc.stack, children[i])
	}

	sc.cand = &Candidate{ID: id}
	return true, nil
}

func (sc *subtreeCursor) Candidate() *Candidate { return sc.cand }
func (sc *subtreeCursor) Close() error          { return nil }

func childIDs(part partition.Partition, parentID string) ([]string, error) {
	cur := part.RdnCursor()
	defer cur.Close()
	prefix := partition.RdnPrefix(parentID)
	if err := cur.Before(store.Tuple[string, string]{Key: prefix}); err != nil {
		return nil, err
	}
	var ids []string
	for {
		ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return ids, nil
		}
		t, err := cur.Get()
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(t.Key, prefix) {
			return ids, nil
		}
		ids = append(ids, t.Value)
	}
}

// fullScanCursor enumerates every identifier in the partition.
type fullScanCursor struct {
	cur  *store.TableCursor[string, string]
	cand *Candidate
}

func newFullScanCursor(part partition.Partition) *fullScanCursor {
	return &fullScanCursor{cur: part.IDCursor()}
}

func (fc *fullScanCursor) Next() (bool, error) {
	ok, err := fc.cur.Next()
	if err != nil || !ok {
		return false, err
	}
	t, err := fc.cur.Get()
	if err != nil {
		return false, err
	}
	fc.cand = &Candidate{ID: t.Key}
	return true, nil
}

func (fc *fullScanCursor) Candidate() *Candidate { return fc.cand }
func (fc *fullScanCursor) Close() error          { return fc.cur.Close() }
