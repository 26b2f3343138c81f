package search

import (
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
)

// Candidate is one element of a candidate stream: an entry identifier,
// optionally the index pairing that produced it (the cheap path), and a
// lazily resuscitated entry.
type Candidate struct {
	// ID is the entry identifier.
	ID string

	// FromAttr is the OID of the attribute whose index produced this
	// candidate, or "" when the candidate came from a scan or scope
	// cursor.
	FromAttr string

	// Value is the normalized index key the candidate was found under.
	Value string

	ent *entry.Entry
}

// Entry resuscitates the full entry, memoizing it on the candidate.
func (c *Candidate) Entry(p partition.Partition) (*entry.Entry, error) {
	if c.ent != nil {
		return c.ent, nil
	}
	e, ok := p.LookupByID(c.ID)
	if !ok {
		return nil, ldap.Errorf(ldap.ResultOther, "candidate %s vanished from the partition", c.ID)
	}
	c.ent = e
	return e, nil
}

// Cursor is a stream of candidates. Next advances and reports whether a
// candidate is available via Candidate. Cursors are single-threaded and
// must be closed on every exit path.
type Cursor interface {
	Next() (bool, error)
	Candidate() *Candidate
	Close() error
}

// emptyCursor yields nothing. It backs filters that normalize to nil.
type emptyCursor struct{}

// Empty returns a cursor that yields no candidates.
func Empty() Cursor { return emptyCursor{} }

func (emptyCursor) Next() (bool, error)   { return false, nil }
func (emptyCursor) Candidate() *Candidate { return nil }
func (emptyCursor) Close() error          { return nil }

// predicateCursor filters an inner cursor through acceptance
// evaluators.
type predicateCursor struct {
	inner Cursor
	preds []Evaluator
	cur   *Candidate
}

// WithPredicates wraps a cursor so that only candidates accepted by
// every evaluator are emitted.
func WithPredicates(inner Cursor, preds ...Evaluator) Cursor {
	if len(preds) == 0 {
		return inner
	}
	return &predicateCursor{inner: inner, preds: preds}
}

func (pc *predicateCursor) Next() (bool, error) {
	for {
		ok, err := pc.inner.Next()
		if err != nil || !ok {
			return false, err
		}
		c := pc.inner.Candidate()
		accepted := true
		for _, pred := range pc.preds {
			match, err := pred.Evaluate(c)
			if err != nil {
				return false, err
			}
			if !match {
				accepted = false
				break
			}
		}
		if accepted {
			pc.cur = c
			return true, nil
		}
	}
}

func (pc *predicateCursor) Candidate() *Candidate { return pc.cur }
func (pc *predicateCursor) Close() error          { return pc.inner.Close() }

// dedupCursor suppresses candidates whose identifier was already
// emitted. Range and substring walks need it because a multi-valued
// attribute indexes one entry under several keys.
type dedupCursor struct {
	inner Cursor
	seen  map[string]struct{}
	cur   *Candidate
}

// Dedup wraps a cursor so each entry identifier is emitted once.
func Dedup(inner Cursor) Cursor {
	return &dedupCursor{inner: inner, seen: make(map[string]struct{})}
}

func (dc *dedupCursor) Next() (bool, error) {
	for {
		ok, err := dc.inner.Next()
		if err != nil || !ok {
			return false, err
		}
		c := dc.inner.Candidate()
		if _, dup := dc.seen[c.ID]; dup {
			continue
		}
		dc.seen[c.ID] = struct{}{}
		dc.cur = c
		return true, nil
	}
}

func (dc *dedupCursor) Candidate() *Candidate { return dc.cur }
func (dc *dedupCursor) Close() error          { return dc.inner.Close() }

// unionCursor drains child cursors in order, de-duplicating by
// identifier. The planner hands children over in scan-count order.
type unionCursor struct {
	children []Cursor
	idx      int
	seen     map[string]struct{}
	cur      *Candidate
}

// Union composes child cursors into a de-duplicating union.
func Union(children ...Cursor) Cursor {
	return &unionCursor{children: children, seen: make(map[string]struct{})}
}

func (uc *unionCursor) Next() (bool, error) {
	for uc.idx < len(uc.children) {
		ok, err := uc.children[uc.idx].Next()
		if err != nil {
			return false, err
		}
		if !ok {
			uc.idx++
			continue
		}
		c := uc.children[uc.idx].Candidate()
		if _, dup := uc.seen[c.ID]; dup {
			continue
		}
		uc.seen[c.ID] = struct{}{}
		uc.cur = c
		return true, nil
	}
	return false, nil
}

func (uc *unionCursor) Candidate() *Candidate { return uc.cur }

func (uc *unionCursor) Close() error {
	var first error
	for _, c := range uc.children {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// abandonCursor polls an abandon flag between records; once the flag is
// raised the cursor closes itself and reports end of stream.
type abandonCursor struct {
	inner     Cursor
	abandoned func() bool
	done      bool
}

// WithAbandon wraps a cursor so it terminates as soon as the abandoned
// callback reports true.
func WithAbandon(inner Cursor, abandoned func() bool) Cursor {
	if abandoned == nil {
		return inner
	}
	return &abandonCursor{inner: inner, abandoned: abandoned}
}

func (ac *abandonCursor) Next() (bool, error) {
	if ac.done {
		return false, nil
	}
	if ac.abandoned() {
		ac.done = true
		_ = ac.inner.Close()
		return false, nil
	}
	ok, err := ac.inner.Next()
	if err != nil || !ok {
		ac.done = true
	}
	return ok, err
}

func (ac *abandonCursor) Candidate() *Candidate { return ac.inner.Candidate() }
func (ac *abandonCursor) Close() error          { return ac.inner.Close() }
