package pipeline

import (
	"time"

	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/search"
)

// EntryCursor streams search results to the caller, which pulls at its
// own pace and may Close at any time. After Next returns false, Err
// reports how the stream ended: nil for exhaustion, a typed error for
// limits or failures.
type EntryCursor interface {
	Next() bool
	Entry() *entry.Entry
	Err() error
	Close() error
}

// emptyEntryCursor yields nothing. Searches whose filter normalized to
// nil return it.
type emptyEntryCursor struct{}

func (emptyEntryCursor) Next() bool          { return false }
func (emptyEntryCursor) Entry() *entry.Entry { return nil }
func (emptyEntryCursor) Err() error          { return nil }
func (emptyEntryCursor) Close() error        { return nil }

// sliceEntryCursor yields a fixed list of entries.
type sliceEntryCursor struct {
	entries []*entry.Entry
	pos     int
	cur     *entry.Entry
}

func newSliceCursor(entries ...*entry.Entry) EntryCursor {
	return &sliceEntryCursor{entries: entries}
}

func (sc *sliceEntryCursor) Next() bool {
	if sc.pos >= len(sc.entries) {
		return false
	}
	sc.cur = sc.entries[sc.pos]
	sc.pos++
	return true
}

func (sc *sliceEntryCursor) Entry() *entry.Entry { return sc.cur }
func (sc *sliceEntryCursor) Err() error          { return nil }
func (sc *sliceEntryCursor) Close() error        { return nil }

// candidateEntryCursor resolves planner candidates to full entries.
type candidateEntryCursor struct {
	inner search.Cursor
	part  partition.Partition
	cur   *entry.Entry
	err   error
}

func newCandidateEntryCursor(inner search.Cursor, part partition.Partition) EntryCursor {
	return &candidateEntryCursor{inner: inner, part: part}
}

func (cc *candidateEntryCursor) Next() bool {
	if cc.err != nil {
		return false
	}
	ok, err := cc.inner.Next()
	if err != nil {
		cc.err = err
		return false
	}
	if !ok {
		return false
	}
	e, err := cc.inner.Candidate().Entry(cc.part)
	if err != nil {
		cc.err = err
		return false
	}
	cc.cur = e
	return true
}

func (cc *candidateEntryCursor) Entry() *entry.Entry { return cc.cur }
func (cc *candidateEntryCursor) Err() error          { return cc.err }
func (cc *candidateEntryCursor) Close() error        { return cc.inner.Close() }

// acceptCursor drops entries rejected by an acceptance predicate. The
// predicate must be idempotent and side-effect-free.
type acceptCursor struct {
	inner  EntryCursor
	accept func(*entry.Entry) (bool, error)
	cur    *entry.Entry
	err    error
}

func withAcceptance(inner EntryCursor, accept func(*entry.Entry) (bool, error)) EntryCursor {
	return &acceptCursor{inner: inner, accept: accept}
}

func (ac *acceptCursor) Next() bool {
	if ac.err != nil {
		return false
	}
	for ac.inner.Next() {
		e := ac.inner.Entry()
		ok, err := ac.accept(e)
		if err != nil {
			ac.err = err
			return false
		}
		if ok {
			ac.cur = e
			return true
		}
	}
	ac.err = ac.inner.Err()
	return false
}

func (ac *acceptCursor) Entry() *entry.Entry { return ac.cur }
func (ac *acceptCursor) Err() error          { return ac.err }
func (ac *acceptCursor) Close() error        { return ac.inner.Close() }

// mapCursor rewrites entries on their way out (attribute projection,
// collective merging, denormalization).
type mapCursor struct {
	inner EntryCursor
	fn    func(*entry.Entry) (*entry.Entry, error)
	cur   *entry.Entry
	err   error
}

func withTransform(inner EntryCursor, fn func(*entry.Entry) (*entry.Entry, error)) EntryCursor {
	return &mapCursor{inner: inner, fn: fn}
}

func (mc *mapCursor) Next() bool {
	if mc.err != nil {
		return false
	}
	if !mc.inner.Next() {
		mc.err = mc.inner.Err()
		return false
	}
	e, err := mc.fn(mc.inner.Entry())
	if err != nil {
		mc.err = err
		return false
	}
	mc.cur = e
	return true
}

func (mc *mapCursor) Entry() *entry.Entry { return mc.cur }
func (mc *mapCursor) Err() error          { return mc.err }
func (mc *mapCursor) Close() error        { return mc.inner.Close() }

// limitCursor enforces size and time limits and the abandon flag. On a
// limit the stream ends with the matching typed error after the entries
// already delivered; on abandon it ends silently.
type limitCursor struct {
	inner     EntryCursor
	sizeLimit int
	deadline  time.Time
	abandoned func() bool

	count int
	err   error
	done  bool
}

func withLimits(inner EntryCursor, sizeLimit, timeLimitSeconds int, abandoned func() bool) EntryCursor {
	lc := &limitCursor{inner: inner, sizeLimit: sizeLimit, abandoned: abandoned}
	if timeLimitSeconds > 0 {
		// Converted to a millisecond deadline for the underlying waits.
		lc.deadline = time.Now().Add(time.Duration(timeLimitSeconds) * 1000 * time.Millisecond)
	}
	return lc
}

func (lc *limitCursor) Next() bool {
	if lc.done || lc.err != nil {
		return false
	}
	if lc.abandoned != nil && lc.abandoned() {
		lc.done = true
		_ = lc.inner.Close()
		return false
	}
	if !lc.deadline.IsZero() && time.Now().After(lc.deadline) {
		lc.err = ldap.Errorf(ldap.ResultTimeLimitExceeded, "time limit exceeded")
		return false
	}
	if lc.sizeLimit > 0 && lc.count >= lc.sizeLimit {
		lc.err = ldap.Errorf(ldap.ResultSizeLimitExceeded, "size limit exceeded")
		return false
	}
	if !lc.inner.Next() {
		lc.done = true
		lc.err = lc.inner.Err()
		return false
	}
	lc.count++
	return true
}

func (lc *limitCursor) Entry() *entry.Entry { return lc.inner.Entry() }
func (lc *limitCursor) Err() error          { return lc.err }
func (lc *limitCursor) Close() error        { return lc.inner.Close() }
