package search

import (
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/store"
)

// equalityCursor walks the forward index region of one exact key.
type equalityCursor struct {
	cur     *store.TableCursor[string, string]
	cmp     store.Compare[string]
	attrOID string
	value   string
	cand    *Candidate
}

func newEqualityCursor(ix *store.Index, cmp store.Compare[string], value string) *equalityCursor {
	c := &equalityCursor{
		cur:     ix.Cursor(),
		cmp:     cmp,
		attrOID: ix.AttrOID,
		value:   value,
	}
	_ = c.cur.Before(store.Tuple[string, string]{Key: value})
	return c
}

func (ec *equalityCursor) Next() (bool, error) {
	ok, err := ec.cur.Next()
	if err != nil || !ok {
		return false, err
	}
	t, err := ec.cur.Get()
	if err != nil {
		return false, err
	}
	if ec.cmp(t.Key, ec.value) != 0 {
		return false, nil
	}
	ec.cand = &Candidate{ID: t.Value, FromAttr: ec.attrOID, Value: t.Key}
	return true, nil
}

func (ec *equalityCursor) Candidate() *Candidate { return ec.cand }
func (ec *equalityCursor) Close() error          { return ec.cur.Close() }

// rangeCursor walks a forward index from a bound in one direction: from
// the assertion value forward for greater-or-equal, backward for
// less-or-equal.
type rangeCursor struct {
	cur       *store.TableCursor[string, string]
	attrOID   string
	ascending bool
	cand      *Candidate
}

func newRangeCursor(ix *store.Index, value string, greaterOrEqual bool) *rangeCursor {
	c := &rangeCursor{
		cur:       ix.Cursor(),
		attrOID:   ix.AttrOID,
		ascending: greaterOrEqual,
	}
	if greaterOrEqual {
		_ = c.cur.Before(store.Tuple[string, string]{Key: value})
	} else {
		_ = c.cur.After(store.Tuple[string, string]{Key: value})
	}
	return c
}

func (rc *rangeCursor) Next() (bool, error) {
	var (
		ok  bool
		err error
	)
	if rc.ascending {
		ok, err = rc.cur.Next()
	} else {
		ok, err = rc.cur.Previous()
	}
	if err != nil || !ok {
		return false, err
	}
	t, err := rc.cur.Get()
	if err != nil {
		return false, err
	}
	rc.cand = &Candidate{ID: t.Value, FromAttr: rc.attrOID, Value: t.Key}
	return true, nil
}

func (rc *rangeCursor) Candidate() *Candidate { return rc.cand }
func (rc *rangeCursor) Close() error          { return rc.cur.Close() }

// substringCursor positions at the assertion's initial literal and
// walks while the key still carries that prefix, so an indexed
// substring scan is bounded by the prefix region. Without an initial
// literal the whole index is walked.
type substringCursor struct {
	cur     *store.TableCursor[string, string]
	attrOID string
	sub     *filter.SubAssert
	cand    *Candidate
}

func newSubstringCursor(ix *store.Index, sub *filter.SubAssert) *substringCursor {
	c := &substringCursor{
		cur:     ix.Cursor(),
		attrOID: ix.AttrOID,
		sub:     sub,
	}
	if sub.Initial != "" {
		_ = c.cur.Before(store.Tuple[string, string]{Key: sub.Initial})
	}
	return c
}

func (sc *substringCursor) Next() (bool, error) {
	for {
		ok, err := sc.cur.Next()
		if err != nil || !ok {
			return false, err
		}
		t, err := sc.cur.Get()
		if err != nil {
			return false, err
		}
		// Early exit: once the key leaves the initial-literal region no
		// later key can match.
		if !filter.MatchPrefix(t.Key, sc.sub) {
			return false, nil
		}
		if !filter.MatchSubstring(t.Key, sc.sub) {
			continue
		}
		sc.cand = &Candidate{ID: t.Value, FromAttr: sc.attrOID, Value: t.Key}
		return true, nil
	}
}

func (sc *substringCursor) Candidate() *Candidate { return sc.cand }
func (sc *substringCursor) Close() error          { return sc.cur.Close() }

// presenceCursor iterates the presence index region of one attribute.
type presenceCursor struct {
	cur     *store.TableCursor[string, string]
	attrOID string
	cand    *Candidate
}

func newPresenceCursor(part partition.Partition, attrOID string) *presenceCursor {
	c := &presenceCursor{
		cur:     part.PresenceCursor(),
		attrOID: attrOID,
	}
	_ = c.cur.Before(store.Tuple[string, string]{Key: attrOID})
	return c
}

func (pc *presenceCursor) Next() (bool, error) {
	ok, err := pc.cur.Next()
	if err != nil || !ok {
		return false, err
	}
	t, err := pc.cur.Get()
	if err != nil {
		return false, err
	}
	if t.Key != pc.attrOID {
		return false, nil
	}
	pc.cand = &Candidate{ID: t.Value, FromAttr: pc.attrOID}
	return true, nil
}

func (pc *presenceCursor) Candidate() *Candidate { return pc.cand }
func (pc *presenceCursor) Close() error          { return pc.cur.Close() }
