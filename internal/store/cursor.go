package store

import "github.com/google/btree"

// relation encodes the cursor's virtual position relative to the
// snapshot contents.
type relation int8

const (
	relBeforeAll  relation = iota // before the first tuple
	relAfterAll                   // after the last tuple
	relOn                         // positioned on pivot
	relBeforeKey                  // between: next is the first tuple with key >= pivot key
	relAfterKey                   // between: next is the first tuple with key > pivot key
	relBeforePair                 // between: next is the first tuple >= pivot
	relAfterPair                  // between: next is the first tuple > pivot
	relClosed                     // closed; absorbing
)

// TableCursor iterates a Table snapshot key-major, value-minor in both
// directions. It is not safe for concurrent use.
type TableCursor[K, V any] struct {
	tree   *btree.BTreeG[item[K, V]]
	keyCmp Compare[K]
	valCmp Compare[V]

	rel   relation
	pivot Tuple[K, V]
}

// BeforeFirst positions the cursor before the first tuple.
func (c *TableCursor[K, V]) BeforeFirst() error {
	if c.rel == relClosed {
		return ErrCursorClosed
	}
	c.rel = relBeforeAll
	return nil
}

// AfterLast positions the cursor after the last tuple.
func (c *TableCursor[K, V]) AfterLast() error {
	if c.rel == relClosed {
		return ErrCursorClosed
	}
	c.rel = relAfterAll
	return nil
}

// Before positions the cursor just before the first tuple whose key is
// greater than or equal to the given tuple's key.
func (c *TableCursor[K, V]) Before(t Tuple[K, V]) error {
	if c.rel == relClosed {
		return ErrCursorClosed
	}
	c.rel = relBeforeKey
	c.pivot = t
	return nil
}

// After positions the cursor just after the last tuple whose key is
// less than or equal to the given tuple's key.
func (c *TableCursor[K, V]) After(t Tuple[K, V]) error {
	if c.rel == relClosed {
		return ErrCursorClosed
	}
	c.rel = relAfterKey
	c.pivot = t
	return nil
}

// BeforeValue positions the cursor just before the given key/value pair.
func (c *TableCursor[K, V]) BeforeValue(key K, value V) error {
	if c.rel == relClosed {
		return ErrCursorClosed
	}
	c.rel = relBeforePair
	c.pivot = Tuple[K, V]{Key: key, Value: value}
	return nil
}

// AfterValue positions the cursor just after the given key/value pair.
func (c *TableCursor[K, V]) AfterValue(key K, value V) error {
	if c.rel == relClosed {
		return ErrCursorClosed
	}
	c.rel = relAfterPair
	c.pivot = Tuple[K, V]{Key: key, Value: value}
	return nil
}

// Next advances to the following tuple, reporting whether one exists.
// After the end is reached the cursor rests after the last tuple.
func (c *TableCursor[K, V]) Next() (bool, error) {
	if c.rel == relClosed {
		return false, ErrCursorClosed
	}
	var (
		found bool
		hit   item[K, V]
	)
	take := func(it item[K, V]) bool {
		hit = it
		found = true
		return false
	}

	switch c.rel {
	case relAfterAll:
		return false, nil
	case relBeforeAll:
		c.tree.Ascend(take)
	case relOn, relAfterPair:
		c.ascendFrom(c.pivot, false, take)
	case relBeforePair:
		c.ascendFrom(c.pivot, true, take)
	case relBeforeKey:
		c.tree.AscendGreaterOrEqual(item[K, V]{t: c.pivot, sentinel: -1}, take)
	case relAfterKey:
		c.tree.AscendGreaterOrEqual(item[K, V]{t: c.pivot, sentinel: 1}, take)
	}

	if !found {
		c.rel = relAfterAll
		return false, nil
	}
	c.rel = relOn
	c.pivot = hit.t
	return true, nil
}

// Previous moves to the preceding tuple, reporting whether one exists.
// After the beginning is reached the cursor rests before the first
// tuple.
func (c *TableCursor[K, V]) Previous() (bool, error) {
	if c.rel == relClosed {
		return false, ErrCursorClosed
	}
	var (
		found bool
		hit   item[K, V]
	)
	take := func(it item[K, V]) bool {
		hit = it
		found = true
		return false
	}

	switch c.rel {
	case relBeforeAll:
		return false, nil
	case relAfterAll:
		c.tree.Descend(take)
	case relOn, relBeforePair:
		c.descendFrom(c.pivot, false, take)
	case relAfterPair:
		c.descendFrom(c.pivot, true, take)
	case relBeforeKey:
		c.tree.DescendLessOrEqual(item[K, V]{t: c.pivot, sentinel: -1}, take)
	case relAfterKey:
		c.tree.DescendLessOrEqual(item[K, V]{t: c.pivot, sentinel: 1}, take)
	}

	if !found {
		c.rel = relBeforeAll
		return false, nil
	}
	c.rel = relOn
	c.pivot = hit.t
	return true, nil
}

// Get returns the tuple the cursor is positioned on.
func (c *TableCursor[K, V]) Get() (Tuple[K, V], error) {
	switch c.rel {
	case relClosed:
		return Tuple[K, V]{}, ErrCursorClosed
	case relOn:
		return c.pivot, nil
	default:
		return Tuple[K, V]{}, ErrInvalidCursorPosition
	}
}

// Close releases the cursor. Closing twice is a no-op.
func (c *TableCursor[K, V]) Close() error {
	c.rel = relClosed
	c.tree = nil
	return nil
}

// Closed reports whether Close has been called.
func (c *TableCursor[K, V]) Closed() bool {
	return c.rel == relClosed
}

// ascendFrom iterates tuples >= pivot (inclusive) or > pivot
// (exclusive), in ascending order.
func (c *TableCursor[K, V]) ascendFrom(pivot Tuple[K, V], inclusive bool, fn func(item[K, V]) bool) {
	c.tree.AscendGreaterOrEqual(item[K, V]{t: pivot}, func(it item[K, V]) bool {
		if !inclusive && c.equalPair(it.t, pivot) {
			return true
		}
		return fn(it)
	})
}

// descendFrom iterates tuples <= pivot (inclusive) or < pivot
// (exclusive), in descending order.
func (c *TableCursor[K, V]) descendFrom(pivot Tuple[K, V], inclusive bool, fn func(item[K, V]) bool) {
	c.tree.DescendLessOrEqual(item[K, V]{t: pivot}, func(it item[K, V]) bool {
		if !inclusive && c.equalPair(it.t, pivot) {
			return true
		}
		return fn(it)
	})
}

func (c *TableCursor[K, V]) equalPair(a, b Tuple[K, V]) bool {
	return c.keyCmp(a.Key, b.Key) == 0 && c.valCmp(a.Value, b.Value) == 0
}
