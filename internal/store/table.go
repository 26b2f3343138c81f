package store

import (
	"errors"
	"sync"

	"github.com/google/btree"
)

// Cursor protocol errors.
var (
	// ErrInvalidCursorPosition is returned by Get when the cursor is not
	// positioned on an element.
	ErrInvalidCursorPosition = errors.New("cursor is not positioned on an element")
	// ErrCursorClosed is returned by operations on a closed cursor.
	ErrCursorClosed = errors.New("cursor is closed")
)

// Tuple is a key/value pair stored in a Table.
type Tuple[K, V any] struct {
	Key   K
	Value V
}

// item wraps a tuple with a sentinel marker used only for seeking: a
// negative sentinel sorts before every value of its key, a positive one
// after. Sentinels are never stored in the tree.
type item[K, V any] struct {
	t        Tuple[K, V]
	sentinel int8
}

// Compare totally orders two values; negative, zero, positive as in
// strings.Compare.
type Compare[T any] func(a, b T) int

// Table is an ordered map with duplicate values: tuples are ordered
// key-major, value-minor, and iteration over duplicate keys is stable
// by value order. A Table is safe for concurrent use; cursors operate
// on a snapshot taken under the table lock.
type Table[K, V any] struct {
	mu     sync.Mutex
	tree   *btree.BTreeG[item[K, V]]
	keyCmp Compare[K]
	valCmp Compare[V]
	count  int
}

// NewTable creates an empty table ordered by the given comparators.
func NewTable[K, V any](keyCmp Compare[K], valCmp Compare[V]) *Table[K, V] {
	less := func(a, b item[K, V]) bool {
		if c := keyCmp(a.t.Key, b.t.Key); c != 0 {
			return c < 0
		}
		if a.sentinel != b.sentinel {
			return a.sentinel < b.sentinel
		}
		if a.sentinel != 0 {
			return false
		}
		return valCmp(a.t.Value, b.t.Value) < 0
	}
	return &Table[K, V]{
		tree:   btree.NewG[item[K, V]](16, less),
		keyCmp: keyCmp,
		valCmp: valCmp,
	}
}

// Put inserts a tuple, reporting whether it was absent before.
func (t *Table[K, V]) Put(key K, value V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, existed := t.tree.ReplaceOrInsert(item[K, V]{t: Tuple[K, V]{Key: key, Value: value}})
	if !existed {
		t.count++
	}
	return !existed
}

// Remove deletes every tuple with the given key and returns how many
// were removed.
func (t *Table[K, V]) Remove(key K) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var victims []item[K, V]
	t.tree.AscendGreaterOrEqual(item[K, V]{t: Tuple[K, V]{Key: key}, sentinel: -1}, func(it item[K, V]) bool {
		if t.keyCmp(it.t.Key, key) != 0 {
			return false
		}
		victims = append(victims, it)
		return true
	})
	for _, v := range victims {
		t.tree.Delete(v)
	}
	t.count -= len(victims)
	return len(victims)
}

// RemoveValue deletes one specific tuple, reporting whether it existed.
func (t *Table[K, V]) RemoveValue(key K, value V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, existed := t.tree.Delete(item[K, V]{t: Tuple[K, V]{Key: key, Value: value}})
	if existed {
		t.count--
	}
	return existed
}

// Get returns the first value stored under the key.
func (t *Table[K, V]) Get(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out V
	found := false
	t.tree.AscendGreaterOrEqual(item[K, V]{t: Tuple[K, V]{Key: key}, sentinel: -1}, func(it item[K, V]) bool {
		if t.keyCmp(it.t.Key, key) == 0 {
			out = it.t.Value
			found = true
		}
		return false
	})
	return out, found
}

// Has reports whether any tuple with the key exists.
func (t *Table[K, V]) Has(key K) bool {
	_, ok := t.Get(key)
	return ok
}

// HasValue reports whether the exact tuple exists.
func (t *Table[K, V]) HasValue(key K, value V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tree.Get(item[K, V]{t: Tuple[K, V]{Key: key, Value: value}})
	return ok
}

// Count returns the total number of tuples.
func (t *Table[K, V]) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// KeyCount returns the number of tuples stored under the key.
func (t *Table[K, V]) KeyCount(key K) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	t.tree.AscendGreaterOrEqual(item[K, V]{t: Tuple[K, V]{Key: key}, sentinel: -1}, func(it item[K, V]) bool {
		if t.keyCmp(it.t.Key, key) != 0 {
			return false
		}
		n++
		return true
	})
	return n
}

// Cursor opens a bidirectional cursor over a snapshot of the table,
// positioned before the first tuple.
func (t *Table[K, V]) Cursor() *TableCursor[K, V] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &TableCursor[K, V]{
		tree:   t.tree.Clone(),
		keyCmp: t.keyCmp,
		valCmp: t.valCmp,
		rel:    relBeforeAll,
	}
}
