package store

import "strings"

// CompareIDs orders entry identifiers.
func CompareIDs(a, b string) int {
	return strings.Compare(a, b)
}

// Index is a forward/reverse table pair over one attribute: the forward
// table maps normalized values to entry identifiers, the reverse table
// maps identifiers back to the values they are indexed under. The
// reverse table makes tear-down on delete and modify cheap.
type Index struct {
	// AttrOID is the OID of the indexed attribute type.
	AttrOID string

	forward *Table[string, string] // normalized value -> entry id
	reverse *Table[string, string] // entry id -> normalized value
}

// NewIndex creates an index whose forward keys are ordered by the given
// comparator, usually the attribute's ordering or equality comparator.
func NewIndex(attrOID string, valueCmp Compare[string]) *Index {
	return &Index{
		AttrOID: attrOID,
		forward: NewTable[string, string](valueCmp, CompareIDs),
		reverse: NewTable[string, string](CompareIDs, valueCmp),
	}
}

// Add indexes an entry id under a normalized value.
func (ix *Index) Add(value, id string) {
	ix.forward.Put(value, id)
	ix.reverse.Put(id, value)
}

// Drop removes one value/id pairing.
func (ix *Index) Drop(value, id string) {
	ix.forward.RemoveValue(value, id)
	ix.reverse.RemoveValue(id, value)
}

// DropID removes every pairing for the given id, using the reverse
// table to find the values.
func (ix *Index) DropID(id string) {
	cur := ix.reverse.Cursor()
	defer cur.Close()
	_ = cur.Before(Tuple[string, string]{Key: id})
	var values []string
	for {
		ok, err := cur.Next()
		if err != nil || !ok {
			break
		}
		t, err := cur.Get()
		if err != nil || CompareIDs(t.Key, id) != 0 {
			break
		}
		values = append(values, t.Value)
	}
	for _, v := range values {
		ix.Drop(v, id)
	}
}

// Has reports whether any id is indexed under the value.
func (ix *Index) Has(value string) bool {
	return ix.forward.Has(value)
}

// HasID reports whether the exact value/id pairing exists.
func (ix *Index) HasID(value, id string) bool {
	return ix.forward.HasValue(value, id)
}

// Count returns the total number of pairings in the index.
func (ix *Index) Count() int {
	return ix.forward.Count()
}

// ValueCount returns the number of ids indexed under the value: the
// scan-count estimate for an equality assertion on this index.
func (ix *Index) ValueCount(value string) int {
	return ix.forward.KeyCount(value)
}

// Cursor opens a cursor over the forward table.
func (ix *Index) Cursor() *TableCursor[string, string] {
	return ix.forward.Cursor()
}

// ReverseCursor opens a cursor over the reverse table.
func (ix *Index) ReverseCursor() *TableCursor[string, string] {
	return ix.reverse.Cursor()
}
