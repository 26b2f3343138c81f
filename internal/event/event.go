// Package event provides the one-way change feed of the directory
// core: a pub/sub broker that publishes entry changes to subscribers
// with per-subscriber scope filtering and backpressure handling.
package event

import (
	"time"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
)

// OperationType represents the type of change operation.
type OperationType uint8

const (
	// OpAdd indicates a new entry was added.
	OpAdd OperationType = iota + 1
	// OpModify indicates an existing entry was modified.
	OpModify
	// OpDelete indicates an entry was removed.
	OpDelete
	// OpModifyDN indicates an entry's DN was changed.
	OpModifyDN
)

// String returns the string representation of the operation type.
func (op OperationType) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	case OpModifyDN:
		return "modifyDN"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a single committed change to an entry.
type ChangeEvent struct {
	// Token is a monotonically increasing sequence number.
	Token uint64
	// Operation is the type of change.
	Operation OperationType
	// Dn is the distinguished name of the affected entry.
	Dn dn.Dn
	// Entry holds the entry state after the change (nil for deletes).
	Entry *entry.Entry
	// OldDn holds the previous DN (modifyDN only).
	OldDn dn.Dn
	// Timestamp is when the event was published.
	Timestamp time.Time
}

// WatchFilter selects the events a subscriber receives.
type WatchFilter struct {
	// Base restricts events to entries at or below this DN. The empty
	// DN matches everything.
	Base dn.Dn
	// Operations is a bit mask of interesting operations; zero means
	// all.
	Operations uint8
}

// Mask converts an operation to its filter bit.
func Mask(ops ...OperationType) uint8 {
	var m uint8
	for _, op := range ops {
		m |= 1 << (op - 1)
	}
	return m
}

// Matches reports whether the filter selects the event.
func (f WatchFilter) Matches(ev *ChangeEvent) bool {
	if f.Operations != 0 && f.Operations&(1<<(ev.Operation-1)) == 0 {
		return false
	}
	if f.Base.IsEmpty() {
		return true
	}
	return ev.Dn.Equal(f.Base) || ev.Dn.IsDescendantOf(f.Base)
}
