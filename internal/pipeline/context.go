package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
)

// Session identifies the caller of an operation.
type Session struct {
	// Principal is the authenticated bind DN, normalized. The zero DN
	// is the anonymous session.
	Principal dn.Dn
}

// IsAnonymous reports whether the session is unauthenticated.
func (s Session) IsAnonymous() bool {
	return s.Principal.IsEmpty()
}

// Operation carries the state shared by every operation context: the
// caller session, request and response controls, the abandon flag, and
// a memoized snapshot of the target entry. An Operation lives for
// exactly one traversal of the chain.
type Operation struct {
	Session         Session
	RequestControls []ldap.Control

	mu               sync.Mutex
	responseControls []ldap.Control
	cached           *entry.Entry

	abandoned atomic.Bool
}

// HasControl reports whether the request carries a control with the
// given OID.
func (o *Operation) HasControl(oid string) bool {
	return ldap.FindControl(o.RequestControls, oid) != nil
}

// Control returns the request control with the given OID, or nil.
func (o *Operation) Control(oid string) *ldap.Control {
	return ldap.FindControl(o.RequestControls, oid)
}

// AddResponseControl appends a response control.
func (o *Operation) AddResponseControl(c ldap.Control) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responseControls = append(o.responseControls, c)
}

// ResponseControls returns the response controls gathered so far.
func (o *Operation) ResponseControls() []ldap.Control {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ldap.Control(nil), o.responseControls...)
}

// Abandon raises the abandon flag. Cursors poll it between records.
func (o *Operation) Abandon() {
	o.abandoned.Store(true)
}

// Abandoned reports whether the operation has been abandoned.
func (o *Operation) Abandoned() bool {
	return o.abandoned.Load()
}

// CacheEntry memoizes a snapshot of the target entry for later
// interceptors.
func (o *Operation) CacheEntry(e *entry.Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cached = e
}

// CachedEntry returns the memoized target snapshot, if any.
func (o *Operation) CachedEntry() *entry.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cached
}

// AddContext is the context of an add operation.
type AddContext struct {
	Operation
	// Entry is the entry to add. Its DN is normalized by the
	// normalization interceptor.
	Entry *entry.Entry
}

// DeleteContext is the context of a delete operation.
type DeleteContext struct {
	Operation
	Dn dn.Dn
}

// ModifyContext is the context of a modify operation.
type ModifyContext struct {
	Operation
	Dn   dn.Dn
	Mods []ldap.Modification

	// Prepared is the post-modification entry computed and validated
	// by the schema interceptor; the tail writes it.
	Prepared *entry.Entry
}

// RenameContext is the context of rename, move, and move-and-rename
// operations.
type RenameContext struct {
	Operation
	Dn dn.Dn

	// NewRdn is the replacement RDN; the zero Rdn keeps the current one
	// (a pure move).
	NewRdn dn.Rdn

	// HasNewParent marks a move; NewParent is the destination parent.
	HasNewParent bool
	NewParent    dn.Dn

	// DeleteOldRdn removes the old RDN attribute values when the RDN
	// changes.
	DeleteOldRdn bool

	// NewDn is the resulting DN, computed by the normalization
	// interceptor.
	NewDn dn.Dn

	// Prepared is the post-rename entry computed and validated by the
	// schema interceptor.
	Prepared *entry.Entry
}

// IsMove reports whether the operation changes the parent.
func (c *RenameContext) IsMove() bool {
	return c.HasNewParent
}

// LookupContext is the context of a single-entry lookup.
type LookupContext struct {
	Operation
	Dn dn.Dn

	// Attrs restricts the returned attributes. Nil means every user
	// attribute.
	Attrs []string
}

// SearchContext is the context of search and list operations. A list is
// a single-level search with a presence filter.
type SearchContext struct {
	Operation
	Base   dn.Dn
	Scope  ldap.SearchScope
	Deref  ldap.DerefAliases
	Filter *filter.Node

	// Attrs restricts the returned attributes. Nil means every user
	// attribute; "*" and "+" select all user and all operational
	// attributes respectively.
	Attrs []string

	// SizeLimit bounds the number of returned entries; zero is
	// unlimited.
	SizeLimit int

	// TimeLimit bounds the search duration in seconds; zero is
	// unlimited.
	TimeLimit int

	TypesOnly bool
}

// CompareContext is the context of a compare operation.
type CompareContext struct {
	Operation
	Dn        dn.Dn
	Attribute string
	Value     string
}

// BindContext is the context of a simple bind.
type BindContext struct {
	Operation
	Dn       dn.Dn
	Password string
}
