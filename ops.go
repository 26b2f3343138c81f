package sedir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/entry"
	"github.com/KilimcininKorOglu/sedir/internal/event"
	"github.com/KilimcininKorOglu/sedir/internal/filter"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/ldif"
	"github.com/KilimcininKorOglu/sedir/internal/pipeline"
)

// Session identifies a caller. Obtain one from Bind, AdminSession, or
// Anonymous.
type Session = pipeline.Session

// AdminSession returns a pre-authenticated administrator session.
func (d *Directory) AdminSession() Session {
	return Session{Principal: d.adminDn}
}

// Anonymous returns the unauthenticated session.
func Anonymous() Session {
	return Session{}
}

// Attr is one attribute of a result entry.
type Attr struct {
	Name   string
	Values []string
}

// Entry is a result entry.
type Entry struct {
	Dn    string
	Attrs []Attr
}

// Value returns the first value of the named attribute, or "".
func (e Entry) Value(name string) string {
	for _, a := range e.Attrs {
		if strings.EqualFold(a.Name, name) {
			if len(a.Values) > 0 {
				return a.Values[0]
			}
			return ""
		}
	}
	return ""
}

// Values returns every value of the named attribute.
func (e Entry) Values(name string) []string {
	for _, a := range e.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Values
		}
	}
	return nil
}

// Mod is one element of a modify operation; Op is "add", "delete", or
// "replace".
type Mod struct {
	Op     string
	Attr   string
	Values []string
}

func (m Mod) toModification() (ldap.Modification, error) {
	var t ldap.ModificationType
	switch strings.ToLower(m.Op) {
	case "add":
		t = ldap.ModAdd
	case "delete":
		t = ldap.ModDelete
	case "replace":
		t = ldap.ModReplace
	default:
		return ldap.Modification{}, fmt.Errorf("unknown modification op %q", m.Op)
	}
	return ldap.NewModification(t, m.Attr, m.Values...), nil
}

// Bind authenticates a principal by DN and password. An empty DN
// yields the anonymous session.
func (d *Directory) Bind(dnStr, password string) (Session, error) {
	target, err := dn.Parse(dnStr)
	if err != nil {
		return Session{}, ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	ctx := &pipeline.BindContext{Dn: target, Password: password}
	if err := d.chain.Bind(ctx); err != nil {
		return Session{}, err
	}
	return ctx.Session, nil
}

// Add creates an entry.
func (d *Directory) Add(s Session, dnStr string, attrs map[string][]string) error {
	target, err := dn.Parse(dnStr)
	if err != nil {
		return ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	reg := d.schemas.Current()
	e := entry.New(target)
	// objectClass first so validation diagnostics stay readable.
	if values, ok := attrs["objectClass"]; ok {
		if err := e.Add(reg, "objectClass", values...); err != nil {
			return err
		}
	}
	for name, values := range attrs {
		if name == "objectClass" {
			continue
		}
		if err := e.Add(reg, name, values...); err != nil {
			return err
		}
	}
	ctx := &pipeline.AddContext{Entry: e}
	ctx.Session = s
	return d.chain.Add(ctx)
}

// Delete removes a leaf entry.
func (d *Directory) Delete(s Session, dnStr string) error {
	target, err := dn.Parse(dnStr)
	if err != nil {
		return ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	ctx := &pipeline.DeleteContext{Dn: target}
	ctx.Session = s
	return d.chain.Delete(ctx)
}

// Modify applies a modification list to an entry.
func (d *Directory) Modify(s Session, dnStr string, mods []Mod) error {
	target, err := dn.Parse(dnStr)
	if err != nil {
		return ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	converted := make([]ldap.Modification, len(mods))
	for i, m := range mods {
		if converted[i], err = m.toModification(); err != nil {
			return ldap.Errorf(ldap.ResultProtocolError, "%v", err)
		}
	}
	ctx := &pipeline.ModifyContext{Dn: target, Mods: converted}
	ctx.Session = s
	return d.chain.Modify(ctx)
}

// Rename gives an entry a new RDN under its current parent.
func (d *Directory) Rename(s Session, dnStr, newRdn string, deleteOldRdn bool) error {
	return d.modifyDn(s, dnStr, newRdn, "", false, deleteOldRdn)
}

// Move reparents an entry, keeping its RDN.
func (d *Directory) Move(s Session, dnStr, newParent string) error {
	return d.modifyDn(s, dnStr, "", newParent, true, false)
}

// MoveAndRename reparents an entry and gives it a new RDN.
func (d *Directory) MoveAndRename(s Session, dnStr, newParent, newRdn string, deleteOldRdn bool) error {
	return d.modifyDn(s, dnStr, newRdn, newParent, true, deleteOldRdn)
}

func (d *Directory) modifyDn(s Session, dnStr, newRdn, newParent string, hasParent, deleteOldRdn bool) error {
	target, err := dn.Parse(dnStr)
	if err != nil {
		return ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	ctx := &pipeline.RenameContext{Dn: target, DeleteOldRdn: deleteOldRdn, HasNewParent: hasParent}
	ctx.Session = s
	if newRdn != "" {
		rdn, err := dn.ParseRdn(newRdn)
		if err != nil {
			return ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
		}
		ctx.NewRdn = rdn
	}
	if hasParent {
		parent, err := dn.Parse(newParent)
		if err != nil {
			return ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
		}
		ctx.NewParent = parent
	}
	return d.chain.Rename(ctx)
}

// Lookup fetches a single entry, optionally restricted to the named
// attributes.
func (d *Directory) Lookup(s Session, dnStr string, attrs ...string) (Entry, error) {
	target, err := dn.Parse(dnStr)
	if err != nil {
		return Entry{}, ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	ctx := &pipeline.LookupContext{Dn: target, Attrs: attrs}
	ctx.Session = s
	e, err := d.chain.Lookup(ctx)
	if err != nil {
		return Entry{}, err
	}
	return toPublic(e), nil
}

// Compare tests whether an entry holds an attribute value under the
// attribute's equality matching rule.
func (d *Directory) Compare(s Session, dnStr, attr, value string) (bool, error) {
	target, err := dn.Parse(dnStr)
	if err != nil {
		return false, ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	ctx := &pipeline.CompareContext{Dn: target, Attribute: attr, Value: value}
	ctx.Session = s
	return d.chain.Compare(ctx)
}

// Control is a request or response control: an OID, a criticality
// flag, and an opaque BER-encoded value.
type Control = ldap.Control

// Control OIDs recognized by the directory.
const (
	// ControlSubentries flips search visibility to subentries (RFC 3672).
	ControlSubentries = ldap.ControlSubentries
	// ControlManageDsaIT is the manage-DSA-IT control (RFC 3296). It is
	// advertised but not acted on; the directory generates no referrals.
	ControlManageDsaIT = ldap.ControlManageDsaIT
	// ControlPersistentSearch is the persistent search control. It is
	// advertised but not acted on; use Watch for the change feed.
	ControlPersistentSearch = ldap.ControlPersistentSearch
	// ControlPasswordPolicy carries password policy state.
	ControlPasswordPolicy = ldap.ControlPasswordPolicy
	// ControlPagedResults pages search results (RFC 2696).
	ControlPagedResults = ldap.ControlPagedResults
)

// PagedControl builds a paged-results request control for the given
// page size and continuation cookie (nil for the first page).
func PagedControl(size int, cookie []byte) Control {
	pr := &ldap.PagedResults{Size: size, Cookie: cookie}
	return pr.ToControl()
}

// PagedCookie extracts the continuation cookie from a response control
// list. An empty cookie means the result set is exhausted.
func PagedCookie(controls []Control) ([]byte, bool) {
	ctrl := ldap.FindControl(controls, ldap.ControlPagedResults)
	if ctrl == nil {
		return nil, false
	}
	pr, err := ldap.DecodePagedResults(ctrl.Value)
	if err != nil {
		return nil, false
	}
	return pr.Cookie, true
}

// SearchRequest describes a search. Scope is "base", "one", or "sub".
type SearchRequest struct {
	Base      string
	Scope     string
	Filter    string
	Attrs     []string
	SizeLimit int
	TimeLimit int
	TypesOnly bool

	// Controls carries request controls. The paged-results control is
	// honored by the search loop; the others are routed to the
	// pipeline by OID.
	Controls []Control
}

// SearchResults streams search results. Next advances the stream; Err
// reports how it ended. Abandon cancels the search mid-stream, after
// which no further entries are produced.
type SearchResults struct {
	ctx *pipeline.SearchContext
	cur pipeline.EntryCursor
	ent Entry

	paged      bool
	pageSize   int
	pageOffset int
	skipped    int
	emitted    int
	pageDone   bool
}

// Next advances to the next result entry. A paged search stops at the
// page boundary and attaches the continuation cookie as a response
// control.
func (r *SearchResults) Next() bool {
	if r.pageDone {
		return false
	}
	if r.paged && r.pageSize > 0 && r.emitted >= r.pageSize {
		r.finishPage(false)
		return false
	}
	for r.cur.Next() {
		if r.skipped < r.pageOffset {
			r.skipped++
			continue
		}
		r.ent = toPublic(r.cur.Entry())
		r.emitted++
		return true
	}
	if r.paged && r.cur.Err() == nil {
		r.finishPage(true)
	}
	return false
}

// finishPage attaches the paged-results response control: an empty
// cookie marks the end of the result set, otherwise the cookie carries
// the offset of the next page.
func (r *SearchResults) finishPage(exhausted bool) {
	r.pageDone = true
	pr := &ldap.PagedResults{}
	if !exhausted {
		pr.Cookie = []byte(strconv.Itoa(r.pageOffset + r.emitted))
	}
	r.ctx.AddResponseControl(pr.ToControl())
}

// Entry returns the current result entry.
func (r *SearchResults) Entry() Entry { return r.ent }

// Err reports the terminal status of the stream.
func (r *SearchResults) Err() error { return r.cur.Err() }

// Close releases the stream's resources.
func (r *SearchResults) Close() error { return r.cur.Close() }

// Abandon cancels the search.
func (r *SearchResults) Abandon() { r.ctx.Abandon() }

// ResponseControls returns the response controls gathered during the
// search, including the paged-results cookie.
func (r *SearchResults) ResponseControls() []Control { return r.ctx.ResponseControls() }

// Search opens a result stream for the request.
func (d *Directory) Search(s Session, req SearchRequest) (*SearchResults, error) {
	base, err := dn.Parse(req.Base)
	if err != nil {
		return nil, ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
	}
	scope, err := parseScope(req.Scope)
	if err != nil {
		return nil, err
	}
	filterStr := req.Filter
	if filterStr == "" {
		filterStr = "(objectClass=*)"
	}
	f, err := filter.Parse(filterStr)
	if err != nil {
		return nil, ldap.Errorf(ldap.ResultProtocolError, "%v", err)
	}

	sizeLimit := req.SizeLimit
	if sizeLimit == 0 {
		sizeLimit = d.cfg.Limits.SizeLimit
	}
	timeLimit := req.TimeLimit
	if timeLimit == 0 {
		timeLimit = d.cfg.Limits.TimeLimit
	}

	ctx := &pipeline.SearchContext{
		Base:      base,
		Scope:     scope,
		Filter:    f,
		Attrs:     req.Attrs,
		SizeLimit: sizeLimit,
		TimeLimit: timeLimit,
		TypesOnly: req.TypesOnly,
	}
	ctx.Session = s
	ctx.RequestControls = req.Controls
	cur, err := d.chain.Search(ctx)
	if err != nil {
		return nil, err
	}

	results := &SearchResults{ctx: ctx, cur: cur}
	if ctl := ldap.FindControl(req.Controls, ldap.ControlPagedResults); ctl != nil {
		pr, err := ldap.DecodePagedResults(ctl.Value)
		if err != nil {
			_ = cur.Close()
			return nil, ldap.Errorf(ldap.ResultProtocolError, "paged results control: %v", err)
		}
		results.paged = true
		results.pageSize = pr.Size
		if len(pr.Cookie) > 0 {
			offset, err := strconv.Atoi(string(pr.Cookie))
			if err != nil || offset < 0 {
				_ = cur.Close()
				return nil, ldap.Errorf(ldap.ResultUnwillingToPerform, "unrecognized paged results cookie")
			}
			results.pageOffset = offset
		}
	}
	return results, nil
}

// SearchAll collects every result of a search.
func (d *Directory) SearchAll(s Session, req SearchRequest) ([]Entry, error) {
	res, err := d.Search(s, req)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	var out []Entry
	for res.Next() {
		out = append(out, res.Entry())
	}
	return out, res.Err()
}

func parseScope(s string) (ldap.SearchScope, error) {
	switch strings.ToLower(s) {
	case "", "sub", "subtree", "wholesubtree":
		return ldap.ScopeWholeSubtree, nil
	case "base", "baseobject":
		return ldap.ScopeBaseObject, nil
	case "one", "onelevel", "singlelevel":
		return ldap.ScopeSingleLevel, nil
	}
	return 0, ldap.Errorf(ldap.ResultProtocolError, "unknown scope %q", s)
}

func toPublic(e *entry.Entry) Entry {
	out := Entry{Dn: e.Dn.User()}
	for _, a := range e.Attributes() {
		out.Attrs = append(out.Attrs, Attr{
			Name:   a.UserID,
			Values: append([]string(nil), a.Values()...),
		})
	}
	return out
}

// LoadLDIF adds every record from an LDIF stream, in order, and
// returns how many entries were created.
func (d *Directory) LoadLDIF(s Session, r io.Reader) (int, error) {
	records, err := ldif.ReadAll(r)
	if err != nil {
		return 0, err
	}
	for i, rec := range records {
		attrs := make(map[string][]string)
		for _, a := range rec.Attrs {
			attrs[a.Name] = append(attrs[a.Name], a.Value)
		}
		if err := d.Add(s, rec.Dn, attrs); err != nil {
			return i, fmt.Errorf("adding %s: %w", rec.Dn, err)
		}
	}
	return len(records), nil
}

// DumpLDIF writes the subtree under base to w, one record per entry,
// with attribute lines sorted for stable output.
func (d *Directory) DumpLDIF(s Session, w io.Writer, base string) error {
	res, err := d.Search(s, SearchRequest{Base: base, Scope: "sub"})
	if err != nil {
		return err
	}
	defer res.Close()
	writer := ldif.NewWriter(w)
	for res.Next() {
		e := res.Entry()
		rec := &ldif.Entry{Dn: e.Dn}
		for _, a := range e.Attrs {
			for _, v := range a.Values {
				rec.Add(a.Name, v)
			}
		}
		if err := writer.WriteEntrySorted(rec); err != nil {
			return err
		}
	}
	return res.Err()
}

// Change is one event of the change feed.
type Change struct {
	Token uint64
	Op    string
	Dn    string
	OldDn string
}

// Watch subscribes to the change feed for the subtree at base (empty
// for everything). The returned cancel function ends the subscription
// and closes the channel.
func (d *Directory) Watch(base string) (<-chan Change, func(), error) {
	var baseDn dn.Dn
	if base != "" {
		parsed, err := dn.Parse(base)
		if err != nil {
			return nil, nil, ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
		}
		if baseDn, err = parsed.Normalize(d.schemas.Current()); err != nil {
			return nil, nil, ldap.Errorf(ldap.ResultInvalidDNSyntax, "%v", err)
		}
	}
	sub := d.broker.Subscribe(event.WatchFilter{Base: baseDn})
	if sub == nil {
		return nil, nil, ldap.Errorf(ldap.ResultUnwillingToPerform, "change feed is closed")
	}
	out := make(chan Change, event.DefaultBufferSize)
	go func() {
		defer close(out)
		for ev := range sub.Channel() {
			out <- Change{
				Token: ev.Token,
				Op:    ev.Operation.String(),
				Dn:    ev.Dn.User(),
				OldDn: ev.OldDn.User(),
			}
		}
	}()
	cancel := func() { d.broker.Unsubscribe(sub.ID) }
	return out, cancel, nil
}

// Code extracts the LDAP result code carried by an error; nil maps to
// 0 (success).
func Code(err error) int {
	return int(ldap.Code(err))
}

// MatchedDN extracts the resolved-prefix DN carried by an error.
func MatchedDN(err error) string {
	return ldap.MatchedDN(err)
}

// Result codes surfaced to embedders.
const (
	CodeSuccess                  = int(ldap.ResultSuccess)
	CodeNoSuchObject             = int(ldap.ResultNoSuchObject)
	CodeEntryAlreadyExists       = int(ldap.ResultEntryAlreadyExists)
	CodeNotAllowedOnNonLeaf      = int(ldap.ResultNotAllowedOnNonLeaf)
	CodeInsufficientAccessRights = int(ldap.ResultInsufficientAccessRights)
	CodeInvalidCredentials       = int(ldap.ResultInvalidCredentials)
	CodeObjectClassViolation     = int(ldap.ResultObjectClassViolation)
	CodeAttributeOrValueExists   = int(ldap.ResultAttributeOrValueExists)
	CodeUnwillingToPerform       = int(ldap.ResultUnwillingToPerform)
	CodeSizeLimitExceeded        = int(ldap.ResultSizeLimitExceeded)
	CodeTimeLimitExceeded        = int(ldap.ResultTimeLimitExceeded)
	CodeInvalidDNSyntax          = int(ldap.ResultInvalidDNSyntax)
)
