package ldap

import (
	"errors"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// Control OIDs recognized by the core. Only the subentries control alters
// pipeline behavior and paged results are honored by the facade search;
// manage-DSA-IT, persistent search, and password policy are advertised in
// the root DSE but nothing in the core acts on them.
const (
	// ControlSubentries is the subentries visibility control (RFC 3672).
	// When present with a TRUE value, subentries become visible to search
	// and ordinary entries are suppressed.
	ControlSubentries = "1.3.6.1.4.1.4203.1.10.1"

	// ControlManageDsaIT suppresses referral generation so that referral
	// entries can be managed as ordinary objects (RFC 3296). The core
	// generates no referrals, so the control has no effect here.
	ControlManageDsaIT = "2.16.840.1.113730.3.4.2"

	// ControlPersistentSearch keeps a search open and streams changes
	// (draft-ietf-ldapext-psearch).
	ControlPersistentSearch = "2.16.840.1.113730.3.4.3"

	// ControlPasswordPolicy carries password policy warnings and errors
	// (draft-behera-ldap-password-policy).
	ControlPasswordPolicy = "1.3.6.1.4.1.42.2.27.8.5.1"

	// ControlPagedResults is the simple paged results control (RFC 2696).
	ControlPagedResults = "1.2.840.113556.1.4.319"
)

// Control represents a request or response control: an OID, a criticality
// flag, and an opaque BER-encoded value.
type Control struct {
	OID         string
	Criticality bool
	Value       []byte
}

// FindControl returns the first control with the given OID, or nil.
func FindControl(controls []Control, oid string) *Control {
	for i := range controls {
		if controls[i].OID == oid {
			return &controls[i]
		}
	}
	return nil
}

// Control decoding errors.
var (
	ErrMalformedControl = errors.New("malformed control value")
)

// PersistentSearch is the decoded value of a persistent search control.
type PersistentSearch struct {
	// ChangeTypes is a bit mask of the change types the client wants
	// (1=add, 2=delete, 4=modify, 8=modDN).
	ChangeTypes int
	// ChangesOnly suppresses the initial result set when true.
	ChangesOnly bool
	// ReturnECs requests entry change notification controls on results.
	ReturnECs bool
}

// DecodePersistentSearch decodes a persistent search control value.
func DecodePersistentSearch(value []byte) (*PersistentSearch, error) {
	pkt, err := ber.DecodePacketErr(value)
	if err != nil {
		return nil, err
	}
	if len(pkt.Children) != 3 {
		return nil, ErrMalformedControl
	}
	changeTypes, ok := pkt.Children[0].Value.(int64)
	if !ok {
		return nil, ErrMalformedControl
	}
	changesOnly, ok := pkt.Children[1].Value.(bool)
	if !ok {
		return nil, ErrMalformedControl
	}
	returnECs, ok := pkt.Children[2].Value.(bool)
	if !ok {
		return nil, ErrMalformedControl
	}
	return &PersistentSearch{
		ChangeTypes: int(changeTypes),
		ChangesOnly: changesOnly,
		ReturnECs:   returnECs,
	}, nil
}

// PagedResults is the decoded value of a paged results control. On a
// request Size is the page size requested by the client; on a response it
// is the server's estimate of the total result size.
type PagedResults struct {
	Size   int
	Cookie []byte
}

// DecodePagedResults decodes a paged results control value. An empty
// value yields a zero request (first page, default size).
func DecodePagedResults(value []byte) (*PagedResults, error) {
	if len(value) == 0 {
		return &PagedResults{}, nil
	}
	pkt, err := ber.DecodePacketErr(value)
	if err != nil {
		return nil, err
	}
	if len(pkt.Children) != 2 {
		return nil, ErrMalformedControl
	}
	size, ok := pkt.Children[0].Value.(int64)
	if !ok {
		return nil, ErrMalformedControl
	}
	cookie := pkt.Children[1].Data.Bytes()
	return &PagedResults{Size: int(size), Cookie: cookie}, nil
}

// Encode encodes the paged results value for inclusion in a response
// control.
func (p *PagedResults) Encode() []byte {
	seq := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "pagedResults")
	seq.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(p.Size), "size"))
	seq.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, string(p.Cookie), "cookie"))
	return seq.Bytes()
}

// ToControl packages the paged results value as a response control.
func (p *PagedResults) ToControl() Control {
	return Control{OID: ControlPagedResults, Value: p.Encode()}
}

// SubentriesVisibility decodes a subentries control value. A missing or
// empty value is treated as TRUE.
func SubentriesVisibility(ctrl *Control) bool {
	if ctrl == nil {
		return false
	}
	if len(ctrl.Value) == 0 {
		return true
	}
	pkt, err := ber.DecodePacketErr(ctrl.Value)
	if err != nil {
		return true
	}
	if v, ok := pkt.Value.(bool); ok {
		return v
	}
	return true
}
