package ldap

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCarriesCodeAndMatchedDN(t *testing.T) {
	err := NewError(ResultNoSuchObject, "ou=system", "ou=blah,ou=system does not exist")
	if Code(err) != ResultNoSuchObject {
		t.Errorf("Code = %v", Code(err))
	}
	if MatchedDN(err) != "ou=system" {
		t.Errorf("MatchedDN = %q", MatchedDN(err))
	}
	if !IsCode(err, ResultNoSuchObject) {
		t.Error("IsCode should match")
	}
}

func TestCodeUnwrapsWrappedErrors(t *testing.T) {
	inner := Errorf(ResultUnwillingToPerform, "nope")
	wrapped := fmt.Errorf("context: %w", inner)
	if Code(wrapped) != ResultUnwillingToPerform {
		t.Errorf("Code should unwrap, got %v", Code(wrapped))
	}
}

func TestCodeDefaults(t *testing.T) {
	if Code(nil) != ResultSuccess {
		t.Error("nil error is success")
	}
	if Code(errors.New("plain")) != ResultOther {
		t.Error("foreign errors map to other")
	}
}

func TestResultCodeStrings(t *testing.T) {
	tests := []struct {
		code ResultCode
		want string
	}{
		{ResultSuccess, "success"},
		{ResultNoSuchObject, "noSuchObject"},
		{ResultEntryAlreadyExists, "entryAlreadyExists"},
		{ResultNotAllowedOnNonLeaf, "notAllowedOnNonLeaf"},
		{ResultInsufficientAccessRights, "insufficientAccessRights"},
		{ResultCode(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ResultCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestPagedResultsRoundTrip(t *testing.T) {
	in := &PagedResults{Size: 50, Cookie: []byte("cookie")}
	ctrl := in.ToControl()
	if ctrl.OID != ControlPagedResults {
		t.Errorf("OID = %s", ctrl.OID)
	}
	out, err := DecodePagedResults(ctrl.Value)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Size != 50 || string(out.Cookie) != "cookie" {
		t.Errorf("round trip = %+v", out)
	}
}

func TestDecodePagedResultsEmptyValue(t *testing.T) {
	out, err := DecodePagedResults(nil)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Size != 0 || len(out.Cookie) != 0 {
		t.Errorf("empty value should decode to the zero request: %+v", out)
	}
}

func TestDecodePagedResultsGarbage(t *testing.T) {
	if _, err := DecodePagedResults([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage should fail to decode")
	}
}

func TestFindControl(t *testing.T) {
	controls := []Control{
		{OID: ControlManageDsaIT, Criticality: true},
		{OID: ControlPagedResults},
	}
	if FindControl(controls, ControlManageDsaIT) == nil {
		t.Error("control should be found")
	}
	if FindControl(controls, ControlPersistentSearch) != nil {
		t.Error("missing control should be nil")
	}
}

func TestSubentriesVisibility(t *testing.T) {
	if SubentriesVisibility(nil) {
		t.Error("no control means no subentry visibility")
	}
	if !SubentriesVisibility(&Control{OID: ControlSubentries}) {
		t.Error("an empty value is treated as TRUE")
	}
}

func TestModificationString(t *testing.T) {
	tests := []struct {
		typ  ModificationType
		want string
	}{
		{ModAdd, "add"},
		{ModDelete, "delete"},
		{ModReplace, "replace"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("ModificationType.String() = %q, want %q", got, tt.want)
		}
	}
}
