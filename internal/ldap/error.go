package ldap

import (
	"errors"
	"fmt"
)

// Error is the typed operation error propagated through the interceptor
// chain. It carries the result code, the resolved prefix of the failing DN
// (the matched DN of RFC 4511), and a short diagnostic.
type Error struct {
	Code      ResultCode
	MatchedDN string
	Message   string
}

// NewError creates an Error with the given code, matched DN, and diagnostic.
func NewError(code ResultCode, matchedDN, message string) *Error {
	return &Error{
		Code:      code,
		MatchedDN: matchedDN,
		Message:   message,
	}
}

// Errorf creates an Error with a formatted diagnostic and no matched DN.
func Errorf(code ResultCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.MatchedDN != "" {
		return fmt.Sprintf("%s (matched: %s): %s", e.Code, e.MatchedDN, e.Message)
	}
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Code extracts the result code from an error. Errors that are not *Error
// map to ResultOther; a nil error maps to ResultSuccess.
func Code(err error) ResultCode {
	if err == nil {
		return ResultSuccess
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ResultOther
}

// MatchedDN extracts the matched DN from an error, if any.
func MatchedDN(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.MatchedDN
	}
	return ""
}

// IsCode reports whether err carries the given result code.
func IsCode(err error, code ResultCode) bool {
	return Code(err) == code
}
