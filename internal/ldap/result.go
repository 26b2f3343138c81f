package ldap

// ResultCode represents an LDAP result code as defined in RFC 4511 Section 4.1.9.
type ResultCode int

// LDAP result codes per RFC 4511 Section 4.1.9.
const (
	// ResultSuccess indicates the operation completed successfully.
	ResultSuccess ResultCode = 0

	// ResultOperationsError indicates an internal error occurred during
	// processing that is not covered by another result code.
	ResultOperationsError ResultCode = 1

	// ResultProtocolError indicates the server received data that is not
	// well-formed or violates the protocol.
	ResultProtocolError ResultCode = 2

	// ResultTimeLimitExceeded indicates the time limit specified by the
	// client was exceeded before the operation could be completed.
	ResultTimeLimitExceeded ResultCode = 3

	// ResultSizeLimitExceeded indicates the size limit specified by the
	// client was exceeded before the operation could be completed.
	ResultSizeLimitExceeded ResultCode = 4

	// ResultCompareFalse indicates the compare operation completed and
	// the assertion was false.
	ResultCompareFalse ResultCode = 5

	// ResultCompareTrue indicates the compare operation completed and
	// the assertion was true.
	ResultCompareTrue ResultCode = 6

	// ResultConfidentialityRequired indicates the operation requires
	// confidentiality protection.
	ResultConfidentialityRequired ResultCode = 13

	// ResultNoSuchAttribute indicates the named attribute does not exist
	// in the entry.
	ResultNoSuchAttribute ResultCode = 16

	// ResultUndefinedAttributeType indicates the named attribute type is
	// not defined by the schema.
	ResultUndefinedAttributeType ResultCode = 17

	// ResultConstraintViolation indicates an attribute value violates a
	// constraint imposed by the schema or the server.
	ResultConstraintViolation ResultCode = 19

	// ResultAttributeOrValueExists indicates an attempt to add an
	// attribute value that is already present.
	ResultAttributeOrValueExists ResultCode = 20

	// ResultInvalidAttributeSyntax indicates an attribute value does not
	// conform to the attribute's syntax.
	ResultInvalidAttributeSyntax ResultCode = 21

	// ResultNoSuchObject indicates the named entry does not exist. The
	// matched DN carries the closest existing ancestor.
	ResultNoSuchObject ResultCode = 32

	// ResultAliasProblem indicates an alias was encountered where one is
	// not permitted.
	ResultAliasProblem ResultCode = 33

	// ResultInvalidDNSyntax indicates a DN argument does not conform to
	// the DN grammar.
	ResultInvalidDNSyntax ResultCode = 34

	// ResultAliasDereferencingProblem indicates a problem occurred while
	// dereferencing an alias.
	ResultAliasDereferencingProblem ResultCode = 36

	// ResultInvalidCredentials indicates the supplied credentials are
	// invalid.
	ResultInvalidCredentials ResultCode = 49

	// ResultInsufficientAccessRights indicates the caller has
	// insufficient access to perform the operation.
	ResultInsufficientAccessRights ResultCode = 50

	// ResultBusy indicates the server is too busy to service the
	// operation.
	ResultBusy ResultCode = 51

	// ResultUnwillingToPerform indicates the server is unwilling to
	// perform the operation.
	ResultUnwillingToPerform ResultCode = 53

	// ResultNamingViolation indicates the operation would violate the
	// naming rules of the directory.
	ResultNamingViolation ResultCode = 64

	// ResultObjectClassViolation indicates the entry would violate the
	// object class rules of the schema.
	ResultObjectClassViolation ResultCode = 65

	// ResultNotAllowedOnNonLeaf indicates the operation is only allowed
	// on leaf entries.
	ResultNotAllowedOnNonLeaf ResultCode = 66

	// ResultNotAllowedOnRDN indicates an attempt to remove an attribute
	// value that forms the entry's RDN.
	ResultNotAllowedOnRDN ResultCode = 67

	// ResultEntryAlreadyExists indicates the target entry already exists.
	ResultEntryAlreadyExists ResultCode = 68

	// ResultObjectClassModsProhibited indicates an attempt to modify the
	// structural object class of an entry.
	ResultObjectClassModsProhibited ResultCode = 69

	// ResultOther indicates an internal failure not covered by any other
	// result code.
	ResultOther ResultCode = 80

	// ResultAbandoned is a local marker for operations cancelled by an
	// abandon request; abandoned operations emit no response.
	ResultAbandoned ResultCode = 118
)

// String returns the protocol name of the result code.
func (rc ResultCode) String() string {
	switch rc {
	case ResultSuccess:
		return "success"
	case ResultOperationsError:
		return "operationsError"
	case ResultProtocolError:
		return "protocolError"
	case ResultTimeLimitExceeded:
		return "timeLimitExceeded"
	case ResultSizeLimitExceeded:
		return "sizeLimitExceeded"
	case ResultCompareFalse:
		return "compareFalse"
	case ResultCompareTrue:
		return "compareTrue"
	case ResultConfidentialityRequired:
		return "confidentialityRequired"
	case ResultNoSuchAttribute:
		return "noSuchAttribute"
	case ResultUndefinedAttributeType:
		return "undefinedAttributeType"
	case ResultConstraintViolation:
		return "constraintViolation"
	case ResultAttributeOrValueExists:
		return "attributeOrValueExists"
	case ResultInvalidAttributeSyntax:
		return "invalidAttributeSyntax"
	case ResultNoSuchObject:
		return "noSuchObject"
	case ResultAliasProblem:
		return "aliasProblem"
	case ResultInvalidDNSyntax:
		return "invalidDNSyntax"
	case ResultAliasDereferencingProblem:
		return "aliasDereferencingProblem"
	case ResultInvalidCredentials:
		return "invalidCredentials"
	case ResultInsufficientAccessRights:
		return "insufficientAccessRights"
	case ResultBusy:
		return "busy"
	case ResultUnwillingToPerform:
		return "unwillingToPerform"
	case ResultNamingViolation:
		return "namingViolation"
	case ResultObjectClassViolation:
		return "objectClassViolation"
	case ResultNotAllowedOnNonLeaf:
		return "notAllowedOnNonLeaf"
	case ResultNotAllowedOnRDN:
		return "notAllowedOnRDN"
	case ResultEntryAlreadyExists:
		return "entryAlreadyExists"
	case ResultObjectClassModsProhibited:
		return "objectClassModsProhibited"
	case ResultOther:
		return "other"
	case ResultAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}
