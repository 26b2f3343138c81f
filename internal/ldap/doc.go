// Package ldap defines the protocol-level vocabulary shared by the
// directory core: result codes per RFC 4511, the typed operation error,
// search scopes, alias dereferencing modes, modification descriptors,
// and request/response controls.
//
// The wire codec itself lives outside the core; this package only carries
// the values the pipeline and its collaborators agree on.
package ldap
