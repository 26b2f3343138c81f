// Package filter provides the search filter model of the directory
// core: the RFC 4515 string parser, the tree representation, and the
// normalizing rewriter that resolves attribute names against the schema
// and canonicalizes assertion values.
package filter
