// Package entry provides the schema-aware entry model: attributes keyed
// by attribute-type OID, each holding user values alongside their
// normalized projection, plus modification application and entry
// validation against the object class rules of the schema.
package entry
