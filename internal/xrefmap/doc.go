// Package xrefmap loads externally supplied xref maps.
//
// An xref map is a document of the shape {"references": [{"uid": ..., "href": ...}]}
// in JSON or YAML. YAML maps are decoded eagerly. JSON maps are scanned once to
// index every reference by its byte span; a reference is decoded from disk the
// first time its uid is looked up, so large maps cost little when a build only
// touches a few of their uids.
package xrefmap
