// Package xref builds the uid registry of a docxref build and resolves xref
// links against it.
//
// Records produced by extractors are gathered concurrently in a Collector and
// frozen into an immutable Registry. Freezing applies conflict resolution per
// uid: at most one unconditional record and pairwise disjoint moniker sets are
// allowed, otherwise the uid is dropped and reported. A Resolver answers
// queries from the Registry first and the external xref maps second.
package xref
