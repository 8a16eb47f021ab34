package xref

import (
	"maps"
	"slices"
	"sync"

	"git.home.luguber.info/inful/docxref/internal/util/sets"
)

// PropertyRef names property Property of the record with uid UID.
type PropertyRef struct {
	UID      string
	Property string
}

// LazyValue is either a literal or a reference to another record's property
// that is evaluated on first use.
type LazyValue struct {
	literal any
	ref     *PropertyRef
}

// Literal wraps a plain value.
func Literal(v any) LazyValue {
	return LazyValue{literal: v}
}

// Deferred refers to property of uid.
func Deferred(uid, property string) LazyValue {
	return LazyValue{ref: &PropertyRef{UID: uid, Property: property}}
}

// IsDeferred reports whether the value must be resolved through another record.
func (v LazyValue) IsDeferred() bool {
	return v.ref != nil
}

// Ref returns the referenced property of a deferred value.
func (v LazyValue) Ref() (PropertyRef, bool) {
	if v.ref == nil {
		return PropertyRef{}, false
	}
	return *v.ref, true
}

// Value returns the literal, or nil for deferred values.
func (v LazyValue) Value() any {
	return v.literal
}

// XrefRecord is one published cross-reference target.
type XrefRecord struct {
	UID  string
	Href string
	// Monikers restricts the record to some versions; empty means unconditional.
	Monikers      sets.Set[string]
	Properties    map[string]LazyValue
	DeclaringFile string

	memo sync.Map // property name -> evaluated value
}

// NewRecord returns an unconditional record without properties.
func NewRecord(uid, href, declaringFile string) *XrefRecord {
	return &XrefRecord{
		UID:           uid,
		Href:          href,
		Monikers:      sets.New[string](),
		Properties:    make(map[string]LazyValue),
		DeclaringFile: declaringFile,
	}
}

// WithMonikers adds monikers to r and returns r.
func (r *XrefRecord) WithMonikers(ms ...string) *XrefRecord {
	if r.Monikers == nil {
		r.Monikers = sets.New[string]()
	}
	for _, m := range ms {
		r.Monikers.Add(m)
	}
	return r
}

// Set assigns a property and returns r.
func (r *XrefRecord) Set(name string, v LazyValue) *XrefRecord {
	if r.Properties == nil {
		r.Properties = make(map[string]LazyValue)
	}
	r.Properties[name] = v
	return r
}

// IsConditional reports whether the record applies to specific monikers only.
func (r *XrefRecord) IsConditional() bool {
	return r.Monikers.Len() > 0
}

// HasMoniker reports whether the record applies to moniker m.
func (r *XrefRecord) HasMoniker(m string) bool {
	return r.Monikers.Has(m)
}

// MonikerList returns the monikers in ascending lexical order.
func (r *XrefRecord) MonikerList() []string {
	return sets.SortedOrdered(r.Monikers)
}

// PropertyNames returns the property names in ascending order.
func (r *XrefRecord) PropertyNames() []string {
	return slices.Sorted(maps.Keys(r.Properties))
}
