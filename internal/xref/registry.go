package xref

import (
	"maps"
	"slices"
)

// Registry is the frozen uid -> records mapping. It has no mutation API and
// is safe for concurrent readers.
type Registry struct {
	records map[string][]*XrefRecord
	uids    []string
	count   int
}

func newRegistry(live map[string][]*XrefRecord) *Registry {
	r := &Registry{records: live, uids: slices.Sorted(maps.Keys(live))}
	for _, group := range live {
		r.count += len(group)
	}
	return r
}

// Lookup returns the ordered records of uid.
func (r *Registry) Lookup(uid string) []*XrefRecord {
	if r == nil {
		return nil
	}
	return slices.Clone(r.records[uid])
}

// Select returns the record of uid to use for moniker. With a moniker the
// first record applying to it wins; without one, or when no record applies,
// the first record in registry order is returned.
func (r *Registry) Select(uid, moniker string) (*XrefRecord, bool) {
	if r == nil {
		return nil, false
	}
	group := r.records[uid]
	if len(group) == 0 {
		return nil, false
	}
	if moniker != "" {
		for _, rec := range group {
			if rec.HasMoniker(moniker) {
				return rec, true
			}
		}
	}
	return group[0], true
}

// Has reports whether uid is registered.
func (r *Registry) Has(uid string) bool {
	if r == nil {
		return false
	}
	_, ok := r.records[uid]
	return ok
}

// UIDs returns every registered uid in ascending order.
func (r *Registry) UIDs() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.uids)
}

// Len returns the number of uids.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.uids)
}

// RecordCount returns the number of live records over all uids.
func (r *Registry) RecordCount() int {
	if r == nil {
		return 0
	}
	return r.count
}
