package xref

import (
	"sync"

	"git.home.luguber.info/inful/docxref/internal/moniker"
)

// Collector gathers records from concurrent extraction tasks.
type Collector struct {
	mu      sync.Mutex
	records []*XrefRecord
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends records. Records without a uid are ignored.
func (c *Collector) Add(recs ...*XrefRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range recs {
		if r != nil && r.UID != "" {
			c.records = append(c.records, r)
		}
	}
}

// Len returns the number of collected records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Freeze groups the collected records by uid, resolves conflicts and returns
// the immutable registry together with one Conflict per dropped uid.
func (c *Collector) Freeze(cmp moniker.Comparer) (*Registry, []Conflict) {
	c.mu.Lock()
	groups := make(map[string][]*XrefRecord)
	for _, r := range c.records {
		groups[r.UID] = append(groups[r.UID], r)
	}
	c.mu.Unlock()

	live, conflicts := ResolveConflicts(groups, cmp)
	return newRegistry(live), conflicts
}
