package xref

import (
	"sync"

	"git.home.luguber.info/inful/docxref/internal/util/sets"
)

// DependencyRecorder receives "from depends on to" edges discovered during
// resolution. Implementations must be safe for concurrent use.
type DependencyRecorder interface {
	RecordDependency(from, to string)
}

type nopDependencies struct{}

func (nopDependencies) RecordDependency(string, string) {}

// MemoryDependencies keeps edges in memory.
type MemoryDependencies struct {
	mu    sync.Mutex
	edges map[string]sets.Set[string]
}

// NewMemoryDependencies returns an empty edge set.
func NewMemoryDependencies() *MemoryDependencies {
	return &MemoryDependencies{edges: make(map[string]sets.Set[string])}
}

func (m *MemoryDependencies) RecordDependency(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.edges[from]
	if !ok {
		s = sets.New[string]()
		m.edges[from] = s
	}
	s.Add(to)
}

// Targets returns the sorted files that from depends on.
func (m *MemoryDependencies) Targets(from string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sets.SortedOrdered(m.edges[from])
}

// Edges returns a copy of every edge.
func (m *MemoryDependencies) Edges() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.edges))
	for from, to := range m.edges {
		out[from] = sets.SortedOrdered(to)
	}
	return out
}
