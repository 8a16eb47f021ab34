package xrefmap

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"fortio.org/safecast"
	"github.com/ohler55/ojg/oj"
)

// entry is a lazily decoded reference.
type entry struct {
	once   sync.Once
	path   string
	span   span
	record *Record
	err    error
}

func (e *entry) load() (*Record, error) {
	e.once.Do(func() {
		if e.record != nil {
			return
		}
		e.record, e.err = readSpan(e.path, e.span)
	})
	return e.record, e.err
}

func readSpan(path string, sp span) (*Record, error) {
	n, err := safecast.Conv[int](sp.End - sp.Start)
	if err != nil {
		return nil, fmt.Errorf("span of %s: %w", path, err)
	}
	f, err := os.Open(path) // #nosec G304 -- configured xref map
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, sp.Start); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s at %d: %w", path, sp.Start, err)
	}
	v, err := oj.Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("decode %s at %d: %w", path, sp.Start, err)
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode %s at %d: reference is not an object", path, sp.Start)
	}
	return recordFromFields(fields)
}

// Map is the uid lookup over every loaded source. It is safe for concurrent use.
type Map struct {
	entries map[string]*entry
	order   []string
	sources []string
}

func newMap() *Map {
	return &Map{entries: make(map[string]*entry)}
}

// add registers e unless uid is already present; the first source wins.
func (m *Map) add(uid string, e *entry) bool {
	if _, ok := m.entries[uid]; ok {
		return false
	}
	m.entries[uid] = e
	m.order = append(m.order, uid)
	return true
}

// Lookup returns the record for uid. The first lookup of a JSON-indexed
// record reads it from disk.
func (m *Map) Lookup(uid string) (*Record, bool, error) {
	if m == nil {
		return nil, false, nil
	}
	e, ok := m.entries[uid]
	if !ok {
		return nil, false, nil
	}
	rec, err := e.load()
	if err != nil {
		return nil, true, err
	}
	return rec, true, nil
}

// Has reports whether uid is present without decoding it.
func (m *Map) Has(uid string) bool {
	if m == nil {
		return false
	}
	_, ok := m.entries[uid]
	return ok
}

// Len returns the number of distinct uids.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// UIDs returns every uid in registration order.
func (m *Map) UIDs() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.order)
}

// Sources returns the local paths of the loaded maps in priority order.
func (m *Map) Sources() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.sources)
}
