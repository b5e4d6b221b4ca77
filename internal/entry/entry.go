// Package entry holds launchable entries and the ordered map that tracks their usage.
package entry

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry represents a single launchable target
type Entry struct {
	ID        string // Executable path or .desktop file path, also the map key
	Exec      string // Command template, may contain field codes
	IsDesktop bool   // Whether this is from a .desktop file
	Terminal  bool   // Whether to run in terminal (desktop entries only)
	Count     uint64 // Number of launches

	// Discovery metadata, never persisted.
	Name       string            // Default name (English or fallback)
	Names      map[string]string // Localized names (locale -> name)
	Categories []string          // Application categories
}

// DisplayName returns the localized name for lang, falling back to Name and then ID.
func (e *Entry) DisplayName(lang string) string {
	if lang != "" {
		if name, ok := e.Names[lang]; ok {
			return name
		}
	}
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Map is an insertion-ordered set of entries keyed by ID.
// It has no internal locking; callers sharing a Map must serialize access.
type Map struct {
	om *orderedmap.OrderedMap[string, *Entry]
}

// NewMap creates a new empty map
func NewMap() *Map {
	return &Map{om: orderedmap.New[string, *Entry]()}
}

// Get retrieves an entry by ID
func (m *Map) Get(id string) (*Entry, bool) {
	return m.om.Get(id)
}

// Set stores e under e.ID. An existing ID keeps its position.
func (m *Map) Set(e *Entry) {
	m.om.Set(e.ID, e)
}

// Len returns the number of entries
func (m *Map) Len() int {
	return m.om.Len()
}

// Keys returns all IDs in insertion order
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Entries returns all entries in insertion order
func (m *Map) Entries() []*Entry {
	result := make([]*Entry, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// Ranked returns entries ordered by launch count, most used first.
// Ties keep insertion order. The map itself is not reordered.
func (m *Map) Ranked() []*Entry {
	result := m.Entries()
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}
