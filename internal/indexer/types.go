package indexer

import (
	"sort"
	"sync"

	"github.com/0xADE/ade-launch/internal/entry"
)

// Index stores discovered entries with thread-safe access
type Index struct {
	mu      sync.RWMutex
	entries map[string]*entry.Entry
}

// NewIndex creates a new empty index
func NewIndex() *Index {
	return &Index{
		entries: make(map[string]*entry.Entry),
	}
}

// Add stores e under its ID. It reports false when the ID was already present,
// in which case the first entry is kept.
func (idx *Index) Add(e *entry.Entry) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.entries[e.ID]; ok {
		return false
	}
	idx.entries[e.ID] = e
	return true
}

// Get retrieves an entry by ID
func (idx *Index) Get(id string) (*entry.Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.entries[id]
	return e, ok
}

// GetAll returns all entries sorted by ID so merges are deterministic
func (idx *Index) GetAll() []*entry.Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]*entry.Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Count returns the number of entries in the index
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}
