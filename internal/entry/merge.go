package entry

// Merge folds freshly discovered entries into the history map and returns it.
//
// History order is kept. A discovered entry that is already known refreshes the
// launch fields and metadata but keeps its count; unknown entries are appended.
// History entries that were not discovered this time stay in place.
func Merge(history *Map, discovered []*Entry) *Map {
	if history == nil {
		history = NewMap()
	}
	for _, d := range discovered {
		known, ok := history.Get(d.ID)
		if !ok {
			history.Set(d)
			continue
		}
		known.Exec = d.Exec
		known.IsDesktop = d.IsDesktop
		known.Terminal = d.Terminal
		known.Name = d.Name
		known.Names = d.Names
		known.Categories = d.Categories
	}
	return history
}

// ApplyCounts raises the count of every known entry to at least counts[ID].
// IDs missing from m are ignored. It returns the number of entries raised.
func ApplyCounts(m *Map, counts map[string]uint64) int {
	raised := 0
	for id, count := range counts {
		e, ok := m.Get(id)
		if !ok || e.Count >= count {
			continue
		}
		e.Count = count
		raised++
	}
	return raised
}
