package policy

// Entry is one exported Q-table row, used for persistence.
type Entry struct {
	StateKey string
	Buy      float64
	Sell     float64
	Hold     float64
}

// Snapshot exports the Q-table in insertion order.
func (e *Engine) Snapshot() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := make([]Entry, 0, len(e.table))
	for _, key := range e.order {
		v, ok := e.table[key]
		if !ok {
			continue
		}
		entries = append(entries, Entry{StateKey: key, Buy: v[Buy], Sell: v[Sell], Hold: v[Hold]})
	}
	return entries
}

// Restore replaces the Q-table with previously exported entries, preserving
// their order for eviction purposes. Entries beyond the table cap are
// dropped from the front, matching what eviction would have done.
func (e *Engine) Restore(entries []Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(entries) > e.params.TableCap {
		entries = entries[len(entries)-e.params.TableCap:]
	}

	e.table = make(map[string]*actionValues, len(entries))
	e.order = make([]string, 0, len(entries))
	for _, entry := range entries {
		e.table[entry.StateKey] = &actionValues{Buy: entry.Buy, Sell: entry.Sell, Hold: entry.Hold}
		e.order = append(e.order, entry.StateKey)
	}
}
