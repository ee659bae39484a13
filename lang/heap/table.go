package heap

// Table is an open-addressed hash table keyed by interned strings, used
// both for the VM's globals and for each instance's fields. It is also
// reused, in a weaker form, as the Heap's string-interning set: see
// RemoveWhite.
//
// Deletions leave a tombstone (a nil key paired with a Bool(true) value)
// behind instead of shrinking the probe sequence, exactly like the
// reference implementation this table is ported from: a true empty slot
// stops a probe sequence, but a tombstone must not, or keys placed after a
// deleted one would become unreachable.
type Table struct {
	count   int // live entries + tombstones
	entries []entry
}

type entry struct {
	key   *StringObj
	value Value
}

const tableMaxLoad = 0.75

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// Count returns the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	n := 0
	for _, e := range t.entries {
		if e.key != nil {
			n++
		}
	}
	return n
}

// Get looks up key and reports whether it was found.
func (t *Table) Get(key *StringObj) (Value, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return nil, false
	}
	return e.value, true
}

// Set inserts or overwrites key's value, growing the backing array first
// if the load factor would exceed tableMaxLoad. It reports whether key was
// not already present.
func (t *Table) Set(key *StringObj, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow()
	}

	e := findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew && e.value == nil {
		// Not overwriting a tombstone: count a brand new live entry.
		t.count++
	}
	e.key = key
	e.value = value
	return isNew
}

// Delete removes key, leaving a tombstone in its slot so later probes past
// it still terminate correctly.
func (t *Table) Delete(key *StringObj) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = Bool(true) // tombstone marker
	return true
}

// AddAll copies every live entry of src into t.
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks up an interned string by content and precomputed hash,
// without first allocating a StringObj to compare against. This is what
// lets the heap intern strings: before allocating a new StringObj for a
// literal or concatenation result, it checks here first.
func (t *Table) FindString(chars string, hash uint32) *StringObj {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if e.key == nil {
			// Stop only on a true empty slot (no value), not a tombstone.
			if e.value == nil {
				return nil
			}
		} else if e.key.hash == hash && e.key.chars == chars {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// RemoveWhite implements the "weak" half of string interning: any
// interned string not marked by the current collection cycle is about to
// be swept, so its entry here must be dropped first or FindString would
// return a dangling interning result. Unlike Mark, this never blackens the
// key: that's precisely what makes this table's references to its keys
// weak rather than strong.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.mark {
			e.key = nil
			e.value = Bool(true)
		}
	}
}

// Mark marks every live key and value as a GC root. Used for tables that
// hold strong references (globals, instance fields) -- never for the
// intern table.
func (t *Table) Mark(h *Heap) {
	for _, e := range t.entries {
		if e.key != nil {
			h.MarkObject(e.key)
			h.MarkValue(e.value)
		}
	}
}

func findEntry(entries []entry, key *StringObj) *entry {
	mask := uint32(len(entries) - 1)
	idx := key.hash & mask
	var tombstone *entry
	for {
		e := &entries[idx]
		switch {
		case e.key == nil:
			if e.value == nil {
				// True empty slot: return the first tombstone we passed, if any,
				// so re-inserting a deleted key reuses its slot.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	capacity := 8
	if len(t.entries) > 0 {
		capacity = len(t.entries) * 2
	}
	dst := make([]entry, capacity)
	t.count = 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		d := findEntry(dst, e.key)
		d.key = e.key
		d.value = e.value
		t.count++
	}
	t.entries = dst
}
