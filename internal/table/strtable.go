package table

import "bytes"

// strEntry is one slot in a StrTable.
type strEntry struct {
	key      []byte // nil-vs-empty is not significant; occupied distinguishes
	hash     uint32
	value    any
	next     int // index of the next entry chained off this one, or empty
	occupied bool
}

// StrTable is a string-keyed open-addressing hash table (spec.md §3.2).
// Keys are copied on insert (length-prefixed conceptually; Go's []byte
// copy already makes them binary-safe and independent of the caller's
// buffer), satisfying the "key storage is independent of the caller's
// buffer" testable property in spec.md §8.
type StrTable struct {
	entries []strEntry
	count   int
	free    int // next candidate free slot, scanned downward
}

// NewStrTable creates an empty StrTable with the given initial capacity
// hint.
func NewStrTable(sizeHint int) *StrTable {
	size := log2Ceil(sizeHint)
	t := &StrTable{entries: make([]strEntry, size)}
	t.resetFree()
	return t
}

func (t *StrTable) resetFree() { t.free = len(t.entries) - 1 }

func (t *StrTable) mainPos(hash uint32) int { return int(hash) & (len(t.entries) - 1) }

// Lookup returns the value for key and true if present.
func (t *StrTable) Lookup(key []byte) (any, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	h := murmurHash2(key, 0)
	i := t.mainPos(h)
	for {
		e := &t.entries[i]
		if !e.occupied {
			return nil, false
		}
		if e.hash == h && bytes.Equal(e.key, key) {
			return e.value, true
		}
		if e.next == empty {
			return nil, false
		}
		i = e.next
	}
}

// Has reports whether key is present.
func (t *StrTable) Has(key []byte) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Insert adds key->value. It does not replace an existing entry for key;
// callers must check Has first if replace-on-insert is not desired.
func (t *StrTable) Insert(key []byte, value any) {
	if float64(t.count+1) > loadFactor*float64(len(t.entries)) {
		t.grow()
	}

	h := murmurHash2(key, 0)
	own := make([]byte, len(key))
	copy(own, key)
	t.insertEntry(strEntry{key: own, hash: h, value: value, next: empty, occupied: true})
}

func (t *StrTable) insertEntry(ne strEntry) {
	mainPos := t.mainPos(ne.hash)
	slot := &t.entries[mainPos]

	if !slot.occupied {
		*slot = ne
		t.count++
		return
	}

	occupantMain := t.mainPos(slot.hash)
	if occupantMain == mainPos {
		// The occupant is in its own main position: chain the new entry
		// off of it via a free slot.
		free := t.findFree()
		t.entries[free] = ne
		t.entries[free].next = slot.next
		slot.next = free
		t.count++
		return
	}

	// The occupant is not in its own main position (it got here by
	// chaining from elsewhere): evict it to a free slot and take its
	// place, then fix up whoever pointed to it.
	free := t.findFree()
	evicted := *slot
	t.entries[free] = evicted

	idx := occupantMain
	for t.entries[idx].next != mainPos {
		idx = t.entries[idx].next
	}
	t.entries[idx].next = free

	*slot = ne
	t.count++
}

func (t *StrTable) findFree() int {
	for t.free >= 0 && t.entries[t.free].occupied {
		t.free--
	}
	if t.free < 0 {
		t.grow()
		return t.findFree()
	}
	f := t.free
	t.free--
	return f
}

// Remove deletes key, if present, and returns whether it was found.
func (t *StrTable) Remove(key []byte) bool {
	if len(t.entries) == 0 {
		return false
	}
	h := murmurHash2(key, 0)
	mainPos := t.mainPos(h)

	prev := -1
	i := mainPos
	for {
		e := &t.entries[i]
		if !e.occupied {
			return false
		}
		if e.hash == h && bytes.Equal(e.key, key) {
			next := e.next
			if prev == -1 {
				if next == empty {
					*e = strEntry{}
				} else {
					*e = t.entries[next]
					t.entries[next] = strEntry{}
				}
			} else {
				t.entries[prev].next = next
				*e = strEntry{}
			}
			t.count--
			return true
		}
		if e.next == empty {
			return false
		}
		prev = i
		i = e.next
	}
}

// Len returns the number of entries.
func (t *StrTable) Len() int { return t.count }

// Range calls fn for every entry; iteration order is unspecified
// (spec.md §4.2 "Determinism").
func (t *StrTable) Range(fn func(key []byte, value any) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.occupied {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

func (t *StrTable) grow() {
	old := t.entries
	t.entries = make([]strEntry, len(old)*2)
	t.resetFree()
	t.count = 0
	for _, e := range old {
		if e.occupied {
			t.insertEntry(strEntry{key: e.key, hash: e.hash, value: e.value, next: empty, occupied: true})
		}
	}
}
