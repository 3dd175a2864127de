package table

// intEntry is one slot in the hash part of an IntTable.
type intEntry struct {
	key      int32
	hash     uint32
	value    any
	next     int
	occupied bool
}

// arraySlot is one slot in the array part of an IntTable; present
// distinguishes a stored zero value from "empty" (spec.md §3.2's
// "sentinel empty tag").
type arraySlot struct {
	value   any
	present bool
}

// IntTable is a hybrid int32-keyed table: keys below arraySize live in a
// flat array part, the rest live in an open-addressing hash part
// (spec.md §3.2, §4.2 "Integer hybrid array").
type IntTable struct {
	array     []arraySlot
	hashEntries []intEntry
	hashCount int
	hashFree  int
}

// NewIntTable creates an empty IntTable with an array part of the given
// size (rounded up to a power of two) and an empty hash part.
func NewIntTable(arraySizeHint int) *IntTable {
	t := &IntTable{
		array:       make([]arraySlot, log2Ceil(arraySizeHint)),
		hashEntries: make([]intEntry, minBuckets),
	}
	t.resetHashFree()
	return t
}

func (t *IntTable) resetHashFree() { t.hashFree = len(t.hashEntries) - 1 }
func (t *IntTable) mainPos(hash uint32) int {
	return int(hash) & (len(t.hashEntries) - 1)
}

// Lookup returns the value for key and true if present.
func (t *IntTable) Lookup(key int32) (any, bool) {
	if int(key) >= 0 && int(key) < len(t.array) {
		s := t.array[key]
		return s.value, s.present
	}
	return t.hashLookup(key)
}

func (t *IntTable) hashLookup(key int32) (any, bool) {
	if len(t.hashEntries) == 0 {
		return nil, false
	}
	h := hashInt(int64(key))
	i := t.mainPos(h)
	for {
		e := &t.hashEntries[i]
		if !e.occupied {
			return nil, false
		}
		if e.key == key {
			return e.value, true
		}
		if e.next == empty {
			return nil, false
		}
		i = e.next
	}
}

// Has reports whether key is present.
func (t *IntTable) Has(key int32) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Insert adds key->value into the array part if key is in range,
// otherwise into the hash part.
func (t *IntTable) Insert(key int32, value any) {
	if int(key) >= 0 && int(key) < len(t.array) {
		t.array[key] = arraySlot{value: value, present: true}
		return
	}
	t.hashInsert(key, value)
}

func (t *IntTable) hashInsert(key int32, value any) {
	if float64(t.hashCount+1) > loadFactor*float64(len(t.hashEntries)) {
		t.growHash()
	}
	h := hashInt(int64(key))
	t.insertEntry(intEntry{key: key, hash: h, value: value, next: empty, occupied: true})
}

func (t *IntTable) insertEntry(ne intEntry) {
	mainPos := t.mainPos(ne.hash)
	slot := &t.hashEntries[mainPos]

	if !slot.occupied {
		*slot = ne
		t.hashCount++
		return
	}

	occupantMain := t.mainPos(slot.hash)
	if occupantMain == mainPos {
		free := t.findFree()
		t.hashEntries[free] = ne
		t.hashEntries[free].next = slot.next
		slot.next = free
		t.hashCount++
		return
	}

	free := t.findFree()
	t.hashEntries[free] = *slot

	idx := occupantMain
	for t.hashEntries[idx].next != mainPos {
		idx = t.hashEntries[idx].next
	}
	t.hashEntries[idx].next = free

	*slot = ne
	t.hashCount++
}

func (t *IntTable) findFree() int {
	for t.hashFree >= 0 && t.hashEntries[t.hashFree].occupied {
		t.hashFree--
	}
	if t.hashFree < 0 {
		t.growHash()
		return t.findFree()
	}
	f := t.hashFree
	t.hashFree--
	return f
}

func (t *IntTable) growHash() {
	old := t.hashEntries
	t.hashEntries = make([]intEntry, len(old)*2)
	t.resetHashFree()
	t.hashCount = 0
	for _, e := range old {
		if e.occupied {
			t.insertEntry(intEntry{key: e.key, hash: e.hash, value: e.value, next: empty, occupied: true})
		}
	}
}

// Remove deletes key and reports whether it was found.
func (t *IntTable) Remove(key int32) bool {
	if int(key) >= 0 && int(key) < len(t.array) {
		if !t.array[key].present {
			return false
		}
		t.array[key] = arraySlot{}
		return true
	}

	h := hashInt(int64(key))
	mainPos := t.mainPos(h)
	prev := -1
	i := mainPos
	for {
		e := &t.hashEntries[i]
		if !e.occupied {
			return false
		}
		if e.key == key {
			next := e.next
			if prev == -1 {
				if next == empty {
					*e = intEntry{}
				} else {
					*e = t.hashEntries[next]
					t.hashEntries[next] = intEntry{}
				}
			} else {
				t.hashEntries[prev].next = next
				*e = intEntry{}
			}
			t.hashCount--
			return true
		}
		if e.next == empty {
			return false
		}
		prev = i
		i = e.next
	}
}

// Len returns the number of entries across both parts.
func (t *IntTable) Len() int {
	n := t.hashCount
	for _, s := range t.array {
		if s.present {
			n++
		}
	}
	return n
}

// Range calls fn for every entry; iteration order is unspecified.
func (t *IntTable) Range(fn func(key int32, value any) bool) {
	for i, s := range t.array {
		if s.present {
			if !fn(int32(i), s.value) {
				return
			}
		}
	}
	for _, e := range t.hashEntries {
		if e.occupied {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

// minArrayDensity is the density threshold Compact aims for in the array
// part (spec.md §4.2: "≥ 10% live").
const minArrayDensity = 0.1

// Compact repartitions the array/hash split using a log-bucketed
// histogram of the live key set, choosing the largest array size such
// that the array part meets minArrayDensity, without expanding beyond the
// input keys' range (spec.md §3.2, §8).
func (t *IntTable) Compact() {
	type kv struct {
		key   int32
		value any
	}
	var all []kv
	t.Range(func(k int32, v any) bool {
		all = append(all, kv{k, v})
		return true
	})

	// Histogram of live non-negative keys bucketed by power-of-two range:
	// hist[i] counts keys in [2^(i-1), 2^i).
	var hist [32]int
	maxKey := int32(-1)
	for _, e := range all {
		if e.key < 0 {
			continue
		}
		if e.key > maxKey {
			maxKey = e.key
		}
		b := bitLen(e.key)
		hist[b]++
	}

	bestArraySize := 0
	if maxKey >= 0 {
		cumulative := 0
		for b := 0; b < 32; b++ {
			cumulative += hist[b]
			size := 1 << b
			if size == 0 {
				continue
			}
			if float64(cumulative)/float64(size) >= minArrayDensity {
				bestArraySize = size
			}
		}
	}
	if bestArraySize == 0 {
		bestArraySize = minBuckets
	}

	nt := &IntTable{
		array:       make([]arraySlot, bestArraySize),
		hashEntries: make([]intEntry, minBuckets),
	}
	nt.resetHashFree()
	for _, e := range all {
		nt.Insert(e.key, e.value)
	}

	*t = *nt
}

// bitLen returns the bucket index used by Compact's histogram: 0 for
// key==0, otherwise the position of the highest set bit + 1.
func bitLen(key int32) int {
	if key == 0 {
		return 0
	}
	n := 0
	u := uint32(key)
	for u != 0 {
		u >>= 1
		n++
	}
	if n >= 32 {
		n = 31
	}
	return n
}
