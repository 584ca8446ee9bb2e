package index

import (
	"sort"

	"github.com/AndreasBriese/bbloom"

	"github.com/leftmike/tuplestore/heap"
)

// HashIndex is a map-backed Index fronted by a Bloom filter fast path for
// Exists. github.com/AndreasBriese/bbloom is the teacher's own transitive
// dependency (pulled in via badger); this core promotes it to a direct
// dependency for the one place a hash index benefits from a cheap
// probably-absent check before touching the map (spec.md §4.2's "exists"
// capability).
type HashIndex struct {
	scheme  Scheme
	buckets map[string][]*heap.Tuple
	bloom   bbloom.Bloom
	cursor  []*heap.Tuple
}

func NewHash(scheme Scheme) *HashIndex {
	return &HashIndex{
		scheme:  scheme,
		buckets: make(map[string][]*heap.Tuple),
		bloom:   bbloom.New(1024, 0.01),
	}
}

func (hi *HashIndex) Name() string { return hi.scheme.Name }
func (hi *HashIndex) Unique() bool { return hi.scheme.Unique }

func (hi *HashIndex) keyOf(t *heap.Tuple) []byte {
	return EncodeKey(hi.scheme.Columns, t.Values)
}

func (hi *HashIndex) AddEntry(t *heap.Tuple) bool {
	key := hi.keyOf(t)
	skey := string(key)
	if hi.scheme.Unique && len(hi.buckets[skey]) > 0 {
		return false
	}
	hi.buckets[skey] = append(hi.buckets[skey], t)
	hi.bloom.Add(key)
	return true
}

func (hi *HashIndex) DeleteEntry(t *heap.Tuple) bool {
	key := string(hi.keyOf(t))
	list := hi.buckets[key]
	for i, addr := range list {
		if addr == t {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(hi.buckets, key)
			} else {
				hi.buckets[key] = list
			}
			return true
		}
	}
	return false
}

func (hi *HashIndex) ReplaceEntry(oldT, newT *heap.Tuple) bool {
	oldKey := string(hi.keyOf(oldT))
	list := hi.buckets[oldKey]
	found := -1
	for i, addr := range list {
		if addr == newT {
			found = i
			break
		}
	}
	if found < 0 {
		return false
	}
	list = append(list[:found], list[found+1:]...)
	if len(list) == 0 {
		delete(hi.buckets, oldKey)
	} else {
		hi.buckets[oldKey] = list
	}

	newKeyBytes := hi.keyOf(newT)
	newKey := string(newKeyBytes)
	hi.buckets[newKey] = append(hi.buckets[newKey], newT)
	hi.bloom.Add(newKeyBytes)
	return true
}

func (hi *HashIndex) SetEntryToNewAddress(t *heap.Tuple, newAddr *heap.Tuple) bool {
	key := string(hi.keyOf(t))
	list := hi.buckets[key]
	for i, addr := range list {
		if addr == t {
			list[i] = newAddr
			return true
		}
	}
	return false
}

func (hi *HashIndex) Exists(t *heap.Tuple) bool {
	key := hi.keyOf(t)
	if !hi.bloom.Has(key) {
		return false
	}
	return len(hi.buckets[string(key)]) > 0
}

func (hi *HashIndex) MoveToTuple(probe *heap.Tuple) bool {
	list := hi.buckets[string(hi.keyOf(probe))]
	if len(list) == 0 {
		hi.cursor = nil
		return false
	}
	hi.cursor = append([]*heap.Tuple(nil), list...)
	return true
}

func (hi *HashIndex) NextValueAtKey() (*heap.Tuple, bool) {
	if len(hi.cursor) == 0 {
		return nil, false
	}
	t := hi.cursor[0]
	hi.cursor = hi.cursor[1:]
	return t, true
}

func (hi *HashIndex) CheckForIndexChange(oldT, newT *heap.Tuple) bool {
	return string(hi.keyOf(oldT)) != string(hi.keyOf(newT))
}

// EnsureCapacity rebuilds the Bloom filter sized for n entries. Only
// meaningful before the index has any entries (spec.md §4.10: recovery
// pre-sizes indexes on an empty table).
func (hi *HashIndex) EnsureCapacity(n int) {
	if len(hi.buckets) == 0 && n > 0 {
		hi.bloom = bbloom.New(float64(n), 0.01)
	}
}

func (hi *HashIndex) IterateInKeyOrder(visit func(*heap.Tuple) bool) {
	keys := make([]string, 0, len(hi.buckets))
	for k := range hi.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, t := range hi.buckets[k] {
			if !visit(t) {
				return
			}
		}
	}
}
