package index

import (
	"bytes"

	"github.com/google/btree"

	"github.com/leftmike/tuplestore/heap"
)

// OrderedIndex is a btree-backed Index, grounded on the teacher's own use of
// github.com/google/btree in storage/rowcols/rowcols.go to keep a versioned
// row tree. Unlike rowcols' single tree keyed by (table id, row id), this
// tree is keyed purely by the index's own encoded column key plus an
// insertion sequence tie-breaker, which is what lets a non-unique index
// hold more than one tuple under the same key.
type OrderedIndex struct {
	scheme Scheme
	tree   *btree.BTree
	degree int
	nextSeq uint64

	cursor []*heap.Tuple
}

func NewOrdered(scheme Scheme) *OrderedIndex {
	return &OrderedIndex{scheme: scheme, tree: btree.New(16), degree: 16}
}

type orderedItem struct {
	key  []byte
	seq  uint64
	addr *heap.Tuple
}

func (it orderedItem) Less(other btree.Item) bool {
	o := other.(orderedItem)
	c := bytes.Compare(it.key, o.key)
	if c != 0 {
		return c < 0
	}
	return it.seq < o.seq
}

func (oi *OrderedIndex) Name() string  { return oi.scheme.Name }
func (oi *OrderedIndex) Unique() bool  { return oi.scheme.Unique }

func (oi *OrderedIndex) keyOf(t *heap.Tuple) []byte {
	return EncodeKey(oi.scheme.Columns, t.Values)
}

// entriesAt collects every item in the tree sharing key, in insertion
// order, without mutating the tree.
func (oi *OrderedIndex) entriesAt(key []byte) []orderedItem {
	var items []orderedItem
	oi.tree.AscendGreaterOrEqual(orderedItem{key: key, seq: 0},
		func(i btree.Item) bool {
			oit := i.(orderedItem)
			if !bytes.Equal(oit.key, key) {
				return false
			}
			items = append(items, oit)
			return true
		})
	return items
}

func (oi *OrderedIndex) AddEntry(t *heap.Tuple) bool {
	key := oi.keyOf(t)
	if oi.scheme.Unique {
		if existing := oi.entriesAt(key); len(existing) > 0 {
			return false
		}
	}
	oi.nextSeq++
	oi.tree.ReplaceOrInsert(orderedItem{key: key, seq: oi.nextSeq, addr: t})
	return true
}

func (oi *OrderedIndex) DeleteEntry(t *heap.Tuple) bool {
	key := oi.keyOf(t)
	for _, it := range oi.entriesAt(key) {
		if it.addr == t {
			oi.tree.Delete(it)
			return true
		}
	}
	return false
}

func (oi *OrderedIndex) ReplaceEntry(oldT, newT *heap.Tuple) bool {
	oldKey := oi.keyOf(oldT)
	found := false
	for _, it := range oi.entriesAt(oldKey) {
		if it.addr == newT {
			oi.tree.Delete(it)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	newKey := oi.keyOf(newT)
	oi.nextSeq++
	oi.tree.ReplaceOrInsert(orderedItem{key: newKey, seq: oi.nextSeq, addr: newT})
	return true
}

func (oi *OrderedIndex) SetEntryToNewAddress(t *heap.Tuple, newAddr *heap.Tuple) bool {
	key := oi.keyOf(t)
	for _, it := range oi.entriesAt(key) {
		if it.addr == t {
			oi.tree.Delete(it)
			oi.tree.ReplaceOrInsert(orderedItem{key: it.key, seq: it.seq, addr: newAddr})
			return true
		}
	}
	return false
}

func (oi *OrderedIndex) Exists(t *heap.Tuple) bool {
	return len(oi.entriesAt(oi.keyOf(t))) > 0
}

func (oi *OrderedIndex) MoveToTuple(probe *heap.Tuple) bool {
	items := oi.entriesAt(oi.keyOf(probe))
	if len(items) == 0 {
		oi.cursor = nil
		return false
	}
	oi.cursor = make([]*heap.Tuple, 0, len(items))
	for _, it := range items {
		oi.cursor = append(oi.cursor, it.addr)
	}
	return true
}

func (oi *OrderedIndex) NextValueAtKey() (*heap.Tuple, bool) {
	if len(oi.cursor) == 0 {
		return nil, false
	}
	t := oi.cursor[0]
	oi.cursor = oi.cursor[1:]
	return t, true
}

func (oi *OrderedIndex) CheckForIndexChange(oldT, newT *heap.Tuple) bool {
	return !bytes.Equal(oi.keyOf(oldT), oi.keyOf(newT))
}

func (oi *OrderedIndex) EnsureCapacity(n int) {
	// The underlying btree grows dynamically; nothing to pre-size.
}

func (oi *OrderedIndex) IterateInKeyOrder(visit func(*heap.Tuple) bool) {
	oi.tree.Ascend(func(i btree.Item) bool {
		return visit(i.(orderedItem).addr)
	})
}
