// Package index implements IndexSet (spec.md §4.2): the polymorphic
// capability set {addEntry, deleteEntry, replaceEntry, setEntryToNewAddress,
// exists, moveToTuple, nextValueAtKey, checkForIndexChange, ensureCapacity}
// shared by ordered and hash index variants, plus the primary-key-aware
// bulk operations PersistentTable drives a mutation through.
package index

import "github.com/leftmike/tuplestore/heap"

// Scheme describes one index: which row columns form its key, in what
// order, and whether it enforces uniqueness.
type Scheme struct {
	Name    string
	Columns []int
	Unique  bool
}

// Index is the capability set spec.md §4.2 requires of every index
// variant (unique/non-unique × ordered/hash).
type Index interface {
	Name() string
	Unique() bool

	AddEntry(t *heap.Tuple) bool
	DeleteEntry(t *heap.Tuple) bool
	ReplaceEntry(oldT, newT *heap.Tuple) bool
	SetEntryToNewAddress(t *heap.Tuple, newAddr *heap.Tuple) bool

	// Exists reports whether a tuple with t's key is already present.
	Exists(t *heap.Tuple) bool

	// MoveToTuple positions a cursor at probe's key. NextValueAtKey then
	// returns the tuple stored there. Modelled as two steps, matching the
	// original TableIndex cursor API (spec.md §4.8), even though a single
	// Lookup would suffice in Go.
	MoveToTuple(probe *heap.Tuple) bool
	NextValueAtKey() (*heap.Tuple, bool)

	// CheckForIndexChange reports whether newT's key (for this index)
	// differs from oldT's, so tryUpdateCheck only re-validates indexes an
	// update actually touches.
	CheckForIndexChange(oldT, newT *heap.Tuple) bool

	EnsureCapacity(n int)

	// IterateInKeyOrder visits every entry in ascending key order; ordered
	// indexes do this natively, hash indexes sort their entries first.
	IterateInKeyOrder(visit func(*heap.Tuple) bool)
}
