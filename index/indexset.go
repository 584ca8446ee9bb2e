package index

import "github.com/leftmike/tuplestore/heap"

// IndexSet is the ordered collection of indexes PersistentTable drives a
// mutation through: one designated primary key, plus zero or more
// secondary indexes, each either unique or non-unique, ordered or hashed.
// The bulk operations here correspond to insertIntoAllIndexes,
// deleteFromAllIndexes, tryInsertOnAllIndexes, and tryUpdateOnAllIndexes in
// the original persistenttable.cpp (spec.md §4.2).
type IndexSet struct {
	primary    Index
	secondary  []Index
}

func NewIndexSet(primary Index) *IndexSet {
	return &IndexSet{primary: primary}
}

func (is *IndexSet) AddSecondary(idx Index) {
	is.secondary = append(is.secondary, idx)
}

func (is *IndexSet) Primary() Index { return is.primary }

func (is *IndexSet) All() []Index {
	if is.primary == nil {
		return is.secondary
	}
	all := make([]Index, 0, len(is.secondary)+1)
	all = append(all, is.primary)
	all = append(all, is.secondary...)
	return all
}

// TryInsertCheck probes every index for a uniqueness collision without
// mutating anything, mirroring tryInsertOnAllIndexes: the original checks
// every unique index before touching any of them so a failed insert never
// leaves a partial trail.
func (is *IndexSet) TryInsertCheck(t *heap.Tuple) (conflictingIndex string, ok bool) {
	for _, idx := range is.All() {
		if !idx.Unique() {
			continue
		}
		if idx.Exists(t) {
			return idx.Name(), false
		}
	}
	return "", true
}

// InsertAll adds t to every index. If an index rejects the insert (a
// unique-key collision) it rolls back the indexes already updated, in
// reverse order, mirroring insertIntoAllIndexes's own unwind-on-failure
// loop. It does not call TryInsertCheck first.
func (is *IndexSet) InsertAll(t *heap.Tuple) (failedIndex string, ok bool) {
	all := is.All()
	for i, idx := range all {
		if !idx.AddEntry(t) {
			for j := i - 1; j >= 0; j-- {
				all[j].DeleteEntry(t)
			}
			return idx.Name(), false
		}
	}
	return "", true
}

// DeleteAll removes t from every index, in reverse of insertion order, so
// that unwinding a subsequent failed operation that re-inserts t restores
// indexes in the same order they were originally built (spec.md §4.2).
// Failing to remove an entry that must be there is fatal corruption; the
// caller decides how to surface that (the source halts the engine).
func (is *IndexSet) DeleteAll(t *heap.Tuple) (failedIndex string, ok bool) {
	all := is.All()
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].DeleteEntry(t) {
			return all[i].Name(), false
		}
	}
	return "", true
}

// TryUpdateCheck probes every unique index whose key would change under
// newT for a collision with some other tuple, mirroring
// tryUpdateOnAllIndexes. changed reports, per index in All() order,
// whether that index's key actually changes; callers use it so ReplaceAll
// only touches indexes whose key moved.
func (is *IndexSet) TryUpdateCheck(oldT, newT *heap.Tuple) (changed []bool, conflictingIndex string, ok bool) {
	all := is.All()
	changed = make([]bool, len(all))
	for i, idx := range all {
		if !idx.CheckForIndexChange(oldT, newT) {
			continue
		}
		changed[i] = true
		if idx.Unique() && idx.Exists(newT) {
			return changed, idx.Name(), false
		}
	}
	return changed, "", true
}

// ReplaceAll updates every index whose key changes (per changed, as
// returned by TryUpdateCheck) to point newT at its new key, and every
// other index to simply repoint its existing key entry at newT's address.
// Fatal on failure, mirroring DeleteAll (spec.md §4.2).
//
// The unchanged-key branch looks entries up by newT, not oldT: oldT is
// only ever a detached pre-image (table.Update's clone of the tuple
// before mutation), never the address actually stored in an index, so
// matching against it would never find the entry. newT is the tuple's
// real, unmoved slot address, and since the key didn't change its
// current key already matches what's stored.
func (is *IndexSet) ReplaceAll(oldT, newT *heap.Tuple, changed []bool) (failedIndex string, ok bool) {
	all := is.All()
	for i, idx := range all {
		if changed[i] {
			if !idx.ReplaceEntry(oldT, newT) {
				return idx.Name(), false
			}
		} else {
			if !idx.SetEntryToNewAddress(newT, newT) {
				return idx.Name(), false
			}
		}
	}
	return "", true
}

// RewriteAddressAll repoints every index entry for old at newAddr without
// changing any key, mirroring setEntryToNewAddressForAllIndexes, used when
// a tuple's slot moves (e.g. compaction) but its values do not change.
func (is *IndexSet) RewriteAddressAll(old, newAddr *heap.Tuple) {
	for _, idx := range is.All() {
		idx.SetEntryToNewAddress(old, newAddr)
	}
}

// EnsureCapacity pre-sizes every index for n entries, used by recovery
// bulk load against a table known to be empty.
func (is *IndexSet) EnsureCapacity(n int) {
	for _, idx := range is.All() {
		idx.EnsureCapacity(n)
	}
}

// BulkLoad adds a batch of tuples to every index without per-row
// rollback-on-conflict bookkeeping, used by the recovery stream which
// trusts its source to already be free of duplicates.
func (is *IndexSet) BulkLoad(tuples []*heap.Tuple) {
	for _, idx := range is.All() {
		for _, t := range tuples {
			idx.AddEntry(t)
		}
	}
}
