package table

import (
	"github.com/leftmike/tuplestore/executor"
	"github.com/leftmike/tuplestore/export"
	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/sql"
	"github.com/leftmike/tuplestore/undo"
)

// Insert runs the facade's insert path (spec.md §4.7): check not-null,
// allocate a slot, consult COW, insert into every index with rollback on
// a unique conflict, append an export record, register an InsertUndo, and
// fan out to registered views.
func (t *PersistentTable) Insert(ctx *executor.Context, values []sql.Value, payload []byte) (*heap.Tuple, error) {
	scratch := heap.NewScratch(values, payload)
	if err := t.checker.CheckNotNull(scratch); err != nil {
		return nil, err
	}

	slot := t.heap.NextFreeSlot()
	slot.CopyForInsert(scratch)
	slot.SetActive(true)

	if t.cow.IsActive() {
		t.cow.MarkDirty(slot, true)
	} else {
		slot.SetDirty(false)
	}

	if failed, ok := t.indexes.InsertAll(slot); !ok {
		slot.FreePayload()
		t.heap.Release(slot, true)
		return nil, &UniqueViolation{Index: failed}
	}

	action := &undo.InsertAction{Heap: t.heap, Indexes: t.indexes, Slot: slot}
	if t.export != nil {
		action.Export = t.export
		action.Mark = t.export.AppendTuple(ctx.LastCommittedTxnID, ctx.CurrentTxnID,
			ctx.CurrentTxnTimestamp, slot.Payload(), export.Insert)
		action.HasMark = true
	}
	ctx.CurrentUndoQuantum.RegisterUndoAction(action)

	t.views.OnInsert(slot)
	return slot, nil
}

// Update runs the facade's update path (spec.md §4.7). target must be an
// active slot belonging to this table. The not-null check happens after
// indexing/export/view dispatch, exactly as the source's checkNulls call
// is positioned relative to the rest of updateTuple's side effects — a
// faithfully preserved quirk, not a redesign.
func (t *PersistentTable) Update(ctx *executor.Context, target *heap.Tuple, newValues []sql.Value,
	newPayload []byte, updatesIndexes bool) error {
	preImage := target.Clone()

	// spec.md §4.4: the undo record is registered before the mutation so it
	// has captured the pre-image, unless the hosting quantum is a dummy, in
	// which case registration is deferred until after the mutation (the
	// quantum releases the action on register, and the action isn't fully
	// populated yet). Mirrors persistenttable.cpp:500-503 vs. :543-547.
	action := &undo.UpdateAction{
		Indexes:     t.indexes,
		OldContents: preImage,
		NewAddress:  target,
	}
	quantum := ctx.CurrentUndoQuantum
	dummy := quantum.IsDummy()
	if !dummy {
		quantum.RegisterUndoAction(action)
	}

	if t.cow.IsActive() {
		t.cow.MarkDirty(target, false)
	} else {
		target.SetDirty(false)
	}

	scratch := heap.NewScratch(newValues, newPayload)
	target.CopyForUpdate(scratch)

	if updatesIndexes {
		changed, conflictIndex, ok := t.indexes.TryUpdateCheck(preImage, target)
		if !ok {
			target.Copy(preImage)
			return &UniqueViolation{Index: conflictIndex}
		}
		action.RevertIndexes = true
		action.Changed = changed
		if failed, ok := t.indexes.ReplaceAll(preImage, target, changed); !ok {
			t.log.WithField("index", failed).Fatal("tuplestore: update: could not repoint index entries")
		}
	}

	if t.export != nil {
		action.Export = t.export
		delMark := t.export.AppendTuple(ctx.LastCommittedTxnID, ctx.CurrentTxnID,
			ctx.CurrentTxnTimestamp, preImage.Payload(), export.Delete)
		t.export.AppendTuple(ctx.LastCommittedTxnID, ctx.CurrentTxnID,
			ctx.CurrentTxnTimestamp, target.Payload(), export.Insert)
		action.Mark = delMark
		action.HasMark = true
	}

	t.views.OnUpdate(preImage, target)

	if err := t.checker.CheckNotNull(target); err != nil {
		return err
	}

	if dummy {
		quantum.RegisterUndoAction(action)
	}
	return nil
}

// Delete runs the facade's delete path (spec.md §4.7). target must be
// active; deleting the table's scratch tuple is a caller error this core
// does not need to special-case since scratch tuples are never indexed.
func (t *PersistentTable) Delete(ctx *executor.Context, target *heap.Tuple, freePayload bool) error {
	if failed, ok := t.indexes.DeleteAll(target); !ok {
		t.log.WithField("index", failed).Fatal("tuplestore: delete: could not deindex active tuple")
	}

	if t.cow.IsActive() {
		t.cow.MarkDirty(target, false)
	} else {
		target.SetDirty(false)
	}

	contents := target.Clone()

	t.views.OnDelete(target)

	action := &undo.DeleteAction{Heap: t.heap, Indexes: t.indexes, Contents: contents}
	if t.export != nil {
		action.Export = t.export
		action.Mark = t.export.AppendTuple(ctx.LastCommittedTxnID, ctx.CurrentTxnID,
			ctx.CurrentTxnTimestamp, target.Payload(), export.Delete)
		action.HasMark = true
	}
	ctx.CurrentUndoQuantum.RegisterUndoAction(action)

	t.heap.Release(target, freePayload)
	return nil
}

// LookupTuple implements spec.md §4.8: use the primary-key index if one
// exists, otherwise fall back to a full scan comparing active tuples by
// value equality. Returns (nil, false) if no match exists (in place of
// the source's sentinel null tuple, which Go's zero value for a pointer
// already models).
func (t *PersistentTable) LookupTuple(probe *heap.Tuple) (*heap.Tuple, bool) {
	if primary := t.indexes.Primary(); primary != nil {
		if primary.MoveToTuple(probe) {
			return primary.NextValueAtKey()
		}
		return nil, false
	}

	it := t.heap.NewIterator()
	for tp, ok := it.Next(); ok; tp, ok = it.Next() {
		if tp.Equal(probe) {
			return tp, true
		}
	}
	return nil, false
}

// HashCode implements spec.md §4.12: walk the existing primary-key index in
// key order (IterateInKeyOrder; no separate tree is built) and fold a
// running hash across each tuple's content hash, so the result is
// invariant under insertion order (property P7). A table with no primary
// index hashes to 0.
func (t *PersistentTable) HashCode() uint64 {
	primary := t.indexes.Primary()
	if primary == nil {
		return 0
	}
	var h uint64
	primary.IterateInKeyOrder(func(tp *heap.Tuple) bool {
		h = foldHash(h, tp.ContentHash())
		return true
	})
	return h
}

// foldHash combines the running hash with the next tuple's content hash.
// Multiplying by an odd constant before folding keeps the fold sensitive
// to position within the already-ordered walk while still being
// deterministic across runs with identical logical contents, since the
// walk order itself (primary-key order) is what's invariant, not the
// fold's internal mixing.
func foldHash(acc, next uint64) uint64 {
	const prime = 1099511628211
	return acc*prime ^ next
}

// DeleteAllTuples is the bulk convenience the original names deleteAllTuples
// (SPEC_FULL.md §11): it runs the full per-tuple delete path, indexes,
// undo, views, and export included, once per active tuple.
func (t *PersistentTable) DeleteAllTuples(ctx *executor.Context, freePayload bool) error {
	var victims []*heap.Tuple
	it := t.heap.NewIterator()
	for tp, ok := it.Next(); ok; tp, ok = it.Next() {
		victims = append(victims, tp)
	}
	for _, tp := range victims {
		if err := t.Delete(ctx, tp, freePayload); err != nil {
			return err
		}
	}
	return nil
}
