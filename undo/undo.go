// Package undo implements the UndoLog binding (spec.md §4.4): three record
// variants — InsertUndo, DeleteUndo, UpdateUndo — each able to reverse one
// facade mutation, allocated from a per-transaction Quantum and replayed in
// reverse registration order on rollback. Grounded on the teacher's
// typed-error-struct idiom (evaluate/expr/compile.go's ContextError) for
// the fatal-corruption error this package raises when a reversal itself
// fails integrity it must not fail.
package undo

import (
	"fmt"

	"github.com/leftmike/tuplestore/export"
	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/index"
)

// CorruptionError reports an undo replay that could not restore an
// invariant the source treats as fatal (spec.md §7): failing to deindex,
// failing to reinsert an undone tuple.
type CorruptionError struct {
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("tuplestore: undo: fatal corruption: %s", e.Reason)
}

// Action is one reversible mutation, ready to replay.
type Action interface {
	Undo() error
}

// Quantum is the per-transaction undo scope a facade mutation registers
// its undo action with (spec.md §6). A "dummy" quantum never actually
// rolls back — registering with it runs the action's cleanup immediately,
// as if the quantum committed the instant the action was registered,
// which is why the facade's update path must defer registration on a
// dummy quantum until after the mutation, per spec.md §4.4.
type Quantum interface {
	IsDummy() bool
	RegisterUndoAction(action Action)
}

// Releasable lets an Action shed resources it would otherwise hold for a
// future revert, without actually reverting. A dummy Quantum calls this
// instead of Undo on registration.
type Releasable interface {
	Release()
}

// Arena is a per-quantum undo-action list plus helpers for preserving
// byte slices the action will need at revert time. Go's GC makes a real
// bump allocator unnecessary; Arena exists to give undo actions a single
// owner for their captured pre-images, mirroring the source's per-quantum
// pool.
type Arena struct {
	actions []Action
}

func NewArena() *Arena {
	return &Arena{}
}

// Preserve returns an independent copy of p, for an undo record that must
// outlive the slot it was copied from.
func (a *Arena) Preserve(p []byte) []byte {
	if p == nil {
		return nil
	}
	return append([]byte(nil), p...)
}

// SimpleQuantum is a real (non-dummy) undo quantum: it accumulates
// registered actions and reverts them in reverse order on Rollback.
type SimpleQuantum struct {
	arena   *Arena
	actions []Action
}

func NewSimpleQuantum() *SimpleQuantum {
	return &SimpleQuantum{arena: NewArena()}
}

func (q *SimpleQuantum) IsDummy() bool { return false }

func (q *SimpleQuantum) RegisterUndoAction(action Action) {
	q.actions = append(q.actions, action)
}

// Rollback replays every registered action in reverse registration order,
// matching the source's undo-quantum revert discipline (spec.md §5). Any
// error is fatal: the state was valid before the quantum began and must
// be reproducible.
func (q *SimpleQuantum) Rollback() error {
	for i := len(q.actions) - 1; i >= 0; i-- {
		if err := q.actions[i].Undo(); err != nil {
			return err
		}
	}
	q.actions = nil
	return nil
}

// Commit discards the quantum's actions without reverting them.
func (q *SimpleQuantum) Commit() {
	q.actions = nil
}

// DummyQuantum is used when no future rollback is possible (e.g. a
// standalone, non-transactional call into the facade). Registering an
// action with it runs the action's Release hook immediately, if it has
// one, and never retains or reverts it.
type DummyQuantum struct{}

func (DummyQuantum) IsDummy() bool { return true }

func (DummyQuantum) RegisterUndoAction(action Action) {
	if r, ok := action.(Releasable); ok {
		r.Release()
	}
}

// InsertAction reverts a successful insert: deindex the slot, free its
// payload, release it back to the heap, and roll the export stream back
// to the mark captured before the insert's export record.
type InsertAction struct {
	Heap    *heap.TupleHeap
	Indexes *index.IndexSet
	Export  *export.Stream
	Slot    *heap.Tuple
	Mark    export.Mark
	HasMark bool
}

func (a *InsertAction) Undo() error {
	if failed, ok := a.Indexes.DeleteAll(a.Slot); !ok {
		return &CorruptionError{Reason: fmt.Sprintf("could not deindex reverted insert from %q", failed)}
	}
	a.Slot.FreePayload()
	a.Heap.Release(a.Slot, true)
	if a.HasMark && a.Export != nil {
		a.Export.RollbackTo(a.Mark)
	}
	return nil
}

func (a *InsertAction) Release() {
	// Nothing retained beyond what the slot itself still owns; a commit
	// (or a dummy quantum's immediate release) leaves the slot as-is.
}

// DeleteAction reverts a successful delete: reinsert the preserved
// contents into a fresh slot, under every index, without emitting a view
// or export event, then roll the export stream back to the captured
// mark.
type DeleteAction struct {
	Heap     *heap.TupleHeap
	Indexes  *index.IndexSet
	Export   *export.Stream
	Contents *heap.Tuple // preserved copy (a Clone, with its own payload copy)
	Mark     export.Mark
	HasMark  bool
}

func (a *DeleteAction) Undo() error {
	slot := a.Heap.NextFreeSlot()
	slot.Copy(a.Contents)
	slot.SetActive(true)
	if failed, ok := a.Indexes.InsertAll(slot); !ok {
		return &CorruptionError{Reason: fmt.Sprintf("could not reinsert deleted tuple into index %q", failed)}
	}
	if a.HasMark && a.Export != nil {
		a.Export.RollbackTo(a.Mark)
	}
	return nil
}

func (a *DeleteAction) Release() {}

// UpdateAction reverts a successful update: copy the pre-image back over
// the tuple's current slot (newAddress, because the slot itself never
// moves for an update) and, if the update touched any index key, restore
// every index entry to the pre-image.
type UpdateAction struct {
	Indexes       *index.IndexSet
	Export        *export.Stream
	OldContents   *heap.Tuple // preserved pre-image, used both as restore source and as index key for ReplaceAll
	NewAddress    *heap.Tuple
	RevertIndexes bool
	Changed       []bool
	Mark          export.Mark
	HasMark       bool
}

func (a *UpdateAction) Undo() error {
	// Capture the post-update tuple's current key shape before
	// overwriting its values, so ReplaceAll can find its existing index
	// entries.
	postImage := a.NewAddress.Clone()
	a.NewAddress.Copy(a.OldContents)
	if a.RevertIndexes {
		if failed, ok := a.Indexes.ReplaceAll(postImage, a.NewAddress, a.Changed); !ok {
			return &CorruptionError{Reason: fmt.Sprintf("could not restore index entry in %q while reverting update", failed)}
		}
	}
	if a.HasMark && a.Export != nil {
		a.Export.RollbackTo(a.Mark)
	}
	return nil
}

func (a *UpdateAction) Release() {}
