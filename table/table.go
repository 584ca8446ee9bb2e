// Package table implements PersistentTable (spec.md §4.7, §4.8, §4.12): the
// facade binding TupleHeap, IndexSet, ConstraintChecker, the undo/export
// bindings, ViewDispatcher, CopyOnWriteContext, RecoveryContext, and the
// optional AntiCacheEvictor behind the public mutation and read API.
package table

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/leftmike/tuplestore/anticache"
	"github.com/leftmike/tuplestore/constraint"
	"github.com/leftmike/tuplestore/cow"
	"github.com/leftmike/tuplestore/export"
	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/index"
	"github.com/leftmike/tuplestore/schema"
	"github.com/leftmike/tuplestore/view"
)

// NotNullViolation and UniqueViolation are the two user-visible error
// kinds spec.md §7 names. A corrupted invariant is not reported as
// either: the facade and anticache log it through logrus's Fatal, which
// exits the process, and undo replay returns an undo.CorruptionError.
type NotNullViolation = constraint.NotNullError

// UniqueViolation reports which index rejected an insert or update.
type UniqueViolation struct {
	Index string
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("tuplestore: unique constraint violated on index %q", e.Index)
}

// PersistentTable is one schema'd, indexed table.
type PersistentTable struct {
	Name   string
	Schema schema.Schema

	heap    *heap.TupleHeap
	indexes *index.IndexSet
	checker *constraint.Checker

	export *export.Stream // nil: export disabled
	views  *view.Dispatcher
	cow    *cow.Context

	evictor        *anticache.Evictor // nil: anti-cache disabled
	primaryColumns []int

	log *logrus.Logger
}

// New builds a table over sc with primary as its designated primary-key
// index. blockSize <= 0 selects heap.DefaultBlockSize.
func New(name string, sc schema.Schema, blockSize int, primary index.Index) *PersistentTable {
	return &PersistentTable{
		Name:    name,
		Schema:  sc,
		heap:    heap.New(sc, blockSize),
		indexes: index.NewIndexSet(primary),
		checker: constraint.NewChecker(sc),
		views:   view.NewDispatcher(),
		cow:     cow.New(),
		log:     logrus.StandardLogger(),
	}
}

func (t *PersistentTable) SetLogger(log *logrus.Logger) {
	t.log = log
	t.heap.SetLogger(log)
}

func (t *PersistentTable) AddSecondaryIndex(idx index.Index) {
	t.indexes.AddSecondary(idx)
}

// EnableExport binds an export stream to this table. Tables created
// without calling this never append export records.
func (t *PersistentTable) EnableExport(stream *export.Stream) {
	t.export = stream
}

// EnableAntiCache binds an eviction engine, identified by the columns of
// this table's primary key, to this table.
func (t *PersistentTable) EnableAntiCache(evictor *anticache.Evictor, primaryColumns []int) {
	t.evictor = evictor
	t.primaryColumns = primaryColumns
}

func (t *PersistentTable) RegisterView(v view.View) {
	t.views.Register(v)
}

func (t *PersistentTable) Indexes() *index.IndexSet { return t.indexes }
func (t *PersistentTable) Heap() *heap.TupleHeap     { return t.heap }
func (t *PersistentTable) Evictor() *anticache.Evictor { return t.evictor }

// ActiveTupleCount is the observable counter spec.md §6 names.
func (t *PersistentTable) ActiveTupleCount() int { return t.heap.ActiveCount() }

// ActivateCopyOnWrite starts a snapshot over the table's current contents
// (spec.md §4.9).
func (t *PersistentTable) ActivateCopyOnWrite() bool {
	return t.cow.Activate(t.heap)
}

// SerializeMore pulls the next chunk of the active snapshot.
func (t *PersistentTable) SerializeMore(limit int) ([]*heap.Tuple, bool) {
	return t.cow.SerializeMore(limit)
}

// Close mirrors the original's destructor-time cleanup
// (PersistentTable::~PersistentTable, SPEC_FULL.md §11): every still-active
// slot has its out-of-line payload freed and is marked deleted, without
// touching indexes, since indexes don't own payload bytes and the whole
// table (and its indexes) is being discarded anyway. Registered views are
// closed in registration order.
func (t *PersistentTable) Close() {
	it := t.heap.NewIterator()
	for tp, ok := it.Next(); ok; tp, ok = it.Next() {
		tp.FreePayload()
		tp.SetActive(false)
	}
	t.views.Close()
}
