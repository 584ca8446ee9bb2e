// Package heap implements TupleHeap (spec.md §4.1): a fixed-block slot
// allocator with free-list reuse and per-slot active/dirty/evicted flags.
// A slot's Go pointer is its stable address (spec.md §3): blocks are
// allocated once at a fixed size and never resized, so a *Tuple handed out
// by NextFreeSlot never moves for as long as the block it lives in exists.
package heap

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/sirupsen/logrus"

	"github.com/leftmike/tuplestore/schema"
)

// DefaultBlockSize mirrors the teacher's TABLE_BLOCKSIZE-style constant: a
// round number of slots per block, not a byte budget, since this core does
// not own tuple byte layout.
const DefaultBlockSize = 1024

type block struct {
	tuples []Tuple
	used   int
}

// TupleHeap is the fixed-size block allocator described in spec.md §4.1.
type TupleHeap struct {
	schema    schema.Schema
	blockSize int
	blocks    []*block
	freeList  []*Tuple
	active    *roaring.Bitmap
	log       *logrus.Logger
}

func New(sc schema.Schema, blockSize int) *TupleHeap {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &TupleHeap{
		schema:    sc,
		blockSize: blockSize,
		active:    roaring.New(),
		log:       logrus.StandardLogger(),
	}
}

// SetLogger overrides the default logrus logger, letting tests capture
// fatal-allocation diagnostics.
func (h *TupleHeap) SetLogger(log *logrus.Logger) { h.log = log }

func (h *TupleHeap) newBlock() *block {
	idx := len(h.blocks)
	b := &block{tuples: make([]Tuple, h.blockSize)}
	for i := range b.tuples {
		b.tuples[i].schema = h.schema
		b.tuples[i].ordinal = uint32(idx*h.blockSize + i)
	}
	h.blocks = append(h.blocks, b)
	return b
}

// NextFreeSlot returns a cleared slot: popped from the free list if
// non-empty, else bump-allocated from the current block, extending with a
// new block when full. Out-of-memory during block allocation is fatal
// (spec.md §4.1): a panic while allocating a later block is recovered and
// reported through logrus's Fatal, which logs and exits the process.
func (h *TupleHeap) NextFreeSlot() *Tuple {
	if n := len(h.freeList); n > 0 {
		t := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.active.Add(t.ordinal)
		return t
	}

	var b *block
	if len(h.blocks) == 0 {
		b = h.newBlock()
	} else {
		b = h.blocks[len(h.blocks)-1]
		if b.used == h.blockSize {
			b = h.allocateBlock()
		}
	}

	t := &b.tuples[b.used]
	b.used++
	h.active.Add(t.ordinal)
	return t
}

func (h *TupleHeap) allocateBlock() *block {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("blocks", len(h.blocks)).Fatal("tuplestore: heap: out of memory allocating block")
		}
	}()
	return h.newBlock()
}

// Release clears the slot, optionally frees its out-of-line payload, and
// pushes it onto the free list. The caller must have already removed the
// slot's entries from every index (spec.md §4.1).
func (h *TupleHeap) Release(t *Tuple, freePayload bool) {
	h.active.Remove(t.ordinal)
	if freePayload {
		t.FreePayload()
	}
	t.clear()
	h.freeList = append(h.freeList, t)
}

// ActiveCount is the number of currently active slots (invariant I5: it
// must equal the table's tuple count).
func (h *TupleHeap) ActiveCount() int {
	return int(h.active.GetCardinality())
}

// BulkAppend allocates n consecutive fresh slots by bump pointer only,
// ignoring the free list, for the recovery bulk-load path (SPEC_FULL.md
// §11, grounded on the original's populateIndexes/loadTuplesFrom).
func (h *TupleHeap) BulkAppend(n int) []*Tuple {
	out := make([]*Tuple, 0, n)
	for i := 0; i < n; i++ {
		var b *block
		if len(h.blocks) == 0 {
			b = h.newBlock()
		} else {
			b = h.blocks[len(h.blocks)-1]
			if b.used == h.blockSize {
				b = h.allocateBlock()
			}
		}
		t := &b.tuples[b.used]
		b.used++
		h.active.Add(t.ordinal)
		out = append(out, t)
	}
	return out
}

// Iterator yields every currently active slot in heap order. The order is
// stable in the absence of mutation but not otherwise meaningful (spec.md
// §4.1).
type Iterator struct {
	h        *TupleHeap
	blockIdx int
	slotIdx  int
}

func (h *TupleHeap) NewIterator() *Iterator {
	return &Iterator{h: h}
}

// Next advances to the next active slot and returns it, or returns
// (nil, false) when iteration is complete.
func (it *Iterator) Next() (*Tuple, bool) {
	h := it.h
	for it.blockIdx < len(h.blocks) {
		b := h.blocks[it.blockIdx]
		for it.slotIdx < b.used {
			t := &b.tuples[it.slotIdx]
			it.slotIdx++
			if t.active {
				return t, true
			}
		}
		it.blockIdx++
		it.slotIdx = 0
	}
	return nil, false
}
