// Package anticache implements AntiCacheEvictor (spec.md §4.11): migrating
// cold tuples to external block storage and leaving a surrogate row behind
// that every index, not just the primary key, keeps resolving to, carrying
// the external block id. Optional feature — a table with no BlockStore
// bound simply never calls into this package.
package anticache

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/index"
	"github.com/leftmike/tuplestore/sql"
)

// SurrogateBlockID resolves spec.md §9's open question about the evicted
// surrogate's block-id width: a uint64, not the original's narrow
// SmallInt, since the original's own comment flags that width as buggy
// for any realistic external block address space (SPEC_FULL.md §12).
type SurrogateBlockID = uint64

// BlockStore is the external, disk-backed block storage the core only
// calls through this interface (spec.md §1's scope boundary); the actual
// storage engine is out of scope.
type BlockStore interface {
	NewBlockID(tableName string) (SurrogateBlockID, error)
	WriteBlock(tableName string, blockID SurrogateBlockID, tupleCount int, data []byte) error
	ReadBlock(tableName string, blockID SurrogateBlockID) ([]byte, error)
}

// blockHeaderFixedLen is the fixed-width part (blockID, tupleCount,
// byteLength) of the header anticache.Evictor.EvictBlock writes ahead of
// the raw tuple bytes, after a length-prefixed tableName, closing the original's TODO about a
// missing block header (SPEC_FULL.md §11). encoding/binary is used here
// rather than a third-party codec because no serialization library
// survived into this core's dependency set (protobuf was dropped — see
// DESIGN.md — since there is no schema-metadata persistence concern left
// to serialize beyond this one small, fixed header).
const blockHeaderFixedLen = 8 + 8 + 8 // blockID + tupleCount + byteLength

func encodeHeader(tableName string, blockID SurrogateBlockID, tupleCount, byteLength int) []byte {
	nameBytes := []byte(tableName)
	buf := make([]byte, 2+len(nameBytes)+blockHeaderFixedLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(nameBytes)))
	copy(buf[2:], nameBytes)
	off := 2 + len(nameBytes)
	binary.BigEndian.PutUint64(buf[off:], blockID)
	binary.BigEndian.PutUint64(buf[off+8:], uint64(tupleCount))
	binary.BigEndian.PutUint64(buf[off+16:], uint64(byteLength))
	return buf
}

// Header is a decoded block header, returned by ReadEvictedBlock alongside
// the raw tuple bytes.
type Header struct {
	TableName  string
	BlockID    SurrogateBlockID
	TupleCount int
	ByteLength int
}

// encodeBlockID and BlockIDOf carry a surrogate row's block id in its
// payload rather than as a value column, since a surrogate's Values must
// mirror the original row's own column layout (see EvictBlock).
func encodeBlockID(blockID SurrogateBlockID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, blockID)
	return buf
}

// BlockIDOf decodes the block id a surrogate row was stamped with by
// EvictBlock.
func BlockIDOf(surrogate *heap.Tuple) SurrogateBlockID {
	return binary.BigEndian.Uint64(surrogate.Payload())
}

func decodeHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < 2 {
		return Header{}, nil, fmt.Errorf("tuplestore: anticache: block too short for header")
	}
	nameLen := int(binary.BigEndian.Uint16(buf[0:2]))
	if len(buf) < 2+nameLen+blockHeaderFixedLen {
		return Header{}, nil, fmt.Errorf("tuplestore: anticache: truncated block header")
	}
	name := string(buf[2 : 2+nameLen])
	off := 2 + nameLen
	h := Header{
		TableName:  name,
		BlockID:    binary.BigEndian.Uint64(buf[off:]),
		TupleCount: int(binary.BigEndian.Uint64(buf[off+8:])),
		ByteLength: int(binary.BigEndian.Uint64(buf[off+16:])),
	}
	return h, buf[off+blockHeaderFixedLen:], nil
}

// Evictor is one table's anti-cache eviction/merge engine, bound to the
// table's own heap/indexes plus a separate EvictedTable heap/indexes that
// hold the surrogate rows. evictedIndexes' own primary index must be keyed
// on the same columns as primaryColumns: a surrogate row's Values mirror
// the main table's layout (EvictBlock), so the evicted table's own pk
// scheme has to agree with where those columns actually live.
type Evictor struct {
	tableName      string
	primaryColumns []int

	mainHeap    *heap.TupleHeap
	mainIndexes *index.IndexSet

	evictedHeap    *heap.TupleHeap
	evictedIndexes *index.IndexSet

	store BlockStore
	log   *logrus.Logger

	tuplesEvicted uint64
	blocksEvicted uint64
	bytesEvicted  uint64
}

func NewEvictor(tableName string, primaryColumns []int, mainHeap *heap.TupleHeap,
	mainIndexes *index.IndexSet, evictedHeap *heap.TupleHeap, evictedIndexes *index.IndexSet,
	store BlockStore) *Evictor {
	return &Evictor{
		tableName:      tableName,
		primaryColumns: primaryColumns,
		mainHeap:       mainHeap,
		mainIndexes:    mainIndexes,
		evictedHeap:    evictedHeap,
		evictedIndexes: evictedIndexes,
		store:          store,
		log:            logrus.StandardLogger(),
	}
}

func (e *Evictor) SetLogger(log *logrus.Logger) { e.log = log }

// EvictBlock accumulates cold tuples until their combined payload size
// would exceed byteBudget (the first tuple is always taken, even if its
// payload alone exceeds the budget), migrates each into a surrogate row pointing at
// a freshly allocated external block, and writes the block (spec.md
// §4.11). Eviction is not transactional: there is no undo record for any
// part of this.
func (e *Evictor) EvictBlock(byteBudget int) (SurrogateBlockID, error) {
	blockID, err := e.store.NewBlockID(e.tableName)
	if err != nil {
		return 0, fmt.Errorf("tuplestore: anticache: allocating block id: %w", err)
	}

	var chosen []*heap.Tuple
	var payload []byte
	it := e.mainHeap.NewIterator()
	for t, ok := it.Next(); ok; t, ok = it.Next() {
		if t.IsEvicted() {
			continue
		}
		if len(payload)+len(t.Payload()) > byteBudget && len(chosen) > 0 {
			break
		}
		chosen = append(chosen, t)
		payload = append(payload, t.Payload()...)
	}

	for _, t := range chosen {
		surrogate := e.evictedHeap.NextFreeSlot()
		// The surrogate carries the full row, not just primaryColumns: a
		// secondary index's RewriteAddressAll needs to compute its key the
		// same way it would from the original row, and that key can live
		// in any column, not only the ones primaryColumns names. The block
		// id travels in the surrogate's payload instead of as a trailing
		// column, since it isn't part of the row's own schema.
		surrogate.Values = append([]sql.Value(nil), t.Values...)
		surrogate.SetPayload(encodeBlockID(blockID))
		surrogate.SetActive(true)

		if failed, ok := e.evictedIndexes.InsertAll(surrogate); !ok {
			e.log.WithFields(logrus.Fields{"table": e.tableName, "index": failed}).
				Fatal("tuplestore: anticache: could not insert eviction surrogate")
		}

		t.SetEvicted(true)
		e.mainIndexes.RewriteAddressAll(t, surrogate)
		e.mainHeap.Release(t, true)
	}

	header := encodeHeader(e.tableName, blockID, len(chosen), len(payload))
	if err := e.store.WriteBlock(e.tableName, blockID, len(chosen), append(header, payload...)); err != nil {
		return blockID, fmt.Errorf("tuplestore: anticache: writing block: %w", err)
	}

	e.tuplesEvicted += uint64(len(chosen))
	e.blocksEvicted++
	e.bytesEvicted += uint64(len(payload))
	return blockID, nil
}

// ReadEvictedBlock fetches a block and returns its decoded header plus the
// raw tuple bytes that follow it, for a caller to re-materialize into
// tuples (schema-driven deserialization is out of scope for this core).
func (e *Evictor) ReadEvictedBlock(blockID SurrogateBlockID) (Header, []byte, error) {
	raw, err := e.store.ReadBlock(e.tableName, blockID)
	if err != nil {
		return Header{}, nil, fmt.Errorf("tuplestore: anticache: reading block: %w", err)
	}
	return decodeHeader(raw)
}

// MergeUnevictedTuples re-integrates staged tuples (already reconstructed
// by the caller from ReadEvictedBlock's payload) back into the main heap,
// resolving spec.md §9's open question: for each staged tuple, find its
// surrogate by primary key, allocate a fresh slot, copy the staged
// contents in, repoint every index entry (including the primary key) from
// the surrogate to the new address, clear the evicted flag, delete the
// surrogate row, and decrement the eviction counters. Not transactional,
// matching eviction's own non-transactional treatment.
//
// RewriteAddressAll keys off the surrogate itself here, which is only
// correct because the surrogate carries the full row (see EvictBlock) -
// every index, not just the primary key, needs its own key column
// present to find the entry eviction repointed at the surrogate.
func (e *Evictor) MergeUnevictedTuples(staged []*heap.Tuple) error {
	primary := e.evictedIndexes.Primary()
	if primary == nil {
		return fmt.Errorf("tuplestore: anticache: no primary index on evicted table")
	}

	for _, s := range staged {
		probe := &heap.Tuple{Values: pkValues(s.Values, e.primaryColumns)}
		if !primary.MoveToTuple(probe) {
			return fmt.Errorf("tuplestore: anticache: no surrogate found for merged tuple")
		}
		surrogate, found := primary.NextValueAtKey()
		if !found {
			return fmt.Errorf("tuplestore: anticache: no surrogate found for merged tuple")
		}

		newSlot := e.mainHeap.NextFreeSlot()
		newSlot.Copy(s)
		newSlot.SetActive(true)
		newSlot.SetEvicted(false)

		e.mainIndexes.RewriteAddressAll(surrogate, newSlot)
		if failed, ok := e.evictedIndexes.DeleteAll(surrogate); !ok {
			return fmt.Errorf("tuplestore: anticache: could not deindex surrogate from %q", failed)
		}
		e.evictedHeap.Release(surrogate, true)

		e.tuplesEvicted--
		e.bytesEvicted -= uint64(len(newSlot.Payload()))
	}
	return nil
}

func pkValues(values []sql.Value, primaryColumns []int) []sql.Value {
	out := make([]sql.Value, len(values))
	for _, col := range primaryColumns {
		out[col] = values[col]
	}
	return out
}

// TuplesEvicted, BlocksEvicted, BytesEvicted are the observable counters
// spec.md §6 names.
func (e *Evictor) TuplesEvicted() uint64 { return e.tuplesEvicted }
func (e *Evictor) BlocksEvicted() uint64 { return e.blocksEvicted }
func (e *Evictor) BytesEvicted() uint64  { return e.bytesEvicted }
