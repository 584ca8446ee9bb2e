// Package recovery implements RecoveryContext (spec.md §4.10): a one-shot
// producer that streams a table's contents as typed messages for a
// catching-up replica, and the consumer-side handler that replays those
// messages into a fresh table without going through the facade's view or
// export paths.
package recovery

import (
	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/index"
)

// Kind identifies a recovery message's payload shape. SCAN_TUPLES is the
// only kind the source defines; spec.md §6 names it explicitly.
type Kind int

const (
	ScanTuples Kind = iota
)

// Message is one unit of the recovery stream.
type Message struct {
	Kind            Kind
	TotalTupleCount int
	Tuples          []*heap.Tuple
}

// Producer streams a table's active tuples in heap order, batched into
// messages of at most batchSize tuples.
type Producer struct {
	it         *heap.Iterator
	batchSize  int
	totalCount int
	active     bool
}

func NewProducer(h *heap.TupleHeap, batchSize int) *Producer {
	if batchSize <= 0 {
		batchSize = 256
	}
	return &Producer{
		it:         h.NewIterator(),
		batchSize:  batchSize,
		totalCount: h.ActiveCount(),
		active:     true,
	}
}

// NextMessage writes one message and reports whether more remain. When it
// returns false, the producer has torn itself down.
func (p *Producer) NextMessage() (Message, bool) {
	if !p.active {
		return Message{}, false
	}
	var batch []*heap.Tuple
	for len(batch) < p.batchSize {
		t, ok := p.it.Next()
		if !ok {
			break
		}
		batch = append(batch, t)
	}
	msg := Message{Kind: ScanTuples, TotalTupleCount: p.totalCount, Tuples: batch}
	if len(batch) < p.batchSize {
		p.active = false
		return msg, false
	}
	return msg, true
}

// ProcessMessage replays one recovery message into h/indexes, bulk-loading
// tuples without emitting view or export events (spec.md §4.10). On an
// empty table it pre-sizes every index from the message's declared total
// before loading the first batch.
func ProcessMessage(msg Message, h *heap.TupleHeap, indexes *index.IndexSet) {
	switch msg.Kind {
	case ScanTuples:
		if h.ActiveCount() == 0 && msg.TotalTupleCount > 0 {
			indexes.EnsureCapacity(msg.TotalTupleCount)
		}
		if len(msg.Tuples) == 0 {
			return
		}
		slots := h.BulkAppend(len(msg.Tuples))
		for i, src := range msg.Tuples {
			slots[i].Copy(src)
			slots[i].SetActive(true)
		}
		indexes.BulkLoad(slots)
	}
}
