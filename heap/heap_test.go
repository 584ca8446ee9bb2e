package heap_test

import (
	"testing"

	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/schema"
	"github.com/leftmike/tuplestore/sql"
)

func testSchema() schema.Schema {
	return schema.NewSimple([]schema.Column{
		{Name: "id", Type: sql.IntegerType, FixedWidth: 8},
	})
}

func TestFreeListReuse(t *testing.T) {
	h := heap.New(testSchema(), 4)

	a := h.NextFreeSlot()
	a.SetActive(true)
	if got := h.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount = %d, want 1", got)
	}

	h.Release(a, true)
	if got := h.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount after release = %d, want 0", got)
	}

	b := h.NextFreeSlot()
	if b != a {
		t.Fatalf("expected free-list reuse to return the same slot address")
	}
	if b.IsActive() {
		t.Fatalf("reused slot must start inactive until the caller marks it active")
	}
}

func TestBlockGrowth(t *testing.T) {
	h := heap.New(testSchema(), 2)
	var slots []*heap.Tuple
	for i := 0; i < 5; i++ {
		s := h.NextFreeSlot()
		s.SetActive(true)
		slots = append(slots, s)
	}
	if got := h.ActiveCount(); got != 5 {
		t.Fatalf("ActiveCount = %d, want 5", got)
	}
	seen := make(map[*heap.Tuple]bool)
	for _, s := range slots {
		if seen[s] {
			t.Fatalf("duplicate slot address returned across a block boundary")
		}
		seen[s] = true
	}
}

func TestIteratorSkipsInactive(t *testing.T) {
	h := heap.New(testSchema(), 4)
	a := h.NextFreeSlot()
	a.SetActive(true)
	a.Values = []sql.Value{sql.Int64Value(1)}

	b := h.NextFreeSlot()
	b.SetActive(true)
	b.Values = []sql.Value{sql.Int64Value(2)}

	h.Release(a, true)

	it := h.NewIterator()
	var got []sql.Value
	for tp, ok := it.Next(); ok; tp, ok = it.Next() {
		got = append(got, tp.Values[0])
	}
	if len(got) != 1 || got[0] != sql.Int64Value(2) {
		t.Fatalf("iterator yielded %v, want only [2]", got)
	}
}

func TestBulkAppend(t *testing.T) {
	h := heap.New(testSchema(), 4)
	slots := h.BulkAppend(3)
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	if got := h.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}
}

func TestContentHashStableAcrossClone(t *testing.T) {
	tup := heap.NewScratch([]sql.Value{sql.Int64Value(7), sql.StringValue("x")}, nil)
	clone := tup.Clone()
	if tup.ContentHash() != clone.ContentHash() {
		t.Fatalf("content hash changed across Clone")
	}
}
