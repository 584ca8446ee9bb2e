package index_test

import (
	"testing"

	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/index"
	"github.com/leftmike/tuplestore/sql"
)

func tupleWith(id, a int64) *heap.Tuple {
	return heap.NewScratch([]sql.Value{sql.Int64Value(id), sql.Int64Value(a)}, nil)
}

func uniqueScheme() index.Scheme {
	return index.Scheme{Name: "pk", Columns: []int{0}, Unique: true}
}

func nonUniqueScheme() index.Scheme {
	return index.Scheme{Name: "by_a", Columns: []int{1}, Unique: false}
}

func TestOrderedUniqueRejectsDuplicateKey(t *testing.T) {
	oi := index.NewOrdered(uniqueScheme())
	a := tupleWith(1, 10)
	b := tupleWith(1, 20)

	if !oi.AddEntry(a) {
		t.Fatal("first AddEntry should succeed")
	}
	if oi.AddEntry(b) {
		t.Fatal("AddEntry with a duplicate unique key should fail")
	}
}

func TestOrderedNonUniqueHoldsDuplicates(t *testing.T) {
	oi := index.NewOrdered(nonUniqueScheme())
	a := tupleWith(1, 10)
	b := tupleWith(2, 10)

	if !oi.AddEntry(a) || !oi.AddEntry(b) {
		t.Fatal("non-unique index should accept both entries")
	}

	if !oi.MoveToTuple(tupleWith(0, 10)) {
		t.Fatal("MoveToTuple should find entries at key 10")
	}
	var got []*heap.Tuple
	for tp, ok := oi.NextValueAtKey(); ok; tp, ok = oi.NextValueAtKey() {
		got = append(got, tp)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries at key, want 2", len(got))
	}
}

func TestOrderedDeleteAndReplace(t *testing.T) {
	oi := index.NewOrdered(uniqueScheme())
	a := tupleWith(1, 10)
	if !oi.AddEntry(a) {
		t.Fatal("AddEntry failed")
	}
	if !oi.DeleteEntry(a) {
		t.Fatal("DeleteEntry should succeed for an existing entry")
	}
	if oi.Exists(a) {
		t.Fatal("Exists should be false after delete")
	}

	// ReplaceEntry takes a detached pre-image as oldT and the indexed
	// tuple, now holding its new values, as newT.
	b := tupleWith(2, 10)
	c := tupleWith(2, 10)
	oi.AddEntry(b)
	b.Values = []sql.Value{sql.Int64Value(3), sql.Int64Value(10)}
	if !oi.ReplaceEntry(c, b) {
		t.Fatal("ReplaceEntry should succeed")
	}
	if !oi.Exists(b) {
		t.Fatal("Exists should report the replacement's key")
	}
}

func TestOrderedCheckForIndexChange(t *testing.T) {
	oi := index.NewOrdered(nonUniqueScheme())
	old := tupleWith(1, 10)
	same := tupleWith(2, 10)
	changed := tupleWith(3, 20)

	if oi.CheckForIndexChange(old, same) {
		t.Error("same indexed column value should report no change")
	}
	if !oi.CheckForIndexChange(old, changed) {
		t.Error("different indexed column value should report a change")
	}
}

func TestOrderedIterateInKeyOrder(t *testing.T) {
	oi := index.NewOrdered(uniqueScheme())
	ids := []int64{3, 1, 2}
	for _, id := range ids {
		oi.AddEntry(tupleWith(id, id))
	}

	var got []int64
	oi.IterateInKeyOrder(func(t *heap.Tuple) bool {
		got = append(got, int64(t.Values[0].(sql.Int64Value)))
		return true
	})
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
