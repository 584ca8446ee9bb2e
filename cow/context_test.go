package cow_test

import (
	"testing"

	"github.com/leftmike/tuplestore/cow"
	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/sql"
)

func TestActivateDeclinesOnEmptyTable(t *testing.T) {
	h := heap.New(nil, 4)
	c := cow.New()
	if c.Activate(h) {
		t.Error("Activate should decline on an empty table")
	}
	if c.IsActive() {
		t.Error("IsActive should be false after a declined activation")
	}
}

func TestActivateRejectsWhenAlreadyActive(t *testing.T) {
	h := heap.New(nil, 4)
	s := h.NextFreeSlot()
	s.SetActive(true)

	c := cow.New()
	if !c.Activate(h) {
		t.Fatal("first Activate should succeed")
	}
	if c.Activate(h) {
		t.Error("Activate should reject a second activation while already active")
	}
}

func TestSerializeMoreServesShadowedPreImage(t *testing.T) {
	h := heap.New(nil, 4)
	s := h.NextFreeSlot()
	s.SetActive(true)
	s.Values = []sql.Value{sql.Int64Value(1)}

	c := cow.New()
	if !c.Activate(h) {
		t.Fatal("Activate should succeed on a non-empty table")
	}

	c.MarkDirty(s, false)
	s.Values = []sql.Value{sql.Int64Value(99)}

	out, more := c.SerializeMore(64)
	if more {
		t.Error("expected no more tuples after draining the single-slot snapshot")
	}
	if len(out) != 1 || out[0].Values[0] != sql.Int64Value(1) {
		t.Fatalf("got %v, want the pre-mutation shadowed value 1", out)
	}
}

func TestSerializeMoreTearsDownOnExhaustion(t *testing.T) {
	h := heap.New(nil, 4)
	s := h.NextFreeSlot()
	s.SetActive(true)

	c := cow.New()
	c.Activate(h)
	c.SerializeMore(64)

	if c.IsActive() {
		t.Error("context should no longer be active once the snapshot is drained")
	}
}

func TestMarkDirtyClearsDirtyWhenInactive(t *testing.T) {
	c := cow.New()
	s := heap.NewScratch([]sql.Value{sql.Int64Value(1)}, nil)
	s.SetDirty(true)
	c.MarkDirty(s, false)
	if s.IsDirty() {
		t.Error("MarkDirty on an inactive context should clear the dirty flag, not set it")
	}
}
