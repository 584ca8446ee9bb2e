// Package cow implements CopyOnWriteContext (spec.md §4.9): a snapshot
// cursor that lets a consumer pull the exact multiset of tuples active at
// activation time while the writer keeps mutating the table. Grounded on
// the teacher's use of github.com/RoaringBitmap/roaring/v2 as a compact
// set of slot ordinals (hupe1980-vecgo/metadata/bitmap.go's LocalBitmap
// wrapper pattern), here tracking which activation-time slots still need
// to be shadowed or served live.
package cow

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/leftmike/tuplestore/heap"
)

// Context is one table's active copy-on-write snapshot, or nil-equivalent
// (IsActive() false) when none is in progress.
type Context struct {
	pending *roaring.Bitmap
	shadow  map[uint32]*heap.Tuple
	order   []*heap.Tuple
	pos     int
	active  bool
}

func New() *Context {
	return &Context{}
}

func (c *Context) IsActive() bool { return c.active }

// Activate captures the snapshot: every slot active in h right now becomes
// part of the traversal order and the pending set. It rejects activation
// if already active, and declines on an empty table, matching spec.md
// §4.9.
func (c *Context) Activate(h *heap.TupleHeap) bool {
	if c.active {
		return false
	}
	if h.ActiveCount() == 0 {
		return false
	}

	c.pending = roaring.New()
	c.shadow = make(map[uint32]*heap.Tuple)
	c.order = c.order[:0]

	it := h.NewIterator()
	for t, ok := it.Next(); ok; t, ok = it.Next() {
		c.pending.Add(t.Ordinal())
		c.order = append(c.order, t)
	}
	c.pos = 0
	c.active = true
	return true
}

// MarkDirty is consulted by every facade mutation before it touches a
// slot. isNew is true for a freshly-inserted tuple (never part of the
// snapshot, so nothing to shadow) and false for a slot the snapshot may
// still need to visit (update's or delete's target). It captures the
// pre-image into the snapshot's private shadow buffer and sets the slot's
// dirty flag so the cursor skips it on arrival (spec.md invariant I6).
func (c *Context) MarkDirty(t *heap.Tuple, isNew bool) {
	if !c.active {
		t.SetDirty(false)
		return
	}
	ord := t.Ordinal()
	if isNew {
		// A reused slot's ordinal may coincide with one still in the
		// pending set from before this insert's predecessor was
		// deleted; that delete already shadowed it. A brand-new
		// ordinal was never added to pending at all. Either way there
		// is nothing further to capture for the new tuple itself.
		t.SetDirty(true)
		return
	}
	if !c.pending.Contains(ord) {
		// Already shadowed, or was never part of the snapshot.
		return
	}
	c.shadow[ord] = t.Clone()
	c.pending.Remove(ord)
	t.SetDirty(true)
}

// SerializeMore writes up to limit tuples of the snapshot into out and
// reports whether more remain. Each activation-time slot is served either
// from its shadowed pre-image (if a mutation has since touched it) or
// read live (if untouched since activation, which is safe precisely
// because MarkDirty would have shadowed it first otherwise). When no
// tuples remain, the context tears itself down.
func (c *Context) SerializeMore(limit int) (out []*heap.Tuple, more bool) {
	if !c.active {
		return nil, false
	}
	for limit > 0 && c.pos < len(c.order) {
		t := c.order[c.pos]
		c.pos++
		if shadowed, ok := c.shadow[t.Ordinal()]; ok {
			out = append(out, shadowed)
		} else {
			out = append(out, t)
		}
		limit--
	}
	if c.pos >= len(c.order) {
		c.teardown()
		return out, false
	}
	return out, true
}

func (c *Context) teardown() {
	c.active = false
	c.pending = nil
	c.shadow = nil
	c.order = nil
	c.pos = 0
}
