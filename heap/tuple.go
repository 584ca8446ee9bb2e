package heap

import (
	"hash/fnv"

	"github.com/leftmike/tuplestore/schema"
	"github.com/leftmike/tuplestore/sql"
)

// Tuple is one physical slot. Its address (a *Tuple) is its identity:
// indexes store this pointer, and no operation may relocate a live tuple's
// bytes without rewriting every index entry that points at it (spec.md
// §3, invariant I1).
type Tuple struct {
	schema  schema.Schema
	ordinal uint32

	active  bool
	dirty   bool
	evicted bool

	Values  []sql.Value
	payload []byte // out-of-line column storage owned by this slot
}

// Ordinal is the slot's fixed position within the heap, used by the COW
// and recovery contexts to key their bookkeeping by slot rather than by
// pointer identity (a pointer survives a block's lifetime; an index into a
// bitmap needs a small integer).
func (t *Tuple) Ordinal() uint32 { return t.ordinal }

// NewScratch builds a detached, unindexed tuple carrying values and an
// out-of-line payload, for a caller (the facade) to pass as the source of
// an insert or update. It is never itself a heap slot and must never be
// registered with an index.
func NewScratch(values []sql.Value, payload []byte) *Tuple {
	return &Tuple{Values: values, payload: payload}
}

func (t *Tuple) IsActive() bool  { return t.active }
func (t *Tuple) SetActive(active bool) { t.active = active }
func (t *Tuple) IsDirty() bool   { return t.dirty }
func (t *Tuple) IsEvicted() bool { return t.evicted }

func (t *Tuple) SetDirty(dirty bool)     { t.dirty = dirty }
func (t *Tuple) SetEvicted(evicted bool) { t.evicted = evicted }

// CopyForInsert copies src's values into t and allocates a fresh
// out-of-line payload, mirroring TableTuple::copyForPersistentInsert.
func (t *Tuple) CopyForInsert(src *Tuple) {
	t.Values = append(make([]sql.Value, 0, len(src.Values)), src.Values...)
	t.payload = clonePayload(src.payload)
}

// CopyForUpdate is the update-path counterpart, kept distinct from
// CopyForInsert because a host schema layer may treat the two differently
// once it owns real byte layout; here the two are identical.
func (t *Tuple) CopyForUpdate(src *Tuple) {
	t.CopyForInsert(src)
}

// Copy is a plain in-place copy that does not allocate new out-of-line
// storage, used by undo replay which restores previously preserved bytes.
func (t *Tuple) Copy(src *Tuple) {
	t.Values = append(make([]sql.Value, 0, len(src.Values)), src.Values...)
	t.payload = src.payload
}

// Clone returns a fully independent copy for undo pre-image capture.
func (t *Tuple) Clone() *Tuple {
	c := &Tuple{schema: t.schema, ordinal: t.ordinal, active: t.active, dirty: t.dirty,
		evicted: t.evicted}
	c.Values = append(make([]sql.Value, 0, len(t.Values)), t.Values...)
	c.payload = clonePayload(t.payload)
	return c
}

func clonePayload(p []byte) []byte {
	if p == nil {
		return nil
	}
	return append([]byte(nil), p...)
}

// FreePayload releases the out-of-line column storage owned by this slot.
func (t *Tuple) FreePayload() {
	t.payload = nil
}

// SetPayload lets a caller (e.g. anti-cache eviction) attach raw bytes
// directly, bypassing schema-driven serialization, which is out of scope.
func (t *Tuple) SetPayload(p []byte) { t.payload = p }
func (t *Tuple) Payload() []byte     { return t.payload }

// Equal is value equality over the schema columns, ignoring slot flags;
// it backs lookupTuple's table-scan fallback (equalsNoSchemaCheck).
func (t *Tuple) Equal(o *Tuple) bool {
	if len(t.Values) != len(o.Values) {
		return false
	}
	for i := range t.Values {
		if sql.Compare(t.Values[i], o.Values[i]) != 0 {
			return false
		}
	}
	return true
}

// ContentHash folds a deterministic hash across the tuple's values, used by
// PersistentTable.HashCode.
func (t *Tuple) ContentHash() uint64 {
	h := fnv.New64a()
	for _, v := range t.Values {
		h.Write([]byte(sql.Format(v)))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func (t *Tuple) clear() {
	t.active = false
	t.dirty = false
	t.evicted = false
	t.Values = nil
	t.payload = nil
}
