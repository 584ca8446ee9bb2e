// Package view implements the ViewDispatcher fan-out (spec.md §4.6): every
// registered materialized view gets exactly one OnInsert/OnUpdate/OnDelete
// callback per successful user-initiated mutation, and none for
// undo-initiated ones.
package view

import "github.com/leftmike/tuplestore/heap"

// View is a materialized-view listener. Real view maintenance (computing
// the view's own rows) is out of scope; the core only fires these
// callbacks at the right moments.
type View interface {
	OnInsert(newTuple *heap.Tuple)
	OnUpdate(oldTuple, newTuple *heap.Tuple)
	OnDelete(oldTuple *heap.Tuple)
	Close()
}

// Dispatcher fans out facade mutation events to every registered View.
type Dispatcher struct {
	views []View
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Register(v View) {
	d.views = append(d.views, v)
}

func (d *Dispatcher) OnInsert(newTuple *heap.Tuple) {
	for _, v := range d.views {
		v.OnInsert(newTuple)
	}
}

func (d *Dispatcher) OnUpdate(oldTuple, newTuple *heap.Tuple) {
	for _, v := range d.views {
		v.OnUpdate(oldTuple, newTuple)
	}
}

func (d *Dispatcher) OnDelete(oldTuple *heap.Tuple) {
	for _, v := range d.views {
		v.OnDelete(oldTuple)
	}
}

// Close tears down every registered view, in registration order.
func (d *Dispatcher) Close() {
	for _, v := range d.views {
		v.Close()
	}
	d.views = nil
}
