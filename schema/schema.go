// Package schema defines the contract the table engine core consumes for
// column metadata. Concrete schema management, tuple serialization, and
// byte layout belong to a host system and are out of scope here (spec.md
// §1); this package only carries the "Inbound: Schema" interface from
// spec.md §6 plus a Simple implementation used by tests and examples.
package schema

import "github.com/leftmike/tuplestore/sql"

// Schema is the read-only column metadata a table is built against.
type Schema interface {
	ColumnCount() int
	ColumnName(col int) sql.Identifier
	ColumnType(col int) sql.DataType
	AllowNull(col int) bool

	// TupleLength is the fixed width, in bytes, of one physical tuple slot,
	// out-of-line variable length columns excluded. It sizes TupleHeap
	// blocks.
	TupleLength() int
}

// Column describes one column when building a Simple schema.
type Column struct {
	Name       sql.Identifier
	Type       sql.DataType
	AllowNull  bool
	FixedWidth int // contribution to TupleLength; out-of-line columns pass 0
}

// Simple is a fixed, in-memory Schema, sufficient for the core's own tests
// and for embedding this package as a library.
type Simple struct {
	columns []Column
	length  int
}

func NewSimple(columns []Column) *Simple {
	length := 0
	for _, c := range columns {
		length += c.FixedWidth
	}
	return &Simple{columns: append([]Column(nil), columns...), length: length}
}

func (s *Simple) ColumnCount() int { return len(s.columns) }

func (s *Simple) ColumnName(col int) sql.Identifier { return s.columns[col].Name }

func (s *Simple) ColumnType(col int) sql.DataType { return s.columns[col].Type }

func (s *Simple) AllowNull(col int) bool { return s.columns[col].AllowNull }

func (s *Simple) TupleLength() int { return s.length }
