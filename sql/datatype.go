// Package sql holds the small set of value and type definitions that the
// table engine core needs from a schema layer. The concrete schema, tuple
// serialization, and byte layout are out of scope for this module (see
// SPEC_FULL.md §1); this package only carries what the core reads.
package sql

// DataType identifies the logical type of a column.
type DataType int

const (
	BooleanType DataType = iota + 1
	IntegerType
	FloatType
	StringType
	BytesType
)

func (dt DataType) String() string {
	switch dt {
	case BooleanType:
		return "BOOL"
	case IntegerType:
		return "INTEGER"
	case FloatType:
		return "FLOAT"
	case StringType:
		return "STRING"
	case BytesType:
		return "BYTES"
	}
	return "UNKNOWN"
}

// Identifier names a column, index, or table. It is a plain string rather
// than the teacher's interned-token Identifier: the parser/scanner that
// motivated interning is out of scope here.
type Identifier string
