// Package constraint implements the NOT NULL check persistenttable.cpp runs
// before every insert and update (checkNulls in the original; spec.md
// §4.3). Real constraint surfaces (CHECK, FOREIGN KEY, column defaults) are
// schema/planner concerns this core doesn't own.
package constraint

import (
	"fmt"

	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/schema"
	"github.com/leftmike/tuplestore/sql"
)

// NotNullError reports which column of which row violated its NOT NULL
// constraint, mirroring the original's per-column exception message.
type NotNullError struct {
	Column  sql.Identifier
	Ordinal int
}

func (e *NotNullError) Error() string {
	return fmt.Sprintf("tuplestore: column %s (%d) is not nullable", e.Column, e.Ordinal)
}

// Checker validates rows against a schema's column nullability.
type Checker struct {
	schema schema.Schema
}

func NewChecker(sc schema.Schema) *Checker {
	return &Checker{schema: sc}
}

// CheckNotNull reports the first NOT NULL violation found in t's values,
// scanning columns in order like the original's checkNulls loop.
func (c *Checker) CheckNotNull(t *heap.Tuple) error {
	for col := 0; col < c.schema.ColumnCount(); col++ {
		if c.schema.AllowNull(col) {
			continue
		}
		if col >= len(t.Values) || t.Values[col] == nil {
			return &NotNullError{Column: c.schema.ColumnName(col), Ordinal: col}
		}
	}
	return nil
}
