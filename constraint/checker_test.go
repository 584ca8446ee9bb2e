package constraint_test

import (
	"testing"

	"github.com/leftmike/tuplestore/constraint"
	"github.com/leftmike/tuplestore/heap"
	"github.com/leftmike/tuplestore/schema"
	"github.com/leftmike/tuplestore/sql"
)

func checkerSchema(allowNullA bool) schema.Schema {
	return schema.NewSimple([]schema.Column{
		{Name: "id", Type: sql.IntegerType, AllowNull: false, FixedWidth: 8},
		{Name: "a", Type: sql.IntegerType, AllowNull: allowNullA, FixedWidth: 8},
	})
}

func TestCheckNotNullPasses(t *testing.T) {
	c := constraint.NewChecker(checkerSchema(false))
	tup := heap.NewScratch([]sql.Value{sql.Int64Value(1), sql.Int64Value(2)}, nil)
	if err := c.CheckNotNull(tup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckNotNullReportsFirstViolation(t *testing.T) {
	c := constraint.NewChecker(checkerSchema(false))
	tup := heap.NewScratch([]sql.Value{nil, sql.Int64Value(2)}, nil)
	err := c.CheckNotNull(tup)
	nnErr, ok := err.(*constraint.NotNullError)
	if !ok {
		t.Fatalf("expected *constraint.NotNullError, got %v (%T)", err, err)
	}
	if nnErr.Ordinal != 0 || nnErr.Column != "id" {
		t.Errorf("got column %q ordinal %d, want id/0", nnErr.Column, nnErr.Ordinal)
	}
}

func TestCheckNotNullAllowsNullableColumn(t *testing.T) {
	c := constraint.NewChecker(checkerSchema(true))
	tup := heap.NewScratch([]sql.Value{sql.Int64Value(1), nil}, nil)
	if err := c.CheckNotNull(tup); err != nil {
		t.Fatalf("unexpected error for a nullable column: %v", err)
	}
}
