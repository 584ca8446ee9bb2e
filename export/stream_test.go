package export_test

import (
	"testing"
	"time"

	"github.com/leftmike/tuplestore/export"
)

func TestAppendTupleAndTail(t *testing.T) {
	s := export.New()
	s.AppendTuple(0, 1, time.Time{}, []byte("a"), export.Insert)
	s.AppendTuple(0, 1, time.Time{}, []byte("b"), export.Delete)

	tail := s.Tail()
	if len(tail) != 2 {
		t.Fatalf("got %d records, want 2", len(tail))
	}
	if tail[0].Kind != export.Insert || tail[1].Kind != export.Delete {
		t.Errorf("unexpected kinds: %v, %v", tail[0].Kind, tail[1].Kind)
	}
	if tail[1].SeqNo <= tail[0].SeqNo {
		t.Errorf("seqNo not increasing: %d then %d", tail[0].SeqNo, tail[1].SeqNo)
	}
}

func TestRollbackToDiscardsMarkAndAfter(t *testing.T) {
	s := export.New()
	s.AppendTuple(0, 1, time.Time{}, []byte("a"), export.Insert)
	mark := s.AppendTuple(0, 1, time.Time{}, []byte("b"), export.Insert)
	s.AppendTuple(0, 1, time.Time{}, []byte("c"), export.Insert)

	s.RollbackTo(mark)

	tail := s.Tail()
	if len(tail) != 1 {
		t.Fatalf("got %d records after rollback, want 1", len(tail))
	}
	if string(tail[0].TupleBytes) != "a" {
		t.Errorf("surviving record = %q, want %q", tail[0].TupleBytes, "a")
	}
}

func TestResetPollMarkerEmptiesTail(t *testing.T) {
	s := export.New()
	s.AppendTuple(0, 1, time.Time{}, []byte("a"), export.Insert)
	s.ResetPollMarker()
	s.AppendTuple(0, 1, time.Time{}, []byte("b"), export.Insert)

	tail := s.Tail()
	if len(tail) != 1 || string(tail[0].TupleBytes) != "b" {
		t.Fatalf("got %v, want only the post-reset record", tail)
	}
}

func TestReleaseBytesBoundsCheck(t *testing.T) {
	s := export.New()
	s.AppendTuple(0, 1, time.Time{}, []byte("abcd"), export.Insert)

	if s.ReleaseBytes(100) {
		t.Error("ReleaseBytes should return false when offset exceeds committed bytes")
	}
	if !s.ReleaseBytes(4) {
		t.Error("ReleaseBytes should return true for an offset within committed bytes")
	}
	if got := s.GetCommittedBytes(); got != 0 {
		t.Errorf("committedBytes = %d, want 0", got)
	}
}

func TestRollbackToPastEndIsNoop(t *testing.T) {
	s := export.New()
	s.AppendTuple(0, 1, time.Time{}, []byte("a"), export.Insert)
	s.RollbackTo(export.Mark(50))

	if len(s.Tail()) != 1 {
		t.Error("RollbackTo past the end of the buffer must not discard anything")
	}
}
