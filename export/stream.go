// Package export implements the ExportStream binding (spec.md §4.5): an
// append-and-rollback wrapper around a downstream change log, grounded on
// the teacher's storage/rowcols/wal.go append-record/truncate-to-offset
// pattern (writeCommit and its rollback-by-truncation companion).
package export

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Kind distinguishes an export record's row-level change type.
type Kind int

const (
	Insert Kind = iota
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Record is one row-level change entry, matching spec.md §6's outbound
// export record shape.
type Record struct {
	LastCommittedTxnID int64
	TxnID              int64
	SeqNo              int64
	Timestamp          time.Time
	TupleBytes         []byte
	Kind               Kind
}

// Mark is a monotonic offset into the stream's record buffer. AppendTuple
// returns the mark of the record it is about to append (its index), so
// RollbackTo(mark) truncates that record and everything after it, per
// spec.md §4.5.
type Mark int

// Stream is the append-only, rollback-capable export buffer a table drives
// through the facade's mutation path.
type Stream struct {
	records        []Record
	seq            int64
	committedBytes int64
	pollMarker     Mark
	log            *logrus.Logger
}

func New() *Stream {
	return &Stream{log: logrus.StandardLogger()}
}

func (s *Stream) SetLogger(log *logrus.Logger) { s.log = log }

// AppendTuple appends one record and returns the mark identifying its
// position, for later rollback.
func (s *Stream) AppendTuple(lastCommittedTxnID, txnID int64, timestamp time.Time,
	tupleBytes []byte, kind Kind) Mark {
	mark := Mark(len(s.records))
	s.seq++
	s.records = append(s.records, Record{
		LastCommittedTxnID: lastCommittedTxnID,
		TxnID:              txnID,
		SeqNo:              s.seq,
		Timestamp:          timestamp,
		TupleBytes:         tupleBytes,
		Kind:               kind,
	})
	s.committedBytes += int64(len(tupleBytes))
	return mark
}

// RollbackTo truncates the buffer, discarding every record appended at or
// after mark. Truncating past the current length is a no-op; truncating
// to a stale mark that has already been released is a caller error this
// core does not try to detect, matching the source's trust in its undo
// quantum to call rollback at most once per mark.
func (s *Stream) RollbackTo(mark Mark) {
	if int(mark) >= len(s.records) {
		return
	}
	if mark < 0 {
		mark = 0
	}
	for _, r := range s.records[mark:] {
		s.committedBytes -= int64(len(r.TupleBytes))
	}
	s.records = s.records[:mark]
	if s.pollMarker > mark {
		s.pollMarker = mark
	}
}

// PeriodicFlush is a pass-through hook a real downstream wrapper would use
// to force buffered records to durable storage; this core has no concrete
// downstream sink, so it only logs.
func (s *Stream) PeriodicFlush(now time.Time) {
	if s.log != nil {
		s.log.WithField("records", len(s.records)).Debug("export: periodic flush")
	}
}

func (s *Stream) GetCommittedBytes() int64 { return s.committedBytes }

// ReleaseBytes tells the stream that a downstream consumer has durably
// taken everything up to and including offset, so accounting no longer
// needs to track those bytes. It reports false without changing state if
// offset exceeds the committed byte count, mirroring
// TupleStreamWrapper::releaseExportBytes's bounds check.
func (s *Stream) ReleaseBytes(offset int64) bool {
	if offset > s.committedBytes {
		return false
	}
	s.committedBytes -= offset
	return true
}

// ResetPollMarker advances the poll marker to the current tail, as a
// downstream poller would after successfully draining the buffer.
func (s *Stream) ResetPollMarker() {
	s.pollMarker = Mark(len(s.records))
}

// Tail returns every record from the current poll marker onward, for
// inspection (property tests P4/P5 and boundary scenarios S2/S3 check the
// export tail directly).
func (s *Stream) Tail() []Record {
	if int(s.pollMarker) >= len(s.records) {
		return nil
	}
	out := make([]Record, len(s.records)-int(s.pollMarker))
	copy(out, s.records[s.pollMarker:])
	return out
}
