package table

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/leftmike/tuplestore/recovery"
)

// IndexStat is one index's contribution to a table-stats snapshot.
type IndexStat struct {
	Name   string
	Unique bool
}

// Stats is the observable table-stats record spec.md §6 names: active
// tuple count plus eviction counters plus each index's name and
// uniqueness. It does not record index sizes (entry counts).
type Stats struct {
	TableName     string
	ActiveTuples  int
	TuplesEvicted uint64
	BlocksEvicted uint64
	BytesEvicted  uint64
	Indexes       []IndexStat
}

// Stats snapshots this table's counters, for diagnostics.
func (t *PersistentTable) Stats() Stats {
	s := Stats{
		TableName:    t.Name,
		ActiveTuples: t.heap.ActiveCount(),
	}
	if t.evictor != nil {
		s.TuplesEvicted = t.evictor.TuplesEvicted()
		s.BlocksEvicted = t.evictor.BlocksEvicted()
		s.BytesEvicted = t.evictor.BytesEvicted()
	}
	for _, idx := range t.indexes.All() {
		s.Indexes = append(s.Indexes, IndexStat{Name: idx.Name(), Unique: idx.Unique()})
	}
	return s
}

// String renders the stats as an ASCII table via
// github.com/olekukonko/tablewriter (the teacher's own dependency),
// matching the sort of diagnostic dump a host CLI or log line would print.
func (s Stats) String() string {
	var buf strings.Builder
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader([]string{"table", "active tuples", "tuples evicted", "blocks evicted", "bytes evicted", "indexes"})

	indexNames := make([]string, len(s.Indexes))
	for i, idx := range s.Indexes {
		name := idx.Name
		if idx.Unique {
			name += "*"
		}
		indexNames[i] = name
	}

	tw.Append([]string{
		s.TableName,
		strconv.Itoa(s.ActiveTuples),
		strconv.FormatUint(s.TuplesEvicted, 10),
		strconv.FormatUint(s.BlocksEvicted, 10),
		strconv.FormatUint(s.BytesEvicted, 10),
		strings.Join(indexNames, ","),
	})
	tw.Render()
	return buf.String()
}

// ActivateRecoveryStream and the pull/push pair below bind
// recovery.Producer/recovery.ProcessMessage into the facade (spec.md
// §4.10): a source table streams itself out, a destination table
// consumes messages into its own heap and indexes without going through
// the ordinary mutation path.

func (t *PersistentTable) ActivateRecoveryStream(batchSize int) *recovery.Producer {
	return recovery.NewProducer(t.heap, batchSize)
}

func (t *PersistentTable) ProcessRecoveryMessage(msg recovery.Message) {
	recovery.ProcessMessage(msg, t.heap, t.indexes)
}
