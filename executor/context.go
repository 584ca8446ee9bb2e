// Package executor implements ExecutorContext (spec.md §6): the inbound
// per-transaction context the facade reads from on every mutation —
// which undo quantum to register actions with, the current and
// last-committed transaction ids for export records, and the optional
// anti-cache binding.
package executor

import (
	"time"

	"github.com/leftmike/tuplestore/anticache"
	"github.com/leftmike/tuplestore/undo"
)

// Context is supplied by the host engine (out of scope) to every
// PersistentTable call that needs transaction identity or the active undo
// scope.
type Context struct {
	PartitionID int32
	SiteID      int32

	LastTickTime time.Time

	CurrentTxnID       int64
	LastCommittedTxnID int64
	CurrentTxnTimestamp time.Time

	CurrentUndoQuantum undo.Quantum

	// AntiCacheDB is nil when the table has no anti-cache eviction bound.
	AntiCacheDB *anticache.Evictor
}
