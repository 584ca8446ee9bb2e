package anticache

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// BoltBlockStore is a concrete, bbolt-backed BlockStore: one top-level
// bucket per table, one key-value pair per evicted block, keyed by the
// block's id as a zero-padded 20-digit decimal string so iteration order
// matches allocation order. This
// is a reference implementation for the external block store the core
// only ever calls through the BlockStore interface (spec.md §1); any other
// backing store plugs in the same way. Grounded on the teacher's own
// direct dependency on go.etcd.io/bbolt.
type BoltBlockStore struct {
	db *bbolt.DB
}

func OpenBoltBlockStore(path string) (*BoltBlockStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("tuplestore: anticache: opening bolt store: %w", err)
	}
	return &BoltBlockStore{db: db}, nil
}

func (s *BoltBlockStore) Close() error {
	return s.db.Close()
}

func blockKey(blockID SurrogateBlockID) []byte {
	return []byte(fmt.Sprintf("%020d", blockID))
}

func (s *BoltBlockStore) NewBlockID(tableName string) (SurrogateBlockID, error) {
	var id SurrogateBlockID
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(tableName))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = SurrogateBlockID(seq)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("tuplestore: anticache: allocating block id: %w", err)
	}
	return id, nil
}

func (s *BoltBlockStore) WriteBlock(tableName string, blockID SurrogateBlockID, tupleCount int, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(tableName))
		if err != nil {
			return err
		}
		return b.Put(blockKey(blockID), data)
	})
}

func (s *BoltBlockStore) ReadBlock(tableName string, blockID SurrogateBlockID) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(tableName))
		if b == nil {
			return fmt.Errorf("tuplestore: anticache: no blocks for table %q", tableName)
		}
		v := b.Get(blockKey(blockID))
		if v == nil {
			return fmt.Errorf("tuplestore: anticache: block %d not found for table %q", blockID, tableName)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
