package anticache_test

import (
	"path/filepath"
	"testing"

	"github.com/leftmike/tuplestore/anticache"
)

func TestBoltBlockStoreWriteAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anticache.db")
	store, err := anticache.OpenBoltBlockStore(path)
	if err != nil {
		t.Fatalf("OpenBoltBlockStore: %v", err)
	}
	defer store.Close()

	id, err := store.NewBlockID("t")
	if err != nil {
		t.Fatalf("NewBlockID: %v", err)
	}
	if err := store.WriteBlock("t", id, 1, []byte("payload")); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	got, err := store.ReadBlock("t", id)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("ReadBlock = %q, want %q", got, "payload")
	}
}

func TestBoltBlockStoreNewBlockIDIsMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anticache.db")
	store, err := anticache.OpenBoltBlockStore(path)
	if err != nil {
		t.Fatalf("OpenBoltBlockStore: %v", err)
	}
	defer store.Close()

	first, _ := store.NewBlockID("t")
	second, _ := store.NewBlockID("t")
	if second <= first {
		t.Errorf("second id %d should be greater than first id %d", second, first)
	}
}

func TestBoltBlockStoreReadMissingBlockErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anticache.db")
	store, err := anticache.OpenBoltBlockStore(path)
	if err != nil {
		t.Fatalf("OpenBoltBlockStore: %v", err)
	}
	defer store.Close()

	if _, err := store.ReadBlock("nonexistent", 1); err == nil {
		t.Error("expected an error reading from a table with no blocks")
	}
}
