package feed

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, true)

	pools := PoolFingerprint([]common.Address{
		common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
	})
	if err := store.Save(Checkpoint{LastProcessedBlock: 12345, Pools: pools}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cp, ok, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected checkpoint to exist")
	}
	if cp.LastProcessedBlock != 12345 {
		t.Fatalf("last processed = %d, want 12345", cp.LastProcessedBlock)
	}
	if !reflect.DeepEqual(cp.Pools, pools) {
		t.Fatalf("pools mismatch: %v != %v", cp.Pools, pools)
	}
	if cp.UpdatedAt == "" {
		t.Fatalf("updated_at not set")
	}
}

func TestCheckpointDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, false)

	if err := store.Save(Checkpoint{LastProcessedBlock: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("disabled store should report no checkpoint, got ok=%v err=%v", ok, err)
	}
}

func TestCheckpointMissingFile(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "absent.json"), true)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("missing file should report no checkpoint, got ok=%v err=%v", ok, err)
	}
}

func TestPoolFingerprintSorted(t *testing.T) {
	a := []common.Address{
		common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
	}
	b := []common.Address{a[1], a[0]}

	if !reflect.DeepEqual(PoolFingerprint(a), PoolFingerprint(b)) {
		t.Fatalf("fingerprint should not depend on input order")
	}
}
