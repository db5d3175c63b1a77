package oracle

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"oracleScope/internal/model"
)

var testToken = common.HexToAddress("0x1111111111111111111111111111111111111111")

// staticRate is a fixed-rate AccumulatorTracker stand-in.
type staticRate struct {
	tick int32
	liq  *uint256.Int
	err  error
}

func (s staticRate) CurrentRate(common.Address) (int32, *uint256.Int, error) {
	return s.tick, s.liq, s.err
}

// testNow is the fixed "current time" of test cores; all write and query
// times below stay well before it.
const testNow = 1_000_000

func newTestCore(capacity uint64, rates RateSource) (*Core, *WriteHook) {
	if rates == nil {
		rates = staticRate{tick: 0, liq: uint256.NewInt(1)}
	}
	return NewCore(Config{
		NativeToken:     common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"),
		InitialCapacity: capacity,
		Now:             func() time.Time { return time.Unix(testNow, 0) },
	}, rates, nil)
}

// write commits a snapshot at unix second ts with a seconds-per-liquidity
// cumulative equal to spl (as a small integer) for easy assertions.
func write(t *testing.T, hook *WriteHook, ts uint64, tickCum int64, spl uint64) WriteResult {
	t.Helper()
	res, err := hook.RecordObservation(testToken, time.Unix(int64(ts), 0), tickCum, uint256.NewInt(spl))
	if err != nil {
		t.Fatalf("record observation at %d: %v", ts, err)
	}
	return res
}

func TestWriteAppendsAndWraps(t *testing.T) {
	core, hook := newTestCore(4, nil)

	// 5 writes into a capacity-4 ring: t=100..140.
	stamps := []uint64{100, 110, 120, 130, 140}
	for i, ts := range stamps {
		res := write(t, hook, ts, int64(i), uint64(i))
		if res.LogicalIndex != uint64(i) {
			t.Fatalf("logical index mismatch: %d != %d", res.LogicalIndex, i)
		}
		if want := uint64(i) % 4; res.PhysicalSlot != want {
			t.Fatalf("physical slot mismatch: %d != %d", res.PhysicalSlot, want)
		}
	}

	counts := core.Counts(testToken)
	if counts.Count != 5 {
		t.Fatalf("count mismatch: %d != 5", counts.Count)
	}
	if counts.Index != 0 {
		t.Fatalf("index mismatch: %d != 0", counts.Index)
	}
	if counts.Capacity != 4 {
		t.Fatalf("capacity mismatch: %d != 4", counts.Capacity)
	}
	if counts.LastTimestamp != 140 {
		t.Fatalf("last timestamp mismatch: %d != 140", counts.LastTimestamp)
	}

	// Slot 0 was overwritten by the 5th write (t=140); slots 1..3 still hold
	// the most recent writes with logical mod 4 == slot.
	wantByIndex := map[uint64]uint64{0: 140, 1: 110, 2: 120, 3: 130}
	for slot, wantTs := range wantByIndex {
		snap, err := core.SnapshotAt(testToken, slot)
		if err != nil {
			t.Fatalf("snapshot at %d: %v", slot, err)
		}
		if snap.Timestamp != wantTs {
			t.Fatalf("slot %d timestamp mismatch: %d != %d", slot, snap.Timestamp, wantTs)
		}
	}
}

func TestSameTimestampUpdatesInPlace(t *testing.T) {
	core, hook := newTestCore(4, nil)

	write(t, hook, 100, 10, 1)
	res := write(t, hook, 100, 20, 2)

	if !res.InPlace {
		t.Fatalf("expected in-place update")
	}
	counts := core.Counts(testToken)
	if counts.Count != 1 {
		t.Fatalf("count must not grow on same-timestamp write: %d", counts.Count)
	}

	snap, err := core.SnapshotAt(testToken, 0)
	if err != nil {
		t.Fatalf("snapshot at 0: %v", err)
	}
	if snap.TickCumulative != 20 {
		t.Fatalf("in-place update not applied: %d != 20", snap.TickCumulative)
	}
}

func TestWriteTimestampRegressionRejected(t *testing.T) {
	_, hook := newTestCore(4, nil)

	write(t, hook, 100, 0, 0)
	if _, err := hook.RecordObservation(testToken, time.Unix(90, 0), 0, uint256.NewInt(0)); err == nil {
		t.Fatalf("expected error for regressing timestamp")
	}
}

func TestTimestampsStrictlyIncreaseAccumulatorsMonotone(t *testing.T) {
	core, hook := newTestCore(8, nil)

	for i := uint64(0); i < 6; i++ {
		write(t, hook, 100+10*i, int64(5*i), 100*i)
	}

	var prev model.Snapshot
	for i := uint64(0); i < 6; i++ {
		snap, err := core.SnapshotAt(testToken, i)
		if err != nil {
			t.Fatalf("snapshot at %d: %v", i, err)
		}
		if i > 0 {
			if snap.Timestamp <= prev.Timestamp {
				t.Fatalf("timestamps not strictly increasing at %d", i)
			}
			if snap.SecondsPerLiquidityCumulative.Cmp(prev.SecondsPerLiquidityCumulative) < 0 {
				t.Fatalf("seconds per liquidity decreased at %d", i)
			}
			if snap.TickCumulative < prev.TickCumulative {
				t.Fatalf("tick cumulative decreased at %d", i)
			}
		}
		prev = snap
	}
}

func TestExpandCapacityNeverShrinksOrMutates(t *testing.T) {
	core, hook := newTestCore(4, nil)

	write(t, hook, 100, 1, 10)
	write(t, hook, 110, 2, 20)

	before := make([]model.Snapshot, 2)
	for i := range before {
		snap, err := core.SnapshotAt(testToken, uint64(i))
		if err != nil {
			t.Fatalf("snapshot at %d: %v", i, err)
		}
		before[i] = snap
	}

	if got := core.ExpandCapacity(testToken, 8); got != 8 {
		t.Fatalf("expand mismatch: %d != 8", got)
	}
	// Shrinking is a no-op returning the current capacity.
	if got := core.ExpandCapacity(testToken, 2); got != 8 {
		t.Fatalf("shrink must be no-op: %d != 8", got)
	}

	for i, want := range before {
		snap, err := core.SnapshotAt(testToken, uint64(i))
		if err != nil {
			t.Fatalf("snapshot at %d after expand: %v", i, err)
		}
		if snap.Timestamp != want.Timestamp || snap.TickCumulative != want.TickCumulative {
			t.Fatalf("expansion mutated slot %d: %+v != %+v", i, snap, want)
		}
		if snap.SecondsPerLiquidityCumulative.Cmp(want.SecondsPerLiquidityCumulative) != 0 {
			t.Fatalf("expansion mutated accumulator in slot %d", i)
		}
	}
}

func TestExpandAfterWrapKeepsCommittedSlots(t *testing.T) {
	core, hook := newTestCore(2, nil)

	// Wrap the capacity-2 ring: t=120 overwrites t=100 in slot 0.
	write(t, hook, 100, 1, 10)
	write(t, hook, 110, 2, 20)
	write(t, hook, 120, 3, 30)

	if got := core.ExpandCapacity(testToken, 4); got != 4 {
		t.Fatalf("expand mismatch: %d != 4", got)
	}

	// Entries written under the old capacity keep their old-modulus slots.
	wantSlots := map[uint64]uint64{0: 120, 1: 110}
	for slot, ts := range wantSlots {
		snap, err := core.SnapshotAt(testToken, slot)
		if err != nil {
			t.Fatalf("snapshot at %d after expand: %v", slot, err)
		}
		if snap.Timestamp != ts {
			t.Fatalf("slot %d = t=%d, want t=%d", slot, snap.Timestamp, ts)
		}
	}
	located, err := core.FindPreviousSnapshot(testToken, 115)
	if err != nil {
		t.Fatalf("find 115 after expand: %v", err)
	}
	if located.LogicalIndex != 1 || located.Snapshot.Timestamp != 110 {
		t.Fatalf("find 115 = logical %d t=%d, want logical 1 t=110", located.LogicalIndex, located.Snapshot.Timestamp)
	}

	// The next write uses the new modulus: logical 3 lands in slot 3,
	// leaving both old-epoch entries in place.
	res := write(t, hook, 130, 4, 40)
	if res.PhysicalSlot != 3 {
		t.Fatalf("post-expand write slot = %d, want 3", res.PhysicalSlot)
	}
	if located, err = core.FindPreviousSnapshot(testToken, 115); err != nil || located.Snapshot.Timestamp != 110 {
		t.Fatalf("old-epoch entry lost after post-expand write: %+v, %v", located, err)
	}

	// Logical 4 wraps to slot 0, evicting the old-epoch t=120 entry and
	// everything logically before it: the window truncates to [3, 4].
	res = write(t, hook, 140, 5, 50)
	if res.PhysicalSlot != 0 {
		t.Fatalf("wrap write slot = %d, want 0", res.PhysicalSlot)
	}
	counts := core.Counts(testToken)
	if counts.Count != 5 || counts.Index != 0 {
		t.Fatalf("counts = %+v, want count 5 index 0", counts)
	}

	var notFound *NoPreviousSnapshotError
	if _, err := core.FindPreviousSnapshot(testToken, 115); !errors.As(err, &notFound) {
		t.Fatalf("expected NoPreviousSnapshotError after truncation, got %v", err)
	} else if notFound.Count != 5 {
		t.Fatalf("error count = %d, want 5", notFound.Count)
	}
	located, err = core.FindPreviousSnapshot(testToken, 135)
	if err != nil {
		t.Fatalf("find 135: %v", err)
	}
	if located.LogicalIndex != 3 || located.Snapshot.Timestamp != 130 {
		t.Fatalf("find 135 = logical %d t=%d, want logical 3 t=130", located.LogicalIndex, located.Snapshot.Timestamp)
	}

	// Batch queries stay element-wise identical to singles across the
	// epoch boundary.
	stamps := []uint64{130, 131, 140, 141}
	batch, err := core.ExtrapolatedSnapshotsForSortedTimestamps(testToken, stamps)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	for i, ts := range stamps {
		single, err := core.ExtrapolateSnapshot(testToken, ts)
		if err != nil {
			t.Fatalf("extrapolate %d: %v", ts, err)
		}
		if batch[i].TickCumulative != single.TickCumulative ||
			batch[i].SecondsPerLiquidityCumulative.Cmp(single.SecondsPerLiquidityCumulative) != 0 {
			t.Fatalf("batch[%d] diverges from single at t=%d", i, ts)
		}
	}
}

func TestExpandTakesEffectForNextWrite(t *testing.T) {
	core, hook := newTestCore(2, nil)

	write(t, hook, 100, 0, 0)
	write(t, hook, 110, 0, 0)
	core.ExpandCapacity(testToken, 4)

	// Without expansion the third write would wrap onto slot 0; with the new
	// modulus it must land on the appended slot 2.
	res := write(t, hook, 120, 0, 0)
	if res.PhysicalSlot != 2 {
		t.Fatalf("third write should use expanded slot: %d != 2", res.PhysicalSlot)
	}

	snap, err := core.SnapshotAt(testToken, 0)
	if err != nil {
		t.Fatalf("snapshot at 0: %v", err)
	}
	if snap.Timestamp != 100 {
		t.Fatalf("oldest snapshot should survive expansion: %d != 100", snap.Timestamp)
	}
}

func TestExpandUnwrittenToken(t *testing.T) {
	core, _ := newTestCore(4, nil)

	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	if got := core.ExpandCapacity(other, 16); got != 16 {
		t.Fatalf("expand mismatch: %d != 16", got)
	}

	counts := core.Counts(other)
	if counts.Count != 0 || counts.Capacity != 16 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	_, err := core.FindPreviousSnapshot(other, 100)
	var notFound *NoPreviousSnapshotError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NoPreviousSnapshotError, got %v", err)
	}
	if notFound.Count != 0 {
		t.Fatalf("never-written token must report count 0: %d", notFound.Count)
	}
}

func TestSnapshotAtOutOfRange(t *testing.T) {
	core, hook := newTestCore(4, nil)
	write(t, hook, 100, 0, 0)

	if _, err := core.SnapshotAt(testToken, 4); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestCountsUnknownToken(t *testing.T) {
	core, _ := newTestCore(4, nil)
	counts := core.Counts(common.HexToAddress("0x3333333333333333333333333333333333333333"))
	if counts != (model.Counts{}) {
		t.Fatalf("unexpected counts for unknown token: %+v", counts)
	}
}
