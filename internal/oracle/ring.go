package oracle

import (
	"fmt"

	"github.com/holiman/uint256"

	"oracleScope/internal/model"
)

// ringSlot is one physical storage cell. The logical index and written flag
// let the ring tell a live entry from a zeroed expansion slot when an append
// lands on it.
type ringSlot struct {
	logical uint64
	written bool
	snap    model.Snapshot
}

// capEpoch records the capacity in force from a given write count onward.
// Expansion appends an epoch; the physical slot of a snapshot is its logical
// index modulo the capacity of the epoch it was written under, so growing
// the ring never moves committed entries.
type capEpoch struct {
	fromCount uint64
	capacity  uint64
}

// tokenRing is the circular snapshot buffer for one token.
type tokenRing struct {
	slots  []ringSlot
	epochs []capEpoch
	counts model.Counts
	// oldest is the lowest retained logical index. In steady state it equals
	// max(0, count-capacity); right after expanding a wrapped ring it can
	// trail behind while the enlarged window fills, and it can jump forward
	// when an append lands on a slot still holding a newer-epoch entry.
	oldest uint64
}

func newTokenRing(capacity uint64) *tokenRing {
	if capacity == 0 {
		capacity = 1
	}
	return &tokenRing{
		slots:  make([]ringSlot, capacity),
		epochs: []capEpoch{{fromCount: 0, capacity: capacity}},
		counts: model.Counts{Capacity: capacity},
	}
}

// physicalOf maps a logical index to its physical slot: logical modulo the
// capacity in force when it was written.
func (r *tokenRing) physicalOf(logical uint64) uint64 {
	for i := len(r.epochs) - 1; i >= 0; i-- {
		if logical >= r.epochs[i].fromCount {
			return logical % r.epochs[i].capacity
		}
	}
	return logical % r.epochs[0].capacity
}

// snapshotLogical returns the snapshot at a retained logical index. The
// caller is responsible for bounds-checking against [oldest, count-1].
func (r *tokenRing) snapshotLogical(logical uint64) model.Snapshot {
	return r.slots[r.physicalOf(logical)].snap
}

// record applies the write policy for one observation. It returns the
// logical index and physical slot written, and whether the write updated the
// newest slot in place instead of appending.
func (r *tokenRing) record(now uint64, tickCumulative int64, secondsPerLiquidityCumulative *uint256.Int) (WriteResult, error) {
	snap := model.Snapshot{
		Timestamp:                     now,
		SecondsPerLiquidityCumulative: new(uint256.Int).Set(secondsPerLiquidityCumulative),
		TickCumulative:                tickCumulative,
	}

	if r.counts.Count > 0 {
		if now < r.counts.LastTimestamp {
			return WriteResult{}, fmt.Errorf("observation time %d precedes last snapshot %d", now, r.counts.LastTimestamp)
		}
		if now == r.counts.LastTimestamp {
			// At most one snapshot per truncated timestamp: update in place.
			slot := r.counts.Index
			r.slots[slot].snap = snap
			return WriteResult{
				LogicalIndex: r.counts.Count - 1,
				PhysicalSlot: slot,
				Timestamp:    now,
				InPlace:      true,
			}, nil
		}
	}

	slot := r.counts.Count % r.counts.Capacity
	if occ := r.slots[slot]; occ.written && occ.logical >= r.oldest {
		r.oldest = occ.logical + 1
	}
	r.slots[slot] = ringSlot{logical: r.counts.Count, written: true, snap: snap}

	res := WriteResult{
		LogicalIndex: r.counts.Count,
		PhysicalSlot: slot,
		Timestamp:    now,
	}
	r.counts.Index = slot
	r.counts.Count++
	r.counts.LastTimestamp = now
	return res, nil
}

// expand grows capacity to at least minCapacity. New slots are appended past
// the physical tail; existing entries keep their slots. No-op when the
// current capacity already satisfies the request.
func (r *tokenRing) expand(minCapacity uint64) uint64 {
	if minCapacity <= r.counts.Capacity {
		return r.counts.Capacity
	}
	r.slots = append(r.slots, make([]ringSlot, minCapacity-r.counts.Capacity)...)
	if last := &r.epochs[len(r.epochs)-1]; last.fromCount == r.counts.Count {
		// No write since the previous expansion; fold into one epoch.
		last.capacity = minCapacity
	} else {
		r.epochs = append(r.epochs, capEpoch{fromCount: r.counts.Count, capacity: minCapacity})
	}
	r.counts.Capacity = minCapacity
	return r.counts.Capacity
}

// oldestRetained returns the lowest retained logical index.
func (r *tokenRing) oldestRetained() uint64 {
	return r.oldest
}
