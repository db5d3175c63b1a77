package oracle

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"oracleScope/internal/model"
)

// Located is the result of a previous-snapshot search.
type Located struct {
	// Count is the token's total write count at query time, so callers can
	// tell "never written" from "evicted by the ring" on failure paths.
	Count uint64
	// LogicalIndex is the position of the snapshot in the append-only
	// logical sequence.
	LogicalIndex uint64
	Snapshot     model.Snapshot
}

// FindPreviousSnapshot returns the retained snapshot with the greatest
// timestamp at or before the given time. Fails with ErrFutureTime when the
// time is past the current call time, and with NoPreviousSnapshotError when
// the token has no retained snapshot that early.
func (c *Core) FindPreviousSnapshot(token common.Address, atTime uint64) (Located, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.findPreviousLocked(token, atTime)
}

func (c *Core) findPreviousLocked(token common.Address, atTime uint64) (Located, error) {
	if atTime > c.now() {
		return Located{}, ErrFutureTime
	}

	r, ok := c.rings[token]
	if !ok || r.counts.Count == 0 {
		return Located{}, &NoPreviousSnapshotError{Token: token, Time: atTime}
	}

	oldest := r.oldestRetained()
	if r.snapshotLogical(oldest).Timestamp > atTime {
		return Located{}, &NoPreviousSnapshotError{Token: token, Time: atTime, Count: r.counts.Count}
	}

	// Timestamps are strictly increasing across the retained logical range,
	// so the greatest index with timestamp <= atTime sits just before the
	// first index with timestamp > atTime.
	span := int(r.counts.Count - oldest)
	first := sort.Search(span, func(i int) bool {
		return r.snapshotLogical(oldest+uint64(i)).Timestamp > atTime
	})

	logical := oldest + uint64(first) - 1
	return Located{
		Count:        r.counts.Count,
		LogicalIndex: logical,
		Snapshot:     r.snapshotLogical(logical).Clone(),
	}, nil
}
