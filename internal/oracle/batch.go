package oracle

import (
	"github.com/ethereum/go-ethereum/common"

	"oracleScope/internal/model"
)

// ExtrapolatedSnapshotsForSortedTimestamps answers one extrapolation per
// timestamp, element-wise identical to independent ExtrapolateSnapshot
// calls. The timestamps must be non-decreasing; a single binary search
// places a cursor for the first element and the cursor only moves forward
// afterwards, so the whole batch costs O(log N + M) instead of O(M log N).
// All-or-nothing: any precondition failure returns no partial results.
func (c *Core) ExtrapolatedSnapshotsForSortedTimestamps(token common.Address, timestamps []uint64) ([]model.Observation, error) {
	if len(timestamps) == 0 {
		return nil, ErrZeroTimestamps
	}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] < timestamps[i-1] {
			return nil, ErrTimestampsNotSorted
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if timestamps[len(timestamps)-1] > c.now() {
		return nil, ErrFutureTime
	}

	located, err := c.findPreviousLocked(token, timestamps[0])
	if err != nil {
		return nil, err
	}

	r := c.rings[token]
	cursor := located.LogicalIndex
	snap := located.Snapshot

	out := make([]model.Observation, 0, len(timestamps))
	for _, ts := range timestamps {
		for cursor+1 < r.counts.Count && r.snapshotLogical(cursor+1).Timestamp <= ts {
			cursor++
			snap = r.snapshotLogical(cursor)
		}
		obs, err := c.extrapolateLocked(token, snap, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}
