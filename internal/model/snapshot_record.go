package model

import (
	"fmt"

	"github.com/holiman/uint256"
)

// SnapshotRecord is the persisted row form of a written snapshot, used by
// the JSONL audit log and the Postgres store. Wide accumulator values are
// carried as decimal strings so they survive JSON number precision.
type SnapshotRecord struct {
	Token                         string `json:"token"`
	LogicalIndex                  uint64 `json:"logical_index"`
	PhysicalSlot                  uint64 `json:"physical_slot"`
	Timestamp                     uint64 `json:"timestamp"`
	SecondsPerLiquidityCumulative string `json:"seconds_per_liquidity_cumulative"`
	TickCumulative                int64  `json:"tick_cumulative"`
	InPlace                       bool   `json:"in_place,omitempty"`
	RecordedAt                    string `json:"recorded_at"`
}

// Snapshot converts the record back into its in-memory form.
func (r SnapshotRecord) Snapshot() (Snapshot, error) {
	spl, err := uint256.FromDecimal(r.SecondsPerLiquidityCumulative)
	if err != nil {
		return Snapshot{}, fmt.Errorf("seconds per liquidity: %w", err)
	}
	return Snapshot{
		Timestamp:                     r.Timestamp,
		SecondsPerLiquidityCumulative: spl,
		TickCumulative:                r.TickCumulative,
	}, nil
}
