package model

import (
	"encoding/json"
	"testing"
)

func TestSnapshotRecordJSONStringAccumulator(t *testing.T) {
	rec := SnapshotRecord{
		Token:                         "0x1111111111111111111111111111111111111111",
		LogicalIndex:                  7,
		PhysicalSlot:                  3,
		Timestamp:                     1700000000,
		SecondsPerLiquidityCumulative: "340282366920938463463374607431768211456",
		TickCumulative:                -1234,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["seconds_per_liquidity_cumulative"].(string); !ok {
		t.Fatalf("seconds_per_liquidity_cumulative should be string")
	}
}

func TestSnapshotRecordRoundTrip(t *testing.T) {
	rec := SnapshotRecord{
		Token:                         "0x2222222222222222222222222222222222222222",
		Timestamp:                     200,
		SecondsPerLiquidityCumulative: "99",
		TickCumulative:                1000,
	}

	snap, err := rec.Snapshot()
	if err != nil {
		t.Fatalf("to snapshot: %v", err)
	}
	if snap.Timestamp != 200 || snap.TickCumulative != 1000 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.SecondsPerLiquidityCumulative.Uint64() != 99 {
		t.Fatalf("accumulator mismatch: %s", snap.SecondsPerLiquidityCumulative)
	}
}

func TestSnapshotRecordBadAccumulator(t *testing.T) {
	rec := SnapshotRecord{SecondsPerLiquidityCumulative: "not-a-number"}
	if _, err := rec.Snapshot(); err == nil {
		t.Fatalf("expected error for invalid accumulator")
	}
}
