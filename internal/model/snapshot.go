package model

import "github.com/holiman/uint256"

// Snapshot is one committed accumulator reading for a token. Immutable once
// written; identified by (token, logical index).
type Snapshot struct {
	// Timestamp is unix seconds, sub-second bits truncated by the write
	// policy. Strictly increasing across the retained window.
	Timestamp uint64

	// SecondsPerLiquidityCumulative wraps modulo 2^160, X128 fixed point.
	SecondsPerLiquidityCumulative *uint256.Int

	// TickCumulative wraps modulo 2^64.
	TickCumulative int64
}

// Clone returns a deep copy so callers cannot alias the ring's storage.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.SecondsPerLiquidityCumulative != nil {
		out.SecondsPerLiquidityCumulative = new(uint256.Int).Set(s.SecondsPerLiquidityCumulative)
	}
	return out
}

// Observation is a computed accumulator pair at a caller-supplied time.
// Never persisted.
type Observation struct {
	SecondsPerLiquidityCumulative *uint256.Int
	TickCumulative                int64
}
