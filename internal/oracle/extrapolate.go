package oracle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"oracleScope/internal/accum"
	"oracleScope/internal/model"
)

// ExtrapolateSnapshot returns the accumulator values for a token at an
// arbitrary past time. At a stored snapshot's exact timestamp the stored
// values are returned unchanged; past the last snapshot the values are
// extended at the pool's current rate, which is valid because any rate
// change triggers a snapshot of its own.
func (c *Core) ExtrapolateSnapshot(token common.Address, atTime uint64) (model.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	located, err := c.findPreviousLocked(token, atTime)
	if err != nil {
		return model.Observation{}, err
	}
	return c.extrapolateLocked(token, located.Snapshot, atTime)
}

func (c *Core) extrapolateLocked(token common.Address, snap model.Snapshot, atTime uint64) (model.Observation, error) {
	if atTime == snap.Timestamp {
		return model.Observation{
			SecondsPerLiquidityCumulative: new(uint256.Int).Set(snap.SecondsPerLiquidityCumulative),
			TickCumulative:                snap.TickCumulative,
		}, nil
	}

	tick, liquidity, err := c.rates.CurrentRate(token)
	if err != nil {
		return model.Observation{}, fmt.Errorf("current rate for %s: %w", token.Hex(), err)
	}

	elapsed := atTime - snap.Timestamp
	return model.Observation{
		SecondsPerLiquidityCumulative: accum.AddSecondsPerLiquidity(
			snap.SecondsPerLiquidityCumulative,
			accum.SecondsPerLiquidityDelta(elapsed, liquidity),
		),
		TickCumulative: accum.AddTickCumulative(snap.TickCumulative, elapsed, tick),
	}, nil
}

// AverageTickOverPeriod returns the time-weighted average tick between two
// past times: the wrapping difference of the extrapolated tick cumulatives
// divided by the elapsed seconds.
func (c *Core) AverageTickOverPeriod(token common.Address, startTime, endTime uint64) (int64, error) {
	if endTime <= startTime {
		return 0, ErrEndTimeLessThanStartTime
	}

	start, err := c.ExtrapolateSnapshot(token, startTime)
	if err != nil {
		return 0, err
	}
	end, err := c.ExtrapolateSnapshot(token, endTime)
	if err != nil {
		return 0, err
	}

	diff := accum.SubTickCumulative(end.TickCumulative, start.TickCumulative)
	return diff / int64(endTime-startTime), nil
}

// AverageSecondsPerLiquidityOverPeriod returns the average X128 seconds-per-
// liquidity rate between two past times, the harmonic-mean-liquidity
// primitive: the mod-2^160 difference of the two cumulatives divided by the
// elapsed seconds.
func (c *Core) AverageSecondsPerLiquidityOverPeriod(token common.Address, startTime, endTime uint64) (*uint256.Int, error) {
	if endTime <= startTime {
		return nil, ErrEndTimeLessThanStartTime
	}

	start, err := c.ExtrapolateSnapshot(token, startTime)
	if err != nil {
		return nil, err
	}
	end, err := c.ExtrapolateSnapshot(token, endTime)
	if err != nil {
		return nil, err
	}

	diff := accum.SubSecondsPerLiquidity(
		end.SecondsPerLiquidityCumulative,
		start.SecondsPerLiquidityCumulative,
	)
	return diff.Div(diff, uint256.NewInt(endTime-startTime)), nil
}
