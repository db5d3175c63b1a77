package feed

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"oracleScope/internal/model"
	"oracleScope/internal/oracle"
)

func buildSnapshotRecord(token common.Address, res oracle.WriteResult, tickCumulative int64, secondsPerLiquidityCumulative *uint256.Int, recordedAt time.Time) model.SnapshotRecord {
	return model.SnapshotRecord{
		Token:                         token.Hex(),
		LogicalIndex:                  res.LogicalIndex,
		PhysicalSlot:                  res.PhysicalSlot,
		Timestamp:                     res.Timestamp,
		SecondsPerLiquidityCumulative: secondsPerLiquidityCumulative.Dec(),
		TickCumulative:                tickCumulative,
		InPlace:                       res.InPlace,
		RecordedAt:                    recordedAt.Format(time.RFC3339Nano),
	}
}
