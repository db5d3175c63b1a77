package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oracleScope/internal/config"
	"oracleScope/internal/oracle"
	"oracleScope/internal/storage"
)

// staticRates extrapolates past the newest replayed snapshot with a rate
// fixed on the command line. Offline replay has no live pool to ask.
type staticRates struct {
	tick      int32
	liquidity *uint256.Int
}

func (s staticRates) CurrentRate(common.Address) (int32, *uint256.Int, error) {
	return s.tick, new(uint256.Int).Set(s.liquidity), nil
}

func runQuery(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Token) {
		return fmt.Errorf("token address is required")
	}
	token := common.HexToAddress(cfg.Token)

	liquidity, err := uint256.FromDecimal(cfg.Liq)
	if err != nil {
		return fmt.Errorf("parse liquidity: %w", err)
	}

	records, err := storage.ReadSnapshotRecords(cfg.Input)
	if err != nil {
		return err
	}

	core, hook := oracle.NewCore(oracle.Config{
		InitialCapacity: cfg.Capacity,
	}, staticRates{tick: cfg.Tick, liquidity: liquidity}, logger)

	replayed := 0
	for _, record := range records {
		if !common.IsHexAddress(record.Token) || common.HexToAddress(record.Token) != token {
			continue
		}
		snap, err := record.Snapshot()
		if err != nil {
			return fmt.Errorf("replay record at logical %d: %w", record.LogicalIndex, err)
		}
		if _, err := hook.RecordObservation(token, time.Unix(int64(snap.Timestamp), 0), snap.TickCumulative, snap.SecondsPerLiquidityCumulative); err != nil {
			return fmt.Errorf("replay record at logical %d: %w", record.LogicalIndex, err)
		}
		replayed++
	}
	if replayed == 0 {
		return fmt.Errorf("no snapshots for token %s in %s", token.Hex(), cfg.Input)
	}

	counts := core.Counts(token)
	logger.Info("replay complete",
		zap.String("token", token.Hex()),
		zap.Int("records", replayed),
		zap.Uint64("count", counts.Count),
		zap.Uint64("capacity", counts.Capacity),
		zap.Uint64("last_timestamp", counts.LastTimestamp),
	)

	switch {
	case cfg.At != "":
		at, err := config.ParseTimestamp(cfg.At)
		if err != nil {
			return fmt.Errorf("parse at: %w", err)
		}
		obs, err := core.ExtrapolateSnapshot(token, at)
		if err != nil {
			return err
		}
		fmt.Printf("timestamp=%d tick_cumulative=%d seconds_per_liquidity_cumulative=%s\n",
			at, obs.TickCumulative, obs.SecondsPerLiquidityCumulative.Dec())

	case cfg.Start != "" || cfg.End != "":
		start, err := config.ParseTimestamp(cfg.Start)
		if err != nil {
			return fmt.Errorf("parse start: %w", err)
		}
		end, err := config.ParseTimestamp(cfg.End)
		if err != nil {
			return fmt.Errorf("parse end: %w", err)
		}
		avgTick, err := core.AverageTickOverPeriod(token, start, end)
		if err != nil {
			return err
		}
		avgSPL, err := core.AverageSecondsPerLiquidityOverPeriod(token, start, end)
		if err != nil {
			return err
		}
		fmt.Printf("start=%d end=%d average_tick=%d average_seconds_per_liquidity=%s\n",
			start, end, avgTick, avgSPL.Dec())

	default:
		return fmt.Errorf("either --at or --start/--end is required")
	}

	return nil
}
