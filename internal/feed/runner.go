package feed

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"oracleScope/internal/chain"
	"oracleScope/internal/dex"
	"oracleScope/internal/model"
	"oracleScope/internal/storage"
)

// RunConfig holds runtime settings for the snapshot feed.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner streams pool Swap logs from the chain and drives the tracker, which
// in turn writes oracle snapshots. Committed snapshots are forwarded to the
// storage sink.
type Runner struct {
	cfg        RunConfig
	chain      *chain.Client
	decoder    *dex.SwapDecoder
	tracker    *Tracker
	storage    storage.Storage
	logger     *zap.Logger
	poolTokens map[common.Address]common.Address
	seen       map[string]struct{}
	checkpoint Checkpointer
}

// NewRunner builds a Runner. poolTokens maps each registered pool address to
// the token its ring belongs to.
func NewRunner(
	cfg RunConfig,
	chainClient *chain.Client,
	decoder *dex.SwapDecoder,
	tracker *Tracker,
	storageSink storage.Storage,
	poolTokens map[common.Address]common.Address,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		decoder:    decoder,
		tracker:    tracker,
		storage:    storageSink,
		logger:     logger,
		poolTokens: poolTokens,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// UseCheckpointer replaces the default file-backed checkpoint store, e.g.
// with the Postgres feed state when snapshots go to Postgres anyway.
func (r *Runner) UseCheckpointer(cp Checkpointer) {
	if cp != nil {
		r.checkpoint = cp
	}
}

// Run executes the feed loop over the configured block range.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.tracker == nil {
		return fmt.Errorf("tracker is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.poolTokens) == 0 {
		return fmt.Errorf("at least one registered pool is required")
	}

	addresses := make([]common.Address, 0, len(r.poolTokens))
	for pool := range r.poolTokens {
		addresses = append(addresses, pool)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	fingerprint := PoolFingerprint(addresses)
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			if len(cp.Pools) > 0 && !reflect.DeepEqual(cp.Pools, fingerprint) {
				// Blocks before the checkpoint were never scanned for the
				// pools added since; resuming would silently skip them.
				r.logger.Warn("checkpoint pool set differs from configured pools",
					zap.Strings("checkpoint_pools", cp.Pools),
					zap.Strings("configured_pools", fingerprint),
				)
			}
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	topic0 := []common.Hash{r.decoder.Topic0()}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch swaps", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, addresses, topic0)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		records := make([]model.SnapshotRecord, 0, len(logs))
		for _, log := range logs {
			if r.isDuplicate(log) {
				continue
			}

			token, ok := r.poolTokens[log.Address]
			if !ok {
				continue
			}

			obs, err := r.decoder.Decode(log)
			if err != nil {
				r.logger.Warn("decode swap", zap.Error(err), zap.String("tx", log.TxHash.Hex()))
				continue
			}

			ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}

			record, err := r.tracker.Apply(token, ts, obs.Tick, obs.Liquidity)
			if err != nil {
				return fmt.Errorf("apply swap: %w", err)
			}
			records = append(records, record)
		}

		if r.storage != nil {
			if err := r.storage.PutSnapshotBatch(records); err != nil {
				return fmt.Errorf("store snapshots: %w", err)
			}
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(Checkpoint{LastProcessedBlock: blockRange.To, Pools: fingerprint}); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Int("snapshots", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, addresses, topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
