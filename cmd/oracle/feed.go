package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oracleScope/internal/chain"
	"oracleScope/internal/config"
	"oracleScope/internal/dex"
	"oracleScope/internal/feed"
	"oracleScope/internal/oracle"
	"oracleScope/internal/storage"
	"oracleScope/internal/storage/postgres"
)

func runFeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFeed(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.NativeToken) {
		return fmt.Errorf("native token address is required")
	}
	native := common.HexToAddress(cfg.NativeToken)

	pools, err := feed.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	decoder, err := dex.NewSwapDecoder()
	if err != nil {
		return fmt.Errorf("build swap decoder: %w", err)
	}

	tracker := feed.NewTracker(nil, logger)
	core, hook := oracle.NewCore(oracle.Config{
		NativeToken:     native,
		InitialCapacity: cfg.Capacity,
	}, tracker, logger)
	tracker.Bind(hook)

	poolTokens := make(map[common.Address]common.Address, len(pools))
	for _, pool := range pools {
		key, err := dex.FetchPoolKey(ctx, chainClient, pool)
		if err != nil {
			return fmt.Errorf("fetch pool key %s: %w", pool.Hex(), err)
		}
		token, err := core.RegisterPool(key)
		if err != nil {
			return fmt.Errorf("register pool %s: %w", pool.Hex(), err)
		}

		state, err := dex.FetchPoolState(ctx, chainClient, pool)
		if err != nil {
			return fmt.Errorf("fetch pool state %s: %w", pool.Hex(), err)
		}
		if err := tracker.Seed(token, state.Tick, state.Liquidity); err != nil {
			return fmt.Errorf("seed pool %s: %w", pool.Hex(), err)
		}

		poolTokens[pool] = token
		logger.Info("pool registered",
			zap.String("pool", pool.Hex()),
			zap.String("token", token.Hex()),
			zap.Int32("tick", state.Tick),
			zap.String("liquidity", state.Liquidity.Dec()),
		)
	}

	sinks := []storage.Storage{storage.NewJsonlStorage(cfg.Out)}

	var pgStore *postgres.Store
	if cfg.PGDSN != "" {
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		sinks = append(sinks, pgStore.Sink(ctx))
	}

	runner := feed.NewRunner(feed.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, decoder, tracker, storage.Multi(sinks...), poolTokens, logger)

	if pgStore != nil && cfg.CheckpointEnabled {
		runner.UseCheckpointer(pgStore.FeedCheckpoint(ctx, "feed"))
	}

	logger.Info("feed start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("pools", len(pools)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Uint64("capacity", cfg.Capacity),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	if err := runner.Run(ctx); err != nil {
		return err
	}

	if pgStore != nil {
		for _, token := range poolTokens {
			if err := pgStore.UpsertCounts(ctx, token.Hex(), core.Counts(token)); err != nil {
				return fmt.Errorf("persist counts %s: %w", token.Hex(), err)
			}
		}
	}

	return nil
}
