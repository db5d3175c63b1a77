package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "oracle",
		Short:        "Time-weighted pool oracle",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Stream pool swaps into the oracle and persist snapshots",
		RunE:  runFeed,
	}

	feedCmd.Flags().String("rpc", "", "RPC URL")
	feedCmd.Flags().String("native-token", "", "native token address canonical pools pair against")
	feedCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	feedCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	feedCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	feedCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	feedCmd.Flags().Uint64("capacity", 64, "initial snapshots per token ring")
	feedCmd.Flags().String("out", "./data/snapshots.jsonl", "output JSONL path")
	feedCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	feedCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	feedCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	feedCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	feedCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	feedCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(feedCmd)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Replay persisted snapshots and answer point or window queries",
		RunE:  runQuery,
	}

	queryCmd.Flags().String("in", "./data/snapshots.jsonl", "input snapshots JSONL")
	queryCmd.Flags().String("token", "", "token address to query")
	queryCmd.Flags().String("at", "", "point query timestamp (unix seconds or RFC3339)")
	queryCmd.Flags().String("start", "", "window start timestamp (unix seconds or RFC3339)")
	queryCmd.Flags().String("end", "", "window end timestamp (unix seconds or RFC3339)")
	queryCmd.Flags().Int32("tick", 0, "tick to extrapolate with past the newest snapshot")
	queryCmd.Flags().String("liquidity", "1", "liquidity to extrapolate with past the newest snapshot")
	queryCmd.Flags().Uint64("capacity", 64, "snapshots per token ring during replay")
	queryCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(queryCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
