package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oracleScope/internal/feed"
	"oracleScope/internal/model"
	"oracleScope/internal/storage"
)

// Store provides Postgres persistence for oracle snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertSnapshots inserts or updates snapshot rows. The conflict target is
// (token, physical_slot): ring slots are overwritten in place on chain, so
// the table mirrors the ring rather than accumulating evicted history.
func (s *Store) UpsertSnapshots(ctx context.Context, records []model.SnapshotRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO oracle_snapshots (
				token, physical_slot, logical_index, snapshot_ts,
				seconds_per_liquidity_cumulative, tick_cumulative, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (token, physical_slot)
			DO UPDATE SET
				logical_index = EXCLUDED.logical_index,
				snapshot_ts = EXCLUDED.snapshot_ts,
				seconds_per_liquidity_cumulative = EXCLUDED.seconds_per_liquidity_cumulative,
				tick_cumulative = EXCLUDED.tick_cumulative,
				updated_at = now()
		`,
			r.Token,
			int64(r.PhysicalSlot),
			int64(r.LogicalIndex),
			int64(r.Timestamp),
			r.SecondsPerLiquidityCumulative,
			r.TickCumulative,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertCounts inserts or updates a token's ring bookkeeping row.
func (s *Store) UpsertCounts(ctx context.Context, token string, counts model.Counts) error {
	if token == "" {
		return fmt.Errorf("token required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oracle_counts (token, slot_index, count, capacity, last_snapshot_ts, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (token) DO UPDATE
		SET slot_index = EXCLUDED.slot_index,
			count = EXCLUDED.count,
			capacity = EXCLUDED.capacity,
			last_snapshot_ts = EXCLUDED.last_snapshot_ts,
			updated_at = now()
	`,
		token,
		int64(counts.Index),
		int64(counts.Count),
		int64(counts.Capacity),
		int64(counts.LastTimestamp),
	)
	return err
}

// LoadState returns last_processed_block for a named feed.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM feed_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return block, true, nil
}

// SaveState upserts last_processed_block for a named feed.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feed_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, block)
	return err
}

// FeedCheckpoint adapts the named feed state to the runner's checkpoint
// interface, so a Postgres-backed feed keeps its progress next to its
// snapshots instead of in a local file. Only the block survives a round
// trip; the pool fingerprint stays empty on load.
func (s *Store) FeedCheckpoint(ctx context.Context, name string) feed.Checkpointer {
	return &feedCheckpoint{ctx: ctx, store: s, name: name}
}

type feedCheckpoint struct {
	ctx   context.Context
	store *Store
	name  string
}

func (c *feedCheckpoint) Load() (feed.Checkpoint, bool, error) {
	block, ok, err := c.store.LoadState(c.ctx, c.name)
	if err != nil || !ok {
		return feed.Checkpoint{}, false, err
	}
	return feed.Checkpoint{LastProcessedBlock: block}, true, nil
}

func (c *feedCheckpoint) Save(cp feed.Checkpoint) error {
	return c.store.SaveState(c.ctx, c.name, cp.LastProcessedBlock)
}

// Sink adapts the store to the batch sink interface used by the feed
// runner, binding the given context to each write.
func (s *Store) Sink(ctx context.Context) storage.Storage {
	return &sink{ctx: ctx, store: s}
}

type sink struct {
	ctx   context.Context
	store *Store
}

func (s *sink) PutSnapshotBatch(records []model.SnapshotRecord) error {
	return s.store.UpsertSnapshots(s.ctx, records)
}
