// Package oracle implements the time-weighted accumulator core: per-token
// circular snapshot buffers, binary-search retrieval, extrapolation, and
// batched queries over sorted timestamps.
package oracle

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"oracleScope/internal/model"
)

// DefaultCapacity is the ring size given to a token on its first write when
// no expansion preceded it.
const DefaultCapacity = 64

// RateSource reports a pool's instantaneous tick and liquidity at call
// time. It is owned by the pool-accounting collaborator; the core reads it
// when extrapolating past the last snapshot.
type RateSource interface {
	CurrentRate(token common.Address) (tick int32, liquidity *uint256.Int, err error)
}

// Config holds core construction parameters.
type Config struct {
	// NativeToken is the only token a canonical pool may pair against.
	NativeToken common.Address
	// InitialCapacity sizes new rings; DefaultCapacity when zero.
	InitialCapacity uint64
	// Now supplies the current time; time.Now when nil. Injected in tests.
	Now func() time.Time
}

// Core is the oracle state container. Reads are shared, writes exclusive;
// every call completes synchronously against committed state.
type Core struct {
	mu     sync.RWMutex
	rings  map[common.Address]*tokenRing
	pools  map[common.Address]model.PoolKey
	cfg    Config
	rates  RateSource
	logger *zap.Logger
}

// WriteHook is the capability handle for the pool-accounting collaborator.
// It is handed out exactly once by NewCore; nothing on the exported read
// surface can reach the write path.
type WriteHook struct {
	core *Core
}

// WriteResult describes one committed write, for persistence sinks.
type WriteResult struct {
	LogicalIndex uint64
	PhysicalSlot uint64
	Timestamp    uint64
	InPlace      bool
}

// NewCore builds a Core and its single write capability.
func NewCore(cfg Config, rates RateSource, logger *zap.Logger) (*Core, *WriteHook) {
	if cfg.InitialCapacity == 0 {
		cfg.InitialCapacity = DefaultCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	core := &Core{
		rings:  make(map[common.Address]*tokenRing),
		pools:  make(map[common.Address]model.PoolKey),
		cfg:    cfg,
		rates:  rates,
		logger: logger,
	}
	return core, &WriteHook{core: core}
}

// now returns the current time truncated to unix seconds.
func (c *Core) now() uint64 {
	return uint64(c.cfg.Now().Unix())
}

// ring returns the token's ring, creating it lazily.
func (c *Core) ring(token common.Address) *tokenRing {
	r, ok := c.rings[token]
	if !ok {
		r = newTokenRing(c.cfg.InitialCapacity)
		c.rings[token] = r
	}
	return r
}

// RecordObservation commits one accumulator reading for a token. now is
// truncated to unix seconds; a reading at the same truncated timestamp as
// the previous one updates the newest slot in place.
func (h *WriteHook) RecordObservation(token common.Address, now time.Time, tickCumulative int64, secondsPerLiquidityCumulative *uint256.Int) (WriteResult, error) {
	if secondsPerLiquidityCumulative == nil {
		return WriteResult{}, fmt.Errorf("nil seconds per liquidity cumulative")
	}

	c := h.core
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.ring(token).record(uint64(now.Unix()), tickCumulative, secondsPerLiquidityCumulative)
	if err != nil {
		return WriteResult{}, err
	}

	c.logger.Debug("snapshot recorded",
		zap.String("token", token.Hex()),
		zap.Uint64("logical_index", res.LogicalIndex),
		zap.Uint64("physical_slot", res.PhysicalSlot),
		zap.Uint64("timestamp", res.Timestamp),
		zap.Bool("in_place", res.InPlace),
	)
	return res, nil
}

// ExpandCapacity grows the token's ring to hold at least minCapacity
// snapshots and returns the resulting capacity. Growth is effective for the
// very next write; it never shrinks and never moves committed entries.
func (c *Core) ExpandCapacity(token common.Address, minCapacity uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rings[token]
	if !ok {
		if minCapacity < c.cfg.InitialCapacity {
			minCapacity = c.cfg.InitialCapacity
		}
		r = newTokenRing(minCapacity)
		c.rings[token] = r
		return r.counts.Capacity
	}
	return r.expand(minCapacity)
}

// Counts returns the token's ring metadata. A token never written and never
// expanded reports zero counts.
func (c *Core) Counts(token common.Address) model.Counts {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if r, ok := c.rings[token]; ok {
		return r.counts
	}
	return model.Counts{}
}

// SnapshotAt returns the raw snapshot in a physical slot.
func (c *Core) SnapshotAt(token common.Address, physicalIndex uint64) (model.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rings[token]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("no snapshots for token %s", token.Hex())
	}
	if physicalIndex >= uint64(len(r.slots)) {
		return model.Snapshot{}, fmt.Errorf("physical index %d out of range (capacity %d)", physicalIndex, r.counts.Capacity)
	}
	return r.slots[physicalIndex].snap.Clone(), nil
}
