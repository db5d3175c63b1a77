package feed

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"oracleScope/internal/accum"
	"oracleScope/internal/model"
	"oracleScope/internal/oracle"
)

// tokenAccount carries the live rate and running cumulatives for one token.
// started flips when the first observation fixes the account's time base.
type tokenAccount struct {
	started                       bool
	lastTimestamp                 uint64
	tick                          int32
	liquidity                     *uint256.Int
	tickCumulative                int64
	secondsPerLiquidityCumulative *uint256.Int
}

// Tracker is the pool-accounting collaborator: it maintains each token's
// instantaneous tick and liquidity plus the running accumulators, and pushes
// a snapshot through the oracle's write hook on every rate change. The
// cumulatives are advanced at the rate in force before the change, which is
// what makes the oracle's constant-rate extrapolation exact.
type Tracker struct {
	mu       sync.RWMutex
	accounts map[common.Address]*tokenAccount
	hook     *oracle.WriteHook
	logger   *zap.Logger
}

// NewTracker builds a Tracker around the oracle's write capability.
func NewTracker(hook *oracle.WriteHook, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		accounts: make(map[common.Address]*tokenAccount),
		hook:     hook,
		logger:   logger,
	}
}

// Bind attaches the oracle's write capability. The tracker doubles as the
// core's rate source, so it is constructed first and bound once the core
// hands out its hook.
func (t *Tracker) Bind(hook *oracle.WriteHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = hook
}

// Seed installs a token's starting rate without recording a snapshot. No
// time accrues at the seeded rate: the first observation fixes its own
// timestamp as the account's time base.
func (t *Tracker) Seed(token common.Address, tick int32, liquidity *uint256.Int) error {
	if liquidity == nil {
		return fmt.Errorf("nil liquidity for token %s", token.Hex())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.accounts[token]; ok {
		return fmt.Errorf("token %s already tracked", token.Hex())
	}
	t.accounts[token] = &tokenAccount{
		tick:                          tick,
		liquidity:                     new(uint256.Int).Set(liquidity),
		secondsPerLiquidityCumulative: uint256.NewInt(0),
	}
	return nil
}

// CurrentRate reports the token's live tick and liquidity. It implements
// oracle.RateSource.
func (t *Tracker) CurrentRate(token common.Address) (int32, *uint256.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	acct, ok := t.accounts[token]
	if !ok {
		return 0, nil, fmt.Errorf("no rate tracked for token %s", token.Hex())
	}
	return acct.tick, new(uint256.Int).Set(acct.liquidity), nil
}

// Apply advances the token's accumulators to ts at the previous rate, adopts
// the new rate, and records the resulting snapshot. The first Apply for a
// token seeds its account with zeroed cumulatives.
func (t *Tracker) Apply(token common.Address, ts uint64, tick int32, liquidity *uint256.Int) (model.SnapshotRecord, error) {
	if liquidity == nil {
		return model.SnapshotRecord{}, fmt.Errorf("nil liquidity for token %s", token.Hex())
	}

	t.mu.Lock()
	acct, ok := t.accounts[token]
	if !ok {
		acct = &tokenAccount{
			secondsPerLiquidityCumulative: uint256.NewInt(0),
		}
		t.accounts[token] = acct
	}
	if !acct.started {
		acct.started = true
		acct.lastTimestamp = ts
	}

	if ts < acct.lastTimestamp {
		t.mu.Unlock()
		return model.SnapshotRecord{}, fmt.Errorf("observation at %d precedes tracked time %d", ts, acct.lastTimestamp)
	}

	if elapsed := ts - acct.lastTimestamp; elapsed > 0 {
		acct.tickCumulative = accum.AddTickCumulative(acct.tickCumulative, elapsed, acct.tick)
		acct.secondsPerLiquidityCumulative = accum.AddSecondsPerLiquidity(
			acct.secondsPerLiquidityCumulative,
			accum.SecondsPerLiquidityDelta(elapsed, acct.liquidity),
		)
	}

	acct.lastTimestamp = ts
	acct.tick = tick
	acct.liquidity = new(uint256.Int).Set(liquidity)

	tickCum := acct.tickCumulative
	splCum := new(uint256.Int).Set(acct.secondsPerLiquidityCumulative)
	hook := t.hook
	t.mu.Unlock()

	if hook == nil {
		return model.SnapshotRecord{}, fmt.Errorf("tracker has no write hook bound")
	}

	res, err := hook.RecordObservation(token, time.Unix(int64(ts), 0), tickCum, splCum)
	if err != nil {
		return model.SnapshotRecord{}, fmt.Errorf("record observation: %w", err)
	}

	t.logger.Debug("rate applied",
		zap.String("token", token.Hex()),
		zap.Uint64("timestamp", ts),
		zap.Int32("tick", tick),
		zap.String("liquidity", liquidity.Dec()),
	)
	return buildSnapshotRecord(token, res, tickCum, splCum, time.Now().UTC()), nil
}
