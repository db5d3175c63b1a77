package oracle

import (
	"github.com/ethereum/go-ethereum/common"

	"oracleScope/internal/model"
)

// MaxTickSpacing is the full price-range tick spacing. A pool with this
// spacing admits only full-range positions, which is what makes its
// accumulators usable as a manipulation-resistant oracle.
const MaxTickSpacing int32 = 887272

// ValidatePoolKey checks the canonical-pool constraints against the native
// token: native pairing, zero fee, maximum tick spacing.
func ValidatePoolKey(key model.PoolKey, native common.Address) error {
	if _, ok := key.Counterpart(native); !ok {
		return ErrPairsWithNativeTokenOnly
	}
	if key.Fee != 0 {
		return ErrFeeMustBeZero
	}
	if key.TickSpacing != MaxTickSpacing {
		return ErrTickSpacingMustBeMaximum
	}
	return nil
}

// RegisterPool validates and records the canonical pool for the token it
// pairs with the native token.
func (c *Core) RegisterPool(key model.PoolKey) (common.Address, error) {
	token, ok := key.Counterpart(c.cfg.NativeToken)
	if !ok {
		return common.Address{}, ErrPairsWithNativeTokenOnly
	}
	if err := ValidatePoolKey(key, c.cfg.NativeToken); err != nil {
		return common.Address{}, err
	}

	c.mu.Lock()
	c.pools[token] = key
	c.mu.Unlock()
	return token, nil
}

// PoolKey returns the registered canonical pool for a token.
func (c *Core) PoolKey(token common.Address) (model.PoolKey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key, ok := c.pools[token]
	if !ok {
		return model.PoolKey{}, ErrPoolNotRegistered
	}
	return key, nil
}
