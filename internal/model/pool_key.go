package model

import "github.com/ethereum/go-ethereum/common"

// PoolKey identifies the single canonical pool tracked for a token: paired
// with the native token, zero fee, maximum tick spacing.
type PoolKey struct {
	Pool        common.Address `json:"pool"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tick_spacing"`
}

// Counterpart returns the pool token that is not the native token, and
// whether the native token is one of the pair at all.
func (k PoolKey) Counterpart(native common.Address) (common.Address, bool) {
	switch native {
	case k.Token0:
		return k.Token1, true
	case k.Token1:
		return k.Token0, true
	default:
		return common.Address{}, false
	}
}
