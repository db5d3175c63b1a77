package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// SwapObservation is the rate reading extracted from one Swap log: the
// pool's tick and active liquidity after the swap.
type SwapObservation struct {
	Pool         common.Address
	Tick         int32
	Liquidity    *uint256.Int
	SqrtPriceX96 *big.Int
}

// SwapDecoder extracts rate readings from pool Swap logs.
type SwapDecoder struct {
	event abi.Event
}

// NewSwapDecoder builds a decoder for the pool Swap event.
func NewSwapDecoder() (*SwapDecoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return &SwapDecoder{event: parsed.Events["Swap"]}, nil
}

// Topic0 returns the Swap event signature hash, for log filtering.
func (d *SwapDecoder) Topic0() common.Hash {
	return d.event.ID
}

// CanDecode checks whether the log is a pool Swap event.
func (d *SwapDecoder) CanDecode(log types.Log) bool {
	return len(log.Topics) > 0 && log.Topics[0] == d.event.ID
}

// Decode extracts the rate reading from a Swap log.
func (d *SwapDecoder) Decode(log types.Log) (SwapObservation, error) {
	if !d.CanDecode(log) {
		return SwapObservation{}, fmt.Errorf("not a swap log")
	}

	values, err := d.event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return SwapObservation{}, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 5 {
		return SwapObservation{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return SwapObservation{}, fmt.Errorf("sqrt price: %w", err)
	}
	liquidityBig, err := asBigInt(values[3])
	if err != nil {
		return SwapObservation{}, fmt.Errorf("liquidity: %w", err)
	}
	liquidity, overflow := uint256.FromBig(liquidityBig)
	if overflow {
		return SwapObservation{}, fmt.Errorf("liquidity overflow: %s", liquidityBig)
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return SwapObservation{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return SwapObservation{}, fmt.Errorf("tick: %w", err)
	}

	return SwapObservation{
		Pool:         log.Address,
		Tick:         tick,
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPrice,
	}, nil
}
