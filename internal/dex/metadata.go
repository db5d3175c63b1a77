package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"oracleScope/internal/chain"
	"oracleScope/internal/model"
)

// FetchPoolKey loads the immutable pool identity from chain: token pair,
// fee, and tick spacing. The oracle validates the result against its
// canonical-pool constraints before accepting the token.
func FetchPoolKey(ctx context.Context, chainClient *chain.Client, pool common.Address) (model.PoolKey, error) {
	if chainClient == nil {
		return model.PoolKey{}, fmt.Errorf("chain client is nil")
	}

	parsed, err := PoolABI()
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callPoolMethod(ctx, chainClient, pool, parsed, "token0", nil)
	if err != nil {
		return model.PoolKey{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callPoolMethod(ctx, chainClient, pool, parsed, "token1", nil)
	if err != nil {
		return model.PoolKey{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callPoolMethod(ctx, chainClient, pool, parsed, "fee", nil)
	if err != nil {
		return model.PoolKey{}, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("fee: %w", err)
	}

	values, err = callPoolMethod(ctx, chainClient, pool, parsed, "tickSpacing", nil)
	if err != nil {
		return model.PoolKey{}, err
	}
	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("tick spacing: %w", err)
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return model.PoolKey{}, fmt.Errorf("tick spacing: %w", err)
	}

	return model.PoolKey{
		Pool:        pool,
		Token0:      token0,
		Token1:      token1,
		Fee:         uint32(feeInt.Uint64()),
		TickSpacing: tickSpacing,
	}, nil
}

// PoolState is the live rate read from chain, used to seed the tracker
// before the first observed swap.
type PoolState struct {
	Tick      int32
	Liquidity *uint256.Int
}

// FetchPoolState loads the pool's current tick and liquidity via eth_call.
func FetchPoolState(ctx context.Context, chainClient *chain.Client, pool common.Address) (PoolState, error) {
	if chainClient == nil {
		return PoolState{}, fmt.Errorf("chain client is nil")
	}

	parsed, err := PoolABI()
	if err != nil {
		return PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callPoolMethod(ctx, chainClient, pool, parsed, "slot0", nil)
	if err != nil {
		return PoolState{}, err
	}
	if len(values) < 2 {
		return PoolState{}, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return PoolState{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return PoolState{}, fmt.Errorf("tick: %w", err)
	}

	values, err = callPoolMethod(ctx, chainClient, pool, parsed, "liquidity", nil)
	if err != nil {
		return PoolState{}, err
	}
	liquidityBig, err := asBigInt(values[0])
	if err != nil {
		return PoolState{}, fmt.Errorf("liquidity: %w", err)
	}
	liquidity, overflow := uint256.FromBig(liquidityBig)
	if overflow {
		return PoolState{}, fmt.Errorf("liquidity overflow: %s", liquidityBig)
	}

	return PoolState{Tick: tick, Liquidity: liquidity}, nil
}

func callPoolMethod(ctx context.Context, chainClient *chain.Client, pool common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := chainClient.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
