package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func packSwapData(t *testing.T, amount0, amount1, sqrtPrice, liquidity, tick *big.Int) []byte {
	t.Helper()
	parsed, err := PoolABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	data, err := parsed.Events["Swap"].Inputs.NonIndexed().Pack(amount0, amount1, sqrtPrice, liquidity, tick)
	if err != nil {
		t.Fatalf("pack swap data: %v", err)
	}
	return data
}

func swapLog(t *testing.T, pool common.Address, data []byte) types.Log {
	t.Helper()
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	return types.Log{
		Address: pool,
		Topics: []common.Hash{
			decoder.Topic0(),
			common.HexToHash("0x0000000000000000000000001111111111111111111111111111111111111111"),
			common.HexToHash("0x0000000000000000000000002222222222222222222222222222222222222222"),
		},
		Data: data,
	}
}

func TestSwapDecoderDecode(t *testing.T) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)

	data := packSwapData(t,
		big.NewInt(1000),
		big.NewInt(-2000),
		sqrtPrice,
		big.NewInt(5000),
		big.NewInt(-123),
	)

	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	obs, err := decoder.Decode(swapLog(t, pool, data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if obs.Pool != pool {
		t.Fatalf("pool mismatch: %s", obs.Pool.Hex())
	}
	if obs.Tick != -123 {
		t.Fatalf("tick mismatch: %d != -123", obs.Tick)
	}
	if obs.Liquidity.Uint64() != 5000 {
		t.Fatalf("liquidity mismatch: %s != 5000", obs.Liquidity)
	}
	if obs.SqrtPriceX96.Cmp(sqrtPrice) != 0 {
		t.Fatalf("sqrt price mismatch: %s", obs.SqrtPriceX96)
	}
}

func TestSwapDecoderRejectsForeignLog(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	log := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}
	if decoder.CanDecode(log) {
		t.Fatalf("foreign topic0 must not decode")
	}
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSwapDecoderTruncatedData(t *testing.T) {
	decoder, err := NewSwapDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	log := swapLog(t, common.Address{}, []byte{0x01, 0x02})
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected error for truncated data")
	}
}
