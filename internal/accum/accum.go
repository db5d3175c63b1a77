// Package accum implements the wrapping fixed-point arithmetic used by the
// oracle accumulators.
//
// The seconds-per-liquidity accumulator is a 160-bit unsigned value in X128
// fixed point: one second at one unit of liquidity contributes 2^128. All
// operations wrap modulo 2^160, so consumers must take differences with
// SubSecondsPerLiquidity rather than comparing magnitudes. The tick
// accumulator is a signed 64-bit value wrapping modulo 2^64.
package accum

import "github.com/holiman/uint256"

// SecondsPerLiquidityBits is the accumulator width in bits.
const SecondsPerLiquidityBits = 160

// mask160 is 2^160 - 1.
var mask160 = func() *uint256.Int {
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, SecondsPerLiquidityBits)
	return m.Sub(m, one)
}()

// Wrap160 reduces v modulo 2^160 in place and returns it.
func Wrap160(v *uint256.Int) *uint256.Int {
	return v.And(v, mask160)
}

// SecondsPerLiquidityDelta returns elapsed seconds scaled by 2^128 and
// divided by liquidity, reduced modulo 2^160. A zero or nil liquidity is
// treated as one so empty pools still accrue time.
func SecondsPerLiquidityDelta(elapsed uint64, liquidity *uint256.Int) *uint256.Int {
	delta := new(uint256.Int).SetUint64(elapsed)
	delta.Lsh(delta, 128)
	if liquidity != nil && !liquidity.IsZero() {
		delta.Div(delta, liquidity)
	}
	return Wrap160(delta)
}

// AddSecondsPerLiquidity returns cum + delta modulo 2^160 as a new value.
func AddSecondsPerLiquidity(cum, delta *uint256.Int) *uint256.Int {
	sum := new(uint256.Int).Add(cum, delta)
	return Wrap160(sum)
}

// SubSecondsPerLiquidity returns a - b modulo 2^160 as a new value. The
// result is the accumulated seconds-per-liquidity between the two readings
// even when the accumulator wrapped in between.
func SubSecondsPerLiquidity(a, b *uint256.Int) *uint256.Int {
	diff := new(uint256.Int)
	if a.Cmp(b) >= 0 {
		diff.Sub(a, b)
	} else {
		diff.Add(a, mask160)
		diff.AddUint64(diff, 1)
		diff.Sub(diff, b)
	}
	return Wrap160(diff)
}

// AddTickCumulative returns cum + elapsed*tick wrapping modulo 2^64. The
// arithmetic is done in uint64 space where overflow is defined, then
// reinterpreted as signed.
func AddTickCumulative(cum int64, elapsed uint64, tick int32) int64 {
	delta := elapsed * uint64(int64(tick))
	return int64(uint64(cum) + delta)
}

// SubTickCumulative returns a - b wrapping modulo 2^64.
func SubTickCumulative(a, b int64) int64 {
	return int64(uint64(a) - uint64(b))
}
