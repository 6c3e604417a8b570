// Package univ3 implements concentrated-liquidity pool arithmetic:
// tick math, Q64.96 sqrt-price math, liquidity sizing and single-range
// swap simulation. All computation is exact integer arithmetic over
// math/big; binary floating point never enters a money path.
package univ3

import (
	"errors"
	"math/big"
)

// Protocol-wide tick bounds.
// https://github.com/Uniswap/v3-core/blob/main/contracts/libraries/TickMath.sol
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	// MinSqrtRatio is the sqrt price at MinTick.
	MinSqrtRatio = big.NewInt(4295128739)

	// MaxSqrtRatio is the sqrt price at MaxTick.
	MaxSqrtRatio = mustBigInt("1461446703485210103287273052203988822378723970342")

	ErrTickOutOfRange  = errors.New("univ3: tick out of range")
	ErrSqrtRatioBounds = errors.New("univ3: sqrt ratio out of bounds")
)

// tickRatios[i] = sqrt(1.0001^(2^i)) * 2^128, i = 0..19.
// Used to build sqrt(1.0001^tick) by repeated squaring.
var tickRatios = [20]*big.Int{
	mustBigInt("0xfffcb933bd6fad37aa2d162d1a594001"),
	mustBigInt("0xfff97272373d413259a46990580e213a"),
	mustBigInt("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	mustBigInt("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	mustBigInt("0xffcb9843d60f6159c9db58835c926644"),
	mustBigInt("0xff973b41fa98c081472e6896dfb254c0"),
	mustBigInt("0xff2ea16466c96a3843ec78b326b52861"),
	mustBigInt("0xfe5dee046a99a2a811c461f1969c3053"),
	mustBigInt("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	mustBigInt("0xf987a7253ac413176f2b074cf7815e54"),
	mustBigInt("0xf3392b0822b70005940c7a398e4b70f3"),
	mustBigInt("0xe7159475a2c29b7443b29c7fa6e889d9"),
	mustBigInt("0xd097f3bdfd2022b8845ad8f792aa5825"),
	mustBigInt("0xa9f746462d870fdf8a65dc1f90e061e5"),
	mustBigInt("0x70d869a156d2a1b890bb3df62baf32f7"),
	mustBigInt("0x31be135f97d08fd981231505542fcfa6"),
	mustBigInt("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	mustBigInt("0x5d6af8dedb81196699c329225ee604"),
	mustBigInt("0x2216e584f5fa1ea926041bedfe98"),
	mustBigInt("0x48a170391f7dc42444e8fa2"),
}

var (
	oneQ128    = mustBigInt("0x100000000000000000000000000000000")
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// mustBigInt parses a decimal or 0x-prefixed hex string, panicking on error.
// Only used for vetted constants.
func mustBigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		panic("univ3: bad constant " + s)
	}
	return n
}

// SqrtRatioAtTick computes sqrt(1.0001^tick) * 2^96 by repeated squaring
// over Q128 fixed point, matching the on-chain TickMath library bit for bit.
func SqrtRatioAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfRange
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(big.Int).Set(oneQ128)
	for i := 0; i < len(tickRatios); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, tickRatios[i])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio = new(big.Int).Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up so the result round-trips through
	// TickAtSqrtRatio.
	rounded := new(big.Int).Rsh(ratio, 32)
	if new(big.Int).And(ratio, big.NewInt((1<<32)-1)).Sign() != 0 {
		rounded.Add(rounded, big.NewInt(1))
	}
	return rounded, nil
}

// TickAtSqrtRatio returns the largest tick whose sqrt ratio is <= the
// given sqrt price (floor semantics, same as the on-chain library).
func TickAtSqrtRatio(sqrtPriceX96 *big.Int) (int32, error) {
	if sqrtPriceX96 == nil ||
		sqrtPriceX96.Cmp(MinSqrtRatio) < 0 ||
		sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, ErrSqrtRatioBounds
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		// Bias the midpoint up so the loop converges onto the floor tick.
		mid := lo + (hi-lo+1)/2
		ratio, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtPriceX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo, nil
}
