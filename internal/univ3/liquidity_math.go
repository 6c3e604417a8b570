package univ3

import (
	"math/big"
)

// LiquidityForAmount0 returns the maximum liquidity a token0 amount can
// provide over the sqrt-price range [sqrtA, sqrtB]:
//
//	L = amount0 * (sqrtA * sqrtB / 2^96) / (sqrtB - sqrtA)
func LiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *big.Int) *big.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	intermediate := new(big.Int).Mul(sqrtRatioAX96, sqrtRatioBX96)
	intermediate.Div(intermediate, q96)

	diff := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if diff.Sign() == 0 {
		return new(big.Int)
	}

	out := new(big.Int).Mul(amount0, intermediate)
	return out.Div(out, diff)
}

// LiquidityForAmount1 returns the maximum liquidity a token1 amount can
// provide over the range:
//
//	L = amount1 * 2^96 / (sqrtB - sqrtA)
func LiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *big.Int) *big.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	diff := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if diff.Sign() == 0 {
		return new(big.Int)
	}

	out := new(big.Int).Mul(amount1, q96)
	return out.Div(out, diff)
}

// AmountsForLiquidity returns the token amounts a position of the given
// liquidity holds at the current sqrt price. Below the range the position
// is all token0, above it all token1, inside it a mix.
func AmountsForLiquidity(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int) (amount0, amount1 *big.Int) {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	switch {
	case sqrtRatioX96.Cmp(sqrtRatioAX96) <= 0:
		return Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true), new(big.Int)
	case sqrtRatioX96.Cmp(sqrtRatioBX96) >= 0:
		return new(big.Int), Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
	default:
		amount0 = Amount0Delta(sqrtRatioX96, sqrtRatioBX96, liquidity, true)
		amount1 = Amount1Delta(sqrtRatioAX96, sqrtRatioX96, liquidity, true)
		return amount0, amount1
	}
}
