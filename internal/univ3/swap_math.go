package univ3

import (
	"math/big"
)

const feeDenominator = 1000000 // fee tiers are expressed in pips

// SwapResult is the outcome of a single-range swap simulation.
type SwapResult struct {
	AmountOut        *big.Int
	SqrtPriceNextX96 *big.Int
	FeeAmount        *big.Int
}

// SimulateExactIn simulates swapping amountIn within the current price
// range, assuming no initialized tick is crossed. Used as the local
// fallback when the on-chain quoter is unreachable; the authoritative
// number always comes from the quoter contract.
func SimulateExactIn(sqrtPriceX96, liquidity, amountIn *big.Int, zeroForOne bool, feePips int) (*SwapResult, error) {
	amountInLessFee := new(big.Int).Mul(amountIn, big.NewInt(int64(feeDenominator-feePips)))
	amountInLessFee.Div(amountInLessFee, big.NewInt(feeDenominator))

	sqrtPriceNextX96, err := NextSqrtPriceFromInput(sqrtPriceX96, liquidity, amountInLessFee, zeroForOne)
	if err != nil {
		return nil, err
	}

	var amountOut *big.Int
	if zeroForOne {
		amountOut = Amount1Delta(sqrtPriceNextX96, sqrtPriceX96, liquidity, false)
	} else {
		amountOut = Amount0Delta(sqrtPriceX96, sqrtPriceNextX96, liquidity, false)
	}

	fee := new(big.Int).Sub(amountIn, amountInLessFee)

	return &SwapResult{
		AmountOut:        amountOut,
		SqrtPriceNextX96: sqrtPriceNextX96,
		FeeAmount:        fee,
	}, nil
}

// PriceImpactBPS returns the relative sqrt-price movement of a swap in
// basis points of price (sqrt movement doubled, since price = sqrt^2),
// floored at zero.
func PriceImpactBPS(sqrtPriceBeforeX96, sqrtPriceAfterX96 *big.Int) int64 {
	if sqrtPriceBeforeX96 == nil || sqrtPriceBeforeX96.Sign() == 0 || sqrtPriceAfterX96 == nil {
		return 0
	}

	diff := new(big.Int).Sub(sqrtPriceAfterX96, sqrtPriceBeforeX96)
	if diff.Sign() < 0 {
		diff.Neg(diff)
	}

	diff.Mul(diff, big.NewInt(10000))
	diff.Div(diff, sqrtPriceBeforeX96)

	// price moves ~twice as fast as sqrt(price) for small deltas
	impact := diff.Int64() * 2
	if impact < 0 {
		return 0
	}
	return impact
}
