package liquidity

import (
	"errors"
	"math/big"

	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/univ3"
)

// ErrWrongSideOfRange is an advisory, not a failure: the input token
// sits on the side of the range the position does not consume. The
// caller surfaces it as a message instead of computing garbage.
var ErrWrongSideOfRange = errors.New("liquidity: input token is on the wrong side of the range")

// PoolState is an immutable snapshot of a V3 pool, valid only for the
// computation it was fetched for.
type PoolState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// PositionSizing holds mint parameters derived from one input amount.
// Advisory carries ErrWrongSideOfRange when applicable.
type PositionSizing struct {
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Advisory       error
}

// SizeFromSingleAmount derives the paired token amount and mint minimums
// for a position over rng, given one supplied amount.
//
// The branch is on the pool's current tick against the range: below the
// range only token0 is consumed, above it only token1, and inside it the
// paired amount follows from the liquidity implied by the supplied side.
func SizeFromSingleAmount(pool PoolState, rng TickRange, inputIsToken0 bool, inputAmount *big.Int, slippage money.BPS) (PositionSizing, error) {
	if rng.Lower >= rng.Upper {
		return PositionSizing{}, ErrInvalidRange
	}
	if err := EnsurePriceInitialized(pool.SqrtPriceX96); err != nil {
		return PositionSizing{}, err
	}
	if inputAmount == nil || inputAmount.Sign() == 0 {
		return finishSizing(big.NewInt(0), big.NewInt(0), slippage, nil), nil
	}

	sqrtLower, err := univ3.SqrtRatioAtTick(rng.Lower)
	if err != nil {
		return PositionSizing{}, err
	}
	sqrtUpper, err := univ3.SqrtRatioAtTick(rng.Upper)
	if err != nil {
		return PositionSizing{}, err
	}

	switch {
	case pool.Tick < rng.Lower:
		// One-sided: position is entirely token0.
		if !inputIsToken0 {
			return finishSizing(big.NewInt(0), big.NewInt(0), slippage, ErrWrongSideOfRange), nil
		}
		return finishSizing(new(big.Int).Set(inputAmount), big.NewInt(0), slippage, nil), nil

	case pool.Tick > rng.Upper:
		// One-sided: position is entirely token1.
		if inputIsToken0 {
			return finishSizing(big.NewInt(0), big.NewInt(0), slippage, ErrWrongSideOfRange), nil
		}
		return finishSizing(big.NewInt(0), new(big.Int).Set(inputAmount), slippage, nil), nil
	}

	// In range: both tokens are required. The supplied side fixes L;
	// the paired side follows from the same L over its half of the range.
	sqrtCurrent := pool.SqrtPriceX96

	if inputIsToken0 {
		liq := univ3.LiquidityForAmount0(sqrtCurrent, sqrtUpper, inputAmount)
		amount1 := univ3.Amount1Delta(sqrtLower, sqrtCurrent, liq, true)
		return finishSizing(new(big.Int).Set(inputAmount), amount1, slippage, nil), nil
	}

	liq := univ3.LiquidityForAmount1(sqrtLower, sqrtCurrent, inputAmount)
	amount0 := univ3.Amount0Delta(sqrtCurrent, sqrtUpper, liq, true)
	return finishSizing(amount0, new(big.Int).Set(inputAmount), slippage, nil), nil
}

func finishSizing(amount0, amount1 *big.Int, slippage money.BPS, advisory error) PositionSizing {
	return PositionSizing{
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Amount0Min:     money.ApplySlippageFloor(amount0, slippage),
		Amount1Min:     money.ApplySlippageFloor(amount1, slippage),
		Advisory:       advisory,
	}
}
