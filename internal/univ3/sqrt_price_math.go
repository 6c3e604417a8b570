package univ3

import (
	"errors"
	"math/big"
)

var (
	ErrZeroLiquidity    = errors.New("univ3: liquidity must be positive")
	ErrInvalidSqrtPrice = errors.New("univ3: invalid sqrt price")
	ErrPriceOverflow    = errors.New("univ3: insufficient liquidity for amount")

	q96 = new(big.Int).Lsh(big.NewInt(1), 96)
)

// Amount0Delta returns the token0 amount moved between two sqrt prices at
// the given liquidity:
//
//	amount0 = L * (sqrtB - sqrtA) / (sqrtB * sqrtA)
//
// Rounds up when computing amounts owed to the pool, down otherwise.
func Amount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		return mulDivRoundingUp(mulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96), big.NewInt(1), sqrtRatioAX96)
	}

	out := new(big.Int).Mul(numerator1, numerator2)
	out.Div(out, sqrtRatioBX96)
	return out.Div(out, sqrtRatioAX96)
}

// Amount1Delta returns the token1 amount moved between two sqrt prices:
//
//	amount1 = L * (sqrtB - sqrtA)
func Amount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	diff := new(big.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		return mulDivRoundingUp(liquidity, diff, q96)
	}

	out := new(big.Int).Mul(liquidity, diff)
	return out.Div(out, q96)
}

// NextSqrtPriceFromAmount0RoundingUp computes the sqrt price after adding
// (or removing) amount0 at the given liquidity.
func NextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *big.Int, add bool) (*big.Int, error) {
	if amount.Sign() == 0 {
		return sqrtPX96, nil
	}

	numerator1 := new(big.Int).Lsh(liquidity, 96)

	if add {
		product := new(big.Int).Mul(amount, sqrtPX96)
		denominator := new(big.Int).Add(numerator1, product)
		return mulDivRoundingUp(numerator1, sqrtPX96, denominator), nil
	}

	product := new(big.Int).Mul(amount, sqrtPX96)
	denominator := new(big.Int).Sub(numerator1, product)
	if denominator.Sign() <= 0 {
		return nil, ErrPriceOverflow
	}
	return mulDivRoundingUp(numerator1, sqrtPX96, denominator), nil
}

// NextSqrtPriceFromAmount1RoundingDown computes the sqrt price after adding
// (or removing) amount1 at the given liquidity.
func NextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *big.Int, add bool) *big.Int {
	if add {
		quotient := new(big.Int).Lsh(amount, 96)
		quotient.Div(quotient, liquidity)
		return new(big.Int).Add(sqrtPX96, quotient)
	}

	quotient := mulDivRoundingUp(new(big.Int).Lsh(amount, 96), big.NewInt(1), liquidity)
	result := new(big.Int).Sub(sqrtPX96, quotient)
	if result.Sign() < 0 {
		return big.NewInt(0)
	}
	return result
}

// NextSqrtPriceFromInput computes the sqrt price after consuming amountIn.
// zeroForOne is true when swapping token0 for token1.
func NextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	if sqrtPX96 == nil || sqrtPX96.Sign() <= 0 {
		return nil, ErrInvalidSqrtPrice
	}
	if liquidity == nil || liquidity.Sign() <= 0 {
		return nil, ErrZeroLiquidity
	}

	if zeroForOne {
		return NextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return NextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true), nil
}

// mulDivRoundingUp computes ceil(a * b / denominator). Intermediate
// products can exceed 256 bits, which is why math/big is used throughout.
func mulDivRoundingUp(a, b, denominator *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	result, remainder := new(big.Int).DivMod(product, denominator, new(big.Int))
	if remainder.Sign() > 0 {
		result.Add(result, big.NewInt(1))
	}
	return result
}
