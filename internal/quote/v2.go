package quote

import (
	"math/big"

	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/token"
)

// DefaultV2FeeBPS is the constant-product pool trading fee.
const DefaultV2FeeBPS = money.BPS(30)

var bpsScale = big.NewInt(money.BPSScale)

// QuoteV2 computes the output of a constant-product swap using the
// pool's integer rounding: fee is removed from the input first, then
// amountOut = amountInWithFee * reserveOut / (reserveIn + amountInWithFee)
// with floor division throughout.
//
// Price impact compares the pre-trade marginal price reserveIn/reserveOut
// against the realized execution price of the fee-adjusted input,
// expressed in basis points and floored at zero.
func QuoteV2(reserveIn, reserveOut, amountIn *big.Int, feeBPS money.BPS) (SwapQuote, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return SwapQuote{}, ErrNoLiquidity
	}
	if amountIn == nil || amountIn.Sign() == 0 {
		return SwapQuote{
			AmountOut:   big.NewInt(0),
			PriceImpact: 0,
			Version:     token.V2,
		}, nil
	}

	feeFactor := big.NewInt(money.BPSScale - feeBPS.Int64())
	amountInWithFee := new(big.Int).Mul(amountIn, feeFactor)
	amountInWithFee.Div(amountInWithFee, bpsScale)

	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(reserveIn, amountInWithFee)
	amountOut := new(big.Int).Div(numerator, denominator)

	return SwapQuote{
		AmountOut:   amountOut,
		PriceImpact: v2PriceImpact(reserveIn, reserveOut, amountInWithFee, amountOut),
		Version:     token.V2,
	}, nil
}

// v2PriceImpact computes (execPrice - marginalPrice) / marginalPrice in
// basis points, where execPrice = amountInWithFee/amountOut and
// marginalPrice = reserveIn/reserveOut. Cross-multiplied to stay in
// integers.
func v2PriceImpact(reserveIn, reserveOut, amountInWithFee, amountOut *big.Int) money.BPS {
	if amountOut.Sign() == 0 {
		return 0
	}

	execCross := new(big.Int).Mul(amountInWithFee, reserveOut)
	marginalCross := new(big.Int).Mul(amountOut, reserveIn)

	diff := new(big.Int).Sub(execCross, marginalCross)
	if diff.Sign() <= 0 {
		return 0
	}

	diff.Mul(diff, bpsScale)
	diff.Div(diff, marginalCross)
	return money.BPS(diff.Int64())
}
