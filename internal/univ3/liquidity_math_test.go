package univ3

import (
	"math/big"
	"testing"
)

func mustSqrt(t *testing.T, tick int32) *big.Int {
	t.Helper()
	sqrt, err := SqrtRatioAtTick(tick)
	if err != nil {
		t.Fatalf("SqrtRatioAtTick(%d): %v", tick, err)
	}
	return sqrt
}

func TestLiquidityAmountRoundTrip(t *testing.T) {
	// Derive L from one side, then recover amounts at a mid price; the
	// recovered side must not exceed what was supplied.
	sqrtLower := mustSqrt(t, -600)
	sqrtUpper := mustSqrt(t, 600)
	sqrtMid := mustSqrt(t, 0)

	amount0, _ := new(big.Int).SetString("1000000000000000000", 10) // 1e18

	liquidity := LiquidityForAmount0(sqrtMid, sqrtUpper, amount0)
	if liquidity.Sign() <= 0 {
		t.Fatal("liquidity must be positive")
	}

	got0, got1 := AmountsForLiquidity(sqrtMid, sqrtLower, sqrtUpper, liquidity)
	if got0.Cmp(amount0) > 0 {
		// rounding up may add at most one raw unit
		diff := new(big.Int).Sub(got0, amount0)
		if diff.Cmp(big.NewInt(2)) > 0 {
			t.Errorf("amount0 %s exceeds input %s by more than rounding", got0, amount0)
		}
	}
	if got1.Sign() <= 0 {
		t.Error("in-range position must require both tokens")
	}
}

func TestAmountsForLiquidityOutsideRange(t *testing.T) {
	sqrtLower := mustSqrt(t, 600)
	sqrtUpper := mustSqrt(t, 1200)
	liquidity := big.NewInt(1_000_000_000)

	t.Run("below range is all token0", func(t *testing.T) {
		below := mustSqrt(t, 0)
		amount0, amount1 := AmountsForLiquidity(below, sqrtLower, sqrtUpper, liquidity)
		if amount0.Sign() <= 0 {
			t.Error("expected positive amount0")
		}
		if amount1.Sign() != 0 {
			t.Errorf("expected zero amount1, got %s", amount1)
		}
	})

	t.Run("above range is all token1", func(t *testing.T) {
		above := mustSqrt(t, 1800)
		amount0, amount1 := AmountsForLiquidity(above, sqrtLower, sqrtUpper, liquidity)
		if amount0.Sign() != 0 {
			t.Errorf("expected zero amount0, got %s", amount0)
		}
		if amount1.Sign() <= 0 {
			t.Error("expected positive amount1")
		}
	})
}

func TestLiquidityForAmount1(t *testing.T) {
	sqrtLower := mustSqrt(t, -600)
	sqrtUpper := mustSqrt(t, 600)

	amount1, _ := new(big.Int).SetString("5000000000000000000", 10)
	liquidity := LiquidityForAmount1(sqrtLower, sqrtUpper, amount1)
	if liquidity.Sign() <= 0 {
		t.Fatal("liquidity must be positive")
	}

	// Amount1Delta over the full range at that L must not exceed the input.
	back := Amount1Delta(sqrtLower, sqrtUpper, liquidity, false)
	if back.Cmp(amount1) > 0 {
		t.Errorf("recovered amount1 %s exceeds input %s", back, amount1)
	}
}

