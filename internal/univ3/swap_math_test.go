package univ3

import (
	"math/big"
	"testing"
)

func TestNextSqrtPriceFromAmount0RoundingUp(t *testing.T) {
	sqrtP := new(big.Int).Lsh(big.NewInt(1), 96) // price 1
	liquidity, _ := new(big.Int).SetString("10000000000000000000000", 10)
	amount, _ := new(big.Int).SetString("1000000000000000000", 10)

	next, err := NextSqrtPriceFromAmount0RoundingUp(sqrtP, liquidity, amount, true)
	if err != nil {
		t.Fatalf("NextSqrtPriceFromAmount0RoundingUp: %v", err)
	}

	// ceil(L<<96 * sqrtP / (L<<96 + amount*sqrtP)) with L=1e22, amount=1e18.
	want, _ := new(big.Int).SetString("79220240490215316061937756561", 10)
	if next.Cmp(want) != 0 {
		t.Errorf("next = %s, want %s", next, want)
	}
	if next.Cmp(sqrtP) >= 0 {
		t.Errorf("adding token0 must move the sqrt price down, got %s >= %s", next, sqrtP)
	}

	// Removing the same amount at the new price must land within
	// rounding of the start.
	back, err := NextSqrtPriceFromAmount0RoundingUp(next, liquidity, amount, false)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	diff := new(big.Int).Sub(back, sqrtP)
	if diff.CmpAbs(big.NewInt(2)) > 0 {
		t.Errorf("round trip drifted by %s", diff)
	}
}

func TestSimulateExactIn(t *testing.T) {
	sqrtPrice := new(big.Int).Lsh(big.NewInt(1), 96)
	liquidity, _ := new(big.Int).SetString("10000000000000000000000", 10)
	amountIn, _ := new(big.Int).SetString("1000000000000000000", 10)

	t.Run("zero for one", func(t *testing.T) {
		res, err := SimulateExactIn(sqrtPrice, liquidity, amountIn, true, 3000)
		if err != nil {
			t.Fatalf("SimulateExactIn: %v", err)
		}
		if res.SqrtPriceNextX96.Cmp(sqrtPrice) >= 0 {
			t.Fatalf("price must move down when selling token0, got %s", res.SqrtPriceNextX96)
		}

		wantNext, _ := new(big.Int).SetString("79220264253918221946815852796", 10)
		if res.SqrtPriceNextX96.Cmp(wantNext) != 0 {
			t.Errorf("next sqrt price = %s, want %s", res.SqrtPriceNextX96, wantNext)
		}
		wantOut, _ := new(big.Int).SetString("996900609009281774", 10)
		if res.AmountOut.Cmp(wantOut) != 0 {
			t.Errorf("amountOut = %s, want %s", res.AmountOut, wantOut)
		}
		if res.FeeAmount.Cmp(big.NewInt(3000000000000000)) != 0 {
			t.Errorf("fee = %s, want 3000000000000000", res.FeeAmount)
		}
	})

	t.Run("one for zero", func(t *testing.T) {
		res, err := SimulateExactIn(sqrtPrice, liquidity, amountIn, false, 3000)
		if err != nil {
			t.Fatalf("SimulateExactIn: %v", err)
		}
		if res.SqrtPriceNextX96.Cmp(sqrtPrice) <= 0 {
			t.Fatalf("price must move up when selling token1, got %s", res.SqrtPriceNextX96)
		}

		// At price 1 both directions are symmetric.
		wantOut, _ := new(big.Int).SetString("996900609009281774", 10)
		if res.AmountOut.Cmp(wantOut) != 0 {
			t.Errorf("amountOut = %s, want %s", res.AmountOut, wantOut)
		}
	})

	t.Run("output below input for any fee", func(t *testing.T) {
		for _, fee := range []int{100, 500, 3000, 10000} {
			res, err := SimulateExactIn(sqrtPrice, liquidity, amountIn, true, fee)
			if err != nil {
				t.Fatalf("fee %d: %v", fee, err)
			}
			if res.AmountOut.Cmp(amountIn) >= 0 {
				t.Errorf("fee %d: amountOut %s >= amountIn %s", fee, res.AmountOut, amountIn)
			}
		}
	})

	t.Run("zero liquidity fails", func(t *testing.T) {
		if _, err := SimulateExactIn(sqrtPrice, big.NewInt(0), amountIn, true, 3000); err == nil {
			t.Error("expected error for zero liquidity")
		}
	})
}

func TestPriceImpactBPS(t *testing.T) {
	before := mustSqrt(t, 0)

	t.Run("no movement", func(t *testing.T) {
		if got := PriceImpactBPS(before, before); got != 0 {
			t.Errorf("got %d, want 0", got)
		}
	})

	t.Run("movement reported as positive", func(t *testing.T) {
		after := mustSqrt(t, -100) // ~0.5% sqrt move, ~1% price move
		got := PriceImpactBPS(before, after)
		if got < 90 || got > 110 {
			t.Errorf("got %d bps, want ~100", got)
		}
	})

	t.Run("nil safe", func(t *testing.T) {
		if got := PriceImpactBPS(nil, before); got != 0 {
			t.Errorf("got %d, want 0", got)
		}
	})
}
