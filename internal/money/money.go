// Package money provides fixed-point value types for quoting calculations.
// Token amounts stay in raw integer units (scaled by decimals) end to end;
// floats appear only at display boundaries.
package money

import (
	"fmt"
	"math"
	"math/big"
)

// BPSScale is the basis-point denominator: 100% = 10000 bps.
const BPSScale int64 = 10000

// BPS represents basis points (1 bps = 0.01% = 0.0001).
type BPS int64

// NewBPS creates BPS from a percentage (0.5 -> 50 bps).
func NewBPS(percent float64) BPS {
	return BPS(percent * 100)
}

// NewBPSFromInt creates BPS directly from basis points.
func NewBPSFromInt(bps int64) BPS {
	return BPS(bps)
}

// Add returns a + b.
func (a BPS) Add(b BPS) BPS {
	return a + b
}

// Sub returns a - b.
func (a BPS) Sub(b BPS) BPS {
	return a - b
}

// Abs returns absolute value.
func (a BPS) Abs() BPS {
	if a < 0 {
		return -a
	}
	return a
}

// Clamp limits a to [lo, hi].
func (a BPS) Clamp(lo, hi BPS) BPS {
	if a < lo {
		return lo
	}
	if a > hi {
		return hi
	}
	return a
}

// Float64 returns the percentage as float (50 bps = 0.5).
func (a BPS) Float64() float64 {
	return float64(a) / 100.0
}

// Percent returns a percentage string ("0.50%").
func (a BPS) Percent() string {
	return fmt.Sprintf("%.2f%%", float64(a)/100.0)
}

// String returns basis points as string ("50 bps").
func (a BPS) String() string {
	return fmt.Sprintf("%d bps", a)
}

// Int64 returns raw basis points.
func (a BPS) Int64() int64 {
	return int64(a)
}

// --- Raw-amount slippage helpers ---

// ApplySlippageFloor returns amount * (10000 - bps) / 10000 with floor
// division, matching on-chain minimum-out and minimum-mint expectations.
// A nil or negative amount yields zero; bps is clamped to [0, 10000].
func ApplySlippageFloor(amount *big.Int, bps BPS) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}
	bps = bps.Clamp(0, BPS(BPSScale))
	out := new(big.Int).Mul(amount, big.NewInt(BPSScale-int64(bps)))
	return out.Div(out, big.NewInt(BPSScale))
}

// RatioBPS returns (a - b) / b in basis points, floored at zero.
// Used for price-impact style "how much worse than reference" figures.
func RatioBPS(a, b *big.Int) BPS {
	if a == nil || b == nil || b.Sign() == 0 {
		return 0
	}
	diff := new(big.Int).Sub(a, b)
	if diff.Sign() <= 0 {
		return 0
	}
	diff.Mul(diff, big.NewInt(BPSScale))
	diff.Div(diff, b)
	if !diff.IsInt64() {
		return BPS(math.MaxInt64)
	}
	return BPS(diff.Int64())
}
