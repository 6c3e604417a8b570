package univ3

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Price strings are human-readable token1-per-token0 quotes. Conversions
// below move between that representation, raw-unit ratios and Q64.96 sqrt
// prices without ever touching binary floating point.

var (
	ErrInvalidPrice = errors.New("univ3: price must be a positive decimal")
)

// ParsePrice parses a positive decimal string ("1800.25") into an exact
// numerator/denominator pair.
func ParsePrice(s string) (num, den *big.Int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, ErrInvalidPrice
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() <= 0 {
		return nil, nil, ErrInvalidPrice
	}
	return r.Num(), r.Denom(), nil
}

// SqrtRatioX96FromRawPrice converts an exact raw-unit price ratio
// (token1 raw per token0 raw) into a Q64.96 sqrt price:
//
//	sqrtPriceX96 = floor(sqrt(num * 2^192 / den))
func SqrtRatioX96FromRawPrice(num, den *big.Int) (*big.Int, error) {
	if num == nil || den == nil || num.Sign() <= 0 || den.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}

	ratio := new(big.Int).Lsh(num, 192)
	ratio.Div(ratio, den)
	sqrt := new(big.Int).Sqrt(ratio)

	if sqrt.Cmp(MinSqrtRatio) < 0 || sqrt.Cmp(MaxSqrtRatio) >= 0 {
		return nil, ErrSqrtRatioBounds
	}
	return sqrt, nil
}

// SqrtRatioX96FromPrice converts a human price string into a Q64.96 sqrt
// price, adjusting for the two tokens' decimal scales.
func SqrtRatioX96FromPrice(price string, decimals0, decimals1 uint8) (*big.Int, error) {
	num, den, err := ParsePrice(price)
	if err != nil {
		return nil, err
	}

	// human price * 10^d1 / 10^d0 = raw ratio
	rawNum := new(big.Int).Mul(num, pow10(int(decimals1)))
	rawDen := new(big.Int).Mul(den, pow10(int(decimals0)))
	return SqrtRatioX96FromRawPrice(rawNum, rawDen)
}

// TickForPrice returns the tick nearest to the given human price that is a
// multiple of tickSpacing. Of the two surrounding multiples, the one whose
// implied price is closer wins; exact ties round down.
func TickForPrice(price string, decimals0, decimals1 uint8, tickSpacing int32) (int32, error) {
	if tickSpacing <= 0 {
		return 0, fmt.Errorf("univ3: tick spacing must be positive, got %d", tickSpacing)
	}

	targetSqrt, err := SqrtRatioX96FromPrice(price, decimals0, decimals1)
	if err != nil {
		return 0, err
	}

	floorTick, err := TickAtSqrtRatio(targetSqrt)
	if err != nil {
		return 0, err
	}

	lower := floorDiv(floorTick, tickSpacing) * tickSpacing
	upper := lower + tickSpacing

	lower = clampTick(lower, tickSpacing)
	upper = clampTick(upper, tickSpacing)
	if lower == upper {
		return lower, nil
	}

	lowerSqrt, err := SqrtRatioAtTick(lower)
	if err != nil {
		return 0, err
	}
	upperSqrt, err := SqrtRatioAtTick(upper)
	if err != nil {
		return 0, err
	}

	distLower := new(big.Int).Sub(targetSqrt, lowerSqrt)
	distLower.Abs(distLower)
	distUpper := new(big.Int).Sub(upperSqrt, targetSqrt)
	distUpper.Abs(distUpper)

	if distUpper.Cmp(distLower) < 0 {
		return upper, nil
	}
	return lower, nil
}

// PriceForTick renders the human price implied by a tick:
//
//	price = 1.0001^tick * 10^(d0-d1)
//
// formatted with the given number of fraction digits. The underlying power
// is computed by SqrtRatioAtTick's fixed-point repeated squaring, bounding
// error below one unit of the last digit.
func PriceForTick(tick int32, decimals0, decimals1 uint8, fractionDigits int) (string, error) {
	sqrt, err := SqrtRatioAtTick(tick)
	if err != nil {
		return "", err
	}
	if fractionDigits < 0 {
		fractionDigits = 0
	}

	// price * 10^fractionDigits = sqrt^2 * 10^(d0+digits) / (2^192 * 10^d1)
	num := new(big.Int).Mul(sqrt, sqrt)
	num.Mul(num, pow10(int(decimals0)+fractionDigits))

	den := new(big.Int).Lsh(big.NewInt(1), 192)
	den.Mul(den, pow10(int(decimals1)))

	scaled := num.Div(num, den)
	return formatScaled(scaled, fractionDigits), nil
}

// SnapToSpacing rounds a tick to the nearest usable multiple of spacing,
// clamped inside the protocol bounds.
func SnapToSpacing(tick, spacing int32) int32 {
	if spacing <= 0 {
		return tick
	}
	lower := floorDiv(tick, spacing) * spacing
	upper := lower + spacing
	// ties round down
	if tick-lower > upper-tick {
		return clampTick(upper, spacing)
	}
	return clampTick(lower, spacing)
}

func clampTick(tick, spacing int32) int32 {
	minUsable := floorDiv(MinTick, spacing)*spacing + spacing
	if MinTick%spacing == 0 {
		minUsable = MinTick
	}
	maxUsable := floorDiv(MaxTick, spacing) * spacing
	if tick < minUsable {
		return minUsable
	}
	if tick > maxUsable {
		return maxUsable
	}
	return tick
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func pow10(n int) *big.Int {
	if n < 0 {
		n = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// formatScaled renders value/10^digits as a decimal string.
func formatScaled(value *big.Int, digits int) string {
	if digits == 0 {
		return value.String()
	}
	scale := pow10(digits)
	whole, frac := new(big.Int).DivMod(value, scale, new(big.Int))
	return fmt.Sprintf("%s.%0*s", whole, digits, frac.String())
}
