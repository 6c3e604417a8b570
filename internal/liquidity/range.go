// Package liquidity computes tick ranges and sizes concentrated
// liquidity positions.
package liquidity

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ferranti/dex-swap-engine/internal/univ3"
)

var (
	// ErrInvalidRange is returned for malformed price bounds.
	ErrInvalidRange = errors.New("liquidity: invalid price range")

	// ErrPriceUninitialized marks a pool created without a starting
	// price. The caller must supply an explicit initial price; this is
	// a terminal state, not a retryable error.
	ErrPriceUninitialized = errors.New("liquidity: pool price not initialized")
)

// TickRange is a position's price range. Lower < Upper always holds and
// both ticks are multiples of the pool's tick spacing.
type TickRange struct {
	Lower int32
	Upper int32
}

// Width returns the range width in ticks.
func (r TickRange) Width() int32 {
	return r.Upper - r.Lower
}

func (r TickRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Lower, r.Upper)
}

// FullRange covers every usable tick at the given spacing.
func FullRange(tickSpacing int32) TickRange {
	return TickRange{
		Lower: univ3.SnapToSpacing(univ3.MinTick, tickSpacing),
		Upper: univ3.SnapToSpacing(univ3.MaxTick, tickSpacing),
	}
}

// defaultRangeWidthSpacings is the half-width, in tick spacings, of the
// window placed around the current tick when no bounds are given.
const defaultRangeWidthSpacings = 100

// DefaultRangeAroundCurrent centers a symmetric window on currentTick.
// Used when no pool price history is available to suggest bounds.
func DefaultRangeAroundCurrent(currentTick, tickSpacing int32) TickRange {
	center := univ3.SnapToSpacing(currentTick, tickSpacing)
	half := defaultRangeWidthSpacings * tickSpacing

	lower := univ3.SnapToSpacing(center-half, tickSpacing)
	upper := univ3.SnapToSpacing(center+half, tickSpacing)
	if lower >= upper {
		upper = lower + tickSpacing
	}
	return TickRange{Lower: lower, Upper: upper}
}

// CustomRange converts explicit price bounds to a snapped tick range.
// Prices are token1-per-token0 decimal strings. Fails with
// ErrInvalidRange when lowerPrice >= upperPrice or either bound is not
// a positive number.
func CustomRange(lowerPrice, upperPrice string, decimals0, decimals1 uint8, tickSpacing int32) (TickRange, error) {
	lowerNum, lowerDen, err := univ3.ParsePrice(lowerPrice)
	if err != nil {
		return TickRange{}, fmt.Errorf("%w: lower bound: %v", ErrInvalidRange, err)
	}
	upperNum, upperDen, err := univ3.ParsePrice(upperPrice)
	if err != nil {
		return TickRange{}, fmt.Errorf("%w: upper bound: %v", ErrInvalidRange, err)
	}

	// lower/lowerDen >= upper/upperDen, cross multiplied
	lhs := new(big.Int).Mul(lowerNum, upperDen)
	rhs := new(big.Int).Mul(upperNum, lowerDen)
	if lhs.Cmp(rhs) >= 0 {
		return TickRange{}, fmt.Errorf("%w: lower %s >= upper %s", ErrInvalidRange, lowerPrice, upperPrice)
	}

	lowerTick, err := univ3.TickForPrice(lowerPrice, decimals0, decimals1, tickSpacing)
	if err != nil {
		return TickRange{}, err
	}
	upperTick, err := univ3.TickForPrice(upperPrice, decimals0, decimals1, tickSpacing)
	if err != nil {
		return TickRange{}, err
	}

	// Snapping can collapse nearby bounds onto the same tick.
	if upperTick <= lowerTick {
		upperTick = lowerTick + tickSpacing
	}
	return TickRange{Lower: lowerTick, Upper: upperTick}, nil
}

// EnsurePriceInitialized fails with ErrPriceUninitialized when a pool's
// sqrt price is unset (pool created, price never seeded).
func EnsurePriceInitialized(sqrtPriceX96 *big.Int) error {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return ErrPriceUninitialized
	}
	return nil
}
