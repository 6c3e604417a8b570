// Package quote computes swap quotes against V2 and V3 pools.
package quote

import (
	"errors"
	"math/big"

	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/token"
)

var (
	// ErrNoLiquidity is returned when a pool has empty reserves.
	ErrNoLiquidity = errors.New("quote: pool has no liquidity")

	// ErrNoRoute is returned when no fee tier has a usable pool.
	ErrNoRoute = errors.New("quote: no route for pair")
)

// SwapQuote is the result of quoting one prospective swap. It is a
// value snapshot; each recompute produces a fresh one.
type SwapQuote struct {
	AmountOut       *big.Int
	MinimumReceived *big.Int
	PriceImpact     money.BPS
	FeeTier         token.FeeTier
	Version         token.Version
}

// WithMinimumReceived returns a copy with MinimumReceived derived from
// the given slippage tolerance.
func (q SwapQuote) WithMinimumReceived(slippage money.BPS) SwapQuote {
	q.MinimumReceived = money.ApplySlippageFloor(q.AmountOut, slippage)
	return q
}
