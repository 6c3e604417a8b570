package quote

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ferranti/dex-swap-engine/internal/chain"
	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/token"
	"github.com/ferranti/dex-swap-engine/internal/univ3"
)

// impactThresholdBPS separates liquid tiers from thin ones during
// best-quote selection.
const impactThresholdBPS = money.BPS(100)

// PoolQuoter is the chain surface V3 quoting needs.
type PoolQuoter interface {
	QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn *big.Int) (*chain.QuoteResult, error)
	V3PoolAddress(ctx context.Context, key token.PoolKey) (common.Address, error)
	V3State(ctx context.Context, pool common.Address) (*chain.V3PoolState, error)
}

// V3Quoter quotes swaps across candidate fee tiers and picks the best pool.
type V3Quoter struct {
	provider      PoolQuoter
	logger        *observability.Logger
	metrics       *observability.Metrics
	maxConcurrent int64
}

// NewV3Quoter creates a V3Quoter. maxConcurrent bounds parallel tier quotes.
func NewV3Quoter(provider PoolQuoter, maxConcurrent int64, logger *observability.Logger, metrics *observability.Metrics) *V3Quoter {
	if maxConcurrent <= 0 {
		maxConcurrent = int64(len(token.StandardFeeTiers))
	}
	return &V3Quoter{
		provider:      provider,
		logger:        logger,
		metrics:       metrics,
		maxConcurrent: maxConcurrent,
	}
}

type tierQuote struct {
	feeTier   token.FeeTier
	amountOut *big.Int
	impact    money.BPS
}

// QuoteBest quotes amountIn across all candidate tiers concurrently and
// selects the best pool:
//
//  1. tiers with impact under 1% are preferred;
//  2. among those, largest amountOut wins, ties broken by lowest fee;
//  3. if none clears the threshold, the globally smallest impact wins.
//
// The threshold stage keeps a thin pool from winning on an illiquid but
// nominally large quote. Returns ErrNoRoute when every tier fails.
func (q *V3Quoter) QuoteBest(ctx context.Context, tokenIn, tokenOut token.Token, amountIn *big.Int, tiers []token.FeeTier) (SwapQuote, error) {
	if amountIn == nil || amountIn.Sign() == 0 {
		return SwapQuote{AmountOut: big.NewInt(0), Version: token.V3}, nil
	}
	if len(tiers) == 0 {
		tiers = token.StandardFeeTiers
	}

	var (
		mu     sync.Mutex
		quotes []tierQuote
	)

	sem := semaphore.NewWeighted(q.maxConcurrent)
	g, gctx := errgroup.WithContext(ctx)

	for _, tier := range tiers {
		tier := tier
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			start := time.Now()
			out, err := q.quoteTier(gctx, tokenIn, tokenOut, tier, amountIn)
			if err != nil {
				// A missing or reverting pool just removes this tier
				// from consideration.
				q.metrics.RecordQuoterCall(gctx, uint32(tier), "failed", time.Since(start))
				q.logger.LogDebug(gctx, "fee tier skipped",
					"fee_tier", uint32(tier), "error", err)
				return nil
			}
			q.metrics.RecordQuoterCall(gctx, uint32(tier), "ok", time.Since(start))

			mu.Lock()
			quotes = append(quotes, tierQuote{
				feeTier:   tier,
				amountOut: out,
				impact:    nominalImpactBPS(amountIn, out),
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return SwapQuote{}, err
	}
	if len(quotes) == 0 {
		return SwapQuote{}, ErrNoRoute
	}

	best := selectBest(quotes)
	q.metrics.RecordFeeTierSelected(ctx, uint32(best.feeTier))

	return SwapQuote{
		AmountOut:   best.amountOut,
		PriceImpact: best.impact,
		FeeTier:     best.feeTier,
		Version:     token.V3,
	}, nil
}

// quoteTier tries the quoter contract first and falls back to a local
// single-range simulation from pool state when the quoter call fails
// for transport reasons. The pool must exist before any simulated
// number is trusted; a quoter will happily return garbage for a
// nonexistent pool.
func (q *V3Quoter) quoteTier(ctx context.Context, tokenIn, tokenOut token.Token, tier token.FeeTier, amountIn *big.Int) (*big.Int, error) {
	key, err := token.NewPoolKey(tokenIn, tokenOut, tier, token.V3)
	if err != nil {
		return nil, err
	}
	// Memoized, so the existence check is a one-time cost per pair.
	pool, err := q.provider.V3PoolAddress(ctx, key)
	if err != nil {
		return nil, err
	}

	res, err := q.provider.QuoteExactInputSingle(ctx, tokenIn.Address, tokenOut.Address, uint32(tier), amountIn)
	if err == nil {
		if res.AmountOut == nil || res.AmountOut.Sign() <= 0 {
			return nil, ErrNoLiquidity
		}
		return res.AmountOut, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	return q.simulateLocally(ctx, pool, tokenIn, tokenOut, tier, amountIn)
}

func (q *V3Quoter) simulateLocally(ctx context.Context, pool common.Address, tokenIn, tokenOut token.Token, tier token.FeeTier, amountIn *big.Int) (*big.Int, error) {
	state, err := q.provider.V3State(ctx, pool)
	if err != nil {
		return nil, err
	}
	if state.SqrtPriceX96 == nil || state.SqrtPriceX96.Sign() == 0 {
		return nil, ErrNoLiquidity
	}

	zeroForOne := tokenIn.SortsBefore(tokenOut)
	sim, err := univ3.SimulateExactIn(state.SqrtPriceX96, state.Liquidity, amountIn, zeroForOne, int(tier))
	if err != nil {
		return nil, err
	}
	if sim.AmountOut.Sign() <= 0 {
		return nil, ErrNoLiquidity
	}
	return sim.AmountOut, nil
}

// nominalImpactBPS is (amountIn - amountOut) / amountIn in basis
// points, floored at zero.
func nominalImpactBPS(amountIn, amountOut *big.Int) money.BPS {
	diff := new(big.Int).Sub(amountIn, amountOut)
	if diff.Sign() <= 0 {
		return 0
	}
	diff.Mul(diff, bpsScale)
	diff.Div(diff, amountIn)
	return money.BPS(diff.Int64())
}

func selectBest(quotes []tierQuote) tierQuote {
	liquid := make([]tierQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.impact < impactThresholdBPS {
			liquid = append(liquid, q)
		}
	}

	if len(liquid) > 0 {
		sort.Slice(liquid, func(i, j int) bool {
			cmp := liquid[i].amountOut.Cmp(liquid[j].amountOut)
			if cmp != 0 {
				return cmp > 0
			}
			return liquid[i].feeTier < liquid[j].feeTier
		})
		return liquid[0]
	}

	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].impact != quotes[j].impact {
			return quotes[i].impact < quotes[j].impact
		}
		return quotes[i].feeTier < quotes[j].feeTier
	})
	return quotes[0]
}
