// Package engine orchestrates debounced swap quote recomputation.
package engine

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/quote"
	"github.com/ferranti/dex-swap-engine/internal/token"
)

// Phase is the orchestrator's state for the active swap form.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseQuoting
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebouncing:
		return "debouncing"
	case PhaseQuoting:
		return "quoting"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NativeToken is the sentinel address for the chain's native coin.
var NativeToken = common.Address{}

// ChainReader is the chain surface the orchestrator needs.
type ChainReader interface {
	V2PairAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error)
	V2Reserves(ctx context.Context, pair common.Address) (reserve0, reserve1 *big.Int, err error)
	Allowance(ctx context.Context, tokenAddr, owner, spender common.Address) (*big.Int, error)
	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error)
	WrappedNative() common.Address
}

// BestQuoter selects the best V3 pool for a swap.
type BestQuoter interface {
	QuoteBest(ctx context.Context, tokenIn, tokenOut token.Token, amountIn *big.Int, tiers []token.FeeTier) (quote.SwapQuote, error)
}

// SwapRequest describes one prospective swap. AmountIn nil or zero
// clears the current quote.
type SwapRequest struct {
	TokenIn  token.Token
	TokenOut token.Token
	AmountIn *big.Int
	Version  token.Version
	Slippage money.BPS // 0 means use the configured default
	Owner    common.Address
}

// Snapshot is the orchestrator's externally visible state. It is a
// value copy; each recompute replaces it wholesale.
type Snapshot struct {
	Phase         Phase
	Seq           uint64
	Quote         *quote.SwapQuote
	NeedsApproval bool
	Err           error
}

// Config tunes the orchestrator.
type Config struct {
	DebounceWindow      time.Duration
	DefaultSlippage     money.BPS
	GasSafetyMultiplier float64
	Spender             common.Address // router granted the input-token allowance
}

// Orchestrator debounces amount changes and recomputes quotes with
// last-request-wins semantics. Each submission bumps a sequence number;
// results carrying a stale sequence are discarded, never applied.
type Orchestrator struct {
	mu      sync.Mutex
	seq     uint64
	phase   Phase
	current Snapshot
	timer   *time.Timer

	cfg     Config
	reader  ChainReader
	v3      BestQuoter
	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  observability.Tracer
}

// New creates an Orchestrator.
func New(cfg Config, reader ChainReader, v3 BestQuoter, logger *observability.Logger, metrics *observability.Metrics) *Orchestrator {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 500 * time.Millisecond
	}
	if cfg.GasSafetyMultiplier < 1.0 {
		cfg.GasSafetyMultiplier = 1.2
	}
	return &Orchestrator{
		cfg:     cfg,
		reader:  reader,
		v3:      v3,
		logger:  logger,
		metrics: metrics,
		tracer:  observability.NewTracer("engine"),
		phase:   PhaseIdle,
	}
}

// Submit registers an amount change. A zero or nil amount clears the
// quote synchronously; anything else restarts the debounce window.
func (o *Orchestrator) Submit(req SwapRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	seq := o.seq

	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	if req.AmountIn == nil || req.AmountIn.Sign() == 0 {
		o.phase = PhaseIdle
		o.current = Snapshot{Phase: PhaseIdle, Seq: seq}
		return
	}

	o.phase = PhaseDebouncing
	o.current = Snapshot{Phase: PhaseDebouncing, Seq: seq}
	o.timer = time.AfterFunc(o.cfg.DebounceWindow, func() {
		o.recompute(seq, req)
	})
}

// State returns the current snapshot.
func (o *Orchestrator) State() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := o.current
	snap.Phase = o.phase
	return snap
}

// Close stops any pending debounce timer.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// QuoteNow computes a quote synchronously, bypassing the debounce
// window. Used by request/response callers; form flows go through Submit.
func (o *Orchestrator) QuoteNow(ctx context.Context, req SwapRequest) (quote.SwapQuote, error) {
	start := time.Now()
	q, err := o.computeQuote(ctx, req)
	o.metrics.RecordQuote(ctx, req.Version.String(), time.Since(start), err == nil)
	return q, err
}

func (o *Orchestrator) recompute(seq uint64, req SwapRequest) {
	ctx, span := o.tracer.Start(context.Background(), "engine.recompute",
		attribute.String("swap.version", req.Version.String()))
	defer span.End()

	o.mu.Lock()
	if seq != o.seq {
		o.mu.Unlock()
		o.metrics.RecordStaleDrop(ctx)
		return
	}
	o.phase = PhaseQuoting
	o.mu.Unlock()

	o.metrics.RecordRecomputeStarted(ctx)
	start := time.Now()

	q, err := o.computeQuote(ctx, req)
	needsApproval := false
	if err != nil {
		span.RecordError(err)
	} else {
		needsApproval = o.needsApproval(ctx, req)
	}

	o.metrics.RecordQuote(ctx, req.Version.String(), time.Since(start), err == nil)
	o.apply(ctx, seq, q, needsApproval, err)
}

// apply installs a result unless a newer submission superseded it.
func (o *Orchestrator) apply(ctx context.Context, seq uint64, q quote.SwapQuote, needsApproval bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if seq != o.seq {
		o.metrics.RecordStaleDrop(ctx)
		o.logger.LogDebug(ctx, "discarding stale quote result", "seq", seq, "latest", o.seq)
		return
	}

	if err != nil {
		o.phase = PhaseFailed
		o.current = Snapshot{Phase: PhaseFailed, Seq: seq, Err: err}
		o.logger.LogError(ctx, "quote recompute failed", err, "seq", seq)
		return
	}

	o.phase = PhaseReady
	o.current = Snapshot{
		Phase:         PhaseReady,
		Seq:           seq,
		Quote:         &q,
		NeedsApproval: needsApproval,
	}
}

func (o *Orchestrator) computeQuote(ctx context.Context, req SwapRequest) (quote.SwapQuote, error) {
	slippage := req.Slippage
	if slippage == 0 {
		slippage = o.cfg.DefaultSlippage
	}

	// Wrapping and unwrapping the native coin is always 1:1 with no
	// price impact; neither quoter is consulted.
	if o.isWrapPair(req.TokenIn, req.TokenOut) {
		q := quote.SwapQuote{
			AmountOut:   new(big.Int).Set(req.AmountIn),
			PriceImpact: 0,
			Version:     req.Version,
		}
		return q.WithMinimumReceived(slippage), nil
	}

	switch req.Version {
	case token.V2:
		q, err := o.quoteV2(ctx, req)
		if err != nil {
			return quote.SwapQuote{}, err
		}
		return q.WithMinimumReceived(slippage), nil
	default:
		q, err := o.v3.QuoteBest(ctx, req.TokenIn, req.TokenOut, req.AmountIn, nil)
		if err != nil {
			return quote.SwapQuote{}, err
		}
		return q.WithMinimumReceived(slippage), nil
	}
}

func (o *Orchestrator) quoteV2(ctx context.Context, req SwapRequest) (quote.SwapQuote, error) {
	pair, err := o.reader.V2PairAddress(ctx, req.TokenIn.Address, req.TokenOut.Address)
	if err != nil {
		return quote.SwapQuote{}, err
	}
	reserve0, reserve1, err := o.reader.V2Reserves(ctx, pair)
	if err != nil {
		return quote.SwapQuote{}, err
	}

	// Reserves come back in canonical token order.
	reserveIn, reserveOut := reserve0, reserve1
	if !req.TokenIn.SortsBefore(req.TokenOut) {
		reserveIn, reserveOut = reserve1, reserve0
	}
	return quote.QuoteV2(reserveIn, reserveOut, req.AmountIn, quote.DefaultV2FeeBPS)
}

// isWrapPair reports whether the swap is between the native coin and its
// wrapped representation, in either direction.
func (o *Orchestrator) isWrapPair(a, b token.Token) bool {
	wrapped := o.reader.WrappedNative()
	return (a.Address == NativeToken && b.Address == wrapped) ||
		(b.Address == NativeToken && a.Address == wrapped)
}

// NeedsApproval reports whether the spender's allowance falls short of
// the desired input. Advisory only; the contract call is the authority.
func (o *Orchestrator) NeedsApproval(ctx context.Context, req SwapRequest) bool {
	return o.needsApproval(ctx, req)
}

func (o *Orchestrator) needsApproval(ctx context.Context, req SwapRequest) bool {
	if req.Owner == (common.Address{}) || req.TokenIn.Address == NativeToken {
		return false
	}
	allowance, err := o.reader.Allowance(ctx, req.TokenIn.Address, req.Owner, o.cfg.Spender)
	if err != nil {
		o.logger.LogDebug(ctx, "allowance read failed, assuming approval needed", "error", err)
		return true
	}
	return allowance.Cmp(req.AmountIn) < 0
}
