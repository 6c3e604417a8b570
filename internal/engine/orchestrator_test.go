package engine

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/quote"
	"github.com/ferranti/dex-swap-engine/internal/token"
)

var (
	usdc = token.MustNew("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6, "USDC")
	weth = token.MustNew("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18, "WETH")

	nativeCoin = token.Token{Address: NativeToken, Decimals: 18, Symbol: "ETH"}
	owner      = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// spyReader records which chain calls ran and serves canned state.
type spyReader struct {
	mu            sync.Mutex
	reserve0      *big.Int
	reserve1      *big.Int
	allowance     *big.Int
	balance       *big.Int
	gasPrice      *big.Int
	estimateErr   error
	estimateLimit uint64
	calls         []string
}

func (s *spyReader) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
}

func (s *spyReader) called(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (s *spyReader) V2PairAddress(context.Context, common.Address, common.Address) (common.Address, error) {
	s.record("pair")
	return common.HexToAddress("0x2222222222222222222222222222222222222222"), nil
}

func (s *spyReader) V2Reserves(context.Context, common.Address) (*big.Int, *big.Int, error) {
	s.record("reserves")
	return s.reserve0, s.reserve1, nil
}

func (s *spyReader) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	s.record("allowance")
	if s.allowance == nil {
		return big.NewInt(0), nil
	}
	return s.allowance, nil
}

func (s *spyReader) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	s.record("balance")
	return s.balance, nil
}

func (s *spyReader) GasPrice(context.Context) (*big.Int, error) {
	s.record("gasprice")
	return s.gasPrice, nil
}

func (s *spyReader) EstimateGas(context.Context, common.Address, common.Address, *big.Int, []byte) (uint64, error) {
	s.record("estimate")
	if s.estimateErr != nil {
		return 0, s.estimateErr
	}
	return s.estimateLimit, nil
}

func (s *spyReader) WrappedNative() common.Address {
	return weth.Address
}

// fakeBest returns a fixed V3 quote and counts invocations.
type fakeBest struct {
	mu    sync.Mutex
	out   *big.Int
	err   error
	calls int
}

func (f *fakeBest) QuoteBest(_ context.Context, _, _ token.Token, amountIn *big.Int, _ []token.FeeTier) (quote.SwapQuote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return quote.SwapQuote{}, f.err
	}
	return quote.SwapQuote{AmountOut: f.out, FeeTier: token.FeeTier3000, Version: token.V3}, nil
}

func (f *fakeBest) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestOrchestrator(reader *spyReader, best *fakeBest) *Orchestrator {
	return New(Config{
		DebounceWindow:      5 * time.Millisecond,
		DefaultSlippage:     money.BPS(50),
		GasSafetyMultiplier: 1.2,
		Spender:             common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}, reader, best, observability.NewNopLogger(), nil)
}

func waitForPhase(t *testing.T, o *Orchestrator, want Phase) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := o.State()
		if snap.Phase == want {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s, at %s", want, o.State().Phase)
	return Snapshot{}
}

func TestSubmitZeroAmountClearsSynchronously(t *testing.T) {
	o := newTestOrchestrator(&spyReader{}, &fakeBest{out: e18(1)})
	defer o.Close()

	o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: e18(5), Version: token.V3})
	o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: big.NewInt(0), Version: token.V3})

	// No waiting: the clear is immediate.
	snap := o.State()
	if snap.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", snap.Phase)
	}
	if snap.Quote != nil {
		t.Error("quote must be cleared")
	}
}

func TestDebouncedRecomputeLastRequestWins(t *testing.T) {
	best := &fakeBest{out: e18(1)}
	o := newTestOrchestrator(&spyReader{}, best)
	defer o.Close()

	// Rapid keystrokes: only the last amount should be quoted.
	for _, n := range []int64{1, 12, 123} {
		o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: e18(n), Version: token.V3})
	}

	snap := waitForPhase(t, o, PhaseReady)
	if snap.Quote == nil {
		t.Fatal("expected a quote")
	}
	if got := best.callCount(); got != 1 {
		t.Errorf("quoter invoked %d times, want 1", got)
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	o := newTestOrchestrator(&spyReader{}, &fakeBest{out: e18(7)})
	defer o.Close()

	o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: e18(1), Version: token.V3})
	snap := waitForPhase(t, o, PhaseReady)

	// A result tagged with an old sequence number must not overwrite state.
	o.apply(context.Background(), snap.Seq-1, quote.SwapQuote{AmountOut: e18(999)}, false, nil)

	after := o.State()
	if after.Quote == nil || after.Quote.AmountOut.Cmp(e18(999)) == 0 {
		t.Error("stale result was applied")
	}
}

func TestWrapPairShortCircuits(t *testing.T) {
	best := &fakeBest{out: e18(1)}
	reader := &spyReader{}
	o := newTestOrchestrator(reader, best)
	defer o.Close()

	amount := e18(5)
	o.Submit(SwapRequest{TokenIn: nativeCoin, TokenOut: weth, AmountIn: amount, Version: token.V3})

	snap := waitForPhase(t, o, PhaseReady)
	if snap.Quote.AmountOut.Cmp(amount) != 0 {
		t.Errorf("amountOut = %s, want 1:1 %s", snap.Quote.AmountOut, amount)
	}
	if snap.Quote.PriceImpact != 0 {
		t.Errorf("priceImpact = %d, want 0", snap.Quote.PriceImpact)
	}
	if best.callCount() != 0 {
		t.Error("quoter must not be invoked for a wrap pair")
	}
	if reader.called("pair") {
		t.Error("V2 path must not be consulted for a wrap pair")
	}
}

func TestV2QuoteOrdersReserves(t *testing.T) {
	// usdc sorts before weth, so reserve0 belongs to usdc.
	reader := &spyReader{
		reserve0: e18(1_000_000),
		reserve1: e18(2_000_000),
	}
	o := newTestOrchestrator(reader, &fakeBest{})
	defer o.Close()

	o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: e18(1000), Version: token.V2})
	snap := waitForPhase(t, o, PhaseReady)

	want, _ := new(big.Int).SetString("1992013962079806432986", 10)
	if snap.Quote.AmountOut.Cmp(want) != 0 {
		t.Errorf("amountOut = %s, want %s", snap.Quote.AmountOut, want)
	}
	if snap.Quote.MinimumReceived.Cmp(money.ApplySlippageFloor(want, money.BPS(50))) != 0 {
		t.Errorf("minimumReceived = %s not slippage-floored", snap.Quote.MinimumReceived)
	}
}

func TestQuoteFailureEntersFailed(t *testing.T) {
	o := newTestOrchestrator(&spyReader{}, &fakeBest{err: quote.ErrNoRoute})
	defer o.Close()

	o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: e18(1), Version: token.V3})
	snap := waitForPhase(t, o, PhaseFailed)
	if !errors.Is(snap.Err, quote.ErrNoRoute) {
		t.Errorf("err = %v, want ErrNoRoute", snap.Err)
	}
}

func TestNeedsApproval(t *testing.T) {
	reader := &spyReader{allowance: e18(3)}
	best := &fakeBest{out: e18(1)}
	o := newTestOrchestrator(reader, best)
	defer o.Close()

	o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: e18(5), Version: token.V3, Owner: owner})
	snap := waitForPhase(t, o, PhaseReady)
	if !snap.NeedsApproval {
		t.Error("allowance below amountIn must require approval")
	}

	reader.allowance = e18(10)
	o.Submit(SwapRequest{TokenIn: usdc, TokenOut: weth, AmountIn: e18(5), Version: token.V3, Owner: owner})
	snap = waitForPhase(t, o, PhaseReady)
	if snap.NeedsApproval {
		t.Error("sufficient allowance must not require approval")
	}
}

func TestCheckGasSafety(t *testing.T) {
	gwei := big.NewInt(1_000_000_000)

	t.Run("sufficient balance", func(t *testing.T) {
		reader := &spyReader{
			gasPrice:      gwei,
			estimateLimit: 100_000,
			balance:       e18(1),
		}
		o := newTestOrchestrator(reader, &fakeBest{})
		defer o.Close()

		check, err := o.CheckGasSafety(context.Background(), owner, weth.Address, big.NewInt(0), nil, OpSwapV3)
		if err != nil {
			t.Fatalf("CheckGasSafety: %v", err)
		}
		if !check.Sufficient {
			t.Error("1 native coin must cover 100k gas at 1 gwei")
		}
		if check.UsedFallback {
			t.Error("fallback should not trigger when estimation works")
		}
		// required = 100000 gas * 1 gwei * 1.2
		want := big.NewInt(120_000_000_000_000)
		if check.Required.Cmp(want) != 0 {
			t.Errorf("required = %s, want %s", check.Required, want)
		}
	})

	t.Run("estimation failure falls back to table", func(t *testing.T) {
		reader := &spyReader{
			gasPrice:    gwei,
			estimateErr: errors.New("execution reverted"),
			balance:     e18(1),
		}
		o := newTestOrchestrator(reader, &fakeBest{})
		defer o.Close()

		check, err := o.CheckGasSafety(context.Background(), owner, weth.Address, big.NewInt(0), nil, OpSwapV3)
		if err != nil {
			t.Fatalf("CheckGasSafety: %v", err)
		}
		if !check.UsedFallback {
			t.Error("expected fallback gas limit")
		}
		if check.GasLimit != 220_000 {
			t.Errorf("gasLimit = %d, want 220000", check.GasLimit)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		reader := &spyReader{
			gasPrice:      gwei,
			estimateLimit: 100_000,
			balance:       big.NewInt(1), // 1 wei
		}
		o := newTestOrchestrator(reader, &fakeBest{})
		defer o.Close()

		check, err := o.CheckGasSafety(context.Background(), owner, weth.Address, e18(1), nil, OpTransfer)
		if err != nil {
			t.Fatalf("CheckGasSafety: %v", err)
		}
		if check.Sufficient {
			t.Error("1 wei cannot cover value plus gas")
		}
	})
}
