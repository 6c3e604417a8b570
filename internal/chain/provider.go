package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ferranti/dex-swap-engine/internal/platform/cache"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/platform/resilience"
	"github.com/ferranti/dex-swap-engine/internal/token"
)

// ErrNoPool is returned when a factory reports no pool for a pair.
var ErrNoPool = errors.New("chain: pool does not exist")

const gasPriceCacheKey = "gasprice"

// Addresses holds the well-known contract addresses the provider talks to.
type Addresses struct {
	V2Factory     common.Address
	V3Factory     common.Address
	V3Quoter      common.Address
	WrappedNative common.Address
}

// Provider reads DEX state from the chain. Pool addresses are memoized
// in the cache since factory mappings never change once created; gas
// prices are cached with a short TTL.
type Provider struct {
	pool      *ClientPool
	cache     cache.Cache
	addresses Addresses
	retryCfg  resilience.Config
	logger    *observability.Logger
	metrics   *observability.Metrics

	gasPriceTTL time.Duration
}

// NewProvider creates a Provider.
func NewProvider(pool *ClientPool, c cache.Cache, addresses Addresses, gasPriceTTL time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Provider {
	return &Provider{
		pool:        pool,
		cache:       c,
		addresses:   addresses,
		retryCfg:    resilience.DefaultConfig(),
		logger:      logger,
		metrics:     metrics,
		gasPriceTTL: gasPriceTTL,
	}
}

// WrappedNative returns the chain's wrapped native token address.
func (p *Provider) WrappedNative() common.Address {
	return p.addresses.WrappedNative
}

// QuoterAddress returns the V3 quoter contract address.
func (p *Provider) QuoterAddress() common.Address {
	return p.addresses.V3Quoter
}

func (p *Provider) callContract(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordChainRead(ctx, method, time.Since(start))
	}()

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := resilience.RetryWithResult(ctx, p.retryCfg, func(ctx context.Context) ([]byte, error) {
		client, err := p.pool.Client()
		if err != nil {
			return nil, err
		}
		return client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}

	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// V2PairAddress resolves the V2 pair for two tokens, memoizing the
// answer. Returns ErrNoPool when no pair has been created.
func (p *Provider) V2PairAddress(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	t0, t1 := tokenA, tokenB
	if t1.Hex() < t0.Hex() {
		t0, t1 = t1, t0
	}
	cacheKey := fmt.Sprintf("pool:v2:%s:%s", t0.Hex(), t1.Hex())

	if cached, err := p.cache.Get(ctx, cacheKey); err == nil {
		p.metrics.RecordCacheHit(ctx, "pool_address")
		return common.HexToAddress(cached), nil
	}
	p.metrics.RecordCacheMiss(ctx, "pool_address")

	out, err := p.callContract(ctx, p.addresses.V2Factory, v2FactoryABI, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	pair := out[0].(common.Address)
	if pair == (common.Address{}) {
		return common.Address{}, ErrNoPool
	}

	// Pair addresses are immutable once created.
	_ = p.cache.Set(ctx, cacheKey, pair.Hex(), 0)
	return pair, nil
}

// V2Reserves reads the current reserves of a V2 pair, ordered by the
// pair's canonical token0/token1.
func (p *Provider) V2Reserves(ctx context.Context, pair common.Address) (reserve0, reserve1 *big.Int, err error) {
	out, err := p.callContract(ctx, pair, v2PairABI, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	return out[0].(*big.Int), out[1].(*big.Int), nil
}

// V3PoolAddress resolves the V3 pool for a pool key, memoizing the answer.
// Returns ErrNoPool when no pool exists at that fee tier.
func (p *Provider) V3PoolAddress(ctx context.Context, key token.PoolKey) (common.Address, error) {
	cacheKey := key.CacheKey()

	if cached, err := p.cache.Get(ctx, cacheKey); err == nil {
		p.metrics.RecordCacheHit(ctx, "pool_address")
		return common.HexToAddress(cached), nil
	}
	p.metrics.RecordCacheMiss(ctx, "pool_address")

	out, err := p.callContract(ctx, p.addresses.V3Factory, v3FactoryABI, "getPool",
		key.Token0.Address, key.Token1.Address, big.NewInt(int64(key.FeeTier)))
	if err != nil {
		return common.Address{}, err
	}
	pool := out[0].(common.Address)
	if pool == (common.Address{}) {
		return common.Address{}, ErrNoPool
	}

	_ = p.cache.Set(ctx, cacheKey, pool.Hex(), 0)
	return pool, nil
}

// V3PoolState holds the observable state of a V3 pool needed for quoting.
type V3PoolState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// V3State reads slot0 and in-range liquidity from a V3 pool.
func (p *Provider) V3State(ctx context.Context, pool common.Address) (*V3PoolState, error) {
	slot0, err := p.callContract(ctx, pool, v3PoolABI, "slot0")
	if err != nil {
		return nil, err
	}

	liq, err := p.callContract(ctx, pool, v3PoolABI, "liquidity")
	if err != nil {
		return nil, err
	}

	return &V3PoolState{
		SqrtPriceX96: slot0[0].(*big.Int),
		Tick:         int32(slot0[1].(*big.Int).Int64()),
		Liquidity:    liq[0].(*big.Int),
	}, nil
}

// V3TickSpacing reads the tick spacing of a V3 pool.
func (p *Provider) V3TickSpacing(ctx context.Context, pool common.Address) (int32, error) {
	out, err := p.callContract(ctx, pool, v3PoolABI, "tickSpacing")
	if err != nil {
		return 0, err
	}
	return int32(out[0].(*big.Int).Int64()), nil
}

// QuoteResult is the output of a simulated quoter call.
type QuoteResult struct {
	AmountOut         *big.Int
	SqrtPriceX96After *big.Int
	GasEstimate       *big.Int
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// QuoteExactInputSingle simulates a single-pool V3 swap through the
// quoter contract. The call is an eth_call; nothing is executed.
func (p *Provider) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn *big.Int) (*QuoteResult, error) {
	out, err := p.callContract(ctx, p.addresses.V3Quoter, quoterABI, "quoteExactInputSingle",
		quoteExactInputSingleParams{
			TokenIn:           tokenIn,
			TokenOut:          tokenOut,
			AmountIn:          amountIn,
			Fee:               big.NewInt(int64(feeTier)),
			SqrtPriceLimitX96: big.NewInt(0),
		})
	if err != nil {
		return nil, err
	}

	return &QuoteResult{
		AmountOut:         out[0].(*big.Int),
		SqrtPriceX96After: out[1].(*big.Int),
		GasEstimate:       out[3].(*big.Int),
	}, nil
}

// Allowance reads an ERC20 allowance.
func (p *Provider) Allowance(ctx context.Context, tokenAddr, owner, spender common.Address) (*big.Int, error) {
	out, err := p.callContract(ctx, tokenAddr, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// BalanceOf reads an ERC20 balance.
func (p *Provider) BalanceOf(ctx context.Context, tokenAddr, owner common.Address) (*big.Int, error) {
	out, err := p.callContract(ctx, tokenAddr, erc20ABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// NativeBalance reads the native coin balance of an account.
func (p *Provider) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return resilience.RetryWithResult(ctx, p.retryCfg, func(ctx context.Context) (*big.Int, error) {
		client, err := p.pool.Client()
		if err != nil {
			return nil, err
		}
		return client.BalanceAt(ctx, owner, nil)
	})
}

// GasPrice returns the suggested gas price, cached for a short TTL so a
// burst of recomputes does not hammer the RPC.
func (p *Provider) GasPrice(ctx context.Context) (*big.Int, error) {
	if cached, err := p.cache.Get(ctx, gasPriceCacheKey); err == nil {
		if price, ok := new(big.Int).SetString(cached, 10); ok {
			p.metrics.RecordCacheHit(ctx, "gas_price")
			return price, nil
		}
	}
	p.metrics.RecordCacheMiss(ctx, "gas_price")

	price, err := resilience.RetryWithResult(ctx, p.retryCfg, func(ctx context.Context) (*big.Int, error) {
		client, err := p.pool.Client()
		if err != nil {
			return nil, err
		}
		return client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	_ = p.cache.Set(ctx, gasPriceCacheKey, price.String(), p.gasPriceTTL)
	return price, nil
}

// EstimateGas estimates the gas limit for a transaction.
func (p *Provider) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	return resilience.RetryWithResult(ctx, p.retryCfg, func(ctx context.Context) (uint64, error) {
		client, err := p.pool.Client()
		if err != nil {
			return 0, err
		}
		return client.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &to,
			Value: value,
			Data:  data,
		})
	})
}
