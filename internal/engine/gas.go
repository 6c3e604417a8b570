package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrEstimationFailed wraps gas or quote RPC failures that triggered a
// fallback heuristic.
var ErrEstimationFailed = errors.New("engine: estimation failed")

// OpType keys the fallback gas-limit table.
type OpType int

const (
	OpTransfer OpType = iota
	OpSwapV2
	OpSwapV3
	OpMintPosition
)

func (op OpType) String() string {
	switch op {
	case OpTransfer:
		return "transfer"
	case OpSwapV2:
		return "swap_v2"
	case OpSwapV3:
		return "swap_v3"
	case OpMintPosition:
		return "mint_position"
	default:
		return "unknown"
	}
}

// Conservative limits used when eth_estimateGas itself fails. Blocking
// the user on a failed estimate is worse than overestimating.
var fallbackGasLimits = map[OpType]uint64{
	OpTransfer:     21_000,
	OpSwapV2:       150_000,
	OpSwapV3:       220_000,
	OpMintPosition: 450_000,
}

// GasCheck is the result of a pre-execution balance check.
type GasCheck struct {
	Sufficient   bool
	GasLimit     uint64
	GasCost      *big.Int // gasLimit * gasPrice, before the safety margin
	Required     *big.Int // txValue + gasCost * safety multiplier
	Balance      *big.Int
	UsedFallback bool
}

// CheckGasSafety verifies the owner can cover txValue plus a safety
// margin over the estimated gas cost before execution is allowed.
func (o *Orchestrator) CheckGasSafety(ctx context.Context, owner, to common.Address, txValue *big.Int, data []byte, op OpType) (*GasCheck, error) {
	if txValue == nil {
		txValue = big.NewInt(0)
	}

	gasPrice, err := o.reader.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price: %v", ErrEstimationFailed, err)
	}

	usedFallback := false
	gasLimit, err := o.reader.EstimateGas(ctx, owner, to, txValue, data)
	if err != nil {
		gasLimit = fallbackGasLimits[op]
		usedFallback = true
		o.logger.LogDebug(ctx, "gas estimation failed, using fallback limit",
			"op", op.String(), "gas_limit", gasLimit, "error", err)
	}

	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))

	// multiplier applied as an integer percentage to stay off floats
	pct := int64(o.cfg.GasSafetyMultiplier * 100)
	margin := new(big.Int).Mul(gasCost, big.NewInt(pct))
	margin.Div(margin, big.NewInt(100))

	required := new(big.Int).Add(txValue, margin)

	balance, err := o.reader.NativeBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: balance: %v", ErrEstimationFailed, err)
	}

	return &GasCheck{
		Sufficient:   balance.Cmp(required) >= 0,
		GasLimit:     gasLimit,
		GasCost:      gasCost,
		Required:     required,
		Balance:      balance,
		UsedFallback: usedFallback,
	}, nil
}
