package handler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"

	"github.com/ferranti/dex-swap-engine/internal/chain"
	"github.com/ferranti/dex-swap-engine/internal/liquidity"
	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/token"
)

// PoolStateReader resolves pools and reads their state.
type PoolStateReader interface {
	V3PoolAddress(ctx context.Context, key token.PoolKey) (common.Address, error)
	V3State(ctx context.Context, pool common.Address) (*chain.V3PoolState, error)
}

// PositionHandler sizes concentrated liquidity positions.
type PositionHandler struct {
	BaseHandler
	reader PoolStateReader
}

func NewPositionHandler(logger *observability.Logger, metrics *observability.Metrics, reader PoolStateReader) *PositionHandler {
	return &PositionHandler{
		BaseHandler: BaseHandler{logger: logger, metrics: metrics},
		reader:      reader,
	}
}

type PositionRequest struct {
	TokenA        TokenSpec `json:"token_a"`
	TokenB        TokenSpec `json:"token_b"`
	FeeTier       uint32    `json:"fee_tier"`
	TickLower     int32     `json:"tick_lower"`
	TickUpper     int32     `json:"tick_upper"`
	InputAmount   string    `json:"input_amount"`
	InputIsTokenA bool      `json:"input_is_token_a"`
	SlippageBPS   int64     `json:"slippage_bps"`
}

type PositionResponse struct {
	Amount0Desired string `json:"amount0_desired"`
	Amount1Desired string `json:"amount1_desired"`
	Amount0Min     string `json:"amount0_min"`
	Amount1Min     string `json:"amount1_min"`
	Advisory       string `json:"advisory,omitempty"`
}

func (h *PositionHandler) Handle() fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := c.Context()

		var req PositionRequest
		if err := c.Bind().Body(&req); err != nil {
			h.logger.Debug("failed to bind position request", "err", err)
			return ErrInvalidBody
		}

		tokenA, err := req.TokenA.toToken("token_a")
		if err != nil {
			return err
		}
		tokenB, err := req.TokenB.toToken("token_b")
		if err != nil {
			return err
		}

		feeTier := token.FeeTier(req.FeeTier)
		if !feeTier.Valid() {
			return ErrInvalidFeeTier
		}
		if spacing := feeTier.TickSpacing(); req.TickLower%spacing != 0 || req.TickUpper%spacing != 0 {
			return ErrMisalignedTicks
		}

		inputAmount, err := parseAmount(req.InputAmount)
		if err != nil {
			return err
		}

		key, err := token.NewPoolKey(tokenA, tokenB, feeTier, token.V3)
		if err != nil {
			return ErrSameToken
		}

		pool, err := h.reader.V3PoolAddress(ctx, key)
		if err != nil {
			return mapDomainError(err)
		}
		state, err := h.reader.V3State(ctx, pool)
		if err != nil {
			return mapDomainError(err)
		}

		// The caller names tokens in its own order; which side the input
		// is on always derives from canonical pool ordering.
		inputIsToken0 := req.InputIsTokenA == tokenA.Equal(key.Token0)

		sizing, err := liquidity.SizeFromSingleAmount(
			liquidity.PoolState{
				SqrtPriceX96: state.SqrtPriceX96,
				Tick:         state.Tick,
				Liquidity:    state.Liquidity,
			},
			liquidity.TickRange{Lower: req.TickLower, Upper: req.TickUpper},
			inputIsToken0,
			inputAmount,
			money.BPS(req.SlippageBPS),
		)
		if err != nil {
			return mapDomainError(err)
		}

		h.metrics.RecordSizing(ctx, sizing.Amount0Desired.Sign() == 0 || sizing.Amount1Desired.Sign() == 0)

		resp := PositionResponse{
			Amount0Desired: sizing.Amount0Desired.String(),
			Amount1Desired: sizing.Amount1Desired.String(),
			Amount0Min:     sizing.Amount0Min.String(),
			Amount1Min:     sizing.Amount1Min.String(),
		}
		if sizing.Advisory != nil {
			resp.Advisory = sizing.Advisory.Error()
		}
		return c.JSON(resp)
	}
}
