package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ferranti/dex-swap-engine/internal/liquidity"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/token"
	"github.com/ferranti/dex-swap-engine/internal/univ3"
)

// RangeHandler computes tick ranges for position creation.
type RangeHandler struct {
	BaseHandler
	reader PoolStateReader
}

func NewRangeHandler(logger *observability.Logger, metrics *observability.Metrics, reader PoolStateReader) *RangeHandler {
	return &RangeHandler{
		BaseHandler: BaseHandler{logger: logger, metrics: metrics},
		reader:      reader,
	}
}

type RangeRequest struct {
	Mode       string    `json:"mode"` // "full", "custom" or "default"
	TokenA     TokenSpec `json:"token_a"`
	TokenB     TokenSpec `json:"token_b"`
	FeeTier    uint32    `json:"fee_tier"`
	LowerPrice string    `json:"lower_price"`
	UpperPrice string    `json:"upper_price"`
}

type RangeResponse struct {
	TickLower  int32  `json:"tick_lower"`
	TickUpper  int32  `json:"tick_upper"`
	LowerPrice string `json:"lower_price,omitempty"`
	UpperPrice string `json:"upper_price,omitempty"`
}

func (h *RangeHandler) Handle() fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := c.Context()

		var req RangeRequest
		if err := c.Bind().Body(&req); err != nil {
			h.logger.Debug("failed to bind range request", "err", err)
			return ErrInvalidBody
		}

		feeTier := token.FeeTier(req.FeeTier)
		if !feeTier.Valid() {
			return ErrInvalidFeeTier
		}
		spacing := feeTier.TickSpacing()

		tokenA, err := req.TokenA.toToken("token_a")
		if err != nil {
			return err
		}
		tokenB, err := req.TokenB.toToken("token_b")
		if err != nil {
			return err
		}
		key, err := token.NewPoolKey(tokenA, tokenB, feeTier, token.V3)
		if err != nil {
			return ErrSameToken
		}

		var rng liquidity.TickRange
		switch req.Mode {
		case "full":
			rng = liquidity.FullRange(spacing)

		case "custom":
			rng, err = liquidity.CustomRange(
				req.LowerPrice, req.UpperPrice,
				key.Token0.Decimals, key.Token1.Decimals, spacing)
			if err != nil {
				return mapDomainError(err)
			}

		case "default":
			// Center the window on the pool's current tick; the pool
			// must exist and have an initialized price.
			pool, err := h.reader.V3PoolAddress(ctx, key)
			if err != nil {
				return mapDomainError(err)
			}
			state, err := h.reader.V3State(ctx, pool)
			if err != nil {
				return mapDomainError(err)
			}
			if err := liquidity.EnsurePriceInitialized(state.SqrtPriceX96); err != nil {
				return mapDomainError(err)
			}
			rng = liquidity.DefaultRangeAroundCurrent(state.Tick, spacing)

		default:
			return fiber.NewError(fiber.StatusBadRequest, "mode must be full, custom or default")
		}

		resp := RangeResponse{TickLower: rng.Lower, TickUpper: rng.Upper}
		if lower, err := univ3.PriceForTick(rng.Lower, key.Token0.Decimals, key.Token1.Decimals, 6); err == nil {
			resp.LowerPrice = lower
		}
		if upper, err := univ3.PriceForTick(rng.Upper, key.Token0.Decimals, key.Token1.Decimals, 6); err == nil {
			resp.UpperPrice = upper
		}
		return c.JSON(resp)
	}
}
