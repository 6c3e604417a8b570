package handler

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"

	"github.com/ferranti/dex-swap-engine/internal/engine"
	"github.com/ferranti/dex-swap-engine/internal/money"
	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
	"github.com/ferranti/dex-swap-engine/internal/token"
)

// QuoteHandler serves synchronous swap quotes.
type QuoteHandler struct {
	BaseHandler
	orchestrator *engine.Orchestrator
}

func NewQuoteHandler(logger *observability.Logger, metrics *observability.Metrics, orchestrator *engine.Orchestrator) *QuoteHandler {
	return &QuoteHandler{
		BaseHandler:  BaseHandler{logger: logger, metrics: metrics},
		orchestrator: orchestrator,
	}
}

// TokenSpec is a token reference in request bodies. An empty address
// denotes the native coin.
type TokenSpec struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

func (ts TokenSpec) toToken(field string) (token.Token, error) {
	if ts.Address == "" {
		return token.Token{Address: engine.NativeToken, Decimals: 18, Symbol: ts.Symbol}, nil
	}
	t, err := token.New(ts.Address, ts.Decimals, ts.Symbol)
	if err != nil {
		return token.Token{}, NewInvalidAddress(field)
	}
	return t, nil
}

type QuoteRequest struct {
	TokenIn     TokenSpec `json:"token_in"`
	TokenOut    TokenSpec `json:"token_out"`
	AmountIn    string    `json:"amount_in"`
	Version     int       `json:"version"` // 2 or 3, defaults to 3
	SlippageBPS int64     `json:"slippage_bps"`
	Owner       string    `json:"owner"`
}

type QuoteResponse struct {
	AmountOut       string `json:"amount_out"`
	MinimumReceived string `json:"minimum_received"`
	PriceImpactBPS  int64  `json:"price_impact_bps"`
	FeeTier         uint32 `json:"fee_tier,omitempty"`
	Version         string `json:"version"`
	NeedsApproval   bool   `json:"needs_approval"`
}

func (h *QuoteHandler) Handle() fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := c.Context()

		var req QuoteRequest
		if err := c.Bind().Body(&req); err != nil {
			h.logger.Debug("failed to bind quote request", "err", err)
			return ErrInvalidBody
		}

		tokenIn, err := req.TokenIn.toToken("token_in")
		if err != nil {
			return err
		}
		tokenOut, err := req.TokenOut.toToken("token_out")
		if err != nil {
			return err
		}
		if tokenIn.Address == tokenOut.Address {
			return ErrSameToken
		}

		amountIn, err := parseAmount(req.AmountIn)
		if err != nil {
			return err
		}

		version := token.V3
		if req.Version == 2 {
			version = token.V2
		}

		var owner common.Address
		if req.Owner != "" {
			if !common.IsHexAddress(req.Owner) {
				return NewInvalidAddress("owner")
			}
			owner = common.HexToAddress(req.Owner)
		}

		swapReq := engine.SwapRequest{
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
			AmountIn: amountIn,
			Version:  version,
			Slippage: money.BPS(req.SlippageBPS),
			Owner:    owner,
		}

		q, err := h.orchestrator.QuoteNow(ctx, swapReq)
		if err != nil {
			h.logger.LogError(ctx, "quote failed", err,
				"token_in", tokenIn.String(), "token_out", tokenOut.String())
			return mapDomainError(err)
		}

		resp := QuoteResponse{
			AmountOut:      q.AmountOut.String(),
			PriceImpactBPS: q.PriceImpact.Int64(),
			FeeTier:        uint32(q.FeeTier),
			Version:        q.Version.String(),
		}
		if owner != (common.Address{}) {
			resp.NeedsApproval = h.orchestrator.NeedsApproval(ctx, swapReq)
		}
		if q.MinimumReceived != nil {
			resp.MinimumReceived = q.MinimumReceived.String()
		}
		return c.JSON(resp)
	}
}
