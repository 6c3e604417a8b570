package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/ferranti/dex-swap-engine/internal/chain"
	"github.com/ferranti/dex-swap-engine/internal/liquidity"
	"github.com/ferranti/dex-swap-engine/internal/quote"
	"github.com/ferranti/dex-swap-engine/internal/univ3"
)

// ErrInvalidBody indicates the request body could not be parsed into the
// expected structure.
var ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrAmountRequired is returned when the amount field is missing.
var ErrAmountRequired = fiber.NewError(fiber.StatusBadRequest, "amount is required")

// ErrInvalidAmountFormat is returned when the amount cannot be parsed as
// a base-10 integer.
var ErrInvalidAmountFormat = fiber.NewError(fiber.StatusBadRequest, "invalid amount format")

// ErrAmountNonPositive is returned when the amount is negative.
var ErrAmountNonPositive = fiber.NewError(fiber.StatusBadRequest, "amount must not be negative")

// ErrSameToken is returned when both tokens are identical.
var ErrSameToken = fiber.NewError(fiber.StatusBadRequest, "token_in and token_out cannot be the same")

// ErrInvalidFeeTier is returned for a fee tier outside the deployable set.
var ErrInvalidFeeTier = fiber.NewError(fiber.StatusBadRequest, "invalid fee tier")

// ErrMisalignedTicks is returned when tick bounds are not multiples of
// the fee tier's tick spacing; the pool contract would reject the mint.
var ErrMisalignedTicks = fiber.NewError(fiber.StatusBadRequest, "tick bounds must be multiples of the fee tier's tick spacing")

// NewInvalidAddress returns a 400 Bad Request for an invalid address field.
func NewInvalidAddress(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
}

// mapDomainError converts engine errors into HTTP errors with specific
// user-facing messages.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, quote.ErrNoRoute), errors.Is(err, chain.ErrNoPool):
		return fiber.NewError(fiber.StatusNotFound, "no pool exists for this pair")
	case errors.Is(err, quote.ErrNoLiquidity):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "pool has no liquidity")
	case errors.Is(err, liquidity.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, "invalid price range")
	case errors.Is(err, liquidity.ErrPriceUninitialized):
		return fiber.NewError(fiber.StatusConflict, "pool price not initialized, supply an initial price")
	case errors.Is(err, univ3.ErrTickOutOfRange):
		return fiber.NewError(fiber.StatusBadRequest, "tick outside protocol bounds")
	case errors.Is(err, univ3.ErrInvalidPrice):
		return fiber.NewError(fiber.StatusBadRequest, "price must be a positive decimal")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "quote computation failed")
	}
}
