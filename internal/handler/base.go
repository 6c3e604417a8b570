// Package handler defines the HTTP request handlers and their error mapping.
package handler

import (
	"math/big"

	"github.com/ferranti/dex-swap-engine/internal/platform/observability"
)

// BaseHandler provides common dependencies for HTTP handlers.
type BaseHandler struct {
	logger  *observability.Logger
	metrics *observability.Metrics
}

func parseAmount(amountStr string) (*big.Int, error) {
	if amountStr == "" {
		return nil, ErrAmountRequired
	}
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok {
		return nil, ErrInvalidAmountFormat
	}
	if amount.Sign() < 0 {
		return nil, ErrAmountNonPositive
	}
	return amount, nil
}
