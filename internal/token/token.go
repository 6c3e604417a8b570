// Package token defines immutable token and pool identity types.
package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is an immutable token identity. Decimals never change after
// construction; two tokens are equal iff their addresses are equal.
type Token struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// New creates a Token, validating the address string.
func New(address string, decimals uint8, symbol string) (Token, error) {
	if !common.IsHexAddress(address) {
		return Token{}, fmt.Errorf("invalid token address %q", address)
	}
	return Token{
		Address:  common.HexToAddress(address),
		Decimals: decimals,
		Symbol:   symbol,
	}, nil
}

// MustNew creates a Token or panics. For use with vetted constants.
func MustNew(address string, decimals uint8, symbol string) Token {
	t, err := New(address, decimals, symbol)
	if err != nil {
		panic(err)
	}
	return t
}

// Equal reports whether two tokens have the same address.
func (t Token) Equal(other Token) bool {
	return t.Address == other.Address
}

// SortsBefore reports whether t is the canonical token0 when paired with
// other (lexicographically smaller address). Pool ordering always derives
// from this, never from call-site naming.
func (t Token) SortsBefore(other Token) bool {
	return t.Address.Cmp(other.Address) < 0
}

// Pow10 returns 10^decimals for this token's raw-unit scale.
func (t Token) Pow10() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil)
}

func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}

// SortTokens returns the pair in canonical (token0, token1) order.
func SortTokens(a, b Token) (Token, Token) {
	if b.SortsBefore(a) {
		return b, a
	}
	return a, b
}
