package token

import (
	"fmt"
)

// Version identifies the AMM design a pool belongs to.
type Version int

const (
	V2 Version = iota + 2 // constant product
	V3                    // concentrated liquidity
)

func (v Version) String() string {
	switch v {
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("v?(%d)", int(v))
	}
}

// FeeTier is a pool trading fee in hundredths of a bip (pips),
// matching the on-chain uint24 representation: 3000 = 0.3%.
type FeeTier uint32

// Standard fee tiers.
const (
	FeeTier100   FeeTier = 100   // 0.01%
	FeeTier500   FeeTier = 500   // 0.05%
	FeeTier3000  FeeTier = 3000  // 0.3%
	FeeTier10000 FeeTier = 10000 // 1%
)

// StandardFeeTiers are the candidate tiers tried during best-quote selection.
var StandardFeeTiers = []FeeTier{FeeTier100, FeeTier500, FeeTier3000, FeeTier10000}

// Valid reports whether ft is one of the deployable tiers.
func (ft FeeTier) Valid() bool {
	switch ft {
	case FeeTier100, FeeTier500, FeeTier3000, FeeTier10000:
		return true
	}
	return false
}

// TickSpacing returns the tick granularity for this fee tier.
func (ft FeeTier) TickSpacing() int32 {
	switch ft {
	case FeeTier100:
		return 1
	case FeeTier500:
		return 10
	case FeeTier3000:
		return 60
	case FeeTier10000:
		return 200
	default:
		return 0
	}
}

// Pips returns the raw fee value in pips (millionths).
func (ft FeeTier) Pips() int {
	return int(ft)
}

func (ft FeeTier) String() string {
	return fmt.Sprintf("%.2f%%", float64(ft)/10000)
}

// PoolKey uniquely identifies an on-chain pool. Token0/Token1 are always
// in canonical order; construct through NewPoolKey to guarantee it.
type PoolKey struct {
	Token0  Token
	Token1  Token
	FeeTier FeeTier
	Version Version
}

// NewPoolKey builds a PoolKey with canonical token ordering.
func NewPoolKey(a, b Token, fee FeeTier, version Version) (PoolKey, error) {
	if a.Equal(b) {
		return PoolKey{}, fmt.Errorf("pool key requires two distinct tokens, got %s twice", a)
	}
	if version == V3 && !fee.Valid() {
		return PoolKey{}, fmt.Errorf("invalid fee tier %d for v3 pool", fee)
	}
	t0, t1 := SortTokens(a, b)
	return PoolKey{Token0: t0, Token1: t1, FeeTier: fee, Version: version}, nil
}

// CacheKey returns a stable string usable as a cache/memo key.
func (k PoolKey) CacheKey() string {
	return fmt.Sprintf("pool:%s:%s:%s:%d",
		k.Version, k.Token0.Address.Hex(), k.Token1.Address.Hex(), k.FeeTier)
}

func (k PoolKey) String() string {
	return fmt.Sprintf("%s/%s %s %s", k.Token0, k.Token1, k.FeeTier, k.Version)
}
