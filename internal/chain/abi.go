package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const v2FactoryABIJSON = `[
	{"name":"getPair","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],
	 "outputs":[{"name":"pair","type":"address"}]}
]`

const v2PairABIJSON = `[
	{"name":"getReserves","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]}
]`

const v3FactoryABIJSON = `[
	{"name":"getPool","type":"function","stateMutability":"view",
	 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],
	 "outputs":[{"name":"pool","type":"address"}]}
]`

const v3PoolABIJSON = `[
	{"name":"slot0","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"sqrtPriceX96","type":"uint160"},{"name":"tick","type":"int24"},{"name":"observationIndex","type":"uint16"},{"name":"observationCardinality","type":"uint16"},{"name":"observationCardinalityNext","type":"uint16"},{"name":"feeProtocol","type":"uint8"},{"name":"unlocked","type":"bool"}]},
	{"name":"liquidity","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint128"}]},
	{"name":"tickSpacing","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"int24"}]}
]`

const quoterABIJSON = `[
	{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"tokenIn","type":"address"},
		{"name":"tokenOut","type":"address"},
		{"name":"amountIn","type":"uint256"},
		{"name":"fee","type":"uint24"},
		{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
	 "outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}]}
]`

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]},
	{"name":"symbol","type":"function","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"string"}]}
]`

var (
	v2FactoryABI = mustParseABI(v2FactoryABIJSON)
	v2PairABI    = mustParseABI(v2PairABIJSON)
	v3FactoryABI = mustParseABI(v3FactoryABIJSON)
	v3PoolABI    = mustParseABI(v3PoolABIJSON)
	quoterABI    = mustParseABI(quoterABIJSON)
	erc20ABI     = mustParseABI(erc20ABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
