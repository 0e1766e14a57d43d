package chain

import (
	"math"
)

// tickToSqrtPrice returns sqrt(1.0001^tick).
func tickToSqrtPrice(tick int) float64 {
	return math.Pow(1.0001, float64(tick)/2)
}

// amountsForLiquidity converts raw liquidity into token amounts for a tick
// range, scaled by token decimals.
func amountsForLiquidity(liquidity float64, tickCurr, tickLower, tickUpper int, decimals0, decimals1 int) (amount0, amount1 float64) {
	sqrtP := tickToSqrtPrice(tickCurr)
	sqrtA := tickToSqrtPrice(tickLower)
	sqrtB := tickToSqrtPrice(tickUpper)

	switch {
	case tickCurr < tickLower:
		amount0 = liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB)
	case tickCurr >= tickUpper:
		amount1 = liquidity * (sqrtB - sqrtA)
	default:
		amount0 = liquidity * (sqrtB - sqrtP) / (sqrtP * sqrtB)
		amount1 = liquidity * (sqrtP - sqrtA)
	}

	return amount0 / math.Pow10(decimals0), amount1 / math.Pow10(decimals1)
}
