package clmm

import "github.com/shopspring/decimal"

// liquidityForAmount0 is the algebraic inverse of GetAmount0Delta: the
// largest liquidity whose amount0 requirement over [sqrtA, sqrtB] does not
// exceed amount0. The two prices may be given in either order.
func liquidityForAmount0(sqrtA, sqrtB, amount0 decimal.Decimal) (decimal.Decimal, error) {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := sqrtB.Sub(sqrtA)
	if diff.IsZero() {
		return ZERO, nil
	}
	intermediate, err := MulDiv(sqrtA, sqrtB, Q96, RoundDown)
	if err != nil {
		return ZERO, err
	}
	return MulDiv(amount0, intermediate, diff, RoundDown)
}

// liquidityForAmount1 is the algebraic inverse of GetAmount1Delta.
func liquidityForAmount1(sqrtA, sqrtB, amount1 decimal.Decimal) (decimal.Decimal, error) {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := sqrtB.Sub(sqrtA)
	if diff.IsZero() {
		return ZERO, nil
	}
	return MulDiv(amount1, Q96, diff, RoundDown)
}

// liquidityForAmounts picks the largest liquidity deliverable for a
// [lower, upper] range at the pool's current price without exceeding
// either of amount0/amount1. This is the standard three-region split
// (below range, in range, above range) that GetAmount0Delta/
// GetAmount1Delta already encode on the withdrawal side, inverted to
// size a deposit via MulDiv.
func liquidityForAmounts(sqrtCurrent, sqrtLower, sqrtUpper, amount0, amount1 decimal.Decimal) (decimal.Decimal, error) {
	if sqrtCurrent.LessThanOrEqual(sqrtLower) {
		return liquidityForAmount0(sqrtLower, sqrtUpper, amount0)
	}
	if sqrtCurrent.LessThan(sqrtUpper) {
		l0, err := liquidityForAmount0(sqrtCurrent, sqrtUpper, amount0)
		if err != nil {
			return ZERO, err
		}
		l1, err := liquidityForAmount1(sqrtLower, sqrtCurrent, amount1)
		if err != nil {
			return ZERO, err
		}
		if l0.LessThan(l1) {
			return l0, nil
		}
		return l1, nil
	}
	return liquidityForAmount1(sqrtLower, sqrtUpper, amount1)
}

// amountsForLiquidity is the forward direction: how much of each token a
// given liquidity over [lower, upper] requires/returns at the current
// price. Used both to size a mint against liquidityForAmounts' chosen L
// and to compute decrease_liquidity's payout.
func amountsForLiquidity(sqrtCurrent, sqrtLower, sqrtUpper, liquidity decimal.Decimal, rounding Rounding) (decimal.Decimal, decimal.Decimal) {
	if sqrtLower.GreaterThan(sqrtUpper) {
		sqrtLower, sqrtUpper = sqrtUpper, sqrtLower
	}
	roundUp := rounding == RoundUp

	switch {
	case sqrtCurrent.LessThanOrEqual(sqrtLower):
		amount0 := GetAmount0Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
		return amount0, ZERO
	case sqrtCurrent.LessThan(sqrtUpper):
		amount0 := GetAmount0Delta(sqrtCurrent, sqrtUpper, liquidity, roundUp)
		amount1 := GetAmount1Delta(sqrtLower, sqrtCurrent, liquidity, roundUp)
		return amount0, amount1
	default:
		amount1 := GetAmount1Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
		return ZERO, amount1
	}
}
