package clmm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLiquidityForAmountsBelowRangeUsesAmount0Only(t *testing.T) {
	sqrtLower := Q96
	sqrtUpper := Q96.Mul(decimal.NewFromInt(2))
	sqrtCurrent := sqrtLower.Div(decimal.NewFromInt(2)) // below range

	l, err := liquidityForAmounts(sqrtCurrent, sqrtLower, sqrtUpper, decimal.NewFromInt(1_000_000), decimal.NewFromInt(1_000_000))
	require.NoError(t, err)
	require.True(t, l.IsPositive())
}

func TestLiquidityForAmountsAboveRangeUsesAmount1Only(t *testing.T) {
	sqrtLower := Q96
	sqrtUpper := Q96.Mul(decimal.NewFromInt(2))
	sqrtCurrent := sqrtUpper.Mul(decimal.NewFromInt(2)) // above range

	l, err := liquidityForAmounts(sqrtCurrent, sqrtLower, sqrtUpper, decimal.NewFromInt(1_000_000), decimal.NewFromInt(1_000_000))
	require.NoError(t, err)
	require.True(t, l.IsPositive())
}

func TestLiquidityForAmountsRoundTripsWithAmountsForLiquidity(t *testing.T) {
	sqrtLower := Q96
	sqrtUpper := Q96.Mul(decimal.NewFromInt(4))
	sqrtCurrent := Q96.Mul(decimal.NewFromInt(2)) // inside range

	amount0Max := decimal.NewFromInt(1_000_000)
	amount1Max := decimal.NewFromInt(1_000_000)

	l, err := liquidityForAmounts(sqrtCurrent, sqrtLower, sqrtUpper, amount0Max, amount1Max)
	require.NoError(t, err)
	require.True(t, l.IsPositive())

	amount0, amount1 := amountsForLiquidity(sqrtCurrent, sqrtLower, sqrtUpper, l, RoundUp)
	require.True(t, amount0.LessThanOrEqual(amount0Max))
	require.True(t, amount1.LessThanOrEqual(amount1Max))
}

func TestAmountsForLiquidityBelowRange(t *testing.T) {
	sqrtLower := Q96
	sqrtUpper := Q96.Mul(decimal.NewFromInt(2))
	sqrtCurrent := sqrtLower.Div(decimal.NewFromInt(2))

	amount0, amount1 := amountsForLiquidity(sqrtCurrent, sqrtLower, sqrtUpper, decimal.NewFromInt(1000), RoundDown)
	require.True(t, amount0.IsPositive())
	require.True(t, amount1.IsZero())
}

func TestAmountsForLiquidityAboveRange(t *testing.T) {
	sqrtLower := Q96
	sqrtUpper := Q96.Mul(decimal.NewFromInt(2))
	sqrtCurrent := sqrtUpper.Mul(decimal.NewFromInt(2))

	amount0, amount1 := amountsForLiquidity(sqrtCurrent, sqrtLower, sqrtUpper, decimal.NewFromInt(1000), RoundDown)
	require.True(t, amount0.IsZero())
	require.True(t, amount1.IsPositive())
}

func TestAmountsForLiquidityZeroIsZero(t *testing.T) {
	sqrtLower := Q96
	sqrtUpper := Q96.Mul(decimal.NewFromInt(2))

	amount0, amount1 := amountsForLiquidity(Q96, sqrtLower, sqrtUpper, ZERO, RoundDown)
	require.True(t, amount0.IsZero())
	require.True(t, amount1.IsZero())
}
