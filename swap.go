package clmm

import (
	"fmt"

	"github.com/daoleno/uniswapv3-sdk/constants"
	"github.com/daoleno/uniswapv3-sdk/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// swapState is the running state of a single-pool swap loop.
type swapState struct {
	amountSpecifiedRemaining decimal.Decimal
	amountCalculated         decimal.Decimal
	sqrtPriceX96             decimal.Decimal
	tick                     int
	liquidity                decimal.Decimal
	feeGrowthGlobalX128      decimal.Decimal
	protocolFee              decimal.Decimal
	totalFee                 decimal.Decimal
}

// SwapResult is what a single-pool swap step (or quote) produces.
type SwapResult struct {
	Amount0          decimal.Decimal
	Amount1          decimal.Decimal
	SqrtPriceX96     decimal.Decimal
	Tick             int
	Liquidity        decimal.Decimal
	FeeGrowthGlobal0 decimal.Decimal
	FeeGrowthGlobal1 decimal.Decimal
	ProtocolFeeDelta decimal.Decimal // in the input token
	SwapFee          decimal.Decimal // total fee paid, LP + protocol, in the input token
	ZeroForOne       bool
}

// singlePoolSwap runs the price-stepping loop against one pool's state
// and tick table. When isStatic is true (the quote path), the pool and
// tick table are read but never mutated.
func singlePoolSwap(pool *PoolState, ticks *TickTable, zeroForOne bool, amountSpecified decimal.Decimal, sqrtPriceLimitX96 *decimal.Decimal, isStatic bool) (*SwapResult, error) {
	if pool.SqrtPriceX96.IsZero() {
		return nil, ErrPoolNotInitialized
	}

	var limit decimal.Decimal
	if sqrtPriceLimitX96 == nil {
		if zeroForOne {
			limit = MinSqrtRatioX96.Add(ONE)
		} else {
			limit = MaxSqrtRatioX96.Sub(ONE)
		}
	} else {
		limit = *sqrtPriceLimitX96
		if limit.LessThanOrEqual(MinSqrtRatioX96) || limit.GreaterThanOrEqual(MaxSqrtRatioX96) {
			return nil, ErrPriceLimitOutOfBounds
		}
		if zeroForOne && limit.GreaterThanOrEqual(pool.SqrtPriceX96) {
			return nil, ErrPriceLimitExceeded
		}
		if !zeroForOne && limit.LessThanOrEqual(pool.SqrtPriceX96) {
			return nil, ErrPriceLimitExceeded
		}
	}

	exactInput := amountSpecified.GreaterThanOrEqual(ZERO)

	state := swapState{
		amountSpecifiedRemaining: amountSpecified,
		amountCalculated:         ZERO,
		sqrtPriceX96:             pool.SqrtPriceX96,
		tick:                     pool.Tick,
		liquidity:                pool.Liquidity,
		protocolFee:              ZERO,
	}
	if zeroForOne {
		state.feeGrowthGlobalX128 = pool.FeeGrowthGlobal0X128
	} else {
		state.feeGrowthGlobalX128 = pool.FeeGrowthGlobal1X128
	}

	if pool.Liquidity.IsZero() {
		if _, initialized := ticks.GetNextInitializedTick(pool.Tick, zeroForOne); !initialized {
			return nil, ErrNoInRangeLiquidity
		}
	}

	loops := 0
	for !state.amountSpecifiedRemaining.IsZero() && !state.sqrtPriceX96.Equal(limit) {
		loops++
		if loops > 1024 {
			return nil, fmt.Errorf("%w: exceeded maximum swap steps", ErrCalculationOverflow)
		}

		sqrtPriceStartX96 := state.sqrtPriceX96

		tickNext, initialized := ticks.GetNextInitializedTick(state.tick, zeroForOne)

		sqrtPriceNextBig, err := utils.GetSqrtRatioAtTick(tickNext)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCalculationOverflow, err)
		}
		sqrtPriceNextX96 := decimal.NewFromBigInt(sqrtPriceNextBig, 0)

		var target decimal.Decimal
		if zeroForOne {
			if sqrtPriceNextX96.LessThan(limit) {
				target = limit
			} else {
				target = sqrtPriceNextX96
			}
		} else {
			if sqrtPriceNextX96.GreaterThan(limit) {
				target = limit
			} else {
				target = sqrtPriceNextX96
			}
		}

		sqrtNext, amountIn, amountOut, feeAmount, err := utils.ComputeSwapStep(
			state.sqrtPriceX96.BigInt(),
			target.BigInt(),
			state.liquidity.BigInt(),
			state.amountSpecifiedRemaining.BigInt(),
			constants.FeeAmount(pool.Id.Fee),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCalculationOverflow, err)
		}
		state.sqrtPriceX96 = decimal.NewFromBigInt(sqrtNext, 0)
		stepIn := decimal.NewFromBigInt(amountIn, 0)
		stepOut := decimal.NewFromBigInt(amountOut, 0)
		stepFee := decimal.NewFromBigInt(feeAmount, 0)

		if exactInput {
			state.amountSpecifiedRemaining = state.amountSpecifiedRemaining.Sub(stepIn.Add(stepFee))
			state.amountCalculated = state.amountCalculated.Sub(stepOut)
		} else {
			state.amountSpecifiedRemaining = state.amountSpecifiedRemaining.Add(stepOut)
			state.amountCalculated = state.amountCalculated.Add(stepIn.Add(stepFee))
		}

		state.totalFee = state.totalFee.Add(stepFee)

		if pool.ProtocolFeeFraction > 0 {
			// Protocol's cut rounds down; the remainder stays with LPs.
			delta := stepFee.Div(decimal.NewFromInt(int64(pool.ProtocolFeeFraction))).Floor()
			stepFee = stepFee.Sub(delta)
			state.protocolFee = state.protocolFee.Add(delta)
		}

		if state.liquidity.IsPositive() {
			feeGrowthDelta := stepFee.Mul(Q128).Div(state.liquidity).Floor()
			state.feeGrowthGlobalX128 = state.feeGrowthGlobalX128.Add(feeGrowthDelta)
		}

		if state.sqrtPriceX96.Equal(sqrtPriceNextX96) {
			if initialized && !isStatic {
				liquidityNet, err := ticks.Cross(tickNext, orElse(zeroForOne, state.feeGrowthGlobalX128, pool.FeeGrowthGlobal0X128), orElse(zeroForOne, pool.FeeGrowthGlobal1X128, state.feeGrowthGlobalX128))
				if err != nil {
					return nil, err
				}
				if zeroForOne {
					liquidityNet = liquidityNet.Neg()
				}
				next, err := AddDelta(state.liquidity, liquidityNet)
				if err != nil {
					return nil, err
				}
				state.liquidity = next
			} else if initialized {
				info := ticks.Ticks[tickNext]
				liquidityNet := info.LiquidityNet
				if zeroForOne {
					liquidityNet = liquidityNet.Neg()
				}
				next, err := AddDelta(state.liquidity, liquidityNet)
				if err != nil {
					return nil, err
				}
				state.liquidity = next
			}
			if zeroForOne {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		} else if !state.sqrtPriceX96.Equal(sqrtPriceStartX96) {
			tick, err := SqrtPriceX96ToTick(state.sqrtPriceX96)
			if err != nil {
				return nil, err
			}
			state.tick = tick
		}

		if logrus.GetLevel() >= logrus.TraceLevel {
			logrus.Tracef("swap step: tick=%d price=%s in=%s out=%s fee=%s liquidity=%s",
				state.tick, state.sqrtPriceX96, stepIn, stepOut, stepFee, state.liquidity)
		}
	}

	var amount0, amount1 decimal.Decimal
	if zeroForOne == exactInput {
		amount0 = amountSpecified.Sub(state.amountSpecifiedRemaining)
		amount1 = state.amountCalculated
	} else {
		amount0 = state.amountCalculated
		amount1 = amountSpecified.Sub(state.amountSpecifiedRemaining)
	}

	result := &SwapResult{
		Amount0:      amount0,
		Amount1:      amount1,
		SqrtPriceX96: state.sqrtPriceX96,
		Tick:         state.tick,
		Liquidity:    state.liquidity,
		ZeroForOne:   zeroForOne,
	}
	if zeroForOne {
		result.FeeGrowthGlobal0 = state.feeGrowthGlobalX128
		result.FeeGrowthGlobal1 = pool.FeeGrowthGlobal1X128
	} else {
		result.FeeGrowthGlobal0 = pool.FeeGrowthGlobal0X128
		result.FeeGrowthGlobal1 = state.feeGrowthGlobalX128
	}
	result.ProtocolFeeDelta = state.protocolFee
	result.SwapFee = state.totalFee

	if !isStatic {
		pool.SqrtPriceX96 = state.sqrtPriceX96
		pool.Tick = state.tick
		pool.Liquidity = state.liquidity
		if zeroForOne {
			pool.FeeGrowthGlobal0X128 = state.feeGrowthGlobalX128
			pool.ProtocolFeesToken0 = pool.ProtocolFeesToken0.Add(state.protocolFee)
			pool.Reserves0 = pool.Reserves0.Add(amount0)
			pool.Reserves1 = pool.Reserves1.Add(amount1)
			pool.SwapVolume0AllTime = pool.SwapVolume0AllTime.Add(amount0)
			pool.GeneratedSwapFee0 = pool.GeneratedSwapFee0.Add(state.totalFee)
		} else {
			pool.FeeGrowthGlobal1X128 = state.feeGrowthGlobalX128
			pool.ProtocolFeesToken1 = pool.ProtocolFeesToken1.Add(state.protocolFee)
			pool.Reserves0 = pool.Reserves0.Add(amount0)
			pool.Reserves1 = pool.Reserves1.Add(amount1)
			pool.SwapVolume1AllTime = pool.SwapVolume1AllTime.Add(amount1)
			pool.GeneratedSwapFee1 = pool.GeneratedSwapFee1.Add(state.totalFee)
		}
	}

	return result, nil
}

func orElse(cond bool, a, b decimal.Decimal) decimal.Decimal {
	if cond {
		return a
	}
	return b
}
