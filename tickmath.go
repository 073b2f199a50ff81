package clmm

import (
	"fmt"
	"math/big"

	"github.com/daoleno/uniswapv3-sdk/utils"
	"github.com/shopspring/decimal"
)

// Tick bounds, bit-for-bit the same constants the reference
// concentrated-liquidity design uses, so prices agree across
// implementations.
const (
	MinTick = -887272
	MaxTick = 887272
)

// MinSqrtRatioX96 / MaxSqrtRatioX96 are the sqrt-price images of MinTick
// and MaxTick, pulled from the SDK's own tables rather than re-derived.
var (
	MinSqrtRatioX96 = decimal.NewFromBigInt(utils.MinSqrtRatio, 0)
	MaxSqrtRatioX96 = decimal.NewFromBigInt(utils.MaxSqrtRatio, 0)
)

// TickToSqrtPriceX96 maps a tick index to its Q64.96 sqrt price via the
// SDK's GetSqrtRatioAtTick.
func TickToSqrtPriceX96(tick int) (decimal.Decimal, error) {
	if tick < MinTick || tick > MaxTick {
		return ZERO, fmt.Errorf("%w: tick %d out of [%d, %d]", ErrInvalidTick, tick, MinTick, MaxTick)
	}
	price, err := utils.GetSqrtRatioAtTick(tick)
	if err != nil {
		return ZERO, fmt.Errorf("%w: %v", ErrCalculationOverflow, err)
	}
	return decimal.NewFromBigInt(price, 0), nil
}

// SqrtPriceX96ToTick maps a Q64.96 sqrt price to the largest tick whose
// sqrt price is <= the given price, via the SDK's GetTickAtSqrtRatio.
func SqrtPriceX96ToTick(sqrtPriceX96 decimal.Decimal) (int, error) {
	// The SDK treats MaxSqrtRatio as an exclusive bound, but it is exactly
	// the sqrt price of MaxTick.
	if sqrtPriceX96.Equal(MaxSqrtRatioX96) {
		return MaxTick, nil
	}
	tick, err := utils.GetTickAtSqrtRatio(sqrtPriceX96.BigInt())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCalculationOverflow, err)
	}
	return tick, nil
}

// IsTickAligned reports whether tick is a multiple of spacing.
func IsTickAligned(tick, spacing int) bool {
	return tick%spacing == 0
}

// CheckTicks validates a position's tick range: alignment, ordering, and
// bounds, per mint_position step 1.
func CheckTicks(tickLower, tickUpper, spacing int) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("%w: tickLower %d must be < tickUpper %d", ErrInvalidTick, tickLower, tickUpper)
	}
	if tickLower < MinTick || tickUpper > MaxTick {
		return fmt.Errorf("%w: range [%d,%d] outside [%d,%d]", ErrInvalidTick, tickLower, tickUpper, MinTick, MaxTick)
	}
	if !IsTickAligned(tickLower, spacing) || !IsTickAligned(tickUpper, spacing) {
		return ErrTickNotAligned
	}
	return nil
}

// MaxLiquidityPerTick returns the maximum liquidity_gross a single tick
// may carry for a given spacing: max uint128 spread evenly over every
// initializable tick, the reference design's derivation.
func MaxLiquidityPerTick(spacing int) decimal.Decimal {
	minTick := (MinTick / spacing) * spacing
	maxTick := (MaxTick / spacing) * spacing
	numTicks := int64((maxTick-minTick)/spacing + 1)
	maxUint128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	return decimal.NewFromBigInt(new(big.Int).Div(maxUint128, big.NewInt(numTicks)), 0)
}

// GetAmount0Delta computes the token0 required/delivered moving between
// two sqrt prices at a given liquidity, rounding per the caller's need:
// roundUp=true when computing amount_in (favor the pool), false for
// amount_out (favor the trader receiving less, never more).
func GetAmount0Delta(sqrtA, sqrtB, liquidity decimal.Decimal, roundUp bool) decimal.Decimal {
	return decimal.NewFromBigInt(utils.GetAmount0Delta(sqrtA.BigInt(), sqrtB.BigInt(), liquidity.BigInt(), roundUp), 0)
}

// GetAmount1Delta is the token1 analogue of GetAmount0Delta.
func GetAmount1Delta(sqrtA, sqrtB, liquidity decimal.Decimal, roundUp bool) decimal.Decimal {
	return decimal.NewFromBigInt(utils.GetAmount1Delta(sqrtA.BigInt(), sqrtB.BigInt(), liquidity.BigInt(), roundUp), 0)
}
