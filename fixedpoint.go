package clmm

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Numeric substrate: every U256/I256/Q64.96/Q128.128 value in this package
// is a decimal.Decimal at scale 0, carrying on-chain-scale integers
// without floating point (decimal.NewFromBigInt(x, 0) / d.BigInt()).
// MulDiv converts through holiman/uint256, which carries the 512-bit
// intermediate product internally.
var (
	ZERO = decimal.Zero
	ONE  = decimal.NewFromInt(1)
	Q96  = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0)
	Q128 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)

	maxU256 = new(uint256.Int).SetAllOne()
)

// MulDiv computes floor(a*b/denominator) or its ceiling, over a
// full-precision 512-bit intermediate product. Returns ErrCalculationOverflow
// if denominator is zero, an operand is negative or wider than 256 bits,
// or the quotient does not fit in 256 bits.
func MulDiv(a, b, denominator decimal.Decimal, rounding Rounding) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return ZERO, ErrCalculationOverflow
	}
	if a.IsNegative() || b.IsNegative() || denominator.IsNegative() {
		// mul_div operates on magnitudes; signed callers negate the result.
		return ZERO, ErrCalculationOverflow
	}

	x, overflow := uint256.FromBig(a.BigInt())
	if overflow {
		return ZERO, ErrCalculationOverflow
	}
	y, overflow := uint256.FromBig(b.BigInt())
	if overflow {
		return ZERO, ErrCalculationOverflow
	}
	d, overflow := uint256.FromBig(denominator.BigInt())
	if overflow {
		return ZERO, ErrCalculationOverflow
	}

	q, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return ZERO, ErrCalculationOverflow
	}
	if rounding == RoundUp && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if q.Eq(maxU256) {
			return ZERO, ErrCalculationOverflow
		}
		q.AddUint64(q, 1)
	}
	return decimal.NewFromBigInt(q.ToBig(), 0), nil
}

// AddDelta adds a signed liquidity delta to an unsigned liquidity value,
// returning ErrLiquidityOverflow on underflow (x + y < 0) or overflow
// (result does not fit in 128 bits).
func AddDelta(x decimal.Decimal, y decimal.Decimal) (decimal.Decimal, error) {
	result := x.Add(y)
	if result.IsNegative() {
		return ZERO, ErrLiquidityOverflow
	}
	max128 := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)
	if result.GreaterThanOrEqual(max128) {
		return ZERO, ErrLiquidityOverflow
	}
	return result, nil
}

// LiquidityAddDelta is an alias of AddDelta kept for call sites that read
// more naturally with the position-manager's terminology.
func LiquidityAddDelta(x, y decimal.Decimal) (decimal.Decimal, error) {
	return AddDelta(x, y)
}

// Sqrt computes the integer square root of a non-negative decimal at
// scale 0, rounding down, via math/big's exact integer Sqrt.
func Sqrt(x decimal.Decimal) (decimal.Decimal, error) {
	if x.IsNegative() {
		return ZERO, ErrCalculationOverflow
	}
	return decimal.NewFromBigInt(new(big.Int).Sqrt(x.BigInt()), 0), nil
}
