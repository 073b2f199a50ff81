package clmm

import (
	"context"

	"github.com/shopspring/decimal"
)

// MintResult is what mint_position hands back: the created/updated
// position, the liquidity added by this call, and the amounts actually
// pulled.
type MintResult struct {
	Position  *Position
	Liquidity decimal.Decimal
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
}

// mintPosition creates a position over a tick range, sized to the
// largest liquidity the caller's amount limits can fund. It shares
// applyLiquidityIncrease with increaseLiquidity; the two differ only in
// whether the position is allowed to already carry liquidity.
func mintPosition(ctx context.Context, pool *PoolState, ticks *TickTable, positions *PositionTable, ledger *BalanceLedger, owner Principal, tickLower, tickUpper int, amount0Max, amount1Max decimal.Decimal) (*MintResult, error) {
	key := PositionKey{Owner: owner, Pool: pool.Id, TickLower: tickLower, TickUpper: tickUpper}
	if existing, ok := positions.Get(key); ok && existing.Liquidity.IsPositive() {
		return nil, ErrPositionAlreadyExists
	}
	return applyLiquidityIncrease(ctx, pool, ticks, positions, ledger, key, amount0Max, amount1Max)
}

// increaseLiquidity is identical math to mint, but requires the
// position to already exist.
func increaseLiquidity(ctx context.Context, pool *PoolState, ticks *TickTable, positions *PositionTable, ledger *BalanceLedger, owner Principal, tickLower, tickUpper int, amount0Max, amount1Max decimal.Decimal) (*MintResult, error) {
	key := PositionKey{Owner: owner, Pool: pool.Id, TickLower: tickLower, TickUpper: tickUpper}
	if _, ok := positions.Get(key); !ok {
		return nil, ErrPositionNotFound
	}
	return applyLiquidityIncrease(ctx, pool, ticks, positions, ledger, key, amount0Max, amount1Max)
}

func applyLiquidityIncrease(ctx context.Context, pool *PoolState, ticks *TickTable, positions *PositionTable, ledger *BalanceLedger, key PositionKey, amount0Max, amount1Max decimal.Decimal) (*MintResult, error) {
	if err := CheckTicks(key.TickLower, key.TickUpper, pool.TickSpacing); err != nil {
		return nil, err
	}

	sqrtLower, err := TickToSqrtPriceX96(key.TickLower)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := TickToSqrtPriceX96(key.TickUpper)
	if err != nil {
		return nil, err
	}

	liquidity, err := liquidityForAmounts(pool.SqrtPriceX96, sqrtLower, sqrtUpper, amount0Max, amount1Max)
	if err != nil {
		return nil, err
	}
	if !liquidity.IsPositive() {
		return nil, ErrInvalidLiquidity
	}

	amount0, amount1 := amountsForLiquidity(pool.SqrtPriceX96, sqrtLower, sqrtUpper, liquidity, RoundUp)
	if amount0.GreaterThan(amount0Max) || amount1.GreaterThan(amount1Max) {
		return nil, ErrSlippageFailed
	}

	if err := ledger.EnsureFunded(ctx, key.Owner, pool.Id.Token0, amount0, pool.Token0TransferFee); err != nil {
		return nil, err
	}
	if err := ledger.EnsureFunded(ctx, key.Owner, pool.Id.Token1, amount1, pool.Token1TransferFee); err != nil {
		return nil, err
	}
	if err := ledger.debit(key.Owner, pool.Id.Token0, amount0); err != nil {
		return nil, err
	}
	if err := ledger.debit(key.Owner, pool.Id.Token1, amount1); err != nil {
		// Refund the token0 debit: this step must be all-or-nothing.
		ledger.credit(key.Owner, pool.Id.Token0, amount0)
		return nil, err
	}

	if _, err := ticks.Update(key.TickLower, liquidity, pool.Tick, pool.FeeGrowthGlobal0X128, pool.FeeGrowthGlobal1X128, pool.MaxLiquidityPerTick, false); err != nil {
		ledger.credit(key.Owner, pool.Id.Token0, amount0)
		ledger.credit(key.Owner, pool.Id.Token1, amount1)
		return nil, err
	}
	if _, err := ticks.Update(key.TickUpper, liquidity, pool.Tick, pool.FeeGrowthGlobal0X128, pool.FeeGrowthGlobal1X128, pool.MaxLiquidityPerTick, true); err != nil {
		ledger.credit(key.Owner, pool.Id.Token0, amount0)
		ledger.credit(key.Owner, pool.Id.Token1, amount1)
		return nil, err
	}

	feeInside0, feeInside1, err := ticks.GetFeeGrowthInside(key.TickLower, key.TickUpper, pool.Tick, pool.FeeGrowthGlobal0X128, pool.FeeGrowthGlobal1X128)
	if err != nil {
		return nil, err
	}

	position := positions.getOrInit(key)
	if err := position.accrue(liquidity, feeInside0, feeInside1); err != nil {
		return nil, err
	}

	if key.TickLower <= pool.Tick && pool.Tick < key.TickUpper {
		next, err := AddDelta(pool.Liquidity, liquidity)
		if err != nil {
			return nil, err
		}
		pool.Liquidity = next
	}
	pool.Reserves0 = pool.Reserves0.Add(amount0)
	pool.Reserves1 = pool.Reserves1.Add(amount1)

	return &MintResult{Position: position, Liquidity: liquidity, Amount0: amount0, Amount1: amount1}, nil
}

// DecreaseResult is what decrease_liquidity hands back: the amounts
// credited to the user's internal balance.
type DecreaseResult struct {
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
}

// decreaseLiquidity removes liquidityDelta from the position, accrues
// owed fees first, and credits the returned amounts to the user's
// internal balance (not withdrawn externally; that is collectFees/burn's
// job).
func decreaseLiquidity(pool *PoolState, ticks *TickTable, positions *PositionTable, ledger *BalanceLedger, key PositionKey, liquidityDelta decimal.Decimal, amount0Min, amount1Min decimal.Decimal) (*DecreaseResult, error) {
	position, ok := positions.Get(key)
	if !ok {
		return nil, ErrPositionNotFound
	}
	if liquidityDelta.IsNegative() || liquidityDelta.IsZero() {
		return nil, ErrInvalidLiquidity
	}
	if liquidityDelta.GreaterThan(position.Liquidity) {
		return nil, ErrInvalidLiquidity
	}

	sqrtLower, err := TickToSqrtPriceX96(key.TickLower)
	if err != nil {
		return nil, err
	}
	sqrtUpper, err := TickToSqrtPriceX96(key.TickUpper)
	if err != nil {
		return nil, err
	}

	amount0, amount1 := amountsForLiquidity(pool.SqrtPriceX96, sqrtLower, sqrtUpper, liquidityDelta, RoundDown)
	if amount0.LessThan(amount0Min) || amount1.LessThan(amount1Min) {
		return nil, ErrSlippageFailed
	}

	feeInside0, feeInside1, err := ticks.GetFeeGrowthInside(key.TickLower, key.TickUpper, pool.Tick, pool.FeeGrowthGlobal0X128, pool.FeeGrowthGlobal1X128)
	if err != nil {
		return nil, err
	}
	if err := position.accrue(liquidityDelta.Neg(), feeInside0, feeInside1); err != nil {
		return nil, err
	}

	flippedLower, err := ticks.Update(key.TickLower, liquidityDelta.Neg(), pool.Tick, pool.FeeGrowthGlobal0X128, pool.FeeGrowthGlobal1X128, pool.MaxLiquidityPerTick, false)
	if err != nil {
		return nil, err
	}
	flippedUpper, err := ticks.Update(key.TickUpper, liquidityDelta.Neg(), pool.Tick, pool.FeeGrowthGlobal0X128, pool.FeeGrowthGlobal1X128, pool.MaxLiquidityPerTick, true)
	if err != nil {
		return nil, err
	}
	if flippedLower && ticks.Ticks[key.TickLower].LiquidityGross.IsZero() {
		ticks.Clear(key.TickLower)
	}
	if flippedUpper && ticks.Ticks[key.TickUpper].LiquidityGross.IsZero() {
		ticks.Clear(key.TickUpper)
	}

	if key.TickLower <= pool.Tick && pool.Tick < key.TickUpper {
		next, err := AddDelta(pool.Liquidity, liquidityDelta.Neg())
		if err != nil {
			return nil, err
		}
		pool.Liquidity = next
	}

	ledger.credit(key.Owner, pool.Id.Token0, amount0)
	ledger.credit(key.Owner, pool.Id.Token1, amount1)
	pool.Reserves0 = pool.Reserves0.Sub(amount0)
	pool.Reserves1 = pool.Reserves1.Sub(amount1)

	return &DecreaseResult{Amount0: amount0, Amount1: amount1}, nil
}

// CollectResult is what collect_fees hands back.
type CollectResult struct {
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
}

// collectFees withdraws owed fees to the user's external account,
// zeroing the owed counters only after the external transfer succeeds.
func collectFees(ctx context.Context, pool *PoolState, positions *PositionTable, ledger *BalanceLedger, key PositionKey, amount0Requested, amount1Requested decimal.Decimal) (*CollectResult, error) {
	position, ok := positions.Get(key)
	if !ok {
		return nil, ErrPositionNotFound
	}
	if position.TokensOwed0.IsZero() && position.TokensOwed1.IsZero() {
		return nil, ErrNoFeeToCollect
	}

	amount0, amount1 := position.collect(amount0Requested, amount1Requested)

	// TokensOwed is fee accounting on the position only; it was never
	// credited to the user's internal ledger balance (that tracks deposited
	// funds, not pool-owed fees). Credit exactly the amount being paid out
	// immediately before withdrawing it, so Withdraw's debit-then-transfer
	// has something to debit. On failure the staged credit and the owed
	// counters for everything not yet paid out are restored.
	var out0, out1 decimal.Decimal
	var err error
	if amount0.IsPositive() {
		ledger.credit(key.Owner, pool.Id.Token0, amount0)
		out0, err = ledger.Withdraw(ctx, key.Owner, pool.Id.Token0, amount0, pool.Token0TransferFee)
		if err != nil {
			_ = ledger.debit(key.Owner, pool.Id.Token0, amount0)
			position.TokensOwed0 = position.TokensOwed0.Add(amount0)
			position.TokensOwed1 = position.TokensOwed1.Add(amount1)
			return nil, err
		}
		pool.Reserves0 = pool.Reserves0.Sub(amount0)
	}
	if amount1.IsPositive() {
		ledger.credit(key.Owner, pool.Id.Token1, amount1)
		out1, err = ledger.Withdraw(ctx, key.Owner, pool.Id.Token1, amount1, pool.Token1TransferFee)
		if err != nil {
			// amount0 already left the building; only token1 is restored.
			_ = ledger.debit(key.Owner, pool.Id.Token1, amount1)
			position.TokensOwed1 = position.TokensOwed1.Add(amount1)
			return nil, err
		}
		pool.Reserves1 = pool.Reserves1.Sub(amount1)
	}

	positions.removeIfEmpty(key)
	return &CollectResult{Amount0: out0, Amount1: out1}, nil
}

// BurnResult is what burn hands back.
type BurnResult struct {
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
}

// burnPosition is decreaseLiquidity over the position's full liquidity
// followed by withdrawing both the principal and any owed fees to the
// user's external account. The position is removed only once both
// liquidity and owed fees are zero.
func burnPosition(ctx context.Context, pool *PoolState, ticks *TickTable, positions *PositionTable, ledger *BalanceLedger, key PositionKey, amount0Min, amount1Min decimal.Decimal) (*BurnResult, error) {
	position, ok := positions.Get(key)
	if !ok {
		return nil, ErrPositionNotFound
	}

	var principal0, principal1 decimal.Decimal
	if position.Liquidity.IsPositive() {
		dec, err := decreaseLiquidity(pool, ticks, positions, ledger, key, position.Liquidity, amount0Min, amount1Min)
		if err != nil {
			return nil, err
		}
		principal0, principal1 = dec.Amount0, dec.Amount1
	}

	// decreaseLiquidity has already accrued fees through this point and
	// already credited principal0/principal1 to the user's internal
	// balance; TokensOwed, however, is fee accounting on the position only
	// and was never credited there. Credit it now so Withdraw's debit has
	// something to debit, then withdraw exactly principal+fees, not the
	// user's whole token balance (which may hold unrelated deposits).
	owed0, owed1 := position.TokensOwed0, position.TokensOwed1
	ledger.credit(key.Owner, pool.Id.Token0, owed0)
	ledger.credit(key.Owner, pool.Id.Token1, owed1)
	total0 := principal0.Add(owed0)
	total1 := principal1.Add(owed1)
	pool.Reserves0 = pool.Reserves0.Sub(owed0)
	pool.Reserves1 = pool.Reserves1.Sub(owed1)
	position.TokensOwed0 = ZERO
	position.TokensOwed1 = ZERO

	var out0, out1 decimal.Decimal
	var err error
	if total0.IsPositive() {
		out0, err = ledger.Withdraw(ctx, key.Owner, pool.Id.Token0, total0, pool.Token0TransferFee)
		if err != nil {
			return nil, withdrawalFailedErr("burn", err)
		}
	}
	if total1.IsPositive() {
		out1, err = ledger.Withdraw(ctx, key.Owner, pool.Id.Token1, total1, pool.Token1TransferFee)
		if err != nil {
			return nil, withdrawalFailedErr("burn", err)
		}
	}

	positions.removeIfEmpty(key)
	return &BurnResult{Amount0: out0, Amount1: out1}, nil
}
