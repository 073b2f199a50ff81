package clmm

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Engine is the top-level owned-state object: every table plus the
// collaborators (guard, events, ledger) a host embeds once and passes
// requests through. Every mutating method follows the same sequence:
// validate, acquire guard, snapshot, optional deposit, compute, apply,
// optional withdraw, emit, release.
type Engine struct {
	Pools     *PoolTable
	Positions *PositionTable
	Balances  *BalanceLedger
	Guard     *PrincipalGuard
	Events    *EventLog

	ticks     map[PoolId]*TickTable
	histories map[PoolId]*PoolHistory
}

func NewEngine(external ExternalLedger) *Engine {
	return &Engine{
		Pools:     NewPoolTable(),
		Positions: NewPositionTable(),
		Balances:  NewBalanceLedger(external),
		Guard:     NewPrincipalGuard(),
		Events:    NewEventLog(),
		ticks:     make(map[PoolId]*TickTable),
		histories: make(map[PoolId]*PoolHistory),
	}
}

// Pool and Ticks satisfy the Venue interface the router needs.
func (e *Engine) Pool(id PoolId) (*PoolState, bool)  { return e.Pools.Get(id) }
func (e *Engine) Ticks(id PoolId) (*TickTable, bool) { t, ok := e.ticks[id]; return t, ok }

func (e *Engine) History(id PoolId) (*PoolHistory, bool) { h, ok := e.histories[id]; return h, ok }

// CreatePool creates and initializes a pool for a canonicalized token
// pair and fee tier.
func (e *Engine) CreatePool(owner Principal, tokenA, tokenB Token, fee FeeAmount, sqrtPriceX96 decimal.Decimal) (PoolId, error) {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return PoolId{}, err
	}
	defer lease.Release()

	pool, err := e.Pools.Create(tokenA, tokenB, fee, sqrtPriceX96)
	if err != nil {
		return PoolId{}, err
	}
	fee0, err := e.Balances.external.TransferFee(context.Background(), pool.Id.Token0)
	if err != nil {
		delete(e.Pools.Pools, pool.Id)
		return PoolId{}, err
	}
	fee1, err := e.Balances.external.TransferFee(context.Background(), pool.Id.Token1)
	if err != nil {
		delete(e.Pools.Pools, pool.Id)
		return PoolId{}, err
	}
	pool.Token0TransferFee, pool.Token1TransferFee = fee0, fee1
	e.ticks[pool.Id] = NewTickTable(pool.TickSpacing)
	e.histories[pool.Id] = NewPoolHistory(pool.Tick)

	e.Events.EmitCreatedPool(CreatedPool{Pool: pool.Id})
	return pool.Id, nil
}

// Deposit implements the `deposit` handler.
func (e *Engine) Deposit(ctx context.Context, owner Principal, token Token, amount, transferFee decimal.Decimal) error {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return err
	}
	defer lease.Release()

	return e.Balances.Deposit(ctx, owner, token, amount, transferFee)
}

// Withdraw implements the `withdraw` handler.
func (e *Engine) Withdraw(ctx context.Context, owner Principal, token Token, amount, transferFee decimal.Decimal) (decimal.Decimal, error) {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return ZERO, err
	}
	defer lease.Release()

	return e.Balances.Withdraw(ctx, owner, token, amount, transferFee)
}

// MintPosition implements `mint_position`.
func (e *Engine) MintPosition(ctx context.Context, owner Principal, poolId PoolId, tickLower, tickUpper int, amount0Max, amount1Max decimal.Decimal) (*MintResult, error) {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	pool, ok := e.Pools.Get(poolId)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	ticks := e.ticks[poolId]

	result, err := mintPosition(ctx, pool, ticks, e.Positions, e.Balances, owner, tickLower, tickUpper, amount0Max, amount1Max)
	if err != nil {
		return nil, err
	}
	e.Events.EmitMintedPosition(MintedPosition{
		Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper,
		Liquidity: result.Liquidity, Amount0: result.Amount0, Amount1: result.Amount1,
	})
	return result, nil
}

// IncreaseLiquidity implements `increase_liquidity`.
func (e *Engine) IncreaseLiquidity(ctx context.Context, owner Principal, poolId PoolId, tickLower, tickUpper int, amount0Max, amount1Max decimal.Decimal) (*MintResult, error) {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	pool, ok := e.Pools.Get(poolId)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	ticks := e.ticks[poolId]

	result, err := increaseLiquidity(ctx, pool, ticks, e.Positions, e.Balances, owner, tickLower, tickUpper, amount0Max, amount1Max)
	if err != nil {
		return nil, err
	}
	e.Events.EmitIncreasedLiquidity(IncreasedLiquidity{
		Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper,
		LiquidityDelta: result.Liquidity, Amount0: result.Amount0, Amount1: result.Amount1,
	})
	return result, nil
}

// DecreaseLiquidity implements `decrease_liquidity`.
func (e *Engine) DecreaseLiquidity(ctx context.Context, owner Principal, poolId PoolId, tickLower, tickUpper int, liquidityDelta, amount0Min, amount1Min decimal.Decimal) (*DecreaseResult, error) {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	pool, ok := e.Pools.Get(poolId)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	ticks := e.ticks[poolId]
	key := PositionKey{Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper}

	result, err := decreaseLiquidity(pool, ticks, e.Positions, e.Balances, key, liquidityDelta, amount0Min, amount1Min)
	if err != nil {
		return nil, err
	}
	e.Events.EmitDecreasedLiquidity(DecreasedLiquidity{
		Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper,
		LiquidityDelta: liquidityDelta, Amount0: result.Amount0, Amount1: result.Amount1,
	})
	return result, nil
}

// Burn implements `burn`.
func (e *Engine) Burn(ctx context.Context, owner Principal, poolId PoolId, tickLower, tickUpper int, amount0Min, amount1Min decimal.Decimal) (*BurnResult, error) {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	pool, ok := e.Pools.Get(poolId)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	ticks := e.ticks[poolId]
	key := PositionKey{Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper}

	result, err := burnPosition(ctx, pool, ticks, e.Positions, e.Balances, key, amount0Min, amount1Min)
	if err != nil {
		// WithdrawalFailed still represents a committed position mutation
		// (liquidity already removed); emit the event before surfacing the
		// error.
		if _, ok := err.(*WithdrawalFailed); ok {
			e.Events.EmitBurntPosition(BurntPosition{Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper})
		}
		return nil, err
	}
	e.Events.EmitBurntPosition(BurntPosition{Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper})
	return result, nil
}

// CollectFees implements `collect_fees`.
func (e *Engine) CollectFees(ctx context.Context, owner Principal, poolId PoolId, tickLower, tickUpper int, amount0Requested, amount1Requested decimal.Decimal) (*CollectResult, error) {
	lease, err := e.Guard.AcquireNonSwap(owner)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	pool, ok := e.Pools.Get(poolId)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	key := PositionKey{Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper}

	result, err := collectFees(ctx, pool, e.Positions, e.Balances, key, amount0Requested, amount1Requested)
	if err != nil {
		return nil, err
	}
	e.Events.EmitCollectedFees(CollectedFees{
		Owner: owner, Pool: poolId, TickLower: tickLower, TickUpper: tickUpper,
		Amount0: result.Amount0, Amount1: result.Amount1,
	})
	return result, nil
}

// QuoteSingle runs a read-only single-pool swap simulation: no ledger
// calls, no guard, no mutation.
func (e *Engine) QuoteSingle(poolId PoolId, zeroForOne bool, amountSpecified decimal.Decimal, sqrtPriceLimitX96 *decimal.Decimal) (*SwapResult, error) {
	pool, ok := e.Pools.Get(poolId)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	ticks := e.ticks[poolId]
	return singlePoolSwap(pool.Clone(), ticks.Clone(), zeroForOne, amountSpecified, sqrtPriceLimitX96, true)
}

// QuoteMultiHop runs a read-only multi-hop simulation.
func (e *Engine) QuoteMultiHop(tokenIn Token, amountSpecified decimal.Decimal, path []PathKey, exactInput bool) (*MultiHopResult, error) {
	return planMultiHop(e, tokenIn, amountSpecified, path, exactInput, true)
}

// SwapSingle implements `swap` for a single pool, covering both
// exact-input (amountSpecified >= 0) and exact-output (amountSpecified <
// 0) per singlePoolSwap's sign convention. amountThreshold is
// amount_out_minimum for exact-input, amount_in_maximum for exact-output.
func (e *Engine) SwapSingle(ctx context.Context, owner Principal, poolId PoolId, zeroForOne bool, amountSpecified decimal.Decimal, sqrtPriceLimitX96 *decimal.Decimal, amountThreshold, transferFeeIn, transferFeeOut decimal.Decimal) (*SwapResult, error) {
	exactInput := amountSpecified.GreaterThanOrEqual(ZERO)
	if !exactInput {
		if err := checkExactOutputFeeSupported(poolId.Fee); err != nil {
			return nil, err
		}
	}

	lease, err := e.Guard.AcquireSwap(owner, []PoolId{poolId})
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	pool, ok := e.Pools.Get(poolId)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	ticks := e.ticks[poolId]

	// Dry-run first: the pool cannot change between this and the real
	// execution (requests only suspend at external ledger calls), so this
	// both validates slippage before any external transfer happens and
	// tells us amount_in for the exact-output case.
	quote, err := singlePoolSwap(pool.Clone(), ticks.Clone(), zeroForOne, amountSpecified, sqrtPriceLimitX96, true)
	if err != nil {
		return nil, err
	}
	amountIn, amountOut := quoteAmounts(quote, zeroForOne)
	// A slippage miss caught here happens before anything was funded, so
	// it surfaces as the bare economic error; the re-check after the real
	// execution below wraps the same failure in a refund result instead.
	if exactInput {
		if amountOut.LessThan(amountThreshold) {
			return nil, ErrTooLittleReceived
		}
	} else {
		if amountIn.GreaterThan(amountThreshold) {
			return nil, ErrTooMuchRequested
		}
	}

	tokenIn, tokenOut := swapTokens(poolId, zeroForOne)

	if err := e.Balances.EnsureFunded(ctx, owner, tokenIn, amountIn, transferFeeIn); err != nil {
		return nil, err
	}
	if err := e.Balances.debit(owner, tokenIn, amountIn); err != nil {
		return nil, err
	}

	poolSnapshot, ticksSnapshot := pool.Clone(), ticks.Clone()
	result, err := singlePoolSwap(pool, ticks, zeroForOne, amountSpecified, sqrtPriceLimitX96, false)
	if err != nil {
		e.restorePool(poolId, poolSnapshot, ticksSnapshot)
		return nil, e.refundSwapDeposit(ctx, owner, tokenIn, amountIn, transferFeeIn, err)
	}

	resAmountIn, resAmountOut := quoteAmounts(result, zeroForOne)
	if (exactInput && resAmountOut.LessThan(amountThreshold)) || (!exactInput && resAmountIn.GreaterThan(amountThreshold)) {
		e.restorePool(poolId, poolSnapshot, ticksSnapshot)
		failReason := ErrTooLittleReceived
		if !exactInput {
			failReason = ErrTooMuchRequested
		}
		return nil, e.refundSwapDeposit(ctx, owner, tokenIn, amountIn, transferFeeIn, failReason)
	}

	e.Balances.credit(owner, tokenOut, resAmountOut)
	_, werr := e.Balances.Withdraw(ctx, owner, tokenOut, resAmountOut, transferFeeOut)
	if werr != nil {
		logrus.Warnf("swap output withdrawal failed for %s: %v", owner.Hex(), werr)
		return result, failedToWithdrawErr(resAmountIn.String(), resAmountOut.String(), werr)
	}

	if hist, ok := e.histories[poolId]; ok {
		fee0, fee1 := result.SwapFee, ZERO
		if !zeroForOne {
			fee0, fee1 = ZERO, result.SwapFee
		}
		hist.Record(pool.Reserves0, pool.Reserves1, result.Amount0.Abs(), result.Amount1.Abs(), fee0, fee1, pool.Liquidity, pool.SqrtPriceX96, pool.Tick)
	}

	e.Events.EmitSwap(Swap{
		Owner: owner, TokenIn: tokenIn, TokenOut: tokenOut,
		FinalAmountIn: resAmountIn, FinalAmountOut: resAmountOut,
		Type: SwapType{ExactInput: exactInput, MultiHop: false, Pools: []PoolId{poolId}},
	})
	return result, nil
}

// SwapMultiHop implements `swap` across a multi-hop path.
func (e *Engine) SwapMultiHop(ctx context.Context, owner Principal, tokenIn Token, amountSpecified decimal.Decimal, path []PathKey, exactInput bool, amountThreshold decimal.Decimal, transferFeeIn, transferFeeOut decimal.Decimal) (*MultiHopResult, error) {
	hops, err := resolvePath(tokenIn, path)
	if err != nil {
		return nil, err
	}
	if !exactInput {
		for _, h := range hops {
			if err := checkExactOutputFeeSupported(h.id.Fee); err != nil {
				return nil, err
			}
		}
	}
	pools := make([]PoolId, len(hops))
	for i, h := range hops {
		pools[i] = h.id
	}

	lease, err := e.Guard.AcquireSwap(owner, pools)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	quote, err := planMultiHop(e, tokenIn, amountSpecified, path, exactInput, true)
	if err != nil {
		return nil, err
	}
	if exactInput {
		if quote.AmountOut.LessThan(amountThreshold) {
			return nil, ErrTooLittleReceived
		}
	} else {
		if quote.AmountIn.GreaterThan(amountThreshold) {
			return nil, ErrTooMuchRequested
		}
	}

	tokenOut := path[len(path)-1].Intermediary

	snapshots := make(map[PoolId]*PoolState, len(pools))
	tickSnapshots := make(map[PoolId]*TickTable, len(pools))
	for _, id := range pools {
		p, _ := e.Pools.Get(id)
		snapshots[id] = p.Clone()
		tickSnapshots[id] = e.ticks[id].Clone()
	}

	if err := e.Balances.EnsureFunded(ctx, owner, tokenIn, quote.AmountIn, transferFeeIn); err != nil {
		return nil, err
	}
	if err := e.Balances.debit(owner, tokenIn, quote.AmountIn); err != nil {
		return nil, err
	}

	result, err := planMultiHop(e, tokenIn, amountSpecified, path, exactInput, false)
	if err != nil {
		e.restoreAll(snapshots, tickSnapshots)
		return nil, e.refundSwapDeposit(ctx, owner, tokenIn, quote.AmountIn, transferFeeIn, err)
	}

	e.Balances.credit(owner, tokenOut, result.AmountOut)
	_, werr := e.Balances.Withdraw(ctx, owner, tokenOut, result.AmountOut, transferFeeOut)
	if werr != nil {
		logrus.Warnf("multi-hop swap output withdrawal failed for %s: %v", owner.Hex(), werr)
		return result, failedToWithdrawErr(result.AmountIn.String(), result.AmountOut.String(), werr)
	}

	for _, id := range pools {
		hist, ok := e.histories[id]
		if !ok {
			continue
		}
		// Per-pool deltas fall out of the diff against the pre-swap snapshot.
		p, _ := e.Pools.Get(id)
		before := snapshots[id]
		hist.Record(p.Reserves0, p.Reserves1,
			p.SwapVolume0AllTime.Sub(before.SwapVolume0AllTime),
			p.SwapVolume1AllTime.Sub(before.SwapVolume1AllTime),
			p.GeneratedSwapFee0.Sub(before.GeneratedSwapFee0),
			p.GeneratedSwapFee1.Sub(before.GeneratedSwapFee1),
			p.Liquidity, p.SqrtPriceX96, p.Tick)
	}

	e.Events.EmitSwap(Swap{
		Owner: owner, TokenIn: tokenIn, TokenOut: tokenOut,
		FinalAmountIn: result.AmountIn, FinalAmountOut: result.AmountOut,
		Type: SwapType{ExactInput: exactInput, MultiHop: true, Pools: pools},
	})
	return result, nil
}

func (e *Engine) restorePool(id PoolId, pool *PoolState, ticks *TickTable) {
	e.Pools.Pools[id] = pool
	e.ticks[id] = ticks
}

func (e *Engine) restoreAll(pools map[PoolId]*PoolState, ticks map[PoolId]*TickTable) {
	for id, p := range pools {
		e.Pools.Pools[id] = p
	}
	for id, t := range ticks {
		e.ticks[id] = t
	}
}

// refundSwapDeposit handles a swap that failed after its input was
// funded: the deposited amount_in is withdrawn back out; if that also
// fails, both reasons are reported.
func (e *Engine) refundSwapDeposit(ctx context.Context, owner Principal, tokenIn Token, amountIn, transferFee decimal.Decimal, failedReason error) error {
	e.Balances.credit(owner, tokenIn, amountIn)
	refunded, werr := e.Balances.Withdraw(ctx, owner, tokenIn, amountIn, transferFee)
	if werr != nil {
		we, _ := werr.(*WithdrawError)
		return &SwapFailedRefunded{FailedReason: failedReason, RefundError: we}
	}
	amt := refunded.String()
	return &SwapFailedRefunded{FailedReason: failedReason, RefundAmount: &amt}
}

func quoteAmounts(result *SwapResult, zeroForOne bool) (amountIn, amountOut decimal.Decimal) {
	if zeroForOne {
		return result.Amount0, result.Amount1.Neg()
	}
	return result.Amount1, result.Amount0.Neg()
}

func swapTokens(poolId PoolId, zeroForOne bool) (tokenIn, tokenOut Token) {
	if zeroForOne {
		return poolId.Token0, poolId.Token1
	}
	return poolId.Token1, poolId.Token0
}

// Read-only queries.

func (e *Engine) GetPool(id PoolId) (*PoolState, error) {
	p, ok := e.Pools.Get(id)
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	return p, nil
}

func (e *Engine) GetPools() []*PoolState { return e.Pools.All() }

func (e *Engine) GetPoolHistory(id PoolId) (*PoolHistory, error) {
	h, ok := e.histories[id]
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	return h, nil
}

func (e *Engine) GetPosition(key PositionKey) (*Position, error) {
	p, ok := e.Positions.Get(key)
	if !ok {
		return nil, ErrPositionNotFound
	}
	return p, nil
}

func (e *Engine) GetPositionsByOwner(owner Principal) []*Position {
	return e.Positions.ByOwner(owner)
}

func (e *Engine) GetActiveTicks(id PoolId) (map[int]*TickInfo, error) {
	t, ok := e.ticks[id]
	if !ok {
		return nil, ErrPoolNotInitialized
	}
	return t.Ticks, nil
}

func (e *Engine) GetEvents(start, length int) ([]Event, int) {
	return e.Events.GetEvents(start, length)
}

func (e *Engine) UserBalance(owner Principal, token Token) decimal.Decimal {
	return e.Balances.Balance(owner, token)
}

func (e *Engine) UserBalances(owner Principal) map[Token]decimal.Decimal {
	return e.Balances.Balances(owner)
}
