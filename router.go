package clmm

import (
	"github.com/shopspring/decimal"
)

// PathKey is one hop of a multi-hop route: the fee tier of the pool and
// the token reached by taking that hop.
type PathKey struct {
	FeeTier      FeeAmount
	Intermediary Token
}

const (
	minPathHops = 2
	maxPathHops = 4
)

// resolvedHop is one pool along a resolved path, with the direction of
// travel through it.
type resolvedHop struct {
	id         PoolId
	zeroForOne bool
}

// resolvePath turns a starting token and a list of PathKeys into the
// ordered sequence of pools the route actually swaps through, validating
// length bounds and rejecting routes that visit a pool twice.
func resolvePath(tokenIn Token, path []PathKey) ([]resolvedHop, error) {
	hops := make([]resolvedHop, 0, len(path))
	seen := make(map[PoolId]bool, len(path))
	current := tokenIn
	for _, key := range path {
		id, err := NewPoolId(current, key.Intermediary, key.FeeTier)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, ErrPathDuplicated
		}
		seen[id] = true
		hops = append(hops, resolvedHop{id: id, zeroForOne: current == id.Token0})
		current = key.Intermediary
	}
	if len(hops) < minPathHops {
		return nil, ErrPathTooShort
	}
	if len(hops) > maxPathHops {
		return nil, ErrPathTooLong
	}
	return hops, nil
}

// Venue is the collaborator the router needs from the orchestrator: pool
// and tick-table lookup by id, so the router stays agnostic of how those
// tables are stored (global maps in Engine, snapshots during rollback).
type Venue interface {
	Pool(id PoolId) (*PoolState, bool)
	Ticks(id PoolId) (*TickTable, bool)
}

// MultiHopResult is the outcome of a multi-hop swap plan: the amount paid
// into the first hop, the amount delivered out of the last hop, and the
// pools traversed (for the Swap event's SwapType).
type MultiHopResult struct {
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
	Pools     []PoolId
}

// planMultiHop runs a multi-hop route. For exact input it feeds hop i's
// output into hop i+1 as input, forward through the path; for exact
// output it walks the path backwards (see below). isStatic is passed to
// every singlePoolSwap call: true is a dry run that mutates nothing, false
// applies each hop to the venue's pool and tick state.
func planMultiHop(venue Venue, tokenIn Token, amountIn decimal.Decimal, path []PathKey, exactInput bool, isStatic bool) (*MultiHopResult, error) {
	hops, err := resolvePath(tokenIn, path)
	if err != nil {
		return nil, err
	}

	pools := make([]PoolId, len(hops))
	for i, h := range hops {
		pools[i] = h.id
	}

	if exactInput {
		amount := amountIn
		for _, hop := range hops {
			pool, ok := venue.Pool(hop.id)
			if !ok {
				return nil, ErrPoolNotInitialized
			}
			ticks, _ := venue.Ticks(hop.id)
			res, err := singlePoolSwap(pool, ticks, hop.zeroForOne, amount, nil, isStatic)
			if err != nil {
				return nil, err
			}
			if hop.zeroForOne {
				amount = res.Amount1.Neg()
			} else {
				amount = res.Amount0.Neg()
			}
		}
		return &MultiHopResult{AmountIn: amountIn, AmountOut: amount, Pools: pools}, nil
	}

	// Exact-output: walk the path backwards, turning hop i+1's required
	// input into hop i's required output.
	amountOut := amountIn // amountIn here actually carries the desired output
	for i := len(hops) - 1; i >= 0; i-- {
		hop := hops[i]
		pool, ok := venue.Pool(hop.id)
		if !ok {
			return nil, ErrPoolNotInitialized
		}
		ticks, _ := venue.Ticks(hop.id)
		res, err := singlePoolSwap(pool, ticks, hop.zeroForOne, amountOut.Neg(), nil, isStatic)
		if err != nil {
			return nil, err
		}
		if hop.zeroForOne {
			amountOut = res.Amount0
		} else {
			amountOut = res.Amount1
		}
	}
	return &MultiHopResult{AmountIn: amountOut, AmountOut: amountIn, Pools: pools}, nil
}

// checkExactOutputFeeSupported rejects fee tiers that are mathematically
// excluded for exact-output swaps. The lowest (1bps) tier's tick spacing
// of 1 makes ComputeSwapStep's within-step rounding for exact-output
// targets ambiguous at the extreme low end of the tick range (the step
// can both fully satisfy the requested output and land exactly on a tick
// boundary, so "did we cross" is not well-defined); the reference design
// resolves this by disallowing the combination rather than guessing.
func checkExactOutputFeeSupported(fee FeeAmount) error {
	if fee == FeeLowest {
		return ErrInvalidFeeForExactOutput
	}
	return nil
}
