package clmm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeVenue is a minimal Venue backed by plain maps, enough to exercise
// the router without pulling in the full Engine/orchestrator.
type fakeVenue struct {
	pools map[PoolId]*PoolState
	ticks map[PoolId]*TickTable
}

func (v *fakeVenue) Pool(id PoolId) (*PoolState, bool)  { p, ok := v.pools[id]; return p, ok }
func (v *fakeVenue) Ticks(id PoolId) (*TickTable, bool)  { t, ok := v.ticks[id]; return t, ok }

func newRouterFixture(t *testing.T) (*fakeVenue, Token, Token, Token) {
	t.Helper()
	tokenA := common.HexToAddress("0x1")
	tokenB := common.HexToAddress("0x2")
	tokenC := common.HexToAddress("0x3")

	venue := &fakeVenue{pools: make(map[PoolId]*PoolState), ticks: make(map[PoolId]*TickTable)}

	addPool := func(t0, t1 Token) {
		id, err := NewPoolId(t0, t1, FeeMedium)
		require.NoError(t, err)
		pool := NewPoolState(id, 60)
		require.NoError(t, pool.Initialize(Q96))
		pool.Liquidity = decimal.NewFromInt(1_000_000_000)
		ticks := NewTickTable(60)
		_, err = ticks.Update(-887220, pool.Liquidity, pool.Tick, ZERO, ZERO, pool.MaxLiquidityPerTick, false)
		require.NoError(t, err)
		_, err = ticks.Update(887220, pool.Liquidity, pool.Tick, ZERO, ZERO, pool.MaxLiquidityPerTick, true)
		require.NoError(t, err)
		venue.pools[id] = pool
		venue.ticks[id] = ticks
	}

	addPool(tokenA, tokenB)
	addPool(tokenB, tokenC)

	return venue, tokenA, tokenB, tokenC
}

func TestResolvePathBuildsOrderedHops(t *testing.T) {
	_, tokenA, tokenB, tokenC := newRouterFixture(t)
	path := []PathKey{{FeeTier: FeeMedium, Intermediary: tokenB}, {FeeTier: FeeMedium, Intermediary: tokenC}}

	hops, err := resolvePath(tokenA, path)
	require.NoError(t, err)
	require.Len(t, hops, 2)
}

func TestResolvePathRejectsDuplicatePool(t *testing.T) {
	_, tokenA, tokenB, _ := newRouterFixture(t)
	path := []PathKey{
		{FeeTier: FeeMedium, Intermediary: tokenB},
		{FeeTier: FeeMedium, Intermediary: tokenA}, // back to A through the same pool
	}

	_, err := resolvePath(tokenA, path)
	require.ErrorIs(t, err, ErrPathDuplicated)
}

func TestResolvePathRejectsTooShort(t *testing.T) {
	_, tokenA, tokenB, _ := newRouterFixture(t)
	_, err := resolvePath(tokenA, []PathKey{{FeeTier: FeeMedium, Intermediary: tokenB}})
	require.ErrorIs(t, err, ErrPathTooShort)
}

func TestResolvePathRejectsTooLong(t *testing.T) {
	_, tokenA, tokenB, tokenC := newRouterFixture(t)
	tokenD := common.HexToAddress("0x4")
	tokenE := common.HexToAddress("0x5")
	path := []PathKey{
		{FeeTier: FeeMedium, Intermediary: tokenB},
		{FeeTier: FeeMedium, Intermediary: tokenC},
		{FeeTier: FeeMedium, Intermediary: tokenD},
		{FeeTier: FeeMedium, Intermediary: tokenE},
		{FeeTier: FeeMedium, Intermediary: tokenA},
	}
	_, err := resolvePath(tokenA, path)
	require.ErrorIs(t, err, ErrPathTooLong)
}

func TestPlanMultiHopExactInputChainsHops(t *testing.T) {
	venue, tokenA, tokenB, tokenC := newRouterFixture(t)
	path := []PathKey{{FeeTier: FeeMedium, Intermediary: tokenB}, {FeeTier: FeeMedium, Intermediary: tokenC}}

	result, err := planMultiHop(venue, tokenA, decimal.NewFromInt(1000), path, true, true)
	require.NoError(t, err)
	require.Equal(t, "1000", result.AmountIn.String())
	require.True(t, result.AmountOut.IsPositive())
	require.Len(t, result.Pools, 2)
}

func TestPlanMultiHopExactOutputWalksBackwards(t *testing.T) {
	venue, tokenA, tokenB, tokenC := newRouterFixture(t)
	path := []PathKey{{FeeTier: FeeMedium, Intermediary: tokenB}, {FeeTier: FeeMedium, Intermediary: tokenC}}

	result, err := planMultiHop(venue, tokenA, decimal.NewFromInt(1000), path, false, true)
	require.NoError(t, err)
	require.Equal(t, "1000", result.AmountOut.String())
	require.True(t, result.AmountIn.IsPositive())
}

func TestCheckExactOutputFeeSupportedRejectsLowestTier(t *testing.T) {
	err := checkExactOutputFeeSupported(FeeLowest)
	require.ErrorIs(t, err, ErrInvalidFeeForExactOutput)

	require.NoError(t, checkExactOutputFeeSupported(FeeMedium))
}
