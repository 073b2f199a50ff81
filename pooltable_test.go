package clmm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestPoolTableCreateCanonicalizesTokenOrder(t *testing.T) {
	pt := NewPoolTable()
	tokenA := common.HexToAddress("0xBB")
	tokenB := common.HexToAddress("0xAA")

	pool, err := pt.Create(tokenA, tokenB, FeeMedium, Q96) // sqrt_price_x96 = 1<<96 -> tick 0
	require.NoError(t, err)
	require.Equal(t, tokenB, pool.Id.Token0) // 0xAA < 0xBB
	require.Equal(t, tokenA, pool.Id.Token1)
	require.Equal(t, 0, pool.Tick)
	require.True(t, pool.Liquidity.IsZero())
}

func TestPoolTableCreateRejectsDuplicates(t *testing.T) {
	pt := NewPoolTable()
	tokenA, tokenB := common.HexToAddress("0x1"), common.HexToAddress("0x2")

	_, err := pt.Create(tokenA, tokenB, FeeMedium, Q96)
	require.NoError(t, err)

	_, err = pt.Create(tokenA, tokenB, FeeMedium, Q96)
	require.ErrorIs(t, err, ErrPoolAlreadyExists)
}

func TestPoolTableCreateRejectsInvalidFee(t *testing.T) {
	pt := NewPoolTable()
	_, err := pt.Create(common.HexToAddress("0x1"), common.HexToAddress("0x2"), 42, Q96)
	require.ErrorIs(t, err, ErrInvalidPoolFee)
}

func TestPoolStateInitializeRejectsOutOfBoundsPrice(t *testing.T) {
	pool := NewPoolState(PoolId{Fee: FeeMedium}, 60)
	err := pool.Initialize(MinSqrtRatioX96)
	require.ErrorIs(t, err, ErrInvalidSqrtPriceX96)
}

func TestPoolStateCloneIsIndependent(t *testing.T) {
	pool := NewPoolState(PoolId{Fee: FeeMedium}, 60)
	require.NoError(t, pool.Initialize(Q96))

	clone := pool.Clone()
	clone.Liquidity = clone.Liquidity.Add(ONE)
	require.True(t, pool.Liquidity.IsZero())
	require.False(t, clone.Liquidity.IsZero())
}
