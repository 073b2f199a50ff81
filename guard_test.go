package clmm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestPrincipalGuardNonSwapExclusion(t *testing.T) {
	guard := NewPrincipalGuard()
	owner := common.HexToAddress("0x1")

	lease, err := guard.AcquireNonSwap(owner)
	require.NoError(t, err)

	_, err = guard.AcquireNonSwap(owner)
	require.ErrorIs(t, err, ErrLockedPrincipal)

	lease.Release()

	_, err = guard.AcquireNonSwap(owner)
	require.NoError(t, err)
}

func TestPrincipalGuardSwapExclusionAgainstNonSwap(t *testing.T) {
	guard := NewPrincipalGuard()
	owner := common.HexToAddress("0x1")
	pool := PoolId{Fee: FeeMedium}

	nonSwapLease, err := guard.AcquireNonSwap(owner)
	require.NoError(t, err)

	_, err = guard.AcquireSwap(owner, []PoolId{pool})
	require.ErrorIs(t, err, ErrLockedPrincipal)

	nonSwapLease.Release()

	swapLease, err := guard.AcquireSwap(owner, []PoolId{pool})
	require.NoError(t, err)

	_, err = guard.AcquireNonSwap(owner)
	require.ErrorIs(t, err, ErrLockedPrincipal)

	swapLease.Release()
}

func TestPrincipalGuardConcurrentSwapsSamePrincipalDifferentPools(t *testing.T) {
	guard := NewPrincipalGuard()
	owner := common.HexToAddress("0x1")
	poolA := PoolId{Fee: FeeMedium}
	poolB := PoolId{Fee: FeeHigh}

	leaseA, err := guard.AcquireSwap(owner, []PoolId{poolA})
	require.NoError(t, err)

	leaseB, err := guard.AcquireSwap(owner, []PoolId{poolB})
	require.NoError(t, err)

	leaseA.Release()
	leaseB.Release()
}

func TestPrincipalGuardSwapsConflictOnOverlappingPool(t *testing.T) {
	guard := NewPrincipalGuard()
	owner1 := common.HexToAddress("0x1")
	owner2 := common.HexToAddress("0x2")
	pool := PoolId{Fee: FeeMedium}

	lease, err := guard.AcquireSwap(owner1, []PoolId{pool})
	require.NoError(t, err)

	_, err = guard.AcquireSwap(owner2, []PoolId{pool})
	require.ErrorIs(t, err, ErrLockedPrincipal)

	lease.Release()

	_, err = guard.AcquireSwap(owner2, []PoolId{pool})
	require.NoError(t, err)
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	guard := NewPrincipalGuard()
	owner := common.HexToAddress("0x1")

	lease, err := guard.AcquireNonSwap(owner)
	require.NoError(t, err)

	lease.Release()
	require.NotPanics(t, func() { lease.Release() })

	_, err = guard.AcquireNonSwap(owner)
	require.NoError(t, err)
}
