// Package clmm implements the core of a concentrated-liquidity automated
// market maker: pool state, tick-indexed liquidity accounting, the swap
// and routing engine, and the position lifecycle. The external token
// ledger, host runtime, caller authentication, and event-log replay are
// treated as collaborators outside this package.
package clmm

import (
	"bytes"
	"fmt"

	"github.com/daoleno/uniswapv3-sdk/constants"
	"github.com/ethereum/go-ethereum/common"
)

// Principal identifies a caller or balance owner. Authentication of the
// caller behind a Principal is the host runtime's job.
type Principal = common.Address

// Token identifies a fungible token ledger. Tokens are totally ordered by
// byte value, matching the canonical token0 < token1 rule below.
type Token = common.Address

// FeeAmount is a swap fee tier in hundredths of a bip (1e-6).
type FeeAmount = constants.FeeAmount

const (
	FeeLowest FeeAmount = 100
	FeeLow    FeeAmount = 500
	FeeMedium FeeAmount = 3000
	FeeHigh   FeeAmount = 10000
)

// tickSpacings is the fee-tier -> tick-spacing table. FeeMedium's spacing
// (60) matches constants.TickSpacings; FeeLowest (100, one basis point) is
// an addition beyond the SDK's stock table, mirrored from the reference
// concentrated-liquidity fee ladder.
var tickSpacings = map[FeeAmount]int{
	FeeLowest: 1,
	FeeLow:    10,
	FeeMedium: 60,
	FeeHigh:   200,
	1000:      20,
}

// TickSpacingForFee returns the tick spacing for a fee tier, or an error
// if the tier is not one of the supported tiers.
func TickSpacingForFee(fee FeeAmount) (int, error) {
	spacing, ok := tickSpacings[fee]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPoolFee, fee)
	}
	return spacing, nil
}

// PoolId is the canonical identity of a pool: an ordered token pair plus
// fee tier. Two requests naming the same tokens in either order and the
// same fee tier resolve to the same PoolId.
type PoolId struct {
	Token0 Token
	Token1 Token
	Fee    FeeAmount
}

func (id PoolId) String() string {
	return fmt.Sprintf("%s/%s/%d", id.Token0.Hex(), id.Token1.Hex(), id.Fee)
}

// NewPoolId canonicalizes an unordered token pair into a PoolId, rejecting
// identical tokens. It does not check that the fee tier is supported;
// callers that need that check should call TickSpacingForFee as well.
func NewPoolId(tokenA, tokenB Token, fee FeeAmount) (PoolId, error) {
	if tokenA == tokenB {
		return PoolId{}, ErrDuplicatedTokens
	}
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return PoolId{Token0: tokenA, Token1: tokenB, Fee: fee}, nil
	}
	return PoolId{Token0: tokenB, Token1: tokenA, Fee: fee}, nil
}

// PositionKey is the composite identity of a liquidity position.
type PositionKey struct {
	Owner     Principal
	Pool      PoolId
	TickLower int
	TickUpper int
}

// Rounding selects the rounding direction for a mul_div-style computation.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// SwapType records the direction and shape of a committed swap, attached
// to the Swap event payload.
type SwapType struct {
	ExactInput bool
	MultiHop   bool
	Pools      []PoolId
}
