package clmm

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PoolState is one pool's mutable state. It embeds gorm.Model so a host
// that wants to persist pools through gorm (to sqlite, postgres,
// whatever dialect) has the struct tags ready; this package itself never
// opens a database handle (that is the host runtime's job).
type PoolState struct {
	gorm.Model `json:"-"`

	Id PoolId `gorm:"-"`

	// HasCreated tracks whether Flush has inserted this row yet.
	HasCreated bool `json:"-"`

	SqrtPriceX96 decimal.Decimal
	Tick         int
	Liquidity    decimal.Decimal

	FeeGrowthGlobal0X128 decimal.Decimal
	FeeGrowthGlobal1X128 decimal.Decimal

	ProtocolFeeFraction uint8 // 0, or 1/N diverted to the protocol bucket
	ProtocolFeesToken0  decimal.Decimal
	ProtocolFeesToken1  decimal.Decimal

	Token0TransferFee decimal.Decimal
	Token1TransferFee decimal.Decimal

	TickSpacing         int
	MaxLiquidityPerTick decimal.Decimal

	Reserves0 decimal.Decimal
	Reserves1 decimal.Decimal

	SwapVolume0AllTime decimal.Decimal
	SwapVolume1AllTime decimal.Decimal
	GeneratedSwapFee0  decimal.Decimal
	GeneratedSwapFee1  decimal.Decimal
}

func (p *PoolState) Clone() *PoolState {
	cp := *p
	return &cp
}

// NewPoolState constructs an uninitialized pool (sqrt price zero; callers
// must call Initialize before any swap or mint).
func NewPoolState(id PoolId, spacing int) *PoolState {
	return &PoolState{
		Id:                   id,
		SqrtPriceX96:         ZERO,
		Liquidity:            ZERO,
		FeeGrowthGlobal0X128: ZERO,
		FeeGrowthGlobal1X128: ZERO,
		Token0TransferFee:    ZERO,
		Token1TransferFee:    ZERO,
		TickSpacing:          spacing,
		MaxLiquidityPerTick:  MaxLiquidityPerTick(spacing),
		Reserves0:            ZERO,
		Reserves1:            ZERO,
		SwapVolume0AllTime:   ZERO,
		SwapVolume1AllTime:   ZERO,
		GeneratedSwapFee0:    ZERO,
		GeneratedSwapFee1:    ZERO,
		ProtocolFeesToken0:   ZERO,
		ProtocolFeesToken1:   ZERO,
	}
}

// Initialize sets the pool's starting price and the tick it implies.
// Pools are created once and never destroyed; this may only be called
// once, at creation.
func (p *PoolState) Initialize(sqrtPriceX96 decimal.Decimal) error {
	if !p.SqrtPriceX96.IsZero() {
		return fmt.Errorf("pool already initialized")
	}
	if sqrtPriceX96.LessThanOrEqual(MinSqrtRatioX96) || sqrtPriceX96.GreaterThanOrEqual(MaxSqrtRatioX96) {
		return ErrInvalidSqrtPriceX96
	}
	tick, err := SqrtPriceX96ToTick(sqrtPriceX96)
	if err != nil {
		return err
	}
	p.SqrtPriceX96 = sqrtPriceX96
	p.Tick = tick
	return nil
}

// Flush saves the pool row through a host-supplied gorm handle: an
// insert on first call, a column update afterwards. Which dialect backs
// the handle is the host's choice; this package never opens one itself.
func (p *PoolState) Flush(db *gorm.DB) error {
	if p.HasCreated {
		return db.Model(p).Updates(map[string]interface{}{
			"sqrt_price_x96":          p.SqrtPriceX96,
			"tick":                    p.Tick,
			"liquidity":               p.Liquidity,
			"fee_growth_global0_x128": p.FeeGrowthGlobal0X128,
			"fee_growth_global1_x128": p.FeeGrowthGlobal1X128,
			"reserves0":               p.Reserves0,
			"reserves1":               p.Reserves1,
			"swap_volume0_all_time":   p.SwapVolume0AllTime,
			"swap_volume1_all_time":   p.SwapVolume1AllTime,
			"generated_swap_fee0":     p.GeneratedSwapFee0,
			"generated_swap_fee1":     p.GeneratedSwapFee1,
		}).Error
	}
	p.HasCreated = true
	return db.Create(p).Error
}

// PoolTable is the pool_id -> pool_state map.
type PoolTable struct {
	Pools map[PoolId]*PoolState
}

func NewPoolTable() *PoolTable {
	return &PoolTable{Pools: make(map[PoolId]*PoolState)}
}

func (t *PoolTable) Get(id PoolId) (*PoolState, bool) {
	p, ok := t.Pools[id]
	return p, ok
}

func (t *PoolTable) All() []*PoolState {
	out := make([]*PoolState, 0, len(t.Pools))
	for _, p := range t.Pools {
		out = append(out, p)
	}
	return out
}

// Create validates and inserts a new pool, returning CreatePoolError-class
// errors (ErrDuplicatedTokens, ErrInvalidPoolFee, ErrPoolAlreadyExists,
// ErrInvalidSqrtPriceX96) unchanged to the caller.
func (t *PoolTable) Create(tokenA, tokenB Token, fee FeeAmount, sqrtPriceX96 decimal.Decimal) (*PoolState, error) {
	id, err := NewPoolId(tokenA, tokenB, fee)
	if err != nil {
		return nil, err
	}
	spacing, err := TickSpacingForFee(fee)
	if err != nil {
		return nil, err
	}
	if _, exists := t.Pools[id]; exists {
		return nil, ErrPoolAlreadyExists
	}
	pool := NewPoolState(id, spacing)
	if err := pool.Initialize(sqrtPriceX96); err != nil {
		return nil, err
	}
	t.Pools[id] = pool
	return pool, nil
}
