package clmm

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Position is one liquidity provider's stake in one tick range of one
// pool. Fees accrue by comparing the newly observed feeGrowthInside
// against the position's last-seen snapshot, multiplying by liquidity,
// and crediting the difference to the owed counters.
type Position struct {
	Key PositionKey

	Liquidity                decimal.Decimal
	FeeGrowthInside0LastX128 decimal.Decimal
	FeeGrowthInside1LastX128 decimal.Decimal
	TokensOwed0              decimal.Decimal
	TokensOwed1              decimal.Decimal
}

func newPosition(key PositionKey) *Position {
	return &Position{
		Key:                      key,
		Liquidity:                ZERO,
		FeeGrowthInside0LastX128: ZERO,
		FeeGrowthInside1LastX128: ZERO,
		TokensOwed0:              ZERO,
		TokensOwed1:              ZERO,
	}
}

func (p *Position) clone() *Position {
	cp := *p
	return &cp
}

// IsEmpty reports whether the position can be removed from the table:
// zero liquidity and no owed fees remain.
func (p *Position) IsEmpty() bool {
	return p.Liquidity.IsZero() && p.TokensOwed0.IsZero() && p.TokensOwed1.IsZero()
}

// accrue folds the fee growth accrued since the position's last snapshot
// into TokensOwed, then updates liquidity by delta (which may be zero, to
// accrue fees without changing liquidity) and advances the snapshot.
// A delta that would make liquidity negative is rejected by
// LiquidityAddDelta; decreaseLiquidity checks that bound before calling.
func (p *Position) accrue(delta decimal.Decimal, feeGrowthInside0X128, feeGrowthInside1X128 decimal.Decimal) error {
	tokensOwed0 := feeGrowthInside0X128.Sub(p.FeeGrowthInside0LastX128).Mul(p.Liquidity).Div(Q128).Floor()
	tokensOwed1 := feeGrowthInside1X128.Sub(p.FeeGrowthInside1LastX128).Mul(p.Liquidity).Div(Q128).Floor()

	if !delta.IsZero() {
		next, err := LiquidityAddDelta(p.Liquidity, delta)
		if err != nil {
			return err
		}
		p.Liquidity = next
	}
	p.FeeGrowthInside0LastX128 = feeGrowthInside0X128
	p.FeeGrowthInside1LastX128 = feeGrowthInside1X128

	if tokensOwed0.IsPositive() || tokensOwed1.IsPositive() {
		p.TokensOwed0 = p.TokensOwed0.Add(tokensOwed0)
		p.TokensOwed1 = p.TokensOwed1.Add(tokensOwed1)
	}
	return nil
}

// collect withdraws up to the requested amounts from TokensOwed, capped
// at what is actually owed, and returns the amounts taken.
func (p *Position) collect(amount0Requested, amount1Requested decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	amount0 := decimal.Min(amount0Requested, p.TokensOwed0)
	amount1 := decimal.Min(amount1Requested, p.TokensOwed1)
	p.TokensOwed0 = p.TokensOwed0.Sub(amount0)
	p.TokensOwed1 = p.TokensOwed1.Sub(amount1)
	return amount0, amount1
}

// PositionTable is the global (owner, pool, tick_lower, tick_upper) ->
// position map.
type PositionTable struct {
	Positions map[PositionKey]*Position
}

func NewPositionTable() *PositionTable {
	return &PositionTable{Positions: make(map[PositionKey]*Position)}
}

func (pt *PositionTable) Clone() *PositionTable {
	n := NewPositionTable()
	for k, v := range pt.Positions {
		n.Positions[k] = v.clone()
	}
	return n
}

func (pt *PositionTable) Get(key PositionKey) (*Position, bool) {
	p, ok := pt.Positions[key]
	return p, ok
}

func (pt *PositionTable) getOrInit(key PositionKey) *Position {
	p, ok := pt.Positions[key]
	if !ok {
		p = newPosition(key)
		pt.Positions[key] = p
	}
	return p
}

// ByOwner returns every position for an owner, across all pools.
func (pt *PositionTable) ByOwner(owner Principal) []*Position {
	var out []*Position
	for k, v := range pt.Positions {
		if k.Owner == owner {
			out = append(out, v)
		}
	}
	return out
}

// removeIfEmpty deletes the position once it is empty.
func (pt *PositionTable) removeIfEmpty(key PositionKey) {
	if p, ok := pt.Positions[key]; ok && p.IsEmpty() {
		delete(pt.Positions, key)
	}
}

// GormDataType / Scan / Value let a host persist the whole table as one
// column via gorm.
func (pt *PositionTable) GormDataType() string { return "LONGTEXT" }

func (pt *PositionTable) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, pt)
	case string:
		return json.Unmarshal([]byte(v), pt)
	case nil:
		return nil
	default:
		return errors.New(fmt.Sprint("failed to unmarshal PositionTable value:", value))
	}
}

func (pt *PositionTable) Value() (driver.Value, error) {
	bs, err := json.Marshal(pt)
	if err != nil {
		return nil, err
	}
	return string(bs), nil
}
