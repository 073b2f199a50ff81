package clmm

import "github.com/shopspring/decimal"

// Frame names one of the four historical rollup granularities.
type Frame int

const (
	FrameHour Frame = iota
	FrameDay
	FrameMonth
	FrameYear
)

// bucketCapacity is the ring size per frame: a day of hourly buckets, a
// month of daily, a year of monthly, and five years of yearly.
var bucketCapacity = map[Frame]int{
	FrameHour:  24,
	FrameDay:   30,
	FrameMonth: 12,
	FrameYear:  5,
}

// HistoryBucket is one rollup record: reserves/volume/fees as of and
// through the bucket, in-range liquidity, the last observed price, and the
// active tick at bucket start plus how many observations during the
// bucket saw a tick different from that starting tick.
type HistoryBucket struct {
	Reserves0         decimal.Decimal
	Reserves1         decimal.Decimal
	Volume0           decimal.Decimal
	Volume1           decimal.Decimal
	FeeGeneration0    decimal.Decimal
	FeeGeneration1    decimal.Decimal
	InRangeLiquidity  decimal.Decimal
	LastPriceX96      decimal.Decimal
	ActiveTickAtStart int
	TickIncrements    int
}

func newHistoryBucket(tick int) *HistoryBucket {
	return &HistoryBucket{
		Reserves0:         ZERO,
		Reserves1:         ZERO,
		Volume0:           ZERO,
		Volume1:           ZERO,
		FeeGeneration0:    ZERO,
		FeeGeneration1:    ZERO,
		InRangeLiquidity:  ZERO,
		LastPriceX96:      ZERO,
		ActiveTickAtStart: tick,
	}
}

// HistoryRing is a fixed-capacity ring of HistoryBucket for one frame.
// The current (still-accumulating) bucket is kept separate from the
// sealed ring entries so Record can update it without a rollover.
type HistoryRing struct {
	frame    Frame
	capacity int
	sealed   []*HistoryBucket // oldest first, length capped at capacity
	current  *HistoryBucket
}

func newHistoryRing(frame Frame, tick int) *HistoryRing {
	return &HistoryRing{
		frame:    frame,
		capacity: bucketCapacity[frame],
		current:  newHistoryBucket(tick),
	}
}

// Record folds one pool-state observation into the ring's current bucket.
// volumeDelta0/1 and feeDelta0/1 are the amounts attributable to this
// observation (not running totals); reserves/liquidity/price/tick are
// snapshots as-of the observation.
func (r *HistoryRing) Record(reserves0, reserves1, volumeDelta0, volumeDelta1, feeDelta0, feeDelta1, inRangeLiquidity, priceX96 decimal.Decimal, tick int) {
	b := r.current
	b.Reserves0 = reserves0
	b.Reserves1 = reserves1
	b.Volume0 = b.Volume0.Add(volumeDelta0)
	b.Volume1 = b.Volume1.Add(volumeDelta1)
	b.FeeGeneration0 = b.FeeGeneration0.Add(feeDelta0)
	b.FeeGeneration1 = b.FeeGeneration1.Add(feeDelta1)
	b.InRangeLiquidity = inRangeLiquidity
	b.LastPriceX96 = priceX96
	if tick != b.ActiveTickAtStart {
		b.TickIncrements++
	}
}

// Advance seals the current bucket into the ring (evicting the oldest if
// at capacity) and opens a new current bucket starting at activeTick. The
// host runtime decides WHEN a frame boundary has passed (it owns the
// clock); this package only knows how to roll one over.
func (r *HistoryRing) Advance(activeTick int) {
	r.sealed = append(r.sealed, r.current)
	if len(r.sealed) > r.capacity {
		r.sealed = r.sealed[len(r.sealed)-r.capacity:]
	}
	r.current = newHistoryBucket(activeTick)
}

// Buckets returns the sealed history plus the still-open current bucket,
// oldest first.
func (r *HistoryRing) Buckets() []*HistoryBucket {
	out := make([]*HistoryBucket, 0, len(r.sealed)+1)
	out = append(out, r.sealed...)
	out = append(out, r.current)
	return out
}

// PoolHistory bundles the four frames for one pool.
type PoolHistory struct {
	Hour  *HistoryRing
	Day   *HistoryRing
	Month *HistoryRing
	Year  *HistoryRing
}

func NewPoolHistory(tick int) *PoolHistory {
	return &PoolHistory{
		Hour:  newHistoryRing(FrameHour, tick),
		Day:   newHistoryRing(FrameDay, tick),
		Month: newHistoryRing(FrameMonth, tick),
		Year:  newHistoryRing(FrameYear, tick),
	}
}

// Record folds one observation into all four frames at once.
func (h *PoolHistory) Record(reserves0, reserves1, volumeDelta0, volumeDelta1, feeDelta0, feeDelta1, inRangeLiquidity, priceX96 decimal.Decimal, tick int) {
	h.Hour.Record(reserves0, reserves1, volumeDelta0, volumeDelta1, feeDelta0, feeDelta1, inRangeLiquidity, priceX96, tick)
	h.Day.Record(reserves0, reserves1, volumeDelta0, volumeDelta1, feeDelta0, feeDelta1, inRangeLiquidity, priceX96, tick)
	h.Month.Record(reserves0, reserves1, volumeDelta0, volumeDelta1, feeDelta0, feeDelta1, inRangeLiquidity, priceX96, tick)
	h.Year.Record(reserves0, reserves1, volumeDelta0, volumeDelta1, feeDelta0, feeDelta1, inRangeLiquidity, priceX96, tick)
}
