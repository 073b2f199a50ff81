package clmm

import (
	"sync"

	"github.com/shopspring/decimal"
)

// EventKind tags the variant carried by an Event's Payload, component #8.
type EventKind string

const (
	EventCreatedPool        EventKind = "CreatedPool"
	EventMintedPosition     EventKind = "MintedPosition"
	EventIncreasedLiquidity EventKind = "IncreasedLiquidity"
	EventDecreasedLiquidity EventKind = "DecreasedLiquidity"
	EventBurntPosition      EventKind = "BurntPosition"
	EventCollectedFees      EventKind = "CollectedFees"
	EventSwap               EventKind = "Swap"
)

type CreatedPool struct {
	Pool PoolId
}

type MintedPosition struct {
	Owner     Principal
	Pool      PoolId
	TickLower int
	TickUpper int
	Liquidity decimal.Decimal
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
}

type IncreasedLiquidity struct {
	Owner          Principal
	Pool           PoolId
	TickLower      int
	TickUpper      int
	LiquidityDelta decimal.Decimal
	Amount0        decimal.Decimal
	Amount1        decimal.Decimal
}

type DecreasedLiquidity struct {
	Owner          Principal
	Pool           PoolId
	TickLower      int
	TickUpper      int
	LiquidityDelta decimal.Decimal
	Amount0        decimal.Decimal
	Amount1        decimal.Decimal
}

type BurntPosition struct {
	Owner     Principal
	Pool      PoolId
	TickLower int
	TickUpper int
}

type CollectedFees struct {
	Owner     Principal
	Pool      PoolId
	TickLower int
	TickUpper int
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
}

// Swap is the event payload for both single-pool and multi-hop swaps;
// SwapType carries the full path so a reader can reconstruct which pools
// were touched and in what order.
type Swap struct {
	Owner          Principal
	TokenIn        Token
	TokenOut       Token
	FinalAmountIn  decimal.Decimal
	FinalAmountOut decimal.Decimal
	Type           SwapType
}

// Event is one append-only log entry. Seq is a monotonically increasing
// sequence number assigned at append time; this package carries no wall
// clock of its own, so a host embedding it maps Seq to its own clock when
// it needs timestamps.
type Event struct {
	Seq     uint64
	Kind    EventKind
	Payload interface{}
}

// EventLog is the append-only event record. Reads return events in
// insertion order; GetEvents supports a paginated (start, length) query
// shape along with the total count.
type EventLog struct {
	mu      sync.Mutex
	events  []Event
	nextSeq uint64
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) append(kind EventKind, payload interface{}) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := Event{Seq: l.nextSeq, Kind: kind, Payload: payload}
	l.nextSeq++
	l.events = append(l.events, ev)
	return ev
}

func (l *EventLog) EmitCreatedPool(p CreatedPool) Event { return l.append(EventCreatedPool, p) }
func (l *EventLog) EmitMintedPosition(p MintedPosition) Event {
	return l.append(EventMintedPosition, p)
}
func (l *EventLog) EmitIncreasedLiquidity(p IncreasedLiquidity) Event {
	return l.append(EventIncreasedLiquidity, p)
}
func (l *EventLog) EmitDecreasedLiquidity(p DecreasedLiquidity) Event {
	return l.append(EventDecreasedLiquidity, p)
}
func (l *EventLog) EmitBurntPosition(p BurntPosition) Event {
	return l.append(EventBurntPosition, p)
}
func (l *EventLog) EmitCollectedFees(p CollectedFees) Event {
	return l.append(EventCollectedFees, p)
}
func (l *EventLog) EmitSwap(p Swap) Event { return l.append(EventSwap, p) }

// GetEvents returns up to length events starting at start (by insertion
// index, not Seq value, though the two coincide for a log that never
// truncates), plus the total event count.
func (l *EventLog) GetEvents(start, length int) ([]Event, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := len(l.events)
	if start < 0 || start >= total || length <= 0 {
		return nil, total
	}
	end := start + length
	if end > total {
		end = total
	}
	out := make([]Event, end-start)
	copy(out, l.events[start:end])
	return out, total
}
