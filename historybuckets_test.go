package clmm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHistoryRingRecordAccumulates(t *testing.T) {
	ring := newHistoryRing(FrameHour, 0)

	ring.Record(decimal.NewFromInt(100), decimal.NewFromInt(200), decimal.NewFromInt(5), decimal.NewFromInt(10),
		decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(1000), Q96, 0)
	ring.Record(decimal.NewFromInt(105), decimal.NewFromInt(190), decimal.NewFromInt(3), decimal.NewFromInt(4),
		decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1000), Q96, 60)

	buckets := ring.Buckets()
	require.Len(t, buckets, 1)
	current := buckets[0]
	require.Equal(t, "105", current.Reserves0.String())
	require.Equal(t, "8", current.Volume0.String())
	require.Equal(t, "14", current.Volume1.String())
	require.Equal(t, "2", current.FeeGeneration0.String())
	require.Equal(t, 1, current.TickIncrements)
}

func TestHistoryRingAdvanceSealsAndEvicts(t *testing.T) {
	ring := newHistoryRing(FrameHour, 0)
	ring.capacity = 2 // shrink for the test

	for i := 0; i < 3; i++ {
		ring.Record(ZERO, ZERO, ZERO, ZERO, ZERO, ZERO, ZERO, ZERO, 0)
		ring.Advance(0)
	}

	require.Len(t, ring.sealed, 2)
	require.NotNil(t, ring.current)
}

func TestPoolHistoryRecordFansOutToAllFrames(t *testing.T) {
	h := NewPoolHistory(0)
	h.Record(decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1),
		ZERO, ZERO, ZERO, Q96, 0)

	require.Equal(t, "1", h.Hour.current.Volume0.String())
	require.Equal(t, "1", h.Day.current.Volume0.String())
	require.Equal(t, "1", h.Month.current.Volume0.String())
	require.Equal(t, "1", h.Year.current.Volume0.String())
}
