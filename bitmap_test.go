package clmm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickBitmapFlipAndInitialized(t *testing.T) {
	bm := NewTickBitmap()
	require.False(t, bm.IsInitialized(60, 60))

	bm.Flip(60, 60)
	require.True(t, bm.IsInitialized(60, 60))

	bm.Flip(60, 60)
	require.False(t, bm.IsInitialized(60, 60))
}

func TestTickBitmapNegativeTicks(t *testing.T) {
	bm := NewTickBitmap()
	bm.Flip(-120, 60)
	require.True(t, bm.IsInitialized(-120, 60))
	bm.Flip(-60, 60)
	require.True(t, bm.IsInitialized(-60, 60))
}

func TestTickBitmapNextInitialized(t *testing.T) {
	bm := NewTickBitmap()
	bm.Flip(-60, 60)
	bm.Flip(60, 60)
	bm.Flip(180, 60)

	next, initialized := bm.NextInitializedTick(0, 60, false)
	require.True(t, initialized)
	require.Equal(t, 60, next)

	next, initialized = bm.NextInitializedTick(0, 60, true)
	require.True(t, initialized)
	require.Equal(t, -60, next)

	next, initialized = bm.NextInitializedTick(60, 60, false)
	require.True(t, initialized)
	require.Equal(t, 180, next)
}

func TestTickBitmapClone(t *testing.T) {
	bm := NewTickBitmap()
	bm.Flip(60, 60)
	clone := bm.Clone()
	clone.Flip(120, 60)

	require.True(t, bm.IsInitialized(60, 60))
	require.False(t, bm.IsInitialized(120, 60))
	require.True(t, clone.IsInitialized(120, 60))
}
