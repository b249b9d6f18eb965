package alloc_test

import (
	"testing"

	"github.com/ironloom/ecs/ecs/alloc"
	"github.com/stretchr/testify/require"
)

func TestFrameBumpAndReset(t *testing.T) {
	f := alloc.NewFrame(64)

	a, err := f.Allocate(16, 8)
	require.NoError(t, err)
	require.Len(t, a.Bytes, 16)

	b, err := f.Allocate(16, 8)
	require.NoError(t, err)
	require.NotEqual(t, alloc.Ptr(a), alloc.Ptr(b))

	stats := f.Stats()
	require.EqualValues(t, 32, stats.InUse)
	require.EqualValues(t, 64, stats.Capacity)

	f.Reset()
	require.EqualValues(t, 0, f.Stats().InUse)

	c, err := f.Allocate(64, 1)
	require.NoError(t, err)
	require.Len(t, c.Bytes, 64)
}

func TestFrameRejectsOversizedAllocation(t *testing.T) {
	f := alloc.NewFrame(8)
	_, err := f.Allocate(9, 1)
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
}

func TestFrameRejectsBadAlignment(t *testing.T) {
	f := alloc.NewFrame(64)
	_, err := f.Allocate(4, 3)
	require.ErrorIs(t, err, alloc.ErrInvalidAlignment)
}

func TestFrameOwns(t *testing.T) {
	f := alloc.NewFrame(32)
	other := alloc.NewFrame(32)

	a, err := f.Allocate(8, 4)
	require.NoError(t, err)
	require.True(t, f.Owns(alloc.Ptr(a)))
	require.False(t, other.Owns(alloc.Ptr(a)))
}
