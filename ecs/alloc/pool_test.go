package alloc_test

import (
	"testing"

	"github.com/ironloom/ecs/ecs/alloc"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocateFreeReuse(t *testing.T) {
	p, err := alloc.NewPool(16, 4)
	require.NoError(t, err)

	a, err := p.Allocate(16, 8)
	require.NoError(t, err)
	b, err := p.Allocate(16, 8)
	require.NoError(t, err)
	require.EqualValues(t, 32, p.Stats().InUse)

	require.NoError(t, p.Deallocate(alloc.Ptr(a)))
	require.EqualValues(t, 16, p.Stats().InUse)

	// freed block is reused rather than drawing from a new slot
	c, err := p.Allocate(16, 8)
	require.NoError(t, err)
	require.Equal(t, alloc.Ptr(a), alloc.Ptr(c))
	_ = b
}

func TestPoolExhaustion(t *testing.T) {
	p, err := alloc.NewPool(16, 2)
	require.NoError(t, err)

	_, err = p.Allocate(16, 8)
	require.NoError(t, err)
	_, err = p.Allocate(16, 8)
	require.NoError(t, err)

	_, err = p.Allocate(16, 8)
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
}

func TestPoolRejectsOversizedBlock(t *testing.T) {
	p, err := alloc.NewPool(16, 4)
	require.NoError(t, err)

	_, err = p.Allocate(32, 8)
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
}

func TestPoolReset(t *testing.T) {
	p, err := alloc.NewPool(16, 4)
	require.NoError(t, err)

	_, err = p.Allocate(16, 8)
	require.NoError(t, err)
	_, err = p.Allocate(16, 8)
	require.NoError(t, err)

	p.Reset()
	require.EqualValues(t, 0, p.Stats().InUse)

	for i := 0; i < 4; i++ {
		_, err := p.Allocate(16, 8)
		require.NoError(t, err)
	}
}
