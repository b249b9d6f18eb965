package ecs_test

import (
	"testing"

	"github.com/ironloom/ecs"
	"github.com/stretchr/testify/require"
)

type qPosition struct{ X, Y float64 }
type qVelocity struct{ X, Y float64 }
type qTag struct{}

func spawnWith(t *testing.T, w *ecs.World, comps map[ecs.ComponentType]any) ecs.Entity {
	t.Helper()
	id := w.CreateEntity()
	for ct, value := range comps {
		w.Defer(ecs.NewAddComponentCommand(id, ct, value))
	}
	require.NoError(t, w.Update())
	return id
}

func TestQuery2CollectsMatchingEntities(t *testing.T) {
	w := ecs.NewWorld()
	posType := ecs.ComponentTypeOf[qPosition]()
	velType := ecs.ComponentTypeOf[qVelocity]()

	withVel := spawnWith(t, w, map[ecs.ComponentType]any{
		posType: qPosition{X: 1, Y: 1},
		velType: qVelocity{X: 2, Y: 2},
	})
	spawnWith(t, w, map[ecs.ComponentType]any{
		posType: qPosition{X: 3, Y: 3},
	})

	rows := ecs.NewQuery2[qPosition, qVelocity]().Collect(w)
	require.Len(t, rows, 1)
	require.Equal(t, withVel, rows[0].Entity)
	require.Equal(t, qVelocity{X: 2, Y: 2}, rows[0].B)
}

func TestQuery1WithoutExcludesEntities(t *testing.T) {
	w := ecs.NewWorld()
	posType := ecs.ComponentTypeOf[qPosition]()
	tagType := ecs.ComponentTypeOf[qTag]()

	spawnWith(t, w, map[ecs.ComponentType]any{
		posType: qPosition{X: 1},
		tagType: qTag{},
	})
	untagged := spawnWith(t, w, map[ecs.ComponentType]any{
		posType: qPosition{X: 2},
	})

	rows := ecs.NewQuery1[qPosition]().Without(tagType).Collect(w)
	require.Len(t, rows, 1)
	require.Equal(t, untagged, rows[0].Entity)
}

func TestQueryCacheInvalidatedByStructuralChange(t *testing.T) {
	w := ecs.NewWorld()
	posType := ecs.ComponentTypeOf[qPosition]()
	ids := []ecs.ComponentID{ecs.ComponentIDOf[qPosition]()}

	require.Empty(t, ecs.NewQuery1[qPosition]().Collect(w))
	require.True(t, w.ValidateQueryState(ids, nil), "first Collect should have populated the cache")

	spawnWith(t, w, map[ecs.ComponentType]any{posType: qPosition{X: 9}})

	require.False(t, w.ValidateQueryState(ids, nil), "archetype graph changed, cache entry should be stale")
	require.Len(t, ecs.NewQuery1[qPosition]().Collect(w), 1)
}

func TestSeqAdaptersComposeWithQueryValues(t *testing.T) {
	w := ecs.NewWorld()
	posType := ecs.ComponentTypeOf[qPosition]()

	for i := 0; i < 5; i++ {
		spawnWith(t, w, map[ecs.ComponentType]any{posType: qPosition{X: float64(i)}})
	}

	isEven := ecs.FilterSeq(ecs.NewQuery1[qPosition]().Values(w), func(p qPosition) bool {
		return int(p.X)%2 == 0
	})
	evens := ecs.CollectSeq(ecs.MapSeq(isEven, func(p qPosition) float64 { return p.X }))
	require.ElementsMatch(t, []float64{0, 2, 4}, evens)

	sum := ecs.FoldSeq(ecs.MapSeq(ecs.NewQuery1[qPosition]().Values(w), func(p qPosition) float64 { return p.X }), 0.0, func(acc, x float64) float64 { return acc + x })
	require.Equal(t, 10.0, sum)
}
