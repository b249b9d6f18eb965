package ecs_test

import (
	"testing"

	"github.com/ironloom/ecs"
	"github.com/stretchr/testify/require"
)

type archPosition struct{ X, Y float64 }
type archVelocity struct{ X, Y float64 }

// TestComponentAddRemoveTransitions covers the archetype-transition
// scenario: adding a component moves an entity to the archetype with that
// component added, populating an edge; adding the same component to a
// second entity reuses the cached edge instead of creating a new
// archetype; removing a component moves the entity back, again reusing a
// cached edge.
func TestComponentAddRemoveTransitions(t *testing.T) {
	m := ecs.NewArchetypeManager()
	posID := ecs.ComponentIDOf[archPosition]()
	velID := ecs.ComponentIDOf[archVelocity]()

	e1 := ecs.EntityFromParts(1, 0)
	base := m.UpdateEntityArchetype(e1, []ecs.ComponentID{posID})
	require.Equal(t, []ecs.ComponentID{posID}, base.Types())

	withVel := m.MoveEntityOnComponentAdd(e1, velID, []ecs.ComponentID{posID, velID})
	require.ElementsMatch(t, []ecs.ComponentID{posID, velID}, withVel.Types())
	require.Equal(t, 0, base.Len())
	require.Equal(t, 1, withVel.Len())

	edgeArchetypeID := withVel.ID()

	e2 := ecs.EntityFromParts(2, 0)
	m.UpdateEntityArchetype(e2, []ecs.ComponentID{posID})
	withVel2 := m.MoveEntityOnComponentAdd(e2, velID, []ecs.ComponentID{posID, velID})
	require.Equal(t, edgeArchetypeID, withVel2.ID(), "second add of the same component should reuse the cached edge archetype")
	require.Equal(t, 2, withVel2.Len())

	backToPosOnly := m.MoveEntityOnComponentRemove(e1, velID, []ecs.ComponentID{posID})
	require.Equal(t, base.ID(), backToPosOnly.ID(), "removing the added component should reuse the reverse edge back to the original archetype")
	require.Equal(t, 1, base.Len())
	require.Equal(t, 1, withVel2.Len())

	arch, ok := m.ArchetypeOf(e2.Index())
	require.True(t, ok)
	require.Equal(t, edgeArchetypeID, arch.ID())
}

func TestArchetypeManagerClearDropsAllBindings(t *testing.T) {
	m := ecs.NewArchetypeManager()
	posID := ecs.ComponentIDOf[archPosition]()
	e := ecs.EntityFromParts(1, 0)
	m.UpdateEntityArchetype(e, []ecs.ComponentID{posID})

	m.Clear()

	_, ok := m.ArchetypeOf(e.Index())
	require.False(t, ok)
	require.Equal(t, 0, m.Empty().Len())
}
