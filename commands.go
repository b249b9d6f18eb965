package ecs

import "fmt"

// Command is implemented by a closed set of variants: every deferred
// mutation the engine supports is one of the constructors below. Application
// code never implements Command directly; it builds commands through
// EntityCommands or the New*Command constructors and hands them to
// SystemContext.Defer.

// NewCreateEntityCommand enqueues a new entity creation. If target is non-nil
// it receives the allocated id when the command applies; the entity is
// allocated and committed in that same step.
func NewCreateEntityCommand(target *Entity) Command {
	return createEntityCommand{target: target}
}

// NewCommitReservedEntityCommand commits a previously reserved entity,
// making it visible to World.Exists.
func NewCommitReservedEntityCommand(id Entity) Command {
	return commitEntityCommand{entity: id}
}

// NewDestroyEntityCommand enqueues an entity deletion.
func NewDestroyEntityCommand(id Entity) Command {
	return destroyEntityCommand{entity: id}
}

// NewAddComponentCommand enqueues a component addition.
func NewAddComponentCommand(id Entity, component ComponentType, value any) Command {
	return addComponentCommand{entity: id, component: component, value: value}
}

// NewRemoveComponentCommand enqueues a component removal.
func NewRemoveComponentCommand(id Entity, component ComponentType) Command {
	return removeComponentCommand{entity: id, component: component}
}

type createEntityCommand struct {
	target *Entity
}

type commitEntityCommand struct {
	entity Entity
}

type destroyEntityCommand struct {
	entity Entity
}

type addComponentCommand struct {
	entity    Entity
	component ComponentType
	value     any
}

type removeComponentCommand struct {
	entity    Entity
	component ComponentType
}

func (c createEntityCommand) Apply(world *World) error {
	id := world.registry.Create()
	world.archetypes.UpdateEntityArchetype(id, nil)
	if c.target != nil {
		*c.target = id
	}
	return nil
}

func (c commitEntityCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: commit zero entity")
	}
	if !world.registry.Commit(c.entity) {
		return fmt.Errorf("ecs: commit stale entity %v", c.entity)
	}
	if _, placed := world.archetypes.ArchetypeOf(c.entity.Index()); !placed {
		world.archetypes.UpdateEntityArchetype(c.entity, nil)
	}
	return nil
}

func (c destroyEntityCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: destroy zero entity")
	}
	if !world.registry.Destroy(c.entity) {
		return fmt.Errorf("ecs: destroy stale entity %v", c.entity)
	}
	world.archetypes.RemoveEntity(c.entity)
	world.storage.ClearEntity(c.entity)
	return nil
}

func (c addComponentCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: add component to zero entity")
	}
	if !world.registry.IsAlive(c.entity) {
		return fmt.Errorf("%w: %v", ErrEntityNotAlive, c.entity)
	}
	store, err := world.storage.EnsureComponent(c.component)
	if err != nil {
		return err
	}
	if err := store.Set(c.entity, c.value); err != nil {
		return err
	}
	id := componentIDFor(c.component, c.value)
	current, _ := world.archetypes.ArchetypeOf(c.entity.Index())
	newTypes := append(append([]ComponentID(nil), currentTypes(current)...), id)
	world.archetypes.MoveEntityOnComponentAdd(c.entity, id, newTypes)
	return nil
}

func (c removeComponentCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: remove component from zero entity")
	}
	if !world.registry.IsAlive(c.entity) {
		return fmt.Errorf("%w: %v", ErrEntityNotAlive, c.entity)
	}
	world.storage.Remove(c.component, c.entity)
	id := componentIDFor(c.component, struct{}{})
	current, _ := world.archetypes.ArchetypeOf(c.entity.Index())
	newTypes := removeID(currentTypes(current), id)
	world.archetypes.MoveEntityOnComponentRemove(c.entity, id, newTypes)
	return nil
}

func currentTypes(a *Archetype) []ComponentID {
	if a == nil {
		return nil
	}
	return a.Types()
}

func removeID(ids []ComponentID, target ComponentID) []ComponentID {
	out := make([]ComponentID, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

var (
	_ Command = createEntityCommand{}
	_ Command = commitEntityCommand{}
	_ Command = destroyEntityCommand{}
	_ Command = addComponentCommand{}
	_ Command = removeComponentCommand{}
)
