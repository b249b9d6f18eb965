package ecs

// EntityCommands is a fluent builder for deferred, per-entity mutations.
// Every method enqueues a Command onto the owning SystemContext's local
// queue and returns the builder so calls chain; nothing observable happens
// until World.Update applies the queue.
type EntityCommands struct {
	entity  Entity
	enqueue func(Command)
}

func newEntityCommands(e Entity, enqueue func(Command)) *EntityCommands {
	return &EntityCommands{entity: e, enqueue: enqueue}
}

// Entity returns the handle this builder targets. Valid immediately, even
// though the mutations queued against it have not yet applied.
func (c *EntityCommands) Entity() Entity {
	return c.entity
}

// Add queues a component add/overwrite using the component's static type.
func Add[T any](c *EntityCommands, value T) *EntityCommands {
	ComponentIDOf[T]() // ensure registration before the command ever applies
	c.enqueue(NewAddComponentCommand(c.entity, ComponentTypeOf[T](), value))
	return c
}

// Remove queues a component removal using the component's static type.
func Remove[T any](c *EntityCommands) *EntityCommands {
	c.enqueue(NewRemoveComponentCommand(c.entity, ComponentTypeOf[T]()))
	return c
}

// Destroy queues entity destruction.
func (c *EntityCommands) Destroy() {
	c.enqueue(NewDestroyEntityCommand(c.entity))
}

// Commit queues commitment of a reserved entity, making it visible to
// World.Exists once the command applies.
func (c *EntityCommands) Commit() {
	c.enqueue(NewCommitReservedEntityCommand(c.entity))
}

// AddComponent queues a component add through World directly, bypassing a
// SystemContext. Intended for application setup code that mutates a World
// between schedule runs, where immediate application is also legal; see
// SetComponentNow for the non-deferred variant.
func AddComponent[T any](w *World, e Entity, value T) {
	w.cmdQueue.Push(NewAddComponentCommand(e, ComponentTypeOf[T](), value))
}

// RemoveComponent queues a component removal through World directly.
func RemoveComponent[T any](w *World, e Entity) {
	w.cmdQueue.Push(NewRemoveComponentCommand(e, ComponentTypeOf[T]()))
}

// GetComponent reads a component's current value for e. Safe to call at any
// time; reflects the last applied state, not any not-yet-applied deferred
// writes.
func GetComponent[T any](w *World, e Entity) (T, bool) {
	var zero T
	view, ok := w.storage.View(ComponentTypeOf[T]())
	if !ok {
		return zero, false
	}
	v, ok := view.Get(e)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// HasComponent reports whether e currently carries a component of type T.
func HasComponent[T any](w *World, e Entity) bool {
	view, ok := w.storage.View(ComponentTypeOf[T]())
	if !ok {
		return false
	}
	return view.Has(e)
}

// SetComponentNow writes a component value immediately, without going
// through the deferred pipeline, and moves the entity's archetype in place.
// Structural changes (add/remove) during system execution go through the
// deferred pipeline instead; SetComponentNow is for single-threaded setup
// code and tests, and for systems mutating a component they already
// declared a Write access to (no archetype move needed since the type set
// is unchanged).
func SetComponentNow(w *World, e Entity, ct ComponentType, value any) error {
	store, err := w.storage.EnsureComponent(ct)
	if err != nil {
		return err
	}
	had := store.Has(e)
	if err := store.Set(e, value); err != nil {
		return err
	}
	if !had {
		id := componentIDFor(ct, value)
		current, _ := w.archetypes.ArchetypeOf(e.Index())
		newTypes := append(append([]ComponentID(nil), currentTypes(current)...), id)
		w.archetypes.MoveEntityOnComponentAdd(e, id, newTypes)
	}
	return nil
}
