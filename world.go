package ecs

import "sync/atomic"

// WorldOption customizes a World at construction time.
type WorldOption func(*World)

// World encapsulates entity identity, archetype storage, component storage,
// resources, the event bus, and the deferred command queue: the full data
// model systems read from and mutate through.
type World struct {
	registry   *EntityRegistry
	archetypes *ArchetypeManager
	storage    StorageProvider
	resources  *resourceMap
	events     *eventBus
	cmdQueue   *CommandBuffer
	queryCache *queryCache
	tick       uint64
	updating   atomic.Bool
}

// NewWorld constructs a world with default registries and providers.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		registry:   NewEntityRegistry(),
		archetypes: NewArchetypeManager(),
		storage:    newStorageProvider(),
		resources:  newResourceContainer(),
		events:     newEventBus(),
		cmdQueue:   NewCommandBuffer(),
		queryCache: newQueryCache(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WithEntityRegistry overrides the default registry.
func WithEntityRegistry(registry *EntityRegistry) WorldOption {
	return func(w *World) {
		if registry != nil {
			w.registry = registry
		}
	}
}

// WithStorageProvider overrides the default storage provider, letting an
// application supply its own ComponentStore management in place of the
// built-in provider (which uses registered strategies, such as ecs/storage's
// dense and shared ones, or a map-backed fallback).
func WithStorageProvider(provider StorageProvider) WorldOption {
	return func(w *World) {
		if provider != nil {
			w.storage = provider
		}
	}
}

// Registry exposes the backing entity registry.
func (w *World) Registry() *EntityRegistry {
	return w.registry
}

// Storage returns the storage provider used by the world.
func (w *World) Storage() StorageProvider {
	return w.storage
}

// Resources exposes the resource container.
func (w *World) Resources() ResourceContainer {
	return w.resources
}

// Events exposes the world's double-buffered event bus.
func (w *World) Events() *eventBus {
	return w.events
}

// Archetypes exposes the archetype manager, mainly for query construction
// and diagnostics.
func (w *World) Archetypes() *ArchetypeManager {
	return w.archetypes
}

// Tick returns the number of completed Update calls.
func (w *World) Tick() uint64 {
	return atomic.LoadUint64(&w.tick)
}

// RegisterComponent allows callers to register component storage strategies
// before a type is first written.
func (w *World) RegisterComponent(t ComponentType, strategy StorageStrategy) error {
	return w.storage.RegisterComponent(t, strategy)
}

// ViewComponent retrieves a component view by type.
func (w *World) ViewComponent(t ComponentType) (ComponentView, bool) {
	return w.storage.View(t)
}

// CreateEntity allocates and immediately commits a new entity, bypassing the
// deferred pipeline. Intended for setup code running outside a schedule;
// systems should prefer SystemContext.Defer(NewCreateEntityCommand(...)) so
// structural changes stay confined to World.Update.
func (w *World) CreateEntity() Entity {
	e := w.registry.Create()
	w.archetypes.UpdateEntityArchetype(e, nil)
	return e
}

// ReserveEntity allocates a slot without committing it. The returned handle
// is stable immediately; World.Exists reports false until a
// CommitReservedEntity command applies.
func (w *World) ReserveEntity() Entity {
	return w.registry.Reserve()
}

// DestroyEntity destroys e immediately, outside the deferred pipeline.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.registry.Destroy(e) {
		return false
	}
	w.archetypes.RemoveEntity(e)
	w.storage.ClearEntity(e)
	return true
}

// Exists reports whether e is a committed, world-visible entity.
func (w *World) Exists(e Entity) bool {
	return w.registry.Exists(e)
}

// IsAlive reports whether e occupies a live slot, reserved or committed.
func (w *World) IsAlive(e Entity) bool {
	return w.registry.IsAlive(e)
}

// EntityCount returns the number of committed entities.
func (w *World) EntityCount() int {
	return w.registry.Count()
}

// Defer enqueues cmd onto the world-level command queue, applied during the
// next Update.
func (w *World) Defer(cmd Command) {
	w.cmdQueue.Push(cmd)
}

// newEntityCommandsFor builds an EntityCommands bound to the world's own
// queue; SystemContext implementations normally bind to their own per-system
// buffer instead (see context.go), merged into this queue at stage
// boundaries.
func (w *World) newEntityCommandsFor(e Entity) *EntityCommands {
	return newEntityCommands(e, w.Defer)
}

// Update applies every queued command single-threaded, in enqueue order,
// then advances the event bus and tick counter. The relative completion
// order of systems that ran concurrently before this call is unspecified;
// only the enqueue order within each system's own buffer is preserved.
func (w *World) Update() error {
	w.updating.Store(true)
	defer w.updating.Store(false)

	commands := w.cmdQueue.Drain()
	for _, cmd := range commands {
		if cmd == nil {
			continue
		}
		if err := cmd.Apply(w); err != nil {
			return err
		}
	}

	w.events.swap()
	atomic.AddUint64(&w.tick, 1)
	return nil
}

// Clear drops every entity, archetype, and queued command, empties the
// component stores of the built-in storage provider, and discards the
// archetype edge graph wholesale. Stores of a provider installed through
// WithStorageProvider, resources, buffered events, and the tick counter are
// kept.
func (w *World) Clear() {
	w.registry = NewEntityRegistry()
	w.archetypes.Clear()
	w.cmdQueue.Drain()
	w.queryCache = newQueryCache()
	if p, ok := w.storage.(*storageProvider); ok {
		p.mu.RLock()
		for _, s := range p.stores {
			s.Clear()
		}
		p.mu.RUnlock()
	}
}

// isTransient reports whether the world is mid-Update, used by AddModule and
// AddSubApp to decide whether to no-op with a warning.
func (w *World) isTransient() bool {
	return w.updating.Load()
}
