package ecs

import (
	"fmt"
	"sync"
)

// Entity is a 64-bit handle: an index disambiguated by a generation counter.
// An entity is valid iff its generation matches the slot's current
// generation; destroying an entity bumps the slot's generation so stale
// handles can never alias a reused slot.
type Entity struct {
	index      uint32
	generation uint32
}

// Index returns the backing slot index of the entity.
func (id Entity) Index() uint32 {
	return id.index
}

// Generation returns the generation counter associated with the entity.
func (id Entity) Generation() uint32 {
	return id.generation
}

// IsZero reports whether the identifier is the zero value.
func (id Entity) IsZero() bool {
	return id.index == 0 && id.generation == 0
}

// String renders the entity identifier for debugging purposes.
func (id Entity) String() string {
	if id.IsZero() {
		return "Entity(0:0)"
	}
	return fmt.Sprintf("Entity(%d:%d)", id.index, id.generation)
}

// EntityFromParts constructs an identifier from raw components. Exported for
// storage backends that recover an Entity from a slot index they already
// track (e.g. ecs/storage's dense and shared stores).
func EntityFromParts(index, generation uint32) Entity {
	return Entity{index: index, generation: generation}
}

// NewEntityRegistry constructs an empty registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{}
}

// EntityRegistry coordinates entity allocation, reservation, and recycling.
//
// A slot moves through two states after allocation: reserved (generation
// assigned, not yet visible to World.Exists) and committed (placed into the
// world, visible to World.Exists). Create allocates and commits atomically;
// Reserve allocates without committing, letting a deferred command finish
// the job later.
type EntityRegistry struct {
	mu          sync.Mutex
	generations []uint32
	committed   []bool
	free        []uint32
	aliveCount  uint32
}

// Create issues a new, immediately-committed entity identifier, recycling
// the most recently freed slot first (strict LIFO).
func (r *EntityRegistry) Create() Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.reserveLocked()
	r.committed[id.index] = true
	r.aliveCount++
	return id
}

// Reserve allocates a slot and generation but leaves it uncommitted: World
// reports it as not existing until Commit is called (normally from within a
// deferred command's Apply).
func (r *EntityRegistry) Reserve() Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserveLocked()
}

func (r *EntityRegistry) reserveLocked() Entity {
	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.generations))
		r.generations = append(r.generations, 0)
		r.committed = append(r.committed, false)
	}

	r.generations[index]++
	generation := r.generations[index]
	r.committed[index] = false
	return Entity{index: index, generation: generation}
}

// Commit marks a previously reserved entity as visible, returning false if
// the handle is stale (already destroyed or never reserved).
func (r *EntityRegistry) Commit(id Entity) bool {
	if id.IsZero() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAliveLocked(id) {
		return false
	}
	if !r.committed[id.index] {
		r.committed[id.index] = true
		r.aliveCount++
	}
	return true
}

// Destroy releases the entity identifier, returning true when successful.
// Destroying a reserved-but-uncommitted entity is also valid, since it still
// occupies a slot in the free-list namespace.
func (r *EntityRegistry) Destroy(id Entity) bool {
	if id.IsZero() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAliveLocked(id) {
		return false
	}

	if r.committed[id.index] {
		r.aliveCount--
	}
	r.committed[id.index] = false
	r.generations[id.index]++
	r.free = append(r.free, id.index)
	return true
}

// IsAlive reports whether the identifier refers to a currently allocated
// slot, reserved or committed.
func (r *EntityRegistry) IsAlive(id Entity) bool {
	if id.IsZero() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isAliveLocked(id)
}

// Exists reports whether the identifier refers to a committed, world-visible
// entity.
func (r *EntityRegistry) Exists(id Entity) bool {
	if id.IsZero() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAliveLocked(id) {
		return false
	}
	return r.committed[id.index]
}

// Count returns the number of committed, world-visible entities.
func (r *EntityRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.aliveCount)
}

func (r *EntityRegistry) isAliveLocked(id Entity) bool {
	idx := id.index
	if idx >= uint32(len(r.generations)) {
		return false
	}
	return r.generations[idx] == id.generation
}
