package ecs

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// ArchetypeID is a stable index into the archetype arena. Archetypes
// reference each other only through these indices, never raw pointers, so
// the arena can grow and archetypes can be dropped and recreated without
// invalidating any handle held elsewhere.
type ArchetypeID uint32

type archetypeEdgeKey struct {
	comp ComponentID
	add  bool
}

// Archetype is the storage unit for every entity sharing one exact set of
// component types.
type Archetype struct {
	id         ArchetypeID
	types      []ComponentID
	members    []Entity
	index      map[uint32]int // entity index -> position in members
	edges      map[archetypeEdgeKey]ArchetypeID
	generation uint64
}

// Types returns the archetype's sorted, duplicate-free component vector.
func (a *Archetype) Types() []ComponentID { return a.types }

// Len reports the number of member entities.
func (a *Archetype) Len() int { return len(a.members) }

// ID returns the archetype's stable arena index.
func (a *Archetype) ID() ArchetypeID { return a.id }

// Generation returns the archetype's structural-change counter.
func (a *Archetype) Generation() uint64 { return atomic.LoadUint64(&a.generation) }

// Has reports whether the archetype's type vector includes id.
func (a *Archetype) Has(id ComponentID) bool { return containsID(a.types, id) }

// Entities returns the archetype's member list. Callers must not mutate it.
func (a *Archetype) Entities() []Entity { return a.members }

func newArchetype(id ArchetypeID, types []ComponentID) *Archetype {
	return &Archetype{
		id:    id,
		types: types,
		index: make(map[uint32]int),
		edges: make(map[archetypeEdgeKey]ArchetypeID),
	}
}

func (a *Archetype) insert(e Entity) int {
	pos := len(a.members)
	a.members = append(a.members, e)
	a.index[e.Index()] = pos
	atomic.AddUint64(&a.generation, 1)
	return pos
}

// remove swaps the last member into e's slot and pops, returning the entity
// that now occupies e's old slot (the zero Entity if e was the last member).
func (a *Archetype) remove(e Entity) (moved Entity, ok bool) {
	pos, exists := a.index[e.Index()]
	if !exists {
		return Entity{}, false
	}
	last := len(a.members) - 1
	if pos != last {
		a.members[pos] = a.members[last]
		a.index[a.members[pos].Index()] = pos
		moved = a.members[pos]
	}
	a.members = a.members[:last]
	delete(a.index, e.Index())
	atomic.AddUint64(&a.generation, 1)
	return moved, true
}

func archetypeKey(ids []ComponentID) string {
	b := make([]byte, len(ids)*4)
	for i, id := range ids {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(id))
	}
	return string(b)
}

// ArchetypeManager owns every archetype created during a world's lifetime
// and the entity->archetype binding. Archetypes are created lazily and
// never destroyed; edges amortize single-component transitions to O(1).
type ArchetypeManager struct {
	mu                sync.RWMutex
	arena             []*Archetype
	byKey             map[string]ArchetypeID
	entityArchetype   map[uint32]ArchetypeID
	structuralVersion uint64
}

// NewArchetypeManager constructs a manager with a pre-created empty
// archetype: an entity with no components still needs somewhere to live.
func NewArchetypeManager() *ArchetypeManager {
	m := &ArchetypeManager{
		byKey:           make(map[string]ArchetypeID),
		entityArchetype: make(map[uint32]ArchetypeID),
	}
	empty := newArchetype(0, nil)
	m.arena = append(m.arena, empty)
	m.byKey[archetypeKey(nil)] = 0
	return m
}

// StructuralVersion returns the monotonically increasing counter used to
// invalidate query caches.
func (m *ArchetypeManager) StructuralVersion() uint64 {
	return atomic.LoadUint64(&m.structuralVersion)
}

func (m *ArchetypeManager) bumpVersion() {
	atomic.AddUint64(&m.structuralVersion, 1)
}

// Empty returns the always-present archetype with no component types.
func (m *ArchetypeManager) Empty() *Archetype {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.arena[0]
}

// Archetype looks up an archetype by its stable id.
func (m *ArchetypeManager) Archetype(id ArchetypeID) *Archetype {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.arena[id]
}

// ArchetypeOf returns the archetype currently holding entityIndex, if any.
func (m *ArchetypeManager) ArchetypeOf(entityIndex uint32) (*Archetype, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.entityArchetype[entityIndex]
	if !ok {
		return nil, false
	}
	return m.arena[id], true
}

// All returns every archetype in the arena, including the empty one.
func (m *ArchetypeManager) All() []*Archetype {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Archetype, len(m.arena))
	copy(out, m.arena)
	return out
}

// getOrCreateLocked resolves the archetype for a sorted, de-duplicated type
// vector, creating it (and bumping the structural version) on first use.
func (m *ArchetypeManager) getOrCreateLocked(types []ComponentID) *Archetype {
	key := archetypeKey(types)
	if id, ok := m.byKey[key]; ok {
		return m.arena[id]
	}
	id := ArchetypeID(len(m.arena))
	arch := newArchetype(id, types)
	m.arena = append(m.arena, arch)
	m.byKey[key] = id
	m.bumpVersion()
	return arch
}

// UpdateEntityArchetype removes e from its current archetype (if any) and
// inserts it into the archetype matching types, creating that archetype if
// it does not already exist. Used for bulk/initial placement where no
// single-component edge applies.
func (m *ArchetypeManager) UpdateEntityArchetype(e Entity, types []ComponentID) *Archetype {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeFromCurrentLocked(e)
	target := m.getOrCreateLocked(sortedIDs(types))
	target.insert(e)
	m.entityArchetype[e.Index()] = target.id
	m.bumpVersion()
	return target
}

// MoveEntityOnComponentAdd performs a single-component add transition,
// consulting and populating the edge cache.
func (m *ArchetypeManager) MoveEntityOnComponentAdd(e Entity, added ComponentID, newTypes []ComponentID) *Archetype {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.currentLocked(e)
	key := archetypeEdgeKey{comp: added, add: true}
	if targetID, ok := current.edges[key]; ok {
		target := m.arena[targetID]
		m.moveLocked(e, current, target)
		return target
	}

	target := m.getOrCreateLocked(sortedIDs(newTypes))
	current.edges[key] = target.id
	target.edges[archetypeEdgeKey{comp: added, add: false}] = current.id
	m.moveLocked(e, current, target)
	return target
}

// MoveEntityOnComponentRemove performs a single-component remove transition,
// symmetric with MoveEntityOnComponentAdd.
func (m *ArchetypeManager) MoveEntityOnComponentRemove(e Entity, removed ComponentID, newTypes []ComponentID) *Archetype {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.currentLocked(e)
	key := archetypeEdgeKey{comp: removed, add: false}
	if targetID, ok := current.edges[key]; ok {
		target := m.arena[targetID]
		m.moveLocked(e, current, target)
		return target
	}

	target := m.getOrCreateLocked(sortedIDs(newTypes))
	current.edges[key] = target.id
	target.edges[archetypeEdgeKey{comp: removed, add: true}] = current.id
	m.moveLocked(e, current, target)
	return target
}

// RemoveEntity drops e from its current archetype entirely, dropping the
// entity-to-archetype binding.
func (m *ArchetypeManager) RemoveEntity(e Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeFromCurrentLocked(e)
	m.bumpVersion()
}

func (m *ArchetypeManager) currentLocked(e Entity) *Archetype {
	id, ok := m.entityArchetype[e.Index()]
	if !ok {
		return m.arena[0]
	}
	return m.arena[id]
}

func (m *ArchetypeManager) removeFromCurrentLocked(e Entity) {
	id, ok := m.entityArchetype[e.Index()]
	if !ok {
		return
	}
	m.arena[id].remove(e)
	delete(m.entityArchetype, e.Index())
}

func (m *ArchetypeManager) moveLocked(e Entity, from, to *Archetype) {
	from.remove(e)
	to.insert(e)
	m.entityArchetype[e.Index()] = to.id
	m.bumpVersion()
}

// Match returns every non-empty archetype whose type vector is a superset of
// with and disjoint from without. Both slices must already be sorted and
// de-duplicated.
func (m *ArchetypeManager) Match(with, without []ComponentID) []*Archetype {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Archetype
	for _, arch := range m.arena {
		if len(arch.members) == 0 {
			continue
		}
		if !isSupersetSorted(arch.types, with) {
			continue
		}
		if !isDisjointSorted(arch.types, without) {
			continue
		}
		out = append(out, arch)
	}
	return out
}

// Clear drops every archetype and binding. This is the only point at which
// the edge graph as a whole is allowed to go stale: every edge-holding
// archetype is discarded together, so no edge ever dangles.
func (m *ArchetypeManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	empty := newArchetype(0, nil)
	m.arena = []*Archetype{empty}
	m.byKey = map[string]ArchetypeID{archetypeKey(nil): 0}
	m.entityArchetype = make(map[uint32]ArchetypeID)
	m.bumpVersion()
}
