package storage

import (
	"fmt"
	"reflect"
	"sync"

	ecs "github.com/ironloom/ecs"
)

type sharedStrategy struct{}

// NewSharedStrategy constructs a storage strategy where entities with equal
// component values reference one interned copy instead of each holding their
// own: many zombies sharing identical base stats pay for one allocation, not
// one per entity. A shared value is immutable from an entity's perspective;
// changing it means Set-ing a new value, not mutating the stored one in
// place, so two entities that happen to share a value can never see each
// other's writes.
func NewSharedStrategy() ecs.StorageStrategy {
	return sharedStrategy{}
}

func (sharedStrategy) Name() string {
	return "shared"
}

func (sharedStrategy) NewStore(t ecs.ComponentType) ecs.ComponentStore {
	return &sharedStore{
		typ:         t,
		entityValue: make(map[ecs.Entity]uint32),
		values:      make(map[uint32]*sharedValue),
		nextID:      1,
	}
}

// sharedValue is one interned component value plus a count of entities
// currently pointing at it; the entry is dropped once the count hits zero.
type sharedValue struct {
	data     any
	refCount int
}

type sharedStore struct {
	mu          sync.RWMutex
	typ         ecs.ComponentType
	entityValue map[ecs.Entity]uint32
	values      map[uint32]*sharedValue
	nextID      uint32
	count       int // entities with the component, not unique values
}

func (s *sharedStore) ComponentType() ecs.ComponentType { return s.typ }

func (s *sharedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *sharedStore) Has(e ecs.Entity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entityValue[e]
	return ok
}

func (s *sharedStore) Get(e ecs.Entity) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.entityValue[e]
	if !ok {
		return nil, false
	}
	v, ok := s.values[id]
	if !ok {
		return nil, false
	}
	return v.data, true
}

func (s *sharedStore) Iterate(fn func(ecs.Entity, any) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for e, id := range s.entityValue {
		v, ok := s.values[id]
		if !ok {
			continue
		}
		if !fn(e, v.data) {
			return
		}
	}
}

func (s *sharedStore) Set(e ecs.Entity, value any) error {
	if e.IsZero() {
		return fmt.Errorf("shared: cannot set zero entity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if oldID, ok := s.entityValue[e]; ok {
		s.releaseLocked(oldID)
	} else {
		s.count++
	}
	s.entityValue[e] = s.internLocked(value)
	return nil
}

func (s *sharedStore) Remove(e ecs.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entityValue[e]
	if !ok {
		return false
	}
	delete(s.entityValue, e)
	s.releaseLocked(id)
	s.count--
	return true
}

func (s *sharedStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityValue = make(map[ecs.Entity]uint32)
	s.values = make(map[uint32]*sharedValue)
	s.count = 0
}

// internLocked returns the id of an existing value equal to value, or
// interns a new one. Deep-equality comparison means this is O(unique
// values) per Set; fine for the stats/tags this strategy targets, not for
// high-cardinality components.
func (s *sharedStore) internLocked(value any) uint32 {
	for id, v := range s.values {
		if reflect.DeepEqual(v.data, value) {
			v.refCount++
			return id
		}
	}
	id := s.nextID
	s.nextID++
	s.values[id] = &sharedValue{data: value, refCount: 1}
	return id
}

func (s *sharedStore) releaseLocked(id uint32) {
	v, ok := s.values[id]
	if !ok {
		return
	}
	v.refCount--
	if v.refCount <= 0 {
		delete(s.values, id)
	}
}

// Stats reports sharing efficiency: how many entities reference how many
// distinct underlying values.
func (s *sharedStore) Stats() SharedStorageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unique := len(s.values)
	ratio := 0.0
	if unique > 0 {
		ratio = float64(s.count) / float64(unique)
	}
	return SharedStorageStats{
		EntityCount:      s.count,
		UniqueValueCount: unique,
		SharingRatio:     ratio,
	}
}

type SharedStorageStats struct {
	EntityCount      int
	UniqueValueCount int
	SharingRatio     float64 // entities per unique value; higher means more sharing
}

var _ ecs.ComponentStore = (*sharedStore)(nil)
