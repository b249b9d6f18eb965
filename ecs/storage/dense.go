package storage

import (
	"fmt"

	ecs "github.com/ironloom/ecs"
)

type denseStrategy struct{}

// NewDenseStrategy constructs a dense, slot-indexed storage strategy: O(1)
// get/set/remove, one entry per reserved entity index, generation-checked
// against stale handles.
func NewDenseStrategy() ecs.StorageStrategy {
	return denseStrategy{}
}

func (denseStrategy) Name() string {
	return "dense"
}

func (denseStrategy) NewStore(t ecs.ComponentType) ecs.ComponentStore {
	return &denseStore{typ: t}
}

type denseStore struct {
	typ   ecs.ComponentType
	slots []denseSlot
	count int
}

type denseSlot struct {
	generation uint32
	value      any
	occupied   bool
}

func (s *denseStore) ComponentType() ecs.ComponentType {
	return s.typ
}

func (s *denseStore) Len() int {
	return s.count
}

func (s *denseStore) Has(e ecs.Entity) bool {
	idx := e.Index()
	if int(idx) >= len(s.slots) {
		return false
	}
	slot := s.slots[int(idx)]
	return slot.occupied && slot.generation == e.Generation()
}

func (s *denseStore) Get(e ecs.Entity) (any, bool) {
	if !s.Has(e) {
		return nil, false
	}
	slot := s.slots[int(e.Index())]
	return slot.value, true
}

func (s *denseStore) Iterate(fn func(ecs.Entity, any) bool) {
	for idx, slot := range s.slots {
		if !slot.occupied {
			continue
		}
		e := ecs.EntityFromParts(uint32(idx), slot.generation)
		if !fn(e, slot.value) {
			return
		}
	}
}

func (s *denseStore) Set(e ecs.Entity, value any) error {
	if e.IsZero() {
		return fmt.Errorf("dense: cannot set zero entity")
	}
	s.ensureCapacity(int(e.Index()) + 1)
	slot := &s.slots[int(e.Index())]
	if !slot.occupied {
		s.count++
	}
	slot.occupied = true
	slot.generation = e.Generation()
	slot.value = value
	return nil
}

func (s *denseStore) Remove(e ecs.Entity) bool {
	if !s.Has(e) {
		return false
	}
	slot := &s.slots[int(e.Index())]
	slot.occupied = false
	slot.value = nil
	s.count--
	return true
}

func (s *denseStore) Clear() {
	for i := range s.slots {
		s.slots[i] = denseSlot{}
	}
	s.count = 0
}

func (s *denseStore) ensureCapacity(size int) {
	if size <= len(s.slots) {
		return
	}
	diff := size - len(s.slots)
	s.slots = append(s.slots, make([]denseSlot, diff)...)
}

var _ ecs.ComponentStore = (*denseStore)(nil)
