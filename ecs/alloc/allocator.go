// Package alloc implements the memory substrate: a family of
// special-purpose allocators (frame, stack, pool, free-list) sharing one
// contract, plus a Growable wrapper that lets any of them grow past their
// initial capacity. It has no dependency on the root ecs package, so the
// scheduler wires it in rather than the other way around.
package alloc

import "unsafe"

// Allocation is the region of memory handed back by Allocate. Bytes is a
// slice into the owning allocator's backing buffer; AllocatedSize is the
// block's actual footprint, which for Pool may exceed the requested size.
type Allocation struct {
	Bytes         []byte
	AllocatedSize int
}

// Ptr returns the address identifying a's backing memory, the form every
// Owns/Deallocate call in this package expects. Zero-length allocations
// have no address and return 0.
func Ptr(a Allocation) uintptr {
	if len(a.Bytes) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&a.Bytes[0]))
}

// Allocator is the contract every strategy in this package implements
// (spec's memory substrate: "all expose the Allocate(size, align) ->
// {ptr, allocated_size} contract and an Owns(ptr) query").
type Allocator interface {
	Allocate(size, align int) (Allocation, error)
	Owns(ptr uintptr) bool
	Reset()
	Stats() Stats
}

// Deallocator is implemented only by strategies that support freeing a
// single allocation out of order.
type Deallocator interface {
	Deallocate(ptr uintptr) error
}

// Stats are the atomic counters every strategy exposes for live
// observation. Allocated and Freed are cumulative; InUse and Capacity are
// instantaneous.
type Stats struct {
	Allocated uint64
	Freed     uint64
	InUse     uint64
	Capacity  uint64
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func validAlign(align int) bool {
	return align > 0 && align&(align-1) == 0
}
