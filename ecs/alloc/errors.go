package alloc

import "errors"

var (
	// ErrOutOfMemory indicates an allocator's backing buffer has no block
	// large enough to satisfy the request.
	ErrOutOfMemory = errors.New("alloc: capacity exhausted")
	// ErrMaxInstancesReached indicates a Growable hit its configured
	// max_instances cap and refused to add another underlying allocator.
	ErrMaxInstancesReached = errors.New("alloc: growable allocator reached max instances")
	// ErrInvalidAlignment indicates an alignment argument was not a power
	// of two.
	ErrInvalidAlignment = errors.New("alloc: alignment must be a power of two")
	// ErrInvalidSize indicates a non-positive size was requested.
	ErrInvalidSize = errors.New("alloc: size must be > 0")
	// ErrNotOwned indicates a pointer passed to Owns/Deallocate does not
	// belong to the allocator it was given to.
	ErrNotOwned = errors.New("alloc: pointer not owned by this allocator")
	// ErrDoubleFree indicates Deallocate was called on a block already on
	// the free list.
	ErrDoubleFree = errors.New("alloc: pointer already freed")
)
