package alloc

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// flBlock is one contiguous span of the backing buffer, either live or
// free. blocks is always kept ordered by offset and contiguous: every byte
// in [0, len(buf)) belongs to exactly one block.
type flBlock struct {
	offset int
	size   int
	free   bool
}

// FreeList is a general-purpose, best-fit allocator over one buffer.
// Deallocate returns a block to the free list and an O(n) pass merges it
// with any physically adjacent free neighbors, forward then backward, so
// fragmentation doesn't accumulate across alloc/free churn.
type FreeList struct {
	mu        sync.Mutex
	buf       []byte
	blocks    []flBlock
	allocated uint64
	freed     uint64
}

// NewFreeList constructs a FreeList backed by a buffer of capacity bytes.
func NewFreeList(capacity int) *FreeList {
	return &FreeList{
		buf:    make([]byte, capacity),
		blocks: []flBlock{{offset: 0, size: capacity, free: true}},
	}
}

func (f *FreeList) Allocate(size, align int) (Allocation, error) {
	if size <= 0 {
		return Allocation{}, ErrInvalidSize
	}
	if !validAlign(align) {
		return Allocation{}, ErrInvalidAlignment
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	best := -1
	bestWaste := -1
	for i, b := range f.blocks {
		if !b.free {
			continue
		}
		aligned := alignUp(b.offset, align)
		pad := aligned - b.offset
		need := pad + size
		if need > b.size {
			continue
		}
		waste := b.size - need
		if waste == 0 {
			best = i
			bestWaste = 0
			break
		}
		if best == -1 || waste < bestWaste {
			best = i
			bestWaste = waste
		}
	}
	if best == -1 {
		return Allocation{}, ErrOutOfMemory
	}

	b := f.blocks[best]
	aligned := alignUp(b.offset, align)
	pad := aligned - b.offset
	used := pad + size

	replacement := make([]flBlock, 0, 3)
	if pad > 0 {
		replacement = append(replacement, flBlock{offset: b.offset, size: pad, free: true})
	}
	replacement = append(replacement, flBlock{offset: aligned, size: size, free: false})
	if rem := b.size - used; rem > 0 {
		replacement = append(replacement, flBlock{offset: aligned + size, size: rem, free: true})
	}

	tail := append([]flBlock{}, f.blocks[best+1:]...)
	f.blocks = append(append(f.blocks[:best], replacement...), tail...)

	atomic.AddUint64(&f.allocated, uint64(size))
	return Allocation{Bytes: f.buf[aligned : aligned+size], AllocatedSize: size}, nil
}

func (f *FreeList) Deallocate(ptr uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.indexOf(ptr)
	if err != nil {
		return err
	}
	if f.blocks[idx].free {
		return ErrDoubleFree
	}
	f.blocks[idx].free = true
	atomic.AddUint64(&f.freed, uint64(f.blocks[idx].size))
	f.coalesce(idx)
	return nil
}

// coalesce merges blocks[idx] with its free neighbors, forward then
// backward, matching the order the memory substrate's free-list strategy
// specifies.
func (f *FreeList) coalesce(idx int) {
	if idx+1 < len(f.blocks) && f.blocks[idx+1].free {
		f.blocks[idx].size += f.blocks[idx+1].size
		f.blocks = append(f.blocks[:idx+1], f.blocks[idx+2:]...)
	}
	if idx > 0 && f.blocks[idx-1].free {
		f.blocks[idx-1].size += f.blocks[idx].size
		f.blocks = append(f.blocks[:idx], f.blocks[idx+1:]...)
	}
}

func (f *FreeList) indexOf(ptr uintptr) (int, error) {
	if len(f.buf) == 0 {
		return 0, ErrNotOwned
	}
	base := uintptr(unsafe.Pointer(&f.buf[0]))
	if ptr < base || ptr >= base+uintptr(len(f.buf)) {
		return 0, ErrNotOwned
	}
	offset := int(ptr - base)
	for i, b := range f.blocks {
		if offset >= b.offset && offset < b.offset+b.size {
			if b.free {
				return 0, ErrDoubleFree
			}
			return i, nil
		}
	}
	return 0, ErrNotOwned
}

func (f *FreeList) Owns(ptr uintptr) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.indexOf(ptr)
	return err == nil
}

func (f *FreeList) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	atomic.AddUint64(&f.freed, atomic.LoadUint64(&f.allocated)-atomic.LoadUint64(&f.freed))
	f.blocks = []flBlock{{offset: 0, size: len(f.buf), free: true}}
}

func (f *FreeList) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	var inUse int
	for _, b := range f.blocks {
		if !b.free {
			inUse += b.size
		}
	}
	return Stats{
		Allocated: atomic.LoadUint64(&f.allocated),
		Freed:     atomic.LoadUint64(&f.freed),
		InUse:     uint64(inUse),
		Capacity:  uint64(len(f.buf)),
	}
}

var (
	_ Allocator   = (*FreeList)(nil)
	_ Deallocator = (*FreeList)(nil)
)
