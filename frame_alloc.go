package ecs

import "unsafe"

// MakeFrameAllocator carves a zeroed *T out of ctx's per-system frame
// allocator, scoped to the current frame: the value is only valid until the
// scheduler resets the allocator after command merge.
func MakeFrameAllocator[T any](ctx SystemContext) (*T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))
	if size == 0 {
		size = 1
	}
	a, err := ctx.FrameAllocator().Allocate(size, align)
	if err != nil {
		return nil, err
	}
	clear(a.Bytes)
	return (*T)(unsafe.Pointer(&a.Bytes[0])), nil
}
