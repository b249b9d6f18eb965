package ecs

import (
	"time"

	"github.com/ironloom/ecs/ecs/alloc"
)

// systemContext is the concrete SystemContext handed to a running system. It
// owns a private CommandBuffer so concurrently running systems never
// contend on the world-level queue; the scheduler merges every system's
// buffer into the world queue once its stage completes.
type systemContext struct {
	world   *World
	dt      time.Duration
	tick    uint64
	logger  Logger
	local   *CommandBuffer
	scratch *alloc.Growable
}

func newSystemContext(world *World, dt time.Duration, tick uint64, logger Logger, scratch *alloc.Growable) *systemContext {
	return &systemContext{
		world:   world,
		dt:      dt,
		tick:    tick,
		logger:  logger,
		local:   NewCommandBuffer(),
		scratch: scratch,
	}
}

func (c *systemContext) World() *World { return c.world }

func (c *systemContext) TimeDelta() time.Duration { return c.dt }

func (c *systemContext) TickIndex() uint64 { return c.tick }

func (c *systemContext) Logger() Logger { return c.logger }

func (c *systemContext) Defer(cmd Command) { c.local.Push(cmd) }

func (c *systemContext) EntityCommands(e Entity) *EntityCommands {
	return newEntityCommands(e, c.Defer)
}

func (c *systemContext) ReserveEntity() Entity {
	return c.world.ReserveEntity()
}

// FrameAllocator returns the system's own growable frame allocator,
// reclaimed in full once per frame after command merge.
func (c *systemContext) FrameAllocator() alloc.Allocator {
	return c.scratch
}

// drainInto merges the system's local buffer into dst in enqueue order and
// resets the local buffer for reuse.
func (c *systemContext) drainInto(dst *CommandBuffer) {
	for _, cmd := range c.local.Drain() {
		dst.Push(cmd)
	}
}

var _ SystemContext = (*systemContext)(nil)
