package alloc

import "sync"

// Factory constructs a new underlying allocator instance of the given
// capacity. Growable calls it to add instances on demand.
type Factory func(capacity int) Allocator

// Growable holds a vector of underlying allocator instances, trying each
// in turn before growing. On universal failure it acquires an exclusive
// lock, retries once (another goroutine may have grown while it waited),
// then appends a new instance sized at nextCapacity * growthFactor,
// clamped up to the requested size if that would still be too small.
type Growable struct {
	mu           sync.RWMutex
	factory      Factory
	instances    []Allocator
	nextCapacity int
	growthFactor float64
	maxInstances int // 0 == unbounded
}

// Option configures a Growable at construction time.
type Option func(*Growable)

// WithGrowthFactor overrides the default 2.0 growth factor.
func WithGrowthFactor(f float64) Option {
	return func(g *Growable) { g.growthFactor = f }
}

// WithMaxInstances caps how many underlying allocators Growable will ever
// create; once reached, a universal-failure Allocate returns
// ErrMaxInstancesReached instead of growing further.
func WithMaxInstances(n int) Option {
	return func(g *Growable) { g.maxInstances = n }
}

// NewGrowable constructs a Growable with one initial instance of
// initialCapacity bytes, built by factory.
func NewGrowable(factory Factory, initialCapacity int, opts ...Option) *Growable {
	g := &Growable{
		factory:      factory,
		growthFactor: 2.0,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.instances = []Allocator{factory(initialCapacity)}
	g.nextCapacity = int(float64(initialCapacity) * g.growthFactor)
	return g
}

func (g *Growable) Allocate(size, align int) (Allocation, error) {
	g.mu.RLock()
	for _, inst := range g.instances {
		if a, err := inst.Allocate(size, align); err == nil {
			g.mu.RUnlock()
			return a, nil
		}
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, inst := range g.instances {
		if a, err := inst.Allocate(size, align); err == nil {
			return a, nil
		}
	}
	if g.maxInstances > 0 && len(g.instances) >= g.maxInstances {
		return Allocation{}, ErrMaxInstancesReached
	}
	capacity := g.nextCapacity
	if capacity < size {
		capacity = size
	}
	inst := g.factory(capacity)
	g.instances = append(g.instances, inst)
	g.nextCapacity = int(float64(capacity) * g.growthFactor)
	return inst.Allocate(size, align)
}

// Deallocate routes to whichever underlying instance owns ptr, if that
// instance supports per-allocation freeing.
func (g *Growable) Deallocate(ptr uintptr) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, inst := range g.instances {
		if !inst.Owns(ptr) {
			continue
		}
		d, ok := inst.(Deallocator)
		if !ok {
			return ErrNotOwned
		}
		return d.Deallocate(ptr)
	}
	return ErrNotOwned
}

func (g *Growable) Owns(ptr uintptr) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, inst := range g.instances {
		if inst.Owns(ptr) {
			return true
		}
	}
	return false
}

// Reset resets every instance and drops all but the first, so repeated
// growth during a burst doesn't leave permanently idle instances behind.
func (g *Growable) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, inst := range g.instances {
		inst.Reset()
	}
	if len(g.instances) > 1 {
		g.instances = g.instances[:1]
	}
}

func (g *Growable) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var total Stats
	for _, inst := range g.instances {
		s := inst.Stats()
		total.Allocated += s.Allocated
		total.Freed += s.Freed
		total.InUse += s.InUse
		total.Capacity += s.Capacity
	}
	return total
}

var (
	_ Allocator   = (*Growable)(nil)
	_ Deallocator = (*Growable)(nil)
)
