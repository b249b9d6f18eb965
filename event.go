package ecs

import (
	"reflect"
	"sync"
)

// EventClearPolicy controls how long an event type's buffers survive.
type EventClearPolicy uint8

const (
	// ClearAutomatic drops a buffer one Update cycle after it stopped being
	// the current buffer (the second Update after its events were emitted):
	// readers get one full tick to observe events emitted during the
	// previous tick before they're gone.
	ClearAutomatic EventClearPolicy = iota
	// ClearManual persists events until ClearEvents[T] is called explicitly.
	ClearManual
)

type eventTypeBuffers struct {
	policy    EventClearPolicy
	current   []any
	previous  []any
	agedOut   []any // what "previous" held before this swap; freed next swap under ClearAutomatic
	lastWrite uint64
}

// eventBus is a double-buffered, per-type event store: writers append to the
// current buffer, World.Update swaps current into previous, and automatic
// buffers age out after two swaps.
type eventBus struct {
	mu      sync.Mutex
	byType  map[reflect.Type]*eventTypeBuffers
	swapGen uint64
}

func newEventBus() *eventBus {
	return &eventBus{byType: make(map[reflect.Type]*eventTypeBuffers)}
}

func (b *eventBus) generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.swapGen
}

func (b *eventBus) bucket(t reflect.Type) *eventTypeBuffers {
	buf, ok := b.byType[t]
	if !ok {
		buf = &eventTypeBuffers{policy: ClearAutomatic}
		b.byType[t] = buf
	}
	return buf
}

func (b *eventBus) swap() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.swapGen++
	for _, buf := range b.byType {
		switch buf.policy {
		case ClearManual:
			buf.previous = append(buf.previous, buf.current...)
		default:
			buf.agedOut = buf.previous
			buf.previous = buf.current
		}
		buf.current = nil
	}
}

// EmitEvent appends value to T's current buffer. ReadEvents returns it
// immediately, and for one more tick after the next Update.
func EmitEvent[T any](w *World, value T) {
	t := reflect.TypeFor[T]()
	w.events.mu.Lock()
	defer w.events.mu.Unlock()
	buf := w.events.bucket(t)
	buf.current = append(buf.current, value)
	buf.lastWrite = w.events.swapGen
}

// SetEventClearPolicy configures how T's buffers are retired. Call before
// any EmitEvent[T] to take effect from the first swap.
func SetEventClearPolicy[T any](w *World, policy EventClearPolicy) {
	t := reflect.TypeFor[T]()
	w.events.mu.Lock()
	defer w.events.mu.Unlock()
	w.events.bucket(t).policy = policy
}

// ClearEvents drops every buffered T event immediately, regardless of policy.
func ClearEvents[T any](w *World) {
	t := reflect.TypeFor[T]()
	w.events.mu.Lock()
	defer w.events.mu.Unlock()
	buf := w.events.bucket(t)
	buf.current, buf.previous, buf.agedOut = nil, nil, nil
}

// ReadEvents returns every T event visible this tick: everything emitted
// during the previous tick (now in "previous") plus anything emitted so far
// during the current one, oldest first.
func ReadEvents[T any](w *World) []T {
	t := reflect.TypeFor[T]()
	w.events.mu.Lock()
	defer w.events.mu.Unlock()
	buf := w.events.bucket(t)
	out := make([]T, 0, len(buf.previous)+len(buf.current))
	for _, v := range buf.previous {
		out = append(out, v.(T))
	}
	for _, v := range buf.current {
		out = append(out, v.(T))
	}
	return out
}

// EventReader tracks a read cursor so a system observes each event exactly
// once across ticks, instead of re-reading ReadEvents' whole rolling window
// every invocation. The cursor is scoped to the bus's swap generation: a
// plain index into ReadEvents' window breaks across swaps, since "previous"
// is replaced wholesale rather than grown, so a window that happens to keep
// the same length across a swap would otherwise hide the new events in it.
type EventReader[T any] struct {
	gen  uint64
	seen int
}

// NewEventReader constructs a reader starting from the current tick.
func NewEventReader[T any]() *EventReader[T] {
	return &EventReader[T]{}
}

// Read returns events not yet seen by this reader and advances its cursor.
func (r *EventReader[T]) Read(w *World) []T {
	if gen := w.events.generation(); gen != r.gen {
		r.gen = gen
		r.seen = 0
	}
	all := ReadEvents[T](w)
	if r.seen > len(all) {
		r.seen = 0
	}
	fresh := all[r.seen:]
	r.seen = len(all)
	out := make([]T, len(fresh))
	copy(out, fresh)
	return out
}
