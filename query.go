package ecs

import (
	"iter"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// optionalFetcher is implemented by Opt[T], letting the fixed-arity Query
// types detect an optional fetch slot without a second type parameter.
type optionalFetcher interface {
	fetchFrom(w *World, e Entity) any
	componentType() ComponentType
}

// Opt wraps a fetch type to mark it optional: the archetype filter does not
// require the component's presence, and Ok reports whether it was found.
type Opt[T any] struct {
	Value T
	Ok    bool
}

func (Opt[T]) componentType() ComponentType { return ComponentTypeOf[T]() }

func (Opt[T]) fetchFrom(w *World, e Entity) any {
	view, ok := w.storage.View(ComponentTypeOf[T]())
	if !ok {
		return Opt[T]{}
	}
	v, has := view.Get(e)
	if !has {
		return Opt[T]{}
	}
	return Opt[T]{Value: v.(T), Ok: true}
}

func fetchValue[A any](w *World, e Entity) (A, bool) {
	var zero A
	if of, ok := any(zero).(optionalFetcher); ok {
		return of.fetchFrom(w, e).(A), true
	}
	view, ok := w.storage.View(ComponentTypeOf[A]())
	if !ok {
		return zero, false
	}
	v, has := view.Get(e)
	if !has {
		return zero, false
	}
	return v.(A), true
}

func declaredTypeOf[A any]() (ComponentType, bool) {
	var zero A
	if of, ok := any(zero).(optionalFetcher); ok {
		return of.componentType(), false // not required for archetype matching
	}
	return ComponentTypeOf[A](), true
}

// queryCacheEntry memoizes the archetype set matching one (with, without)
// signature, valid only while the archetype manager's structural version has
// not advanced.
type queryCacheEntry struct {
	archetypes []*Archetype
	version    uint64
}

type queryCache struct {
	mu      sync.Mutex
	entries map[string]*queryCacheEntry
}

func newQueryCache() *queryCache {
	return &queryCache{entries: make(map[string]*queryCacheEntry)}
}

func querySignature(with, without []ComponentID) string {
	var b strings.Builder
	for _, id := range with {
		b.WriteString(strconv.FormatUint(uint64(id), 10))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, id := range without {
		b.WriteString(strconv.FormatUint(uint64(id), 10))
		b.WriteByte(',')
	}
	return b.String()
}

// TryGetQueryCache reports the cached archetype list for the given signature
// if the archetype graph has not changed since it was built. Exposed so
// tests can exercise cache transparency directly.
func (w *World) TryGetQueryCache(with, without []ComponentID) ([]*Archetype, bool) {
	sig := querySignature(with, without)
	version := w.archetypes.StructuralVersion()

	w.queryCache.mu.Lock()
	defer w.queryCache.mu.Unlock()
	entry, ok := w.queryCache.entries[sig]
	if !ok || entry.version != version {
		return nil, false
	}
	return entry.archetypes, true
}

// ValidateQueryState reports whether a cached entry for the signature would
// currently be considered fresh, without forcing a rebuild.
func (w *World) ValidateQueryState(with, without []ComponentID) bool {
	_, ok := w.TryGetQueryCache(with, without)
	return ok
}

func (w *World) matchArchetypes(with, without []ComponentID) []*Archetype {
	sig := querySignature(with, without)
	version := w.archetypes.StructuralVersion()

	w.queryCache.mu.Lock()
	entry, ok := w.queryCache.entries[sig]
	if ok && entry.version == version {
		result := entry.archetypes
		w.queryCache.mu.Unlock()
		return result
	}
	w.queryCache.mu.Unlock()

	matched := w.archetypes.Match(with, without)
	w.queryCache.mu.Lock()
	w.queryCache.entries[sig] = &queryCacheEntry{archetypes: matched, version: version}
	w.queryCache.mu.Unlock()
	return matched
}

func toSortedIDs(types []ComponentType) []ComponentID {
	ids := make([]ComponentID, 0, len(types))
	for _, t := range types {
		ids = append(ids, componentIDFor(t, struct{}{}))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return dedupSorted(ids)
}

// Row1 is one result row of a one-component query.
type Row1[A any] struct {
	Entity Entity
	A      A
}

// Query1 selects every entity carrying component type A.
type Query1[A any] struct {
	extraWith []ComponentType
	without   []ComponentType
}

// NewQuery1 constructs a query fetching component A.
func NewQuery1[A any]() *Query1[A] { return &Query1[A]{} }

func (q *Query1[A]) With(types ...ComponentType) *Query1[A] {
	q.extraWith = append(q.extraWith, types...)
	return q
}

func (q *Query1[A]) Without(types ...ComponentType) *Query1[A] {
	q.without = append(q.without, types...)
	return q
}

func (q *Query1[A]) withIDs() []ComponentID {
	with := append([]ComponentType(nil), q.extraWith...)
	if ct, required := declaredTypeOf[A](); required {
		with = append(with, ct)
	}
	return toSortedIDs(with)
}

// All returns a lazy sequence of result rows matching the query.
func (q *Query1[A]) All(w *World) iter.Seq2[Entity, Row1[A]] {
	withIDs := q.withIDs()
	withoutIDs := toSortedIDs(q.without)
	archetypes := w.matchArchetypes(withIDs, withoutIDs)
	return func(yield func(Entity, Row1[A]) bool) {
		for _, arch := range archetypes {
			for _, e := range arch.Entities() {
				a, ok := fetchValue[A](w, e)
				if !ok {
					continue
				}
				if !yield(e, Row1[A]{Entity: e, A: a}) {
					return
				}
			}
		}
	}
}

// Values drops the entity handle, useful for chaining into the value-only
// lazy adapters below.
func (q *Query1[A]) Values(w *World) iter.Seq[A] {
	return func(yield func(A) bool) {
		for _, row := range q.All(w) {
			if !yield(row.A) {
				return
			}
		}
	}
}

// Collect materializes every matching row.
func (q *Query1[A]) Collect(w *World) []Row1[A] {
	var out []Row1[A]
	for _, row := range q.All(w) {
		out = append(out, row)
	}
	return out
}

// Row2 is one result row of a two-component query.
type Row2[A, B any] struct {
	Entity Entity
	A      A
	B      B
}

// Query2 selects every entity carrying component types A and B.
type Query2[A, B any] struct {
	extraWith []ComponentType
	without   []ComponentType
}

func NewQuery2[A, B any]() *Query2[A, B] { return &Query2[A, B]{} }

func (q *Query2[A, B]) With(types ...ComponentType) *Query2[A, B] {
	q.extraWith = append(q.extraWith, types...)
	return q
}

func (q *Query2[A, B]) Without(types ...ComponentType) *Query2[A, B] {
	q.without = append(q.without, types...)
	return q
}

func (q *Query2[A, B]) withIDs() []ComponentID {
	with := append([]ComponentType(nil), q.extraWith...)
	if ct, required := declaredTypeOf[A](); required {
		with = append(with, ct)
	}
	if ct, required := declaredTypeOf[B](); required {
		with = append(with, ct)
	}
	return toSortedIDs(with)
}

func (q *Query2[A, B]) All(w *World) iter.Seq2[Entity, Row2[A, B]] {
	withIDs := q.withIDs()
	withoutIDs := toSortedIDs(q.without)
	archetypes := w.matchArchetypes(withIDs, withoutIDs)
	return func(yield func(Entity, Row2[A, B]) bool) {
		for _, arch := range archetypes {
			for _, e := range arch.Entities() {
				a, ok := fetchValue[A](w, e)
				if !ok {
					continue
				}
				b, ok := fetchValue[B](w, e)
				if !ok {
					continue
				}
				if !yield(e, Row2[A, B]{Entity: e, A: a, B: b}) {
					return
				}
			}
		}
	}
}

func (q *Query2[A, B]) Collect(w *World) []Row2[A, B] {
	var out []Row2[A, B]
	for _, row := range q.All(w) {
		out = append(out, row)
	}
	return out
}

// Row3 is one result row of a three-component query.
type Row3[A, B, C any] struct {
	Entity Entity
	A      A
	B      B
	C      C
}

// Query3 selects every entity carrying component types A, B, and C.
type Query3[A, B, C any] struct {
	extraWith []ComponentType
	without   []ComponentType
}

func NewQuery3[A, B, C any]() *Query3[A, B, C] { return &Query3[A, B, C]{} }

func (q *Query3[A, B, C]) With(types ...ComponentType) *Query3[A, B, C] {
	q.extraWith = append(q.extraWith, types...)
	return q
}

func (q *Query3[A, B, C]) Without(types ...ComponentType) *Query3[A, B, C] {
	q.without = append(q.without, types...)
	return q
}

func (q *Query3[A, B, C]) withIDs() []ComponentID {
	with := append([]ComponentType(nil), q.extraWith...)
	if ct, required := declaredTypeOf[A](); required {
		with = append(with, ct)
	}
	if ct, required := declaredTypeOf[B](); required {
		with = append(with, ct)
	}
	if ct, required := declaredTypeOf[C](); required {
		with = append(with, ct)
	}
	return toSortedIDs(with)
}

func (q *Query3[A, B, C]) All(w *World) iter.Seq2[Entity, Row3[A, B, C]] {
	withIDs := q.withIDs()
	withoutIDs := toSortedIDs(q.without)
	archetypes := w.matchArchetypes(withIDs, withoutIDs)
	return func(yield func(Entity, Row3[A, B, C]) bool) {
		for _, arch := range archetypes {
			for _, e := range arch.Entities() {
				a, ok := fetchValue[A](w, e)
				if !ok {
					continue
				}
				b, ok := fetchValue[B](w, e)
				if !ok {
					continue
				}
				c, ok := fetchValue[C](w, e)
				if !ok {
					continue
				}
				if !yield(e, Row3[A, B, C]{Entity: e, A: a, B: b, C: c}) {
					return
				}
			}
		}
	}
}

func (q *Query3[A, B, C]) Collect(w *World) []Row3[A, B, C] {
	var out []Row3[A, B, C]
	for _, row := range q.All(w) {
		out = append(out, row)
	}
	return out
}

// --- Lazy adapters over iter.Seq, composable with Query*.Values ---

// FilterSeq keeps only elements satisfying pred.
func FilterSeq[T any](seq iter.Seq[T], pred func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if pred(v) && !yield(v) {
				return
			}
		}
	}
}

// MapSeq transforms each element.
func MapSeq[T, U any](seq iter.Seq[T], fn func(T) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for v := range seq {
			if !yield(fn(v)) {
				return
			}
		}
	}
}

// EnumerateSeq pairs each element with its zero-based position.
func EnumerateSeq[T any](seq iter.Seq[T]) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		i := 0
		for v := range seq {
			if !yield(i, v) {
				return
			}
			i++
		}
	}
}

// TakeSeq stops after n elements.
func TakeSeq[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if n <= 0 {
			return
		}
		count := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

// SkipSeq drops the first n elements.
func SkipSeq[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		skipped := 0
		for v := range seq {
			if skipped < n {
				skipped++
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// FoldSeq reduces seq to a single accumulator value.
func FoldSeq[T, Acc any](seq iter.Seq[T], init Acc, fn func(Acc, T) Acc) Acc {
	acc := init
	for v := range seq {
		acc = fn(acc, v)
	}
	return acc
}

// AnySeq reports whether any element satisfies pred, short-circuiting.
func AnySeq[T any](seq iter.Seq[T], pred func(T) bool) bool {
	for v := range seq {
		if pred(v) {
			return true
		}
	}
	return false
}

// AllSeq reports whether every element satisfies pred, short-circuiting.
func AllSeq[T any](seq iter.Seq[T], pred func(T) bool) bool {
	for v := range seq {
		if !pred(v) {
			return false
		}
	}
	return true
}

// FindFirstSeq returns the first element satisfying pred.
func FindFirstSeq[T any](seq iter.Seq[T], pred func(T) bool) (T, bool) {
	for v := range seq {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// CountIfSeq counts elements satisfying pred.
func CountIfSeq[T any](seq iter.Seq[T], pred func(T) bool) int {
	n := 0
	for v := range seq {
		if pred(v) {
			n++
		}
	}
	return n
}

// CollectSeq materializes seq into a slice.
func CollectSeq[T any](seq iter.Seq[T]) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
	}
	return out
}

// CollectWithSeq materializes seq by appending into a caller-supplied
// backing slice, letting callers reuse a pre-sized or frame-allocated slice
// instead of paying for a new allocation per collection.
func CollectWithSeq[T any](seq iter.Seq[T], dst []T) []T {
	for v := range seq {
		dst = append(dst, v)
	}
	return dst
}
