package ecs

import (
	"context"
	"io"
	"time"

	"github.com/ironloom/ecs/ecs/alloc"
)

// Scheduler coordinates schedule execution each tick.
type Scheduler interface {
	Tick(ctx context.Context, dt time.Duration) error
	Run(ctx context.Context, steps int, dt time.Duration) error
	RunWithTrace(ctx context.Context, w io.Writer, fn func() error) error
	Builder() SchedulerBuilder
}

// SchedulerBuilder configures scheduler options prior to construction.
type SchedulerBuilder interface {
	WithAsyncWorkers(count int) SchedulerBuilder
	WithErrorPolicy(id ScheduleID, policy ErrorPolicy) SchedulerBuilder
	WithInstrumentation(cfg InstrumentationConfig) SchedulerBuilder
	Build(world *World) (Scheduler, error)
}

// ScheduleID identifies a registered schedule.
type ScheduleID string

// SetID identifies a named, schedule-independent system set.
type SetID string

// TickInterval controls how frequently a system runs, relative to the
// schedule's own tick counter.
type TickInterval struct {
	Every  uint32
	Offset uint32
}

func (t TickInterval) shouldRun(tick uint64) bool {
	if t.Every == 0 {
		return true
	}
	return (tick+uint64(t.Offset))%uint64(t.Every) == 0
}

// ErrorPolicy defines how the scheduler responds to system failures.
type ErrorPolicy uint8

const (
	ErrorPolicyAbort ErrorPolicy = iota
	ErrorPolicyContinue
	ErrorPolicyRetry
)

// InstrumentationConfig configures logging, tracing, and metrics sinks.
type InstrumentationConfig struct {
	EnableTrace   bool
	EnableMetrics bool
	Observer      SchedulerObserver
	Observation   ObservationSettings
}

// ObservationSettings toggles built-in observer integrations.
type ObservationSettings struct {
	EnableStructuredLogging bool
	StructuredLogger        Logger
	EnablePrometheus        bool
	PrometheusCollector     PrometheusCollector
	EnableTracing           bool
	Tracer                  Tracer
}

// SchedulerObserver receives summaries after a stage completes.
type SchedulerObserver interface {
	StageCompleted(summary StageSummary)
}

// PrometheusCollector handles stage summaries for Prometheus-style metrics.
type PrometheusCollector interface {
	ObserveStage(summary StageSummary)
}

// StageSummary captures execution metadata for one stage of one schedule run.
type StageSummary struct {
	Schedule        ScheduleID
	Stage           int
	Tick            uint64
	Duration        time.Duration
	SystemsTotal    int
	SystemsExecuted int
	SystemsSkipped  int
	Err             error
	ComponentReads  []ComponentType
	ComponentWrites []ComponentType
	ResourceReads   []string
	ResourceWrites  []string
}

// System represents executable logic registered against one or more
// schedules.
type System interface {
	Descriptor() SystemDescriptor
	Run(ctx context.Context, exec SystemContext) SystemResult
}

// SystemDescriptor describes resource usage and ordering metadata.
type SystemDescriptor struct {
	Name         string
	Reads        []ComponentType
	Writes       []ComponentType
	Resources    []ResourceAccess
	Before       []string
	After        []string
	InSets       []SetID
	RunEvery     TickInterval
	AsyncAllowed bool
}

// SystemResult indicates how a system behaved during execution.
type SystemResult struct {
	Skipped bool
	Err     error
}

// SystemContext supplies a system with scoped access to the world during one
// invocation. Generic Query/Resource operations are package-level functions
// taking a SystemContext, since Go forbids type parameters on interface
// methods.
type SystemContext interface {
	World() *World
	TimeDelta() time.Duration
	TickIndex() uint64
	Logger() Logger
	Defer(cmd Command)
	EntityCommands(e Entity) *EntityCommands
	ReserveEntity() Entity
	FrameAllocator() alloc.Allocator
}

// StorageProvider manages component storage backends, keyed by component
// type. Root never imports ecs/storage directly; an application wires a
// concrete StorageProvider at startup.
type StorageProvider interface {
	RegisterComponent(ComponentType, StorageStrategy) error
	EnsureComponent(ComponentType) (ComponentStore, error)
	View(ComponentType) (ComponentView, bool)
	Remove(ComponentType, Entity) bool
	ClearEntity(Entity)
}

// StorageStrategy describes how a component type is stored internally.
type StorageStrategy interface {
	Name() string
	NewStore(ComponentType) ComponentStore
}

// ResourceAccess declares mutable or immutable access to a resource.
type ResourceAccess struct {
	Name string
	Mode AccessMode
}

// AccessMode indicates read or write intent when using a resource or
// component type.
type AccessMode uint8

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
)

// ComponentStore permits read/write access to component instances of one
// type, addressed by Entity.
type ComponentStore interface {
	ComponentView
	Set(Entity, any) error
	Remove(Entity) bool
	Clear()
}

// ComponentView exposes read-only iteration over stored components.
type ComponentView interface {
	ComponentType() ComponentType
	Len() int
	Has(Entity) bool
	Get(Entity) (any, bool)
	Iterate(func(Entity, any) bool)
}

// Command represents a deferred mutation applied outside system execution,
// during World.Update.
type Command interface {
	Apply(world *World) error
}

// Logger captures structured log output from systems and the scheduler.
type Logger interface {
	With(key string, value any) Logger
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Tracer coordinates tracing spans for observability tooling.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, TraceSpan)
}

// TraceSpan represents an active tracing region.
type TraceSpan interface {
	SetTag(key string, value any)
	End()
}
