package ecs

import (
	"context"
	"fmt"
	"io"
	"runtime/trace"
	"sync"
	"time"
)

// Module is a unit of setup sugar applied once at App.Initialize: a
// composable registration step that can add schedules, register systems,
// insert resources, or otherwise configure an App before it starts ticking.
type Module func(app *App) error

// App is the top-level Scheduler implementation: a world plus one or more
// named Schedules, run together each Tick. Each Schedule derives its own
// DAG of stages independently, so unrelated systems in different schedules
// never contend for a single global ordering.
type App struct {
	mu              sync.RWMutex
	world           *World
	schedules       map[ScheduleID]*Schedule
	order           []ScheduleID
	modules         []Module
	subApps         []*App
	exec            stageRunner
	execCloser      func()
	asyncWorkers    int
	logger          Logger
	tracer          Tracer
	observer        SchedulerObserver
	instrumentation InstrumentationConfig
	tickIndex       uint64
}

// NewApp constructs an App bound to world (a fresh World if nil).
func NewApp(world *World) *App {
	if world == nil {
		world = NewWorld()
	}
	a := &App{
		world:     world,
		schedules: make(map[ScheduleID]*Schedule),
		logger:    noopLogger{},
		tracer:    noopTracer{},
		observer:  noopObserver{},
	}
	a.exec = &sequentialStageExecutor{}
	return a
}

// NewScheduler constructs a Scheduler bound to world. Callers that need
// AddSchedule/AddModule/AddSubApp should use NewApp directly.
func NewScheduler(world *World) (Scheduler, error) {
	return NewApp(world), nil
}

// World returns the app's world.
func (a *App) World() *World {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.world
}

// AddSchedule registers and returns a new, empty Schedule under id. Calling
// AddSchedule twice with the same id returns the existing Schedule.
func (a *App) AddSchedule(id ScheduleID) *Schedule {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sch, ok := a.schedules[id]; ok {
		return sch
	}
	sch := newSchedule(id)
	a.schedules[id] = sch
	a.order = append(a.order, id)
	return sch
}

// Schedule returns a previously registered schedule.
func (a *App) Schedule(id ScheduleID) (*Schedule, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sch, ok := a.schedules[id]
	return sch, ok
}

// AddModule queues m to run during Initialize. If the world is mid-update,
// the call is a documented no-op-with-warning rather than an error.
func (a *App) AddModule(m Module) error {
	if a.world.isTransient() {
		a.logger.Warn("AddModule ignored while world is mid-update")
		return nil
	}
	a.mu.Lock()
	a.modules = append(a.modules, m)
	a.mu.Unlock()
	return nil
}

// Initialize applies every queued module in registration order.
func (a *App) Initialize() error {
	a.mu.RLock()
	modules := append([]Module(nil), a.modules...)
	a.mu.RUnlock()
	for _, m := range modules {
		if err := m(a); err != nil {
			return err
		}
	}
	return nil
}

// AddSubApp registers sub as a child driven by this app's own Run/Tick loop.
// If the world is mid-update, the call is a documented no-op-with-warning.
func (a *App) AddSubApp(sub *App) error {
	if sub == nil {
		return fmt.Errorf("ecs: nil sub-app")
	}
	if a.world.isTransient() {
		a.logger.Warn("AddSubApp ignored while world is mid-update")
		return nil
	}
	a.mu.Lock()
	a.subApps = append(a.subApps, sub)
	a.mu.Unlock()
	return nil
}

// Builder returns a builder for scheduler-wide options.
func (a *App) Builder() SchedulerBuilder {
	return &appBuilder{app: a}
}

type appBuilder struct {
	app *App
}

func (b *appBuilder) WithAsyncWorkers(count int) SchedulerBuilder {
	if count < 0 {
		count = 0
	}
	b.app.mu.Lock()
	if b.app.execCloser != nil {
		b.app.execCloser()
		b.app.execCloser = nil
	}
	b.app.asyncWorkers = count
	if count > 0 {
		se := newStageExecutor(count)
		b.app.exec = se
		b.app.execCloser = se.close
	} else {
		b.app.exec = &sequentialStageExecutor{}
	}
	b.app.mu.Unlock()
	return b
}

func (b *appBuilder) WithErrorPolicy(id ScheduleID, policy ErrorPolicy) SchedulerBuilder {
	b.app.mu.Lock()
	sch, ok := b.app.schedules[id]
	b.app.mu.Unlock()
	if ok {
		sch.mu.Lock()
		sch.errorPolicy = policy
		sch.mu.Unlock()
	}
	return b
}

func (b *appBuilder) WithInstrumentation(cfg InstrumentationConfig) SchedulerBuilder {
	b.app.mu.Lock()
	b.app.instrumentation = cfg
	if cfg.Observation.Tracer != nil {
		b.app.tracer = cfg.Observation.Tracer
	} else if !cfg.EnableTrace {
		b.app.tracer = noopTracer{}
	}
	logger := b.app.logger
	b.app.observer = buildObserverChain(logger, cfg)
	b.app.mu.Unlock()
	return b
}

func (b *appBuilder) Build(world *World) (Scheduler, error) {
	b.app.mu.Lock()
	defer b.app.mu.Unlock()
	if world != nil {
		b.app.world = world
	} else if b.app.world == nil {
		b.app.world = NewWorld()
	}
	return b.app, nil
}

// Tick runs every registered schedule once, in registration order, followed
// by every sub-app's own Tick, then applies the accumulated command queue
// through World.Update.
func (a *App) Tick(ctx context.Context, dt time.Duration) error {
	a.mu.RLock()
	order := append([]ScheduleID(nil), a.order...)
	schedules := make([]*Schedule, 0, len(order))
	for _, id := range order {
		schedules = append(schedules, a.schedules[id])
	}
	exec := a.exec
	logger := a.logger
	tracer := a.tracer
	observer := a.observer
	world := a.world
	subApps := append([]*App(nil), a.subApps...)
	a.mu.RUnlock()

	for _, sch := range schedules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sch.run(ctx, world, dt, exec, logger, tracer, world.cmdQueue, observer); err != nil {
			return err
		}
	}

	for _, sub := range subApps {
		if err := sub.Tick(ctx, dt); err != nil {
			return err
		}
	}

	if err := world.Update(); err != nil {
		return err
	}

	for _, sch := range schedules {
		sch.resetScratch()
	}

	a.mu.Lock()
	a.tickIndex++
	a.mu.Unlock()
	return nil
}

// Run invokes Tick steps times.
func (a *App) Run(ctx context.Context, steps int, dt time.Duration) error {
	for i := 0; i < steps; i++ {
		if err := a.Tick(ctx, dt); err != nil {
			return err
		}
	}
	return nil
}

// RunWithTrace runs fn, wrapping it with Go's runtime/trace if instrumentation
// requested trace capture and w is non-nil.
func (a *App) RunWithTrace(ctx context.Context, w io.Writer, fn func() error) error {
	a.mu.RLock()
	enabled := a.instrumentation.EnableTrace
	a.mu.RUnlock()
	if enabled && w != nil {
		if err := trace.Start(w); err != nil {
			return err
		}
		defer trace.Stop()
	}
	return fn()
}

// TickIndex returns the number of completed Tick calls.
func (a *App) TickIndex() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tickIndex
}

// Close releases the async executor, if one was configured.
func (a *App) Close() {
	a.mu.Lock()
	closer := a.execCloser
	a.execCloser = nil
	a.mu.Unlock()
	if closer != nil {
		closer()
	}
}

var _ Scheduler = (*App)(nil)
