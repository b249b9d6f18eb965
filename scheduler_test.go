package ecs_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ironloom/ecs"
)

type testSystem struct {
	name      string
	desc      ecs.SystemDescriptor
	executed  *[]string
	deferCmd  func(ctx ecs.SystemContext)
	mu        sync.Mutex
	failLimit int
	failCount int
}

func (s *testSystem) Descriptor() ecs.SystemDescriptor {
	if s.desc.Name == "" {
		s.desc.Name = s.name
	}
	return s.desc
}

func (s *testSystem) Run(_ context.Context, ctx ecs.SystemContext) ecs.SystemResult {
	if s.deferCmd != nil {
		s.deferCmd(ctx)
	}
	if s.executed != nil {
		s.mu.Lock()
		*s.executed = append(*s.executed, s.name)
		s.mu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLimit > 0 && s.failCount < s.failLimit {
		s.failCount++
		return ecs.SystemResult{Err: fmt.Errorf("forced failure %s", s.name)}
	}
	return ecs.SystemResult{}
}

type recordingObserver struct {
	mu        sync.Mutex
	summaries []ecs.StageSummary
}

func (o *recordingObserver) StageCompleted(summary ecs.StageSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summaries = append(o.summaries, summary)
}

// TestExplicitOrderingEdges covers S1: a system named via Before/After runs
// strictly after its declared predecessor even though nothing else forces an
// ordering between them.
func TestExplicitOrderingEdges(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")

	order := make([]string, 0)
	sysA := &testSystem{name: "A", executed: &order}
	sysB := &testSystem{name: "B", executed: &order, desc: ecs.SystemDescriptor{After: []string{"A"}}}

	if err := sched.AddSystems(sysA, sysB); err != nil {
		t.Fatalf("add systems: %v", err)
	}

	if err := app.Tick(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("unexpected execution order: %#v", order)
	}
}

// TestConflictDerivedEdge covers S2: two systems with no explicit ordering
// but a write/write conflict on the same component still run in a
// deterministic, registration-order-derived sequence rather than in the same
// stage.
func TestConflictDerivedEdge(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")

	order := make([]string, 0)
	first := &testSystem{name: "first", executed: &order, desc: ecs.SystemDescriptor{Writes: []ecs.ComponentType{"pos"}}}
	second := &testSystem{name: "second", executed: &order, desc: ecs.SystemDescriptor{Writes: []ecs.ComponentType{"pos"}}}

	if err := sched.AddSystems(first, second); err != nil {
		t.Fatalf("add systems: %v", err)
	}

	if err := app.Tick(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected conflict-derived order first,second; got %#v", order)
	}
}

func TestSchedulerAppliesDeferredCommands(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")

	var created ecs.Entity
	sys := &testSystem{
		name: "creator",
		deferCmd: func(ctx ecs.SystemContext) {
			ctx.Defer(ecs.NewCreateEntityCommand(&created))
		},
	}

	if err := sched.AddSystem(sys); err != nil {
		t.Fatalf("add system: %v", err)
	}

	if err := app.Tick(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !world.Exists(created) {
		t.Fatalf("expected deferred create-entity command to commit during Update")
	}
}

func TestSchedulerHonorsTickInterval(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")

	executions := make([]string, 0)
	sys := &testSystem{
		name:     "periodic",
		desc:     ecs.SystemDescriptor{RunEvery: ecs.TickInterval{Every: 2}},
		executed: &executions,
	}

	if err := sched.AddSystem(sys); err != nil {
		t.Fatalf("add system: %v", err)
	}

	for i := 0; i < 4; i++ {
		if err := app.Tick(context.Background(), time.Millisecond); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	if len(executions) != 2 {
		t.Fatalf("expected system to run twice across 4 ticks, got %d", len(executions))
	}
}

func TestSchedulerUnknownOrderingNameFails(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")

	sys := &testSystem{name: "lonely", desc: ecs.SystemDescriptor{After: []string{"ghost"}}}
	if err := sched.AddSystem(sys); err != nil {
		t.Fatalf("add system: %v", err)
	}

	err := app.Tick(context.Background(), time.Millisecond)
	if !errors.Is(err, ecs.ErrSystemNotFound) {
		t.Fatalf("expected ErrSystemNotFound, got %v", err)
	}
}

func TestSchedulerDetectsCycle(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")

	a := &testSystem{name: "a", desc: ecs.SystemDescriptor{After: []string{"b"}}}
	b := &testSystem{name: "b", desc: ecs.SystemDescriptor{After: []string{"a"}}}
	if err := sched.AddSystems(a, b); err != nil {
		t.Fatalf("add systems: %v", err)
	}

	err := app.Tick(context.Background(), time.Millisecond)
	if !errors.Is(err, ecs.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestSchedulerObserverReceivesSummary(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("obs")

	observer := &recordingObserver{}
	if _, err := app.Builder().WithInstrumentation(ecs.InstrumentationConfig{Observer: observer}).Build(nil); err != nil {
		t.Fatalf("configure instrumentation: %v", err)
	}

	sys := &testSystem{name: "observed"}
	if err := sched.AddSystem(sys); err != nil {
		t.Fatalf("add system: %v", err)
	}

	if err := app.Tick(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.summaries) != 1 {
		t.Fatalf("expected 1 stage summary, got %d", len(observer.summaries))
	}
	if observer.summaries[0].Schedule != "obs" {
		t.Fatalf("unexpected schedule id: %s", observer.summaries[0].Schedule)
	}
	if observer.summaries[0].SystemsExecuted != 1 {
		t.Fatalf("expected 1 executed system, got %d", observer.summaries[0].SystemsExecuted)
	}
}

func TestSchedulerContinuePolicy(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")
	app.Builder().WithErrorPolicy("main", ecs.ErrorPolicyContinue)

	failing := &testSystem{name: "flaky", failLimit: 1}
	if err := sched.AddSystem(failing); err != nil {
		t.Fatalf("add system: %v", err)
	}

	if err := app.Tick(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if failing.failCount != 1 {
		t.Fatalf("expected exactly one recorded failure, got %d", failing.failCount)
	}

	if err := app.Tick(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
}

func TestSchedulerRunsAcrossMultipleSchedules(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)

	order := make([]string, 0)
	earlySched := app.AddSchedule("early")
	lateSched := app.AddSchedule("late")

	earlySys := &testSystem{name: "early", executed: &order}
	lateSys := &testSystem{name: "late", executed: &order}

	if err := earlySched.AddSystem(earlySys); err != nil {
		t.Fatalf("add early: %v", err)
	}
	if err := lateSched.AddSystem(lateSys); err != nil {
		t.Fatalf("add late: %v", err)
	}

	if err := app.Run(context.Background(), 1, time.Millisecond); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Fatalf("expected schedules to run in registration order, got %#v", order)
	}
}

func TestSchedulerAsyncWorkers(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("main")
	app.Builder().WithAsyncWorkers(2)
	defer app.Close()

	order := make([]string, 0)
	var mu sync.Mutex
	sysA := &testSystem{name: "indep-a"}
	sysB := &testSystem{name: "indep-b"}
	sysA.executed, sysB.executed = &order, &order
	_ = mu

	if err := sched.AddSystems(sysA, sysB); err != nil {
		t.Fatalf("add systems: %v", err)
	}

	if err := app.Tick(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(order) != 2 {
		t.Fatalf("expected both independent systems to execute, got %#v", order)
	}
}
