package ecs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ironloom/ecs/ecs/alloc"
)

// defaultScratchCapacity is the initial size of a system's per-tick frame
// allocator; it grows via Growable if a system ever needs more.
const defaultScratchCapacity = 4096

// Schedule is a named, ordered collection of systems whose dependency graph
// is derived once and re-levelized into stages whenever a system or
// ordering constraint is added.
type Schedule struct {
	mu         sync.RWMutex
	id         ScheduleID
	nodes      []*systemNode
	byName     map[string]int
	setMembers map[SetID][]int
	setEdges   []setEdge
	stages     [][]int
	dirty      bool
	tick       uint64
	errorPolicy ErrorPolicy
}

func newSchedule(id ScheduleID) *Schedule {
	return &Schedule{
		id:         id,
		byName:     make(map[string]int),
		setMembers: make(map[SetID][]int),
		dirty:      true,
	}
}

// ID returns the schedule's identifier.
func (s *Schedule) ID() ScheduleID { return s.id }

// AddSystem registers sys under this schedule. Duplicate names are rejected.
func (s *Schedule) AddSystem(sys System) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc := sys.Descriptor()
	name := desc.Name
	if name == "" {
		return fmt.Errorf("ecs: system requires a non-empty Descriptor.Name")
	}
	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSystem, name)
	}

	idx := len(s.nodes)
	node := &systemNode{
		index:    idx,
		name:     name,
		system:   sys,
		desc:     desc,
		children: make(map[int]struct{}),
		parents:  make(map[int]struct{}),
		scratch: alloc.NewGrowable(func(capacity int) alloc.Allocator {
			return alloc.NewFrame(capacity)
		}, defaultScratchCapacity),
	}
	s.nodes = append(s.nodes, node)
	s.byName[name] = idx
	for _, set := range desc.InSets {
		s.setMembers[set] = append(s.setMembers[set], idx)
	}
	s.dirty = true
	return nil
}

// AddSystems registers multiple systems in one call.
func (s *Schedule) AddSystems(systems ...System) error {
	for _, sys := range systems {
		if err := s.AddSystem(sys); err != nil {
			return err
		}
	}
	return nil
}

// AddSetRunsBefore records that every member of before must run before every
// member of after, lowered to individual system edges at rebuild time.
func (s *Schedule) AddSetRunsBefore(before, after SetID) {
	s.mu.Lock()
	s.setEdges = append(s.setEdges, setEdge{before: before, after: after})
	s.dirty = true
	s.mu.Unlock()
}

// AddSetRunsAfter is the mirror of AddSetRunsBefore.
func (s *Schedule) AddSetRunsAfter(after, before SetID) {
	s.AddSetRunsBefore(before, after)
}

// setConfigurator is the fluent counterpart to AddSetRunsBefore/After.
type setConfigurator struct {
	schedule *Schedule
	set      SetID
}

// ConfigureSet starts a fluent chain declaring ordering for a system set.
func (s *Schedule) ConfigureSet(set SetID) *setConfigurator {
	return &setConfigurator{schedule: s, set: set}
}

func (c *setConfigurator) Before(other SetID) *setConfigurator {
	c.schedule.AddSetRunsBefore(c.set, other)
	return c
}

func (c *setConfigurator) After(other SetID) *setConfigurator {
	c.schedule.AddSetRunsBefore(other, c.set)
	return c
}

// rebuild derives the dependency graph and stage levels if dirty.
func (s *Schedule) rebuild(world *World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	for _, n := range s.nodes {
		n.children = make(map[int]struct{})
		n.parents = make(map[int]struct{})
	}
	if err := buildGraph(s.nodes, s.byName, s.setMembers, s.setEdges, world); err != nil {
		return err
	}
	s.stages = levelize(s.nodes)
	s.dirty = false
	return nil
}

// scheduleRunResult aggregates per-stage summaries for one Run call.
type scheduleRunResult struct {
	summaries []StageSummary
}

// run executes every stage in order, merging each stage's system command
// buffers into dst after the stage completes. Merging per stage rather than
// once at the end of the whole run gives finer observability while keeping
// cross-stage ordering exact.
func (s *Schedule) run(ctx context.Context, world *World, dt time.Duration, exec stageRunner, logger Logger, tracer Tracer, dst *CommandBuffer, observer SchedulerObserver) error {
	if err := s.rebuild(world); err != nil {
		return err
	}

	s.mu.RLock()
	stages := s.stages
	nodes := s.nodes
	tick := s.tick
	policy := s.errorPolicy
	s.mu.RUnlock()

	scheduleLogger := logger.With("schedule", string(s.id))

	for stageIdx, stage := range stages {
		start := time.Now()
		contexts := make([]*systemContext, len(stage))
		results := make([]SystemResult, len(stage))
		ran := make([]bool, len(stage))

		runOne := func(slot int) {
			nodeIdx := stage[slot]
			node := nodes[nodeIdx]
			if !node.desc.RunEvery.shouldRun(tick) {
				return
			}
			sysLogger := scheduleLogger.With("system", node.name)
			sctx := newSystemContext(world, dt, tick, sysLogger, node.scratch)
			contexts[slot] = sctx
			ran[slot] = true
			spanCtx, span := tracer.Start(ctx, node.name)
			results[slot] = node.system.Run(spanCtx, sctx)
			span.End()
		}

		exec.runStage(len(stage), runOne)

		summary := StageSummary{Schedule: s.id, Stage: stageIdx, Tick: tick, SystemsTotal: len(stage)}
		for slot, nodeIdx := range stage {
			node := nodes[nodeIdx]
			if !ran[slot] {
				summary.SystemsSkipped++
				continue
			}
			res := results[slot]
			if res.Err != nil {
				err := fmt.Errorf("ecs: system %s failed: %w", node.name, res.Err)
				if policy == ErrorPolicyContinue {
					scheduleLogger.Error("system failed", "system", node.name, "err", err)
					continue
				}
				summary.Err = err
				summary.Duration = time.Since(start)
				if observer != nil {
					observer.StageCompleted(summary)
				}
				return err
			}
			if res.Skipped {
				summary.SystemsSkipped++
				continue
			}
			summary.SystemsExecuted++
			contexts[slot].drainInto(dst)
			summary.ComponentReads = append(summary.ComponentReads, node.desc.Reads...)
			summary.ComponentWrites = append(summary.ComponentWrites, node.desc.Writes...)
		}
		summary.Duration = time.Since(start)
		if observer != nil {
			observer.StageCompleted(summary)
		}
	}

	s.mu.Lock()
	s.tick++
	s.mu.Unlock()
	return nil
}

// resetScratch resets every system's per-tick frame allocator. Called once
// per frame after command merge.
func (s *Schedule) resetScratch() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		n.scratch.Reset()
	}
}
