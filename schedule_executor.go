package ecs

import (
	"context"
	"sync"

	"github.com/ironloom/ecs/ecs/executor"
)

// stageRunner is satisfied by both the concurrent work-stealing executor and
// the sequential fallback used when no async workers are configured.
type stageRunner interface {
	runStage(n int, fn func(slot int))
}

// stageExecutor runs the systems of one DAG stage concurrently. Stages
// contain only mutually non-conflicting systems by construction (schedule.go
// derives them from the same access-conflict graph), so every system in a
// stage is safe to run in parallel; stageExecutor just needs to fan work out
// and join it, which it does through ecs/executor's work-stealing pool.
type stageExecutor struct {
	exec *executor.WorkStealing
}

func newStageExecutor(workers int) *stageExecutor {
	return &stageExecutor{exec: executor.New(workers)}
}

func (s *stageExecutor) runStage(n int, fn func(slot int)) {
	if n == 0 {
		return
	}
	if n == 1 {
		fn(0)
		return
	}
	g := executor.NewGraph()
	nodes := make([]*executor.Node, n)
	for i := 0; i < n; i++ {
		slot := i
		nodes[i] = executor.NewNode(func(context.Context) { fn(slot) })
	}
	g.Add(nodes...)
	s.exec.Submit(g).Wait()
}

func (s *stageExecutor) close() {
	s.exec.Close()
}

// sequentialStageExecutor runs stage systems one at a time. NewApp installs
// it by default, and WithAsyncWorkers(0) restores it.
type sequentialStageExecutor struct {
	mu sync.Mutex
}

func (s *sequentialStageExecutor) runStage(n int, fn func(slot int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

var (
	_ stageRunner = (*stageExecutor)(nil)
	_ stageRunner = (*sequentialStageExecutor)(nil)
)
