package ecs

import (
	"fmt"

	"github.com/ironloom/ecs/ecs/alloc"
)

// systemNode is one registered system's bookkeeping inside a Schedule's
// dependency graph.
type systemNode struct {
	index    int
	name     string
	system   System
	desc     SystemDescriptor
	children map[int]struct{} // edges to nodes that must run after this one
	parents  map[int]struct{}

	// scratch is the system's own growable frame allocator. It persists
	// across ticks and is reset once per frame, after command merge, rather
	// than recreated per run.
	scratch *alloc.Growable
}

// buildGraph derives dependency edges from three sources in order: (a)
// explicit system-level Before/After, (b) system-set Before/After lowered to
// member edges, (c) read/write and resource access conflicts, broken by
// registration index wherever neither (a) nor (b) already ordered the pair.
func buildGraph(nodes []*systemNode, byName map[string]int, setMembers map[SetID][]int, setEdges []setEdge, world *World) error {
	addEdge := func(before, after int) {
		if before == after {
			return
		}
		nodes[before].children[after] = struct{}{}
		nodes[after].parents[before] = struct{}{}
	}

	for i, n := range nodes {
		for _, beforeName := range n.desc.Before {
			j, ok := byName[beforeName]
			if !ok {
				return fmt.Errorf("%w: %s (named in %s.Before)", ErrSystemNotFound, beforeName, n.name)
			}
			addEdge(i, j)
		}
		for _, afterName := range n.desc.After {
			j, ok := byName[afterName]
			if !ok {
				return fmt.Errorf("%w: %s (named in %s.After)", ErrSystemNotFound, afterName, n.name)
			}
			addEdge(j, i)
		}
	}

	for _, se := range setEdges {
		beforeMembers, ok := setMembers[se.before]
		if !ok {
			return fmt.Errorf("%w: %s", ErrSetNotFound, se.before)
		}
		afterMembers, ok := setMembers[se.after]
		if !ok {
			return fmt.Errorf("%w: %s", ErrSetNotFound, se.after)
		}
		for _, b := range beforeMembers {
			for _, a := range afterMembers {
				addEdge(b, a)
			}
		}
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if !accessConflicts(nodes[i].desc, nodes[j].desc, world) {
				continue
			}
			// An explicit or set-derived edge already orders this pair, in
			// either direction; respect it instead of forcing registration
			// order on top, which could otherwise close a cycle.
			if hasPath(nodes, i, j) || hasPath(nodes, j, i) {
				continue
			}
			// Deterministic tie-break: lower registration index runs first.
			addEdge(i, j)
		}
	}

	return detectCycle(nodes)
}

// hasPath reports whether to is reachable from from by following children
// edges already present in the graph.
func hasPath(nodes []*systemNode, from, to int) bool {
	visited := make([]bool, len(nodes))
	stack := []int{from}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if i == to {
			return true
		}
		if visited[i] {
			continue
		}
		visited[i] = true
		for child := range nodes[i].children {
			if !visited[child] {
				stack = append(stack, child)
			}
		}
	}
	return false
}

type setEdge struct {
	before SetID
	after  SetID
}

func accessConflicts(a, b SystemDescriptor, world *World) bool {
	for _, w := range a.Writes {
		for _, rw := range b.Reads {
			if w == rw {
				return true
			}
		}
		for _, w2 := range b.Writes {
			if w == w2 {
				return true
			}
		}
	}
	for _, w := range b.Writes {
		for _, r := range a.Reads {
			if w == r {
				return true
			}
		}
	}
	for _, ra := range a.Resources {
		for _, rb := range b.Resources {
			if ra.Name != rb.Name {
				continue
			}
			if ra.Mode != AccessModeWrite && rb.Mode != AccessModeWrite {
				continue
			}
			if world != nil && resourceIsThreadSafe(world, ra.Name) {
				continue
			}
			return true
		}
	}
	return false
}

// detectCycle runs a DFS with a three-color marking scheme; on finding a
// back edge it reports ErrCycleDetected.
func detectCycle(nodes []*systemNode) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(nodes))
	var visit func(i int) error
	visit = func(i int) error {
		color[i] = gray
		for child := range nodes[i].children {
			switch color[child] {
			case gray:
				return fmt.Errorf("%w: involving %s and %s", ErrCycleDetected, nodes[i].name, nodes[child].name)
			case white:
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		color[i] = black
		return nil
	}
	for i := range nodes {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// levelize groups nodes into stages using Kahn's algorithm with a
// FIFO-ordered ready set, so stage assignment is deterministic given a fixed
// registration order.
func levelize(nodes []*systemNode) [][]int {
	indegree := make([]int, len(nodes))
	for _, n := range nodes {
		for child := range n.children {
			indegree[child]++
		}
	}

	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	var stages [][]int
	remaining := len(nodes)
	for remaining > 0 && len(ready) > 0 {
		stage := ready
		ready = nil
		for range stage {
			remaining--
		}
		stages = append(stages, stage)

		var next []int
		for _, i := range stage {
			for child := range nodes[i].children {
				indegree[child]--
				if indegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		ready = next
	}

	return stages
}
