// Package executor turns a planner.PlanNode execution tree into a running
// pull-based iterator over result tuples, realizing the four join shapes
// (filter, nested loop, seed-index, task-parallel seed-index)
// on top of the operators and matcher a corpus provides.
package executor

import (
	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// Tuple is one partial result row: one Match per query node that has
// already entered the plan, ordered by planner.PlanNode.NodePos.
type Tuple []annis.Match

func (t Tuple) clone() Tuple {
	out := make(Tuple, len(t))
	copy(out, t)
	return out
}

// Iterator is the pull-based tuple stream every compiled plan node
// produces. There is no Reset: a fresh executor tree is compiled per query
// execution instead of being rewound and reused.
type Iterator interface {
	Next() bool
	Tuple() Tuple
	Close() error
}

// Matcher is the corpus-provided capability the executor needs to realize
// base (unseeded) query nodes and to test a candidate node an operator
// produced against the NodeSpec on the other side of a join.
type Matcher interface {
	// Search enumerates every node in the corpus satisfying spec, each as
	// a single-Match tuple. Used for base leaves that no join seeds: the
	// very first node processed in join order, and any side of a nested
	// loop that never received a seed-index treatment.
	Search(spec query.NodeSpec) Iterator

	// CheckAndAnnotate reports whether node satisfies spec and, if so,
	// the Annotation to record for it. Used by seed-index joins: a
	// candidate node comes from an operator's RetrieveMatches, not from a
	// corpus scan, so it is checked against the spec directly instead of
	// being searched for.
	CheckAndAnnotate(node annis.NodeId, spec query.NodeSpec) (annis.Annotation, bool)
}

// Options configures the executor's shared worker pool and the
// seed-index parallelism threshold.
type Options struct {
	// Parallel enables the task-parallel seed-index join instead of the
	// sequential one for any seed-index node whose LHS estimate exceeds
	// ParallelThreshold.
	Parallel bool
	// ParallelThreshold is the LHS estimate above which a seed-index join
	// runs on the worker pool rather than sequentially.
	ParallelThreshold float64
	// WorkerCount sizes the worker pool; <= 0 uses runtime.NumCPU().
	WorkerCount int
	// MaxTasks bounds how many per-LHS-tuple tasks a single parallel
	// seed-index join keeps in flight at once.
	MaxTasks int
	// MaxBufferedTasks is carried here (default 128) but no join reads it:
	// the nested-loop join evaluates its filter one pair at a time on the
	// calling goroutine and does not batch work onto the worker pool.
	MaxBufferedTasks int
}

// DefaultOptions returns a sequential-only configuration; callers opt
// into parallel execution explicitly.
func DefaultOptions() Options {
	return Options{
		Parallel: false, ParallelThreshold: 10000, WorkerCount: 0,
		MaxTasks: 8, MaxBufferedTasks: 128,
	}
}

func checkAnnotationKeyEqual(a, b annis.Annotation) bool {
	return a.Key == b.Key
}
