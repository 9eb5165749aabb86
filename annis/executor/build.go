package executor

import (
	"fmt"

	"github.com/korpling/graphANNIS-sub001/annis/planner"
)

// Build compiles a planner.PlanNode execution tree into a running
// pull-based Iterator, realizing whichever join shape the planner chose
// for each node. pool may be nil; it is consulted by a KindSeedIndex node
// when opts.Parallel is set and the LHS estimate exceeds
// opts.ParallelThreshold, and by every KindParallelIndex node (which runs
// the sequential seed-index join when pool is nil).
func Build(root *planner.PlanNode, matcher Matcher, opts Options, pool *WorkerPool) (Iterator, error) {
	if root == nil {
		return nil, fmt.Errorf("executor: nil plan node")
	}

	switch root.Kind {
	case planner.KindBase:
		return matcher.Search(root.Spec), nil

	case planner.KindFilter:
		child, err := Build(root.Left, matcher, opts, pool)
		if err != nil {
			return nil, err
		}
		return buildFilter(root, child), nil

	case planner.KindSeedIndex:
		left, err := Build(root.Left, matcher, opts, pool)
		if err != nil {
			return nil, err
		}
		if opts.Parallel && pool != nil && root.Left.Estimate > opts.ParallelThreshold {
			return buildParallelSeedIndex(root, left, matcher, pool, opts.MaxTasks), nil
		}
		return buildSeedIndex(root, left, matcher), nil

	case planner.KindNestedLoop:
		leftIter, err := Build(root.Left, matcher, opts, pool)
		if err != nil {
			return nil, err
		}
		rightIter, err := Build(root.Right, matcher, opts, pool)
		if err != nil {
			return nil, err
		}
		rebuildLeft := rebuilder(root.Left, matcher, opts, pool)
		rebuildRight := rebuilder(root.Right, matcher, opts, pool)
		return buildNestedLoop(root, leftIter, rightIter, rebuildLeft, rebuildRight)

	case planner.KindParallelIndex:
		left, err := Build(root.Left, matcher, opts, pool)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return buildSeedIndex(root, left, matcher), nil
		}
		return buildParallelSeedIndex(root, left, matcher, pool, opts.MaxTasks), nil

	default:
		return nil, fmt.Errorf("executor: unknown plan node kind %v", root.Kind)
	}
}

// rebuilder returns a thunk that re-runs node's subtree from scratch,
// used by the nested-loop join to rewind a base-leaf inner side for every
// outer tuple instead of materializing it; a base leaf is cheap to
// re-search. Build creates one for each side of a nested-loop node; the
// join invokes the thunk only when its inner side is a base leaf.
func rebuilder(node *planner.PlanNode, matcher Matcher, opts Options, pool *WorkerPool) func() Iterator {
	return func() Iterator {
		it, err := Build(node, matcher, opts, pool)
		if err != nil {
			return newSliceIterator(nil)
		}
		return it
	}
}
