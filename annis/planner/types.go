// Package planner turns a query.Query plus bound operators into an
// execution tree, choosing join shape and operand order by estimated
// cost.
package planner

import (
	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// NodeKind names an execution-tree node's shape.
type NodeKind int

const (
	KindBase NodeKind = iota
	KindFilter
	KindNestedLoop
	KindSeedIndex
	KindParallelIndex
)

func (k NodeKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindFilter:
		return "filter"
	case KindNestedLoop:
		return "nested_loop"
	case KindSeedIndex:
		return "seed_index"
	case KindParallelIndex:
		return "parallel_index"
	default:
		return "unknown"
	}
}

// PlanNode is one node of the execution tree: a base leaf or a join/
// filter bound to an operator, plus the query-node-to-tuple-position map
// and cost estimates for the subtree below it.
type PlanNode struct {
	Kind NodeKind

	// NodePos maps every query node in this subtree to its position in
	// the tuple this node's iterator produces.
	NodePos map[query.NodeIndex]int
	Width   int

	ComponentNr int

	Estimate        float64
	IntermediateSum float64

	// Base leaf fields.
	QueryNode query.NodeIndex
	Spec      query.NodeSpec

	// Join/filter fields.
	Op       operator.Operator
	LHSPos   int // tuple position of the operator's LHS argument
	RHSPos   int // tuple position of the operator's RHS argument
	Left     *PlanNode
	Right    *PlanNode
	Outer    *PlanNode // for nested loop: which child drives the outer loop
	Inner    *PlanNode
}

// nestedLoopCount reports how many nested-loop joins appear in this
// subtree, used to break cost ties toward plans without nested loops.
func (n *PlanNode) nestedLoopCount() int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Kind == KindNestedLoop {
		count++
	}
	return count + n.Left.nestedLoopCount() + n.Right.nestedLoopCount()
}

// PlannerOptions configures the planner's optional transformations.
type PlannerOptions struct {
	// AvoidNestedBySwitch swaps operands for a commutative operator at
	// construction time when doing so turns a nested loop into a
	// seed-index join (LHS is a base leaf, RHS is not).
	AvoidNestedBySwitch bool
	// EnableOperandSwitch swaps operands for every commutative operator
	// so the smaller-estimated side is the outer/seeded one.
	EnableOperandSwitch bool
	// EnableJoinOrderOptimization enables exhaustive/greedy reordering
	// of the join list by estimated cost.
	EnableJoinOrderOptimization bool
	// AllPermutationsThreshold is the join-count cutoff at or below which
	// join order is enumerated exhaustively rather than greedily (default 6).
	AllPermutationsThreshold int
	// RegexDeferralCount: a base leaf carrying a regex constraint with an
	// estimated count above this is deferred until a join can seed it from
	// another node instead.
	RegexDeferralCount float64
	// DefaultBaseEstimate is guess_max_count's fallback when no
	// statistics are available.
	DefaultBaseEstimate float64
}

// DefaultOptions returns the default option set: every optimisation
// enabled, thresholds at their standard values.
func DefaultOptions() PlannerOptions {
	return PlannerOptions{
		AvoidNestedBySwitch:         true,
		EnableOperandSwitch:         true,
		EnableJoinOrderOptimization: true,
		AllPermutationsThreshold:    6,
		RegexDeferralCount:          50000,
		DefaultBaseEstimate:         100000,
	}
}
