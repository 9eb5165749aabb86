package planner

import (
	"fmt"

	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// Estimator reports a base node's estimated match count (guess_max_count),
// or <= 0 to signal "unknown" (falls back to PlannerOptions.DefaultBaseEstimate).
type Estimator func(idx query.NodeIndex, spec query.NodeSpec) float64

// Build constructs an execution tree for q given a bound Operator per
// query.Joins entry (ops[i] realises q.Joins[i]).
func Build(q *query.Query, ops []operator.Operator, estimate Estimator, opts PlannerOptions) (*PlanNode, error) {
	if len(ops) != len(q.Joins) {
		return nil, fmt.Errorf("planner: %d operators bound for %d joins", len(ops), len(q.Joins))
	}

	order := deferRegexHeavy(q, estimate, opts)

	if !opts.EnableJoinOrderOptimization || len(order) <= 1 {
		return buildWithOrder(q, ops, estimate, opts, order)
	}

	if len(order) <= opts.AllPermutationsThreshold {
		best, err := bestOverPermutations(q, ops, estimate, opts, order)
		if err != nil {
			return nil, err
		}
		return best, nil
	}

	return buildGreedy(q, ops, estimate, opts, order)
}

// deferRegexHeavy defers unbound regex nodes: a
// base node whose estimated count exceeds RegexDeferralCount and carries a
// regex constraint is processed last, giving other joins a chance to seed
// it first.
func deferRegexHeavy(q *query.Query, estimate Estimator, opts PlannerOptions) []int {
	heavy := make(map[query.NodeIndex]bool)
	for idx, spec := range q.Nodes {
		if !hasRegexConstraint(spec) {
			continue
		}
		if estimate(idx, spec) > opts.RegexDeferralCount {
			heavy[idx] = true
		}
	}

	order := make([]int, len(q.Joins))
	for i := range order {
		order[i] = i
	}
	if len(heavy) == 0 {
		return order
	}

	light := make([]int, 0, len(order))
	deferred := make([]int, 0, len(order))
	for _, i := range order {
		j := q.Joins[i]
		if heavy[j.Left] || heavy[j.Right] {
			deferred = append(deferred, i)
		} else {
			light = append(light, i)
		}
	}
	return append(light, deferred...)
}

func hasRegexConstraint(spec query.NodeSpec) bool {
	for _, a := range spec.Annotations {
		if a.Matching == query.RegexEqual {
			return true
		}
	}
	return spec.HasSpanText && spec.SpanTextMatching == query.RegexEqual
}

// buildWithOrder processes q.Joins in the given order, merging query nodes
// into execution-tree components one join at a time.
func buildWithOrder(q *query.Query, ops []operator.Operator, estimate Estimator, opts PlannerOptions, order []int) (*PlanNode, error) {
	components := make(map[query.NodeIndex]*PlanNode, len(q.Nodes))
	for idx, spec := range q.Nodes {
		output, sum := costBase(estimate(idx, spec), opts)
		components[idx] = &PlanNode{
			Kind: KindBase, QueryNode: idx, Spec: spec,
			NodePos: map[query.NodeIndex]int{idx: 0}, Width: 1,
			ComponentNr: int(idx), Estimate: output, IntermediateSum: sum,
		}
	}

	for _, i := range order {
		j := q.Joins[i]
		op := ops[i]
		left, right := j.Left, j.Right

		leftRoot := components[left]
		rightRoot := components[right]
		if leftRoot == nil || rightRoot == nil {
			return nil, fmt.Errorf("planner: join %d references unknown node", i)
		}

		if leftRoot == rightRoot {
			node, err := buildFilter(leftRoot, left, right, op)
			if err != nil {
				return nil, err
			}
			for idx := range node.NodePos {
				components[idx] = node
			}
			continue
		}

		leftRoot, rightRoot, left, right = applyOperandSwitch(opts, op, leftRoot, rightRoot, left, right)

		var node *PlanNode
		if rightRoot.Kind == KindBase && !j.ForceNestedLoop {
			node = buildSeedIndex(leftRoot, rightRoot, left, right, op)
		} else {
			node = buildNestedLoop(leftRoot, rightRoot, left, right, op)
		}

		for idx := range node.NodePos {
			components[idx] = node
		}
	}

	return finalRoot(q, components)
}

// applyOperandSwitch implements the two operand-reordering
// optimisations, both gated by independent config flags and both only
// applicable to commutative operators:
//
//   - EnableOperandSwitch ("Operand switch"): if the LHS subtree's
//     guess_max_count exceeds the RHS's, swap so the smaller side becomes
//     the outer relation / the seeded side.
//   - AvoidNestedBySwitch: additionally swap when the LHS is a base leaf
//     and the RHS is not, so the join can be realised as a seed-index join
//     (seeded by the base leaf) instead of falling back to a nested loop.
func applyOperandSwitch(opts PlannerOptions, op operator.Operator, leftRoot, rightRoot *PlanNode, left, right query.NodeIndex) (*PlanNode, *PlanNode, query.NodeIndex, query.NodeIndex) {
	if !op.IsCommutative() {
		return leftRoot, rightRoot, left, right
	}
	if opts.EnableOperandSwitch && leftRoot.Estimate > rightRoot.Estimate {
		leftRoot, rightRoot = rightRoot, leftRoot
		left, right = right, left
	}
	if opts.AvoidNestedBySwitch && leftRoot.Kind == KindBase && rightRoot.Kind != KindBase {
		leftRoot, rightRoot = rightRoot, leftRoot
		left, right = right, left
	}
	return leftRoot, rightRoot, left, right
}

func finalRoot(q *query.Query, components map[query.NodeIndex]*PlanNode) (*PlanNode, error) {
	var root *PlanNode
	for idx := range q.Nodes {
		c, ok := components[idx]
		if !ok {
			return nil, fmt.Errorf("planner: node %d never entered the plan", idx)
		}
		if root == nil {
			root = c
			continue
		}
		if root != c {
			return nil, fmt.Errorf("planner: query nodes did not end in one component (node %d unjoined)", idx)
		}
	}
	return root, nil
}

// buildFilter wraps child with a filter node, used when both query nodes
// already share a component.
func buildFilter(child *PlanNode, lhsNode, rhsNode query.NodeIndex, op operator.Operator) (*PlanNode, error) {
	lhsPos, ok := child.NodePos[lhsNode]
	if !ok {
		return nil, fmt.Errorf("planner: filter lhs node %d not in subtree", lhsNode)
	}
	rhsPos, ok := child.NodePos[rhsNode]
	if !ok {
		return nil, fmt.Errorf("planner: filter rhs node %d not in subtree", rhsNode)
	}
	sel := selectivity(op.Selectivity(), op.EdgeAnnoSelectivity())
	output, _, sum := costFilter(child, sel)
	return &PlanNode{
		Kind: KindFilter, NodePos: child.NodePos, Width: child.Width,
		ComponentNr: child.ComponentNr, Estimate: output, IntermediateSum: sum,
		Op: op, LHSPos: lhsPos, RHSPos: rhsPos, Left: child,
	}, nil
}

func mergeNodePos(left, right *PlanNode) map[query.NodeIndex]int {
	merged := make(map[query.NodeIndex]int, left.Width+right.Width)
	for idx, pos := range left.NodePos {
		merged[idx] = pos
	}
	for idx, pos := range right.NodePos {
		merged[idx] = pos + left.Width
	}
	return merged
}

// buildSeedIndex builds a seed-index join: leftRoot's subtree seeds
// op.RetrieveMatches, rightRoot is the base leaf supplying the match
// predicate. Chosen whenever the RHS is a base leaf.
func buildSeedIndex(leftRoot, rightRoot *PlanNode, lhsNode, rhsNode query.NodeIndex, op operator.Operator) *PlanNode {
	merged := mergeNodePos(leftRoot, rightRoot)
	sel := selectivity(op.Selectivity(), op.EdgeAnnoSelectivity())
	output, _, sum := costSeedIndex(leftRoot, rightRoot, sel, op.Selectivity())
	return &PlanNode{
		Kind: KindSeedIndex, NodePos: merged, Width: leftRoot.Width + rightRoot.Width,
		ComponentNr: leftRoot.ComponentNr, Estimate: output, IntermediateSum: sum,
		Op: op, LHSPos: merged[lhsNode], RHSPos: merged[rhsNode],
		Left: leftRoot, Right: rightRoot,
	}
}

// buildNestedLoop builds a nested-loop join, outer side chosen as the
// smaller-estimated subtree. The fallback when no side can seed an index.
func buildNestedLoop(leftRoot, rightRoot *PlanNode, lhsNode, rhsNode query.NodeIndex, op operator.Operator) *PlanNode {
	merged := mergeNodePos(leftRoot, rightRoot)
	sel := selectivity(op.Selectivity(), op.EdgeAnnoSelectivity())
	output, _, sum := costNestedLoop(leftRoot, rightRoot, sel)

	outer, inner := leftRoot, rightRoot
	if rightRoot.Estimate < leftRoot.Estimate {
		outer, inner = rightRoot, leftRoot
	}

	return &PlanNode{
		Kind: KindNestedLoop, NodePos: merged, Width: leftRoot.Width + rightRoot.Width,
		ComponentNr: leftRoot.ComponentNr, Estimate: output, IntermediateSum: sum,
		Op: op, LHSPos: merged[lhsNode], RHSPos: merged[rhsNode],
		Left: leftRoot, Right: rightRoot, Outer: outer, Inner: inner,
	}
}

// bestOverPermutations enumerates every ordering of order (exhaustive
// join-order search, gated by AllPermutationsThreshold) and keeps the
// lowest-cost plan, breaking ties toward fewer nested loops.
func bestOverPermutations(q *query.Query, ops []operator.Operator, estimate Estimator, opts PlannerOptions, order []int) (*PlanNode, error) {
	var best *PlanNode
	bestCost := float64(-1)
	bestNested := 0
	var firstErr error

	permute(order, func(candidate []int) {
		plan, err := buildWithOrder(q, ops, estimate, opts, candidate)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		cost := planCost(plan)
		nested := plan.nestedLoopCount()
		if best == nil || cost < bestCost || (cost == bestCost && nested < bestNested) {
			best, bestCost, bestNested = plan, cost, nested
		}
	})

	if best == nil {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("planner: no valid join order found")
	}
	return best, nil
}

// permute calls visit once per permutation of items (Heap's algorithm).
func permute(items []int, visit func([]int)) {
	n := len(items)
	work := make([]int, n)
	copy(work, items)

	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			out := make([]int, n)
			copy(out, work)
			visit(out)
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if k%2 == 0 {
				work[i], work[k-1] = work[k-1], work[i]
			} else {
				work[0], work[k-1] = work[k-1], work[0]
			}
		}
	}
	if n == 0 {
		visit(work)
		return
	}
	generate(n)
}

// buildGreedy is the fallback for more than
// AllPermutationsThreshold joins: a greedy heuristic that, at each step,
// applies whichever remaining join currently has the smallest step cost
// against the components built so far. The plan is returned as built; no
// later pass revisits or improves the greedy choices.
func buildGreedy(q *query.Query, ops []operator.Operator, estimate Estimator, opts PlannerOptions, order []int) (*PlanNode, error) {
	components := make(map[query.NodeIndex]*PlanNode, len(q.Nodes))
	for idx, spec := range q.Nodes {
		output, sum := costBase(estimate(idx, spec), opts)
		components[idx] = &PlanNode{
			Kind: KindBase, QueryNode: idx, Spec: spec,
			NodePos: map[query.NodeIndex]int{idx: 0}, Width: 1,
			ComponentNr: int(idx), Estimate: output, IntermediateSum: sum,
		}
	}

	remaining := append([]int(nil), order...)
	for len(remaining) > 0 {
		bestPos := 0
		bestCost := -1.0
		for pos, i := range remaining {
			cost := greedyStepCost(q.Joins[i], ops[i], components, opts)
			if bestCost < 0 || cost < bestCost {
				bestPos, bestCost = pos, cost
			}
		}

		i := remaining[bestPos]
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
		if err := applyJoin(q.Joins[i], ops[i], components, opts); err != nil {
			return nil, err
		}
	}

	return finalRoot(q, components)
}

// greedyStepCost previews the step cost of applying join j next, without
// mutating components.
func greedyStepCost(j query.JoinSpec, op operator.Operator, components map[query.NodeIndex]*PlanNode, opts PlannerOptions) float64 {
	leftRoot := components[j.Left]
	rightRoot := components[j.Right]
	if leftRoot == nil || rightRoot == nil {
		return 1e18
	}
	sel := selectivity(op.Selectivity(), op.EdgeAnnoSelectivity())
	if leftRoot == rightRoot {
		_, stepCost, _ := costFilter(leftRoot, sel)
		return stepCost
	}
	if rightRoot.Kind == KindBase && !j.ForceNestedLoop {
		_, stepCost, _ := costSeedIndex(leftRoot, rightRoot, sel, op.Selectivity())
		return stepCost
	}
	_, stepCost, _ := costNestedLoop(leftRoot, rightRoot, sel)
	return stepCost
}

// applyJoin mutates components by building the execution node for join j
// and re-pointing every node in the resulting subtree at it.
func applyJoin(j query.JoinSpec, op operator.Operator, components map[query.NodeIndex]*PlanNode, opts PlannerOptions) error {
	left, right := j.Left, j.Right
	leftRoot := components[left]
	rightRoot := components[right]
	if leftRoot == nil || rightRoot == nil {
		return fmt.Errorf("planner: join references unknown node")
	}

	if leftRoot == rightRoot {
		node, err := buildFilter(leftRoot, left, right, op)
		if err != nil {
			return err
		}
		for idx := range node.NodePos {
			components[idx] = node
		}
		return nil
	}

	leftRoot, rightRoot, left, right = applyOperandSwitch(opts, op, leftRoot, rightRoot, left, right)

	var node *PlanNode
	if rightRoot.Kind == KindBase && !j.ForceNestedLoop {
		node = buildSeedIndex(leftRoot, rightRoot, left, right, op)
	} else {
		node = buildNestedLoop(leftRoot, rightRoot, left, right, op)
	}
	for idx := range node.NodePos {
		components[idx] = node
	}
	return nil
}
