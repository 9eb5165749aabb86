package planner

import "math"

// costBase assigns a base leaf's output estimate: the
// caller-supplied guess or DefaultBaseEstimate (100 000) when unknown.
func costBase(estimate float64, opts PlannerOptions) (output, intermediateSum float64) {
	if estimate <= 0 {
		estimate = opts.DefaultBaseEstimate
	}
	return estimate, 0
}

// selectivity combines an operator's selectivity with its edge-annotation
// selectivity: `sel * max(1, edgeAnnoSel)`.
func selectivity(sel, edgeAnnoSel float64) float64 {
	return sel * math.Max(1, edgeAnnoSel)
}

// costFilter computes a filter node's output/intermediate-sum: the filter
// re-scans its child's output at no extra materialisation cost, applying
// sel to narrow the estimate.
func costFilter(child *PlanNode, sel float64) (output, stepCost, intermediateSum float64) {
	output = math.Max(1, child.Estimate*sel)
	stepCost = child.Estimate
	intermediateSum = stepCost + child.IntermediateSum
	return
}

// costNestedLoop computes a nested-loop join's step cost:
// `min(lhs.out, rhs.out) + lhs.out*rhs.out`.
func costNestedLoop(lhs, rhs *PlanNode, sel float64) (output, stepCost, intermediateSum float64) {
	output = math.Max(1, lhs.Estimate*rhs.Estimate*sel)
	stepCost = math.Min(lhs.Estimate, rhs.Estimate) + lhs.Estimate*rhs.Estimate
	intermediateSum = stepCost + lhs.IntermediateSum + rhs.IntermediateSum
	return
}

// costSeedIndex computes a seed-index join's step cost:
// `lhs.out + op.selectivity_without_anno * lhs.out*rhs.out`.
func costSeedIndex(lhs, rhs *PlanNode, sel, selWithoutAnno float64) (output, stepCost, intermediateSum float64) {
	output = math.Max(1, lhs.Estimate*rhs.Estimate*sel)
	stepCost = lhs.Estimate + selWithoutAnno*lhs.Estimate*rhs.Estimate
	intermediateSum = stepCost + lhs.IntermediateSum + rhs.IntermediateSum
	return
}

// planCost returns the whole plan's cost: the root's intermediate sum.
// Lower is better.
func planCost(root *PlanNode) float64 {
	if root == nil {
		return math.Inf(1)
	}
	return root.IntermediateSum
}
