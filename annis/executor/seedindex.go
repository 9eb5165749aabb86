package executor

import (
	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/planner"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// seedIndexIterator realizes a seed-index join sequentially: for each LHS
// tuple, op.RetrieveMatches seeds the candidate set directly from the
// operator/graph-storage index instead of scanning the right-hand base
// leaf, and each candidate is checked against the RHS NodeSpec via
// matcher.CheckAndAnnotate, which yields the candidate's annotation under
// the predicate's key when it matches.
type seedIndexIterator struct {
	left      Iterator
	op        operator.Operator
	rightSpec query.NodeSpec
	matcher   Matcher
	leftPos   int // position of the operator's LHS argument within a left tuple
	reflexive bool

	currentLeft Tuple
	candidates  operator.MatchIterator
	haveLeft    bool
	current     Tuple
}

func buildSeedIndex(node *planner.PlanNode, left Iterator, matcher Matcher) Iterator {
	return &seedIndexIterator{
		left: left, op: node.Op, matcher: matcher,
		rightSpec: node.Right.Spec,
		leftPos:   node.LHSPos,
		reflexive: node.Op.IsReflexive(),
	}
}

func (it *seedIndexIterator) fetchNextLeft() bool {
	if !it.left.Next() {
		return false
	}
	it.currentLeft = it.left.Tuple()
	if it.candidates != nil {
		it.candidates.Close()
	}
	it.candidates = it.op.RetrieveMatches(it.currentLeft[it.leftPos])
	it.haveLeft = true
	return true
}

func (it *seedIndexIterator) Next() bool {
	if !it.haveLeft {
		if !it.fetchNextLeft() {
			return false
		}
	}

	for {
		for it.candidates != nil && it.candidates.Next() {
			cand := it.candidates.Match()
			lhs := it.currentLeft[it.leftPos]
			anno, ok := it.matcher.CheckAndAnnotate(cand.Node, it.rightSpec)
			if !ok {
				continue
			}
			if !it.reflexive && lhs.Node == cand.Node && checkAnnotationKeyEqual(lhs.Anno, anno) {
				continue
			}
			out := make(Tuple, len(it.currentLeft)+1)
			copy(out, it.currentLeft)
			out[len(it.currentLeft)] = annis.Match{Node: cand.Node, Anno: anno}
			it.current = out
			return true
		}
		if !it.fetchNextLeft() {
			return false
		}
	}
}

func (it *seedIndexIterator) Tuple() Tuple { return it.current }
func (it *seedIndexIterator) Close() error {
	if it.candidates != nil {
		it.candidates.Close()
	}
	return it.left.Close()
}

var _ Iterator = (*seedIndexIterator)(nil)
