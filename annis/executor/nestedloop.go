package executor

import "github.com/korpling/graphANNIS-sub001/annis/planner"

// nestedLoopIterator realizes the fallback join shape: for
// each outer tuple, iterate every inner tuple and apply op.Filter with the
// orientation fixed by the plan node's LHSPos/RHSPos (which are always
// expressed against the Left++Right tuple layout, independent of which
// side drives the outer loop). If the inner subtree is not itself a base
// leaf, it is fully materialized on the first pass so the outer loop can
// rewind it cheaply for every outer tuple.
type nestedLoopIterator struct {
	node *planner.PlanNode

	outer       Iterator
	outerIsLeft bool

	innerIsBase  bool
	innerBuilder func() Iterator // re-invoked per outer tuple when innerIsBase
	innerSlice   []Tuple         // materialized once when !innerIsBase
	inner        Iterator        // live inner iterator (base case) or slice walker

	haveOuter   bool
	outerTuple  Tuple
	reflexive   bool
	current     Tuple
}

func buildNestedLoop(node *planner.PlanNode, leftIter, rightIter Iterator, rebuildLeft, rebuildRight func() Iterator) (Iterator, error) {
	outerIsLeft := node.Outer == node.Left

	var outer Iterator
	var innerNode *planner.PlanNode
	var innerIter Iterator
	var rebuildInner func() Iterator
	if outerIsLeft {
		outer = leftIter
		innerNode, innerIter, rebuildInner = node.Right, rightIter, rebuildRight
	} else {
		outer = rightIter
		innerNode, innerIter, rebuildInner = node.Left, leftIter, rebuildLeft
	}

	it := &nestedLoopIterator{
		node: node, outer: outer, outerIsLeft: outerIsLeft,
		reflexive: node.Op.IsReflexive(),
	}

	if innerNode.Kind == planner.KindBase {
		it.innerIsBase = true
		it.innerBuilder = rebuildInner
		it.inner = innerIter
	} else {
		tuples, err := drainAll(innerIter)
		if err != nil {
			return nil, err
		}
		it.innerSlice = tuples
		it.inner = newSliceIterator(tuples)
	}

	return it, nil
}

func (it *nestedLoopIterator) combine(outerTuple, innerTuple Tuple) Tuple {
	var leftTuple, rightTuple Tuple
	if it.outerIsLeft {
		leftTuple, rightTuple = outerTuple, innerTuple
	} else {
		leftTuple, rightTuple = innerTuple, outerTuple
	}
	out := make(Tuple, len(leftTuple)+len(rightTuple))
	copy(out, leftTuple)
	copy(out[len(leftTuple):], rightTuple)
	return out
}

func (it *nestedLoopIterator) advanceOuter() bool {
	if !it.outer.Next() {
		return false
	}
	it.outerTuple = it.outer.Tuple()
	it.haveOuter = true
	if it.innerIsBase {
		it.inner = it.innerBuilder()
	} else {
		it.inner = newSliceIterator(it.innerSlice)
	}
	return true
}

func (it *nestedLoopIterator) Next() bool {
	if !it.haveOuter {
		if !it.advanceOuter() {
			return false
		}
	}
	for {
		for it.inner.Next() {
			combined := it.combine(it.outerTuple, it.inner.Tuple())
			lhs, rhs := combined[it.node.LHSPos], combined[it.node.RHSPos]
			if !it.reflexive && lhs.Node == rhs.Node && checkAnnotationKeyEqual(lhs.Anno, rhs.Anno) {
				continue
			}
			if it.node.Op.Filter(lhs, rhs) {
				it.current = combined
				return true
			}
		}
		if !it.advanceOuter() {
			return false
		}
	}
}

func (it *nestedLoopIterator) Tuple() Tuple { return it.current }
func (it *nestedLoopIterator) Close() error {
	if it.inner != nil {
		it.inner.Close()
	}
	return it.outer.Close()
}

var _ Iterator = (*nestedLoopIterator)(nil)
