package executor

import "github.com/korpling/graphANNIS-sub001/annis/planner"

// filterIterator re-scans a child subtree's tuples, keeping only those
// whose (lhsPos, rhsPos) pair satisfies op.Filter. A non-reflexive
// operator never matches a node against itself under the same annotation
// key; that check happens before op.Filter is consulted.
type filterIterator struct {
	child          Iterator
	node           *planner.PlanNode
	reflexiveCheck bool
}

func buildFilter(node *planner.PlanNode, child Iterator) Iterator {
	return &filterIterator{child: child, node: node, reflexiveCheck: !node.Op.IsReflexive()}
}

func (it *filterIterator) Next() bool {
	for it.child.Next() {
		t := it.child.Tuple()
		lhs, rhs := t[it.node.LHSPos], t[it.node.RHSPos]
		if it.reflexiveCheck && lhs.Node == rhs.Node && checkAnnotationKeyEqual(lhs.Anno, rhs.Anno) {
			continue
		}
		if it.node.Op.Filter(lhs, rhs) {
			return true
		}
	}
	return false
}

func (it *filterIterator) Tuple() Tuple { return it.child.Tuple() }
func (it *filterIterator) Close() error { return it.child.Close() }
