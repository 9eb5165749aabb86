package operator

import (
	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
)

// Overlap implements `_o_`: LHS and RHS share at least one covered token.
// Symmetric, reflexive.
type Overlap struct {
	lookup        StorageLookup
	tok           *TokenHelper
	gsOrder       graphstorage.ReadableGraphStorage
	gsCoverage    graphstorage.ReadableGraphStorage
	gsInvCoverage graphstorage.ReadableGraphStorage
}

func NewOverlap(lookup StorageLookup, tok *TokenHelper) *Overlap {
	return &Overlap{
		lookup:        lookup,
		tok:           tok,
		gsOrder:       firstStorage(lookup, annis.ComponentOrdering, "", ""),
		gsCoverage:    firstStorage(lookup, annis.ComponentCoverage, "", ""),
		gsInvCoverage: firstStorage(lookup, annis.ComponentInverseCoverage, "", ""),
	}
}

func (op *Overlap) Valid() bool         { return op.gsCoverage != nil && op.gsInvCoverage != nil }
func (op *Overlap) IsReflexive() bool   { return true }
func (op *Overlap) IsCommutative() bool { return true }

// RetrieveMatches walks LHS's covered tokens via COVERAGE, then every
// span covering each of those tokens via INVERSE_COVERAGE, deduplicating.
func (op *Overlap) RetrieveMatches(lhs annis.Match) MatchIterator {
	if !op.Valid() {
		return emptyIterator()
	}
	unique := make(map[annis.NodeId]struct{})
	collect := func(token annis.NodeId) {
		for _, c := range op.gsInvCoverage.GetOutgoingEdges(token) {
			unique[c] = struct{}{}
		}
		unique[token] = struct{}{}
	}
	// A token covers itself; COVERAGE only leads out of non-token spans.
	if op.tok.IsToken(lhs.Node) {
		collect(lhs.Node)
	}
	it := op.gsCoverage.FindConnected(lhs.Node, 0, unboundedDistance)
	for it.Next() {
		collect(it.Node())
	}
	it.Close()

	matches := make([]annis.Match, 0, len(unique))
	for n := range unique {
		matches = append(matches, annis.Match{Node: n, Anno: annis.WildcardAnnotation})
	}
	return newSliceIterator(matches)
}

func (op *Overlap) Filter(lhs, rhs annis.Match) bool {
	if op.gsOrder == nil {
		return false
	}
	lhsLeft, lhsRight := op.tok.LeftRightToken(lhs.Node)
	rhsLeft, rhsRight := op.tok.LeftRightToken(rhs.Node)
	return op.gsOrder.Distance(annis.Edge{Source: lhsLeft, Target: rhsRight}) >= 0 &&
		op.gsOrder.Distance(annis.Edge{Source: rhsLeft, Target: lhsRight}) >= 0
}

// Selectivity is the coverage component's average fan-out over the token
// count, with an operator-specific constant.
func (op *Overlap) Selectivity() float64 {
	if op.gsOrder == nil || op.gsCoverage == nil {
		return defaultSelectivity
	}
	statCov := op.gsCoverage.GetStatistics()
	statOrder := op.gsOrder.GetStatistics()
	if statOrder.Nodes == 0 {
		return defaultSelectivity
	}
	if statCov.Nodes == 0 {
		return 1.0 / float64(statOrder.Nodes)
	}
	return statCov.AvgFanOut * 1.5 / float64(statOrder.Nodes)
}

func (op *Overlap) EdgeAnnoSelectivity() float64 { return 1.0 }
func (op *Overlap) Description() string          { return "_o_" }

var _ Operator = (*Overlap)(nil)
