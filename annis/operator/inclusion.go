package operator

import (
	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
)

// Inclusion implements `_i_`: RHS's token span is included in LHS's token
// span along ORDERING. Non-reflexive, non-commutative.
type Inclusion struct {
	lookup  StorageLookup
	tok     *TokenHelper
	gsOrder graphstorage.ReadableGraphStorage
}

func NewInclusion(lookup StorageLookup, tok *TokenHelper) *Inclusion {
	return &Inclusion{lookup: lookup, tok: tok, gsOrder: firstStorage(lookup, annis.ComponentOrdering, "", "")}
}

func (op *Inclusion) Valid() bool         { return op.gsOrder != nil }
func (op *Inclusion) IsReflexive() bool   { return false }
func (op *Inclusion) IsCommutative() bool { return false }

// withinSpan reports whether [candLeft,candRight] is fully inside
// [spanLeft,spanRight] along ORDERING: both anchors must fall between the
// span's left and right token inclusive.
func (op *Inclusion) withinSpan(spanLeft, spanRight, candLeft, candRight annis.NodeId, spanLength int) bool {
	return op.gsOrder.IsConnected(annis.Edge{Source: spanLeft, Target: candLeft}, 0, spanLength) &&
		op.gsOrder.IsConnected(annis.Edge{Source: candRight, Target: spanRight}, 0, spanLength)
}

func (op *Inclusion) RetrieveMatches(lhs annis.Match) MatchIterator {
	if op.gsOrder == nil {
		return emptyIterator()
	}
	spanLeft, spanRight := op.tok.LeftRightToken(lhs.Node)
	spanLength := op.gsOrder.Distance(annis.Edge{Source: spanLeft, Target: spanRight})
	if spanLength < 0 {
		spanLength = 0
	}

	var matches []annis.Match
	for _, cand := range op.lookup.AllNodes() {
		candLeft, candRight := op.tok.LeftRightToken(cand)
		if op.withinSpan(spanLeft, spanRight, candLeft, candRight, spanLength) {
			matches = append(matches, annis.Match{Node: cand, Anno: annis.WildcardAnnotation})
		}
	}
	return newSliceIterator(matches)
}

func (op *Inclusion) Filter(lhs, rhs annis.Match) bool {
	if op.gsOrder == nil {
		return false
	}
	spanLeft, spanRight := op.tok.LeftRightToken(lhs.Node)
	spanLength := op.gsOrder.Distance(annis.Edge{Source: spanLeft, Target: spanRight})
	if spanLength < 0 {
		spanLength = 0
	}
	candLeft, candRight := op.tok.LeftRightToken(rhs.Node)
	return op.withinSpan(spanLeft, spanRight, candLeft, candRight, spanLength)
}

// Selectivity is the coverage component's average fan-out over the token
// count, with an operator-specific constant.
func (op *Inclusion) Selectivity() float64 {
	gsCoverage := firstStorage(op.lookup, annis.ComponentCoverage, "", "")
	if op.gsOrder == nil || gsCoverage == nil {
		return defaultSelectivity
	}
	statCov := gsCoverage.GetStatistics()
	statOrder := op.gsOrder.GetStatistics()
	if statOrder.Nodes == 0 {
		return defaultSelectivity
	}
	if statCov.Nodes == 0 {
		return 1.0 / float64(statOrder.Nodes)
	}
	return statCov.AvgFanOut * 0.5 / float64(statOrder.Nodes)
}

func (op *Inclusion) EdgeAnnoSelectivity() float64 { return 1.0 }
func (op *Inclusion) Description() string          { return "_i_" }

var _ Operator = (*Inclusion)(nil)
