package operator

import (
	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
)

// IdenticalCoverage implements `_=_`: LHS and RHS have an identical
// (left_token, right_token) pair. Symmetric, non-reflexive.
type IdenticalCoverage struct {
	lookup  StorageLookup
	tok     *TokenHelper
	gsOrder graphstorage.ReadableGraphStorage
}

func NewIdenticalCoverage(lookup StorageLookup, tok *TokenHelper) *IdenticalCoverage {
	return &IdenticalCoverage{lookup: lookup, tok: tok, gsOrder: firstStorage(lookup, annis.ComponentOrdering, "", "")}
}

func (op *IdenticalCoverage) Valid() bool         { return op.gsOrder != nil }
func (op *IdenticalCoverage) IsReflexive() bool   { return false }
func (op *IdenticalCoverage) IsCommutative() bool { return true }

func (op *IdenticalCoverage) RetrieveMatches(lhs annis.Match) MatchIterator {
	lhsLeft, lhsRight := op.tok.LeftRightToken(lhs.Node)
	var matches []annis.Match
	for _, cand := range op.lookup.AllNodes() {
		candLeft, candRight := op.tok.LeftRightToken(cand)
		if candLeft == lhsLeft && candRight == lhsRight {
			matches = append(matches, annis.Match{Node: cand, Anno: annis.WildcardAnnotation})
		}
	}
	return newSliceIterator(matches)
}

func (op *IdenticalCoverage) Filter(lhs, rhs annis.Match) bool {
	lhsLeft, lhsRight := op.tok.LeftRightToken(lhs.Node)
	rhsLeft, rhsRight := op.tok.LeftRightToken(rhs.Node)
	return lhsLeft == rhsLeft && lhsRight == rhsRight
}

// Selectivity is 1 over the token count of the ORDERING component.
func (op *IdenticalCoverage) Selectivity() float64 {
	if op.gsOrder == nil {
		return defaultSelectivity
	}
	stat := op.gsOrder.GetStatistics()
	if stat.Nodes == 0 {
		return defaultSelectivity
	}
	return 1.0 / float64(stat.Nodes)
}

func (op *IdenticalCoverage) EdgeAnnoSelectivity() float64 { return 1.0 }
func (op *IdenticalCoverage) Description() string          { return "_=_" }

var _ Operator = (*IdenticalCoverage)(nil)
