package operator

import "github.com/korpling/graphANNIS-sub001"

// IdenticalNode implements `_ident_`: LHS.node == RHS.node. Annotation
// content is ignored. Symmetric.
type IdenticalNode struct{}

func NewIdenticalNode() IdenticalNode { return IdenticalNode{} }

func (IdenticalNode) Valid() bool         { return true }
func (IdenticalNode) IsReflexive() bool   { return true }
func (IdenticalNode) IsCommutative() bool { return true }

func (IdenticalNode) RetrieveMatches(lhs annis.Match) MatchIterator {
	return singleMatch(lhs.Node)
}

func (IdenticalNode) Filter(lhs, rhs annis.Match) bool { return lhs.Node == rhs.Node }

func (IdenticalNode) Selectivity() float64         { return defaultSelectivity }
func (IdenticalNode) EdgeAnnoSelectivity() float64 { return 1.0 }
func (IdenticalNode) Description() string          { return "_ident_" }

var _ Operator = IdenticalNode{}
