package operator

import (
	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
)

func firstStorage(lookup StorageLookup, componentType annis.ComponentType, layer, name string) graphstorage.ReadableGraphStorage {
	storages := lookup.GraphStorages(componentType, layer, name)
	if len(storages) == 0 {
		return nil
	}
	return storages[0]
}

// Precedence implements `. n,m`: LHS' right token, stepped min..max along
// ORDERING, must equal RHS' left token. Non-reflexive, non-commutative.
type Precedence struct {
	tok         *TokenHelper
	gsOrder     graphstorage.ReadableGraphStorage
	minDistance int
	maxDistance int
}

func NewPrecedence(lookup StorageLookup, tok *TokenHelper, minDistance, maxDistance int) *Precedence {
	return &Precedence{tok: tok, gsOrder: firstStorage(lookup, annis.ComponentOrdering, "", ""), minDistance: minDistance, maxDistance: maxDistance}
}

func (p *Precedence) Valid() bool { return p.gsOrder != nil }

func (p *Precedence) IsReflexive() bool   { return false }
func (p *Precedence) IsCommutative() bool { return false }

func (p *Precedence) RetrieveMatches(lhs annis.Match) MatchIterator {
	if p.gsOrder == nil {
		return emptyIterator()
	}
	rightTok := p.tok.RightToken(lhs.Node)
	var matches []annis.Match
	it := p.gsOrder.FindConnected(rightTok, p.minDistance, p.maxDistance)
	for it.Next() {
		matches = append(matches, annis.Match{Node: it.Node(), Anno: annis.WildcardAnnotation})
	}
	it.Close()
	return newSliceIterator(matches)
}

func (p *Precedence) Filter(lhs, rhs annis.Match) bool {
	if p.gsOrder == nil {
		return false
	}
	rightTok := p.tok.RightToken(lhs.Node)
	leftTok := p.tok.LeftToken(rhs.Node)
	return p.gsOrder.IsConnected(annis.Edge{Source: rightTok, Target: leftTok}, p.minDistance, p.maxDistance)
}

// Selectivity is (max-min+1) over the ORDERING component's average fan-out.
func (p *Precedence) Selectivity() float64 {
	if p.gsOrder == nil {
		return defaultSelectivity
	}
	stat := p.gsOrder.GetStatistics()
	if stat.AvgFanOut <= 0 {
		return defaultSelectivity
	}
	return float64(p.maxDistance-p.minDistance+1) / stat.AvgFanOut
}

func (p *Precedence) EdgeAnnoSelectivity() float64 { return 1.0 }

func (p *Precedence) Description() string { return "precedence" }

var _ Operator = (*Precedence)(nil)
