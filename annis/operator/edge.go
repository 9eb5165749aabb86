package operator

import (
	"fmt"
	"math"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
	"github.com/korpling/graphANNIS-sub001/annis/stringpool"
)

// EdgeOperator is the shared implementation behind Dominance, Pointing and
// PartOfSubCorpus: it owns every graph storage matching a component
// type/layer/name filter and realises reachability over all of them at
// once, deduplicating targets across storages.
type EdgeOperator struct {
	pool          *stringpool.Pool
	componentType annis.ComponentType
	symbol        string
	layer         string
	name          string
	minDistance   int
	maxDistance   int
	edgeAnno      annis.Annotation
	hasEdgeAnno   bool

	storages []graphstorage.ReadableGraphStorage
}

const unboundedDistance = math.MaxInt32

// NewEdgeOperator builds an edge operator for componentType restricted to
// the given layer ("" matches every layer) and name, with distance bounds
// [minDistance, maxDistance].
func NewEdgeOperator(lookup StorageLookup, pool *stringpool.Pool, componentType annis.ComponentType, symbol, layer, name string, minDistance, maxDistance int) *EdgeOperator {
	return &EdgeOperator{
		pool: pool, componentType: componentType, symbol: symbol, layer: layer, name: name,
		minDistance: minDistance, maxDistance: maxDistance,
		storages: lookup.GraphStorages(componentType, layer, name),
	}
}

// NewEdgeOperatorWithAnnotation builds an edge operator restricted to edges
// carrying edgeAnno, with the default distance bound [1,1].
func NewEdgeOperatorWithAnnotation(lookup StorageLookup, pool *stringpool.Pool, componentType annis.ComponentType, symbol, layer, name string, edgeAnno annis.Annotation) *EdgeOperator {
	op := NewEdgeOperator(lookup, pool, componentType, symbol, layer, name, 1, 1)
	op.edgeAnno = edgeAnno
	op.hasEdgeAnno = true
	return op
}

func (op *EdgeOperator) Valid() bool { return len(op.storages) > 0 }

func (op *EdgeOperator) IsReflexive() bool   { return true }
func (op *EdgeOperator) IsCommutative() bool { return false }

func (op *EdgeOperator) checkEdgeAnnotation(gs graphstorage.ReadableGraphStorage, source, target annis.NodeId) bool {
	if !op.hasEdgeAnno {
		return true
	}
	for _, a := range gs.GetEdgeAnnotations(annis.Edge{Source: source, Target: target}) {
		if a.Compare(op.edgeAnno) == 0 {
			return true
		}
	}
	return false
}

func (op *EdgeOperator) RetrieveMatches(lhs annis.Match) MatchIterator {
	if len(op.storages) == 0 {
		return emptyIterator()
	}
	if len(op.storages) == 1 {
		gs := op.storages[0]
		var matches []annis.Match
		it := gs.FindConnected(lhs.Node, op.minDistance, op.maxDistance)
		for it.Next() {
			if op.checkEdgeAnnotation(gs, lhs.Node, it.Node()) {
				matches = append(matches, annis.Match{Node: it.Node(), Anno: annis.WildcardAnnotation})
			}
		}
		it.Close()
		return newSliceIterator(matches)
	}

	unique := make(map[annis.NodeId]struct{})
	for _, gs := range op.storages {
		it := gs.FindConnected(lhs.Node, op.minDistance, op.maxDistance)
		for it.Next() {
			if op.checkEdgeAnnotation(gs, lhs.Node, it.Node()) {
				unique[it.Node()] = struct{}{}
			}
		}
		it.Close()
	}
	matches := make([]annis.Match, 0, len(unique))
	for n := range unique {
		matches = append(matches, annis.Match{Node: n, Anno: annis.WildcardAnnotation})
	}
	return newSliceIterator(matches)
}

func (op *EdgeOperator) Filter(lhs, rhs annis.Match) bool {
	for _, gs := range op.storages {
		if gs.IsConnected(annis.Edge{Source: lhs.Node, Target: rhs.Node}, op.minDistance, op.maxDistance) &&
			op.checkEdgeAnnotation(gs, lhs.Node, rhs.Node) {
			return true
		}
	}
	return false
}

// Selectivity is the sum over storages of the count reachable
// at maxDistance minus the count reachable at minDistance, normalised by
// node count; any cyclic storage makes the whole operator 1.0.
func (op *EdgeOperator) Selectivity() float64 {
	if len(op.storages) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, gs := range op.storages {
		stat := gs.GetStatistics()
		if stat.Cyclic {
			return 1.0
		}
		if stat.Nodes == 0 {
			continue
		}
		maxPath := op.maxDistance
		if stat.MaxDepth < maxPath {
			maxPath = stat.MaxDepth
		}
		minPath := op.minDistance - 1
		if minPath < 0 {
			minPath = 0
		}
		reachableMax := math.Ceil(stat.AvgFanOut * float64(maxPath))
		reachableMin := math.Ceil(stat.AvgFanOut * float64(minPath))
		sum += (reachableMax - reachableMin) / float64(stat.Nodes)
	}
	return sum
}

// EdgeAnnoSelectivity estimates the extra restriction an edge-annotation
// filter adds; 1.0 (no restriction) when none was given.
func (op *EdgeOperator) EdgeAnnoSelectivity() float64 {
	if !op.hasEdgeAnno {
		return 1.0
	}
	return defaultSelectivity
}

func (op *EdgeOperator) Description() string {
	result := op.symbol + op.name
	switch {
	case op.minDistance == 1 && op.maxDistance == 1:
		// base form, nothing to append
	case op.minDistance == 1 && op.maxDistance == unboundedDistance:
		result += " *"
	case op.minDistance == op.maxDistance:
		result += fmt.Sprintf(",%d", op.minDistance)
	default:
		result += fmt.Sprintf(",%d,%d", op.minDistance, op.maxDistance)
	}
	if op.hasEdgeAnno {
		result += fmt.Sprintf("[anno=%v]", op.edgeAnno)
	}
	return result
}

// NewDominance builds the `>` operator over DOMINANCE edges.
func NewDominance(lookup StorageLookup, pool *stringpool.Pool, layer, name string, minDistance, maxDistance int) *EdgeOperator {
	return NewEdgeOperator(lookup, pool, annis.ComponentDominance, ">", layer, name, minDistance, maxDistance)
}

// NewDominanceWithAnnotation builds `>` restricted to edges carrying edgeAnno.
func NewDominanceWithAnnotation(lookup StorageLookup, pool *stringpool.Pool, layer, name string, edgeAnno annis.Annotation) *EdgeOperator {
	return NewEdgeOperatorWithAnnotation(lookup, pool, annis.ComponentDominance, ">", layer, name, edgeAnno)
}

// NewPointing builds the `->` operator over POINTING edges.
func NewPointing(lookup StorageLookup, pool *stringpool.Pool, layer, name string, minDistance, maxDistance int) *EdgeOperator {
	return NewEdgeOperator(lookup, pool, annis.ComponentPointing, "->", layer, name, minDistance, maxDistance)
}

// NewPointingWithAnnotation builds `->` restricted to edges carrying edgeAnno.
func NewPointingWithAnnotation(lookup StorageLookup, pool *stringpool.Pool, layer, name string, edgeAnno annis.Annotation) *EdgeOperator {
	return NewEdgeOperatorWithAnnotation(lookup, pool, annis.ComponentPointing, "->", layer, name, edgeAnno)
}

// partOfSubCorpus wraps EdgeOperator to flip IsReflexive to false.
type partOfSubCorpus struct {
	*EdgeOperator
}

func (p partOfSubCorpus) IsReflexive() bool { return false }

// NewPartOfSubCorpus builds the transitive PART_OF_SUBCORPUS relation with
// an unbounded maximum distance.
func NewPartOfSubCorpus(lookup StorageLookup, pool *stringpool.Pool) Operator {
	base := NewEdgeOperator(lookup, pool, annis.ComponentPartOfSubCorpus, "@part-of@", "", "", 1, unboundedDistance)
	return partOfSubCorpus{base}
}
