// Package operator implements the binary relations used by queries:
// token precedence, inclusion, overlap, coverage identity, node identity
// and the edge-reachability relations (dominance, pointing, sub-corpus
// membership).
package operator

import (
	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/annoindex"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
	"github.com/korpling/graphANNIS-sub001/annis/stringpool"
)

// MatchIterator enumerates Match values produced by Operator.RetrieveMatches.
type MatchIterator interface {
	Next() bool
	Match() annis.Match
	Close()
}

// Operator is the shared interface every binary relation implements.
type Operator interface {
	RetrieveMatches(lhs annis.Match) MatchIterator
	Filter(lhs, rhs annis.Match) bool
	IsReflexive() bool
	IsCommutative() bool
	Valid() bool
	Selectivity() float64
	EdgeAnnoSelectivity() float64
	Description() string
}

// StorageLookup resolves the graph storages backing a component filter, as
// a corpus provides it. Layer == "" matches every layer of componentType;
// name is always matched exactly (the empty name is itself a valid
// component name, e.g. for ORDERING/LEFT_TOKEN/RIGHT_TOKEN).
type StorageLookup interface {
	GraphStorages(componentType annis.ComponentType, layer, name string) []graphstorage.ReadableGraphStorage

	// AllNodes enumerates every node id known to the corpus. The
	// span-relation operators (Inclusion, IdenticalCoverage) enumerate
	// candidates this way and test each candidate's resolved anchors
	// directly, trading index locality for a simpler,
	// single-directional graph-storage contract.
	AllNodes() []annis.NodeId
}

// sliceIterator walks a pre-computed, deduplicated slice of matches in
// order.
type sliceIterator struct {
	matches []annis.Match
	idx     int
}

func newSliceIterator(matches []annis.Match) *sliceIterator {
	return &sliceIterator{matches: matches, idx: -1}
}

func (it *sliceIterator) Next() bool {
	it.idx++
	return it.idx < len(it.matches)
}

func (it *sliceIterator) Match() annis.Match { return it.matches[it.idx] }
func (it *sliceIterator) Close()             {}

func emptyIterator() MatchIterator { return newSliceIterator(nil) }

func singleMatch(node annis.NodeId) MatchIterator {
	return newSliceIterator([]annis.Match{{Node: node, Anno: annis.WildcardAnnotation}})
}

// TokenHelper resolves the left/right anchor tokens of any node: a node
// with the built-in `tok` annotation is a token; otherwise its anchors are
// the single outgoing targets in LEFT_TOKEN/RIGHT_TOKEN.
type TokenHelper struct {
	annos      *annoindex.Index
	annisNs    annis.StringId
	tokName    annis.StringId
	leftEdges  graphstorage.ReadableGraphStorage
	rightEdges graphstorage.ReadableGraphStorage
}

// NewTokenHelper builds a token helper from the corpus's annotation index
// and its LEFT_TOKEN/RIGHT_TOKEN storages (either may be nil for a
// token-only corpus with no non-token nodes).
func NewTokenHelper(pool *stringpool.Pool, annos *annoindex.Index, left, right graphstorage.ReadableGraphStorage) *TokenHelper {
	ns, _ := pool.FindId(annis.AnnisNs)
	tok, _ := pool.FindId(annis.AnnisTok)
	return &TokenHelper{annos: annos, annisNs: ns, tokName: tok, leftEdges: left, rightEdges: right}
}

func (h *TokenHelper) IsToken(n annis.NodeId) bool {
	_, ok := h.annos.Get(n, h.annisNs, h.tokName)
	return ok
}

func (h *TokenHelper) LeftToken(n annis.NodeId) annis.NodeId {
	if h.IsToken(n) || h.leftEdges == nil {
		return n
	}
	out := h.leftEdges.GetOutgoingEdges(n)
	if len(out) == 0 {
		return n
	}
	return out[0]
}

func (h *TokenHelper) RightToken(n annis.NodeId) annis.NodeId {
	if h.IsToken(n) || h.rightEdges == nil {
		return n
	}
	out := h.rightEdges.GetOutgoingEdges(n)
	if len(out) == 0 {
		return n
	}
	return out[0]
}

func (h *TokenHelper) LeftRightToken(n annis.NodeId) (left, right annis.NodeId) {
	if h.IsToken(n) {
		return n, n
	}
	return h.LeftToken(n), h.RightToken(n)
}

const defaultSelectivity = 0.1
