// Package graphstorage implements per-component edge storage: a common
// ReadableGraphStorage/WriteableGraphStorage interface
// pair, three concrete implementations (adjacency list, linear chain,
// pre/post order) optimised for different reachability shapes, and the
// registry that picks an implementation for a newly built component from
// its statistics.
package graphstorage

import "github.com/korpling/graphANNIS-sub001"

// Statistics describes the shape of one component's graph: computed
// once after a component is built (or rebuilt via update_statistics) and
// consulted both by the registry (to pick an implementation) and by the
// planner (to estimate operator selectivity).
type Statistics struct {
	Valid         bool
	Cyclic        bool
	RootedTree    bool
	Nodes         int
	AvgFanOut     float64
	MaxFanOut     int
	MaxDepth      int
	DFSVisitRatio float64
}

// EdgeIterator enumerates reachable targets of a find_connected search. It
// is lazy, finite, and not restartable after exhaustion without Reset.
type EdgeIterator interface {
	// Next advances to the next reachable node, returning false once
	// exhausted.
	Next() bool
	// Node returns the current reachable node. Only valid after Next
	// returned true.
	Node() annis.NodeId
	// Reset restarts the iterator from its original source/bounds.
	Reset()
	// Close releases any resources held by the iterator.
	Close()
}

// ReadableGraphStorage is the read-only capability set every graph storage
// implementation provides.
type ReadableGraphStorage interface {
	// IsConnected reports whether edge.Target is reachable from edge.Source
	// in [minDist, maxDist] steps (see FindConnected for multi-target
	// search).
	IsConnected(edge annis.Edge, minDist, maxDist int) bool
	// FindConnected returns a lazy iterator over every node reachable from
	// source within [minDist, maxDist] steps.
	FindConnected(source annis.NodeId, minDist, maxDist int) EdgeIterator
	// Distance returns the shortest-path distance of edge, or -1 if
	// edge.Target is unreachable from edge.Source.
	Distance(edge annis.Edge) int
	// GetOutgoingEdges returns the direct (distance-1) targets of node.
	GetOutgoingEdges(node annis.NodeId) []annis.NodeId
	// GetEdgeAnnotations returns the annotations carried by edge.
	GetEdgeAnnotations(edge annis.Edge) []annis.Annotation
	// NumEdges returns the total number of distinct edges stored.
	NumEdges() int
	// NumEdgeAnnotations returns the total number of (edge, annotation)
	// pairs stored.
	NumEdgeAnnotations() int
	// GetStatistics returns the storage's precomputed statistics.
	GetStatistics() Statistics
	// EstimateMemorySize returns an approximate in-memory footprint, in
	// bytes, used by the corpus cache's eviction accounting.
	EstimateMemorySize() int64
	// Save serializes the storage to a binary form suitable for the
	// persisted on-disk layout.
	Save() ([]byte, error)
}

// WriteableGraphStorage additionally supports mutation, used during
// import. The capability is part of the shared interface so a single
// construction pipeline can build any of the three implementations
// uniformly.
type WriteableGraphStorage interface {
	ReadableGraphStorage
	AddEdge(edge annis.Edge)
	AddEdgeAnnotation(edge annis.Edge, anno annis.Annotation)
	Clear()
	CalculateStatistics()
	Load(data []byte) error
}

// ImplementationName identifies a concrete storage implementation, used by
// the registry both for explicit overrides and for the on-disk
// "implementation" marker file.
type ImplementationName string

const (
	ImplAdjacencyList ImplementationName = "adjacencylist"
	ImplLinearP8      ImplementationName = "linear_p8"
	ImplLinearP16     ImplementationName = "linear_p16"
	ImplLinearP32     ImplementationName = "linear_p32"
	ImplPrePostO16L8  ImplementationName = "prepost_o16_l8"
	ImplPrePostO16L32 ImplementationName = "prepost_o16_l32"
	ImplPrePostO32L8  ImplementationName = "prepost_o32_l8"
	ImplPrePostO32L32 ImplementationName = "prepost_o32_l32"
)
