// Package query defines the intermediate query form consumed by the
// planner and the results-facing API (count/find/plan).
package query

import "github.com/korpling/graphANNIS-sub001"

// NodeIndex identifies a query node position within a Query's Nodes map
// and, after planning, a tuple position.
type NodeIndex int

// MatchingKind selects how an annotation value is compared.
type MatchingKind int

const (
	ExactEqual MatchingKind = iota
	RegexEqual
)

// AnnotationConstraint restricts a node to carrying an annotation that
// matches (ns?, name, value?, matching).
type AnnotationConstraint struct {
	Ns       string // "" = any namespace
	HasNs    bool
	Name     string
	Value    string
	HasValue bool // false = any value, just require the key to be present
	Matching MatchingKind
}

// NodeSpec describes a single query node's predicate.
type NodeSpec struct {
	Annotations []AnnotationConstraint

	SpanText         string
	HasSpanText      bool
	SpanTextMatching MatchingKind

	TokenOnly bool // true = node must be a token
}

// Unconstrained reports whether this NodeSpec matches every node.
func (n NodeSpec) Unconstrained() bool {
	return len(n.Annotations) == 0 && !n.HasSpanText && !n.TokenOnly
}

// OperatorKind names the binary relation a JoinSpec applies.
type OperatorKind int

const (
	OpPrecedence OperatorKind = iota
	OpInclusion
	OpOverlap
	OpIdenticalCoverage
	OpIdenticalNode
	OpDominance
	OpPointing
	OpPartOfSubCorpus
)

// JoinSpec describes one binary operator between two query nodes.
type JoinSpec struct {
	Op    OperatorKind
	Left  NodeIndex
	Right NodeIndex

	MinDistance int
	MaxDistance int
	HasDistance bool // false = operator-specific default (usually [1,1])

	Layer string
	Name  string

	EdgeAnnotation    annis.Annotation
	HasEdgeAnnotation bool

	ForceNestedLoop bool
}

// NormalizedDistance rewrites min=max=0 ("unbounded") into [1, MaxInt32].
func (j JoinSpec) NormalizedDistance() (min, max int) {
	if !j.HasDistance {
		return 1, 1
	}
	if j.MinDistance == 0 && j.MaxDistance == 0 {
		return 1, 1<<31 - 1
	}
	return j.MinDistance, j.MaxDistance
}

// Query is one alternative of the intermediate form: a set of node
// predicates and the operators relating them.
type Query struct {
	Nodes map[NodeIndex]NodeSpec
	Joins []JoinSpec
}
