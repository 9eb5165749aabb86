package planner

import (
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOp is a minimal operator.Operator stand-in: the planner only ever
// calls the cost-model accessors (Selectivity/EdgeAnnoSelectivity/
// IsCommutative), never RetrieveMatches/Filter, so those are unreachable.
type fakeOp struct {
	sel         float64
	edgeSel     float64
	commutative bool
	reflexive   bool
}

func (f fakeOp) RetrieveMatches(lhs annis.Match) operator.MatchIterator {
	panic("not used by the planner")
}
func (f fakeOp) Filter(lhs, rhs annis.Match) bool { panic("not used by the planner") }
func (f fakeOp) IsReflexive() bool                { return f.reflexive }
func (f fakeOp) IsCommutative() bool              { return f.commutative }
func (f fakeOp) Valid() bool                      { return true }
func (f fakeOp) Selectivity() float64             { return f.sel }
func (f fakeOp) EdgeAnnoSelectivity() float64     { return f.edgeSel }
func (f fakeOp) Description() string              { return "fake" }

func fakeOps(n int, sel float64, commutative bool) []operator.Operator {
	ops := make([]operator.Operator, n)
	for i := range ops {
		ops[i] = fakeOp{sel: sel, edgeSel: 1.0, commutative: commutative}
	}
	return ops
}

func TestBuildTwoNodeSeedIndexJoin(t *testing.T) {
	q := &query.Query{
		Nodes: map[query.NodeIndex]query.NodeSpec{
			0: {},
			1: {},
		},
		Joins: []query.JoinSpec{
			{Op: query.OpIdenticalNode, Left: 0, Right: 1},
		},
	}
	estimate := func(idx query.NodeIndex, spec query.NodeSpec) float64 { return 100 }

	plan, err := Build(q, fakeOps(1, 0.1, true), estimate, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, KindSeedIndex, plan.Kind)
	assert.Len(t, plan.NodePos, 2)
}

func TestBuildThreeNodeChain(t *testing.T) {
	q := &query.Query{
		Nodes: map[query.NodeIndex]query.NodeSpec{
			0: {}, 1: {}, 2: {},
		},
		Joins: []query.JoinSpec{
			{Op: query.OpPrecedence, Left: 0, Right: 1},
			{Op: query.OpPrecedence, Left: 1, Right: 2},
		},
	}
	estimate := func(idx query.NodeIndex, spec query.NodeSpec) float64 { return 1000 }

	plan, err := Build(q, fakeOps(2, 0.2, false), estimate, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, plan.NodePos, 3)
	assert.True(t, plan.Estimate > 0)
}

func TestBuildRejectsUnjoinedNode(t *testing.T) {
	q := &query.Query{
		Nodes: map[query.NodeIndex]query.NodeSpec{
			0: {}, 1: {}, 2: {},
		},
		Joins: []query.JoinSpec{
			{Op: query.OpPrecedence, Left: 0, Right: 1},
		},
	}
	estimate := func(idx query.NodeIndex, spec query.NodeSpec) float64 { return 1000 }

	_, err := Build(q, fakeOps(1, 0.2, false), estimate, DefaultOptions())
	assert.Error(t, err)
}

func TestBuildMismatchedOperatorCount(t *testing.T) {
	q := &query.Query{
		Nodes: map[query.NodeIndex]query.NodeSpec{0: {}, 1: {}},
		Joins: []query.JoinSpec{{Op: query.OpPrecedence, Left: 0, Right: 1}},
	}
	estimate := func(idx query.NodeIndex, spec query.NodeSpec) float64 { return 10 }

	_, err := Build(q, nil, estimate, DefaultOptions())
	assert.Error(t, err)
}

func TestGreedyFallbackJoinsAllNodes(t *testing.T) {
	n := 8
	nodes := make(map[query.NodeIndex]query.NodeSpec, n)
	for i := 0; i < n; i++ {
		nodes[query.NodeIndex(i)] = query.NodeSpec{}
	}
	var joins []query.JoinSpec
	for i := 0; i < n-1; i++ {
		joins = append(joins, query.JoinSpec{Op: query.OpPrecedence, Left: query.NodeIndex(i), Right: query.NodeIndex(i + 1)})
	}
	q := &query.Query{Nodes: nodes, Joins: joins}
	estimate := func(idx query.NodeIndex, spec query.NodeSpec) float64 { return 500 }

	opts := DefaultOptions()
	opts.AllPermutationsThreshold = 3 // force the greedy path with 7 joins
	plan, err := Build(q, fakeOps(len(joins), 0.3, false), estimate, opts)
	require.NoError(t, err)
	assert.Len(t, plan.NodePos, n)
}

func TestExhaustiveOrderingJoinsStar(t *testing.T) {
	// A star: node 0 joined to 1, 2 and 3. Estimates are wildly different,
	// so the join orders differ in intermediate cost.
	q := &query.Query{
		Nodes: map[query.NodeIndex]query.NodeSpec{
			0: {}, 1: {}, 2: {}, 3: {},
		},
		Joins: []query.JoinSpec{
			{Op: query.OpPrecedence, Left: 0, Right: 1},
			{Op: query.OpPrecedence, Left: 0, Right: 2},
			{Op: query.OpPrecedence, Left: 0, Right: 3},
		},
	}
	estimates := map[query.NodeIndex]float64{0: 10, 1: 5000, 2: 5, 3: 20}
	estimate := func(idx query.NodeIndex, spec query.NodeSpec) float64 { return estimates[idx] }

	opts := DefaultOptions()
	plan, err := Build(q, fakeOps(3, 0.5, false), estimate, opts)
	require.NoError(t, err)
	assert.Len(t, plan.NodePos, 4)
	assert.True(t, planCost(plan) > 0)
}

func TestOperandSwitchAvoidsNestedLoopWhenPossible(t *testing.T) {
	q := &query.Query{
		Nodes: map[query.NodeIndex]query.NodeSpec{
			0: {}, 1: {},
		},
		Joins: []query.JoinSpec{
			{Op: query.OpOverlap, Left: 0, Right: 1},
		},
	}
	estimate := func(idx query.NodeIndex, spec query.NodeSpec) float64 { return 100 }

	plan, err := Build(q, fakeOps(1, 0.2, true), estimate, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, KindSeedIndex, plan.Kind)
}

func TestPlanCacheHitsAndEviction(t *testing.T) {
	cache := NewPlanCache(2, 0)
	_, ok := cache.Get("missing")
	assert.False(t, ok)

	plan := &PlanNode{Kind: KindBase}
	cache.Set("a", plan)
	got, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Same(t, plan, got)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	cache.Set("b", &PlanNode{Kind: KindBase})
	cache.Set("c", &PlanNode{Kind: KindBase}) // evicts oldest since maxSize=2
	_, stillThere := cache.Get("a")
	assert.False(t, stillThere)

	cache.Clear()
	_, ok = cache.Get("b")
	assert.False(t, ok)
}
