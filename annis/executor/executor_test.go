package executor

import (
	"sort"
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/planner"
	"github.com/korpling/graphANNIS-sub001/annis/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matchSlice is a minimal operator.MatchIterator over a fixed slice,
// standing in for the corpus-backed iterators operator.RetrieveMatches
// normally returns.
type matchSlice struct {
	matches []annis.Match
	idx     int
}

func newMatchSlice(m []annis.Match) *matchSlice { return &matchSlice{matches: m, idx: -1} }
func (s *matchSlice) Next() bool                { s.idx++; return s.idx < len(s.matches) }
func (s *matchSlice) Match() annis.Match        { return s.matches[s.idx] }
func (s *matchSlice) Close()                    {}

// succOp relates lhs -> lhs+1, i.e. a toy "precedence"-shaped operator: it
// always retrieves exactly one candidate, the node one past lhs.
type succOp struct{ reflexive bool }

func (o succOp) RetrieveMatches(lhs annis.Match) operator.MatchIterator {
	return newMatchSlice([]annis.Match{{Node: lhs.Node + 1, Anno: annis.WildcardAnnotation}})
}
func (o succOp) Filter(lhs, rhs annis.Match) bool { return rhs.Node == lhs.Node+1 }
func (o succOp) IsReflexive() bool                { return o.reflexive }
func (o succOp) IsCommutative() bool              { return false }
func (o succOp) Valid() bool                      { return true }
func (o succOp) Selectivity() float64             { return 1 }
func (o succOp) EdgeAnnoSelectivity() float64     { return 1 }
func (o succOp) Description() string              { return "succ" }

// fakeMatcher treats every node in `present` as matching any NodeSpec; it
// never distinguishes specs, which is enough to exercise join shapes.
type fakeMatcher struct {
	present map[annis.NodeId]annis.Annotation
}

func (m *fakeMatcher) Search(spec query.NodeSpec) Iterator {
	var nodes []annis.NodeId
	for n := range m.present {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	matches := make([]annis.Match, len(nodes))
	for i, n := range nodes {
		matches[i] = annis.Match{Node: n, Anno: m.present[n]}
	}
	return newSliceIterator(wrapTuples(matches))
}

func (m *fakeMatcher) CheckAndAnnotate(node annis.NodeId, spec query.NodeSpec) (annis.Annotation, bool) {
	anno, ok := m.present[node]
	return anno, ok
}

func wrapTuples(matches []annis.Match) []Tuple {
	out := make([]Tuple, len(matches))
	for i, m := range matches {
		out[i] = Tuple{m}
	}
	return out
}

func collect(t *testing.T, it Iterator) []Tuple {
	t.Helper()
	var out []Tuple
	for it.Next() {
		out = append(out, it.Tuple().clone())
	}
	require.NoError(t, it.Close())
	return out
}

func baseNode(spec query.NodeSpec, pos int) *planner.PlanNode {
	return &planner.PlanNode{Kind: planner.KindBase, Spec: spec, NodePos: map[query.NodeIndex]int{0: pos}}
}

func TestSeedIndexJoinFiltersCandidatesAgainstRHSSpec(t *testing.T) {
	matcher := &fakeMatcher{present: map[annis.NodeId]annis.Annotation{
		1: annis.WildcardAnnotation, 2: annis.WildcardAnnotation, 3: annis.WildcardAnnotation,
		// node 4 is reachable via succOp(3) but not a known corpus node.
	}}
	left := matcher.Search(query.NodeSpec{})

	node := &planner.PlanNode{
		Kind: planner.KindSeedIndex,
		Op:   succOp{},
		Left: baseNode(query.NodeSpec{}, 0),
		Right: &planner.PlanNode{Kind: planner.KindBase, Spec: query.NodeSpec{}},
		LHSPos: 0,
	}

	it := buildSeedIndex(node, left, matcher)
	tuples := collect(t, it)

	// lhs=1 -> succ(1)=2 (present), lhs=2 -> succ(2)=3 (present),
	// lhs=3 -> succ(3)=4 (absent, dropped).
	require.Len(t, tuples, 2)
	assert.Equal(t, annis.NodeId(1), tuples[0][0].Node)
	assert.Equal(t, annis.NodeId(2), tuples[0][1].Node)
	assert.Equal(t, annis.NodeId(2), tuples[1][0].Node)
	assert.Equal(t, annis.NodeId(3), tuples[1][1].Node)
}

func TestSeedIndexJoinDropsReflexiveSelfMatch(t *testing.T) {
	matcher := &fakeMatcher{present: map[annis.NodeId]annis.Annotation{1: annis.WildcardAnnotation}}
	left := matcher.Search(query.NodeSpec{})

	node := &planner.PlanNode{
		Kind: planner.KindSeedIndex,
		Op:   identityOp{},
		Left: baseNode(query.NodeSpec{}, 0),
		Right: &planner.PlanNode{Kind: planner.KindBase, Spec: query.NodeSpec{}},
		LHSPos: 0,
	}
	it := buildSeedIndex(node, left, matcher)
	tuples := collect(t, it)
	assert.Empty(t, tuples, "non-reflexive operator must drop a candidate identical to its own lhs node")
}

// identityOp always returns the same node it was given as lhs, used to
// exercise the non-reflexive self-match rejection.
type identityOp struct{}

func (identityOp) RetrieveMatches(lhs annis.Match) operator.MatchIterator {
	return newMatchSlice([]annis.Match{{Node: lhs.Node, Anno: annis.WildcardAnnotation}})
}
func (identityOp) Filter(lhs, rhs annis.Match) bool { return lhs.Node == rhs.Node }
func (identityOp) IsReflexive() bool                { return false }
func (identityOp) IsCommutative() bool              { return true }
func (identityOp) Valid() bool                      { return true }
func (identityOp) Selectivity() float64             { return 1 }
func (identityOp) EdgeAnnoSelectivity() float64     { return 1 }
func (identityOp) Description() string              { return "identity" }

func TestFilterIteratorKeepsOnlyMatchingPairs(t *testing.T) {
	tuples := []Tuple{
		{annis.Match{Node: 1}, annis.Match{Node: 2}},
		{annis.Match{Node: 2}, annis.Match{Node: 3}},
		{annis.Match{Node: 3}, annis.Match{Node: 1}},
	}
	child := newSliceIterator(tuples)

	node := &planner.PlanNode{Kind: planner.KindFilter, Op: succOp{}, LHSPos: 0, RHSPos: 1}
	it := buildFilter(node, child)
	out := collect(t, it)

	require.Len(t, out, 2)
	assert.Equal(t, annis.NodeId(1), out[0][0].Node)
	assert.Equal(t, annis.NodeId(2), out[1][0].Node)
}

func TestNestedLoopJoinCombinesBothSidesWithBaseInnerRebuilt(t *testing.T) {
	matcher := &fakeMatcher{present: map[annis.NodeId]annis.Annotation{
		1: annis.WildcardAnnotation, 2: annis.WildcardAnnotation, 3: annis.WildcardAnnotation,
	}}

	leftNode := baseNode(query.NodeSpec{}, 0)
	rightNode := baseNode(query.NodeSpec{}, 1)
	node := &planner.PlanNode{
		Kind: planner.KindNestedLoop,
		Op:   succOp{},
		Left: leftNode, Right: rightNode,
		Outer: leftNode, Inner: rightNode,
		LHSPos: 0, RHSPos: 1,
	}

	leftIter := matcher.Search(query.NodeSpec{})
	rightIter := matcher.Search(query.NodeSpec{})
	rebuildRight := func() Iterator { return matcher.Search(query.NodeSpec{}) }
	rebuildLeft := func() Iterator { return matcher.Search(query.NodeSpec{}) }

	it, err := buildNestedLoop(node, leftIter, rightIter, rebuildLeft, rebuildRight)
	require.NoError(t, err)
	out := collect(t, it)

	require.Len(t, out, 2)
	pairs := map[[2]annis.NodeId]bool{}
	for _, tup := range out {
		pairs[[2]annis.NodeId{tup[0].Node, tup[1].Node}] = true
	}
	assert.True(t, pairs[[2]annis.NodeId{1, 2}])
	assert.True(t, pairs[[2]annis.NodeId{2, 3}])
}

func TestWorkerPoolRunsSubmittedJobs(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	results := make(chan int, 10)
	for i := 0; i < 10; i++ {
		i := i
		pool.Submit(func() { results <- i * i })
	}

	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		seen[<-results] = true
	}
	for _, want := range []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81} {
		assert.True(t, seen[want], "missing result %d", want)
	}
}

func TestParallelSeedIndexJoinProducesSameSetAsSequential(t *testing.T) {
	matcher := &fakeMatcher{present: map[annis.NodeId]annis.Annotation{
		1: annis.WildcardAnnotation, 2: annis.WildcardAnnotation, 3: annis.WildcardAnnotation, 4: annis.WildcardAnnotation,
	}}

	node := &planner.PlanNode{
		Kind: planner.KindParallelIndex,
		Op:   succOp{},
		Left: baseNode(query.NodeSpec{}, 0),
		Right: &planner.PlanNode{Kind: planner.KindBase, Spec: query.NodeSpec{}},
		LHSPos: 0,
	}

	pool := NewWorkerPool(4)
	defer pool.Close()

	seqIt := buildSeedIndex(node, matcher.Search(query.NodeSpec{}), matcher)
	seq := collect(t, seqIt)

	parIt := buildParallelSeedIndex(node, matcher.Search(query.NodeSpec{}), matcher, pool, 4)
	par := collect(t, parIt)

	seqSet := map[[2]annis.NodeId]bool{}
	for _, tup := range seq {
		seqSet[[2]annis.NodeId{tup[0].Node, tup[1].Node}] = true
	}
	parSet := map[[2]annis.NodeId]bool{}
	for _, tup := range par {
		parSet[[2]annis.NodeId{tup[0].Node, tup[1].Node}] = true
	}
	assert.Equal(t, seqSet, parSet, "parallel and sequential seed-index joins must agree as sets")
}

func TestBuildCompilesBaseAndFilterKinds(t *testing.T) {
	matcher := &fakeMatcher{present: map[annis.NodeId]annis.Annotation{1: annis.WildcardAnnotation, 2: annis.WildcardAnnotation}}

	base := baseNode(query.NodeSpec{}, 0)
	it, err := Build(base, matcher, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, collect(t, it))

	filterNode := &planner.PlanNode{Kind: planner.KindFilter, Op: succOp{}, Left: base, LHSPos: 0, RHSPos: 0}
	it, err = Build(filterNode, matcher, DefaultOptions(), nil)
	require.NoError(t, err)
	_ = collect(t, it)
}
