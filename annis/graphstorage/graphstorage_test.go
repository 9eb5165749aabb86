package graphstorage

import (
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainEdges(n int) []annis.Edge {
	var edges []annis.Edge
	for i := 0; i < n-1; i++ {
		edges = append(edges, annis.Edge{Source: annis.NodeId(i), Target: annis.NodeId(i + 1)})
	}
	return edges
}

func TestAdjacencyReachabilityContract(t *testing.T) {
	// Every source edge must be connected at distance exactly 1.
	edges := []annis.Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}, {Source: 1, Target: 3}}
	s := buildAdjacency(edges)

	for _, e := range edges {
		assert.True(t, s.IsConnected(e, 1, 1), "edge %v should be connected at distance 1", e)
		assert.Equal(t, 1, s.Distance(e))
	}
	assert.True(t, s.IsConnected(annis.Edge{Source: 1, Target: 3}, 1, 2))
	assert.Equal(t, -1, s.Distance(annis.Edge{Source: 3, Target: 1}))
}

func TestLinearStorageValidityAndReachability(t *testing.T) {
	edges := chainEdges(5)
	ls := NewLinearStorage(8)
	require.True(t, ls.Build(edges))
	ls.CalculateStatistics()

	for _, e := range edges {
		assert.True(t, ls.IsConnected(e, 1, 1))
		assert.Equal(t, 1, ls.Distance(e))
	}
	assert.Equal(t, 2, ls.Distance(annis.Edge{Source: 0, Target: 2}))
	assert.Equal(t, -1, ls.Distance(annis.Edge{Source: 2, Target: 0}))

	// A branching graph is not chain-shaped: Build must reject it.
	branching := []annis.Edge{{Source: 1, Target: 2}, {Source: 1, Target: 3}}
	ls2 := NewLinearStorage(8)
	assert.False(t, ls2.Build(branching))
}

func TestPrePostMatchesAdjacencyForTree(t *testing.T) {
	// 1 -> 2 -> 4
	//   -> 3
	edges := []annis.Edge{
		{Source: 1, Target: 2},
		{Source: 1, Target: 3},
		{Source: 2, Target: 4},
	}
	adj := buildAdjacency(edges)

	pp := NewPrePostStorage(32, 32)
	cyclic := pp.Build([]annis.NodeId{1}, adj.GetOutgoingEdges)
	pp.numEdges = len(edges)
	pp.CalculateStatistics()
	require.False(t, cyclic)

	nodes := []annis.NodeId{1, 2, 3, 4}
	for _, u := range nodes {
		for _, v := range nodes {
			adjConnected := adj.IsConnected(annis.Edge{Source: u, Target: v}, 1, 3)
			ppConnected := pp.IsConnected(annis.Edge{Source: u, Target: v}, 1, 3)
			assert.Equal(t, adjConnected, ppConnected, "pair (%d,%d)", u, v)
		}
	}
}

func TestRegistrySelection(t *testing.T) {
	reg := NewRegistry()

	shallow := Statistics{Valid: true, MaxDepth: 1}
	assert.Equal(t, ImplAdjacencyList, reg.SelectImplementation(annis.Component{}, shallow))

	treeChain := Statistics{Valid: true, RootedTree: true, MaxFanOut: 1, MaxDepth: 100}
	assert.Equal(t, ImplLinearP8, reg.SelectImplementation(annis.Component{}, treeChain))

	treeBranching := Statistics{Valid: true, RootedTree: true, MaxFanOut: 3, MaxDepth: 5, Nodes: 10}
	assert.Equal(t, ImplPrePostO16L8, reg.SelectImplementation(annis.Component{}, treeBranching))

	cyclicDeep := Statistics{Valid: true, Cyclic: true, MaxDepth: 5, DFSVisitRatio: 2.0}
	assert.Equal(t, ImplAdjacencyList, reg.SelectImplementation(annis.Component{}, cyclicDeep))

	acyclicLowRatio := Statistics{Valid: true, MaxDepth: 5, DFSVisitRatio: 1.0, Nodes: 10}
	assert.Equal(t, ImplPrePostO16L8, reg.SelectImplementation(annis.Component{}, acyclicLowRatio))

	override := annis.Component{Type: annis.ComponentDominance, Layer: "syntax", Name: "const"}
	reg.SetImplementation(ImplAdjacencyList, annis.ComponentDominance, "syntax", "const")
	assert.Equal(t, ImplAdjacencyList, reg.SelectImplementation(override, treeBranching))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	edges := []annis.Edge{{Source: 1, Target: 2}, {Source: 2, Target: 3}}
	s := buildAdjacency(edges)
	s.AddEdgeAnnotation(edges[0], annis.Annotation{Key: annis.AnnotationKey{Name: 1, Ns: 1}, Val: 2})

	data, err := s.Save()
	require.NoError(t, err)

	restored := NewAdjacencyListStorage()
	require.NoError(t, restored.Load(data))

	assert.Equal(t, s.NumEdges(), restored.NumEdges())
	assert.Equal(t, s.GetEdgeAnnotations(edges[0]), restored.GetEdgeAnnotations(edges[0]))
	assert.True(t, restored.IsConnected(annis.Edge{Source: 1, Target: 2}, 1, 1))
}
