package operator

import (
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/annoindex"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
	"github.com/korpling/graphANNIS-sub001/annis/stringpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCorpus is a minimal StorageLookup for operator tests: three tokens
// (1,2,3) in ORDERING order, and one span (10) covering tokens 1 and 2.
type fakeCorpus struct {
	storages map[annis.ComponentType]graphstorage.ReadableGraphStorage
	nodes    []annis.NodeId
}

func (f *fakeCorpus) GraphStorages(t annis.ComponentType, layer, name string) []graphstorage.ReadableGraphStorage {
	if gs, ok := f.storages[t]; ok {
		return []graphstorage.ReadableGraphStorage{gs}
	}
	return nil
}

func (f *fakeCorpus) AllNodes() []annis.NodeId { return f.nodes }

func buildFakeCorpus(t *testing.T) (*fakeCorpus, *stringpool.Pool, *annoindex.Index) {
	t.Helper()
	pool := stringpool.New()
	ns := pool.Add(annis.AnnisNs)
	tokName := pool.Add(annis.AnnisTok)
	annos := annoindex.New(pool)

	for _, n := range []annis.NodeId{1, 2, 3} {
		annos.Add(n, annis.Annotation{Key: annis.AnnotationKey{Name: tokName, Ns: ns}, Val: pool.Add("tok")})
	}

	order := graphstorage.NewAdjacencyListStorage()
	order.AddEdge(annis.Edge{Source: 1, Target: 2})
	order.AddEdge(annis.Edge{Source: 2, Target: 3})
	order.CalculateStatistics()

	leftTok := graphstorage.NewAdjacencyListStorage()
	leftTok.AddEdge(annis.Edge{Source: 10, Target: 1})
	leftTok.CalculateStatistics()

	rightTok := graphstorage.NewAdjacencyListStorage()
	rightTok.AddEdge(annis.Edge{Source: 10, Target: 2})
	rightTok.CalculateStatistics()

	coverage := graphstorage.NewAdjacencyListStorage()
	coverage.AddEdge(annis.Edge{Source: 10, Target: 1})
	coverage.AddEdge(annis.Edge{Source: 10, Target: 2})
	coverage.CalculateStatistics()

	invCoverage := graphstorage.NewAdjacencyListStorage()
	invCoverage.AddEdge(annis.Edge{Source: 1, Target: 10})
	invCoverage.AddEdge(annis.Edge{Source: 2, Target: 10})
	invCoverage.CalculateStatistics()

	fc := &fakeCorpus{
		storages: map[annis.ComponentType]graphstorage.ReadableGraphStorage{
			annis.ComponentOrdering:        order,
			annis.ComponentLeftToken:       leftTok,
			annis.ComponentRightToken:      rightTok,
			annis.ComponentCoverage:        coverage,
			annis.ComponentInverseCoverage: invCoverage,
		},
		nodes: []annis.NodeId{1, 2, 3, 10},
	}
	return fc, pool, annos
}

func TestTokenHelper(t *testing.T) {
	fc, pool, annos := buildFakeCorpus(t)
	tok := NewTokenHelper(pool, annos, fc.storages[annis.ComponentLeftToken], fc.storages[annis.ComponentRightToken])

	assert.True(t, tok.IsToken(1))
	assert.False(t, tok.IsToken(10))

	l, r := tok.LeftRightToken(10)
	assert.Equal(t, annis.NodeId(1), l)
	assert.Equal(t, annis.NodeId(2), r)

	l, r = tok.LeftRightToken(1)
	assert.Equal(t, annis.NodeId(1), l)
	assert.Equal(t, annis.NodeId(1), r)
}

func TestPrecedence(t *testing.T) {
	fc, pool, annos := buildFakeCorpus(t)
	tok := NewTokenHelper(pool, annos, fc.storages[annis.ComponentLeftToken], fc.storages[annis.ComponentRightToken])
	prec := NewPrecedence(fc, tok, 1, 1)
	require.True(t, prec.Valid())

	assert.True(t, prec.Filter(annis.Match{Node: 1}, annis.Match{Node: 2}))
	assert.False(t, prec.Filter(annis.Match{Node: 1}, annis.Match{Node: 3}))
	assert.False(t, prec.IsReflexive())

	it := prec.RetrieveMatches(annis.Match{Node: 1})
	require.True(t, it.Next())
	assert.Equal(t, annis.NodeId(2), it.Match().Node)
	assert.False(t, it.Next())
}

func TestOverlap(t *testing.T) {
	fc, pool, annos := buildFakeCorpus(t)
	tok := NewTokenHelper(pool, annos, fc.storages[annis.ComponentLeftToken], fc.storages[annis.ComponentRightToken])
	ov := NewOverlap(fc, tok)
	require.True(t, ov.Valid())

	assert.True(t, ov.Filter(annis.Match{Node: 10}, annis.Match{Node: 1}))
	assert.False(t, ov.Filter(annis.Match{Node: 10}, annis.Match{Node: 3}))

	seen := map[annis.NodeId]bool{}
	it := ov.RetrieveMatches(annis.Match{Node: 10})
	for it.Next() {
		seen[it.Match().Node] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[2])
	assert.True(t, seen[10])
	assert.False(t, seen[3])
}

func TestIdenticalCoverageAndNode(t *testing.T) {
	fc, pool, annos := buildFakeCorpus(t)
	tok := NewTokenHelper(pool, annos, fc.storages[annis.ComponentLeftToken], fc.storages[annis.ComponentRightToken])
	ic := NewIdenticalCoverage(fc, tok)

	assert.True(t, ic.Filter(annis.Match{Node: 1}, annis.Match{Node: 1}))
	assert.False(t, ic.Filter(annis.Match{Node: 1}, annis.Match{Node: 10}))

	ident := NewIdenticalNode()
	assert.True(t, ident.Filter(annis.Match{Node: 5}, annis.Match{Node: 5}))
	assert.False(t, ident.Filter(annis.Match{Node: 5}, annis.Match{Node: 6}))
}

func TestInclusion(t *testing.T) {
	fc, pool, annos := buildFakeCorpus(t)
	tok := NewTokenHelper(pool, annos, fc.storages[annis.ComponentLeftToken], fc.storages[annis.ComponentRightToken])
	inc := NewInclusion(fc, tok)
	require.True(t, inc.Valid())
	assert.False(t, inc.IsReflexive())

	// token 1 is included in span 10's range [1,2]
	assert.True(t, inc.Filter(annis.Match{Node: 10}, annis.Match{Node: 1}))
	// token 3 falls outside [1,2]
	assert.False(t, inc.Filter(annis.Match{Node: 10}, annis.Match{Node: 3}))
}
