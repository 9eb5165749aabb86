package corpus

import (
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
	"github.com/korpling/graphANNIS-sub001/annis/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	original := buildScenarioCorpus(t)
	require.NoError(t, original.Save(dir))

	restored, err := Load(dir, graphstorage.NewRegistry())
	require.NoError(t, err)

	assert.Equal(t, original.Pool.Len(), restored.Pool.Len())
	_, ok := restored.Pool.FindId("Bilharziose")
	assert.True(t, ok)

	assert.Equal(t, original.Annos.Nodes(), restored.Annos.Nodes())
	for _, n := range original.Annos.Nodes() {
		assert.Equal(t, original.Annos.GetAll(n), restored.Annos.GetAll(n), "annotations of node %d", n)
	}

	assert.ElementsMatch(t, original.Components(), restored.Components())

	// The restored storages answer the same reachability questions.
	dom := restored.GraphStorages(annis.ComponentDominance, "", "")
	require.Len(t, dom, 1)
	assert.True(t, dom[0].IsConnected(annis.Edge{Source: 4, Target: 2}, 1, 1))
	assert.False(t, dom[0].IsConnected(annis.Edge{Source: 2, Target: 4}, 1, 1))

	// And the restored corpus answers the same queries.
	e := NewEngine(restored)
	q := &query.Query{
		Nodes: map[query.NodeIndex]query.NodeSpec{
			0: annoNode("cat", "S"),
			1: annoNode("tok", "Bilharziose"),
		},
		Joins: []query.JoinSpec{
			{Op: query.OpDominance, Left: 0, Right: 1, HasDistance: true},
		},
	}
	n, err := e.Count(q)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestLoadEmptyStoreFailsAsStorageIO(t *testing.T) {
	// An empty Badger database has no persisted corpus in it.
	dir := t.TempDir()

	_, err := Load(dir, graphstorage.NewRegistry())
	require.Error(t, err)
	assert.True(t, annis.IsKind(err, annis.StorageIO), "got %v", err)
}
