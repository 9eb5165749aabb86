package annoindex

import (
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/stringpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posKey(pool *stringpool.Pool) annis.AnnotationKey {
	return annis.AnnotationKey{Name: pool.Add("pos"), Ns: pool.Add("default_ns")}
}

func TestViewsStayConsistent(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)

	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("NN")})
	ix.Add(2, annis.Annotation{Key: key, Val: pool.Add("VB")})

	assert.Equal(t, 2, ix.KeyCount(key))

	// Every by_node row must have exactly one by_anno counterpart.
	seen := map[annis.NodeId]annis.StringId{}
	ix.IterByAnno(key, 0, 0, false, false, func(n annis.NodeId, v annis.StringId) bool {
		seen[n] = v
		return true
	})
	require.Len(t, seen, 2)
	for n, v := range seen {
		anno, ok := ix.Get(n, key.Ns, key.Name)
		require.True(t, ok)
		assert.Equal(t, v, anno.Val)
	}
}

func TestReAddingSameKeyReplacesInsteadOfDoubleCounting(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)

	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("NN")})
	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("VB")})

	assert.Equal(t, 1, ix.KeyCount(key))
	anno, ok := ix.Get(1, key.Ns, key.Name)
	require.True(t, ok)
	s, _ := pool.Str(anno.Val)
	assert.Equal(t, "VB", s)

	count := 0
	ix.IterByAnno(key, 0, 0, false, false, func(annis.NodeId, annis.StringId) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count, "the replaced value must be gone from by_anno")
}

func TestGetWithWildcardNamespace(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)
	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("NN")})

	anno, ok := ix.Get(1, annis.WildcardId, key.Name)
	require.True(t, ok)
	assert.Equal(t, key, anno.Key)

	_, ok = ix.Get(1, key.Ns, pool.Add("lemma"))
	assert.False(t, ok)
	_, ok = ix.Get(99, key.Ns, key.Name)
	assert.False(t, ok)
}

func TestIterByAnnoValueRange(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)

	nn := pool.Add("NN")
	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("DT")})
	ix.Add(2, annis.Annotation{Key: key, Val: nn})
	ix.Add(3, annis.Annotation{Key: key, Val: pool.Add("VB")})

	var nodes []annis.NodeId
	ix.IterByAnno(key, nn, nn, true, true, func(n annis.NodeId, v annis.StringId) bool {
		nodes = append(nodes, n)
		return true
	})
	assert.Equal(t, []annis.NodeId{2}, nodes)
}

func TestGetAllAndNodes(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)
	lemma := annis.AnnotationKey{Name: pool.Add("lemma"), Ns: key.Ns}

	ix.Add(5, annis.Annotation{Key: key, Val: pool.Add("NN")})
	ix.Add(5, annis.Annotation{Key: lemma, Val: pool.Add("Blume")})
	ix.Add(2, annis.Annotation{Key: key, Val: pool.Add("VB")})

	assert.Len(t, ix.GetAll(5), 2)
	assert.Equal(t, []annis.NodeId{2, 5}, ix.Nodes())
}

func TestMatchingKeysUnionsOverWildcard(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	name := pool.Add("pos")
	ns1 := pool.Add("ns1")
	ns2 := pool.Add("ns2")

	ix.Add(1, annis.Annotation{Key: annis.AnnotationKey{Name: name, Ns: ns1}, Val: pool.Add("NN")})
	ix.Add(2, annis.Annotation{Key: annis.AnnotationKey{Name: name, Ns: ns2}, Val: pool.Add("VB")})

	keys := ix.MatchingKeys(annis.WildcardId, name)
	assert.Len(t, keys, 2)
	keys = ix.MatchingKeys(ns1, name)
	assert.Len(t, keys, 1)
}

func TestGuessCountFromHistogram(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)

	nn := pool.Add("NN")
	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("DT")})
	ix.Add(2, annis.Annotation{Key: key, Val: nn})
	ix.Add(3, annis.Annotation{Key: key, Val: pool.Add("VB")})
	ix.CalculateStatistics()

	// Three boundaries (DT, NN, VB) give two buckets, both touching NN:
	// round(3 * 2/2) = 3.
	assert.Equal(t, 3, ix.GuessCount(key.Ns, key.Name, nn, nn, true, true))

	// An unknown key estimates zero.
	assert.Equal(t, 0, ix.GuessCount(key.Ns, pool.Add("unknown"), nn, nn, true, true))
}

func TestGuessRegexCountUsesPrefixRange(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)

	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("DT")})
	ix.Add(2, annis.Annotation{Key: key, Val: pool.Add("NN")})
	ix.Add(3, annis.Annotation{Key: key, Val: pool.Add("VB")})
	ix.CalculateStatistics()

	got := ix.GuessRegexCount(key.Ns, key.Name, "N.*", stringpool.PrefixRange, pool.FindId)
	assert.Equal(t, 3, got)

	// A pattern with no usable prefix falls back to the key universe.
	got = ix.GuessRegexCount(key.Ns, key.Name, ".*", stringpool.PrefixRange, pool.FindId)
	assert.Equal(t, 3, got)
}

func TestIterByKeyRange(t *testing.T) {
	pool := stringpool.New()
	ix := New(pool)
	key := posKey(pool)
	ix.Add(1, annis.Annotation{Key: key, Val: pool.Add("NN")})
	ix.Add(2, annis.Annotation{Key: key, Val: pool.Add("VB")})

	counts := map[annis.AnnotationKey]int{}
	ix.IterByKeyRange(func(k annis.AnnotationKey, count int) bool {
		counts[k] = count
		return true
	})
	assert.Equal(t, map[annis.AnnotationKey]int{key: 2}, counts)
}
