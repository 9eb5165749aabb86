// Package annoindex implements the per-corpus node-annotation index:
// three mutually consistent views over (node, annotation) pairs (by node,
// by annotation, by key) plus histogram-based cardinality estimation used
// by the planner's cost model.
package annoindex

import (
	"sort"
	"sync"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/stringpool"
)

// entry is one row of the by_anno multimap: an interned value plus the
// node that carries it, kept sorted by (value string, node) so that range
// queries over [lo, hi] values are a binary-searchable slice.
type entry struct {
	Val  annis.StringId
	Node annis.NodeId
}

// Index is the per-corpus node-annotation index. It is built once during
// corpus load/import and is immutable during query execution; Add still
// locks to support incremental construction from an import pipeline.
type Index struct {
	pool *stringpool.Pool

	mu     sync.RWMutex
	byNode map[annis.NodeId]map[annis.AnnotationKey]annis.StringId
	byAnno map[annis.AnnotationKey][]entry // kept sorted by (Val string, Node)
	byKey  map[annis.AnnotationKey]int

	histograms map[annis.AnnotationKey][]annis.StringId // sorted bucket boundaries, up to 251
}

// New creates an empty annotation index backed by pool for resolving
// StringIds to their underlying text (needed to keep by_anno ordered by
// actual value content rather than by arbitrary interning order).
func New(pool *stringpool.Pool) *Index {
	return &Index{
		pool:       pool,
		byNode:     make(map[annis.NodeId]map[annis.AnnotationKey]annis.StringId),
		byAnno:     make(map[annis.AnnotationKey][]entry),
		byKey:      make(map[annis.AnnotationKey]int),
		histograms: make(map[annis.AnnotationKey][]annis.StringId),
	}
}

// Add attaches anno to node, keeping the three views consistent: every
// by_node row has exactly one by_anno counterpart and by_key counts them.
func (ix *Index) Add(node annis.NodeId, anno annis.Annotation) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	perNode, ok := ix.byNode[node]
	if !ok {
		perNode = make(map[annis.AnnotationKey]annis.StringId)
		ix.byNode[node] = perNode
	}
	if _, exists := perNode[anno.Key]; exists {
		// Re-asserting the same key without going through a retract path
		// is a caller bug during import; keep by_node authoritative and
		// fix up by_anno/by_key below rather than double-counting.
		ix.removeFromByAnno(anno.Key, perNode[anno.Key], node)
		ix.byKey[anno.Key]--
	}
	perNode[anno.Key] = anno.Val

	ix.insertIntoByAnno(anno.Key, anno.Val, node)
	ix.byKey[anno.Key]++
}

func (ix *Index) valStr(id annis.StringId) string {
	s, _ := ix.pool.Str(id)
	return s
}

func (ix *Index) insertIntoByAnno(key annis.AnnotationKey, val annis.StringId, node annis.NodeId) {
	list := ix.byAnno[key]
	valS := ix.valStr(val)
	i := sort.Search(len(list), func(i int) bool {
		cmp := compareStr(ix.valStr(list[i].Val), valS)
		if cmp != 0 {
			return cmp >= 0
		}
		return list[i].Node >= node
	})
	list = append(list, entry{})
	copy(list[i+1:], list[i:])
	list[i] = entry{Val: val, Node: node}
	ix.byAnno[key] = list
}

func (ix *Index) removeFromByAnno(key annis.AnnotationKey, val annis.StringId, node annis.NodeId) {
	list := ix.byAnno[key]
	for i, e := range list {
		if e.Val == val && e.Node == node {
			ix.byAnno[key] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func compareStr(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Get returns the annotation for (node, key), where ns/name may be
// WildcardId to mean "any matching key present on node" (first match by
// key ordering). Returns false if node has no annotation matching key.
func (ix *Index) Get(node annis.NodeId, ns, name annis.StringId) (annis.Annotation, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	perNode, ok := ix.byNode[node]
	if !ok {
		return annis.Annotation{}, false
	}

	if name != annis.WildcardId && ns != annis.WildcardId {
		if val, ok := perNode[annis.AnnotationKey{Name: name, Ns: ns}]; ok {
			return annis.Annotation{Key: annis.AnnotationKey{Name: name, Ns: ns}, Val: val}, true
		}
		return annis.Annotation{}, false
	}

	var best annis.Annotation
	found := false
	for k, v := range perNode {
		if name != annis.WildcardId && k.Name != name {
			continue
		}
		if ns != annis.WildcardId && k.Ns != ns {
			continue
		}
		cand := annis.Annotation{Key: k, Val: v}
		if !found || cand.Compare(best) < 0 {
			best, found = cand, true
		}
	}
	return best, found
}

// GetAll returns every annotation attached to node.
func (ix *Index) GetAll(node annis.NodeId) []annis.Annotation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	perNode, ok := ix.byNode[node]
	if !ok {
		return nil
	}
	out := make([]annis.Annotation, 0, len(perNode))
	for k, v := range perNode {
		out = append(out, annis.Annotation{Key: k, Val: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Nodes returns every node id known to the index (i.e. carrying at least
// one annotation), sorted ascending. Used by StorageLookup.AllNodes for
// operators that must enumerate every corpus node directly (Inclusion,
// IdenticalCoverage).
func (ix *Index) Nodes() []annis.NodeId {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]annis.NodeId, 0, len(ix.byNode))
	for n := range ix.byNode {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasKey reports whether node carries any annotation with the given
// namespace name (used by the token helper: a node is a token iff it
// carries annis:tok).
func (ix *Index) HasKey(node annis.NodeId, ns, name annis.StringId) bool {
	_, ok := ix.Get(node, ns, name)
	return ok
}

// IterByAnno calls fn for every (node) carrying an annotation under key
// whose value lies in the closed range [lo, hi] (a side is unbounded when
// hasLo or hasHi is false; bounds are resolved via the pool's string
// ordering since values are interned but range-compared by content).
// Iteration stops early if fn returns false.
func (ix *Index) IterByAnno(key annis.AnnotationKey, lo, hi annis.StringId, hasLo, hasHi bool, fn func(node annis.NodeId, val annis.StringId) bool) {
	ix.mu.RLock()
	list := append([]entry(nil), ix.byAnno[key]...)
	loS, hiS := "", ""
	if hasLo {
		loS = ix.valStr(lo)
	}
	if hasHi {
		hiS = ix.valStr(hi)
	}
	ix.mu.RUnlock()

	for _, e := range list {
		s := ix.valStr(e.Val)
		if hasLo && s < loS {
			continue
		}
		if hasHi && s > hiS {
			continue
		}
		if !fn(e.Node, e.Val) {
			return
		}
	}
}

// IterByKeyRange calls fn for every AnnotationKey known to the index,
// along with its population count.
func (ix *Index) IterByKeyRange(fn func(key annis.AnnotationKey, count int) bool) {
	ix.mu.RLock()
	keys := make([]annis.AnnotationKey, 0, len(ix.byKey))
	for k := range ix.byKey {
		keys = append(keys, k)
	}
	counts := make(map[annis.AnnotationKey]int, len(ix.byKey))
	for k, c := range ix.byKey {
		counts[k] = c
	}
	ix.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	for _, k := range keys {
		if !fn(k, counts[k]) {
			return
		}
	}
}

// KeyCount returns by_key[key], the number of (node,val) pairs under key.
func (ix *Index) KeyCount(key annis.AnnotationKey) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.byKey[key]
}

// MatchingKeys returns every concrete AnnotationKey matching the possibly
// wildcarded (ns, name) pair, used when a query's ns is "any" and the
// estimator must union over all keys that share the name.
func (ix *Index) MatchingKeys(ns, name annis.StringId) []annis.AnnotationKey {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []annis.AnnotationKey
	for k := range ix.byKey {
		if name != annis.WildcardId && k.Name != name {
			continue
		}
		if ns != annis.WildcardId && k.Ns != ns {
			continue
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
