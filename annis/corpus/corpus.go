// Package corpus assembles the per-corpus aggregate — string pool,
// node-annotation index, and a component -> graph-storage map — and
// implements the StorageLookup and Matcher capabilities the operator and
// executor packages depend on. It is kept out of the root `annis` package
// deliberately: StorageLookup/Matcher both return types from packages
// (graphstorage, executor) that themselves import the root package, so the
// aggregate that binds them cannot live there too.
package corpus

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/annoindex"
	"github.com/korpling/graphANNIS-sub001/annis/executor"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/query"
	"github.com/korpling/graphANNIS-sub001/annis/stringpool"
)

// Corpus is the in-memory aggregate: string pool, node-annotation index,
// and a map of Component -> graph storage. String pool, annotation index
// and graph storages are immutable once load/import has finished; Corpus
// itself only serializes mutation of the storages map, which happens
// during lazy component loading.
type Corpus struct {
	Pool     *stringpool.Pool
	Annos    *annoindex.Index
	Registry *graphstorage.Registry

	mu       sync.RWMutex
	storages map[annis.Component]graphstorage.ReadableGraphStorage
	loaders  map[annis.Component]func() (graphstorage.ReadableGraphStorage, error)

	tokOnce     sync.Once
	tokenHelper *operator.TokenHelper
}

// New creates an empty Corpus over pool/annos. registry is kept in
// Corpus.Registry; the corpus does not consult it when storages are added
// (import is out of scope; embedders populate storages via AddStorage or
// AddLazyStorage).
func New(pool *stringpool.Pool, annos *annoindex.Index, registry *graphstorage.Registry) *Corpus {
	return &Corpus{
		Pool: pool, Annos: annos, Registry: registry,
		storages: make(map[annis.Component]graphstorage.ReadableGraphStorage),
		loaders:  make(map[annis.Component]func() (graphstorage.ReadableGraphStorage, error)),
	}
}

// AddStorage registers an already-materialized graph storage for component.
func (c *Corpus) AddStorage(component annis.Component, gs graphstorage.ReadableGraphStorage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storages[component] = gs
}

// AddLazyStorage registers component as known but not yet materialized:
// the first GraphStorages call that needs it invokes load; once loaded it
// remains until the corpus is evicted.
func (c *Corpus) AddLazyStorage(component annis.Component, load func() (graphstorage.ReadableGraphStorage, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders[component] = load
}

func (c *Corpus) resolve(component annis.Component) (graphstorage.ReadableGraphStorage, error) {
	c.mu.RLock()
	gs, ok := c.storages[component]
	c.mu.RUnlock()
	if ok {
		return gs, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gs, ok := c.storages[component]; ok {
		return gs, nil
	}
	load, ok := c.loaders[component]
	if !ok {
		return nil, nil
	}
	gs, err := load()
	if err != nil {
		return nil, annis.WrapError(annis.StorageIO, fmt.Sprintf("loading component %s", component), err)
	}
	c.storages[component] = gs
	delete(c.loaders, component)
	return gs, nil
}

// Components lists every component known to the corpus (loaded or not).
func (c *Corpus) Components() []annis.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]annis.Component, 0, len(c.storages)+len(c.loaders))
	for comp := range c.storages {
		out = append(out, comp)
	}
	for comp := range c.loaders {
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// GraphStorages implements operator.StorageLookup: every storage whose
// component matches componentType, and layer (if given) and name exactly.
func (c *Corpus) GraphStorages(componentType annis.ComponentType, layer, name string) []graphstorage.ReadableGraphStorage {
	var out []graphstorage.ReadableGraphStorage
	for _, comp := range c.Components() {
		if comp.Type != componentType || comp.Name != name {
			continue
		}
		if layer != "" && comp.Layer != layer {
			continue
		}
		gs, err := c.resolve(comp)
		if err != nil || gs == nil {
			continue
		}
		out = append(out, gs)
	}
	return out
}

// AllNodes implements operator.StorageLookup: every node carrying at least
// one annotation.
func (c *Corpus) AllNodes() []annis.NodeId {
	return c.Annos.Nodes()
}

// TokenHelper lazily builds the shared token helper from the corpus's
// LEFT_TOKEN/RIGHT_TOKEN storages.
func (c *Corpus) TokenHelper() *operator.TokenHelper {
	c.tokOnce.Do(func() {
		left := firstOrNil(c.GraphStorages(annis.ComponentLeftToken, "", ""))
		right := firstOrNil(c.GraphStorages(annis.ComponentRightToken, "", ""))
		c.tokenHelper = operator.NewTokenHelper(c.Pool, c.Annos, left, right)
	})
	return c.tokenHelper
}

func firstOrNil(gs []graphstorage.ReadableGraphStorage) graphstorage.ReadableGraphStorage {
	if len(gs) == 0 {
		return nil
	}
	return gs[0]
}

// evalNode tests node against spec, returning the Annotation to record for
// it on success. Shared by Search (over a pre-filtered candidate set) and
// CheckAndAnnotate (a single candidate an operator produced).
func (c *Corpus) evalNode(node annis.NodeId, spec query.NodeSpec) (annis.Annotation, bool) {
	if spec.TokenOnly && !c.TokenHelper().IsToken(node) {
		return annis.Annotation{}, false
	}

	var last annis.Annotation
	haveAnno := false
	for _, ac := range spec.Annotations {
		anno, ok := c.matchAnnotation(node, ac)
		if !ok {
			return annis.Annotation{}, false
		}
		last, haveAnno = anno, true
	}

	if spec.HasSpanText {
		text, ok := c.spanText(node)
		if !ok {
			return annis.Annotation{}, false
		}
		if !matchesValue(text, spec.SpanText, spec.SpanTextMatching) {
			return annis.Annotation{}, false
		}
	}

	if haveAnno {
		return last, true
	}
	return annis.WildcardAnnotation, true
}

func (c *Corpus) matchAnnotation(node annis.NodeId, ac query.AnnotationConstraint) (annis.Annotation, bool) {
	nsID := annis.WildcardId
	if ac.HasNs {
		id, ok := c.Pool.FindId(ac.Ns)
		if !ok {
			return annis.Annotation{}, false
		}
		nsID = id
	}
	nameID, ok := c.Pool.FindId(ac.Name)
	if !ok {
		return annis.Annotation{}, false
	}
	anno, ok := c.Annos.Get(node, nsID, nameID)
	if !ok {
		return annis.Annotation{}, false
	}
	if !ac.HasValue {
		return anno, true
	}
	valStr, _ := c.Pool.Str(anno.Val)
	if !matchesValue(valStr, ac.Value, ac.Matching) {
		return annis.Annotation{}, false
	}
	return anno, true
}

func matchesValue(actual, pattern string, matching query.MatchingKind) bool {
	switch matching {
	case query.RegexEqual:
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	default:
		return actual == pattern
	}
}

// spanText resolves a node's covered text by joining, with single spaces,
// the `tok` annotation of every token it covers (via COVERAGE), ordered
// along ORDERING when that storage exists; a token node's own tok value is
// used directly. Returns false if no text could be resolved (no COVERAGE
// storage, no covered token, or no covered token carries a tok value).
func (c *Corpus) spanText(node annis.NodeId) (string, bool) {
	nsID, _ := c.Pool.FindId(annis.AnnisNs)
	tokID, _ := c.Pool.FindId(annis.AnnisTok)

	if anno, ok := c.Annos.Get(node, nsID, tokID); ok {
		s, _ := c.Pool.Str(anno.Val)
		return s, true
	}

	cov := firstOrNil(c.GraphStorages(annis.ComponentCoverage, "", ""))
	order := firstOrNil(c.GraphStorages(annis.ComponentOrdering, "", ""))
	if cov == nil {
		return "", false
	}
	tokens := cov.GetOutgoingEdges(node)
	if len(tokens) == 0 {
		return "", false
	}
	if order != nil && len(tokens) > 1 {
		sort.Slice(tokens, func(i, j int) bool {
			return order.Distance(annis.Edge{Source: tokens[i], Target: tokens[j]}) > 0
		})
	}
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		anno, ok := c.Annos.Get(t, nsID, tokID)
		if !ok {
			continue
		}
		s, _ := c.Pool.Str(anno.Val)
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "", false
	}
	text := ""
	for i, p := range parts {
		if i > 0 {
			text += " "
		}
		text += p
	}
	return text, true
}

// candidateNodes narrows the full corpus scan to whatever subset the
// annotation index can supply directly for spec, falling back to every
// known node when spec carries nothing index-friendly (span text alone, or
// unconstrained).
func (c *Corpus) candidateNodes(spec query.NodeSpec) []annis.NodeId {
	if spec.TokenOnly && len(spec.Annotations) == 0 && !spec.HasSpanText {
		nsID, ok1 := c.Pool.FindId(annis.AnnisNs)
		tokID, ok2 := c.Pool.FindId(annis.AnnisTok)
		if !ok1 || !ok2 {
			return nil
		}
		var out []annis.NodeId
		c.Annos.IterByAnno(annis.AnnotationKey{Name: tokID, Ns: nsID}, 0, 0, false, false, func(n annis.NodeId, v annis.StringId) bool {
			out = append(out, n)
			return true
		})
		return dedupeSorted(out)
	}

	if len(spec.Annotations) > 0 {
		ac := spec.Annotations[0]
		nsID := annis.WildcardId
		if ac.HasNs {
			id, ok := c.Pool.FindId(ac.Ns)
			if !ok {
				return nil
			}
			nsID = id
		}
		nameID, ok := c.Pool.FindId(ac.Name)
		if !ok {
			return nil
		}
		keys := c.Annos.MatchingKeys(nsID, nameID)
		var out []annis.NodeId
		for _, key := range keys {
			c.Annos.IterByAnno(key, 0, 0, false, false, func(n annis.NodeId, v annis.StringId) bool {
				out = append(out, n)
				return true
			})
		}
		return dedupeSorted(out)
	}

	return c.Annos.Nodes()
}

func dedupeSorted(nodes []annis.NodeId) []annis.NodeId {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	out := nodes[:0]
	var last annis.NodeId
	first := true
	for _, n := range nodes {
		if first || n != last {
			out = append(out, n)
			last, first = n, false
		}
	}
	return out
}

// matchSliceIterator walks a precomputed slice of single-Match tuples, the
// executor.Iterator realization of a base query-node search.
type matchSliceIterator struct {
	matches []annis.Match
	idx     int
}

func (it *matchSliceIterator) Next() bool {
	it.idx++
	return it.idx < len(it.matches)
}
func (it *matchSliceIterator) Tuple() executor.Tuple {
	return executor.Tuple{it.matches[it.idx]}
}
func (it *matchSliceIterator) Close() error { return nil }

// Search implements executor.Matcher: enumerate every node satisfying spec
// as a single-Match tuple.
func (c *Corpus) Search(spec query.NodeSpec) executor.Iterator {
	candidates := c.candidateNodes(spec)
	matches := make([]annis.Match, 0, len(candidates))
	for _, n := range candidates {
		anno, ok := c.evalNode(n, spec)
		if !ok {
			continue
		}
		matches = append(matches, annis.Match{Node: n, Anno: anno})
	}
	return &matchSliceIterator{matches: matches, idx: -1}
}

// CheckAndAnnotate implements executor.Matcher for seed-index joins: tests
// a single candidate node an operator produced against spec directly.
func (c *Corpus) CheckAndAnnotate(node annis.NodeId, spec query.NodeSpec) (annis.Annotation, bool) {
	return c.evalNode(node, spec)
}

// EstimateNodeCount implements the planner's Estimator (guess_max_count)
// for a base query node, using the annotation index's histogram-based
// cardinality estimation where the predicate is index-friendly, and
// returning -1 ("unknown", planner falls back to its default) otherwise.
func (c *Corpus) EstimateNodeCount(spec query.NodeSpec) float64 {
	if spec.TokenOnly && len(spec.Annotations) == 0 && !spec.HasSpanText {
		nsID, ok1 := c.Pool.FindId(annis.AnnisNs)
		tokID, ok2 := c.Pool.FindId(annis.AnnisTok)
		if !ok1 || !ok2 {
			return 0
		}
		return float64(c.Annos.KeyCount(annis.AnnotationKey{Name: tokID, Ns: nsID}))
	}

	if spec.Unconstrained() {
		return float64(len(c.Annos.Nodes()))
	}

	if len(spec.Annotations) == 0 {
		return -1
	}
	ac := spec.Annotations[0]
	nsID := annis.WildcardId
	if ac.HasNs {
		id, ok := c.Pool.FindId(ac.Ns)
		if !ok {
			return 0
		}
		nsID = id
	}
	nameID, ok := c.Pool.FindId(ac.Name)
	if !ok {
		return 0
	}
	if !ac.HasValue {
		total := 0
		for _, key := range c.Annos.MatchingKeys(nsID, nameID) {
			total += c.Annos.KeyCount(key)
		}
		return float64(total)
	}
	switch ac.Matching {
	case query.RegexEqual:
		return float64(c.Annos.GuessRegexCount(nsID, nameID, ac.Value, stringpool.PrefixRange, c.Pool.FindId))
	default:
		valID, ok := c.Pool.FindId(ac.Value)
		if !ok {
			return 0
		}
		return float64(c.Annos.GuessCount(nsID, nameID, valID, valID, true, true))
	}
}

var (
	_ operator.StorageLookup = (*Corpus)(nil)
	_ executor.Matcher       = (*Corpus)(nil)
)
