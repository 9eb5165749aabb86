package graphstorage

import "github.com/korpling/graphANNIS-sub001"

// Registry maps implementation names to constructors and selects an
// implementation for a newly built component from its statistics.
// Per-component overrides are scoped: the most specific override
// (type+layer+name) wins over a layer-level or type-level one.
type Registry struct {
	overrides map[annis.Component]ImplementationName
	byType    map[annis.ComponentType]ImplementationName
	byLayer   map[layerKey]ImplementationName
}

type layerKey struct {
	Type  annis.ComponentType
	Layer string
}

// NewRegistry creates a registry with no overrides configured.
func NewRegistry() *Registry {
	return &Registry{
		overrides: make(map[annis.Component]ImplementationName),
		byType:    make(map[annis.ComponentType]ImplementationName),
		byLayer:   make(map[layerKey]ImplementationName),
	}
}

// SetImplementation registers an override. Passing an empty layer/name
// scopes the override more broadly (whole type, or whole layer within a
// type).
func (r *Registry) SetImplementation(impl ImplementationName, componentType annis.ComponentType, layer, name string) {
	switch {
	case layer == "" && name == "":
		r.byType[componentType] = impl
	case name == "":
		r.byLayer[layerKey{Type: componentType, Layer: layer}] = impl
	default:
		r.overrides[annis.Component{Type: componentType, Layer: layer, Name: name}] = impl
	}
}

// SelectImplementation picks a storage implementation for component given
// its statistics, applying the rules in order:
//
//  1. explicit per-component override,
//  2. max_depth <= 1 -> adjacency list,
//  3. rooted_tree && max_fan_out <= 1 -> linear with the smallest P fitting max_depth,
//  4. rooted_tree otherwise -> pre/post with the smallest (O,L) fitting nodes/max_depth,
//  5. acyclic && dfs_visit_ratio <= 1.03 -> pre/post as above,
//  6. otherwise -> adjacency list.
func (r *Registry) SelectImplementation(component annis.Component, stats Statistics) ImplementationName {
	if impl, ok := r.overrides[component]; ok {
		return impl
	}
	if impl, ok := r.byLayer[layerKey{Type: component.Type, Layer: component.Layer}]; ok {
		return impl
	}
	if impl, ok := r.byType[component.Type]; ok {
		return impl
	}

	if stats.MaxDepth <= 1 {
		return ImplAdjacencyList
	}
	if stats.RootedTree && stats.MaxFanOut <= 1 {
		return selectLinearImpl(stats.MaxDepth)
	}
	if stats.RootedTree {
		return selectPrePostImpl(stats)
	}
	if !stats.Cyclic && stats.DFSVisitRatio <= 1.03 {
		return selectPrePostImpl(stats)
	}
	return ImplAdjacencyList
}

// selectLinearImpl picks the smallest position width fitting maxDepth.
func selectLinearImpl(maxDepth int) ImplementationName {
	switch {
	case maxDepth <= maxPosForBits(8):
		return ImplLinearP8
	case maxDepth <= maxPosForBits(16):
		return ImplLinearP16
	default:
		return ImplLinearP32
	}
}

// selectPrePostImpl probes the order/level widths from smallest to
// largest, O16L8 -> O16L32 -> O32L8 -> O32L32, and picks the first whose
// ranges fit the node count and max depth. Tree-shaped and acyclic
// low-visit-ratio components use the same probe.
func selectPrePostImpl(stats Statistics) ImplementationName {
	if !stats.Valid {
		return ImplPrePostO32L32
	}
	switch {
	case stats.Nodes < maxForBits(16) && stats.MaxDepth < maxForBits(8):
		return ImplPrePostO16L8
	case stats.Nodes < maxForBits(16) && stats.MaxDepth < maxForBits(32):
		return ImplPrePostO16L32
	case stats.Nodes < maxForBits(32) && stats.MaxDepth < maxForBits(8):
		return ImplPrePostO32L8
	default:
		return ImplPrePostO32L32
	}
}

// NewStorage constructs an empty, mutable storage for impl, ready to be
// populated via Build/AddEdge and then queried through the
// ReadableGraphStorage interface.
func NewStorage(impl ImplementationName) WriteableGraphStorage {
	switch impl {
	case ImplLinearP8:
		return NewLinearStorage(8)
	case ImplLinearP16:
		return NewLinearStorage(16)
	case ImplLinearP32:
		return NewLinearStorage(32)
	case ImplPrePostO16L8:
		return NewPrePostStorage(16, 8)
	case ImplPrePostO16L32:
		return NewPrePostStorage(16, 32)
	case ImplPrePostO32L8:
		return NewPrePostStorage(32, 8)
	case ImplPrePostO32L32:
		return NewPrePostStorage(32, 32)
	default:
		return NewAdjacencyListStorage()
	}
}

// BuildFromEdges constructs and populates the implementation selected for
// component given its source edges and precomputed statistics, choosing
// linear/pre-post construction paths where those implementations need a
// structural Build() rather than edge-by-edge AddEdge calls.
func BuildFromEdges(reg *Registry, component annis.Component, edges []annis.Edge, stats Statistics, roots []annis.NodeId) ReadableGraphStorage {
	impl := reg.SelectImplementation(component, stats)

	switch impl {
	case ImplLinearP8, ImplLinearP16, ImplLinearP32:
		ls := NewStorage(impl).(*LinearStorage)
		if ls.Build(edges) {
			ls.CalculateStatistics()
			return ls
		}
		// Statistics lied (e.g. fan-out changed between estimation and
		// build); fall back to adjacency list rather than return an
		// invalid linear storage.
		return buildAdjacency(edges)
	case ImplPrePostO16L8, ImplPrePostO16L32, ImplPrePostO32L8, ImplPrePostO32L32:
		ps := NewStorage(impl).(*PrePostStorage)
		outEdges := adjacencyFunc(edges)
		ps.Build(roots, outEdges)
		ps.numEdges = len(edges)
		ps.CalculateStatistics()
		return ps
	default:
		return buildAdjacency(edges)
	}
}

func buildAdjacency(edges []annis.Edge) *AdjacencyListStorage {
	s := NewAdjacencyListStorage()
	for _, e := range edges {
		s.AddEdge(e)
	}
	s.CalculateStatistics()
	return s
}

func adjacencyFunc(edges []annis.Edge) func(annis.NodeId) []annis.NodeId {
	m := make(map[annis.NodeId][]annis.NodeId)
	for _, e := range edges {
		m[e.Source] = append(m[e.Source], e.Target)
	}
	return func(n annis.NodeId) []annis.NodeId { return m[n] }
}
