package graphstorage

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/korpling/graphANNIS-sub001"
)

// AdjacencyListStorage is the fallback implementation: an
// ordered set of edges plus an annotation multimap, with breadth-first
// reachability for k > 1. It is the registry's choice whenever a component
// is cyclic or shallow (max_depth <= 1).
type AdjacencyListStorage struct {
	edges     map[annis.NodeId][]annis.NodeId // source -> sorted targets
	edgeAnnos map[annis.Edge][]annis.Annotation
	numEdges  int
	stats     Statistics
}

// NewAdjacencyListStorage creates an empty adjacency-list storage.
func NewAdjacencyListStorage() *AdjacencyListStorage {
	return &AdjacencyListStorage{
		edges:     make(map[annis.NodeId][]annis.NodeId),
		edgeAnnos: make(map[annis.Edge][]annis.Annotation),
	}
}

func (s *AdjacencyListStorage) AddEdge(edge annis.Edge) {
	targets := s.edges[edge.Source]
	i := sort.Search(len(targets), func(i int) bool { return targets[i] >= edge.Target })
	if i < len(targets) && targets[i] == edge.Target {
		return // already present
	}
	targets = append(targets, 0)
	copy(targets[i+1:], targets[i:])
	targets[i] = edge.Target
	s.edges[edge.Source] = targets
	s.numEdges++
}

func (s *AdjacencyListStorage) AddEdgeAnnotation(edge annis.Edge, anno annis.Annotation) {
	s.edgeAnnos[edge] = append(s.edgeAnnos[edge], anno)
}

func (s *AdjacencyListStorage) Clear() {
	s.edges = make(map[annis.NodeId][]annis.NodeId)
	s.edgeAnnos = make(map[annis.Edge][]annis.Annotation)
	s.numEdges = 0
	s.stats = Statistics{}
}

func (s *AdjacencyListStorage) GetOutgoingEdges(node annis.NodeId) []annis.NodeId {
	return s.edges[node]
}

func (s *AdjacencyListStorage) GetEdgeAnnotations(edge annis.Edge) []annis.Annotation {
	return s.edgeAnnos[edge]
}

func (s *AdjacencyListStorage) NumEdges() int { return s.numEdges }

func (s *AdjacencyListStorage) NumEdgeAnnotations() int {
	n := 0
	for _, annos := range s.edgeAnnos {
		n += len(annos)
	}
	return n
}

func (s *AdjacencyListStorage) GetStatistics() Statistics { return s.stats }

func (s *AdjacencyListStorage) EstimateMemorySize() int64 {
	size := int64(0)
	for _, targets := range s.edges {
		size += int64(4 + len(targets)*4)
	}
	for _, annos := range s.edgeAnnos {
		size += int64(8 + len(annos)*12)
	}
	return size
}

// Distance returns the shortest-path distance via breadth-first search, or
// -1 if unreachable.
func (s *AdjacencyListStorage) Distance(edge annis.Edge) int {
	if edge.Source == edge.Target {
		return 0
	}
	visited := map[annis.NodeId]bool{edge.Source: true}
	frontier := []annis.NodeId{edge.Source}
	dist := 0
	for len(frontier) > 0 {
		dist++
		var next []annis.NodeId
		for _, n := range frontier {
			for _, t := range s.edges[n] {
				if t == edge.Target {
					return dist
				}
				if !visited[t] {
					visited[t] = true
					next = append(next, t)
				}
			}
		}
		frontier = next
	}
	return -1
}

// IsConnected reports reachability of edge.Target from edge.Source within
// [minDist, maxDist] steps via breadth-first expansion.
func (s *AdjacencyListStorage) IsConnected(edge annis.Edge, minDist, maxDist int) bool {
	d := s.Distance(edge)
	return d >= 0 && d >= minDist && d <= maxDist
}

// adjacencyIterator is a breadth-first EdgeIterator over reachable nodes.
type adjacencyIterator struct {
	storage   *AdjacencyListStorage
	source    annis.NodeId
	minDist   int
	maxDist   int
	visited   map[annis.NodeId]bool
	queue     []annis.NodeId
	queueDist []int
	current   annis.NodeId
	pos       int
}

func (it *adjacencyIterator) init() {
	it.visited = map[annis.NodeId]bool{it.source: true}
	it.queue = []annis.NodeId{it.source}
	it.queueDist = []int{0}
	it.pos = 0
}

func (it *adjacencyIterator) Next() bool {
	for it.pos < len(it.queue) {
		node := it.queue[it.pos]
		dist := it.queueDist[it.pos]
		it.pos++

		if dist > it.maxDist {
			continue
		}
		for _, t := range it.storage.edges[node] {
			if !it.visited[t] {
				it.visited[t] = true
				it.queue = append(it.queue, t)
				it.queueDist = append(it.queueDist, dist+1)
			}
		}
		if dist >= it.minDist && dist > 0 {
			it.current = node
			return true
		}
	}
	return false
}

func (it *adjacencyIterator) Node() annis.NodeId { return it.current }
func (it *adjacencyIterator) Reset()             { it.init() }
func (it *adjacencyIterator) Close()             {}

// FindConnected returns a lazy breadth-first iterator over reachable nodes
// within [minDist, maxDist]. This enumerates the queue in BFS discovery
// order, not sorted by distance-then-id; callers that need an order impose
// it themselves.
func (s *AdjacencyListStorage) FindConnected(source annis.NodeId, minDist, maxDist int) EdgeIterator {
	it := &adjacencyIterator{storage: s, source: source, minDist: minDist, maxDist: maxDist}
	it.init()
	return it
}

// CalculateStatistics recomputes Statistics by scanning the full edge set.
func (s *AdjacencyListStorage) CalculateStatistics() {
	stats := Statistics{Valid: true}
	nodes := make(map[annis.NodeId]bool)
	maxFanOut := 0
	totalFanOut := 0
	numSources := 0
	for src, targets := range s.edges {
		nodes[src] = true
		for _, t := range targets {
			nodes[t] = true
		}
		if len(targets) > 0 {
			numSources++
			totalFanOut += len(targets)
			if len(targets) > maxFanOut {
				maxFanOut = len(targets)
			}
		}
	}
	stats.Nodes = len(nodes)
	stats.MaxFanOut = maxFanOut
	if numSources > 0 {
		stats.AvgFanOut = float64(totalFanOut) / float64(numSources)
	}

	roots := s.findRoots()
	entries, cyclic := CycleSafeDFS(roots, func(n annis.NodeId) []annis.NodeId { return s.edges[n] })
	stats.Cyclic = cyclic
	stats.MaxDepth = MaxDepth(entries)
	stats.RootedTree = !cyclic && isRootedTree(s.edges, roots, len(nodes))
	if len(entries) > 0 {
		stats.DFSVisitRatio = float64(len(entries)) / float64(len(nodes))
	} else {
		stats.DFSVisitRatio = 1.0
	}

	s.stats = stats
}

func (s *AdjacencyListStorage) findRoots() []annis.NodeId {
	hasIncoming := make(map[annis.NodeId]bool)
	for _, targets := range s.edges {
		for _, t := range targets {
			hasIncoming[t] = true
		}
	}
	var roots []annis.NodeId
	for src := range s.edges {
		if !hasIncoming[src] {
			roots = append(roots, src)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots
}

// isRootedTree reports whether the component forms a forest of rooted
// trees: every non-root node has exactly one incoming edge, and the DFS
// from the roots reaches every node exactly once.
func isRootedTree(edges map[annis.NodeId][]annis.NodeId, roots []annis.NodeId, totalNodes int) bool {
	indegree := make(map[annis.NodeId]int)
	for _, targets := range edges {
		for _, t := range targets {
			indegree[t]++
			if indegree[t] > 1 {
				return false
			}
		}
	}
	visited := make(map[annis.NodeId]bool)
	var walk func(n annis.NodeId) bool
	walk = func(n annis.NodeId) bool {
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, t := range edges[n] {
			if !walk(t) {
				return false
			}
		}
		return true
	}
	for _, r := range roots {
		if !walk(r) {
			return false
		}
	}
	return len(visited) == totalNodes
}

type gobAdjacency struct {
	Edges     map[annis.NodeId][]annis.NodeId
	EdgeAnnos map[annis.Edge][]annis.Annotation
	NumEdges  int
	Stats     Statistics
}

// Save serializes the storage with encoding/gob. The on-disk byte layout
// is private to this implementation; only the round-trip matters.
func (s *AdjacencyListStorage) Save() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	err := enc.Encode(gobAdjacency{Edges: s.edges, EdgeAnnos: s.edgeAnnos, NumEdges: s.numEdges, Stats: s.stats})
	return buf.Bytes(), err
}

// Load restores the storage from data produced by Save.
func (s *AdjacencyListStorage) Load(data []byte) error {
	var g gobAdjacency
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&g); err != nil {
		return err
	}
	if g.Edges == nil {
		g.Edges = make(map[annis.NodeId][]annis.NodeId)
	}
	if g.EdgeAnnos == nil {
		g.EdgeAnnos = make(map[annis.Edge][]annis.Annotation)
	}
	s.edges = g.Edges
	s.edgeAnnos = g.EdgeAnnos
	s.numEdges = g.NumEdges
	s.stats = g.Stats
	return nil
}

var (
	_ ReadableGraphStorage  = (*AdjacencyListStorage)(nil)
	_ WriteableGraphStorage = (*AdjacencyListStorage)(nil)
)
