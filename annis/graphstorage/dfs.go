package graphstorage

import "github.com/korpling/graphANNIS-sub001"

// DFSEntry records the order and level at which a node was visited during
// a cycle-safe depth-first traversal.
type DFSEntry struct {
	Node  annis.NodeId
	Pre   int
	Post  int
	Level int
}

// CycleSafeDFS walks outEdges from every root, assigning Pre on entry and
// Post on exit, using a per-path visited set to detect cycles. A cycle is
// reported as a bit alongside the result rather than as an error, so the
// traversal composes with iterator-based callers.
func CycleSafeDFS(roots []annis.NodeId, outEdges func(annis.NodeId) []annis.NodeId) (entries []DFSEntry, cyclic bool) {
	visitedGlobal := make(map[annis.NodeId]bool)
	order := 0

	for _, root := range roots {
		if visitedGlobal[root] {
			continue
		}
		onPath := make(map[annis.NodeId]bool)
		var walk func(node annis.NodeId, level int)
		walk = func(node annis.NodeId, level int) {
			if onPath[node] {
				cyclic = true
				return
			}
			if visitedGlobal[node] {
				return
			}
			onPath[node] = true
			visitedGlobal[node] = true

			idx := len(entries)
			entries = append(entries, DFSEntry{Node: node, Level: level})
			entries[idx].Pre = order
			order++

			for _, target := range outEdges(node) {
				walk(target, level+1)
			}

			order++
			entries[idx].Post = order - 1
			delete(onPath, node)
		}
		walk(root, 0)
	}

	return entries, cyclic
}

// MaxDepth returns the deepest level reached in entries.
func MaxDepth(entries []DFSEntry) int {
	max := 0
	for _, e := range entries {
		if e.Level > max {
			max = e.Level
		}
	}
	return max
}
