package executor

import (
	"strconv"
	"testing"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/planner"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

func benchMatcher(n int) *fakeMatcher {
	present := make(map[annis.NodeId]annis.Annotation, n)
	for i := 1; i <= n; i++ {
		present[annis.NodeId(i)] = annis.WildcardAnnotation
	}
	return &fakeMatcher{present: present}
}

func drain(b *testing.B, it Iterator) int {
	b.Helper()
	count := 0
	for it.Next() {
		count++
	}
	if err := it.Close(); err != nil {
		b.Fatal(err)
	}
	return count
}

// BenchmarkSeedIndexJoin compares the sequential seed-index join against
// the task-parallel one over the same candidate stream, at varying task
// bounds. The result sets must agree; only delivery order may differ.
func BenchmarkSeedIndexJoin(b *testing.B) {
	const corpusSize = 2000
	matcher := benchMatcher(corpusSize)

	node := &planner.PlanNode{
		Kind:   planner.KindSeedIndex,
		Op:     succOp{},
		Left:   baseNode(query.NodeSpec{}, 0),
		Right:  &planner.PlanNode{Kind: planner.KindBase, Spec: query.NodeSpec{}},
		LHSPos: 0,
	}

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			it := buildSeedIndex(node, matcher.Search(query.NodeSpec{}), matcher)
			if got := drain(b, it); got != corpusSize-1 {
				b.Fatalf("expected %d tuples, got %d", corpusSize-1, got)
			}
		}
	})

	for _, tasks := range []int{1, 4, 16} {
		pool := NewWorkerPool(tasks)
		b.Run("parallel-"+strconv.Itoa(tasks), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				it := buildParallelSeedIndex(node, matcher.Search(query.NodeSpec{}), matcher, pool, tasks)
				if got := drain(b, it); got != corpusSize-1 {
					b.Fatalf("expected %d tuples, got %d", corpusSize-1, got)
				}
			}
		})
		pool.Close()
	}
}
