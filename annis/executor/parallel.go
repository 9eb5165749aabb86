package executor

import (
	"sync"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/planner"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// parallelResult is one tuple produced by a seed-index task. It carries no
// error: none of the operators in this engine fail mid-retrieval.
type parallelResult struct {
	tuple Tuple
}

// parallelSeedIndexIterator is the task-parallel seed-index join: one
// task per LHS tuple submitted to the shared WorkerPool, each calling
// op.RetrieveMatches(lhs) and checking every candidate against the RHS
// NodeSpec via matcher.CheckAndAnnotate. Up to MaxTasks tasks are in
// flight at once (a buffered semaphore); their results feed a single
// output channel in task-completion order, so the emitted tuple set is
// identical to the sequential join's but the order is not.
type parallelSeedIndexIterator struct {
	pool      *WorkerPool
	left      Iterator
	op        operator.Operator
	rightSpec query.NodeSpec
	matcher   Matcher
	leftPos   int
	reflexive bool
	maxTasks  int

	out     chan parallelResult
	sem     chan struct{}
	wg      sync.WaitGroup
	started bool
	closeCh chan struct{}

	current Tuple
}

func buildParallelSeedIndex(node *planner.PlanNode, left Iterator, matcher Matcher, pool *WorkerPool, maxTasks int) Iterator {
	if maxTasks <= 0 {
		maxTasks = 1
	}
	return &parallelSeedIndexIterator{
		pool: pool, left: left, op: node.Op, matcher: matcher,
		rightSpec: node.Right.Spec,
		leftPos:   node.LHSPos,
		reflexive: node.Op.IsReflexive(),
		maxTasks:  maxTasks,
		out:       make(chan parallelResult, maxTasks*4),
		sem:       make(chan struct{}, maxTasks),
		closeCh:   make(chan struct{}),
	}
}

func (it *parallelSeedIndexIterator) start() {
	it.started = true
	go func() {
	feed:
		for it.left.Next() {
			leftTuple := it.left.Tuple().clone()
			select {
			case it.sem <- struct{}{}:
			case <-it.closeCh:
				break feed
			}
			it.wg.Add(1)
			it.pool.Submit(func() {
				defer it.wg.Done()
				defer func() { <-it.sem }()
				it.runTask(leftTuple)
			})
		}
		it.wg.Wait()
		close(it.out)
	}()
}

func (it *parallelSeedIndexIterator) runTask(leftTuple Tuple) {
	lhs := leftTuple[it.leftPos]
	cands := it.op.RetrieveMatches(lhs)
	defer cands.Close()

	for cands.Next() {
		cand := cands.Match()
		anno, ok := it.matcher.CheckAndAnnotate(cand.Node, it.rightSpec)
		if !ok {
			continue
		}
		if !it.reflexive && lhs.Node == cand.Node && checkAnnotationKeyEqual(lhs.Anno, anno) {
			continue
		}
		out := make(Tuple, len(leftTuple)+1)
		copy(out, leftTuple)
		out[len(leftTuple)] = annis.Match{Node: cand.Node, Anno: anno}

		select {
		case it.out <- parallelResult{tuple: out}:
		case <-it.closeCh:
			return
		}
	}
}

func (it *parallelSeedIndexIterator) Next() bool {
	if !it.started {
		it.start()
	}
	r, ok := <-it.out
	if !ok {
		return false
	}
	it.current = r.tuple
	return true
}

func (it *parallelSeedIndexIterator) Tuple() Tuple { return it.current }

func (it *parallelSeedIndexIterator) Close() error {
	close(it.closeCh)
	return it.left.Close()
}

var _ Iterator = (*parallelSeedIndexIterator)(nil)
