package corpus

import (
	"fmt"
	"strings"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/executor"
	"github.com/korpling/graphANNIS-sub001/annis/operator"
	"github.com/korpling/graphANNIS-sub001/annis/planner"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// Engine is the query-facing facade over a loaded Corpus: Count/Find for
// results, Plan and UpdateStatistics for the diagnostic CLI commands.
type Engine struct {
	Corpus *Corpus

	PlannerOpts planner.PlannerOptions
	ExecOpts    executor.Options
	Pool        *executor.WorkerPool
	Cache       *planner.PlanCache
}

// NewEngine builds an Engine over c with the default planner/executor
// options and no plan cache. Callers that want caching or parallel
// execution construct their own PlanCache/WorkerPool and assign them.
func NewEngine(c *Corpus) *Engine {
	return &Engine{
		Corpus:      c,
		PlannerOpts: planner.DefaultOptions(),
		ExecOpts:    executor.DefaultOptions(),
	}
}

// BindOperator constructs the operator.Operator realizing one JoinSpec,
// resolving its edge/coverage/ordering storages through the corpus.
func (e *Engine) BindOperator(js query.JoinSpec) (operator.Operator, error) {
	c := e.Corpus
	min, max := js.NormalizedDistance()

	switch js.Op {
	case query.OpPrecedence:
		return operator.NewPrecedence(c, c.TokenHelper(), min, max), nil
	case query.OpInclusion:
		return operator.NewInclusion(c, c.TokenHelper()), nil
	case query.OpOverlap:
		return operator.NewOverlap(c, c.TokenHelper()), nil
	case query.OpIdenticalCoverage:
		return operator.NewIdenticalCoverage(c, c.TokenHelper()), nil
	case query.OpIdenticalNode:
		return operator.NewIdenticalNode(), nil
	case query.OpDominance:
		if js.HasEdgeAnnotation {
			return operator.NewDominanceWithAnnotation(c, c.Pool, js.Layer, js.Name, js.EdgeAnnotation), nil
		}
		return operator.NewDominance(c, c.Pool, js.Layer, js.Name, min, max), nil
	case query.OpPointing:
		if js.HasEdgeAnnotation {
			return operator.NewPointingWithAnnotation(c, c.Pool, js.Layer, js.Name, js.EdgeAnnotation), nil
		}
		return operator.NewPointing(c, c.Pool, js.Layer, js.Name, min, max), nil
	case query.OpPartOfSubCorpus:
		return operator.NewPartOfSubCorpus(c, c.Pool), nil
	default:
		return nil, annis.NewError(annis.InvalidInput, fmt.Sprintf("unknown operator kind %d", js.Op))
	}
}

// buildPlan binds operators for every join in q and runs the planner,
// consulting/populating e.Cache when set.
func (e *Engine) buildPlan(q *query.Query) (*planner.PlanNode, error) {
	if e.Cache != nil {
		if cached, ok := e.Cache.Get(cacheKey(q)); ok {
			return cached, nil
		}
	}

	ops := make([]operator.Operator, len(q.Joins))
	for i, js := range q.Joins {
		op, err := e.BindOperator(js)
		if err != nil {
			return nil, err
		}
		// A structurally valid join whose component doesn't exist in this
		// corpus still participates in planning: Selectivity and
		// RetrieveMatches both degrade to empty on their own.
		ops[i] = op
	}

	estimator := func(_ query.NodeIndex, spec query.NodeSpec) float64 {
		return e.Corpus.EstimateNodeCount(spec)
	}

	plan, err := planner.Build(q, ops, estimator, e.PlannerOpts)
	if err != nil {
		return nil, annis.WrapError(annis.InvalidInput, "query plan construction", err)
	}

	if e.Cache != nil {
		e.Cache.Set(cacheKey(q), plan)
	}
	return plan, nil
}

func cacheKey(q *query.Query) string {
	return fmt.Sprintf("%+v", q)
}

func (e *Engine) run(q *query.Query) (executor.Iterator, error) {
	plan, err := e.buildPlan(q)
	if err != nil {
		return nil, err
	}
	it, err := executor.Build(plan, e.Corpus, e.ExecOpts, e.Pool)
	if err != nil {
		return nil, annis.WrapError(annis.Internal, "compiling execution plan", err)
	}
	return it, nil
}

// Count returns the number of tuples matching q.
func (e *Engine) Count(q *query.Query) (uint64, error) {
	it, err := e.run(q)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var n uint64
	for it.Next() {
		n++
	}
	return n, nil
}

// Find returns the matching tuples in [offset, offset+limit) as
// match-descriptor strings, one per result tuple. limit < 0 means no
// limit.
func (e *Engine) Find(q *query.Query, offset, limit int) ([]string, error) {
	it, err := e.run(q)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []string
	skipped := 0
	for it.Next() {
		if skipped < offset {
			skipped++
			continue
		}
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, e.Corpus.FormatTuple(it.Tuple()))
	}
	return out, nil
}

// Plan exposes the raw execution tree for the `plan` CLI command.
func (e *Engine) Plan(q *query.Query) (*planner.PlanNode, error) {
	return e.buildPlan(q)
}

// UpdateStatistics recalculates the annotation index's histograms and
// every loaded graph storage's statistics, backing the `update_statistics`
// command. Unloaded (lazy) components are left alone: materializing them
// just to recompute statistics would defeat lazy loading's purpose.
func (e *Engine) UpdateStatistics() {
	e.Corpus.Annos.CalculateStatistics()
	for _, comp := range e.Corpus.Components() {
		if gs, ok := e.Corpus.storages[comp]; ok {
			if w, ok := gs.(graphstorageCalculator); ok {
				w.CalculateStatistics()
			}
		}
	}
}

type graphstorageCalculator interface {
	CalculateStatistics()
}

// FormatPlan renders node as an indented tree, used by the `plan` CLI
// command; fatih/color highlights the node kind when colorize is true.
func FormatPlan(node *planner.PlanNode, colorize bool) string {
	var b strings.Builder
	writePlan(&b, node, 0, colorize)
	return b.String()
}

func writePlan(b *strings.Builder, node *planner.PlanNode, depth int, colorize bool) {
	if node == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	label := node.Kind.String()
	if colorize {
		label = colorizeLabel(label)
	}
	fmt.Fprintf(b, "%s%s estimate=%.0f cost=%.0f\n", indent, label, node.Estimate, node.IntermediateSum)
	if node.Op != nil {
		fmt.Fprintf(b, "%s  op=%s\n", indent, node.Op.Description())
	}
	writePlan(b, node.Left, depth+1, colorize)
	writePlan(b, node.Right, depth+1, colorize)
}
