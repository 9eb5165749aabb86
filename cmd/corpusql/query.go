package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/corpus"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// fileAnnotationConstraint and fileNodeSpec/fileJoinSpec/fileQuery are the
// CLI's JSON-on-disk encoding of the engine's intermediate query form. They
// are not a query language: every field maps 1:1 onto query.NodeSpec/
// JoinSpec, so reading one of these files is a struct decode plus a
// string-pool lookup, not parsing a grammar (a language parser is
// explicitly out of scope).
type fileAnnotationConstraint struct {
	Ns       string `json:"ns,omitempty"`
	HasNs    bool   `json:"has_ns,omitempty"`
	Name     string `json:"name"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"has_value,omitempty"`
	Regex    bool   `json:"regex,omitempty"`
}

type fileNodeSpec struct {
	Annotations []fileAnnotationConstraint `json:"annotations,omitempty"`

	SpanText    string `json:"span_text,omitempty"`
	HasSpanText bool   `json:"has_span_text,omitempty"`
	SpanRegex   bool   `json:"span_regex,omitempty"`

	Token bool `json:"token,omitempty"`
}

type fileEdgeAnnotation struct {
	Ns    string `json:"ns,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fileJoinSpec struct {
	Op    string `json:"op"`
	Left  int    `json:"left"`
	Right int    `json:"right"`

	MinDistance int  `json:"min_distance,omitempty"`
	MaxDistance int  `json:"max_distance,omitempty"`
	HasDistance bool `json:"has_distance,omitempty"`

	Layer string `json:"layer,omitempty"`
	Name  string `json:"name,omitempty"`

	EdgeAnnotation    *fileEdgeAnnotation `json:"edge_annotation,omitempty"`
	ForceNestedLoop   bool                `json:"force_nested_loop,omitempty"`
}

type fileQuery struct {
	Nodes map[string]fileNodeSpec `json:"nodes"`
	Joins []fileJoinSpec          `json:"joins,omitempty"`
}

var opNames = map[string]query.OperatorKind{
	"precedence":        query.OpPrecedence,
	"inclusion":         query.OpInclusion,
	"overlap":           query.OpOverlap,
	"identical_coverage": query.OpIdenticalCoverage,
	"identical_node":    query.OpIdenticalNode,
	"dominance":         query.OpDominance,
	"pointing":          query.OpPointing,
	"part_of_subcorpus": query.OpPartOfSubCorpus,
}

// loadQuery reads path as a fileQuery and resolves it into the planner's
// intermediate form, interning any edge-annotation literal through c's
// string pool (the one piece of the file format that needs interned ids
// rather than plain strings, since operator.EdgeOperator compares
// annis.StringId directly).
func loadQuery(c *corpus.Corpus, path string) (*query.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fq fileQuery
	if err := json.Unmarshal(data, &fq); err != nil {
		return nil, fmt.Errorf("parsing query file %s: %w", path, err)
	}

	q := &query.Query{Nodes: make(map[query.NodeIndex]query.NodeSpec, len(fq.Nodes))}
	for key, fn := range fq.Nodes {
		idx, err := nodeIndexFromKey(key)
		if err != nil {
			return nil, err
		}
		spec := query.NodeSpec{
			SpanText:    fn.SpanText,
			HasSpanText: fn.HasSpanText,
			TokenOnly:   fn.Token,
		}
		if fn.SpanRegex {
			spec.SpanTextMatching = query.RegexEqual
		}
		for _, fa := range fn.Annotations {
			ac := query.AnnotationConstraint{
				Ns: fa.Ns, HasNs: fa.HasNs,
				Name: fa.Name, Value: fa.Value, HasValue: fa.HasValue,
			}
			if fa.Regex {
				ac.Matching = query.RegexEqual
			}
			spec.Annotations = append(spec.Annotations, ac)
		}
		q.Nodes[idx] = spec
	}

	for _, fj := range fq.Joins {
		op, ok := opNames[fj.Op]
		if !ok {
			return nil, annis.NewError(annis.InvalidInput, fmt.Sprintf("unknown operator %q", fj.Op))
		}
		js := query.JoinSpec{
			Op: op, Left: query.NodeIndex(fj.Left), Right: query.NodeIndex(fj.Right),
			MinDistance: fj.MinDistance, MaxDistance: fj.MaxDistance, HasDistance: fj.HasDistance,
			Layer: fj.Layer, Name: fj.Name, ForceNestedLoop: fj.ForceNestedLoop,
		}
		if fj.EdgeAnnotation != nil {
			js.HasEdgeAnnotation = true
			js.EdgeAnnotation = annis.Annotation{
				Key: annis.AnnotationKey{Ns: c.Pool.Add(fj.EdgeAnnotation.Ns), Name: c.Pool.Add(fj.EdgeAnnotation.Name)},
				Val: c.Pool.Add(fj.EdgeAnnotation.Value),
			}
		}
		q.Joins = append(q.Joins, js)
	}
	return q, nil
}

func nodeIndexFromKey(key string) (query.NodeIndex, error) {
	var n int
	if _, err := fmt.Sscanf(key, "%d", &n); err != nil {
		return 0, fmt.Errorf("node key %q is not an integer index", key)
	}
	return query.NodeIndex(n), nil
}
