package main

import (
	"github.com/korpling/graphANNIS-sub001/annis/corpus"
	"github.com/korpling/graphANNIS-sub001/annis/query"
)

// estimateSize approximates a loaded corpus's in-memory footprint for the
// cache's eviction accounting. A true RSS delta needs OS-level memory
// sampling around the load call; this sums each component's own
// EstimateMemorySize plus a rough string-pool estimate instead, the same
// kind of self-reported accounting graphstorage's own statistics already
// provide.
func estimateSize(c *corpus.Corpus) int64 {
	var total int64
	total += int64(float64(c.Pool.Len()) * (c.Pool.AvgLength() + 16))
	for _, comp := range c.Components() {
		for _, gs := range c.GraphStorages(comp.Type, comp.Layer, comp.Name) {
			total += gs.EstimateMemorySize()
		}
	}
	return total
}

// queryAnnotationConstraint builds the single-constraint predicate the
// guess/guess_regex commands estimate cardinality for, from positional
// CLI arguments (ns name [value]).
func queryAnnotationConstraint(args []string, regex bool) query.AnnotationConstraint {
	ac := query.AnnotationConstraint{Ns: args[0], HasNs: args[0] != "", Name: args[1]}
	if len(args) > 2 {
		ac.HasValue = true
		ac.Value = args[2]
		if regex {
			ac.Matching = query.RegexEqual
		}
	}
	return ac
}

func nodeSpecFromConstraint(ac query.AnnotationConstraint) query.NodeSpec {
	return query.NodeSpec{Annotations: []query.AnnotationConstraint{ac}}
}
