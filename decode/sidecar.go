package decode

import (
	"fmt"

	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

// appendInner copies inner's top-level keys into agg by reference rather
// than deep-merging them. inner is always {"aggs": next}, where next is
// a Node the caller's decoder-chaining loop in package plan goes on to
// populate only after this call returns — a deep Merge would snapshot
// next while it is still empty and leave agg["aggs"] permanently
// disconnected from the object plan later writes into.
func appendInner(agg, inner esdoc.Node) esdoc.Node {
	for k, v := range inner {
		agg[k] = v
	}
	return agg
}

// missingAgg builds the "_missing" sibling aggregation spec.md §4.2
// describes: a bare Variable uses Elasticsearch's native missing
// aggregation (one doc-values lookup, no script); any other expression
// falls back to a filter aggregation on a painless null test, reusing
// the same nullable-script idiom DefaultDecoder's terms aggregation
// used before this field existed.
func missingAgg(value model.Expr, inner esdoc.Node) esdoc.Node {
	var agg esdoc.Node
	if v, ok := expr.IsVariable(value); ok {
		agg = esdoc.Node{"missing": esdoc.Node{"field": v.Name}}
	} else {
		agg = esdoc.Node{"filter": nullFilter(value)}
	}
	return appendInner(agg, inner)
}

func nullFilter(value model.Expr) esdoc.Node {
	return esdoc.Node{"script": esdoc.Node{"script": esdoc.Node{
		"source": expr.ToPainlessNullable(value) + " == null",
		"lang":   "painless",
	}}}
}

// otherAgg builds the "_other" sibling aggregation for a decoder with
// a closed, enumerable domain: a filter aggregation matching documents
// that satisfy none of matches, each a single ES query clause for one
// declared partition.
func otherAgg(matches []esdoc.Node, inner esdoc.Node) esdoc.Node {
	should := make([]any, len(matches))
	for i, m := range matches {
		should[i] = m
	}
	agg := esdoc.Node{"filter": esdoc.Node{"bool": esdoc.Node{"must_not": []any{
		esdoc.Node{"bool": esdoc.Node{"should": should, "minimum_should_match": 1}},
	}}}}
	return appendInner(agg, inner)
}

// scriptLiteral renders v as a painless literal for inline comparisons,
// matching expr.ToPainless's treatment of string/number/nil constants.
func scriptLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}
