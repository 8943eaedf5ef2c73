// Package wheresplit implements the depth-based partitioning of a
// Query's where clause that jx_elasticsearch's split_expression_by_depth
// performs before the compiler wraps it around the right level of
// _nested/_filter aggregation: every top-level AND conjunct is pushed
// down to the shallowest nesting depth all its variables live at, so it
// filters as close to the matching nested documents as possible.
package wheresplit

import (
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

// Split decomposes where into one Expr per nesting depth, keyed by
// depth (0 is the root document). A single AND term whose variables
// resolve to more than one positive depth cannot be placed at any one
// nested level and is rejected, mirroring jx_elasticsearch's "expression
// spans tables" constraint on edges.
//
// queryPathDepth is the query's own nesting depth, len(split(From,
// "."))-1 — derived from the query's "from" path independent of which
// edges happen to exist. A conjunct landing deeper than
// queryPathDepth+1 can never be reached by the _nested wrapping Compile
// builds for this query, and is rejected as "where clause too deep"
// rather than silently dropped.
func Split(where model.Expr, schema model.Schema, queryPathDepth int) (map[int]model.Expr, error) {
	result := map[int]model.Expr{}
	if where == nil {
		return result, nil
	}
	for _, conjunct := range flattenAnd(where) {
		depth, err := depthOf(conjunct, schema)
		if err != nil {
			return nil, err
		}
		if existing, ok := result[depth]; ok {
			result[depth] = expr.And(existing, conjunct)
		} else {
			result[depth] = conjunct
		}
	}
	for d := range result {
		if d > queryPathDepth+1 {
			return nil, &model.CompileError{Template: "where clause too deep"}
		}
	}
	return result, nil
}

func flattenAnd(e model.Expr) []model.Expr {
	if ao, ok := e.(interface {
		Op() string
		Terms() []model.Expr
	}); ok && ao.Op() == "and" {
		var flat []model.Expr
		for _, t := range ao.Terms() {
			flat = append(flat, flattenAnd(t)...)
		}
		return flat
	}
	return []model.Expr{e}
}

// depthOf returns the deepest nesting depth referenced by e's
// variables. Depth 0 means the root document; depth > 0 is the one
// positive depth its nested variables share, and root-level variables
// may appear beside them. A conjunct whose variables span two different
// positive depths returns an error.
func depthOf(e model.Expr, schema model.Schema) (int, error) {
	depths := map[int]bool{}
	for _, v := range e.Vars() {
		cols := schema.Columns(v)
		if len(cols) == 0 {
			depths[0] = true
			continue
		}
		depths[cols[0].Depth()] = true
	}
	max := 0
	positive := 0
	for d := range depths {
		if d > max {
			max = d
		}
		if d > 0 {
			positive++
		}
	}
	if positive > 1 {
		return 0, &model.CompileError{Template: "expression spans tables"}
	}
	return max, nil
}
