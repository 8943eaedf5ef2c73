package cube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/format"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/plan"
	"github.com/reveald/cube/walk"
)

// S1: data = [{a:"c",v:13},{a:"b",v:2},{v:3},{a:"b"},{a:"c",v:7},{a:"c",v:11}];
// query = {from:T, groupby:[{value:"a"}], select:[{aggregate:"count"}]};
// expected table = [["b",2],["c",3],[null,1]].
//
// The response below is the bucket shape a real cluster returns for
// that data: DefaultDecoder's terms aggregation sorts by _key
// ascending, and documents missing "a" are counted by the "_missing"
// sibling aggregation the edge's AllowNulls adds (queryjson sets it by
// default for groupby). The null group's label is the decoder's
// stringified nil key ("<nil>"), a documented simplification (DESIGN.md).
func TestGroupByCountMatchesLiteralData(t *testing.T) {
	q := &model.Query{
		GroupBy: []model.Edge{{Name: "a", Value: &expr.Variable{Name: "a"}, AllowNulls: true}},
		Select:  []model.SelectClause{{Aggregate: model.AggCount}},
		Format:  "table",
	}
	compiled, err := plan.Compile(q, model.StaticSchema{})
	require.NoError(t, err)

	response := map[string]any{
		"_match": map[string]any{
			"buckets": []any{
				map[string]any{"key": "b", "doc_count": float64(2)},
				map[string]any{"key": "c", "doc_count": float64(3)},
			},
		},
		"_missing": map[string]any{"doc_count": float64(1)},
	}

	rows := walk.Walk(compiled.Decoders, compiled.Pulls, response)
	result, _, err := format.Render(q, compiled.Decoders, compiled.Pulls, rows)
	require.NoError(t, err)

	table, ok := result.(*format.Table)
	require.True(t, ok)
	require.Len(t, table.Data, 3)
	assert.Equal(t, []any{"b", float64(2)}, table.Data[0])
	assert.Equal(t, []any{"c", float64(3)}, table.Data[1])
	assert.Equal(t, []any{"<nil>", float64(1)}, table.Data[2])
}

// S2: select:[{name:"p50", value:"v", aggregate:"median"}] over S1's
// data -> p50 = 7, read back through the percentiles sub-field pull
// every median select compiles to.
func TestMedianSelectPullsThe50thPercentile(t *testing.T) {
	doc := esdoc.Node{}
	pulls, err := aggbuilder.Build(doc, []model.SelectClause{
		{Name: "p50", Value: &expr.Variable{Name: "v"}, Aggregate: model.AggMedian},
	})
	require.NoError(t, err)

	response := map[string]any{
		"p50": map[string]any{
			"values": map[string]any{"50.0": float64(7)},
		},
	}
	rows := walk.Walk(nil, pulls, response)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(7), rows[0].Values[0])
}

// S3: from:"jobs.tasks", where:{and:[{eq:{status:"done"}}, {gt:{"tasks.runtime": 60}}]}
// splits into splitWhere[0] = [status=done], splitWhere[1] = [tasks.runtime>60];
// the compiled doc places the depth-1 clause inside _nested.
func TestWhereClauseSplitsByNestingDepthIntoNestedFilter(t *testing.T) {
	schema := model.StaticSchema{
		"tasks.runtime": {{Name: "tasks.runtime", NestedPath: []string{"tasks"}}},
	}
	where := expr.And(
		expr.Eq(&expr.Variable{Name: "status"}, &expr.Literal{Value: "done"}),
		&expr.CompareOp{Op: "gt", Left: &expr.Variable{Name: "tasks.runtime"}, Right: &expr.Literal{Value: 60}},
	)
	q := &model.Query{
		From: "jobs.tasks",
		Edges: []model.Edge{
			{Name: "runtime_bucket", Value: &expr.Variable{Name: "tasks.runtime"}},
		},
		Select: []model.SelectClause{{}},
		Where:  where,
	}
	compiled, err := plan.Compile(q, schema)
	require.NoError(t, err)

	// the root-level where clause (status=done) still gates the whole
	// query via the top-level "query" key...
	assert.Contains(t, compiled.Body, "query")

	// ...and also wraps the root aggregation tree in its own _filter,
	// since a nested aggregation's buckets aren't pre-filtered by the
	// top-level query.
	aggsRoot := compiled.Body["aggs"].(esdoc.Node)
	rootFilter, ok := aggsRoot["_filter"].(esdoc.Node)
	require.True(t, ok)

	// the depth-1 clause (tasks.runtime>60) is pushed further down,
	// inside the _nested wrapper, as its own sibling _filter.
	nested, ok := rootFilter["aggs"].(esdoc.Node)["_nested"].(esdoc.Node)
	require.True(t, ok)
	nestedAggs := nested["aggs"].(esdoc.Node)
	_, hasNestedFilter := nestedAggs["_filter"].(esdoc.Node)
	assert.True(t, hasNestedFilter)
}
