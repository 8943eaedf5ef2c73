package wheresplit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

func schemaWith(name string, depth int) model.StaticSchema {
	path := make([]string, depth)
	for i := range path {
		path[i] = "nested"
	}
	return model.StaticSchema{name: {{Name: name, NestedPath: path}}}
}

func TestSplitRootOnlyExpressionGoesToDepthZero(t *testing.T) {
	schema := model.StaticSchema{"status": {{Name: "status"}}}
	where := expr.Eq(&expr.Variable{Name: "status"}, &expr.Literal{Value: "active"})

	parts, err := Split(where, schema, 0)
	require.NoError(t, err)
	assert.Contains(t, parts, 0)
	assert.NotContains(t, parts, 1)
}

func TestSplitPushesConjunctToItsNestingDepth(t *testing.T) {
	schema := schemaWith("lines.sku", 1)
	where := expr.Eq(&expr.Variable{Name: "lines.sku"}, &expr.Literal{Value: "abc"})

	parts, err := Split(where, schema, 1)
	require.NoError(t, err)
	assert.Contains(t, parts, 1)
	assert.NotContains(t, parts, 0)
}

func TestSplitFlattensTopLevelAnd(t *testing.T) {
	schema := model.StaticSchema{
		"status": {{Name: "status"}},
		"kind":   {{Name: "kind"}},
	}
	where := expr.And(
		expr.Eq(&expr.Variable{Name: "status"}, &expr.Literal{Value: "active"}),
		expr.Eq(&expr.Variable{Name: "kind"}, &expr.Literal{Value: "order"}),
	)

	parts, err := Split(where, schema, 0)
	require.NoError(t, err)
	require.Contains(t, parts, 0)
	assert.ElementsMatch(t, []string{"kind", "status"}, parts[0].Vars())
}

func TestSplitRejectsExpressionSpanningTables(t *testing.T) {
	schema := model.StaticSchema{
		"lines.sku": {{Name: "lines.sku", NestedPath: []string{"lines"}}},
		"parts.id":  {{Name: "parts.id", NestedPath: []string{"lines", "parts"}}},
	}
	where := expr.Eq(&expr.Variable{Name: "lines.sku"}, &expr.Variable{Name: "parts.id"})

	_, err := Split(where, schema, 1)
	require.Error(t, err)
	var compileErr *model.CompileError
	assert.ErrorAs(t, err, &compileErr)
}

func TestSplitNilWhereProducesNoParts(t *testing.T) {
	parts, err := Split(nil, model.StaticSchema{}, 0)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

// A conjunct landing deeper than queryPathDepth+1 can never be reached
// by the _nested wrapping the compiler builds for this query's "from"
// path, and must be rejected rather than silently dropped.
func TestSplitRejectsConjunctDeeperThanQueryPathDepth(t *testing.T) {
	schema := model.StaticSchema{
		"lines.parts.sku": {{Name: "lines.parts.sku", NestedPath: []string{"lines", "parts"}}},
	}
	where := expr.Eq(&expr.Variable{Name: "lines.parts.sku"}, &expr.Literal{Value: "abc"})

	// queryPathDepth 0 (root-only "from") allows splitWhere depths up
	// to 1; this conjunct resolves to depth 2, which is too deep.
	_, err := Split(where, schema, 0)
	require.Error(t, err)
	var compileErr *model.CompileError
	assert.ErrorAs(t, err, &compileErr)
}
