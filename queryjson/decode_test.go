package queryjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

func TestDecodeBareSelectString(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"from":"orders","select":"sku"}`))
	require.NoError(t, err)
	require.Len(t, q.Select, 1)
	v, ok := expr.IsVariable(q.Select[0].Value)
	require.True(t, ok)
	assert.Equal(t, "sku", v.Name)
}

func TestDecodeSelectListWithAggregate(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"select":[{"value":"price","aggregate":"sum"}]}`))
	require.NoError(t, err)
	require.Len(t, q.Select, 1)
	assert.Equal(t, model.AggSum, q.Select[0].Aggregate)
}

func TestDecodeEdgeWithRangeDomain(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{
		"edges": [{"value": "age", "domain": {"type": "range", "partitions": [{"name": "child", "min": 0, "max": 18}]}}]
	}`))
	require.NoError(t, err)
	require.Len(t, q.Edges, 1)
	require.NotNil(t, q.Edges[0].Domain)
	assert.Equal(t, model.RangeDomain, q.Edges[0].Domain.Kind)
	assert.Equal(t, "child", q.Edges[0].Domain.Partitions[0].Name)
}

func TestDecodeEdgeDefaultsNameToValue(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"edges": [{"value": "country"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "country", q.Edges[0].Name)
}

func TestDecodeWhereEqExpression(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"where": {"eq": ["status", "active"]}}`))
	require.NoError(t, err)
	cmp, ok := q.Where.(*expr.CompareOp)
	require.True(t, ok)
	assert.Equal(t, "eq", cmp.Op)
}

func TestDecodeWhereAndFlattensNestedTerms(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"where": {"and": [{"eq": ["a", 1]}, {"gt": ["b", 2]}]}}`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, q.Where.Vars())
}

func TestDecodeWhereRejectsMultiKeyOperatorObject(t *testing.T) {
	_, err := Decoder{}.Decode([]byte(`{"where": {"eq": ["a", 1], "gt": ["b", 2]}}`))
	require.Error(t, err)
}

func TestDecodeSortDirection(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"sort": {"value": "price", "sort": "desc"}}`))
	require.NoError(t, err)
	require.Len(t, q.Sort, 1)
	assert.Equal(t, model.Desc, q.Sort[0].Dir)
}

func TestDecodeSelectCarriesUnionLimit(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"select":[{"name":"uniq_a","value":"a","aggregate":"union","limit":5}]}`))
	require.NoError(t, err)
	require.Len(t, q.Select, 1)
	assert.Equal(t, model.AggUnion, q.Select[0].Aggregate)
	assert.Equal(t, 5, q.Select[0].Limit)
}

func TestDecodeMissingOperator(t *testing.T) {
	q, err := Decoder{}.Decode([]byte(`{"where": {"missing": "email"}}`))
	require.NoError(t, err)
	_, ok := q.Where.(*expr.NullOp)
	assert.True(t, ok)
}
