package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/walk"
)

func buildCountryRows(t *testing.T) ([]decode.Decoder, []aggbuilder.Pull, []walk.Row) {
	t.Helper()
	edge := model.Edge{Name: "country", Value: &expr.Variable{Name: "country"}}
	d := decode.NewDefaultDecoder(edge)
	pulls := []aggbuilder.Pull{{DisplayName: "count_rows", Name: "", SubField: "doc_count"}}

	response := map[string]any{
		"_match": map[string]any{
			"buckets": []any{
				map[string]any{"key": "US", "doc_count": float64(7)},
				map[string]any{"key": "DE", "doc_count": float64(3)},
			},
		},
	}
	rows := walk.Walk([]decode.Decoder{d}, pulls, response)
	return []decode.Decoder{d}, pulls, rows
}

func TestRenderDefaultsToCubeWhenEdgesPresent(t *testing.T) {
	decoders, pulls, rows := buildCountryRows(t)
	q := &model.Query{Edges: []model.Edge{decoders[0].Edge()}}

	result, contentType, err := Render(q, decoders, pulls, rows)
	require.NoError(t, err)
	assert.Equal(t, "application/json; meta=cube", contentType)

	cube, ok := result.(*Cube)
	require.True(t, ok)
	assert.Equal(t, []string{"US", "DE"}, cube.Edges[0].Domain)
}

func TestRenderTableListsHeaderAndRows(t *testing.T) {
	decoders, pulls, rows := buildCountryRows(t)
	q := &model.Query{GroupBy: []model.Edge{decoders[0].Edge()}, Format: "table"}

	result, _, err := Render(q, decoders, pulls, rows)
	require.NoError(t, err)

	table, ok := result.(*Table)
	require.True(t, ok)
	assert.Equal(t, []string{"country", "count_rows"}, table.Header)
	assert.Equal(t, []any{"US", float64(7)}, table.Data[0])
}

func TestRenderListProducesOneObjectPerRow(t *testing.T) {
	decoders, pulls, rows := buildCountryRows(t)
	q := &model.Query{Format: "list"}

	result, _, err := Render(q, decoders, pulls, rows)
	require.NoError(t, err)

	list, ok := result.([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, "US", list[0]["country"])
	assert.Equal(t, float64(7), list[0]["count_rows"])
}

func TestRenderUnknownFormatIsFormatError(t *testing.T) {
	decoders, pulls, rows := buildCountryRows(t)
	q := &model.Query{Format: "xml"}

	_, _, err := Render(q, decoders, pulls, rows)
	require.Error(t, err)
	var fe *model.FormatError
	assert.ErrorAs(t, err, &fe)
}
