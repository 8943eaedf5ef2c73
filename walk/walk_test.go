package walk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

func TestWalkSingleTermsLevel(t *testing.T) {
	edge := model.Edge{Name: "country", Value: &expr.Variable{Name: "country"}}
	d := decode.NewDefaultDecoder(edge)
	pulls := []aggbuilder.Pull{{Name: "", SubField: "doc_count"}}

	response := map[string]any{
		"_match": map[string]any{
			"buckets": []any{
				map[string]any{"key": "US", "doc_count": float64(7)},
				map[string]any{"key": "DE", "doc_count": float64(3)},
			},
		},
	}

	rows := Walk([]decode.Decoder{d}, pulls, response)
	require.Len(t, rows, 2)
	assert.Equal(t, []int{0}, rows[0].Coord)
	assert.Equal(t, int64(7), rows[0].HitCount)
	assert.Equal(t, []int{1}, rows[1].Coord)
}

func TestWalkSkipsEmptyLeafBuckets(t *testing.T) {
	edge := model.Edge{Name: "country", Value: &expr.Variable{Name: "country"}}
	d := decode.NewDefaultDecoder(edge)
	pulls := []aggbuilder.Pull{{Name: "", SubField: "doc_count"}}

	response := map[string]any{
		"_match": map[string]any{
			"buckets": []any{
				map[string]any{"key": "US", "doc_count": float64(0)},
			},
		},
	}

	rows := Walk([]decode.Decoder{d}, pulls, response)
	assert.Empty(t, rows)
}

func TestWalkDrillsThroughNestedFilterWrapper(t *testing.T) {
	edge := model.Edge{Name: "sku", Value: &expr.Variable{Name: "lines.sku"}}
	d := decode.NewDefaultDecoder(edge)
	pulls := []aggbuilder.Pull{{Name: "", SubField: "doc_count"}}

	response := map[string]any{
		"_nested": map[string]any{
			"_match": map[string]any{
				"buckets": []any{
					map[string]any{"key": "abc", "doc_count": float64(4)},
				},
			},
		},
	}

	rows := Walk([]decode.Decoder{d}, pulls, response)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0].HitCount)
}

func TestWalkPullsNamedAggregationSubField(t *testing.T) {
	edge := model.Edge{Name: "country", Value: &expr.Variable{Name: "country"}}
	d := decode.NewDefaultDecoder(edge)
	pulls := []aggbuilder.Pull{{Name: "total", SubField: "value", Default: 0}}

	response := map[string]any{
		"_match": map[string]any{
			"buckets": []any{
				map[string]any{
					"key":       "US",
					"doc_count": float64(7),
					"total":     map[string]any{"value": float64(42)},
				},
			},
		},
	}

	rows := Walk([]decode.Decoder{d}, pulls, response)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(42), rows[0].Values[0])
}

func TestWalkPullsUnionBucketKeysIntoList(t *testing.T) {
	edge := model.Edge{Name: "country", Value: &expr.Variable{Name: "country"}}
	d := decode.NewDefaultDecoder(edge)
	pulls := []aggbuilder.Pull{{Name: "uniq_a", SubField: "buckets", Default: nil}}

	response := map[string]any{
		"_match": map[string]any{
			"buckets": []any{
				map[string]any{
					"key":       "US",
					"doc_count": float64(7),
					"uniq_a": map[string]any{
						"buckets": []any{
							map[string]any{"key": "x", "doc_count": float64(3)},
							map[string]any{"key": "y", "doc_count": float64(2)},
						},
					},
				},
			},
		},
	}

	rows := Walk([]decode.Decoder{d}, pulls, response)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"x", "y"}, rows[0].Values[0])
}

func TestWalkFiltersBucketKind(t *testing.T) {
	edge := model.Edge{
		Name:  "segment",
		Value: &expr.Variable{Name: "segment"},
		Domain: &model.Domain{
			Kind: model.SetDomain,
			Partitions: []model.Partition{
				{Name: "vip", Where: expr.Eq(&expr.Variable{Name: "tier"}, &expr.Literal{Value: "vip"})},
			},
		},
	}
	d := decode.NewObjectDecoder(edge)
	pulls := []aggbuilder.Pull{{Name: "", SubField: "doc_count"}}

	response := map[string]any{
		"_match": map[string]any{
			"buckets": map[string]any{
				"vip": map[string]any{"doc_count": float64(9)},
			},
		},
	}

	rows := Walk([]decode.Decoder{d}, pulls, response)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(9), rows[0].HitCount)
}
