package format

import (
	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/walk"
)

// Cube is a dense N-dimensional array result: one axis per edge, cell
// values one map per select clause. Edges describes each axis's
// realized partition names in coordinate order, matching
// jx_elasticsearch's cube format (`edges` + `data`).
type Cube struct {
	Edges []CubeEdge
	Data  map[string]any // select name -> nested []any array, one level of nesting per edge
}

// CubeEdge names one axis of a Cube and its realized partition labels.
type CubeEdge struct {
	Name    string
	Domain  []string
}

func renderCube(query *model.Query, decoders []decode.Decoder, pulls []aggbuilder.Pull, rows []walk.Row) *Cube {
	edges := make([]CubeEdge, len(decoders))
	dims := make([]int, len(decoders))
	for i, d := range decoders {
		dims[i] = d.DoneCount()
		edges[i] = CubeEdge{Name: d.Edge().Name, Domain: d.Labels()}
	}

	data := make(map[string]any, len(pulls))
	for pi, p := range pulls {
		data[p.DisplayName] = newNDArray(dims)
		for _, row := range rows {
			setNDArray(data[p.DisplayName], row.Coord, row.Values[pi])
		}
	}

	return &Cube{Edges: edges, Data: data}
}

// newNDArray builds a nested []any array of the given dimensions, every
// leaf initialized to nil.
func newNDArray(dims []int) []any {
	if len(dims) == 0 {
		return nil
	}
	arr := make([]any, dims[0])
	if len(dims) == 1 {
		return arr
	}
	for i := range arr {
		arr[i] = newNDArray(dims[1:])
	}
	return arr
}

func setNDArray(arr any, coord []int, value any) {
	a, ok := arr.([]any)
	if !ok || len(coord) == 0 {
		return
	}
	if coord[0] < 0 || coord[0] >= len(a) {
		return
	}
	if len(coord) == 1 {
		a[coord[0]] = value
		return
	}
	setNDArray(a[coord[0]], coord[1:], value)
}
