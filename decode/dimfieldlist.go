package decode

import (
	"strings"

	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/model"
)

// DimFieldListDecoder binds an edge whose Domain is a DimensionDomain:
// a pre-declared dimension table enumerated by a tuple of fields rather
// than a single value. The tuple is compiled as nested terms
// aggregations, one per field, and decoded back into a single
// "/"-joined composite key.
type DimFieldListDecoder struct {
	edge    model.Edge
	indices map[string]int
	order   []string
}

func NewDimFieldListDecoder(edge model.Edge) *DimFieldListDecoder {
	return &DimFieldListDecoder{edge: edge, indices: map[string]int{}}
}

func (d *DimFieldListDecoder) Edge() model.Edge { return d.edge }

// NumColumns is 1: the field tuple decodes to one composite coordinate,
// not one slot per field, keeping walk.Walk's one-coordinate-per-decoder
// arithmetic uniform across decoder kinds.
func (d *DimFieldListDecoder) NumColumns() int { return 1 }

// AppendAggregation writes the realizing "_match" aggregation: nested
// terms, one per field, composing into the single composite coordinate
// GetIndex assembles. A composite key has no single out-of-domain test
// and no single null test that wouldn't just be "every field
// individually missing" (itself representable as its own dimension
// value via a per-field terms aggregation's own null handling), so
// unlike the other decoders this one never emits "_other" or
// "_missing" — see decode.go's NumColumns doc comment and DESIGN.md for
// the accompanying simplification this shares a rationale with.
func (d *DimFieldListDecoder) AppendAggregation(doc esdoc.Node, inner esdoc.Node) {
	fields := d.edge.Domain.Fields
	if len(fields) == 0 {
		return
	}
	var build func(i int) esdoc.Node
	build = func(i int) esdoc.Node {
		if i == len(fields)-1 {
			leaf := esdoc.Node{"terms": esdoc.Node{"field": fields[i], "size": 10000}}
			appendInner(leaf, inner)
			return leaf
		}
		return esdoc.Node{
			"terms": esdoc.Node{"field": fields[i], "size": 10000},
			"aggs":  esdoc.Node{"_dim_" + fields[i+1]: build(i + 1)},
		}
	}
	doc["_match"] = build(0)
}

func (d *DimFieldListDecoder) compositeKey(parts []any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i], _ = p.(string)
	}
	return strings.Join(strs, "/")
}

func (d *DimFieldListDecoder) GetIndex(key any) int {
	parts, ok := key.([]any)
	var composite string
	if ok {
		composite = d.compositeKey(parts)
	} else {
		composite, _ = key.(string)
	}
	if idx, ok := d.indices[composite]; ok {
		return idx
	}
	idx := len(d.order)
	d.indices[composite] = idx
	d.order = append(d.order, composite)
	return idx
}

func (d *DimFieldListDecoder) Count(key any) {
	d.GetIndex(key)
}

func (d *DimFieldListDecoder) DoneCount() int {
	return len(d.order)
}

func (d *DimFieldListDecoder) Labels() []string {
	return append([]string(nil), d.order...)
}
