package decode

import (
	"fmt"

	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

// DefaultDecoder binds an edge with no pre-declared domain: it emits a
// terms aggregation and discovers the realized partitions from the
// response, assigning each newly observed key the next free index in
// first-seen order.
type DefaultDecoder struct {
	edge    model.Edge
	indices map[any]int
	order   []any
}

func NewDefaultDecoder(edge model.Edge) *DefaultDecoder {
	return &DefaultDecoder{edge: edge, indices: map[any]int{}}
}

func (d *DefaultDecoder) Edge() model.Edge { return d.edge }
func (d *DefaultDecoder) NumColumns() int  { return 1 }

// AppendAggregation writes the realizing "_match" terms aggregation
// into doc, plus a sibling "_missing" aggregation when the edge allows
// nulls. The "_match" script is the ordinary (non-nullable) painless
// form: a terms aggregation already drops documents a script throws
// for, and a null return would land its own bucket keyed null, which
// the open-domain discovery in GetIndex/Count has no way to tell apart
// from a legitimately scripted null value — allowNulls routes that
// case through "_missing" explicitly instead.
func (d *DefaultDecoder) AppendAggregation(doc esdoc.Node, inner esdoc.Node) {
	size := d.edge.Limit
	if size <= 0 {
		size = 1000
	}
	match := esdoc.Node{
		"terms": esdoc.Node{
			"script": esdoc.Node{"source": expr.ToPainless(d.edge.Value), "lang": "painless"},
			"size":   size,
			"order":  esdoc.Node{"_key": "asc"},
		},
	}
	appendInner(match, inner)
	doc["_match"] = match
	if d.edge.AllowNulls {
		doc["_missing"] = missingAgg(d.edge.Value, inner)
	}
}

func (d *DefaultDecoder) GetIndex(key any) int {
	if idx, ok := d.indices[normalizeKey(key)]; ok {
		return idx
	}
	idx := len(d.order)
	d.indices[normalizeKey(key)] = idx
	d.order = append(d.order, key)
	return idx
}

func (d *DefaultDecoder) Count(key any) {
	d.GetIndex(key)
}

func (d *DefaultDecoder) DoneCount() int {
	return len(d.order)
}

func (d *DefaultDecoder) Labels() []string {
	labels := make([]string, len(d.order))
	for i, k := range d.order {
		labels[i] = fmt.Sprintf("%v", k)
	}
	return labels
}

// normalizeKey collapses comparable-but-distinct numeric representations
// (float64 from JSON decoding vs int from a literal) to a single map key
// shape, since a terms aggregation and a script-derived value can report
// the same underlying number differently.
func normalizeKey(key any) any {
	switch v := key.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case int:
		return int64(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
