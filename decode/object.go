package decode

import (
	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

// ObjectDecoder binds an edge whose Domain is a SetDomain: a fixed,
// named set of partitions, each identified by an explicit Where filter
// rather than a value match. Each partition becomes its own filter
// sub-aggregation keyed by partition name, mirroring jx_elasticsearch's
// treatment of object/set domains as a `filters` aggregation rather
// than `terms`.
type ObjectDecoder struct {
	edge      model.Edge
	nameIndex map[string]int
}

func NewObjectDecoder(edge model.Edge) *ObjectDecoder {
	nameIndex := map[string]int{}
	for i, p := range edge.Domain.Partitions {
		nameIndex[p.Name] = i
	}
	return &ObjectDecoder{edge: edge, nameIndex: nameIndex}
}

func (d *ObjectDecoder) Edge() model.Edge { return d.edge }
func (d *ObjectDecoder) NumColumns() int  { return 1 }

// AppendAggregation writes the realizing "_match" filters aggregation
// (keyed by partition name, per ES's object/map bucket response shape)
// into doc, an "_other" sibling matching documents whose value fits no
// declared partition's filter, and — when the edge allows nulls — a
// "_missing" sibling.
func (d *ObjectDecoder) AppendAggregation(doc esdoc.Node, inner esdoc.Node) {
	filters := esdoc.Node{}
	matches := make([]esdoc.Node, 0, len(d.edge.Domain.Partitions))
	for _, p := range d.edge.Domain.Partitions {
		clause := expr.ToESFilter(p.Where)
		filters[p.Name] = clause
		matches = append(matches, clause)
	}
	match := esdoc.Node{"filters": esdoc.Node{"filters": filters}}
	appendInner(match, inner)
	doc["_match"] = match
	doc["_other"] = otherAgg(matches, inner)
	if d.edge.AllowNulls {
		doc["_missing"] = missingAgg(d.edge.Value, inner)
	}
}

func (d *ObjectDecoder) GetIndex(key any) int {
	name, _ := key.(string)
	if idx, ok := d.nameIndex[name]; ok {
		return idx
	}
	return -1
}

func (d *ObjectDecoder) Count(any) {}

func (d *ObjectDecoder) DoneCount() int {
	return len(d.edge.Domain.Partitions)
}

func (d *ObjectDecoder) Labels() []string {
	labels := make([]string, len(d.edge.Domain.Partitions))
	for i, p := range d.edge.Domain.Partitions {
		labels[i] = p.Name
	}
	return labels
}
