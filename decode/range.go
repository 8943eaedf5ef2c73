package decode

import (
	"fmt"
	"strings"

	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

// RangeDecoder binds an edge whose Domain is a fixed set of numeric or
// date intervals, emitted as an ES range aggregation whose ranges carry
// the partition names as their keys, so each response bucket's key is
// the partition name directly.
type RangeDecoder struct {
	edge      model.Edge
	nameIndex map[string]int
}

func NewRangeDecoder(edge model.Edge) *RangeDecoder {
	nameIndex := map[string]int{}
	for i, p := range edge.Domain.Partitions {
		nameIndex[p.Name] = i
	}
	return &RangeDecoder{edge: edge, nameIndex: nameIndex}
}

func (d *RangeDecoder) Edge() model.Edge { return d.edge }
func (d *RangeDecoder) NumColumns() int  { return 1 }

// AppendAggregation writes the realizing "_match" range aggregation
// into doc, an "_other" sibling matching values outside every declared
// partition, and — when the edge allows nulls — a "_missing" sibling.
// "_match" uses the unkeyed (array) range form: each declared range
// already carries its partition name as a custom "key", so nothing is
// lost by not asking Elasticsearch for the keyed/object response shape,
// and the array form is what every other decoder's "_match" reports.
func (d *RangeDecoder) AppendAggregation(doc esdoc.Node, inner esdoc.Node) {
	script := expr.ToPainless(d.edge.Value)
	ranges := make([]any, 0, len(d.edge.Domain.Partitions))
	for _, p := range d.edge.Domain.Partitions {
		r := esdoc.Node{"key": p.Name}
		if p.Min != nil {
			r["from"] = p.Min
		}
		if p.Max != nil {
			r["to"] = p.Max
		}
		ranges = append(ranges, r)
	}
	match := esdoc.Node{
		"range": esdoc.Node{
			"script": esdoc.Node{"source": script, "lang": "painless"},
			"ranges": ranges,
		},
	}
	appendInner(match, inner)
	doc["_match"] = match
	doc["_other"] = otherAgg(d.rangeMatches(script), inner)
	if d.edge.AllowNulls {
		doc["_missing"] = missingAgg(d.edge.Value, inner)
	}
}

// rangeMatches builds one script filter per declared partition, each
// true exactly when script's value falls in that partition's [min,max)
// bounds — the same bounds the "_match" range aggregation itself uses.
func (d *RangeDecoder) rangeMatches(script string) []esdoc.Node {
	matches := make([]esdoc.Node, len(d.edge.Domain.Partitions))
	for i, p := range d.edge.Domain.Partitions {
		var conds []string
		if p.Min != nil {
			conds = append(conds, fmt.Sprintf("(%s) >= %s", script, scriptLiteral(p.Min)))
		}
		if p.Max != nil {
			conds = append(conds, fmt.Sprintf("(%s) < %s", script, scriptLiteral(p.Max)))
		}
		cond := "true"
		if len(conds) > 0 {
			cond = strings.Join(conds, " && ")
		}
		matches[i] = esdoc.Node{"script": esdoc.Node{"script": esdoc.Node{"source": cond, "lang": "painless"}}}
	}
	return matches
}

func (d *RangeDecoder) GetIndex(key any) int {
	name, _ := key.(string)
	if idx, ok := d.nameIndex[name]; ok {
		return idx
	}
	return -1
}

func (d *RangeDecoder) Count(any) {}

func (d *RangeDecoder) DoneCount() int {
	return len(d.edge.Domain.Partitions)
}

func (d *RangeDecoder) Labels() []string {
	labels := make([]string, len(d.edge.Domain.Partitions))
	for i, p := range d.edge.Domain.Partitions {
		labels[i] = p.Name
	}
	return labels
}
