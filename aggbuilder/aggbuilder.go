// Package aggbuilder implements jx_elasticsearch's es_aggsop select
// loop: for each SelectClause, emit the matching Elasticsearch metric
// aggregation and record a "pull" recipe describing how to read its
// value back out of the response bucket for that clause.
package aggbuilder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

// Pull describes how to extract one SelectClause's value from a
// response bucket: the aggregation name to read, and which sub-field of
// that aggregation's response object holds the number ("value" for
// single-value metrics; empty when the whole response object is the
// value, as for extended_stats).
type Pull struct {
	DisplayName string
	Name        string
	SubField    string
	Default     any
}

// defaultUnionSize is the terms aggregation size used when a union
// select clause names no explicit limit.
const defaultUnionSize = 10

// unionBucketsField marks a Pull whose value is a union's distinct
// terms, read back from the response's "buckets" array rather than a
// single numeric sub-field. package walk special-cases this value.
const unionBucketsField = "buckets"

// Build emits the aggregation clauses for every select clause into doc,
// returning one Pull per clause in the same order as selects.
func Build(doc esdoc.Node, selects []model.SelectClause) ([]Pull, error) {
	pulls := make([]Pull, len(selects))
	for i, s := range selects {
		name := canonicalName(s, i)
		pull, err := buildOne(doc, name, s)
		if err != nil {
			return nil, err
		}
		pull.DisplayName = name
		pulls[i] = pull
	}
	return pulls, nil
}

// percentileSubField builds the dotted pull path for a percentiles
// aggregation's "values" object, keyed the way Elasticsearch renders the
// requested percent (Java's Double.toString: always at least one decimal
// digit, e.g. "50.0", "99.9") — with the key's literal dot escaped so
// esdocGet treats it as part of the segment, not a further path split.
func percentileSubField(p float64) string {
	key := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(key, ".") {
		key += ".0"
	}
	return "values." + strings.ReplaceAll(key, ".", "\\.")
}

// percentOf validates a SelectClause's Percentile (a fraction in
// [0,1], per the wire contract) and converts it to the 0-100 scale
// Elasticsearch's percentiles aggregation expects, rounded to 6
// decimal places the way Math.round(percentile*100, 6) does.
func percentOf(percentile float64) (float64, error) {
	if percentile < 0 || percentile > 1 {
		return 0, &model.CompileError{Template: "percentile must be a number in [0,1]"}
	}
	const scale = 1e6
	return math.Round(percentile*100*scale) / scale, nil
}

func canonicalName(s model.SelectClause, i int) string {
	if s.Name != "" {
		return s.Name
	}
	if v, ok := expr.IsVariable(s.Value); ok {
		if s.Aggregate == model.AggCount {
			return "count_" + v.Name
		}
		return v.Name
	}
	return fmt.Sprintf("_select_%d", i)
}

func buildOne(doc esdoc.Node, name string, s model.SelectClause) (Pull, error) {
	// Bare document count: no Value, no script needed at all.
	if s.Value == nil {
		return Pull{Name: "", SubField: "doc_count"}, nil
	}

	script := esdoc.Node{"source": expr.ToPainless(s.Value), "lang": "painless"}

	switch s.Aggregate {
	case model.AggCount:
		doc.Set(name, esdoc.Node{"value_count": esdoc.Node{"script": script}})
		return Pull{Name: name, SubField: "value", Default: 0}, nil
	case model.AggSum:
		doc.Set(name, esdoc.Node{"sum": esdoc.Node{"script": script}})
		return Pull{Name: name, SubField: "value", Default: s.Default}, nil
	case model.AggMin:
		doc.Set(name, esdoc.Node{"min": esdoc.Node{"script": script}})
		return Pull{Name: name, SubField: "value", Default: s.Default}, nil
	case model.AggMax:
		doc.Set(name, esdoc.Node{"max": esdoc.Node{"script": script}})
		return Pull{Name: name, SubField: "value", Default: s.Default}, nil
	case model.AggAvg:
		doc.Set(name, esdoc.Node{"avg": esdoc.Node{"script": script}})
		return Pull{Name: name, SubField: "value", Default: s.Default}, nil
	case model.AggMedian:
		doc.Set(name, esdoc.Node{"percentiles": esdoc.Node{"script": script, "percents": []any{50.0}}})
		return Pull{Name: name, SubField: percentileSubField(50), Default: s.Default}, nil
	case model.AggPercentile:
		percent, err := percentOf(s.Percentile)
		if err != nil {
			return Pull{}, err
		}
		doc.Set(name, esdoc.Node{"percentiles": esdoc.Node{"script": script, "percents": []any{percent}}})
		return Pull{Name: name, SubField: percentileSubField(percent), Default: s.Default}, nil
	case model.AggCardinality:
		doc.Set(name, esdoc.Node{"cardinality": esdoc.Node{"script": script}})
		return Pull{Name: name, SubField: "value", Default: 0}, nil
	case model.AggUnion:
		size := s.Limit
		if size == 0 {
			size = defaultUnionSize
		}
		doc.Set(name, esdoc.Node{"terms": esdoc.Node{"script": script, "size": size}})
		return Pull{Name: name, SubField: unionBucketsField, Default: s.Default}, nil
	case model.AggStats, model.AggNone:
		doc.Set(name, esdoc.Node{"extended_stats": esdoc.Node{"script": script}})
		return Pull{Name: name, SubField: "", Default: s.Default}, nil
	}
	return Pull{}, &model.CompileError{Template: "unsupported aggregate: " + string(s.Aggregate)}
}
