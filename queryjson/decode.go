// Package queryjson decodes the wire JSON shape of a query into a
// model.Query: {"from", "select", "edges", "groupby", "where", "sort",
// "format", "limit"}, with expressions written as single-key operator
// objects ({"eq": ["field", value]}) the way ActiveData's own query
// language represents them, simplified to the operators package expr
// implements.
package queryjson

import (
	"encoding/json"
	"fmt"

	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
)

type wireQuery struct {
	From    string          `json:"from"`
	Select  json.RawMessage `json:"select"`
	Edges   []wireEdge      `json:"edges"`
	GroupBy []wireEdge      `json:"groupby"`
	Where   json.RawMessage `json:"where"`
	Sort    json.RawMessage `json:"sort"`
	Format  string          `json:"format"`
	Limit   int             `json:"limit"`
}

type wireEdge struct {
	Name       string      `json:"name"`
	Value      string      `json:"value"`
	Limit      int         `json:"limit"`
	Domain     *wireDomain `json:"domain"`
	AllowNulls *bool       `json:"allowNulls"`
}

type wireDomain struct {
	Type       string          `json:"type"`
	Partitions []wirePartition `json:"partitions"`
	Fields     []string        `json:"fields"`
	Interval   float64         `json:"interval"`
}

type wirePartition struct {
	Name  string          `json:"name"`
	Min   any             `json:"min"`
	Max   any             `json:"max"`
	Where json.RawMessage `json:"where"`
}

type wireSelect struct {
	Name       string          `json:"name"`
	Value      string          `json:"value"`
	Aggregate  string          `json:"aggregate"`
	Percentile float64         `json:"percentile"`
	Limit      int             `json:"limit"`
	Default    any             `json:"default"`
}

type wireSort struct {
	Value string `json:"value"`
	Sort  string `json:"sort"` // "asc" or "desc"
}

// Decode implements httpapi.Decoder.
type Decoder struct{}

func (Decoder) Decode(body []byte) (*model.Query, error) {
	var w wireQuery
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("invalid query json: %w", err)
	}

	q := &model.Query{
		From:   w.From,
		Format: w.Format,
		Limit:  w.Limit,
	}

	selects, err := decodeSelects(w.Select)
	if err != nil {
		return nil, err
	}
	q.Select = selects

	for _, e := range w.Edges {
		// edges default to AllowNulls=false: a cube axis is dense, and an
		// extra null partition would shift every other axis's coordinate
		// for callers that didn't ask for it.
		edge, err := decodeEdge(e, false)
		if err != nil {
			return nil, err
		}
		q.Edges = append(q.Edges, edge)
	}
	for _, e := range w.GroupBy {
		// groupby defaults to AllowNulls=true: it reports a flat list of
		// realized groups rather than a dense array, so an extra "_missing"
		// row costs nothing and matches groupby's looser domain semantics.
		edge, err := decodeEdge(e, true)
		if err != nil {
			return nil, err
		}
		q.GroupBy = append(q.GroupBy, edge)
	}

	if len(w.Where) > 0 {
		where, err := decodeExpr(w.Where)
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if len(w.Sort) > 0 {
		sortClauses, err := decodeSort(w.Sort)
		if err != nil {
			return nil, err
		}
		q.Sort = sortClauses
	}

	return q, nil
}

func decodeSelects(raw json.RawMessage) ([]model.SelectClause, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	// A bare string select ("select": "field") is shorthand for a
	// one-element select list with no aggregate.
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []model.SelectClause{{Value: &expr.Variable{Name: single}}}, nil
	}

	var one wireSelect
	if err := json.Unmarshal(raw, &one); err == nil && one.Value != "" {
		return []model.SelectClause{toSelectClause(one)}, nil
	}

	var many []wireSelect
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("invalid select: %w", err)
	}
	out := make([]model.SelectClause, len(many))
	for i, s := range many {
		out[i] = toSelectClause(s)
	}
	return out, nil
}

func toSelectClause(s wireSelect) model.SelectClause {
	var value model.Expr
	if s.Value != "" {
		value = &expr.Variable{Name: s.Value}
	}
	return model.SelectClause{
		Name:       s.Name,
		Value:      value,
		Aggregate:  model.AggKind(s.Aggregate),
		Percentile: s.Percentile,
		Limit:      s.Limit,
		Default:    s.Default,
	}
}

func decodeEdge(w wireEdge, allowNullsDefault bool) (model.Edge, error) {
	allowNulls := allowNullsDefault
	if w.AllowNulls != nil {
		allowNulls = *w.AllowNulls
	}
	edge := model.Edge{
		Name:       w.Name,
		Value:      &expr.Variable{Name: w.Value},
		Limit:      w.Limit,
		AllowNulls: allowNulls,
	}
	if edge.Name == "" {
		edge.Name = w.Value
	}
	if w.Domain != nil {
		domain, err := decodeDomain(*w.Domain)
		if err != nil {
			return model.Edge{}, err
		}
		edge.Domain = domain
	}
	return edge, nil
}

func decodeDomain(w wireDomain) (*model.Domain, error) {
	d := &model.Domain{Fields: w.Fields, Interval: w.Interval}
	switch w.Type {
	case "range":
		d.Kind = model.RangeDomain
	case "set":
		d.Kind = model.SetDomain
	case "dimension":
		d.Kind = model.DimensionDomain
	default:
		d.Kind = model.DefaultDomain
	}
	for _, p := range w.Partitions {
		partition := model.Partition{Name: p.Name, Min: p.Min, Max: p.Max}
		if len(p.Where) > 0 {
			where, err := decodeExpr(p.Where)
			if err != nil {
				return nil, err
			}
			partition.Where = where
		}
		d.Partitions = append(d.Partitions, partition)
	}
	return d, nil
}

func decodeSort(raw json.RawMessage) ([]model.SortClause, error) {
	var single wireSort
	if err := json.Unmarshal(raw, &single); err == nil && single.Value != "" {
		return []model.SortClause{toSortClause(single)}, nil
	}
	var many []wireSort
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("invalid sort: %w", err)
	}
	out := make([]model.SortClause, len(many))
	for i, s := range many {
		out[i] = toSortClause(s)
	}
	return out, nil
}

func toSortClause(s wireSort) model.SortClause {
	dir := model.Asc
	if s.Sort == "desc" {
		dir = model.Desc
	}
	return model.SortClause{Value: &expr.Variable{Name: s.Value}, Dir: dir}
}

// decodeExpr parses a single-key operator object into a model.Expr.
// Supported operators: eq, ne, gt, gte, lt, lte, and, or, not, missing.
func decodeExpr(raw json.RawMessage) (model.Expr, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("expression must have exactly one operator, got %d", len(obj))
	}
	for op, body := range obj {
		switch op {
		case "and", "or":
			var parts []json.RawMessage
			if err := json.Unmarshal(body, &parts); err != nil {
				return nil, err
			}
			terms := make([]model.Expr, len(parts))
			for i, p := range parts {
				t, err := decodeExpr(p)
				if err != nil {
					return nil, err
				}
				terms[i] = t
			}
			if op == "and" {
				return expr.And(terms...), nil
			}
			return expr.Or(terms...), nil
		case "not":
			inner, err := decodeExpr(body)
			if err != nil {
				return nil, err
			}
			return &expr.NotOp{Term: inner}, nil
		case "missing":
			var field string
			if err := json.Unmarshal(body, &field); err != nil {
				return nil, err
			}
			return &expr.NullOp{Term: &expr.Variable{Name: field}}, nil
		case "eq", "ne", "gt", "gte", "lt", "lte":
			var pair [2]any
			if err := json.Unmarshal(body, &pair); err != nil {
				return nil, err
			}
			field, ok := pair[0].(string)
			if !ok {
				return nil, fmt.Errorf("%s: left side must be a field name", op)
			}
			return &expr.CompareOp{Op: op, Left: &expr.Variable{Name: field}, Right: &expr.Literal{Value: pair[1]}}, nil
		default:
			return nil, fmt.Errorf("unsupported operator: %s", op)
		}
	}
	return nil, fmt.Errorf("unreachable")
}
