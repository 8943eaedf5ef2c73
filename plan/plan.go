// Package plan implements the QueryPlanner: it decides whether a Query
// needs aggregation at all, resolves each Edge/GroupBy dimension to a
// decoder at the right nesting depth, and assembles the bottom-up
// _nested/_filter aggregation tree jx_elasticsearch's es_aggsop builds.
package plan

import (
	"strings"

	"github.com/reveald/cube/aggbuilder"
	"github.com/reveald/cube/decode"
	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/expr"
	"github.com/reveald/cube/model"
	"github.com/reveald/cube/wheresplit"
)

// Compiled is the output of Compile: the assembled ES request body plus
// everything ResultWalker and the formatters need to read the response
// back into a Query-shaped result.
type Compiled struct {
	Body        esdoc.Node
	Decoders    []decode.Decoder // ordered by nesting depth, shallowest first; walk.Walk reads them in this order
	Pulls       []aggbuilder.Pull
	Query       *model.Query
	IsAggregate bool
}

// Compile translates query into a Compiled request against schema.
func Compile(query *model.Query, schema model.Schema) (*Compiled, error) {
	if !query.IsAggregate() {
		return compileHits(query)
	}

	var edges []model.Edge
	if isCubeFormat(query) {
		edges = append([]model.Edge(nil), query.AllEdges()...)
	} else {
		var err error
		edges, err = sortEdges(query)
		if err != nil {
			return nil, err
		}
	}

	decoders, err := buildDecoders(edges, schema)
	if err != nil {
		return nil, err
	}

	queryPathDepth := pathDepth(query.From)

	splitWhere, err := wheresplit.Split(query.Where, schema, queryPathDepth)
	if err != nil {
		return nil, err
	}

	byDepth := map[int][]decode.Decoder{}
	maxDepth := queryPathDepth
	for _, d := range decoders {
		depth := edgeDepth(d.Edge(), schema)
		byDepth[depth] = append(byDepth[depth], d)
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	innerAggs := esdoc.Node{}
	pulls, err := aggbuilder.Build(innerAggs, query.Select)
	if err != nil {
		return nil, err
	}

	body := esdoc.Node{"size": 0}
	current := innerAggs

	for depth := maxDepth; depth >= 1; depth-- {
		group := byDepth[depth]
		wrapped := esdoc.Node{}
		node := wrapped
		for _, d := range group {
			next := esdoc.Node{}
			d.AppendAggregation(node, esdoc.Node{"aggs": next})
			node = next
		}
		for k, v := range current {
			node[k] = v
		}
		if w, ok := splitWhere[depth]; ok {
			filterBody := esdoc.Node{"filter": expr.ToESFilter(w), "aggs": wrapped}
			wrapped = esdoc.Node{"_filter": filterBody}
		}
		nestedPath := nestedPathFor(group, schema, query.From)
		current = esdoc.Node{"_nested": esdoc.Node{"nested": esdoc.Node{"path": nestedPath}, "aggs": wrapped}}
	}

	rootGroup := byDepth[0]
	node := esdoc.Node{}
	cursor := node
	for i := len(rootGroup) - 1; i >= 0; i-- {
		d := rootGroup[i]
		next := esdoc.Node{}
		d.AppendAggregation(cursor, esdoc.Node{"aggs": next})
		cursor = next
	}
	for k, v := range current {
		cursor[k] = v
	}

	aggsRoot := node
	if w, ok := splitWhere[0]; ok {
		aggsRoot = esdoc.Node{"_filter": esdoc.Node{"filter": expr.ToESFilter(w), "aggs": node}}
	}
	if len(aggsRoot) == 0 {
		aggsRoot = current
	}
	body["aggs"] = aggsRoot

	if query.Where != nil {
		body["query"] = expr.ToESFilter(query.Where)
	} else {
		body["query"] = esdoc.Node{"match_all": esdoc.Node{}}
	}

	orderedDecoders := make([]decode.Decoder, 0, len(decoders))
	for depth := 0; depth <= maxDepth; depth++ {
		orderedDecoders = append(orderedDecoders, byDepth[depth]...)
	}

	return &Compiled{
		Body:        body,
		Decoders:    orderedDecoders,
		Pulls:       pulls,
		Query:       query,
		IsAggregate: true,
	}, nil
}

func buildDecoders(edges []model.Edge, schema model.Schema) ([]decode.Decoder, error) {
	decoders := make([]decode.Decoder, 0, len(edges))
	for _, e := range edges {
		var d decode.Decoder
		if e.Domain == nil {
			d = decode.NewDefaultDecoder(e)
		} else {
			switch e.Domain.Kind {
			case model.RangeDomain:
				d = decode.NewRangeDecoder(e)
			case model.SetDomain:
				if !e.Domain.PartitionsHaveWhere() {
					return nil, &model.CompileError{Template: "set domain partitions missing where clause"}
				}
				d = decode.NewObjectDecoder(e)
			case model.DimensionDomain:
				d = decode.NewDimFieldListDecoder(e)
			default:
				d = decode.NewDefaultDecoder(e)
			}
		}
		decoders = append(decoders, d)
	}
	return decoders, nil
}

func edgeDepth(e model.Edge, schema model.Schema) int {
	depth := 0
	for _, v := range e.Value.Vars() {
		cols := schema.Columns(v)
		if len(cols) == 0 {
			continue
		}
		if d := cols[0].Depth(); d > depth {
			depth = d
		}
	}
	return depth
}

func nestedPathFor(group []decode.Decoder, schema model.Schema, from string) string {
	for _, d := range group {
		for _, v := range d.Edge().Value.Vars() {
			cols := schema.Columns(v)
			if len(cols) > 0 && len(cols[0].NestedPath) > 0 {
				path := cols[0].NestedPath
				return path[len(path)-1]
			}
		}
	}
	// No decoder at this depth carries schema info (a where-only nested
	// level, e.g. a filter on "jobs.tasks.runtime" with no edge on any
	// tasks-level field) — fall back to the last segment of the query's
	// own "from" path, jx_elasticsearch's frum.query_path.
	if idx := strings.LastIndexByte(from, '.'); idx >= 0 {
		return from[idx+1:]
	}
	return from
}

// pathDepth returns queryPathDepth, len(split(from, "."))-1: how many
// nested levels deep "from" names, independent of which edges or where
// predicates a particular query happens to carry.
func pathDepth(from string) int {
	if from == "" {
		return 0
	}
	return strings.Count(from, ".")
}

// isCubeFormat reports whether query resolves to cube output, mirroring
// format.Render's own default-format resolution (an explicit "cube", or
// an implicit one when edges are present and the query isn't a
// groupby). jx_elasticsearch's sort_edges is only ever called for
// table/list output (query.sort and query.format != "cube"); a cube's
// dense array already carries one axis per edge in edges order, so
// reordering edges or overwriting Domain.Sort here would silently
// change which partitions a size-limited open domain's terms
// aggregation picks as top-N.
func isCubeFormat(query *model.Query) bool {
	switch query.Format {
	case "cube":
		return true
	case "":
		return !query.IsGroupBy() && len(query.Edges) > 0
	}
	return false
}

// sortEdges reorders query's dimension list to match query.Sort,
// mirroring jx_elasticsearch's sort_edges: any sort clause referencing
// an edge's Value moves that edge to the front, in sort order, and
// records the sort on the edge's domain.
func sortEdges(query *model.Query) ([]model.Edge, error) {
	edges := append([]model.Edge(nil), query.AllEdges()...)
	if len(query.Sort) == 0 {
		for i, e := range edges {
			if e.Domain != nil && len(e.Allowed) > 0 {
				edges[i].Domain.Sort = e.Allowed
			}
		}
		return edges, nil
	}
	indexOf := func(s model.SortClause) int {
		for i, e := range edges {
			if sameExpr(e.Value, s.Value) {
				return i
			}
		}
		return -1
	}
	ordered := make([]model.Edge, 0, len(edges))
	used := map[int]bool{}
	for _, s := range query.Sort {
		i := indexOf(s)
		if i < 0 || used[i] {
			continue
		}
		e := edges[i]
		if e.Domain != nil {
			e.Domain.Sort = []model.SortClause{s}
		}
		ordered = append(ordered, e)
		used[i] = true
	}
	for i, e := range edges {
		if !used[i] {
			if e.Domain != nil && len(e.Allowed) > 0 {
				e.Domain.Sort = e.Allowed
			}
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

func sameExpr(a, b model.Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	av, aok := expr.IsVariable(a)
	bv, bok := expr.IsVariable(b)
	if aok && bok {
		return av.Name == bv.Name
	}
	return false
}
