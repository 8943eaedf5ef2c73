// Package model holds the data types that flow through the query
// compiler: the query tree a client submits, the schema oracle it is
// compiled against, and the errors that compilation and formatting can
// produce.
package model

// Dir is a sort direction.
type Dir int

const (
	Asc Dir = iota
	Desc
)

// AggKind names a single-value aggregation a SelectClause can request.
// The set mirrors jx_elasticsearch's es_aggsop switch over aggregate
// names exactly.
type AggKind string

const (
	AggCount      AggKind = "count"
	AggSum        AggKind = "sum"
	AggMin        AggKind = "min"
	AggMax        AggKind = "max"
	AggAvg        AggKind = "avg"
	AggMedian     AggKind = "median"
	AggPercentile AggKind = "percentile"
	AggCardinality AggKind = "cardinality"
	AggStats      AggKind = "stats"
	AggUnion      AggKind = "union"
	AggNone       AggKind = ""
)

// SelectClause requests one value, computed by aggregating Value over
// the current bucket (or, outside of any edge/groupby, over the whole
// result set).
type SelectClause struct {
	Name  string  // canonical output name; defaults to derived name when empty
	Value Expr    // expression to aggregate; nil means document count
	Aggregate AggKind
	Percentile float64 // only meaningful when Aggregate == AggPercentile
	Limit      int     // only meaningful when Aggregate == AggUnion: terms size
	Default    any     // value substituted when the aggregation yields null
}

// SortClause orders edges/groupby dimensions or select values.
type SortClause struct {
	Value Expr
	Dir   Dir
}

// Edge is a single grouping dimension: a Value to bucket on, bucketed
// according to Domain, optionally limited and sorted.
type Edge struct {
	Name    string
	Value   Expr
	Domain  *Domain
	Limit   int
	Allowed []SortClause // per-edge sort override, applied before the query-level sort
	// AllowNulls, when true, has the decoder emit an extra "_missing"
	// sibling aggregation so documents where Value is null or missing
	// are counted as their own partition rather than excluded.
	AllowNulls bool
}

// Query is the compiler's single input: a where-filtered selection of
// Select values, grouped by Edges (cube semantics, every edge
// independent) or GroupBy (table semantics, edges form one compound
// key), formatted per Format.
type Query struct {
	From    string
	Select  []SelectClause
	Edges   []Edge
	GroupBy []Edge
	Where   Expr
	Sort    []SortClause
	Limit   int
	Format  string // "cube", "table", "list" (aggop is inferred, not requested)
}

// IsAggregate reports whether this query requires aggregation at all,
// mirroring jx_elasticsearch's is_aggsop: any edge, groupby, or
// non-trivial select implies an aggregation query; a bare projection
// does not.
func (q *Query) IsAggregate() bool {
	if len(q.Edges) > 0 || len(q.GroupBy) > 0 {
		return true
	}
	for _, s := range q.Select {
		if s.Aggregate != AggNone {
			return true
		}
	}
	return false
}

// AllEdges returns Edges if set, else GroupBy — the two are mutually
// exclusive dimension lists that differ only in how ResultWalker
// assembles output coordinates (independent axes vs one compound key).
func (q *Query) AllEdges() []Edge {
	if len(q.Edges) > 0 {
		return q.Edges
	}
	return q.GroupBy
}

// IsGroupBy reports whether the dimension list in use is GroupBy
// (compound-key/table semantics) rather than Edges (cube semantics).
func (q *Query) IsGroupBy() bool {
	return len(q.GroupBy) > 0
}
