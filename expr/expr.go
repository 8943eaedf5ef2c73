// Package expr implements the boolean/comparison/arithmetic expression
// algebra used by Query.Where, SelectClause.Value, and Edge.Value. Every
// type here implements model.Expr.
//
// The algebra, and the ToESFilter/ToPainless translations, follow
// jx_elasticsearch/es52/aggs.py's treatment of Variable/Literal
// expressions: a bare Variable compiles to a term/exists query or a
// doc-value script reference; everything else falls back to a painless
// script.
package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/model"
)

// Variable references a single schema field by name.
type Variable struct {
	Name string
}

func (v *Variable) Vars() []string { return []string{v.Name} }

func (v *Variable) Map(mapping map[string]string) model.Expr {
	if mapped, ok := mapping[v.Name]; ok {
		return &Variable{Name: mapped}
	}
	return v
}

// Literal is a constant value: string, number, boolean, or nil.
type Literal struct {
	Value any
}

func (l *Literal) Vars() []string                       { return nil }
func (l *Literal) Map(map[string]string) model.Expr { return l }

// boolOp is the shared shape of AndOp/OrOp (n-ary boolean combinators).
type boolOp struct {
	op    string
	terms []model.Expr
}

func newBoolOp(op string, terms ...model.Expr) *boolOp {
	return &boolOp{op: op, terms: terms}
}

func (b *boolOp) Vars() []string {
	return uniqueVars(b.terms)
}

func (b *boolOp) Map(mapping map[string]string) model.Expr {
	mapped := make([]model.Expr, len(b.terms))
	for i, t := range b.terms {
		mapped[i] = t.Map(mapping)
	}
	return &boolOp{op: b.op, terms: mapped}
}

func And(terms ...model.Expr) model.Expr { return newBoolOp("and", terms...) }
func Or(terms ...model.Expr) model.Expr  { return newBoolOp("or", terms...) }

// Op returns "and" or "or". Terms returns the combinator's operands.
// Exported so other packages (wheresplit) can decompose a conjunction
// without a type import cycle back through expr's unexported boolOp.
func (b *boolOp) Op() string           { return b.op }
func (b *boolOp) Terms() []model.Expr { return b.terms }

// NotOp negates a single expression.
type NotOp struct {
	Term model.Expr
}

func (n *NotOp) Vars() []string { return n.Term.Vars() }
func (n *NotOp) Map(mapping map[string]string) model.Expr {
	return &NotOp{Term: n.Term.Map(mapping)}
}

// CompareOp is a binary comparison: eq, ne, gt, gte, lt, lte.
type CompareOp struct {
	Op    string
	Left  model.Expr
	Right model.Expr
}

func (c *CompareOp) Vars() []string {
	return uniqueVars([]model.Expr{c.Left, c.Right})
}

func (c *CompareOp) Map(mapping map[string]string) model.Expr {
	return &CompareOp{Op: c.Op, Left: c.Left.Map(mapping), Right: c.Right.Map(mapping)}
}

func Eq(l, r model.Expr) *CompareOp  { return &CompareOp{Op: "eq", Left: l, Right: r} }
func Ne(l, r model.Expr) *CompareOp  { return &CompareOp{Op: "ne", Left: l, Right: r} }
func Gt(l, r model.Expr) *CompareOp  { return &CompareOp{Op: "gt", Left: l, Right: r} }
func Gte(l, r model.Expr) *CompareOp { return &CompareOp{Op: "gte", Left: l, Right: r} }
func Lt(l, r model.Expr) *CompareOp  { return &CompareOp{Op: "lt", Left: l, Right: r} }
func Lte(l, r model.Expr) *CompareOp { return &CompareOp{Op: "lte", Left: l, Right: r} }

// ArithOp is a binary arithmetic operation: add, sub, mul, div.
type ArithOp struct {
	Op    string
	Left  model.Expr
	Right model.Expr
}

func (a *ArithOp) Vars() []string {
	return uniqueVars([]model.Expr{a.Left, a.Right})
}

func (a *ArithOp) Map(mapping map[string]string) model.Expr {
	return &ArithOp{Op: a.Op, Left: a.Left.Map(mapping), Right: a.Right.Map(mapping)}
}

// NullOp tests an expression for missing/null.
type NullOp struct {
	Term model.Expr
}

func (n *NullOp) Vars() []string { return n.Term.Vars() }
func (n *NullOp) Map(mapping map[string]string) model.Expr {
	return &NullOp{Term: n.Term.Map(mapping)}
}

// ScriptOp is an escape hatch carrying a raw painless script along with
// the variables it reads, for expressions the algebra cannot represent
// directly.
type ScriptOp struct {
	Script string
	Reads  []string
}

func (s *ScriptOp) Vars() []string { return s.Reads }
func (s *ScriptOp) Map(mapping map[string]string) model.Expr {
	mapped := make([]string, len(s.Reads))
	for i, r := range s.Reads {
		if m, ok := mapping[r]; ok {
			mapped[i] = m
		} else {
			mapped[i] = r
		}
	}
	return &ScriptOp{Script: s.Script, Reads: mapped}
}

func uniqueVars(terms []model.Expr) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range terms {
		if t == nil {
			continue
		}
		for _, v := range t.Vars() {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// IsVariable reports whether e is a bare Variable reference, the case
// jx_elasticsearch's es_aggsop branches on to decide between a direct
// field aggregation and a script aggregation.
func IsVariable(e model.Expr) (*Variable, bool) {
	v, ok := e.(*Variable)
	return v, ok
}

// ToESFilter translates e into an Elasticsearch query-DSL filter clause
// as an esdoc.Node, following static-filter.go's term/exists shapes for
// the leaf cases and nesting bool/must/must_not/should for the
// combinators.
func ToESFilter(e model.Expr) esdoc.Node {
	switch t := e.(type) {
	case nil:
		return esdoc.Node{"match_all": esdoc.Node{}}
	case *boolOp:
		clauses := make([]any, len(t.terms))
		for i, term := range t.terms {
			clauses[i] = ToESFilter(term)
		}
		switch t.op {
		case "and":
			return esdoc.Node{"bool": esdoc.Node{"must": clauses}}
		case "or":
			return esdoc.Node{"bool": esdoc.Node{"should": clauses, "minimum_should_match": 1}}
		}
	case *NotOp:
		return esdoc.Node{"bool": esdoc.Node{"must_not": []any{ToESFilter(t.Term)}}}
	case *NullOp:
		if v, ok := IsVariable(t.Term); ok {
			return esdoc.Node{"bool": esdoc.Node{"must_not": []any{
				esdoc.Node{"exists": esdoc.Node{"field": v.Name}},
			}}}
		}
	case *CompareOp:
		if v, ok := IsVariable(t.Left); ok {
			if lit, ok := t.Right.(*Literal); ok {
				return compareFilter(t.Op, v.Name, lit.Value)
			}
		}
	}
	return esdoc.Node{"script": esdoc.Node{"script": painlessInline(e)}}
}

func compareFilter(op, field string, value any) esdoc.Node {
	switch op {
	case "eq":
		return esdoc.Node{"term": esdoc.Node{field: value}}
	case "ne":
		return esdoc.Node{"bool": esdoc.Node{"must_not": []any{esdoc.Node{"term": esdoc.Node{field: value}}}}}
	case "gt":
		return esdoc.Node{"range": esdoc.Node{field: esdoc.Node{"gt": value}}}
	case "gte":
		return esdoc.Node{"range": esdoc.Node{field: esdoc.Node{"gte": value}}}
	case "lt":
		return esdoc.Node{"range": esdoc.Node{field: esdoc.Node{"lt": value}}}
	case "lte":
		return esdoc.Node{"range": esdoc.Node{field: esdoc.Node{"lte": value}}}
	}
	return esdoc.Node{"match_all": esdoc.Node{}}
}

// ToPainlessNullable compiles e the same way ToPainless does, except a
// bare Variable guards against a missing doc value and returns null
// instead of throwing — the idiom a terms aggregation script needs so
// documents missing the grouped field land in their own null-keyed
// bucket rather than aborting the aggregation.
func ToPainlessNullable(e model.Expr) string {
	if v, ok := e.(*Variable); ok {
		return fmt.Sprintf("doc['%s'].size()==0 ? null : doc['%s'].value", v.Name, v.Name)
	}
	return ToPainless(e)
}

// ToPainless compiles e into a painless script expression, following
// the teacher's terms-scripted-field.go/scripted-field.go conventions
// (doc['field'].value for field reads, standard operators otherwise).
func ToPainless(e model.Expr) string {
	switch t := e.(type) {
	case nil:
		return "true"
	case *Variable:
		return fmt.Sprintf("doc['%s'].value", t.Name)
	case *Literal:
		return painlessLiteral(t.Value)
	case *boolOp:
		parts := make([]string, len(t.terms))
		for i, term := range t.terms {
			parts[i] = "(" + ToPainless(term) + ")"
		}
		sep := " && "
		if t.op == "or" {
			sep = " || "
		}
		return strings.Join(parts, sep)
	case *NotOp:
		return "!(" + ToPainless(t.Term) + ")"
	case *NullOp:
		return fmt.Sprintf("%s == null", ToPainless(t.Term))
	case *CompareOp:
		return fmt.Sprintf("(%s %s %s)", ToPainless(t.Left), painlessOp(t.Op), ToPainless(t.Right))
	case *ArithOp:
		return fmt.Sprintf("(%s %s %s)", ToPainless(t.Left), painlessOp(t.Op), ToPainless(t.Right))
	case *ScriptOp:
		return t.Script
	}
	return "null"
}

func painlessInline(e model.Expr) esdoc.Node {
	return esdoc.Node{"source": ToPainless(e), "lang": "painless"}
}

func painlessOp(op string) string {
	switch op {
	case "eq":
		return "=="
	case "ne":
		return "!="
	case "gt":
		return ">"
	case "gte":
		return ">="
	case "lt":
		return "<"
	case "lte":
		return "<="
	case "add":
		return "+"
	case "sub":
		return "-"
	case "mul":
		return "*"
	case "div":
		return "/"
	}
	return "=="
}

func painlessLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}
