package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reveald/cube/esdoc"
	"github.com/reveald/cube/model"
)

func TestVariableVars(t *testing.T) {
	v := &Variable{Name: "product.sku"}
	assert.Equal(t, []string{"product.sku"}, v.Vars())
}

func TestAndVarsDeduplicatesAndSorts(t *testing.T) {
	e := And(&Variable{Name: "b"}, Eq(&Variable{Name: "a"}, &Literal{Value: 1}), &Variable{Name: "b"})
	assert.Equal(t, []string{"a", "b"}, e.Vars())
}

func TestMapRenamesVariables(t *testing.T) {
	e := Eq(&Variable{Name: "old"}, &Literal{Value: 5})
	mapped := e.Map(map[string]string{"old": "new"})
	assert.Equal(t, []string{"new"}, mapped.Vars())
}

func TestMapLeavesUnmappedVariablesAlone(t *testing.T) {
	v := &Variable{Name: "unchanged"}
	mapped := v.Map(map[string]string{"other": "renamed"})
	assert.Equal(t, []string{"unchanged"}, mapped.Vars())
}

func TestToESFilterEquality(t *testing.T) {
	doc := ToESFilter(Eq(&Variable{Name: "status"}, &Literal{Value: "active"}))
	term, ok := doc["term"].(esdoc.Node)
	if assert.True(t, ok) {
		assert.Equal(t, "active", term["status"])
	}
}

func TestToESFilterAndOfTerms(t *testing.T) {
	doc := ToESFilter(And(
		Eq(&Variable{Name: "a"}, &Literal{Value: 1}),
		Eq(&Variable{Name: "b"}, &Literal{Value: 2}),
	))
	boolClause, ok := doc["bool"].(esdoc.Node)
	if assert.True(t, ok) {
		must, ok := boolClause["must"].([]interface{})
		assert.True(t, ok)
		assert.Len(t, must, 2)
	}
}

func TestToESFilterNullOp(t *testing.T) {
	doc := ToESFilter(&NullOp{Term: &Variable{Name: "email"}})
	boolClause := doc["bool"].(esdoc.Node)
	assert.Contains(t, boolClause, "must_not")
}

func TestToPainlessVariableReadsDocValue(t *testing.T) {
	assert.Equal(t, "doc['price'].value", ToPainless(&Variable{Name: "price"}))
}

func TestToPainlessArithmetic(t *testing.T) {
	e := &ArithOp{Op: "mul", Left: &Variable{Name: "qty"}, Right: &Literal{Value: 2}}
	assert.Equal(t, "(doc['qty'].value * 2)", ToPainless(e))
}

func TestToPainlessNullableGuardsMissingDocValue(t *testing.T) {
	got := ToPainlessNullable(&Variable{Name: "a"})
	assert.Equal(t, "doc['a'].size()==0 ? null : doc['a'].value", got)
}

func TestToPainlessNullableDelegatesForNonVariables(t *testing.T) {
	e := &ArithOp{Op: "mul", Left: &Variable{Name: "qty"}, Right: &Literal{Value: 2}}
	assert.Equal(t, ToPainless(e), ToPainlessNullable(e))
}

func TestIsVariable(t *testing.T) {
	v, ok := IsVariable(&Variable{Name: "x"})
	assert.True(t, ok)
	assert.Equal(t, "x", v.Name)

	_, ok = IsVariable(&Literal{Value: 1})
	assert.False(t, ok)
}

var _ model.Expr = (*Variable)(nil)
