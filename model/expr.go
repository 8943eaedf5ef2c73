package model

// Expr is the expression algebra the compiler evaluates against the
// schema: variable references, literals, and boolean/comparison/
// arithmetic combinators. Concrete implementations live in package
// expr; this interface lives in model so Query and Edge can reference
// it without expr depending back on model.
type Expr interface {
	// Vars returns every variable name this expression reads, mirroring
	// jx_elasticsearch's Variable.vars()/Expression.vars().
	Vars() []string
	// Map returns a copy of this expression with every Variable renamed
	// according to mapping, unmapped names left as-is.
	Map(mapping map[string]string) Expr
}
