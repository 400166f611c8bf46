// Package expression contains the typed query expression tree and the
// builder DSL that produces it. Expressions are immutable and structurally
// comparable; two expressions are equal iff they have identical shape and
// literal values modulo commutativity of and/or.
package expression

import (
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// Expr is implemented by all query expression nodes.
type Expr interface {
	node()
}

// Numeric representations of supported comparison and logic operators.
const (
	OpEq uint8 = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot
)

// Numeric representations of supported pipeline stages.
const (
	StageWhere uint8 = iota
	StageOrderBy
	StageThenBy
	StageOrderByDesc
	StageThenByDesc
	StageSkip
	StageTake
	StageSelect
	StageUseBookmark
	StageUseIndex
	StageReadQuorum
	StageUpdateIndex
	StageFromStable
	// StageSort is the collapsed ordering tier produced by the optimizer;
	// its Arg is a [Sort] node.
	StageSort
)

// Const is a literal value.
type Const struct {
	Value any
}

// Field is a member access chain.
type Field struct {
	Path []domain.Segment
}

// Binary applies a comparison or logic operator to two operands.
type Binary struct {
	Op  uint8
	LHS Expr
	RHS Expr
}

// Unary applies a logic operator to one operand. The only unary operator is
// OpNot.
type Unary struct {
	Op      uint8
	Operand Expr
}

// Nary applies a commutative logic operator (OpAnd or OpOr) to two or more
// operands. The optimizer flattens Binary chains into this form.
type Nary struct {
	Op       uint8
	Operands []Expr
}

// In tests membership of a field's value in a literal set. Negate selects
// the complement.
type In struct {
	Field  Field
	Values []any
	Negate bool
}

// Exists tests whether a field is present.
type Exists struct {
	Field Field
	Want  bool
}

// TypeIs tests a field's JSON type.
type TypeIs struct {
	Field Field
	Type  string
}

// Regex tests a field's value against a pattern.
type Regex struct {
	Field   Field
	Pattern string
}

// ElemMatch tests elements of an array field against a predicate. With All
// unset at least one element must match; with All set every element must.
type ElemMatch struct {
	Field Field
	Pred  Expr
	All   bool
}

// Sort is the collapsed ordering tier produced by the optimizer from
// OrderBy/ThenBy chains. All fields share one direction.
type Sort struct {
	Fields     []Field
	Descending bool
}

// Root is the terminal source of a pipeline.
type Root struct{}

// Pipeline is one stage applied to a source expression. A pipeline tree has
// exactly one terminal [Root] source.
type Pipeline struct {
	Stage  uint8
	Source Expr
	Arg    any
}

func (Const) node()     {}
func (Field) node()     {}
func (Binary) node()    {}
func (Unary) node()     {}
func (Nary) node()      {}
func (In) node()        {}
func (Exists) node()    {}
func (TypeIs) node()    {}
func (Regex) node()     {}
func (ElemMatch) node() {}
func (Sort) node()      {}
func (Root) node()      {}
func (Pipeline) node()  {}

// Equal reports whether two expressions are structurally equal modulo
// commutativity of and/or.
func Equal(a, b Expr) bool {
	ab, err := CanonicalBytes(a)
	if err != nil {
		return false
	}
	bb, err := CanonicalBytes(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
