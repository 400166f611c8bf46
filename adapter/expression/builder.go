package expression

import "github.com/vinicius-lino-figueiredo/mango/domain"

// F starts a field reference for the given member name. Nested members can
// be given inline or chained: F("address", "city") and F("address").F("city")
// are equivalent.
func F(name string, nested ...string) FieldRef {
	path := make([]domain.Segment, 0, 1+len(nested))
	path = append(path, domain.Segment{Name: name})
	for _, n := range nested {
		path = append(path, domain.Segment{Name: n})
	}
	return FieldRef{field: Field{Path: path}}
}

// Elem references the array element itself inside an Any or All predicate.
func Elem() FieldRef {
	return FieldRef{}
}

// FieldRef is a builder over a field access chain.
type FieldRef struct {
	field Field
}

// F appends a nested member access.
func (f FieldRef) F(name string) FieldRef {
	return FieldRef{field: Field{Path: appendSeg(f.field.Path, domain.Segment{Name: name})}}
}

// At appends an array index access.
func (f FieldRef) At(index int) FieldRef {
	return FieldRef{field: Field{Path: appendSeg(f.field.Path, domain.Segment{Index: index, Array: true})}}
}

func appendSeg(path []domain.Segment, seg domain.Segment) []domain.Segment {
	res := make([]domain.Segment, 0, len(path)+1)
	res = append(res, path...)
	return append(res, seg)
}

// Eq tests the field for equality with the value.
func (f FieldRef) Eq(v any) Predicate { return f.cmp(OpEq, v) }

// Ne tests the field for inequality with the value.
func (f FieldRef) Ne(v any) Predicate { return f.cmp(OpNe, v) }

// Lt tests the field for being less than the value.
func (f FieldRef) Lt(v any) Predicate { return f.cmp(OpLt, v) }

// Le tests the field for being less than or equal to the value.
func (f FieldRef) Le(v any) Predicate { return f.cmp(OpLe, v) }

// Gt tests the field for being greater than the value.
func (f FieldRef) Gt(v any) Predicate { return f.cmp(OpGt, v) }

// Ge tests the field for being greater than or equal to the value.
func (f FieldRef) Ge(v any) Predicate { return f.cmp(OpGe, v) }

func (f FieldRef) cmp(op uint8, v any) Predicate {
	return Predicate{E: Binary{Op: op, LHS: f.field, RHS: Const{Value: v}}}
}

// In tests membership of the field's value in the given set.
func (f FieldRef) In(values ...any) Predicate {
	return Predicate{E: In{Field: f.field, Values: values}}
}

// NotIn tests the field's value for absence from the given set.
func (f FieldRef) NotIn(values ...any) Predicate {
	return Predicate{E: In{Field: f.field, Values: values, Negate: true}}
}

// Exists tests whether the field is present.
func (f FieldRef) Exists(want bool) Predicate {
	return Predicate{E: Exists{Field: f.field, Want: want}}
}

// TypeIs tests the field's JSON type ("null", "boolean", "number", "string",
// "array", "object").
func (f FieldRef) TypeIs(jsonType string) Predicate {
	return Predicate{E: TypeIs{Field: f.field, Type: jsonType}}
}

// Matches tests the field's value against a regular expression.
func (f FieldRef) Matches(pattern string) Predicate {
	return Predicate{E: Regex{Field: f.field, Pattern: pattern}}
}

// Any requires at least one element of the array field to match the
// predicate.
func (f FieldRef) Any(p Predicate) Predicate {
	return Predicate{E: ElemMatch{Field: f.field, Pred: p.E}}
}

// All requires every element of the array field to match the predicate.
func (f FieldRef) All(p Predicate) Predicate {
	return Predicate{E: ElemMatch{Field: f.field, Pred: p.E, All: true}}
}

// Predicate is a composable boolean expression over document fields.
type Predicate struct {
	E Expr
}

func (p Predicate) node() {}

// And combines this predicate with another conjunctively.
func (p Predicate) And(other Predicate) Predicate {
	return Predicate{E: Binary{Op: OpAnd, LHS: p.E, RHS: other.E}}
}

// Or combines this predicate with another disjunctively.
func (p Predicate) Or(other Predicate) Predicate {
	return Predicate{E: Binary{Op: OpOr, LHS: p.E, RHS: other.E}}
}

// Not negates this predicate.
func (p Predicate) Not() Predicate {
	return Predicate{E: Unary{Op: OpNot, Operand: p.E}}
}

// And combines predicates conjunctively.
func And(ps ...Predicate) Predicate {
	return combine(OpAnd, ps)
}

// Or combines predicates disjunctively.
func Or(ps ...Predicate) Predicate {
	return combine(OpOr, ps)
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return p.Not()
}

// True is the tautological predicate. The optimizer removes Where stages
// carrying it.
func True() Predicate {
	return Predicate{E: Const{Value: true}}
}

func combine(op uint8, ps []Predicate) Predicate {
	if len(ps) == 0 {
		return True()
	}
	res := ps[0]
	for _, p := range ps[1:] {
		res = Predicate{E: Binary{Op: op, LHS: res.E, RHS: p.E}}
	}
	return res
}

// Query is an immutable pipeline builder. Each method returns a new Query
// with one more stage; the zero value is the empty query.
type Query struct {
	e Expr
}

// NewQuery returns the empty query.
func NewQuery() Query {
	return Query{e: Root{}}
}

func (q Query) source() Expr {
	if q.e == nil {
		return Root{}
	}
	return q.e
}

func (q Query) stage(stage uint8, arg any) Query {
	return Query{e: Pipeline{Stage: stage, Source: q.source(), Arg: arg}}
}

// Expr returns the underlying pipeline expression.
func (q Query) Expr() Expr {
	return q.source()
}

// Where filters documents by the predicate. Multiple Where stages combine
// conjunctively.
func (q Query) Where(p Predicate) Query {
	return q.stage(StageWhere, p.E)
}

// OrderBy sorts ascending by the field. It starts a new sort specification.
func (q Query) OrderBy(f FieldRef) Query {
	return q.stage(StageOrderBy, f.field)
}

// ThenBy appends an ascending tiebreaker field to the sort specification.
func (q Query) ThenBy(f FieldRef) Query {
	return q.stage(StageThenBy, f.field)
}

// OrderByDesc sorts descending by the field. It starts a new sort
// specification.
func (q Query) OrderByDesc(f FieldRef) Query {
	return q.stage(StageOrderByDesc, f.field)
}

// ThenByDesc appends a descending tiebreaker field to the sort
// specification.
func (q Query) ThenByDesc(f FieldRef) Query {
	return q.stage(StageThenByDesc, f.field)
}

// Skip drops the first n matching documents. n must be non-negative.
func (q Query) Skip(n int) Query {
	return q.stage(StageSkip, Const{Value: n})
}

// Take caps the result at n documents. n must be non-negative.
func (q Query) Take(n int) Query {
	return q.stage(StageTake, Const{Value: n})
}

// Select projects only the given fields.
func (q Query) Select(fields ...FieldRef) Query {
	fs := make([]Field, len(fields))
	for n, f := range fields {
		fs[n] = f.field
	}
	return q.stage(StageSelect, fs)
}

// UseBookmark resumes the query from a continuation token.
func (q Query) UseBookmark(bookmark string) Query {
	return q.stage(StageUseBookmark, bookmark)
}

// UseIndex instructs the server to use a specific index, given either as a
// design document name or as [2]string{ddoc, index}.
func (q Query) UseIndex(index any) Query {
	return q.stage(StageUseIndex, index)
}

// WithReadQuorum sets the read quorum.
func (q Query) WithReadQuorum(r int) Query {
	return q.stage(StageReadQuorum, Const{Value: r})
}

// UpdateIndex controls whether the index is updated before the query runs.
func (q Query) UpdateIndex(update bool) Query {
	return q.stage(StageUpdateIndex, update)
}

// FromStable requires the query to run against a stable snapshot of the
// index.
func (q Query) FromStable(stable bool) Query {
	return q.stage(StageFromStable, stable)
}
