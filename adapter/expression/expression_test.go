package expression

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

type ExpressionTestSuite struct {
	suite.Suite
}

// The builder captures comparisons as binary nodes.
func (s *ExpressionTestSuite) TestBuilderComparison() {
	p := F("Age").Ge(18)
	b, ok := p.E.(Binary)
	s.True(ok)
	s.Equal(OpGe, b.Op)
	s.Equal(Field{Path: []domain.Segment{{Name: "Age"}}}, b.LHS)
	s.Equal(Const{Value: 18}, b.RHS)
}

// Chained member and index accesses accumulate path segments.
func (s *ExpressionTestSuite) TestBuilderPath() {
	p := F("Friends").At(0).F("Name").Eq("Leia")
	b := p.E.(Binary)
	f := b.LHS.(Field)
	s.Equal([]domain.Segment{
		{Name: "Friends"},
		{Index: 0, Array: true},
		{Name: "Name"},
	}, f.Path)
}

// Field references are immutable: extending one does not mutate the source.
func (s *ExpressionTestSuite) TestBuilderImmutable() {
	base := F("A")
	first := base.F("B")
	second := base.F("C")
	s.Equal("B", first.Eq(1).E.(Binary).LHS.(Field).Path[1].Name)
	s.Equal("C", second.Eq(1).E.(Binary).LHS.(Field).Path[1].Name)
}

// And/or are commutative for structural equality.
func (s *ExpressionTestSuite) TestEqualCommutative() {
	ab := F("Name").Eq("Luke").And(F("Age").Eq(19))
	ba := F("Age").Eq(19).And(F("Name").Eq("Luke"))
	s.True(Equal(ab.E, ba.E))

	or1 := F("A").Eq(1).Or(F("B").Eq(2))
	or2 := F("B").Eq(2).Or(F("A").Eq(1))
	s.True(Equal(or1.E, or2.E))
}

// Comparisons are not commutative across operators.
func (s *ExpressionTestSuite) TestNotEqualAcrossOperators() {
	s.False(Equal(F("A").Lt(1).E, F("A").Gt(1).E))
	s.False(Equal(F("A").Eq(1).E, F("B").Eq(1).E))
	s.False(Equal(F("A").Eq(1).E, F("A").Eq(2).E))
}

// Commutatively equal expressions fingerprint identically.
func (s *ExpressionTestSuite) TestFingerprintCommutative() {
	ab, err := Fingerprint(F("Name").Eq("Luke").And(F("Age").Eq(19)).E)
	s.NoError(err)
	ba, err := Fingerprint(F("Age").Eq(19).And(F("Name").Eq("Luke")).E)
	s.NoError(err)
	s.Equal(ab, ba)
}

// Distinct expressions fingerprint differently.
func (s *ExpressionTestSuite) TestFingerprintDistinct() {
	a, err := Fingerprint(F("Age").Ge(18).E)
	s.NoError(err)
	b, err := Fingerprint(F("Age").Gt(18).E)
	s.NoError(err)
	s.NotEqual(a, b)
}

// Pipelines fingerprint the whole chain.
func (s *ExpressionTestSuite) TestFingerprintPipeline() {
	q1 := NewQuery().Where(F("Age").Ge(18)).Skip(10).Take(5)
	q2 := NewQuery().Where(F("Age").Ge(18)).Skip(10).Take(5)
	q3 := NewQuery().Where(F("Age").Ge(18)).Skip(10).Take(6)

	fp1, err := Fingerprint(q1.Expr())
	s.NoError(err)
	fp2, err := Fingerprint(q2.Expr())
	s.NoError(err)
	fp3, err := Fingerprint(q3.Expr())
	s.NoError(err)

	s.Equal(fp1, fp2)
	s.NotEqual(fp1, fp3)
}

// The zero query is usable and equal to NewQuery.
func (s *ExpressionTestSuite) TestZeroQuery() {
	var q Query
	s.Equal(Root{}, q.Expr())
	s.Equal(NewQuery().Expr(), q.Expr())
}

// Predicate combinator functions fold left.
func (s *ExpressionTestSuite) TestCombinators() {
	p := And(F("A").Eq(1), F("B").Eq(2), F("C").Eq(3))
	outer, ok := p.E.(Binary)
	s.True(ok)
	s.Equal(OpAnd, outer.Op)

	n := Not(F("A").Eq(1))
	u, ok := n.E.(Unary)
	s.True(ok)
	s.Equal(OpNot, u.Op)
}

func TestExpressionTestSuite(t *testing.T) {
	suite.Run(t, new(ExpressionTestSuite))
}
