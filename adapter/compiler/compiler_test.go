package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

type CompilerTestSuite struct {
	suite.Suite
	cmp domain.Compiler
}

func (s *CompilerTestSuite) SetupTest() {
	var err error
	s.cmp, err = NewCompiler()
	s.Require().NoError(err)
}

// The first compilation misses, the second hits.
func (s *CompilerTestSuite) TestCacheHit() {
	q := expression.NewQuery().Where(expression.F("Age").Ge(18))

	first, err := s.cmp.Compile(q)
	s.NoError(err)
	second, err := s.cmp.Compile(q)
	s.NoError(err)

	s.Equal(first, second)
	stats := s.cmp.Stats()
	s.Equal(uint64(1), stats.Hits)
	s.Equal(uint64(1), stats.Misses)
	s.Equal(1, stats.Entries)
}

// Commutatively equal expressions share one cache entry and one output.
func (s *CompilerTestSuite) TestCacheSoundness() {
	ab := expression.NewQuery().Where(
		expression.F("Name").Eq("Luke").And(expression.F("Age").Eq(19)),
	)
	ba := expression.NewQuery().Where(
		expression.F("Age").Eq(19).And(expression.F("Name").Eq("Luke")),
	)

	first, err := s.cmp.Compile(ab)
	s.NoError(err)
	second, err := s.cmp.Compile(ba)
	s.NoError(err)

	s.Equal(string(first), string(second))
	stats := s.cmp.Stats()
	s.Equal(uint64(1), stats.Hits)
	s.Equal(uint64(1), stats.Misses)
}

// Different expressions occupy different entries.
func (s *CompilerTestSuite) TestDistinctEntries() {
	_, err := s.cmp.Compile(expression.F("A").Eq(1))
	s.NoError(err)
	_, err = s.cmp.Compile(expression.F("A").Eq(2))
	s.NoError(err)

	stats := s.cmp.Stats()
	s.Equal(uint64(0), stats.Hits)
	s.Equal(uint64(2), stats.Misses)
	s.Equal(2, stats.Entries)
}

// The cache is bounded and evicts least recently used translations.
func (s *CompilerTestSuite) TestEviction() {
	cmp, err := NewCompiler(WithCacheSize(2))
	s.Require().NoError(err)

	for n := 0; n < 3; n++ {
		_, err := cmp.Compile(expression.F("A").Eq(n))
		s.NoError(err)
	}
	s.Equal(2, cmp.Stats().Entries)

	// the first expression was evicted and misses again
	_, err = cmp.Compile(expression.F("A").Eq(0))
	s.NoError(err)
	s.Equal(uint64(0), cmp.Stats().Hits)
}

// Local validation failures surface and are not cached.
func (s *CompilerTestSuite) TestUnsupportedNotCached() {
	q := expression.NewQuery().
		OrderByDesc(expression.F("Age")).
		ThenBy(expression.F("Name"))

	_, err := s.cmp.Compile(q)
	var unsupported domain.ErrUnsupportedQuery
	s.ErrorAs(err, &unsupported)
	s.Equal(0, s.cmp.Stats().Entries)
}

// Unknown input types are rejected.
func (s *CompilerTestSuite) TestRejectsUnknownInput() {
	_, err := s.cmp.Compile(fmt.Stringer(nil))
	var unsupported domain.ErrUnsupportedQuery
	s.ErrorAs(err, &unsupported)
}

func TestCompilerTestSuite(t *testing.T) {
	suite.Run(t, new(CompilerTestSuite))
}
