// Package compiler contains the default [domain.Compiler] implementation.
// It orchestrates optimization and translation and caches the produced
// Mango documents in a bounded LRU keyed by the expression's structural
// fingerprint, so equivalent expressions translate once.
package compiler

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/adapter/optimizer"
	"github.com/vinicius-lino-figueiredo/mango/adapter/translator"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// DefaultCacheSize bounds the translation cache when no size is given.
const DefaultCacheSize = 256

// Compiler implements [domain.Compiler].
type Compiler struct {
	optimizer  domain.Optimizer
	translator domain.Translator
	cache      *lru.Cache[[16]byte, []byte]
	hits       atomic.Uint64
	misses     atomic.Uint64
}

// NewCompiler returns a new implementation of [domain.Compiler].
func NewCompiler(options ...Option) (domain.Compiler, error) {
	c := &Compiler{}
	size := DefaultCacheSize
	for _, option := range options {
		option(c, &size)
	}
	if c.optimizer == nil {
		c.optimizer = optimizer.NewOptimizer()
	}
	if c.translator == nil {
		c.translator = translator.NewTranslator()
	}
	cache, err := lru.New[[16]byte, []byte](size)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// Option configures compiler behavior through the functional options
// pattern.
type Option func(*Compiler, *int)

// WithOptimizer sets the expression optimizer.
func WithOptimizer(o domain.Optimizer) Option {
	return func(c *Compiler, _ *int) {
		c.optimizer = o
	}
}

// WithTranslator sets the Mango translator.
func WithTranslator(t domain.Translator) Option {
	return func(c *Compiler, _ *int) {
		c.translator = t
	}
}

// WithCacheSize bounds the translation cache.
func WithCacheSize(size int) Option {
	return func(_ *Compiler, s *int) {
		if size > 0 {
			*s = size
		}
	}
}

// Compile implements [domain.Compiler].
func (c *Compiler) Compile(query any) ([]byte, error) {
	e, err := asExpr(query)
	if err != nil {
		return nil, err
	}
	fp, err := expression.Fingerprint(e)
	if err != nil {
		return nil, err
	}

	if body, ok := c.cache.Get(fp); ok {
		c.hits.Add(1)
		return body, nil
	}
	c.misses.Add(1)

	canonical, err := c.optimizer.Optimize(e)
	if err != nil {
		return nil, err
	}
	body, err := c.translator.Translate(canonical)
	if err != nil {
		return nil, err
	}
	c.cache.Add(fp, body)
	return body, nil
}

// Stats implements [domain.Compiler].
func (c *Compiler) Stats() domain.CacheStats {
	return domain.CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.cache.Len(),
	}
}

func asExpr(query any) (expression.Expr, error) {
	switch t := query.(type) {
	case expression.Query:
		return t.Expr(), nil
	case expression.Predicate:
		return t.E, nil
	case expression.Expr:
		return t, nil
	default:
		return nil, domain.ErrUnsupportedQuery{
			Reason: fmt.Sprintf("cannot compile %T", query),
		}
	}
}
