// Package optimizer contains the default [domain.Optimizer] implementation.
// It rewrites query expressions to a fixed point: double negations and De
// Morgan duals are eliminated, negated comparisons are flipped, and/or
// chains are flattened into n-ary nodes with canonically ordered operands,
// all-constant subtrees are folded, tautological pipeline stages are
// removed and ordering tiers are collapsed into a single sort
// specification.
package optimizer

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// Optimizer implements [domain.Optimizer].
type Optimizer struct{}

// NewOptimizer returns a new implementation of [domain.Optimizer].
func NewOptimizer() domain.Optimizer {
	return &Optimizer{}
}

// maxPasses bounds the fixed-point loop. The rewrites strictly shrink or
// reorder the tree, so two passes normally suffice.
const maxPasses = 10

// Optimize implements [domain.Optimizer]. It accepts an [expression.Query],
// [expression.Predicate] or [expression.Expr] and returns the canonical
// [expression.Expr].
func (o *Optimizer) Optimize(query any) (any, error) {
	e, err := asExpr(query)
	if err != nil {
		return nil, err
	}
	if isPipeline(e) {
		return o.optimizePipeline(e)
	}
	return o.optimizePredicate(e)
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
			Reason: fmt.Sprintf("cannot optimize %T", query),
		}
	}
}

func isPipeline(e expression.Expr) bool {
	switch e.(type) {
	case expression.Pipeline, expression.Root:
		return true
	}
	return false
}

func (o *Optimizer) optimizePredicate(e expression.Expr) (expression.Expr, error) {
	prev, err := expression.CanonicalBytes(e)
	if err != nil {
		return nil, err
	}
	for range maxPasses {
		next, err := rewrite(e)
		if err != nil {
			return nil, err
		}
		b, err := expression.CanonicalBytes(next)
		if err != nil {
			return nil, err
		}
		e = next
		if bytes.Equal(b, prev) {
			break
		}
		prev = b
	}
	return e, nil
}

func rewrite(e expression.Expr) (expression.Expr, error) {
	switch t := e.(type) {
	case expression.Predicate:
		return rewrite(t.E)
	case expression.Unary:
		return rewriteNot(t)
	case expression.Binary:
		if t.Op == expression.OpAnd || t.Op == expression.OpOr {
			return rewriteJunction(t.Op, []expression.Expr{t.LHS, t.RHS})
		}
		return rewriteComparison(t)
	case expression.Nary:
		return rewriteJunction(t.Op, t.Operands)
	case expression.ElemMatch:
		pred, err := rewrite(t.Pred)
		if err != nil {
			return nil, err
		}
		return expression.ElemMatch{Field: t.Field, Pred: pred, All: t.All}, nil
	default:
		return e, nil
	}
}

// negations maps each comparison operator to its complement.
var negations = map[uint8]uint8{
	expression.OpEq: expression.OpNe,
	expression.OpNe: expression.OpEq,
	expression.OpLt: expression.OpGe,
	expression.OpLe: expression.OpGt,
	expression.OpGt: expression.OpLe,
	expression.OpGe: expression.OpLt,
}

func rewriteNot(u expression.Unary) (expression.Expr, error) {
	operand, err := rewrite(u.Operand)
	if err != nil {
		return nil, err
	}
	switch t := operand.(type) {
	case expression.Unary:
		return rewrite(t.Operand)
	case expression.Const:
		if b, ok := t.Value.(bool); ok {
			return expression.Const{Value: !b}, nil
		}
	case expression.Binary:
		if op, ok := negations[t.Op]; ok {
			return expression.Binary{Op: op, LHS: t.LHS, RHS: t.RHS}, nil
		}
	case expression.Nary:
		dual := expression.OpOr
		if t.Op == expression.OpOr {
			dual = expression.OpAnd
		}
		negated := make([]expression.Expr, len(t.Operands))
		for n, operand := range t.Operands {
			negated[n] = expression.Unary{Op: expression.OpNot, Operand: operand}
		}
		return rewriteJunction(dual, negated)
	case expression.In:
		return expression.In{Field: t.Field, Values: t.Values, Negate: !t.Negate}, nil
	case expression.Exists:
		return expression.Exists{Field: t.Field, Want: !t.Want}, nil
	}
	return expression.Unary{Op: expression.OpNot, Operand: operand}, nil
}

func rewriteJunction(op uint8, operands []expression.Expr) (expression.Expr, error) {
	// neutral is dropped, absorbing short-circuits the whole junction
	neutral, absorbing := true, false
	if op == expression.OpOr {
		neutral, absorbing = false, true
	}

	flat := make([]expression.Expr, 0, len(operands))
	for _, operand := range operands {
		r, err := rewrite(operand)
		if err != nil {
			return nil, err
		}
		switch t := r.(type) {
		case expression.Nary:
			if t.Op == op {
				flat = append(flat, t.Operands...)
				continue
			}
		case expression.Const:
			if b, ok := t.Value.(bool); ok {
				if b == absorbing {
					return expression.Const{Value: absorbing}, nil
				}
				if b == neutral {
					continue
				}
			}
		}
		flat = append(flat, r)
	}

	switch len(flat) {
	case 0:
		return expression.Const{Value: neutral}, nil
	case 1:
		return flat[0], nil
	}

	if err := sortOperands(flat); err != nil {
		return nil, err
	}
	return expression.Nary{Op: op, Operands: flat}, nil
}

// sortOperands orders commutative operands by their canonical serialization
// so commutatively equal expressions translate identically.
func sortOperands(operands []expression.Expr) error {
	type keyed struct {
		e   expression.Expr
		key []byte
	}
	ks := make([]keyed, len(operands))
	for n, operand := range operands {
		b, err := expression.CanonicalBytes(operand)
		if err != nil {
			return err
		}
		ks[n] = keyed{e: operand, key: b}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return bytes.Compare(a.key, b.key)
	})
	for n, k := range ks {
		operands[n] = k.e
	}
	return nil
}

func rewriteComparison(b expression.Binary) (expression.Expr, error) {
	lc, lok := b.LHS.(expression.Const)
	rc, rok := b.RHS.(expression.Const)
	if !lok || !rok {
		return b, nil
	}
	folded, ok := fold(b.Op, lc.Value, rc.Value)
	if !ok {
		return b, nil
	}
	return expression.Const{Value: folded}, nil
}

func fold(op uint8, a, b any) (bool, bool) {
	switch op {
	case expression.OpEq, expression.OpNe:
		ab, err := expression.CanonicalBytes(expression.Const{Value: a})
		if err != nil {
			return false, false
		}
		bb, err := expression.CanonicalBytes(expression.Const{Value: b})
		if err != nil {
			return false, false
		}
		eq := bytes.Equal(ab, bb)
		return eq == (op == expression.OpEq), true
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return false, false
	}
	switch op {
	case expression.OpLt:
		return af < bf, true
	case expression.OpLe:
		return af <= bf, true
	case expression.OpGt:
		return af > bf, true
	case expression.OpGe:
		return af >= bf, true
	}
	return false, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
