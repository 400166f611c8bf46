package optimizer

import (
	"fmt"

	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// optimizePipeline normalizes a pipeline tree: predicates of all Where
// stages are rewritten and combined conjunctively, ordering tiers collapse
// into one sort specification, stage arguments are validated and the chain
// is rebuilt in a fixed stage order so translation is deterministic.
func (o *Optimizer) optimizePipeline(e expression.Expr) (expression.Expr, error) {
	stages, err := collect(e)
	if err != nil {
		return nil, err
	}

	var wheres []expression.Expr
	var sort *expression.Sort
	var sel []expression.Field
	var skip, take, quorum *int
	var bookmark string
	var useIndex any
	var updateIndex, fromStable *bool

	for _, st := range stages {
		switch st.Stage {
		case expression.StageWhere:
			pred, err := o.wherePredicate(st.Arg)
			if err != nil {
				return nil, err
			}
			if pred != nil {
				wheres = append(wheres, pred)
			}
		case expression.StageOrderBy, expression.StageOrderByDesc:
			f, err := sortField(st.Arg)
			if err != nil {
				return nil, err
			}
			sort = &expression.Sort{
				Fields:     []expression.Field{f},
				Descending: st.Stage == expression.StageOrderByDesc,
			}
		case expression.StageThenBy, expression.StageThenByDesc:
			f, err := sortField(st.Arg)
			if err != nil {
				return nil, err
			}
			if sort == nil {
				return nil, domain.ErrUnsupportedQuery{
					Reason: "ThenBy requires a preceding OrderBy",
				}
			}
			desc := st.Stage == expression.StageThenByDesc
			if sort.Descending != desc {
				return nil, domain.ErrUnsupportedQuery{
					Reason: "cannot order in different directions",
				}
			}
			sort.Fields = append(sort.Fields, f)
		case expression.StageSkip:
			n, err := nonNegativeInt(st.Arg, "Skip")
			if err != nil {
				return nil, err
			}
			if n == 0 {
				skip = nil
				continue
			}
			skip = &n
		case expression.StageTake:
			n, err := nonNegativeInt(st.Arg, "Take")
			if err != nil {
				return nil, err
			}
			take = &n
		case expression.StageSelect:
			fields, ok := st.Arg.([]expression.Field)
			if !ok || len(fields) == 0 {
				return nil, domain.ErrUnsupportedQuery{
					Reason: "Select must project fields",
				}
			}
			sel = fields
		case expression.StageUseBookmark:
			b, ok := st.Arg.(string)
			if !ok {
				return nil, domain.ErrUnsupportedQuery{
					Reason: "UseBookmark takes a string token",
				}
			}
			bookmark = b
		case expression.StageUseIndex:
			ix, err := indexRef(st.Arg)
			if err != nil {
				return nil, err
			}
			useIndex = ix
		case expression.StageReadQuorum:
			n, err := nonNegativeInt(st.Arg, "WithReadQuorum")
			if err != nil {
				return nil, err
			}
			quorum = &n
		case expression.StageUpdateIndex:
			b, ok := st.Arg.(bool)
			if !ok {
				return nil, domain.ErrUnsupportedQuery{
					Reason: "UpdateIndex takes a bool",
				}
			}
			updateIndex = &b
		case expression.StageFromStable:
			b, ok := st.Arg.(bool)
			if !ok {
				return nil, domain.ErrUnsupportedQuery{
					Reason: "FromStable takes a bool",
				}
			}
			fromStable = &b
		default:
			return nil, domain.ErrUnsupportedQuery{
				Reason: fmt.Sprintf("unknown pipeline stage %d", st.Stage),
			}
		}
	}

	out := expression.Expr(expression.Root{})
	push := func(stage uint8, arg any) {
		out = expression.Pipeline{Stage: stage, Source: out, Arg: arg}
	}

	where, err := o.combineWheres(wheres)
	if err != nil {
		return nil, err
	}
	if where != nil {
		push(expression.StageWhere, where)
	}
	if sort != nil {
		push(expression.StageSort, *sort)
	}
	if sel != nil {
		push(expression.StageSelect, sel)
	}
	if skip != nil {
		push(expression.StageSkip, expression.Const{Value: *skip})
	}
	if take != nil {
		push(expression.StageTake, expression.Const{Value: *take})
	}
	if bookmark != "" {
		push(expression.StageUseBookmark, bookmark)
	}
	if useIndex != nil {
		push(expression.StageUseIndex, useIndex)
	}
	if quorum != nil {
		push(expression.StageReadQuorum, expression.Const{Value: *quorum})
	}
	if updateIndex != nil {
		push(expression.StageUpdateIndex, *updateIndex)
	}
	if fromStable != nil {
		push(expression.StageFromStable, *fromStable)
	}
	return out, nil
}

// collect returns the pipeline stages in source-first order.
func collect(e expression.Expr) ([]expression.Pipeline, error) {
	var rev []expression.Pipeline
	for {
		switch t := e.(type) {
		case expression.Root:
			out := make([]expression.Pipeline, len(rev))
			for n := range rev {
				out[n] = rev[len(rev)-1-n]
			}
			return out, nil
		case expression.Pipeline:
			rev = append(rev, t)
			e = t.Source
		default:
			return nil, domain.ErrUnsupportedQuery{
				Reason: fmt.Sprintf("pipeline source must be a stage or the root, got %T", e),
			}
		}
	}
}

func (o *Optimizer) wherePredicate(arg any) (expression.Expr, error) {
	e, ok := arg.(expression.Expr)
	if !ok {
		return nil, domain.ErrUnsupportedQuery{
			Reason: fmt.Sprintf("Where takes a predicate, got %T", arg),
		}
	}
	pred, err := o.optimizePredicate(e)
	if err != nil {
		return nil, err
	}
	if c, ok := pred.(expression.Const); ok {
		if b, ok := c.Value.(bool); ok && b {
			return nil, nil
		}
		return nil, domain.ErrUnsupportedQuery{
			Reason: "predicate reduces to a non-true constant",
		}
	}
	return pred, nil
}

func (o *Optimizer) combineWheres(wheres []expression.Expr) (expression.Expr, error) {
	switch len(wheres) {
	case 0:
		return nil, nil
	case 1:
		return wheres[0], nil
	}
	combined, err := rewriteJunction(expression.OpAnd, wheres)
	if err != nil {
		return nil, err
	}
	return combined, nil
}

func sortField(arg any) (expression.Field, error) {
	f, ok := arg.(expression.Field)
	if !ok {
		return expression.Field{}, domain.ErrUnsupportedQuery{
			Reason: fmt.Sprintf("ordering takes a field, got %T", arg),
		}
	}
	return f, nil
}

func nonNegativeInt(arg any, stage string) (int, error) {
	c, ok := arg.(expression.Const)
	if !ok {
		return 0, domain.ErrUnsupportedQuery{
			Reason: stage + " takes a constant integer",
		}
	}
	n, ok := c.Value.(int)
	if !ok || n < 0 {
		return 0, domain.ErrUnsupportedQuery{
			Reason: stage + " takes a non-negative integer",
		}
	}
	return n, nil
}

func indexRef(arg any) (any, error) {
	switch t := arg.(type) {
	case string:
		if t != "" {
			return t, nil
		}
	case [2]string:
		return []string{t[0], t[1]}, nil
	case []string:
		if len(t) == 1 || len(t) == 2 {
			return t, nil
		}
	}
	return nil, domain.ErrUnsupportedQuery{
		Reason: "UseIndex takes a design document name or a ddoc/index pair",
	}
}
