package translator

import (
	"bytes"
	"fmt"

	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/structure"
)

// operators maps comparison op codes to their wire names.
var operators = map[uint8]string{
	expression.OpEq: "$eq",
	expression.OpNe: "$ne",
	expression.OpLt: "$lt",
	expression.OpLe: "$lte",
	expression.OpGt: "$gt",
	expression.OpGe: "$gte",
}

// clause is one rendered selector clause: a single key and its value. An
// empty key means a bare operator object, which is only legal inside an
// element match.
type clause struct {
	key string
	val []byte
}

func (c clause) bytes() []byte {
	if c.key == "" {
		return c.val
	}
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	writeKey(buf, c.key)
	buf.Write(c.val)
	buf.WriteByte('}')
	return buf.Bytes()
}

func writeKey(buf *bytes.Buffer, key string) {
	k, _ := structure.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
}

// selectorBytes renders a predicate expression as a Mango selector object.
func (t *Translator) selectorBytes(e expression.Expr) ([]byte, error) {
	switch n := e.(type) {
	case expression.Nary:
		if n.Op == expression.OpAnd {
			return t.conjunctionBytes(n.Operands)
		}
		return t.junctionBytes("$or", n.Operands)
	case expression.Binary:
		if n.Op == expression.OpAnd {
			return t.conjunctionBytes([]expression.Expr{n.LHS, n.RHS})
		}
		if n.Op == expression.OpOr {
			return t.junctionBytes("$or", []expression.Expr{n.LHS, n.RHS})
		}
	}
	c, err := t.renderClause(e)
	if err != nil {
		return nil, err
	}
	return c.bytes(), nil
}

// conjunctionBytes renders an n-ary and. When every clause keys a distinct
// field the clauses are merged into a single object; otherwise an explicit
// $and array is emitted.
func (t *Translator) conjunctionBytes(operands []expression.Expr) ([]byte, error) {
	clauses := make([]clause, len(operands))
	distinct := true
	seen := make(map[string]bool, len(operands))
	for n, operand := range operands {
		c, err := t.renderClause(operand)
		if err != nil {
			return nil, err
		}
		clauses[n] = c
		if c.key == "" || seen[c.key] {
			distinct = false
		}
		seen[c.key] = true
	}

	if !distinct {
		return t.junctionArray("$and", clauses)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for n, c := range clauses {
		if n > 0 {
			buf.WriteByte(',')
		}
		writeKey(buf, c.key)
		buf.Write(c.val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Translator) junctionBytes(op string, operands []expression.Expr) ([]byte, error) {
	clauses := make([]clause, len(operands))
	for n, operand := range operands {
		c, err := t.renderClause(operand)
		if err != nil {
			return nil, err
		}
		clauses[n] = c
	}
	return t.junctionArray(op, clauses)
}

func (t *Translator) junctionArray(op string, clauses []clause) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	writeKey(buf, op)
	buf.WriteByte('[')
	for n, c := range clauses {
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(c.bytes())
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// renderClause renders one predicate as a single-keyed clause. Combinators
// key their operator name, field predicates key the resolved wire path.
func (t *Translator) renderClause(e expression.Expr) (clause, error) {
	switch n := e.(type) {
	case expression.Predicate:
		return t.renderClause(n.E)
	case expression.Binary:
		if n.Op == expression.OpAnd || n.Op == expression.OpOr {
			b, err := t.selectorBytes(n)
			if err != nil {
				return clause{}, err
			}
			return rawClause(b)
		}
		return t.comparisonClause(n)
	case expression.Nary:
		b, err := t.selectorBytes(n)
		if err != nil {
			return clause{}, err
		}
		return rawClause(b)
	case expression.Unary:
		inner, err := t.selectorBytes(n.Operand)
		if err != nil {
			return clause{}, err
		}
		return clause{key: "$not", val: inner}, nil
	case expression.In:
		op := "$in"
		if n.Negate {
			op = "$nin"
		}
		vals := new(bytes.Buffer)
		vals.WriteByte('[')
		for i, v := range n.Values {
			if i > 0 {
				vals.WriteByte(',')
			}
			b, err := structure.Marshal(v)
			if err != nil {
				return clause{}, err
			}
			vals.Write(b)
		}
		vals.WriteByte(']')
		return t.operatorClause(n.Field, op, vals.Bytes())
	case expression.Exists:
		b, _ := structure.Marshal(n.Want)
		return t.operatorClause(n.Field, "$exists", b)
	case expression.TypeIs:
		b, err := structure.Marshal(n.Type)
		if err != nil {
			return clause{}, err
		}
		return t.operatorClause(n.Field, "$type", b)
	case expression.Regex:
		b, err := structure.Marshal(n.Pattern)
		if err != nil {
			return clause{}, err
		}
		return t.operatorClause(n.Field, "$regex", b)
	case expression.ElemMatch:
		op := "$elemMatch"
		if n.All {
			op = "$allMatch"
		}
		inner, err := t.selectorBytes(n.Pred)
		if err != nil {
			return clause{}, err
		}
		return t.operatorClause(n.Field, op, inner)
	default:
		return clause{}, domain.ErrUnsupportedQuery{
			Reason: fmt.Sprintf("cannot render %T as a selector", e),
		}
	}
}

// rawClause re-keys an already rendered single-key object.
func rawClause(b []byte) (clause, error) {
	// rendered combinators are always {"$op":...}; strip the braces and
	// split at the first colon
	trimmed := bytes.TrimPrefix(bytes.TrimSuffix(b, []byte("}")), []byte("{"))
	i := bytes.IndexByte(trimmed, ':')
	if i < 2 {
		return clause{val: b}, nil
	}
	key := string(trimmed[1 : i-1])
	return clause{key: key, val: trimmed[i+1:]}, nil
}

// comparisonClause renders a field comparison. Equality with a non-object
// scalar uses the shorthand {field: value}; every other comparison uses an
// explicit operator object. A comparison on the array element itself (an
// empty field path) always uses the operator object.
func (t *Translator) comparisonClause(b expression.Binary) (clause, error) {
	f, ok := b.LHS.(expression.Field)
	if !ok {
		return clause{}, domain.ErrUnsupportedQuery{
			Reason: "comparison must apply to a field",
		}
	}
	c, ok := b.RHS.(expression.Const)
	if !ok {
		return clause{}, domain.ErrUnsupportedQuery{
			Reason: "comparison must apply to a constant",
		}
	}
	val, err := structure.Marshal(c.Value)
	if err != nil {
		return clause{}, err
	}

	key := ""
	if len(f.Path) > 0 {
		key, err = t.resolver.Resolve(f.Path...)
		if err != nil {
			return clause{}, err
		}
	}

	if key != "" && b.Op == expression.OpEq && scalar(c.Value) {
		return clause{key: key, val: val}, nil
	}

	op := operators[b.Op]
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	writeKey(buf, op)
	buf.Write(val)
	buf.WriteByte('}')
	if key == "" {
		return clause{val: buf.Bytes()}, nil
	}
	return clause{key: key, val: buf.Bytes()}, nil
}

func (t *Translator) operatorClause(f expression.Field, op string, val []byte) (clause, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	writeKey(buf, op)
	buf.Write(val)
	buf.WriteByte('}')
	if len(f.Path) == 0 {
		return clause{val: buf.Bytes()}, nil
	}
	key, err := t.resolver.Resolve(f.Path...)
	if err != nil {
		return clause{}, err
	}
	return clause{key: key, val: buf.Bytes()}, nil
}

// scalar reports whether the value is a non-object, non-null scalar
// eligible for the equality shorthand.
func scalar(v any) bool {
	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
