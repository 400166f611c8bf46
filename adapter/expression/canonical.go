package expression

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"slices"
	"strconv"

	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/structure"
)

// ErrUnknownNode is returned when a value that is not an expression node
// reaches the canonical walk.
type ErrUnknownNode struct {
	Node any
}

// Error implements [error].
func (e ErrUnknownNode) Error() string {
	return fmt.Sprintf("unknown expression node %T", e.Node)
}

// CanonicalBytes returns a deterministic serialization of the expression.
// Operands of and/or are serialized individually and emitted in lexical
// order, so commutatively equal expressions serialize identically. Constant
// values are rendered as canonical JSON.
func CanonicalBytes(e Expr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeCanonical(buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the 128-bit structural fingerprint of the expression,
// derived from its canonical serialization.
func Fingerprint(e Expr) ([16]byte, error) {
	var fp [16]byte
	b, err := CanonicalBytes(e)
	if err != nil {
		return fp, err
	}
	h := fnv.New128a()
	_, _ = h.Write(b) // fnv writes never fail
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

func writeCanonical(buf *bytes.Buffer, e Expr) error {
	switch t := e.(type) {
	case Predicate:
		return writeCanonical(buf, t.E)
	case Const:
		b, err := structure.Marshal(t.Value)
		if err != nil {
			return err
		}
		buf.WriteString("C:")
		buf.Write(b)
		return nil
	case Field:
		buf.WriteString("F:")
		writePath(buf, t.Path)
		return nil
	case Binary:
		if t.Op == OpAnd || t.Op == OpOr {
			return writeCommutative(buf, t.Op, []Expr{t.LHS, t.RHS})
		}
		buf.WriteString("B")
		buf.WriteString(strconv.Itoa(int(t.Op)))
		buf.WriteByte('(')
		if err := writeCanonical(buf, t.LHS); err != nil {
			return err
		}
		buf.WriteByte(',')
		if err := writeCanonical(buf, t.RHS); err != nil {
			return err
		}
		buf.WriteByte(')')
		return nil
	case Nary:
		return writeCommutative(buf, t.Op, t.Operands)
	case Unary:
		buf.WriteString("U(")
		if err := writeCanonical(buf, t.Operand); err != nil {
			return err
		}
		buf.WriteByte(')')
		return nil
	case In:
		if t.Negate {
			buf.WriteString("NI(")
		} else {
			buf.WriteString("I(")
		}
		writePath(buf, t.Field.Path)
		for _, v := range t.Values {
			b, err := structure.Marshal(v)
			if err != nil {
				return err
			}
			buf.WriteByte(',')
			buf.Write(b)
		}
		buf.WriteByte(')')
		return nil
	case Exists:
		buf.WriteString("E(")
		writePath(buf, t.Field.Path)
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatBool(t.Want))
		buf.WriteByte(')')
		return nil
	case TypeIs:
		buf.WriteString("T(")
		writePath(buf, t.Field.Path)
		buf.WriteByte(',')
		buf.WriteString(t.Type)
		buf.WriteByte(')')
		return nil
	case Regex:
		buf.WriteString("R(")
		writePath(buf, t.Field.Path)
		buf.WriteByte(',')
		buf.WriteString(strconv.Quote(t.Pattern))
		buf.WriteByte(')')
		return nil
	case ElemMatch:
		if t.All {
			buf.WriteString("EA(")
		} else {
			buf.WriteString("EM(")
		}
		writePath(buf, t.Field.Path)
		buf.WriteByte(',')
		if err := writeCanonical(buf, t.Pred); err != nil {
			return err
		}
		buf.WriteByte(')')
		return nil
	case Sort:
		buf.WriteString("S")
		if t.Descending {
			buf.WriteString("D")
		}
		buf.WriteByte('(')
		for n, f := range t.Fields {
			if n > 0 {
				buf.WriteByte(',')
			}
			writePath(buf, f.Path)
		}
		buf.WriteByte(')')
		return nil
	case Root:
		buf.WriteString("Q")
		return nil
	case Pipeline:
		buf.WriteString("P")
		buf.WriteString(strconv.Itoa(int(t.Stage)))
		buf.WriteByte('(')
		if err := writeCanonical(buf, t.Source); err != nil {
			return err
		}
		buf.WriteByte(',')
		if err := writeArg(buf, t.Arg); err != nil {
			return err
		}
		buf.WriteByte(')')
		return nil
	default:
		return ErrUnknownNode{Node: e}
	}
}

func writeArg(buf *bytes.Buffer, arg any) error {
	switch t := arg.(type) {
	case nil:
		buf.WriteString("nil")
		return nil
	case Expr:
		return writeCanonical(buf, t)
	case []Field:
		buf.WriteByte('[')
		for n, f := range t {
			if n > 0 {
				buf.WriteByte(',')
			}
			writePath(buf, f.Path)
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := structure.Marshal(arg)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

func writeCommutative(buf *bytes.Buffer, op uint8, operands []Expr) error {
	parts := make([][]byte, len(operands))
	for n, operand := range operands {
		b, err := CanonicalBytes(operand)
		if err != nil {
			return err
		}
		parts[n] = b
	}
	slices.SortFunc(parts, bytes.Compare)

	if op == OpAnd {
		buf.WriteString("A(")
	} else {
		buf.WriteString("O(")
	}
	for n, p := range parts {
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(p)
	}
	buf.WriteByte(')')
	return nil
}

func writePath(buf *bytes.Buffer, path []domain.Segment) {
	for n, seg := range path {
		if seg.Array {
			buf.WriteByte('[')
			buf.WriteString(strconv.Itoa(seg.Index))
			buf.WriteByte(']')
			continue
		}
		if n > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(seg.Name)
	}
}
