// Package translator contains the default [domain.Translator]
// implementation. It renders a canonical query expression into a Mango JSON
// document with a stable key order, so a given expression always produces
// byte-identical output.
package translator

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/adapter/resolver"
	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/structure"
)

// Translator implements [domain.Translator].
type Translator struct {
	resolver domain.PathResolver
}

// NewTranslator returns a new implementation of [domain.Translator].
func NewTranslator(options ...Option) domain.Translator {
	t := &Translator{}
	for _, option := range options {
		option(t)
	}
	if t.resolver == nil {
		t.resolver = resolver.NewResolver()
	}
	return t
}

// Option configures translator behavior through the functional options
// pattern.
type Option func(*Translator)

// WithPathResolver sets the field path resolver.
func WithPathResolver(r domain.PathResolver) Option {
	return func(t *Translator) {
		t.resolver = r
	}
}

// Translate implements [domain.Translator]. The query must be in the
// canonical form produced by the optimizer: a pipeline chain or a bare
// predicate expression.
func (t *Translator) Translate(query any) ([]byte, error) {
	e, ok := query.(expression.Expr)
	if !ok {
		return nil, domain.ErrUnsupportedQuery{
			Reason: fmt.Sprintf("cannot translate %T", query),
		}
	}

	doc := newDocWriter()

	stages, isPipeline, err := stagesOf(e)
	if err != nil {
		return nil, err
	}
	if !isPipeline {
		// bare predicate: a selector-only document
		sel, err := t.selectorBytes(e)
		if err != nil {
			return nil, err
		}
		doc.field("selector", sel)
		return doc.finish(), nil
	}

	byStage := make(map[uint8]any, len(stages))
	for _, st := range stages {
		byStage[st.Stage] = st.Arg
	}

	sel := []byte("{}")
	if arg, ok := byStage[expression.StageWhere]; ok {
		sel, err = t.selectorBytes(arg.(expression.Expr))
		if err != nil {
			return nil, err
		}
	}
	doc.field("selector", sel)

	if arg, ok := byStage[expression.StageSort]; ok {
		b, err := t.sortBytes(arg.(expression.Sort))
		if err != nil {
			return nil, err
		}
		doc.field("sort", b)
	}
	if arg, ok := byStage[expression.StageSelect]; ok {
		b, err := t.fieldsBytes(arg.([]expression.Field))
		if err != nil {
			return nil, err
		}
		doc.field("fields", b)
	}
	if arg, ok := byStage[expression.StageSkip]; ok {
		doc.field("skip", intBytes(arg))
	}
	if arg, ok := byStage[expression.StageTake]; ok {
		doc.field("limit", intBytes(arg))
	}
	if arg, ok := byStage[expression.StageUseBookmark]; ok {
		b, err := structure.Marshal(arg)
		if err != nil {
			return nil, err
		}
		doc.field("bookmark", b)
	}
	if arg, ok := byStage[expression.StageUseIndex]; ok {
		b, err := structure.Marshal(arg)
		if err != nil {
			return nil, err
		}
		doc.field("use_index", b)
	}
	if arg, ok := byStage[expression.StageReadQuorum]; ok {
		doc.field("r", intBytes(arg))
	}
	if arg, ok := byStage[expression.StageUpdateIndex]; ok {
		doc.field("update", boolBytes(arg))
	}
	if arg, ok := byStage[expression.StageFromStable]; ok {
		doc.field("stable", boolBytes(arg))
	}

	return doc.finish(), nil
}

// stagesOf returns the pipeline stages when the expression is a pipeline
// tree, reporting a bare predicate otherwise.
func stagesOf(e expression.Expr) ([]expression.Pipeline, bool, error) {
	switch e.(type) {
	case expression.Pipeline, expression.Root:
	default:
		return nil, false, nil
	}
	var stages []expression.Pipeline
	for {
		switch t := e.(type) {
		case expression.Root:
			return stages, true, nil
		case expression.Pipeline:
			stages = append(stages, t)
			e = t.Source
		default:
			return nil, true, domain.ErrUnsupportedQuery{
				Reason: fmt.Sprintf("pipeline source must be a stage or the root, got %T", e),
			}
		}
	}
}

func (t *Translator) sortBytes(s expression.Sort) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('[')
	for n, f := range s.Fields {
		if n > 0 {
			buf.WriteByte(',')
		}
		path, err := t.resolver.Resolve(f.Path...)
		if err != nil {
			return nil, err
		}
		name, err := structure.Marshal(path)
		if err != nil {
			return nil, err
		}
		if s.Descending {
			buf.WriteByte('{')
			buf.Write(name)
			buf.WriteString(`:"desc"}`)
			continue
		}
		buf.Write(name)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (t *Translator) fieldsBytes(fields []expression.Field) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('[')
	for n, f := range fields {
		if n > 0 {
			buf.WriteByte(',')
		}
		path, err := t.resolver.Resolve(f.Path...)
		if err != nil {
			return nil, err
		}
		name, err := structure.Marshal(path)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func intBytes(arg any) []byte {
	c := arg.(expression.Const)
	return []byte(strconv.Itoa(c.Value.(int)))
}

func boolBytes(arg any) []byte {
	return []byte(strconv.FormatBool(arg.(bool)))
}

// docWriter assembles a JSON object writing keys in call order.
type docWriter struct {
	buf bytes.Buffer
	n   int
}

func newDocWriter() *docWriter {
	w := &docWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *docWriter) field(name string, value []byte) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.n++
	w.buf.WriteByte('"')
	w.buf.WriteString(name)
	w.buf.WriteString(`":`)
	w.buf.Write(value)
}

func (w *docWriter) finish() []byte {
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}
