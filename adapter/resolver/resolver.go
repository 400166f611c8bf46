// Package resolver contains the default [domain.PathResolver]
// implementation. It maps expression field paths to the dotted JSON paths
// used on the wire, honoring per-member overrides, struct tags and a case
// policy.
package resolver

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/structure"
)

var (
	// ErrEmptyPath is returned when a field path has no segments.
	ErrEmptyPath = errors.New("empty field path")
	// ErrEmptySegment is returned when a member segment has no name.
	ErrEmptySegment = errors.New("empty path segment")
)

// Resolver implements [domain.PathResolver].
type Resolver struct {
	caseStyle domain.CaseStyle
	indexing  domain.ArrayIndexing
	overrides map[string]string
}

// NewResolver returns a new implementation of [domain.PathResolver].
func NewResolver(options ...Option) domain.PathResolver {
	r := &Resolver{}
	for _, option := range options {
		option(r)
	}
	return r
}

// Resolve implements [domain.PathResolver].
func (r *Resolver) Resolve(segments ...domain.Segment) (string, error) {
	if len(segments) == 0 {
		return "", ErrEmptyPath
	}
	var sb strings.Builder
	var members []string
	for n, seg := range segments {
		if seg.Array {
			if r.indexing == domain.IndexBracket {
				sb.WriteByte('[')
				sb.WriteString(strconv.Itoa(seg.Index))
				sb.WriteByte(']')
				continue
			}
			if n > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(strconv.Itoa(seg.Index))
			continue
		}
		if seg.Name == "" {
			return "", ErrEmptySegment
		}
		members = append(members, seg.Name)
		if n > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(r.member(members, seg.Name))
	}
	return sb.String(), nil
}

// member returns the wire name of one member segment. The override map is
// consulted first with the dotted member path, then with the bare member
// name; without a hit the case policy applies.
func (r *Resolver) member(path []string, name string) string {
	if w, ok := r.overrides[strings.Join(path, ".")]; ok {
		return w
	}
	if w, ok := r.overrides[name]; ok {
		return w
	}
	return convertCase(name, r.caseStyle)
}

func convertCase(name string, style domain.CaseStyle) string {
	switch style {
	case domain.CaseLower:
		return strings.ToLower(name)
	case domain.CaseCamel:
		words := splitWords(name)
		for n, w := range words {
			if n == 0 {
				words[n] = strings.ToLower(w)
				continue
			}
			words[n] = title(w)
		}
		return strings.Join(words, "")
	case domain.CaseSnake:
		return joinLower(splitWords(name), "_")
	case domain.CaseKebab:
		return joinLower(splitWords(name), "-")
	default:
		return name
	}
}

// splitWords cuts an identifier at case boundaries. An uppercase run stays
// one word until its last rune starts the next word, so "HTTPServer" splits
// into "HTTP", "Server".
func splitWords(name string) []string {
	runes := []rune(name)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
		if !boundary && i+1 < len(runes) {
			boundary = unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
				unicode.IsLower(runes[i+1])
		}
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

func joinLower(words []string, sep string) string {
	for n, w := range words {
		words[n] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}

func title(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(w)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Option configures resolver behavior through the functional options
// pattern.
type Option func(*Resolver)

// WithCaseStyle sets the case conversion for members lacking an override.
func WithCaseStyle(cs domain.CaseStyle) Option {
	return func(r *Resolver) {
		r.caseStyle = cs
	}
}

// WithArrayIndexing selects the array index notation.
func WithArrayIndexing(ai domain.ArrayIndexing) Option {
	return func(r *Resolver) {
		r.indexing = ai
	}
}

// WithOverrides replaces individual member wire names. Keys are either bare
// member names or dotted member paths; the dotted form wins.
func WithOverrides(overrides map[string]string) Option {
	return func(r *Resolver) {
		if r.overrides == nil {
			r.overrides = make(map[string]string, len(overrides))
		}
		for k, v := range overrides {
			r.overrides[k] = v
		}
	}
}

// WithModel reads `mango` struct tags from the model type and registers
// them as overrides, so expressions can use Go field names while the wire
// uses the tagged names.
func WithModel(model any) Option {
	return func(r *Resolver) {
		if r.overrides == nil {
			r.overrides = make(map[string]string)
		}
		t := reflect.TypeOf(model)
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Kind() == reflect.Struct {
			collectTags(t, nil, r.overrides, make(map[reflect.Type]bool))
		}
	}
}

func collectTags(t reflect.Type, prefix []string, overrides map[string]string, seen map[reflect.Type]bool) {
	if seen[t] {
		return
	}
	seen[t] = true
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		path := append(append([]string{}, prefix...), f.Name)
		tag := f.Tag.Get(structure.TagName)
		if tag != "" && tag != "-" {
			name := strings.SplitN(tag, ",", 2)[0]
			if name != "" {
				overrides[strings.Join(path, ".")] = name
			}
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr || ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			collectTags(ft, path, overrides, seen)
		}
	}
}
