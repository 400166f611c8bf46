// Package sender contains the query sender: it posts Mango documents to the
// server's find endpoint, parses the response envelope and hydrates the
// returned rows into caller types, filling document identity and attachment
// metadata.
package sender

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/mango/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/mango/adapter/transport"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// Sender posts Mango queries for one database and hydrates the results.
type Sender struct {
	transport domain.Transport
	decoder   domain.Decoder
	qctx      domain.QueryContext
}

// NewSender returns a sender bound to the given query context.
func NewSender(qctx domain.QueryContext, options ...Option) *Sender {
	s := &Sender{qctx: qctx}
	for _, option := range options {
		option(s)
	}
	if s.decoder == nil {
		s.decoder = decoder.NewDecoder()
	}
	return s
}

// Option configures sender behavior through the functional options pattern.
type Option func(*Sender)

// WithTransport sets the request transport.
func WithTransport(t domain.Transport) Option {
	return func(s *Sender) {
		s.transport = t
	}
}

// WithDecoder sets the row decoder.
func WithDecoder(d domain.Decoder) Option {
	return func(s *Sender) {
		s.decoder = d
	}
}

// findResponse is the envelope of a find response.
type findResponse struct {
	Docs           []map[string]any       `mango:"docs"`
	Bookmark       string                 `mango:"bookmark"`
	Warning        string                 `mango:"warning"`
	ExecutionStats *domain.ExecutionStats `mango:"execution_stats"`
}

// Send posts the query body to the find endpoint and decodes the matching
// documents into target, which must be a pointer to a slice. The body may
// be a compiled Mango document ([]byte), a raw JSON string or a map; raw
// bodies bypass translation but rows are still hydrated.
func (s *Sender) Send(ctx context.Context, body any, target any) (*domain.QueryResult, error) {
	var resp findResponse
	path := s.qctx.EscapedName + "/_find"
	if err := s.transport.JSON(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return nil, err
	}
	if err := s.Hydrate(resp.Docs, target); err != nil {
		return nil, err
	}
	return &domain.QueryResult{
		Bookmark: resp.Bookmark,
		Warning:  resp.Warning,
		Stats:    resp.ExecutionStats,
	}, nil
}

// Hydrate decodes raw document rows into target, a pointer to a slice, and
// fills server identity on every element implementing [domain.Document].
func (s *Sender) Hydrate(rows []map[string]any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Slice {
		return domain.ErrNonPointer
	}

	sliceVal := v.Elem()
	elemType := sliceVal.Type().Elem()
	out := reflect.MakeSlice(sliceVal.Type(), 0, len(rows))

	for _, row := range rows {
		elem := reflect.New(elemType)
		if err := s.HydrateOne(row, elem.Interface()); err != nil {
			return err
		}
		out = reflect.Append(out, elem.Elem())
	}
	sliceVal.Set(out)
	return nil
}

// HydrateOne decodes one raw document into target and fills identity and
// attachment metadata when target implements [domain.Document].
func (s *Sender) HydrateOne(row map[string]any, target any) error {
	if err := s.decoder.Decode(row, target); err != nil {
		return err
	}
	doc, ok := target.(domain.Document)
	if !ok {
		return nil
	}

	id, _ := row["_id"].(string)
	rev, _ := row["_rev"].(string)
	doc.SetDocumentID(id)
	doc.SetDocumentRev(rev)

	raw, ok := row["_attachments"].(map[string]any)
	if !ok {
		return nil
	}
	set := doc.AttachmentSet()
	for name, meta := range raw {
		m, ok := meta.(map[string]any)
		if !ok {
			continue
		}
		att := &domain.Attachment{
			Name:        name,
			State:       domain.AttachmentClean,
			URI:         s.attachmentURI(id, name),
			DocumentID:  id,
			DocumentRev: rev,
		}
		att.ContentType, _ = m["content_type"].(string)
		att.Digest, _ = m["digest"].(string)
		if l, ok := m["length"].(float64); ok {
			att.Length = int64(l)
		} else if l, ok := m["length"].(json.Number); ok {
			n, _ := l.Int64()
			att.Length = n
		}
		set.Put(att)
	}
	return nil
}

func (s *Sender) attachmentURI(id, name string) string {
	base := strings.TrimSuffix(s.qctx.Endpoint.String(), "/")
	return base + "/" + s.qctx.EscapedName + "/" +
		transport.EscapeSegment(id) + "/" + transport.EscapeSegment(name)
}
