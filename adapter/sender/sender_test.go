package sender

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/mango/adapter/document"
	"github.com/vinicius-lino-figueiredo/mango/adapter/transport"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

type SenderTestSuite struct {
	suite.Suite
}

type person struct {
	document.Document
	Name string `mango:"name"`
	Age  int    `mango:"age"`
}

const findResponseBody = `{
	"docs": [
		{"_id":"person:1","_rev":"1-abc","name":"Luke","age":19,
		 "_attachments":{"photo.png":{"content_type":"image/png","digest":"md5-x","length":42,"stub":true}}},
		{"_id":"person:2","_rev":"3-def","name":"Leia","age":19}
	],
	"bookmark": "g1AAAA",
	"warning": "no matching index found",
	"execution_stats": {"results_returned": 2, "execution_time_ms": 5.5}
}`

func (s *SenderTestSuite) newSender(srv *httptest.Server) *Sender {
	endpoint, err := url.Parse(srv.URL)
	s.Require().NoError(err)
	qctx := domain.QueryContext{
		Endpoint:    endpoint,
		Name:        "people",
		EscapedName: "people",
	}
	return NewSender(qctx, WithTransport(transport.NewTransport(endpoint)))
}

// Send posts to the find endpoint and decodes rows into the target slice.
func (s *SenderTestSuite) TestSendDecodesRows() {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/people/_find", r.URL.Path)
		s.Equal("application/json", r.Header.Get("Content-Type"))
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(findResponseBody))
	}))
	defer srv.Close()

	var people []person
	result, err := s.newSender(srv).Send(
		context.Background(),
		[]byte(`{"selector":{"age":19}}`),
		&people,
	)
	s.NoError(err)
	s.Equal(`{"selector":{"age":19}}`, string(gotBody))

	s.Require().Len(people, 2)
	s.Equal("Luke", people[0].Name)
	s.Equal(19, people[0].Age)
	s.Equal("person:1", people[0].DocumentID())
	s.Equal("1-abc", people[0].DocumentRev())
	s.Equal("person:2", people[1].DocumentID())

	s.Equal("g1AAAA", result.Bookmark)
	s.Equal("no matching index found", result.Warning)
	s.Require().NotNil(result.Stats)
	s.Equal(int64(2), result.Stats.ResultsReturned)
	s.InDelta(5.5, result.Stats.ExecutionTimeMs, 0.001)
}

// Attachment metadata hydrates with URI, identity and a Clean state.
func (s *SenderTestSuite) TestAttachmentHydration() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(findResponseBody))
	}))
	defer srv.Close()

	var people []person
	_, err := s.newSender(srv).Send(context.Background(), `{"selector":{}}`, &people)
	s.NoError(err)

	att, ok := people[0].AttachmentSet().Get("photo.png")
	s.Require().True(ok)
	s.Equal(domain.AttachmentClean, att.State)
	s.Equal("image/png", att.ContentType)
	s.Equal("md5-x", att.Digest)
	s.Equal(int64(42), att.Length)
	s.Equal("person:1", att.DocumentID)
	s.Equal("1-abc", att.DocumentRev)
	s.Equal(srv.URL+"/people/person:1/photo.png", att.URI)
}

// Raw map queries post their canonical JSON form.
func (s *SenderTestSuite) TestRawBodyForms() {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer srv.Close()

	var people []person
	_, err := s.newSender(srv).Send(context.Background(),
		map[string]any{"selector": map[string]any{"name": "Luke"}}, &people)
	s.NoError(err)
	s.Equal(`{"selector":{"name":"Luke"}}`, string(gotBody))
	s.Empty(people)
}

// Rows decode into plain structs without a document carrier too.
func (s *SenderTestSuite) TestPlainTarget() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(findResponseBody))
	}))
	defer srv.Close()

	type row struct {
		Name string `mango:"name"`
	}
	var rows []row
	_, err := s.newSender(srv).Send(context.Background(), `{"selector":{}}`, &rows)
	s.NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("Luke", rows[0].Name)
}

// Targets must be pointers to slices.
func (s *SenderTestSuite) TestTargetValidation() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer srv.Close()

	snd := s.newSender(srv)
	_, err := snd.Send(context.Background(), `{"selector":{}}`, nil)
	s.ErrorIs(err, domain.ErrTargetNil)

	var notSlice int
	_, err = snd.Send(context.Background(), `{"selector":{}}`, &notSlice)
	s.ErrorIs(err, domain.ErrNonPointer)
}

func TestSenderTestSuite(t *testing.T) {
	suite.Run(t, new(SenderTestSuite))
}
