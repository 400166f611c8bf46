package changes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/mango/adapter/compiler"
	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/adapter/transport"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

type ChangesTestSuite struct {
	suite.Suite
}

func (s *ChangesTestSuite) newEngine(srv *httptest.Server) *Engine {
	endpoint, err := url.Parse(srv.URL)
	s.Require().NoError(err)
	cmp, err := compiler.NewCompiler()
	s.Require().NoError(err)
	qctx := domain.QueryContext{
		Endpoint:    endpoint,
		Name:        "people",
		EscapedName: "people",
	}
	return NewEngine(qctx,
		WithTransport(transport.NewTransport(endpoint)),
		WithCompiler(cmp),
	)
}

const normalResponse = `{
	"results": [
		{"seq":"1-a","id":"person:1","changes":[{"rev":"1-abc"}]},
		{"seq":"2-b","id":"person:2","changes":[{"rev":"1-def"}],"deleted":true}
	],
	"last_seq": "2-b",
	"pending": 0
}`

// A normal feed returns the whole payload in sequence order.
func (s *ChangesTestSuite) TestNormalFeed() {
	var gotURL *url.URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		s.Equal(http.MethodGet, r.Method)
		_, _ = w.Write([]byte(normalResponse))
	}))
	defer srv.Close()

	res, err := s.newEngine(srv).Run(context.Background(),
		domain.WithSince("0"),
		domain.WithIncludeDocs(true),
		domain.WithChangesLimit(10),
	)
	s.NoError(err)
	s.Equal("/people/_changes", gotURL.Path)
	s.Equal("0", gotURL.Query().Get("since"))
	s.Equal("true", gotURL.Query().Get("include_docs"))
	s.Equal("10", gotURL.Query().Get("limit"))
	s.Empty(gotURL.Query().Get("feed"))

	s.Require().Len(res.Results, 2)
	s.Equal("1-a", res.Results[0].Seq)
	s.Equal("person:1", res.Results[0].ID)
	s.Equal("1-abc", res.Results[0].Changes[0].Rev)
	s.True(res.Results[1].Deleted)
	s.Equal("2-b", res.LastSeq)
}

// Long-poll adds the feed and timeout parameters.
func (s *ChangesTestSuite) TestLongPoll() {
	var gotURL *url.URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		_, _ = w.Write([]byte(normalResponse))
	}))
	defer srv.Close()

	_, err := s.newEngine(srv).Run(context.Background(),
		domain.WithLongPoll(30*time.Second),
	)
	s.NoError(err)
	s.Equal("longpoll", gotURL.Query().Get("feed"))
	s.Equal("30000", gotURL.Query().Get("timeout"))
}

// A selector filter negotiates a POST with the translated body.
func (s *ChangesTestSuite) TestSelectorFilter() {
	var gotURL *url.URL
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		s.Equal(http.MethodPost, r.Method)
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(normalResponse))
	}))
	defer srv.Close()

	_, err := s.newEngine(srv).Run(context.Background(),
		domain.WithFilter(domain.SelectorFilter{
			Query: expression.F("Type").Eq("person"),
		}),
	)
	s.NoError(err)
	s.Equal("_selector", gotURL.Query().Get("filter"))
	s.Equal(`{"selector":{"Type":"person"}}`, string(gotBody))
}

// A document IDs filter posts the ID list.
func (s *ChangesTestSuite) TestDocumentIDsFilter() {
	var gotURL *url.URL
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		s.Equal(http.MethodPost, r.Method)
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(normalResponse))
	}))
	defer srv.Close()

	_, err := s.newEngine(srv).Run(context.Background(),
		domain.WithFilter(domain.DocumentIDsFilter{IDs: []string{"a", "b"}}),
	)
	s.NoError(err)
	s.Equal("_doc_ids", gotURL.Query().Get("filter"))

	var body map[string][]string
	s.NoError(json.Unmarshal(gotBody, &body))
	s.Equal([]string{"a", "b"}, body["doc_ids"])
}

// View, design and named filters ride on query parameters.
func (s *ChangesTestSuite) TestParameterFilters() {
	var gotURL *url.URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		s.Equal(http.MethodGet, r.Method)
		_, _ = w.Write([]byte(normalResponse))
	}))
	defer srv.Close()
	eng := s.newEngine(srv)

	_, err := eng.Run(context.Background(),
		domain.WithFilter(domain.ViewFilter{View: "app/by-type"}))
	s.NoError(err)
	s.Equal("_view", gotURL.Query().Get("filter"))
	s.Equal("app/by-type", gotURL.Query().Get("view"))

	_, err = eng.Run(context.Background(), domain.WithFilter(domain.DesignFilter{}))
	s.NoError(err)
	s.Equal("_design", gotURL.Query().Get("filter"))

	_, err = eng.Run(context.Background(),
		domain.WithFilter(domain.NamedFilter{Name: "app/mine"}))
	s.NoError(err)
	s.Equal("app/mine", gotURL.Query().Get("filter"))
}

// A pipeline is not a valid changes filter.
func (s *ChangesTestSuite) TestPipelineFilterRejected() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(normalResponse))
	}))
	defer srv.Close()

	_, err := s.newEngine(srv).Run(context.Background(),
		domain.WithFilter(domain.SelectorFilter{
			Query: expression.NewQuery().Skip(1),
		}),
	)
	var unsupported domain.ErrUnsupportedQuery
	s.ErrorAs(err, &unsupported)
}

// A continuous feed yields events one at a time, skips heartbeats and
// surfaces the terminal sequence.
func (s *ChangesTestSuite) TestContinuousFeed() {
	var gotURL *url.URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		flusher := w.(http.Flusher)
		lines := []string{
			`{"seq":"1-a","id":"person:1","changes":[{"rev":"1-abc"}]}`,
			``,
			`{"seq":"2-b","id":"person:2","changes":[{"rev":"1-def"}]}`,
			`{"last_seq":"2-b","pending":0}`,
		}
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n")
			flusher.Flush()
		}
	}))
	defer srv.Close()

	feed, err := s.newEngine(srv).Continuous(context.Background(),
		domain.WithHeartbeat(5*time.Second),
	)
	s.Require().NoError(err)
	defer feed.Close()

	s.Equal("continuous", gotURL.Query().Get("feed"))
	s.Equal("5000", gotURL.Query().Get("heartbeat"))

	var ids []string
	for feed.Next() {
		ids = append(ids, feed.Event().ID)
	}
	s.NoError(feed.Err())
	s.Equal([]string{"person:1", "person:2"}, ids)
	s.Equal("2-b", feed.LastSeq())
	s.Equal(int64(0), feed.Pending())
}

// Scan decodes the embedded document of the current event.
func (s *ChangesTestSuite) TestFeedScan() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w,
			`{"seq":"1-a","id":"person:1","changes":[{"rev":"1-abc"}],`+
				`"doc":{"_id":"person:1","name":"Luke"}}`+"\n")
	}))
	defer srv.Close()

	feed, err := s.newEngine(srv).Continuous(context.Background())
	s.Require().NoError(err)
	defer feed.Close()

	var event domain.ChangesEvent
	s.ErrorIs(feed.Scan(context.Background(), &event), domain.ErrScanBeforeNext)

	s.Require().True(feed.Next())
	s.NoError(feed.Scan(context.Background(), &event))
	s.Equal("person:1", event.ID)

	var doc struct {
		Name string `mango:"name"`
	}
	s.NoError(feed.Scan(context.Background(), &doc))
	s.Equal("Luke", doc.Name)
}

// Closing the feed stops iteration promptly even while the server keeps the
// stream open.
func (s *ChangesTestSuite) TestCancellation() {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, `{"seq":"1-a","id":"person:1","changes":[{"rev":"1-abc"}]}`+"\n")
		flusher.Flush()
		// keep the connection open until the client gives up
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	feed, err := s.newEngine(srv).Continuous(context.Background())
	s.Require().NoError(err)

	s.Require().True(feed.Next())
	s.Equal("person:1", feed.Event().ID)

	s.NoError(feed.Close())

	done := make(chan bool, 1)
	go func() { done <- feed.Next() }()
	select {
	case more := <-done:
		s.False(more)
	case <-time.After(2 * time.Second):
		s.Fail("feed did not terminate after Close")
	}
	s.NoError(feed.Err())
}

// Cancelling the context terminates the feed without an error.
func (s *ChangesTestSuite) TestContextCancellation() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	feed, err := s.newEngine(srv).Continuous(ctx)
	s.Require().NoError(err)
	defer feed.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	s.False(feed.Next())
}

func TestChangesTestSuite(t *testing.T) {
	suite.Run(t, new(ChangesTestSuite))
}
