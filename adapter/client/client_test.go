package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

type ClientTestSuite struct {
	suite.Suite
}

// Clients require an endpoint.
func (s *ClientTestSuite) TestRequiresEndpoint() {
	_, err := NewClient()
	s.ErrorIs(err, ErrNoEndpoint)
}

// Database handles require a name.
func (s *ClientTestSuite) TestRequiresDatabaseName() {
	c, err := NewClient(domain.WithEndpoint("http://localhost:5984"))
	s.Require().NoError(err)
	defer c.Close()

	_, err = c.Database("")
	s.ErrorIs(err, ErrNoDatabaseName)
}

// The translation cache is shared across database handles of one client.
func (s *ClientTestSuite) TestSharedCache() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(domain.WithEndpoint(srv.URL))
	s.Require().NoError(err)
	defer c.Close()

	first, err := c.Database("a")
	s.Require().NoError(err)
	second, err := c.Database("b")
	s.Require().NoError(err)

	q := expression.NewQuery().Where(expression.F("Age").Ge(18))
	var out []map[string]any
	_, err = first.Query(context.Background(), q, &out)
	s.NoError(err)
	_, err = second.Query(context.Background(), q, &out)
	s.NoError(err)

	stats := c.CacheStats()
	s.Equal(uint64(1), stats.Hits)
	s.Equal(uint64(1), stats.Misses)
}

// Session credentials ride on requests as the auth cookie.
func (s *ClientTestSuite) TestCookieAuthentication() {
	var sawCookie string
	mux := http.NewServeMux()
	mux.HandleFunc("/_session", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "AuthSession", Value: "tok-1"})
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/people/person:1", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("AuthSession"); err == nil {
			sawCookie = c.Value
		}
		_, _ = w.Write([]byte(`{"_id":"person:1","_rev":"1-a","name":"Luke"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(
		domain.WithEndpoint(srv.URL),
		domain.WithAuth("bob", "secret"),
	)
	s.Require().NoError(err)
	defer c.Close()

	db, err := c.Database("people")
	s.Require().NoError(err)

	var out map[string]any
	found, err := db.Find(context.Background(), "person:1", &out)
	s.NoError(err)
	s.True(found)
	s.Equal("tok-1", sawCookie)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
