// Package auth contains the default [domain.Authenticator] implementation:
// a cookie session obtained from the server's session endpoint, refreshed
// when the configured token duration elapses. One refresh is in flight at a
// time; concurrent callers wait for it.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/ctxsync"
)

// DefaultTokenDuration is how long an issued cookie is trusted when no
// duration is configured.
const DefaultTokenDuration = 10 * time.Minute

// cookieName is the session cookie the server issues.
const cookieName = "AuthSession"

// Session implements [domain.Authenticator].
type Session struct {
	endpoint *url.URL
	client   *http.Client
	name     string
	password string
	duration time.Duration
	now      func() time.Time

	mu         *ctxsync.Mutex
	cookie     *http.Cookie
	issuedAt   time.Time
	generation uint64
}

// NewSession returns a new implementation of [domain.Authenticator].
func NewSession(endpoint *url.URL, auth domain.Auth, options ...Option) domain.Authenticator {
	s := &Session{
		endpoint: endpoint,
		name:     auth.Name,
		password: auth.Password,
		duration: auth.TokenDuration,
		mu:       ctxsync.NewMutex(),
		now:      time.Now,
	}
	for _, option := range options {
		option(s)
	}
	if s.duration <= 0 {
		s.duration = DefaultTokenDuration
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 30 * time.Second}
	}
	return s
}

// Option configures session behavior through the functional options
// pattern.
type Option func(*Session)

// WithHTTPClient sets the HTTP client used for the session endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.client = c
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Token implements [domain.Authenticator]. The session is renewed when the
// current time has reached the issue time plus the token duration.
func (s *Session) Token(ctx context.Context) (*http.Cookie, uint64, error) {
	if err := s.mu.LockWithContext(ctx); err != nil {
		return nil, 0, err
	}
	defer s.mu.Unlock()

	if s.cookie != nil && s.now().Before(s.issuedAt.Add(s.duration)) {
		return s.cookie, s.generation, nil
	}

	cookie, err := s.login(ctx)
	if err != nil {
		return nil, 0, err
	}
	s.cookie = cookie
	s.issuedAt = s.now()
	s.generation++
	return s.cookie, s.generation, nil
}

// Invalidate implements [domain.Authenticator].
func (s *Session) Invalidate(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation == s.generation {
		s.cookie = nil
	}
}

func (s *Session) login(ctx context.Context) (*http.Cookie, error) {
	body, err := json.Marshal(map[string]string{
		"name":     s.name,
		"password": s.password,
	})
	if err != nil {
		return nil, err
	}

	target := strings.TrimSuffix(s.endpoint.String(), "/") + "/_session"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrTransport{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.ErrTransport{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, domain.ErrRemote{
			Kind:   domain.ErrUnauthorized,
			Status: resp.StatusCode,
			Name:   "unauthorized",
			Reason: "name or password is incorrect",
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.ErrServer{Status: resp.StatusCode}
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == cookieName {
			return cookie, nil
		}
	}
	return nil, domain.ErrSessionExpired
}
