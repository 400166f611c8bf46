// Package transport contains the default [domain.Transport]
// implementation: a thin layer over the shared HTTP client that attaches
// the session cookie, retries transient failures with exponential backoff
// and maps non-2xx responses to the error taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/mango/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/structure"
)

// Transport implements [domain.Transport].
type Transport struct {
	endpoint *url.URL
	client   *http.Client
	stream   *http.Client
	auth     domain.Authenticator
	decoder  domain.Decoder
	retry    *retryController
}

// NewTransport returns a new implementation of [domain.Transport].
func NewTransport(endpoint *url.URL, options ...Option) domain.Transport {
	t := &Transport{
		endpoint: endpoint,
		retry:    newRetryController(),
	}
	for _, option := range options {
		option(t)
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}
	if t.stream == nil {
		// continuous feeds legitimately block for hours: bound only the
		// connection setup, never the body read
		t.stream = &http.Client{
			Transport: t.client.Transport,
		}
	}
	if t.decoder == nil {
		t.decoder = decoder.NewDecoder()
	}
	return t
}

// Option configures transport behavior through the functional options
// pattern.
type Option func(*Transport)

// WithHTTPClient sets the HTTP client for request/response calls.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// WithStreamClient sets the HTTP client for long-lived streaming calls.
func WithStreamClient(c *http.Client) Option {
	return func(t *Transport) {
		t.stream = c
	}
}

// WithAuthenticator sets the session cookie source.
func WithAuthenticator(a domain.Authenticator) Option {
	return func(t *Transport) {
		t.auth = a
	}
}

// WithDecoder sets the response decoder.
func WithDecoder(d domain.Decoder) Option {
	return func(t *Transport) {
		t.decoder = d
	}
}

// WithRetry overrides the retry policy.
func WithRetry(attempts int, base, max time.Duration) Option {
	return func(t *Transport) {
		t.retry = &retryController{
			maxAttempts: attempts,
			baseDelay:   base,
			maxDelay:    max,
		}
	}
}

// JSON implements [domain.Transport].
func (t *Transport) JSON(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	bodyBytes, contentType, err := marshalBody(body)
	if err != nil {
		return err
	}

	var raw any
	err = t.retry.run(ctx, func() error {
		resp, err := t.send(ctx, t.client, method, path, query, bodyBytes, contentType, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return domain.ErrDecode{Source: resp.Body, Target: out}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return t.decoder.Decode(raw, out)
}

// Stream implements [domain.Transport].
func (t *Transport) Stream(ctx context.Context, method, path string, query url.Values, body any) (io.ReadCloser, error) {
	bodyBytes, contentType, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	var rc io.ReadCloser
	err = t.retry.run(ctx, func() error {
		resp, err := t.send(ctx, t.stream, method, path, query, bodyBytes, contentType, nil)
		if err != nil {
			return err
		}
		rc = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// Blob implements [domain.Transport].
func (t *Transport) Blob(ctx context.Context, method, path, contentType, ifMatch string, content io.Reader, out any) error {
	headers := http.Header{}
	if ifMatch != "" {
		headers.Set("If-Match", ifMatch)
	}

	run := func() error {
		resp, err := t.send(ctx, t.client, method, path, nil, nil, contentType, headers.Clone())
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		var raw any
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return domain.ErrDecode{Source: resp.Body, Target: out}
		}
		return t.decoder.Decode(raw, out)
	}

	if content == nil {
		return t.retry.run(ctx, run)
	}

	// a consumed stream cannot be rewound, so uploads get one attempt
	resp, err := t.sendReader(ctx, method, path, contentType, headers, content)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.ErrDecode{Source: resp.Body, Target: out}
	}
	return t.decoder.Decode(raw, out)
}

// Exists implements [domain.Transport].
func (t *Transport) Exists(ctx context.Context, path string) (bool, error) {
	var found bool
	err := t.retry.run(ctx, func() error {
		resp, err := t.send(ctx, t.client, http.MethodHead, path, nil, nil, "", nil)
		if err != nil {
			if isNotFound(err) {
				found = false
				return nil
			}
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// send executes one request, attaching the session cookie and mapping
// failures. A 401 triggers exactly one synchronized re-authentication.
func (t *Transport) send(ctx context.Context, client *http.Client, method, path string, query url.Values, body []byte, contentType string, headers http.Header) (*http.Response, error) {
	resp, gen, err := t.once(ctx, client, method, path, query, body, contentType, headers)
	if err == nil || t.auth == nil || !isUnauthorized(err) {
		return resp, err
	}
	t.auth.Invalidate(gen)
	resp, _, err = t.once(ctx, client, method, path, query, body, contentType, headers)
	return resp, err
}

func (t *Transport) once(ctx context.Context, client *http.Client, method, path string, query url.Values, body []byte, contentType string, headers http.Header) (*http.Response, uint64, error) {
	req, gen, err := t.request(ctx, method, path, query, contentType, headers)
	if err != nil {
		return nil, gen, err
	}
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, gen, domain.ErrTransport{Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, gen, nil
	}
	defer resp.Body.Close()
	return nil, gen, classify(resp)
}

func (t *Transport) sendReader(ctx context.Context, method, path, contentType string, headers http.Header, content io.Reader) (*http.Response, error) {
	req, gen, err := t.request(ctx, method, path, nil, contentType, headers)
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(content)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, domain.ErrTransport{Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	err = classify(resp)
	if t.auth != nil && isUnauthorized(err) {
		t.auth.Invalidate(gen)
	}
	return nil, err
}

func (t *Transport) request(ctx context.Context, method, path string, query url.Values, contentType string, headers http.Header) (*http.Request, uint64, error) {
	full := strings.TrimSuffix(t.endpoint.String(), "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return nil, 0, domain.ErrTransport{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	var gen uint64
	if t.auth != nil {
		cookie, g, err := t.auth.Token(ctx)
		if err != nil {
			return nil, 0, err
		}
		gen = g
		req.AddCookie(cookie)
	}
	return req, gen, nil
}

func marshalBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "application/json", nil
	case json.RawMessage:
		return b, "application/json", nil
	case string:
		return []byte(b), "application/json", nil
	default:
		raw, err := structure.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return raw, "application/json", nil
	}
}
