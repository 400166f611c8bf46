// Package changes contains the changes feed engine. It executes normal,
// long-poll and continuous feeds, negotiates server-side filters and parses
// the newline-delimited continuous stream into typed events handed to the
// consumer one at a time.
package changes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vinicius-lino-figueiredo/mango/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// Engine executes changes feeds for one database.
type Engine struct {
	transport domain.Transport
	compiler  domain.Compiler
	decoder   domain.Decoder
	qctx      domain.QueryContext
	heartbeat time.Duration
}

// NewEngine returns an engine bound to the given query context.
func NewEngine(qctx domain.QueryContext, options ...Option) *Engine {
	e := &Engine{qctx: qctx}
	for _, option := range options {
		option(e)
	}
	if e.decoder == nil {
		e.decoder = decoder.NewDecoder()
	}
	return e
}

// Option configures engine behavior through the functional options pattern.
type Option func(*Engine)

// WithTransport sets the request transport.
func WithTransport(t domain.Transport) Option {
	return func(e *Engine) {
		e.transport = t
	}
}

// WithCompiler sets the compiler used for selector filters.
func WithCompiler(c domain.Compiler) Option {
	return func(e *Engine) {
		e.compiler = c
	}
}

// WithDecoder sets the event decoder.
func WithDecoder(d domain.Decoder) Option {
	return func(e *Engine) {
		e.decoder = d
	}
}

// WithDefaultHeartbeat sets the heartbeat applied to continuous feeds that
// do not specify one.
func WithDefaultHeartbeat(d time.Duration) Option {
	return func(e *Engine) {
		e.heartbeat = d
	}
}

// Run executes a normal or long-poll feed and returns the whole payload.
func (e *Engine) Run(ctx context.Context, options ...domain.ChangesOption) (*domain.ChangesResult, error) {
	opts := apply(options)
	method, query, body, err := e.negotiate(opts, false)
	if err != nil {
		return nil, err
	}
	var res domain.ChangesResult
	path := e.qctx.EscapedName + "/_changes"
	if err := e.transport.JSON(ctx, method, path, query, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Continuous opens a continuous feed. Events are produced one at a time as
// the consumer calls [domain.Feed.Next]; cancel ctx or close the feed to
// terminate it.
func (e *Engine) Continuous(ctx context.Context, options ...domain.ChangesOption) (domain.Feed, error) {
	opts := apply(options)
	method, query, body, err := e.negotiate(opts, true)
	if err != nil {
		return nil, err
	}
	path := e.qctx.EscapedName + "/_changes"
	rc, err := e.transport.Stream(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	return newFeed(ctx, rc, e.decoder), nil
}

func apply(options []domain.ChangesOption) domain.ChangesOptions {
	var opts domain.ChangesOptions
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// negotiate maps the options onto HTTP method, query parameters and an
// optional POST body.
func (e *Engine) negotiate(opts domain.ChangesOptions, continuous bool) (string, url.Values, any, error) {
	query := url.Values{}
	method := http.MethodGet

	if continuous {
		query.Set("feed", "continuous")
		heartbeat := opts.Heartbeat
		if heartbeat == 0 {
			heartbeat = e.heartbeat
		}
		if heartbeat > 0 {
			query.Set("heartbeat", strconv.FormatInt(heartbeat.Milliseconds(), 10))
		}
	} else if opts.LongPoll {
		query.Set("feed", "longpoll")
		if opts.Timeout > 0 {
			query.Set("timeout", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
		}
	}

	if opts.Since != "" {
		query.Set("since", opts.Since)
	}
	if opts.IncludeDocs {
		query.Set("include_docs", "true")
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.FormatInt(opts.Limit, 10))
	}
	if opts.Descending {
		query.Set("descending", "true")
	}
	if opts.Conflicts {
		query.Set("conflicts", "true")
	}
	if opts.Attachments {
		query.Set("attachments", "true")
	}
	if opts.AttEncodingInfo {
		query.Set("att_encoding_info", "true")
	}
	if opts.AllDocsStyle {
		query.Set("style", "all_docs")
	}

	var body any
	switch f := opts.Filter.(type) {
	case nil:
	case domain.SelectorFilter:
		if _, ok := f.Query.(expression.Query); ok {
			return "", nil, nil, domain.ErrUnsupportedQuery{
				Reason: "changes filter takes a predicate, not a pipeline",
			}
		}
		compiled, err := e.compiler.Compile(f.Query)
		if err != nil {
			return "", nil, nil, err
		}
		query.Set("filter", "_selector")
		method = http.MethodPost
		body = compiled
	case domain.DocumentIDsFilter:
		query.Set("filter", "_doc_ids")
		method = http.MethodPost
		body = map[string]any{"doc_ids": f.IDs}
	case domain.ViewFilter:
		query.Set("filter", "_view")
		query.Set("view", f.View)
	case domain.DesignFilter:
		query.Set("filter", "_design")
	case domain.NamedFilter:
		query.Set("filter", f.Name)
	default:
		return "", nil, nil, domain.ErrUnsupportedQuery{
			Reason: fmt.Sprintf("unknown changes filter %T", opts.Filter),
		}
	}

	return method, query, body, nil
}
