// Package client contains the default [domain.Client] and [domain.Database]
// implementations, wiring the expression compiler, the query sender, the
// changes feed engine and the attachment write path onto one shared
// transport.
package client

import (
	"errors"
	"net/url"

	"github.com/panjf2000/ants/v2"
	"github.com/vinicius-lino-figueiredo/mango/adapter/auth"
	"github.com/vinicius-lino-figueiredo/mango/adapter/changes"
	"github.com/vinicius-lino-figueiredo/mango/adapter/compiler"
	"github.com/vinicius-lino-figueiredo/mango/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/mango/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/mango/adapter/resolver"
	"github.com/vinicius-lino-figueiredo/mango/adapter/sender"
	"github.com/vinicius-lino-figueiredo/mango/adapter/translator"
	"github.com/vinicius-lino-figueiredo/mango/adapter/transport"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

var (
	// ErrNoEndpoint is returned when a client is constructed without an
	// endpoint.
	ErrNoEndpoint = errors.New("endpoint is required")
	// ErrNoDatabaseName is returned when a database handle is requested
	// with an empty name.
	ErrNoDatabaseName = errors.New("database name is required")
)

// attachmentWorkers bounds the pool used to synchronize attachments of
// different documents concurrently during bulk writes.
const attachmentWorkers = 8

// Client implements [domain.Client].
type Client struct {
	endpoint  *url.URL
	opts      domain.ClientOptions
	transport domain.Transport
	compiler  domain.Compiler
	decoder   domain.Decoder
	idgen     domain.IDGenerator
	pool      *ants.Pool
}

// NewClient returns a new implementation of [domain.Client].
func NewClient(options ...domain.ClientOption) (domain.Client, error) {
	var opts domain.ClientOptions
	for _, option := range options {
		option(&opts)
	}
	if opts.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint: endpoint,
		opts:     opts,
		decoder:  opts.Decoder,
		idgen:    opts.IDGenerator,
	}
	if c.decoder == nil {
		c.decoder = decoder.NewDecoder()
	}
	if c.idgen == nil {
		c.idgen = idgenerator.NewIDGenerator()
	}

	pathResolver := resolver.NewResolver(
		resolver.WithCaseStyle(opts.CaseStyle),
		resolver.WithArrayIndexing(opts.ArrayIndexing),
		resolver.WithOverrides(opts.Overrides),
	)
	c.compiler, err = compiler.NewCompiler(
		compiler.WithTranslator(translator.NewTranslator(
			translator.WithPathResolver(pathResolver),
		)),
		compiler.WithCacheSize(opts.QueryCacheSize),
	)
	if err != nil {
		return nil, err
	}

	transportOptions := []transport.Option{
		transport.WithDecoder(c.decoder),
	}
	if opts.HTTPClient != nil {
		transportOptions = append(transportOptions, transport.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Auth != nil {
		sessionOptions := []auth.Option{}
		if opts.HTTPClient != nil {
			sessionOptions = append(sessionOptions, auth.WithHTTPClient(opts.HTTPClient))
		}
		transportOptions = append(transportOptions, transport.WithAuthenticator(
			auth.NewSession(endpoint, *opts.Auth, sessionOptions...),
		))
	}
	c.transport = transport.NewTransport(endpoint, transportOptions...)

	c.pool, err = ants.NewPool(attachmentWorkers)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Database implements [domain.Client].
func (c *Client) Database(name string) (domain.Database, error) {
	if name == "" {
		return nil, ErrNoDatabaseName
	}
	qctx := domain.QueryContext{
		Endpoint:    c.endpoint,
		Name:        name,
		EscapedName: transport.EscapeDatabase(name),
	}
	return &database{
		client: c,
		qctx:   qctx,
		sender: sender.NewSender(qctx,
			sender.WithTransport(c.transport),
			sender.WithDecoder(c.decoder),
		),
		changes: changes.NewEngine(qctx,
			changes.WithTransport(c.transport),
			changes.WithCompiler(c.compiler),
			changes.WithDecoder(c.decoder),
			changes.WithDefaultHeartbeat(c.opts.ChangesHeartbeat),
		),
	}, nil
}

// CacheStats implements [domain.Client].
func (c *Client) CacheStats() domain.CacheStats {
	return c.compiler.Stats()
}

// Close implements [domain.Client].
func (c *Client) Close() error {
	c.pool.Release()
	return nil
}
