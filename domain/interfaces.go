// Package domain contains domain-specific interfaces, entities and option
// types for the Mango client.
//
// This package defines the core contracts that must be implemented by
// adapters, as well as functional options for configuring clients, queries
// and changes feeds.
package domain

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Optimizer normalizes a query expression into its canonical form. The
// accepted expression forms are the ones produced by the expression builder;
// other values fail with [ErrUnsupportedQuery].
type Optimizer interface {
	// Optimize rewrites the expression to a fixed point and returns the
	// canonical equivalent.
	Optimize(query any) (any, error)
}

// Translator renders a canonical query expression into a Mango JSON
// document. Translation is deterministic: the same expression always
// produces byte-identical output.
type Translator interface {
	// Translate returns the Mango request body for the expression.
	Translate(query any) ([]byte, error)
}

// Compiler orchestrates optimization and translation, caching results keyed
// by the expression's structural fingerprint.
type Compiler interface {
	// Compile returns the Mango request body for the expression, served
	// from the cache when an equivalent expression was seen before.
	Compile(query any) ([]byte, error)
	// Stats reports cache effectiveness counters.
	Stats() CacheStats
}

// PathResolver maps an expression field path to the dotted JSON path used on
// the wire, honoring per-member overrides and the case policy.
type PathResolver interface {
	// Resolve returns the wire path for the given segments.
	Resolve(segments ...Segment) (string, error)
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(source any, target any) error
}

// IDGenerator creates unique IDs for new documents that reach the write path
// without one.
type IDGenerator interface {
	// GenerateID returns a new unique document ID.
	GenerateID() (string, error)
}

// Authenticator provides the session cookie attached to requests. A nil
// Authenticator means anonymous access.
type Authenticator interface {
	// Token returns a valid session cookie and its generation counter,
	// refreshing the session when expired.
	Token(ctx context.Context) (*http.Cookie, uint64, error)
	// Invalidate discards the cookie of the given generation. A stale
	// generation is ignored, so concurrent callers trigger at most one
	// refresh.
	Invalidate(generation uint64)
}

// Transport executes server requests with cookie authentication, retry and
// error mapping applied. Paths are given relative to the endpoint and must
// already be percent-escaped.
type Transport interface {
	// JSON executes a request with an optional JSON body and decodes the
	// 2xx response body into out. Non-2xx responses are mapped to the
	// error taxonomy. A nil out discards the response body.
	JSON(ctx context.Context, method, path string, query url.Values, body any, out any) error
	// Stream executes a request and returns the undecoded response body.
	// The read deadline is unbounded; cancel ctx to abort the read. The
	// caller must close the returned reader.
	Stream(ctx context.Context, method, path string, query url.Values, body any) (io.ReadCloser, error)
	// Blob executes an attachment upload or delete. content may be nil
	// for deletes; ifMatch carries the document revision. The 2xx
	// response body is decoded into out when non-nil.
	Blob(ctx context.Context, method, path, contentType, ifMatch string, content io.Reader, out any) error
	// Exists issues a HEAD request and reports whether the resource is
	// there.
	Exists(ctx context.Context, path string) (bool, error)
}

// Document represents the client-side carrier of server-assigned identity.
// Implementations are typically user structs embedding the default document
// type. The authoritative copy of a document lives on the server; the client
// copy is ephemeral.
type Document interface {
	// DocumentID returns the document ID, or an empty string before the
	// first server round-trip.
	DocumentID() string
	// SetDocumentID sets the document ID.
	SetDocumentID(id string)
	// DocumentRev returns the latest known revision.
	DocumentRev() string
	// SetDocumentRev records a server-assigned revision.
	SetDocumentRev(rev string)
	// AttachmentSet returns the document's attachment entries.
	AttachmentSet() *AttachmentSet
}

// Feed provides iteration over a changes feed. It follows the cursor
// contract: Next advances, Scan decodes the current event, Err reports the
// terminal error and Close releases the underlying stream. Events are handed
// over one at a time; the producer does not run ahead of the consumer.
type Feed interface {
	// Next blocks until the next event is available, returning false on
	// EOF, cancellation or error.
	Next() bool
	// Scan decodes the current event into target. A *ChangesEvent receives
	// the whole event; any other target receives the event's embedded
	// document.
	Scan(ctx context.Context, target any) error
	// Event returns the current event.
	Event() ChangesEvent
	// Err returns the error that terminated iteration, if any.
	Err() error
	// Close cancels the feed and releases its stream.
	Close() error
	// LastSeq returns the terminal sequence token, available after Next
	// has returned false.
	LastSeq() string
	// Pending returns the terminal pending count, available after Next
	// has returned false.
	Pending() int64
}

// Database is a handle to one database on the server. Handles are safe for
// concurrent use; the documents passed to them are caller-owned and must not
// be mutated concurrently.
type Database interface {
	// Context returns the immutable query context of the handle.
	Context() QueryContext

	// Find fetches a document by ID and decodes it into target. A clean
	// 404 leaves target untouched and returns (false, nil); Find is the
	// only operation with this mapping.
	Find(ctx context.Context, id string, target any) (bool, error)

	// Exists reports whether a document with the given ID exists.
	Exists(ctx context.Context, id string) (bool, error)

	// Save writes the documents in one bulk request, distributes the
	// returned IDs and revisions positionally, then synchronizes each
	// document's attachment entries.
	Save(ctx context.Context, docs ...Document) ([]BulkResult, error)

	// Delete removes the document using its current revision.
	Delete(ctx context.Context, doc Document) error

	// BulkGet fetches multiple documents by ID in one request and decodes
	// them into target, which must be a pointer to a slice.
	BulkGet(ctx context.Context, ids []string, target any) error

	// Query executes a Mango query and decodes the matching documents
	// into target, which must be a pointer to a slice. The query may be
	// an expression built with the expression package, a raw JSON string
	// or []byte, or a map.
	Query(ctx context.Context, query any, target any) (*QueryResult, error)

	// Changes executes a normal or long-poll changes feed and returns the
	// whole payload.
	Changes(ctx context.Context, options ...ChangesOption) (*ChangesResult, error)

	// ContinuousChanges opens a continuous changes feed. The feed blocks
	// for as long as the server keeps the stream open; cancel ctx or call
	// Close to terminate it.
	ContinuousChanges(ctx context.Context, options ...ChangesOption) (Feed, error)

	// Attachment streams an attachment's content. The caller must close
	// the reader.
	Attachment(ctx context.Context, docID, name string) (io.ReadCloser, error)
}

// QueryResult carries the non-row parts of a query response.
type QueryResult struct {
	// Bookmark is the continuation token for the next page.
	Bookmark string
	// Warning is the server's index-use warning, if any.
	Warning string
	// Stats holds execution statistics when the query asked for them.
	Stats *ExecutionStats
}

// Client is a connection to a server. It owns the shared HTTP transport, the
// session cookie and the per-client query settings.
type Client interface {
	// Database returns a handle to the named database.
	Database(name string) (Database, error)
	// CacheStats reports the translation cache counters.
	CacheStats() CacheStats
	// Close releases client-owned resources. Open feeds keep working
	// until closed individually.
	Close() error
}
