// Package mango provides a client for CouchDB-compatible servers speaking
// the Mango JSON query language.
//
// Queries are composed as typed expression trees and translated into Mango
// documents before being posted to the server's find endpoint:
//
//	people := []Person{}
//	q := mango.NewQuery().
//		Where(mango.F("Age").Ge(18).And(mango.F("Name").Eq("Luke"))).
//		OrderBy(mango.F("Age"))
//	result, err := db.Query(ctx, q, &people)
//
// The changes feed is consumed as a cancellable sequence of typed events:
//
//	feed, err := db.ContinuousChanges(ctx, mango.WithSince("now"))
//	for feed.Next() {
//		event := feed.Event()
//		...
//	}
//
// The basic usage starts with creating a new [Client] instance, which can
// be done by calling [NewClient].
package mango

import (
	"net/http"
	"time"

	"github.com/vinicius-lino-figueiredo/mango/adapter/client"
	"github.com/vinicius-lino-figueiredo/mango/adapter/document"
	"github.com/vinicius-lino-figueiredo/mango/adapter/expression"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

var (
	// ErrUnauthorized is returned on a 401 response after the single
	// re-authentication attempt also failed.
	ErrUnauthorized = domain.ErrUnauthorized
	// ErrForbidden is returned on a 403 response.
	ErrForbidden = domain.ErrForbidden
	// ErrNotFound is returned on a 404 response for operations whose
	// semantics require the resource to exist.
	ErrNotFound = domain.ErrNotFound
	// ErrConflict is returned on a 409 response, usually meaning the
	// submitted revision is stale.
	ErrConflict = domain.ErrConflict
	// ErrPreconditionFailed is returned on a 412 response.
	ErrPreconditionFailed = domain.ErrPreconditionFailed
	// ErrFeedClosed is returned when operating on a closed [Feed].
	ErrFeedClosed = domain.ErrFeedClosed
	// ErrScanBeforeNext is returned when calling [Feed.Scan] before
	// calling [Feed.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrTargetNil is returned when a decode target is nil.
	ErrTargetNil = domain.ErrTargetNil
)

// ErrUnsupportedQuery is returned when a query expression cannot be
// represented as a Mango query. It is raised locally, before any request is
// sent.
type ErrUnsupportedQuery = domain.ErrUnsupportedQuery

// ErrServer represents a 5xx response.
type ErrServer = domain.ErrServer

// ErrTransport wraps a network-level failure.
type ErrTransport = domain.ErrTransport

// ErrDecode wraps a JSON parse or shape mismatch while reading a response.
type ErrDecode = domain.ErrDecode

// ErrRemote carries the raw server error payload alongside the mapped
// sentinel kind.
type ErrRemote = domain.ErrRemote

// Client is a connection to a server. It owns the shared HTTP transport,
// the session cookie and the per-client query settings.
type Client = domain.Client

// Database is a handle to one database on the server.
type Database = domain.Database

// Feed provides iteration over a continuous changes feed.
type Feed = domain.Feed

// Document is the interface of values carrying server-assigned identity.
// User structs obtain it by embedding [Doc].
type Document = domain.Document

// Doc is the embeddable document carrier.
type Doc = document.Document

// Attachment represents a named binary blob associated with a document.
type Attachment = domain.Attachment

// AttachmentSet holds a document's attachment entries.
type AttachmentSet = domain.AttachmentSet

// ChangesEvent represents a single row of the changes feed.
type ChangesEvent = domain.ChangesEvent

// ChangesResult is the payload of a normal or long-poll changes feed.
type ChangesResult = domain.ChangesResult

// BulkResult is one entry of a bulk write response.
type BulkResult = domain.BulkResult

// QueryResult carries the non-row parts of a query response.
type QueryResult = domain.QueryResult

// QueryContext identifies the database a query runs against.
type QueryContext = domain.QueryContext

// CacheStats reports translation cache effectiveness.
type CacheStats = domain.CacheStats

// CaseStyle selects how member names are converted to wire field names.
type CaseStyle = domain.CaseStyle

// Supported case styles.
const (
	CaseAsIs  = domain.CaseAsIs
	CaseLower = domain.CaseLower
	CaseCamel = domain.CaseCamel
	CaseSnake = domain.CaseSnake
	CaseKebab = domain.CaseKebab
)

// ArrayIndexing selects the notation used for array index segments.
type ArrayIndexing = domain.ArrayIndexing

// Supported array index notations.
const (
	IndexDot     = domain.IndexDot
	IndexBracket = domain.IndexBracket
)

// SelectorFilter narrows a changes feed to documents matching a query
// expression.
type SelectorFilter = domain.SelectorFilter

// DocumentIDsFilter narrows a changes feed to an explicit set of document
// IDs.
type DocumentIDsFilter = domain.DocumentIDsFilter

// ViewFilter narrows a changes feed to documents matched by a view's map
// function.
type ViewFilter = domain.ViewFilter

// DesignFilter narrows a changes feed to design documents only.
type DesignFilter = domain.DesignFilter

// NamedFilter selects a server-side filter function by "ddoc/name".
type NamedFilter = domain.NamedFilter

// Query is an immutable query pipeline builder.
type Query = expression.Query

// Predicate is a composable boolean expression over document fields.
type Predicate = expression.Predicate

// FieldRef is a builder over a field access chain.
type FieldRef = expression.FieldRef

// NewClient creates a new client with the provided configuration options:
//
// - [WithEndpoint]: sets the base URL of the server (required).
//
// - [WithAuth]: enables cookie authentication.
//
// - [WithTokenDuration]: sets how long an issued session cookie is trusted.
//
// - [WithCaseStyle]: sets the member name case conversion.
//
// - [WithOverrides]: replaces individual member wire names.
//
// - [WithArrayIndexing]: selects the array index notation.
//
// - [WithQueryCacheSize]: bounds the translation cache.
//
// - [WithFindTimeout]: sets the per-query deadline.
//
// - [WithChangesHeartbeat]: sets the default continuous feed heartbeat.
//
// - [WithIDPrefix]: enforces a document ID prefix on writes.
//
// - [WithHTTPClient]: overrides the shared HTTP client.
//
// - [WithDecoder]: overrides the response decoder.
//
// - [WithIDGenerator]: overrides the generator for new document IDs.
func NewClient(options ...ClientOption) (Client, error) {
	return client.NewClient(options...)
}

// NewQuery returns the empty query pipeline.
func NewQuery() Query {
	return expression.NewQuery()
}

// F starts a field reference for the given member name.
func F(name string, nested ...string) FieldRef {
	return expression.F(name, nested...)
}

// Elem references the array element itself inside an Any or All predicate.
func Elem() FieldRef {
	return expression.Elem()
}

// And combines predicates conjunctively.
func And(ps ...Predicate) Predicate {
	return expression.And(ps...)
}

// Or combines predicates disjunctively.
func Or(ps ...Predicate) Predicate {
	return expression.Or(ps...)
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return expression.Not(p)
}

// NewDoc returns an embeddable document carrier with the given ID. An empty
// ID is assigned by the client on the first write.
func NewDoc(id string) Doc {
	return document.New(id)
}

// ClientOption configures client behavior through the functional options
// pattern.
type ClientOption = domain.ClientOption

// WithEndpoint sets the base URL of the server.
func WithEndpoint(e string) ClientOption {
	return domain.WithEndpoint(e)
}

// WithAuth enables cookie authentication with the given credentials.
func WithAuth(name, password string) ClientOption {
	return domain.WithAuth(name, password)
}

// WithTokenDuration sets how long an issued session cookie is trusted.
func WithTokenDuration(d time.Duration) ClientOption {
	return domain.WithTokenDuration(d)
}

// WithCaseStyle sets the case conversion applied to member names lacking an
// override.
func WithCaseStyle(cs CaseStyle) ClientOption {
	return domain.WithCaseStyle(cs)
}

// WithOverrides replaces individual member wire names.
func WithOverrides(o map[string]string) ClientOption {
	return domain.WithOverrides(o)
}

// WithArrayIndexing selects the array index notation for wire paths.
func WithArrayIndexing(ai ArrayIndexing) ClientOption {
	return domain.WithArrayIndexing(ai)
}

// WithQueryCacheSize bounds the translation cache.
func WithQueryCacheSize(n int) ClientOption {
	return domain.WithQueryCacheSize(n)
}

// WithFindTimeout sets the per-query deadline.
func WithFindTimeout(d time.Duration) ClientOption {
	return domain.WithFindTimeout(d)
}

// WithChangesHeartbeat sets the default heartbeat for continuous feeds.
func WithChangesHeartbeat(d time.Duration) ClientOption {
	return domain.WithChangesHeartbeat(d)
}

// WithIDPrefix rejects writes of documents whose ID does not start with the
// given prefix.
func WithIDPrefix(p string) ClientOption {
	return domain.WithIDPrefix(p)
}

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return domain.WithHTTPClient(c)
}

// WithDecoder overrides the response decoder.
func WithDecoder(d domain.Decoder) ClientOption {
	return domain.WithDecoder(d)
}

// WithIDGenerator overrides the generator for new document IDs.
func WithIDGenerator(g domain.IDGenerator) ClientOption {
	return domain.WithIDGenerator(g)
}

// ChangesOption configures a changes feed through the functional options
// pattern.
type ChangesOption = domain.ChangesOption

// WithSince resumes the feed after the given sequence token. The value
// "now" means the current moment.
func WithSince(s string) ChangesOption {
	return domain.WithSince(s)
}

// WithIncludeDocs embeds the full document in each event.
func WithIncludeDocs(b bool) ChangesOption {
	return domain.WithIncludeDocs(b)
}

// WithChangesLimit caps the number of events before termination.
func WithChangesLimit(l int64) ChangesOption {
	return domain.WithChangesLimit(l)
}

// WithDescending reverses the event order.
func WithDescending(b bool) ChangesOption {
	return domain.WithDescending(b)
}

// WithHeartbeat sets the server-side keepalive period for continuous feeds.
func WithHeartbeat(d time.Duration) ChangesOption {
	return domain.WithHeartbeat(d)
}

// WithLongPoll blocks the feed until the first change or the given timeout.
func WithLongPoll(timeout time.Duration) ChangesOption {
	return domain.WithLongPoll(timeout)
}

// WithConflicts includes conflicting revisions in events.
func WithConflicts(b bool) ChangesOption {
	return domain.WithConflicts(b)
}

// WithAttachments includes attachment bodies in embedded documents.
func WithAttachments(b bool) ChangesOption {
	return domain.WithAttachments(b)
}

// WithAttEncodingInfo includes attachment encoding metadata.
func WithAttEncodingInfo(b bool) ChangesOption {
	return domain.WithAttEncodingInfo(b)
}

// WithAllDocsStyle requests the full revision history per event.
func WithAllDocsStyle(b bool) ChangesOption {
	return domain.WithAllDocsStyle(b)
}

// WithFilter narrows the feed with one of the filter types.
func WithFilter(f any) ChangesOption {
	return domain.WithFilter(f)
}
