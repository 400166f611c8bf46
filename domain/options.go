package domain

import (
	"net/http"
	"time"
)

// Auth holds cookie-authentication parameters.
type Auth struct {
	// Name is the user name sent to the session endpoint.
	Name string
	// Password is the user password sent to the session endpoint.
	Password string
	// TokenDuration is how long an issued cookie is trusted before the
	// client re-authenticates. Defaults to ten minutes.
	TokenDuration time.Duration
}

// ClientOptions contains parameters for constructing a client.
type ClientOptions struct {
	// Endpoint is the base URL of the server.
	Endpoint string
	// Auth enables cookie authentication when non-nil.
	Auth *Auth
	// CaseStyle converts member names lacking an override.
	CaseStyle CaseStyle
	// Overrides replaces individual member wire names, keyed by the
	// member name as written in the expression.
	Overrides map[string]string
	// ArrayIndexing selects the array index notation for wire paths.
	ArrayIndexing ArrayIndexing
	// QueryCacheSize bounds the translation cache. Defaults to 256.
	QueryCacheSize int
	// FindTimeout is the per-query deadline. Zero means no deadline
	// beyond the context's.
	FindTimeout time.Duration
	// ChangesHeartbeat is the default heartbeat for continuous feeds.
	ChangesHeartbeat time.Duration
	// IDPrefix, when set, rejects writes of documents whose ID does not
	// start with it.
	IDPrefix string
	// HTTPClient overrides the shared HTTP client.
	HTTPClient *http.Client
	// Decoder overrides the response decoder.
	Decoder Decoder
	// IDGenerator overrides the generator for new document IDs.
	IDGenerator IDGenerator
}

// ClientOption configures client behavior through the functional options
// pattern.
type ClientOption func(*ClientOptions)

// WithEndpoint sets the base URL of the server.
func WithEndpoint(e string) ClientOption {
	return func(co *ClientOptions) {
		co.Endpoint = e
	}
}

// WithAuth enables cookie authentication with the given credentials.
func WithAuth(name, password string) ClientOption {
	return func(co *ClientOptions) {
		co.Auth = &Auth{Name: name, Password: password}
	}
}

// WithTokenDuration sets how long an issued session cookie is trusted.
func WithTokenDuration(d time.Duration) ClientOption {
	return func(co *ClientOptions) {
		if co.Auth == nil {
			co.Auth = &Auth{}
		}
		co.Auth.TokenDuration = d
	}
}

// WithCaseStyle sets the case conversion applied to member names lacking an
// override.
func WithCaseStyle(cs CaseStyle) ClientOption {
	return func(co *ClientOptions) {
		co.CaseStyle = cs
	}
}

// WithOverrides replaces individual member wire names.
func WithOverrides(o map[string]string) ClientOption {
	return func(co *ClientOptions) {
		co.Overrides = o
	}
}

// WithArrayIndexing selects the array index notation for wire paths.
func WithArrayIndexing(ai ArrayIndexing) ClientOption {
	return func(co *ClientOptions) {
		co.ArrayIndexing = ai
	}
}

// WithQueryCacheSize bounds the translation cache.
func WithQueryCacheSize(n int) ClientOption {
	return func(co *ClientOptions) {
		co.QueryCacheSize = n
	}
}

// WithFindTimeout sets the per-query deadline.
func WithFindTimeout(d time.Duration) ClientOption {
	return func(co *ClientOptions) {
		co.FindTimeout = d
	}
}

// WithChangesHeartbeat sets the default heartbeat for continuous feeds.
func WithChangesHeartbeat(d time.Duration) ClientOption {
	return func(co *ClientOptions) {
		co.ChangesHeartbeat = d
	}
}

// WithIDPrefix rejects writes of documents whose ID does not start with the
// given prefix.
func WithIDPrefix(p string) ClientOption {
	return func(co *ClientOptions) {
		co.IDPrefix = p
	}
}

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(co *ClientOptions) {
		co.HTTPClient = c
	}
}

// WithDecoder overrides the response decoder.
func WithDecoder(d Decoder) ClientOption {
	return func(co *ClientOptions) {
		co.Decoder = d
	}
}

// WithIDGenerator overrides the generator for new document IDs.
func WithIDGenerator(g IDGenerator) ClientOption {
	return func(co *ClientOptions) {
		co.IDGenerator = g
	}
}

// ChangesOptions contains parameters for customizing a changes feed.
type ChangesOptions struct {
	// Since resumes the feed after the given sequence token. The value
	// "now" means the current moment.
	Since string
	// IncludeDocs embeds the full document in each event.
	IncludeDocs bool
	// Limit caps the number of events before termination. Zero means no
	// cap.
	Limit int64
	// Descending reverses the event order.
	Descending bool
	// Heartbeat is the server-side keepalive period for continuous
	// feeds.
	Heartbeat time.Duration
	// Timeout is the long-poll maximum wait.
	Timeout time.Duration
	// LongPoll blocks a normal feed until the first change or Timeout.
	LongPoll bool
	// Conflicts includes conflicting revisions in events.
	Conflicts bool
	// Attachments includes attachment bodies in embedded documents.
	Attachments bool
	// AttEncodingInfo includes attachment encoding metadata.
	AttEncodingInfo bool
	// AllDocsStyle requests the full revision history per event.
	AllDocsStyle bool
	// Filter narrows the feed. Accepted values are [SelectorFilter],
	// [DocumentIDsFilter], [ViewFilter], [DesignFilter] and
	// [NamedFilter].
	Filter any
}

// ChangesOption configures a changes feed through the functional options
// pattern.
type ChangesOption func(*ChangesOptions)

// WithSince resumes the feed after the given sequence token.
func WithSince(s string) ChangesOption {
	return func(o *ChangesOptions) {
		o.Since = s
	}
}

// WithIncludeDocs embeds the full document in each event.
func WithIncludeDocs(b bool) ChangesOption {
	return func(o *ChangesOptions) {
		o.IncludeDocs = b
	}
}

// WithChangesLimit caps the number of events before termination.
func WithChangesLimit(l int64) ChangesOption {
	return func(o *ChangesOptions) {
		o.Limit = l
	}
}

// WithDescending reverses the event order.
func WithDescending(b bool) ChangesOption {
	return func(o *ChangesOptions) {
		o.Descending = b
	}
}

// WithHeartbeat sets the server-side keepalive period for continuous feeds.
func WithHeartbeat(d time.Duration) ChangesOption {
	return func(o *ChangesOptions) {
		o.Heartbeat = d
	}
}

// WithLongPoll blocks the feed until the first change or the given timeout.
func WithLongPoll(timeout time.Duration) ChangesOption {
	return func(o *ChangesOptions) {
		o.LongPoll = true
		o.Timeout = timeout
	}
}

// WithConflicts includes conflicting revisions in events.
func WithConflicts(b bool) ChangesOption {
	return func(o *ChangesOptions) {
		o.Conflicts = b
	}
}

// WithAttachments includes attachment bodies in embedded documents.
func WithAttachments(b bool) ChangesOption {
	return func(o *ChangesOptions) {
		o.Attachments = b
	}
}

// WithAttEncodingInfo includes attachment encoding metadata.
func WithAttEncodingInfo(b bool) ChangesOption {
	return func(o *ChangesOptions) {
		o.AttEncodingInfo = b
	}
}

// WithAllDocsStyle requests the full revision history per event.
func WithAllDocsStyle(b bool) ChangesOption {
	return func(o *ChangesOptions) {
		o.AllDocsStyle = b
	}
}

// WithFilter narrows the feed with one of the filter types.
func WithFilter(f any) ChangesOption {
	return func(o *ChangesOptions) {
		o.Filter = f
	}
}
