package domain

import "net/url"

// AttachmentState tracks the lifecycle of a single attachment entry between
// client and server.
type AttachmentState uint8

// Attachment states. Clean entries mirror the server copy; Added and Modified
// entries carry local content waiting to be uploaded; Deleted entries are
// retained in the set until the server confirms the deletion.
const (
	AttachmentClean AttachmentState = iota
	AttachmentAdded
	AttachmentModified
	AttachmentDeleted
)

// Attachment represents a named binary blob associated with a document. A
// Clean attachment always carries the server-reported digest and length. An
// Added or Modified attachment must carry either a local file path or inline
// content.
type Attachment struct {
	// Name is the attachment name, unique within a document.
	Name string
	// ContentType is the MIME type sent on upload and reported on fetch.
	ContentType string
	// Digest is the server-computed content digest, set for Clean entries.
	Digest string
	// Length is the content length in bytes, set for Clean entries.
	Length int64
	// LocalPath points at a local file holding the content to upload.
	LocalPath string
	// Content holds inline bytes to upload when no LocalPath is set.
	Content []byte
	// URI is the server address of the attachment, filled after hydration.
	URI string
	// DocumentID is the owning document ID, filled after hydration.
	DocumentID string
	// DocumentRev is the owning document revision, filled after hydration.
	DocumentRev string
	// State is the current lifecycle state of the entry.
	State AttachmentState
}

// ChangeRev carries one revision entry of a changes-feed event.
type ChangeRev struct {
	Rev string `mango:"rev"`
}

// ChangesEvent represents a single row of the changes feed.
type ChangesEvent struct {
	// Seq is the server-assigned sequence token of the event.
	Seq string `mango:"seq"`
	// ID is the document the event refers to.
	ID string `mango:"id"`
	// Changes lists the leaf revisions touched by the event.
	Changes []ChangeRev `mango:"changes"`
	// Deleted reports whether the event is a deletion.
	Deleted bool `mango:"deleted"`
	// Doc carries the full document when the feed was opened with
	// include_docs, or nil otherwise.
	Doc map[string]any `mango:"doc"`
}

// ChangesResult is the payload of a normal or long-poll changes feed.
type ChangesResult struct {
	// Results holds the events in server-assigned sequence order.
	Results []ChangesEvent `mango:"results"`
	// LastSeq is the sequence token to resume from.
	LastSeq string `mango:"last_seq"`
	// Pending is the number of events the server did not include.
	Pending int64 `mango:"pending"`
}

// BulkResult is one entry of a bulk write response, positionally matched to
// the submitted documents.
type BulkResult struct {
	ID     string `mango:"id"`
	Rev    string `mango:"rev"`
	OK     bool   `mango:"ok"`
	Error  string `mango:"error"`
	Reason string `mango:"reason"`
}

// QueryContext identifies the database a query runs against. It is created
// when a database handle is constructed and immutable afterwards.
type QueryContext struct {
	// Endpoint is the base URL of the server.
	Endpoint *url.URL
	// Name is the database name as given by the user.
	Name string
	// EscapedName is the percent-encoded form used in request paths.
	EscapedName string
}

// CacheStats reports translation cache effectiveness.
type CacheStats struct {
	// Hits counts translations served from the cache.
	Hits uint64
	// Misses counts translations that had to be computed.
	Misses uint64
	// Entries is the current number of cached translations.
	Entries int
}

// ExecutionStats carries the server-reported statistics of a query.
type ExecutionStats struct {
	TotalKeysExamined       int64   `mango:"total_keys_examined"`
	TotalDocsExamined       int64   `mango:"total_docs_examined"`
	TotalQuorumDocsExamined int64   `mango:"total_quorum_docs_examined"`
	ResultsReturned         int64   `mango:"results_returned"`
	ExecutionTimeMs         float64 `mango:"execution_time_ms"`
}

// CaseStyle selects how member names are converted to wire field names when
// no explicit override applies.
type CaseStyle uint8

// Supported case styles.
const (
	CaseAsIs CaseStyle = iota
	CaseLower
	CaseCamel
	CaseSnake
	CaseKebab
)

// ArrayIndexing selects the notation used for array index segments in wire
// field paths.
type ArrayIndexing uint8

// Supported array index notations. IndexDot renders a[0].b as a.0.b,
// IndexBracket keeps the bracket form.
const (
	IndexDot ArrayIndexing = iota
	IndexBracket
)

// Segment is one step of a field path: either a named member or an array
// index marker.
type Segment struct {
	// Name is the member name. Empty for index segments.
	Name string
	// Index is the array index. Ignored unless Array is set.
	Index int
	// Array marks the segment as an array index.
	Array bool
}

// SelectorFilter narrows a changes feed to documents matching a query
// expression. It is negotiated as a POST body with filter=_selector.
type SelectorFilter struct {
	// Query is the predicate expression, accepted in the same forms as
	// Database.Query.
	Query any
}

// DocumentIDsFilter narrows a changes feed to an explicit set of document
// IDs. It is negotiated as a POST body with filter=_doc_ids.
type DocumentIDsFilter struct {
	IDs []string
}

// ViewFilter narrows a changes feed to documents matched by a view's map
// function. Negotiated as filter=_view with the view parameter.
type ViewFilter struct {
	// View is the "ddoc/view" reference.
	View string
}

// DesignFilter narrows a changes feed to design documents only.
type DesignFilter struct{}

// NamedFilter selects a server-side filter function by "ddoc/name".
type NamedFilter struct {
	Name string
}
