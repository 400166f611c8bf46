package domain

import (
	"errors"
	"fmt"
)

// Remote error sentinels, mapped from HTTP responses. Wrapped errors carry
// the server-reported error and reason strings; use [errors.Is] to test the
// kind.
var (
	// ErrUnauthorized is returned on a 401 response after the single
	// re-authentication attempt also failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned on a 403 response.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned on a 404 response for operations whose
	// semantics require the resource to exist. [Database.Find] is the only
	// operation that maps a 404 to a nil result instead.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on a 409 response, usually meaning the
	// submitted revision is stale.
	ErrConflict = errors.New("conflict")
	// ErrPreconditionFailed is returned on a 412 response.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Local error sentinels.
var (
	// ErrTargetNil is returned when the passed target, which should be a
	// pointer, is passed as a nil value.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decode target is not a pointer, or,
	// where a slice of results is decoded, not a pointer to a slice.
	ErrNonPointer = errors.New("target must be a pointer")
	// ErrFeedClosed is returned when operating on a closed [Feed].
	ErrFeedClosed = errors.New("changes feed is closed")
	// ErrScanBeforeNext is returned when calling [Feed.Scan] before
	// calling [Feed.Next].
	ErrScanBeforeNext = errors.New("scan called before next")
	// ErrSessionExpired is returned when the session endpoint accepts the
	// credentials but its response carries no session cookie.
	ErrSessionExpired = errors.New("session expired")
)

// ErrUnsupportedQuery is returned when a query expression cannot be
// represented as a Mango query. It is raised locally, before any request is
// sent.
type ErrUnsupportedQuery struct {
	Reason string
}

// Error implements [error].
func (e ErrUnsupportedQuery) Error() string {
	return fmt.Sprintf("unsupported query: %s", e.Reason)
}

// ErrServer represents a 5xx response. Retriable with backoff.
type ErrServer struct {
	Status int
	Name   string
	Reason string
}

// Error implements [error].
func (e ErrServer) Error() string {
	return fmt.Sprintf("server error %d: %s: %s", e.Status, e.Name, e.Reason)
}

// ErrTransport wraps a network-level failure. Retriable with backoff.
type ErrTransport struct {
	Err error
}

// Error implements [error].
func (e ErrTransport) Error() string {
	return fmt.Sprint("transport error: ", e.Err.Error())
}

// Unwrap exposes the underlying network error.
func (e ErrTransport) Unwrap() error { return e.Err }

// ErrDecode wraps a JSON parse or shape mismatch while reading a response.
// Decode errors are fatal for the call in which they occur.
type ErrDecode struct {
	Source any
	Target any
}

// Error implements [error].
func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}

// ErrRemote carries the raw server error payload alongside the mapped
// sentinel. It is the wrapping layer between a non-2xx response and the
// sentinel kinds above.
type ErrRemote struct {
	// Kind is the mapped sentinel ([ErrNotFound], [ErrConflict], ...).
	Kind error
	// Status is the HTTP status code.
	Status int
	// Name is the server's "error" field.
	Name string
	// Reason is the server's "reason" field.
	Reason string
}

// Error implements [error].
func (e ErrRemote) Error() string {
	return fmt.Sprintf("%s (%d %s: %s)", e.Kind.Error(), e.Status, e.Name, e.Reason)
}

// Unwrap exposes the mapped sentinel so [errors.Is] matches the kind.
func (e ErrRemote) Unwrap() error { return e.Kind }

// ErrIDPrefix is returned when a client enforces an ID prefix and a document
// violates it.
type ErrIDPrefix struct {
	ID     string
	Prefix string
}

// Error implements [error].
func (e ErrIDPrefix) Error() string {
	return fmt.Sprintf("document id %q does not start with required prefix %q", e.ID, e.Prefix)
}
