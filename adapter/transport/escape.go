package transport

import (
	"net/url"
	"strings"
)

// dbEscaper covers the characters the server requires escaped in database
// names beyond what generic path escaping produces.
var dbEscaper = strings.NewReplacer(
	"+", "%2B",
	"$", "%24",
	"(", "%28",
	")", "%29",
)

// EscapeDatabase percent-encodes a database name for use as a path segment.
func EscapeDatabase(name string) string {
	return dbEscaper.Replace(url.PathEscape(name))
}

// EscapeSegment percent-encodes a document ID or attachment name for use as
// a path segment.
func EscapeSegment(segment string) string {
	return url.PathEscape(segment)
}
