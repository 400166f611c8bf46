// Package document contains the default [domain.Document] implementation,
// an embeddable carrier of the server-assigned identity, and the builder
// that turns user values into wire document bodies.
package document

import (
	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/structure"
)

// Document carries a document's server identity and attachment set. Embed
// it in user structs handed to the write path:
//
//	type Person struct {
//		document.Document
//		Name string `mango:"name"`
//	}
//
// The embedded fields are flattened into the wire body; the ID and revision
// are filled from server responses by the hydration step.
type Document struct {
	id          string
	rev         string
	attachments *domain.AttachmentSet
}

// New returns a document with the given ID. An empty ID is assigned by the
// client on the first write.
func New(id string) Document {
	return Document{id: id}
}

// DocumentID implements [domain.Document].
func (d *Document) DocumentID() string { return d.id }

// SetDocumentID implements [domain.Document].
func (d *Document) SetDocumentID(id string) { d.id = id }

// DocumentRev implements [domain.Document].
func (d *Document) DocumentRev() string { return d.rev }

// SetDocumentRev implements [domain.Document].
func (d *Document) SetDocumentRev(rev string) { d.rev = rev }

// AttachmentSet implements [domain.Document].
func (d *Document) AttachmentSet() *domain.AttachmentSet {
	if d.attachments == nil {
		d.attachments = domain.NewAttachmentSet()
	}
	return d.attachments
}

// Body converts a user value into the wire document body. Struct fields are
// renamed through their `mango` tags; the identity fields are merged in
// when the value implements [domain.Document]. Clean attachments are
// represented as stubs so the server preserves them across the write.
func Body(doc any) (map[string]any, error) {
	body, err := structure.ToMap(doc)
	if err != nil {
		return nil, err
	}
	delete(body, "_id")
	delete(body, "_rev")
	delete(body, "_attachments")

	d, ok := doc.(domain.Document)
	if !ok {
		return body, nil
	}
	if id := d.DocumentID(); id != "" {
		body["_id"] = id
	}
	if rev := d.DocumentRev(); rev != "" {
		body["_rev"] = rev
	}

	stubs := make(map[string]any)
	set := d.AttachmentSet()
	for _, name := range set.Names() {
		att, _ := set.Get(name)
		if att.State != domain.AttachmentClean {
			continue
		}
		stubs[name] = map[string]any{
			"stub":         true,
			"content_type": att.ContentType,
			"digest":       att.Digest,
			"length":       att.Length,
		}
	}
	if len(stubs) > 0 {
		body["_attachments"] = stubs
	}
	return body, nil
}
