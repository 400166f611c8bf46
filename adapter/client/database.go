package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/mango/adapter/changes"
	"github.com/vinicius-lino-figueiredo/mango/adapter/sender"
	"github.com/vinicius-lino-figueiredo/mango/adapter/transport"
	"github.com/vinicius-lino-figueiredo/mango/domain"
	"github.com/vinicius-lino-figueiredo/mango/pkg/structure"
)

// database implements [domain.Database].
type database struct {
	client  *Client
	qctx    domain.QueryContext
	sender  *sender.Sender
	changes *changes.Engine
}

// Context implements [domain.Database].
func (d *database) Context() domain.QueryContext {
	return d.qctx
}

// Find implements [domain.Database]. It is the only operation mapping a
// clean 404 to a nil result.
func (d *database) Find(ctx context.Context, id string, target any) (bool, error) {
	ctx, cancel := d.deadline(ctx)
	defer cancel()

	var row map[string]any
	err := d.client.transport.JSON(ctx, http.MethodGet, d.docPath(id), nil, nil, &row)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := d.sender.HydrateOne(row, target); err != nil {
		return false, err
	}
	return true, nil
}

// Exists implements [domain.Database].
func (d *database) Exists(ctx context.Context, id string) (bool, error) {
	return d.client.transport.Exists(ctx, d.docPath(id))
}

// Query implements [domain.Database]. Expressions go through the compiler;
// raw strings, bytes and maps are posted as-is.
func (d *database) Query(ctx context.Context, query any, target any) (*domain.QueryResult, error) {
	ctx, cancel := d.deadline(ctx)
	defer cancel()

	var body any
	switch q := query.(type) {
	case string, []byte, json.RawMessage:
		body = q
	case map[string]any:
		raw, err := structure.Marshal(q)
		if err != nil {
			return nil, err
		}
		body = raw
	default:
		compiled, err := d.client.compiler.Compile(query)
		if err != nil {
			return nil, err
		}
		body = compiled
	}
	return d.sender.Send(ctx, body, target)
}

// Save implements [domain.Database]. Documents are written in one bulk
// request; IDs and revisions distribute back positionally, then each
// document's staged attachments are synchronized, different documents in
// parallel.
func (d *database) Save(ctx context.Context, docs ...domain.Document) ([]domain.BulkResult, error) {
	bodies := make([]any, len(docs))
	for n, doc := range docs {
		if doc.DocumentID() == "" {
			id, err := d.client.idgen.GenerateID()
			if err != nil {
				return nil, err
			}
			doc.SetDocumentID(id)
		}
		if prefix := d.client.opts.IDPrefix; prefix != "" {
			if !strings.HasPrefix(doc.DocumentID(), prefix) {
				return nil, domain.ErrIDPrefix{ID: doc.DocumentID(), Prefix: prefix}
			}
		}
		body, err := documentBody(doc)
		if err != nil {
			return nil, err
		}
		bodies[n] = body
	}

	var results []domain.BulkResult
	path := d.qctx.EscapedName + "/_bulk_docs"
	err := d.client.transport.JSON(ctx, http.MethodPost, path,
		nil, map[string]any{"docs": bodies}, &results)
	if err != nil {
		return nil, err
	}

	var firstErr error
	for n, res := range results {
		if n >= len(docs) {
			break
		}
		if res.Error != "" {
			if firstErr == nil {
				firstErr = bulkError(res)
			}
			continue
		}
		docs[n].SetDocumentID(res.ID)
		docs[n].SetDocumentRev(res.Rev)
	}

	if err := d.syncAttachments(ctx, docs, results); err != nil && firstErr == nil {
		firstErr = err
	}
	return results, firstErr
}

// syncAttachments runs the attachment diff of every successfully written
// document on the shared worker pool. Entries of one document are applied
// in order; the first failure aborts that document's remaining entries.
func (d *database) syncAttachments(ctx context.Context, docs []domain.Document, results []domain.BulkResult) error {
	var wg sync.WaitGroup
	errs := make([]error, len(docs))
	for n, doc := range docs {
		if n < len(results) && results[n].Error != "" {
			continue
		}
		if len(doc.AttachmentSet().Pending()) == 0 {
			continue
		}
		wg.Add(1)
		if err := d.client.pool.Submit(func() {
			defer wg.Done()
			errs[n] = d.syncDocument(ctx, doc)
		}); err != nil {
			wg.Done()
			errs[n] = err
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

// uploadResponse is the body of an attachment upload or delete response.
type uploadResponse struct {
	OK  bool   `mango:"ok"`
	ID  string `mango:"id"`
	Rev string `mango:"rev"`
}

func (d *database) syncDocument(ctx context.Context, doc domain.Document) error {
	set := doc.AttachmentSet()
	for _, att := range set.Pending() {
		path := d.docPath(doc.DocumentID()) + "/" + transport.EscapeSegment(att.Name)

		if att.State == domain.AttachmentDeleted {
			var resp uploadResponse
			err := d.client.transport.Blob(ctx, http.MethodDelete, path,
				"", doc.DocumentRev(), nil, &resp)
			if err != nil {
				return err
			}
			doc.SetDocumentRev(resp.Rev)
			set.Remove(att.Name)
			continue
		}

		content, closeContent, err := attachmentContent(ctx, att)
		if err != nil {
			return err
		}
		var resp uploadResponse
		err = d.client.transport.Blob(ctx, http.MethodPut, path,
			att.ContentType, doc.DocumentRev(), content, &resp)
		closeContent()
		if err != nil {
			return err
		}
		doc.SetDocumentRev(resp.Rev)
		att.DocumentID = doc.DocumentID()
		att.DocumentRev = resp.Rev
		att.URI = d.attachmentURI(doc.DocumentID(), att.Name)
		set.MarkClean(att.Name)
	}
	return nil
}

// Delete implements [domain.Database].
func (d *database) Delete(ctx context.Context, doc domain.Document) error {
	query := url.Values{"rev": []string{doc.DocumentRev()}}
	var resp uploadResponse
	err := d.client.transport.JSON(ctx, http.MethodDelete,
		d.docPath(doc.DocumentID()), query, nil, &resp)
	if err != nil {
		return err
	}
	doc.SetDocumentRev(resp.Rev)
	return nil
}

// bulkGetResponse is the envelope of a bulk read.
type bulkGetResponse struct {
	Results []struct {
		ID   string           `mango:"id"`
		Docs []map[string]any `mango:"docs"`
	} `mango:"results"`
}

// BulkGet implements [domain.Database].
func (d *database) BulkGet(ctx context.Context, ids []string, target any) error {
	refs := make([]map[string]any, len(ids))
	for n, id := range ids {
		refs[n] = map[string]any{"id": id}
	}

	var resp bulkGetResponse
	path := d.qctx.EscapedName + "/_bulk_get"
	err := d.client.transport.JSON(ctx, http.MethodPost, path,
		nil, map[string]any{"docs": refs}, &resp)
	if err != nil {
		return err
	}

	var rows []map[string]any
	for _, res := range resp.Results {
		for _, doc := range res.Docs {
			if ok, found := doc["ok"].(map[string]any); found {
				rows = append(rows, ok)
			}
		}
	}
	return d.sender.Hydrate(rows, target)
}

// Changes implements [domain.Database].
func (d *database) Changes(ctx context.Context, options ...domain.ChangesOption) (*domain.ChangesResult, error) {
	return d.changes.Run(ctx, options...)
}

// ContinuousChanges implements [domain.Database].
func (d *database) ContinuousChanges(ctx context.Context, options ...domain.ChangesOption) (domain.Feed, error) {
	return d.changes.Continuous(ctx, options...)
}

// Attachment implements [domain.Database].
func (d *database) Attachment(ctx context.Context, docID, name string) (io.ReadCloser, error) {
	path := d.docPath(docID) + "/" + transport.EscapeSegment(name)
	rc, err := d.client.transport.Stream(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return readCloser{Reader: contextio.NewReader(ctx, rc), Closer: rc}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (d *database) docPath(id string) string {
	return d.qctx.EscapedName + "/" + transport.EscapeSegment(id)
}

func (d *database) attachmentURI(id, name string) string {
	base := strings.TrimSuffix(d.qctx.Endpoint.String(), "/")
	return base + "/" + d.qctx.EscapedName + "/" +
		transport.EscapeSegment(id) + "/" + transport.EscapeSegment(name)
}

func (d *database) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := d.client.opts.FindTimeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return ctx, func() {}
}

func bulkError(res domain.BulkResult) error {
	kind := error(domain.ErrRemote{
		Kind:   errors.New(res.Error),
		Status: 0,
		Name:   res.Error,
		Reason: res.Reason,
	})
	if res.Error == "conflict" {
		kind = domain.ErrRemote{
			Kind:   domain.ErrConflict,
			Status: http.StatusConflict,
			Name:   res.Error,
			Reason: res.Reason,
		}
	}
	return kind
}
